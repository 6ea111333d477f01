package postfilter

import (
	"testing"

	"github.com/DocHatty/vulpes-celare/internal/span"
)

func TestDevicePhoneFPDropsCallButton(t *testing.T) {
	s := &span.Span{FilterType: span.Phone, Text: "call button 42", Confidence: 0.8}
	pool := span.NewPool()
	kept := NewChain().Filter("irrelevant", []*span.Span{s}, pool)
	if len(kept) != 0 {
		t.Errorf("expected call-button phone span dropped")
	}
}

func TestShortNameDropsLowConfidence(t *testing.T) {
	s := &span.Span{FilterType: span.Name, Text: "Jo", Confidence: 0.5}
	pool := span.NewPool()
	kept := NewChain().Filter("irrelevant", []*span.Span{s}, pool)
	if len(kept) != 0 {
		t.Errorf("expected short low-confidence NAME dropped")
	}
}

func TestShortNameKeptWithComma(t *testing.T) {
	s := &span.Span{FilterType: span.Name, Text: "Jo,", Confidence: 0.5}
	pool := span.NewPool()
	kept := NewChain().Filter("irrelevant", []*span.Span{s}, pool)
	if len(kept) != 1 {
		t.Errorf("expected short NAME with comma kept")
	}
}

func TestMedicalSuffixDropped(t *testing.T) {
	s := &span.Span{FilterType: span.Name, Text: "Mercy Health", Confidence: 0.9}
	pool := span.NewPool()
	kept := NewChain().Filter("irrelevant", []*span.Span{s}, pool)
	if len(kept) != 0 {
		t.Errorf("expected facility-suffixed NAME dropped")
	}
}

func TestNonNameSpanUnaffectedByNameStrategies(t *testing.T) {
	s := &span.Span{FilterType: span.SSN, Text: "123-45-6789", Confidence: 0.99}
	pool := span.NewPool()
	kept := NewChain().Filter("irrelevant", []*span.Span{s}, pool)
	if len(kept) != 1 {
		t.Errorf("expected SSN span unaffected by NAME-only strategies")
	}
}

func TestGoodNameSurvivesChain(t *testing.T) {
	s := &span.Span{FilterType: span.Name, Text: "John Smith", Confidence: 0.9}
	pool := span.NewPool()
	kept := NewChain().Filter("irrelevant", []*span.Span{s}, pool)
	if len(kept) != 1 {
		t.Errorf("expected well-formed name to survive the chain")
	}
}
