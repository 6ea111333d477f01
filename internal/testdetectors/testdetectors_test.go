package testdetectors

import (
	"context"
	"testing"

	"github.com/DocHatty/vulpes-celare/internal/detect"
	"github.com/DocHatty/vulpes-celare/internal/span"
)

func TestSSNDetectorMatches(t *testing.T) {
	d := NewSSN()
	spans, err := d.Detect(context.Background(), "SSN is 123-45-6789 on file.", detect.Config{Enabled: true}, nil)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if len(spans) != 1 || spans[0].Text != "123-45-6789" {
		t.Fatalf("expected one SSN match, got %+v", spans)
	}
}

func TestDetectorDisabledReturnsNothing(t *testing.T) {
	d := NewSSN()
	spans, err := d.Detect(context.Background(), "123-45-6789", detect.Config{Enabled: false}, nil)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if len(spans) != 0 {
		t.Errorf("expected disabled detector to return no spans")
	}
}

func TestMRNDetectorRequiresLabel(t *testing.T) {
	d := NewMRN()
	spans, _ := d.Detect(context.Background(), "MRN: 1234567 for patient.", detect.Config{Enabled: true}, nil)
	if len(spans) != 1 {
		t.Fatalf("expected one MRN match, got %+v", spans)
	}
	if spans[0].FilterType != span.MRN {
		t.Errorf("expected MRN filter type, got %s", spans[0].FilterType)
	}
}

func TestAllReturnsUniqueFilterTypes(t *testing.T) {
	seen := make(map[span.FilterType]bool)
	for _, d := range All() {
		if seen[d.FilterType()] {
			t.Errorf("duplicate filter type among example detectors: %s", d.FilterType())
		}
		seen[d.FilterType()] = true
	}
}
