package redact

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/DocHatty/vulpes-celare/internal/apply"
	"github.com/DocHatty/vulpes-celare/internal/detect"
	"github.com/DocHatty/vulpes-celare/internal/semcache"
	"github.com/DocHatty/vulpes-celare/internal/span"
	"github.com/DocHatty/vulpes-celare/internal/testdetectors"
	"github.com/DocHatty/vulpes-celare/internal/whitelist"
)

func newTestOrchestrator() *Orchestrator {
	opts := Options{
		PolicyHash:          "test-policy",
		EnableWorkerPool:    false,
		EnableSemanticCache: false,
		TokenStyle:          apply.TokenStyleCounter,
		Vocabularies: whitelist.Vocabularies{
			Medical:   whitelist.NewMapVocabulary(),
			Hospital:  whitelist.NewMapVocabulary(),
			Insurance: whitelist.NewMapVocabulary(),
			NonPHI:    whitelist.NewMapVocabulary(),
		},
	}
	return New(opts, nil, nil)
}

func allEnabledPolicy() detect.Policy {
	policy := detect.Policy{}
	for _, d := range testdetectors.All() {
		policy[d.FilterType()] = detect.Config{Enabled: true}
	}
	return policy
}

func TestRedactEmptyTextReturnsValidationError(t *testing.T) {
	o := newTestOrchestrator()
	_, spans, report, err := o.Redact(context.Background(), "", testdetectors.All(), allEnabledPolicy(), detect.AdaptiveContext{})
	if err == nil {
		t.Fatal("expected a validation error for empty text")
	}
	var rerr *Error
	if !errors.As(err, &rerr) {
		t.Fatalf("expected *redact.Error, got %T: %v", err, err)
	}
	if rerr.Kind != ErrValidationFailed {
		t.Errorf("expected ErrValidationFailed, got %v", rerr.Kind)
	}
	if rerr.CorrelationID != report.CorrelationID {
		t.Errorf("expected error correlation id to match the report's, got %q vs %q", rerr.CorrelationID, report.CorrelationID)
	}
	if len(spans) != 0 {
		t.Errorf("expected no spans on a validation failure")
	}
}

func TestRedactShortTextEarlyReturn(t *testing.T) {
	o := newTestOrchestrator()
	text, spans, report, err := o.Redact(context.Background(), "Hi", testdetectors.All(), allEnabledPolicy(), detect.AdaptiveContext{})
	if err != nil {
		t.Fatalf("redact: %v", err)
	}
	if text != "Hi" || len(spans) != 0 {
		t.Errorf("expected early return unmodified text, got %q spans=%d", text, len(spans))
	}
	if report.TotalExecutionMs < 0 {
		t.Errorf("expected non-negative timing")
	}
}

func TestRedactRemovesSSNAndEmail(t *testing.T) {
	o := newTestOrchestrator()
	doc := "Patient contact: jane.doe@example.com, SSN 123-45-6789, on file."
	text, spans, report, err := o.Redact(context.Background(), doc, testdetectors.All(), allEnabledPolicy(), detect.AdaptiveContext{DocumentType: "ADMISSION_NOTE"})
	if err != nil {
		t.Fatalf("redact: %v", err)
	}
	if strings.Contains(text, "jane.doe@example.com") {
		t.Errorf("expected email redacted, got %q", text)
	}
	if strings.Contains(text, "123-45-6789") {
		t.Errorf("expected SSN redacted, got %q", text)
	}
	if report.TotalSpansDetected == 0 {
		t.Errorf("expected at least one applied span")
	}
	if len(spans) != report.TotalSpansDetected {
		t.Errorf("report span count should match returned spans")
	}
}

func TestRedactDisabledFilterTypeNotRedacted(t *testing.T) {
	o := newTestOrchestrator()
	doc := "Email me at jane.doe@example.com about the results please."
	policy := detect.Policy{span.Email: detect.Config{Enabled: false}}
	text, _, _, err := o.Redact(context.Background(), doc, testdetectors.All(), policy, detect.AdaptiveContext{})
	if err != nil {
		t.Fatalf("redact: %v", err)
	}
	if !strings.Contains(text, "jane.doe@example.com") {
		t.Errorf("expected disabled EMAIL detector left text untouched, got %q", text)
	}
}

func TestRedactPluginPreProcessApplied(t *testing.T) {
	o := newTestOrchestrator()
	o.opts.Plugins = []Plugin{
		{
			Name: "upcase-marker",
			PreProcess: func(doc string) (string, error) {
				return doc + " [PROCESSED]", nil
			},
		},
	}
	doc := "Just a short clinical note about nothing sensitive at all here."
	text, _, _, err := o.Redact(context.Background(), doc, nil, detect.Policy{}, detect.AdaptiveContext{})
	if err != nil {
		t.Fatalf("redact: %v", err)
	}
	if !strings.Contains(text, "[PROCESSED]") {
		t.Errorf("expected pre_process hook applied, got %q", text)
	}
}

func TestRedactPluginShortCircuit(t *testing.T) {
	o := newTestOrchestrator()
	o.opts.Plugins = []Plugin{
		{
			Name: "bypass",
			ShortCircuit: func(doc string) (*Result, error) {
				return &Result{Text: "BYPASSED"}, nil
			},
		},
	}
	doc := "This text would normally go through the whole pipeline."
	text, spans, report, err := o.Redact(context.Background(), doc, testdetectors.All(), allEnabledPolicy(), detect.AdaptiveContext{})
	if err != nil {
		t.Fatalf("redact: %v", err)
	}
	if text != "BYPASSED" || !report.ShortCircuited {
		t.Errorf("expected short-circuit bypass, got text=%q report=%+v", text, report)
	}
	if len(spans) != 0 {
		t.Errorf("expected no spans on short-circuit")
	}
}

func TestRedactPluginPanicIsolated(t *testing.T) {
	o := newTestOrchestrator()
	o.opts.Plugins = []Plugin{
		{
			Name: "panics",
			PreProcess: func(doc string) (string, error) {
				panic("boom")
			},
		},
	}
	doc := "Nothing sensitive here, just a plain sentence for testing purposes."
	text, _, report, err := o.Redact(context.Background(), doc, nil, detect.Policy{}, detect.AdaptiveContext{})
	if err != nil {
		t.Fatalf("redact: %v", err)
	}
	if text != doc {
		t.Errorf("expected doc unmodified after panicking pre_process hook, got %q", text)
	}
	if report.Plugins == nil || len(report.Plugins.Failed) != 1 {
		t.Errorf("expected one isolated plugin failure recorded, got %+v", report.Plugins)
	}
}

func TestRedactAccumulatesPluginTime(t *testing.T) {
	o := newTestOrchestrator()
	o.opts.Plugins = []Plugin{
		{
			Name: "slow-marker",
			PreProcess: func(doc string) (string, error) {
				time.Sleep(time.Millisecond)
				return doc, nil
			},
		},
	}
	doc := "Nothing sensitive here, just a plain sentence for testing purposes."
	_, _, report, err := o.Redact(context.Background(), doc, nil, detect.Policy{}, detect.AdaptiveContext{})
	if err != nil {
		t.Fatalf("redact: %v", err)
	}
	if report.Plugins == nil || report.Plugins.TotalTimeMs <= 0 {
		t.Errorf("expected accumulated plugin time > 0, got %+v", report.Plugins)
	}
}

func TestCacheHitShortCircuitsDetectors(t *testing.T) {
	o := newTestOrchestrator()
	o.opts.EnableSemanticCache = true
	o.cache = semcache.NewService(semcache.NewMemoryStore())

	doc := strings.Repeat("Patient record with no direct identifiers present in this sentence. ", 2)
	_, _, _, err := o.Redact(context.Background(), doc, testdetectors.All(), allEnabledPolicy(), detect.AdaptiveContext{})
	if err != nil {
		t.Fatalf("first redact: %v", err)
	}

	_, _, report, err := o.Redact(context.Background(), doc, testdetectors.All(), allEnabledPolicy(), detect.AdaptiveContext{})
	if err != nil {
		t.Fatalf("second redact: %v", err)
	}
	if report.Cache == nil || !report.Cache.Hit {
		t.Errorf("expected second identical request to hit the semantic cache, got %+v", report.Cache)
	}
}
