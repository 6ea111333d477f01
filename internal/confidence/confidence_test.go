package confidence

import (
	"testing"

	"github.com/DocHatty/vulpes-celare/internal/span"
)

func TestClamp(t *testing.T) {
	if clamp(0.1) != MinConfidence {
		t.Errorf("expected clamp to floor at %f", MinConfidence)
	}
	if clamp(1.5) != MaxConfidence {
		t.Errorf("expected clamp to ceiling at %f", MaxConfidence)
	}
	if clamp(0.5) != 0.5 {
		t.Errorf("expected mid-range value untouched")
	}
}

func TestContextModifierBumpsNearKeyword(t *testing.T) {
	text := "Patient was admitted on 03/15/1972 for evaluation."
	start := 25
	s := &span.Span{FilterType: span.Date, Confidence: 0.6, CharacterStart: start, CharacterEnd: start + 10}
	cm := NewContextModifier()
	if err := cm.Apply([]*span.Span{s}, &Document{Text: text}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Confidence <= 0.6 {
		t.Errorf("expected confidence bumped near 'admitted on', got %f", s.Confidence)
	}
}

func TestEnsembleEnhancerNeverDrops(t *testing.T) {
	spans := []*span.Span{
		{Text: "xQ#99z!!", FilterType: span.Custom, Confidence: 0.5},
	}
	e := NewEnsembleEnhancer()
	if err := e.Apply(spans, &Document{Text: "xQ#99z!!"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(spans) != 1 || spans[0].Ignored {
		t.Errorf("ensemble enhancer must never drop or ignore a span, got %+v", spans[0])
	}
}

func TestCalibratorIdentityWhenUnfitted(t *testing.T) {
	c := NewCalibrator()
	if got := c.Predict(0.73); got != 0.73 {
		t.Errorf("expected identity pass-through, got %f", got)
	}
}

func TestCalibratorMonotoneAfterFit(t *testing.T) {
	c := NewCalibrator()
	// Deliberately non-monotone empirical outcomes; PAV must still
	// produce a monotone fit.
	c.Fit([]float64{0.1, 0.2, 0.3, 0.4, 0.5}, []float64{0.2, 0.1, 0.4, 0.3, 0.9})

	prev := -1.0
	for _, x := range []float64{0.05, 0.15, 0.25, 0.35, 0.45, 0.6} {
		v := c.Predict(x)
		if v < prev {
			t.Errorf("calibrator output not monotone: at x=%f got %f after previous %f", x, v, prev)
		}
		prev = v
	}
}

func TestClinicalContextModifierNeverPenalizes(t *testing.T) {
	s := &span.Span{Confidence: 0.6}
	ccm := NewClinicalContextModifier()
	if err := ccm.Apply([]*span.Span{s}, &Document{Text: "no care keywords here at all plain text"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Confidence < 0.6 {
		t.Errorf("clinical context modifier must never lower confidence, got %f", s.Confidence)
	}
}

func TestClinicalContextModifierBoostsBorderline(t *testing.T) {
	text := "Diagnosis and treatment plan. Physician prescribed medication for clinical symptom. " +
		"Patient presents with vitals recorded at admission. Discharge summary attached. History of present illness noted."
	s := &span.Span{Confidence: 0.6}
	ccm := NewClinicalContextModifier()
	if err := ccm.Apply([]*span.Span{s}, &Document{Text: text}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Confidence <= 0.6 {
		t.Errorf("expected boosted confidence in strong clinical context, got %f", s.Confidence)
	}
}
