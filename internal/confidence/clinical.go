// clinical.go implements stage 5 of the confidence pipeline (spec §4.6.5):
// an optional, gated clinical-context modifier. Document-level clinical
// strength is sampled at 5 evenly-spaced positions; borderline spans get a
// reduced confidence boost scaled to that strength. It never penalizes
// when clinical context is absent (HIPAA-first: when in doubt, prefer a
// false positive over a missed redaction).
package confidence

import (
	"strings"

	"github.com/DocHatty/vulpes-celare/internal/span"
)

// ClinicalStrength is the document-level clinical-context signal.
type ClinicalStrength int

const (
	StrengthNone ClinicalStrength = iota
	StrengthWeak
	StrengthModerate
	StrengthStrong
)

var clinicalStrengthBoost = map[ClinicalStrength]float64{
	StrengthStrong:   0.075,
	StrengthModerate: 0.05,
	StrengthWeak:     0.025,
	StrengthNone:     0,
}

// clinicalKeywords are sampled for in each of the 5 document positions.
var clinicalKeywords = []string{
	"diagnosis", "treatment", "prescribed", "discharge", "admission",
	"physician", "clinical", "symptom", "patient presents", "vitals",
	"medication", "history of present illness",
}

// ClinicalContextModifier is stage 5 of the confidence pipeline.
type ClinicalContextModifier struct{}

// NewClinicalContextModifier returns a ClinicalContextModifier.
func NewClinicalContextModifier() *ClinicalContextModifier {
	return &ClinicalContextModifier{}
}

func (c *ClinicalContextModifier) Name() string { return "clinical_context_modifier" }

// Apply boosts borderline spans (0.5 <= confidence < 0.75) by an amount
// scaled to the document's sampled clinical strength. It never lowers
// confidence.
func (c *ClinicalContextModifier) Apply(spans []*span.Span, doc *Document) error {
	strength := SampleClinicalStrength(doc.Text)
	boost := clinicalStrengthBoost[strength]
	if boost == 0 {
		return nil
	}
	for _, s := range spans {
		if s.Confidence >= 0.5 && s.Confidence < 0.75 {
			s.Confidence = clamp(s.Confidence + boost)
		}
	}
	return nil
}

// SampleClinicalStrength samples 5 evenly-spaced positions in text, counts
// how many of those sample windows contain at least one clinical keyword,
// and maps that count to a tier (4+ strong, 2+ moderate, 1 weak, 0 none).
func SampleClinicalStrength(text string) ClinicalStrength {
	if len(text) == 0 {
		return StrengthNone
	}
	const samples = 5
	const windowRadius = 150

	lower := strings.ToLower(text)
	hits := 0
	for i := 0; i < samples; i++ {
		pos := (len(text) * i) / samples
		lo := pos - windowRadius
		if lo < 0 {
			lo = 0
		}
		hi := pos + windowRadius
		if hi > len(text) {
			hi = len(text)
		}
		window := lower[lo:hi]
		for _, kw := range clinicalKeywords {
			if strings.Contains(window, kw) {
				hits++
				break
			}
		}
	}

	switch {
	case hits >= 4:
		return StrengthStrong
	case hits >= 2:
		return StrengthModerate
	case hits >= 1:
		return StrengthWeak
	default:
		return StrengthNone
	}
}
