// ensemble.go implements stage 2 of the confidence pipeline (spec §4.6.2):
// a weighted combination of dictionary, structure, label, and
// chaos-entropy signals. This stage only ever adjusts confidence; per
// spec §9's explicit Open Question it must never filter spans.
package confidence

import (
	"math"
	"strings"
	"unicode"

	"github.com/DocHatty/vulpes-celare/internal/span"
)

// EnsembleEnhancer combines four independent signals into a single
// multiplicative adjustment.
type EnsembleEnhancer struct {
	// Weights sum to 1.0; exported so callers/tests can retune without
	// forking the stage.
	DictionaryWeight float64
	StructureWeight  float64
	LabelWeight      float64
	EntropyWeight    float64
}

// NewEnsembleEnhancer returns an EnsembleEnhancer with the default weights.
func NewEnsembleEnhancer() *EnsembleEnhancer {
	return &EnsembleEnhancer{
		DictionaryWeight: 0.30,
		StructureWeight:  0.25,
		LabelWeight:      0.25,
		EntropyWeight:    0.20,
	}
}

func (e *EnsembleEnhancer) Name() string { return "ensemble_enhancer" }

// Apply combines the four signals per span into a bump in [-0.10, +0.10]
// applied additively to confidence, then clamps. It never drops a span.
func (e *EnsembleEnhancer) Apply(spans []*span.Span, doc *Document) error {
	for _, s := range spans {
		dict := dictionarySignal(s)
		structure := structureSignal(s)
		label := labelSignal(s)
		entropy := entropySignal(s.Text)

		combined := e.DictionaryWeight*dict + e.StructureWeight*structure +
			e.LabelWeight*label + e.EntropyWeight*entropy

		// Map the weighted [0,1] combined score to a +/-0.10 adjustment
		// centered at 0.5.
		adjustment := (combined - 0.5) * 0.20
		s.Confidence = clamp(s.Confidence + adjustment)
	}
	return nil
}

// dictionarySignal is a stand-in heuristic: longer, capitalized multi-word
// text scores higher as "dictionary-like" structured PHI.
func dictionarySignal(s *span.Span) float64 {
	words := strings.Fields(s.Text)
	if len(words) == 0 {
		return 0
	}
	capitalized := 0
	for _, w := range words {
		r := []rune(w)
		if len(r) > 0 && unicode.IsUpper(r[0]) {
			capitalized++
		}
	}
	return float64(capitalized) / float64(len(words))
}

// structureSignal rewards text matching common PHI punctuation shapes
// (digit groups, separators) appropriate to the span's filter type.
func structureSignal(s *span.Span) float64 {
	switch s.FilterType {
	case span.SSN, span.Phone, span.Fax, span.MRN, span.Zip, span.CreditCard, span.Account:
		digits := 0
		for _, r := range s.Text {
			if unicode.IsDigit(r) {
				digits++
			}
		}
		if len(s.Text) == 0 {
			return 0
		}
		return float64(digits) / float64(len(s.Text))
	default:
		return 0.5
	}
}

// labelSignal rewards spans carrying provenance from the field-context
// pre-pass (already-labeled fields are more trustworthy).
func labelSignal(s *span.Span) float64 {
	if strings.Contains(s.Pattern, "Labeled") || strings.Contains(s.Pattern, "Multi-line") {
		return 1.0
	}
	if strings.HasPrefix(s.Pattern, "DFA:") {
		return 0.3
	}
	return 0.5
}

// entropySignal computes normalized Shannon entropy of the span text,
// penalizing both degenerate (all-same-character) and chaotic text.
func entropySignal(text string) float64 {
	text = strings.ToLower(strings.TrimSpace(text))
	if len(text) < 2 {
		return 0.5
	}
	counts := make(map[rune]int)
	for _, r := range text {
		counts[r]++
	}
	n := float64(len(text))
	var h float64
	for _, c := range counts {
		p := float64(c) / n
		h -= p * math.Log2(p)
	}
	maxEntropy := math.Log2(float64(len(counts)))
	if maxEntropy == 0 {
		return 0.5
	}
	normalized := h / maxEntropy
	// Moderate entropy (natural-language-ish) scores highest; very low or
	// very high entropy scores lower.
	return 1.0 - math.Abs(normalized-0.6)
}
