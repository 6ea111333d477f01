// contextmodifier.go implements stage 1 of the confidence pipeline (spec
// §4.6.1): pattern-specific multiplicative confidence bumps triggered by a
// local keyword appearing near the span.
//
// Grounded on the teacher's compilePatterns declarative-table idiom: a
// fixed table of {filter type, keyword, bump, proximity} rows compiled once.
package confidence

import (
	"strings"

	"github.com/DocHatty/vulpes-celare/internal/span"
)

// keywordRule is one row of the context-modifier table.
type keywordRule struct {
	filterType span.FilterType
	keyword    string
	bump       float64
	proximity  int // max chars of lookbehind the keyword may appear within
}

var contextKeywordTable = []keywordRule{
	{span.Date, "admitted on", 1.10, 20},
	{span.Date, "discharged on", 1.10, 20},
	{span.Date, "born on", 1.10, 20},
	{span.Date, "dob", 1.15, 10},
	{span.Name, "patient", 1.10, 15},
	{span.Name, "dr.", 1.05, 10},
	{span.MRN, "file #", 1.15, 15},
	{span.MRN, "medical record", 1.15, 20},
	{span.SSN, "social security", 1.10, 20},
	{span.Phone, "phone", 1.10, 15},
	{span.Phone, "tel", 1.10, 10},
}

// ContextModifier applies contextKeywordTable to every span.
type ContextModifier struct{}

// NewContextModifier returns a ContextModifier using the fixed keyword table.
func NewContextModifier() *ContextModifier {
	return &ContextModifier{}
}

func (c *ContextModifier) Name() string { return "context_modifier" }

func (c *ContextModifier) Apply(spans []*span.Span, doc *Document) error {
	lowerText := strings.ToLower(doc.Text)
	for _, s := range spans {
		for _, rule := range contextKeywordTable {
			if rule.filterType != s.FilterType {
				continue
			}
			if keywordPrecedes(lowerText, rule.keyword, s.CharacterStart, rule.proximity) {
				s.Confidence = clamp(s.Confidence * rule.bump)
			}
		}
	}
	return nil
}

// keywordPrecedes reports whether keyword appears within proximity chars
// immediately before position start in lowerText.
func keywordPrecedes(lowerText, keyword string, start, proximity int) bool {
	lo := start - proximity - len(keyword)
	if lo < 0 {
		lo = 0
	}
	hi := start
	if hi > len(lowerText) {
		hi = len(lowerText)
	}
	if lo >= hi {
		return false
	}
	return strings.Contains(lowerText[lo:hi], keyword)
}
