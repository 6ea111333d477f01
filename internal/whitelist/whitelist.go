// Package whitelist implements the whitelist / vocabulary filter chain
// (spec §4.4): a sequence of keep/drop strategies run over NAME spans
// before the confidence pipeline, plus the ALL-CAPS structure filter.
//
// Vocabularies (medical terms, hospital names, insurance carriers, general
// non-PHI terms) are external collaborators per spec §1 — represented here
// as the Vocabulary interface, with MapVocabulary as a small default
// sufficient for tests.
package whitelist

import (
	"strings"

	"github.com/DocHatty/vulpes-celare/internal/span"
)

// Vocabulary answers whether a term belongs to some fixed word list.
// Production vocabularies (medical dictionary, hospital directory,
// insurance carriers) are caller-supplied; spec §1 places their content
// out of scope.
type Vocabulary interface {
	Contains(term string) bool
}

// MapVocabulary is a small in-memory Vocabulary sufficient for tests and
// as a safe empty default.
type MapVocabulary map[string]struct{}

// NewMapVocabulary builds a MapVocabulary from the given terms (case-folded).
func NewMapVocabulary(terms ...string) MapVocabulary {
	v := make(MapVocabulary, len(terms))
	for _, t := range terms {
		v[strings.ToLower(t)] = struct{}{}
	}
	return v
}

// Contains reports case-insensitive membership.
func (v MapVocabulary) Contains(term string) bool {
	_, ok := v[strings.ToLower(term)]
	return ok
}

// Vocabularies bundles the four external word lists consulted by the
// whitelist chain. A nil entry behaves as an always-empty vocabulary.
type Vocabularies struct {
	Medical   Vocabulary
	Hospital  Vocabulary
	Insurance Vocabulary
	NonPHI    Vocabulary
}

func contains(v Vocabulary, term string) bool {
	return v != nil && v.Contains(term)
}

// patternMatchedTypes are never dropped by this chain (spec §4.4 rule 1).
var patternMatchedTypes = map[span.FilterType]struct{}{
	span.SSN: {}, span.Phone: {}, span.Email: {}, span.IPAddress: {},
	span.URL: {}, span.Fax: {}, span.MRN: {}, span.Account: {},
	span.License: {}, span.CreditCard: {}, span.HealthPlan: {}, span.DeviceID: {},
	span.Biometric: {},
}

var titlePrefixes = []string{
	"Dr.", "Mr.", "Mrs.", "Ms.", "Miss", "Prof.", "Rev.", "Hon.",
	"Capt.", "Lt.", "Sgt.", "Col.", "Gen.",
}

var nameSuffixes = []string{"Jr.", "Sr.", "II", "III", "IV", "V"}

var structurePhrases = []string{
	"protected health", "social security", "medical record",
	"health plan", "emergency department", "intensive care",
}

var headingIndicators = []string{
	"INFORMATION", "PATIENT", "MEDICAL", "DIAGNOSIS", "DISCHARGE",
	"SUMMARY", "HISTORY", "RECORD", "ADMISSION", "REPORT",
}

// Filter runs the whitelist chain over spans, given the full document text
// for ALL-CAPS line lookups, and returns the surviving spans. Dropped
// spans are appended to dropped (if non-nil) so the caller can release
// them back to the pool.
func Filter(text string, spans []*span.Span, vocab Vocabularies, dropped *[]*span.Span) []*span.Span {
	lines := strings.Split(text, "\n")

	kept := spans[:0]
	for _, s := range spans {
		if shouldDrop(s, vocab) || droppedByAllCapsHeading(s, lines) {
			if dropped != nil {
				*dropped = append(*dropped, s)
			}
			continue
		}
		kept = append(kept, s)
	}
	return kept
}

func shouldDrop(s *span.Span, vocab Vocabularies) bool {
	if s.FilterType != span.Name {
		return false
	}

	// Rule 1: pattern-matched types are never dropped here — not
	// applicable since we've already filtered to NAME spans, but this
	// check documents the exception; a NAME span classified under a
	// pattern-matched type never reaches this function via its
	// FilterType, so the check is effectively rule 1's boundary.
	if _, ok := patternMatchedTypes[s.FilterType]; ok {
		return false
	}

	// Rule 4: special carve-out.
	if s.Pattern == "Labeled name field" && s.Confidence >= 0.95 {
		return false
	}

	text := s.Text

	// Rule 2: title prefix / name suffix kept unless a structure phrase present.
	if hasTitlePrefix(text) || hasNameSuffix(text) {
		lower := strings.ToLower(text)
		for _, phrase := range structurePhrases {
			if strings.Contains(lower, phrase) {
				return true
			}
		}
		return false
	}

	// Rule 3: vocabulary membership, whole form or any significant word.
	if matchesVocabulary(text, vocab) {
		return true
	}

	return false
}

func hasTitlePrefix(text string) bool {
	trimmed := strings.TrimSpace(text)
	for _, p := range titlePrefixes {
		if strings.HasPrefix(trimmed, p) {
			return true
		}
	}
	return false
}

func hasNameSuffix(text string) bool {
	trimmed := strings.TrimRight(strings.TrimSpace(text), ".")
	for _, suf := range nameSuffixes {
		suf = strings.TrimRight(suf, ".")
		if strings.HasSuffix(trimmed, suf) {
			return true
		}
	}
	return false
}

func matchesVocabulary(text string, vocab Vocabularies) bool {
	if contains(vocab.Medical, text) || contains(vocab.Hospital, text) ||
		contains(vocab.Insurance, text) || contains(vocab.NonPHI, text) {
		return true
	}
	for _, word := range strings.Fields(text) {
		word = strings.Trim(word, ".,;:")
		if len(word) <= 2 {
			continue
		}
		if contains(vocab.Medical, word) || contains(vocab.Hospital, word) ||
			contains(vocab.Insurance, word) || contains(vocab.NonPHI, word) {
			return true
		}
	}
	return false
}

// droppedByAllCapsHeading implements the ALL-CAPS structure filter: a NAME
// span is dropped when its text appears (case-insensitively) inside an
// ALL-CAPS line that also contains a heading indicator and is either a
// pure heading (no embedded colon, or ends with one) rather than a
// "LABEL: value" line.
func droppedByAllCapsHeading(s *span.Span, lines []string) bool {
	if s.FilterType != span.Name {
		return false
	}
	lowerText := strings.ToLower(s.Text)
	for _, line := range lines {
		upper := strings.ToUpper(line)
		if upper != line || strings.TrimSpace(line) == "" {
			continue // not an ALL-CAPS line
		}
		if !strings.Contains(strings.ToLower(line), lowerText) {
			continue
		}
		if !hasHeadingIndicator(upper) {
			continue
		}
		colonIdx := strings.Index(line, ":")
		pureHeading := colonIdx == -1 || colonIdx == len(strings.TrimRight(line, " \t"))-1
		if pureHeading {
			return true
		}
	}
	return false
}

func hasHeadingIndicator(upperLine string) bool {
	for _, ind := range headingIndicators {
		if strings.Contains(upperLine, ind) {
			return true
		}
	}
	return false
}
