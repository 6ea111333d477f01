// Package postfilter implements the post-filter pipeline (spec §4.8, C9):
// the eleven named strategies, chained first-drop-wins, run after overlap
// resolution as a final false-positive pass.
//
// Modeled as spec §9 directs: "a tagged variant: one case per strategy...
// a uniform shouldKeep(span, text) -> bool"; the chain itself mirrors the
// teacher's PersistentCache-as-interface-with-multiple-implementations
// shape, one Strategy per named rule.
package postfilter

import (
	"regexp"
	"strings"

	"github.com/DocHatty/vulpes-celare/internal/span"
)

// Strategy is one named post-filter rule.
type Strategy interface {
	Name() string
	ShouldKeep(text string, s *span.Span) bool
}

// Accelerator may decide keep/drop for an entire span set in one call,
// bypassing the strategy chain. No in-tree implementation exists (none
// does in the corpus either); this is the seam spec §4.8 describes as
// optional.
type Accelerator interface {
	Decide(text string, spans []*span.Span) (kept []*span.Span, ok bool)
}

// ShadowReporter records divergences between the strategy chain and an
// Accelerator without acting on them (spec §4.8, §7 shadow mode).
type ShadowReporter interface {
	ReportDivergence(s *span.Span, chainKept, acceleratorKept bool)
}

// Chain runs the fixed ordered strategy list, first-drop-wins.
type Chain struct {
	strategies  []Strategy
	Accelerator Accelerator
	Shadow      ShadowReporter
}

// NewChain returns a Chain with the eleven default strategies from spec §4.8.
func NewChain() *Chain {
	return &Chain{
		strategies: []Strategy{
			devicePhoneFP{},
			sectionHeading{},
			structureWord{},
			shortName{},
			invalidPrefix{},
			invalidSuffix{},
			nameLineBreak{},
			medicalPhrase{},
			medicalSuffix{},
			geographicTerm{},
			fieldLabel{},
		},
	}
}

// Filter runs every span in spans through the strategy chain (or the
// Accelerator, when configured and shadow mode is off), releasing dropped
// spans to pool, and returns the survivors.
func (c *Chain) Filter(text string, spans []*span.Span, pool *span.Pool) []*span.Span {
	if c.Accelerator != nil && c.Shadow == nil {
		if kept, ok := c.Accelerator.Decide(text, spans); ok {
			c.releaseDropped(spans, kept, pool)
			return kept
		}
	}

	chainKept := c.runChain(text, spans)

	if c.Accelerator != nil && c.Shadow != nil {
		if acceleratorKept, ok := c.Accelerator.Decide(text, spans); ok {
			c.reportShadowDivergence(spans, chainKept, acceleratorKept)
		}
	}

	c.releaseDropped(spans, chainKept, pool)
	return chainKept
}

func (c *Chain) runChain(text string, spans []*span.Span) []*span.Span {
	kept := make([]*span.Span, 0, len(spans))
	for _, s := range spans {
		if c.shouldKeep(text, s) {
			kept = append(kept, s)
		}
	}
	return kept
}

func (c *Chain) shouldKeep(text string, s *span.Span) bool {
	for _, strat := range c.strategies {
		if !strat.ShouldKeep(text, s) {
			return false // first drop wins
		}
	}
	return true
}

func (c *Chain) releaseDropped(all, kept []*span.Span, pool *span.Pool) {
	keptSet := make(map[*span.Span]struct{}, len(kept))
	for _, s := range kept {
		keptSet[s] = struct{}{}
	}
	for _, s := range all {
		if _, ok := keptSet[s]; !ok {
			pool.Release(s)
		}
	}
}

func (c *Chain) reportShadowDivergence(all, chainKept, acceleratorKept []*span.Span) {
	chainSet := toSet(chainKept)
	accelSet := toSet(acceleratorKept)
	for _, s := range all {
		_, inChain := chainSet[s]
		_, inAccel := accelSet[s]
		if inChain != inAccel {
			c.Shadow.ReportDivergence(s, inChain, inAccel)
		}
	}
}

func toSet(spans []*span.Span) map[*span.Span]struct{} {
	m := make(map[*span.Span]struct{}, len(spans))
	for _, s := range spans {
		m[s] = struct{}{}
	}
	return m
}

// --- strategies ------------------------------------------------------------

type devicePhoneFP struct{}

func (devicePhoneFP) Name() string { return "DevicePhoneFP" }
func (devicePhoneFP) ShouldKeep(text string, s *span.Span) bool {
	if s.FilterType != span.DeviceID && s.FilterType != span.Phone {
		return true
	}
	lower := strings.ToLower(s.Text)
	for _, phrase := range []string{"call button", "room:", "bed:"} {
		if strings.Contains(lower, phrase) {
			return false
		}
	}
	return true
}

var sectionTitles = map[string]struct{}{
	"DISCHARGE SUMMARY": {}, "PATIENT INFORMATION": {}, "MEDICAL HISTORY": {},
	"HOSPITAL COURSE": {}, "CHIEF COMPLAINT": {}, "PHYSICAL EXAMINATION": {},
}

type sectionHeading struct{}

func (sectionHeading) Name() string { return "SectionHeading" }
func (sectionHeading) ShouldKeep(text string, s *span.Span) bool {
	if s.FilterType != span.Name {
		return true
	}
	upper := strings.ToUpper(strings.TrimSpace(s.Text))
	if upper != s.Text {
		return true // not ALL-CAPS
	}
	_, known := sectionTitles[upper]
	return !known
}

var structureVocabulary = map[string]struct{}{
	"summary": {}, "history": {}, "examination": {}, "assessment": {},
	"plan": {}, "course": {}, "complaint": {}, "findings": {},
}

type structureWord struct{}

func (structureWord) Name() string { return "StructureWord" }
func (structureWord) ShouldKeep(text string, s *span.Span) bool {
	if s.FilterType != span.Name {
		return true
	}
	for _, w := range strings.Fields(strings.ToLower(s.Text)) {
		if _, ok := structureVocabulary[w]; ok {
			return false
		}
	}
	return true
}

type shortName struct{}

func (shortName) Name() string { return "ShortName" }
func (shortName) ShouldKeep(text string, s *span.Span) bool {
	if s.FilterType != span.Name {
		return true
	}
	if len(s.Text) >= 5 {
		return true
	}
	if strings.Contains(s.Text, ",") {
		return true
	}
	return s.Confidence >= 0.90
}

var invalidPrefixWords = []string{
	"the", "a", "an", "of", "to", "in", "on", "at", "for", "with",
	"dx", "rx", "tx", "hx", "fx",
}

type invalidPrefix struct{}

func (invalidPrefix) Name() string { return "InvalidPrefix" }
func (invalidPrefix) ShouldKeep(text string, s *span.Span) bool {
	if s.FilterType != span.Name {
		return true
	}
	first := strings.ToLower(firstWord(s.Text))
	for _, w := range invalidPrefixWords {
		if first == w {
			return false
		}
	}
	return true
}

var invalidSuffixWords = []string{
	"summary", "note", "plan", "exam", "history", "syndrome", "disease",
}

type invalidSuffix struct{}

func (invalidSuffix) Name() string { return "InvalidSuffix" }
func (invalidSuffix) ShouldKeep(text string, s *span.Span) bool {
	if s.FilterType != span.Name {
		return true
	}
	last := strings.ToLower(lastWord(s.Text))
	for _, w := range invalidSuffixWords {
		if last == w {
			return false
		}
	}
	return true
}

var labelLikeTokens = regexp.MustCompile(`(?i)\n\s*(DX|DOB|MRN|PHONE|SSN|DATE)\b`)

type nameLineBreak struct{}

func (nameLineBreak) Name() string { return "NameLineBreak" }
func (nameLineBreak) ShouldKeep(text string, s *span.Span) bool {
	if s.FilterType != span.Name {
		return true
	}
	return !labelLikeTokens.MatchString(s.Text)
}

var medicalPhrases = []string{
	"parkinson's disease", "alzheimer's disease", "crohn's disease",
	"hodgkin's lymphoma", "down syndrome",
}

type medicalPhrase struct{}

func (medicalPhrase) Name() string { return "MedicalPhrase" }
func (medicalPhrase) ShouldKeep(text string, s *span.Span) bool {
	if s.FilterType != span.Name {
		return true
	}
	lower := strings.ToLower(s.Text)
	for _, p := range medicalPhrases {
		if lower == p {
			return false
		}
	}
	return true
}

var medicalSuffixes = []string{
	"health", "hospital", "clinic", "disease", "syndrome", "center", "medical",
}

type medicalSuffix struct{}

func (medicalSuffix) Name() string { return "MedicalSuffix" }
func (medicalSuffix) ShouldKeep(text string, s *span.Span) bool {
	if s.FilterType != span.Name {
		return true
	}
	last := strings.ToLower(lastWord(s.Text))
	for _, suf := range medicalSuffixes {
		if last == suf {
			return false
		}
	}
	return true
}

var geographicTerms = []string{
	"street", "avenue", "boulevard", "county", "river", "lake", "mountain",
}

type geographicTerm struct{}

func (geographicTerm) Name() string { return "GeographicTerm" }
func (geographicTerm) ShouldKeep(text string, s *span.Span) bool {
	if s.FilterType != span.Name {
		return true
	}
	lower := strings.ToLower(s.Text)
	for _, term := range geographicTerms {
		if strings.Contains(lower, term) {
			return false
		}
	}
	return true
}

var fieldLabels = []string{
	"patient", "dob", "mrn", "phone", "ssn", "address", "file #",
}

type fieldLabel struct{}

func (fieldLabel) Name() string { return "FieldLabel" }
func (fieldLabel) ShouldKeep(text string, s *span.Span) bool {
	if s.FilterType != span.Name {
		return true
	}
	lower := strings.ToLower(strings.TrimSpace(s.Text))
	for _, l := range fieldLabels {
		if lower == l {
			return false
		}
	}
	return true
}

func firstWord(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return strings.Trim(fields[0], ".,;:")
}

func lastWord(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return strings.Trim(fields[len(fields)-1], ".,;:")
}
