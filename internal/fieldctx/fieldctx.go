// Package fieldctx implements the field-context pre-pass (spec §4.3): a
// single scan of the input that finds "LABEL: VALUE"-shaped lines and
// records the expected filter types for whatever follows the label, plus
// two derived emitters for multi-line patient names and multi-line file
// numbers.
//
// Grounded on the teacher's compilePatterns/pattern{re, piiType,
// confidence} idiom: a declarative table compiled once at package init.
package fieldctx

import (
	"regexp"
	"strings"

	"github.com/DocHatty/vulpes-celare/internal/span"
)

// FieldContext records a label and the filter types expected to follow it.
type FieldContext struct {
	LabelSpan     string
	ExpectedTypes []span.FilterType
	ValueStart    int
	ValueEnd      int
}

// labelEntry is one row of the fixed label -> expected-type table.
type labelEntry struct {
	label string
	types []span.FilterType
}

var labelTable = []labelEntry{
	{"PATIENT", []span.FilterType{span.Name}},
	{"NAME", []span.FilterType{span.Name}},
	{"DOB", []span.FilterType{span.Date}},
	{"DATE OF BIRTH", []span.FilterType{span.Date}},
	{"ADMITTED", []span.FilterType{span.Date}},
	{"DISCHARGE DATE", []span.FilterType{span.Date}},
	{"FILE #", []span.FilterType{span.MRN}},
	{"MRN", []span.FilterType{span.MRN}},
	{"MEDICAL RECORD", []span.FilterType{span.MRN}},
	{"PHONE", []span.FilterType{span.Phone}},
	{"TEL", []span.FilterType{span.Phone}},
	{"FAX", []span.FilterType{span.Fax}},
	{"EMAIL", []span.FilterType{span.Email}},
	{"ADDRESS", []span.FilterType{span.Address}},
	{"SSN", []span.FilterType{span.SSN}},
	{"ZIP", []span.FilterType{span.Zip}},
	{"AGE", []span.FilterType{span.Age}},
}

// labelLine matches "LABEL<sep>VALUE" where sep is a colon, tab, or 2+
// spaces, per spec §4.3 ("LABEL[:|\t|\s{2,}]VALUE").
var labelLine = regexp.MustCompile(`(?m)^[ \t]*([A-Za-z][A-Za-z #]{1,20}?)[ \t]*(?::|\t|  +)[ \t]*(.*)$`)

// multiLineName detects a well-formed two-or-three-word name on its own line.
var multiLineName = regexp.MustCompile(`^[A-Z][a-zA-Z'-]+(?: [A-Z][a-zA-Z'-]+){1,2}$`)

// labeledNameValue detects a two-or-three-word name value, title-case or
// ALL-CAPS, directly following a PATIENT/NAME label on the same line (spec
// §8 scenario 1's "PATIENT: JOHN SMITH" — ALL-CAPS, so no example NAME
// detector pattern matches it; the label is the only signal).
var labeledNameValue = regexp.MustCompile(`^[A-Za-z][A-Za-z'-]+(?: [A-Za-z][A-Za-z'-]+){1,2}$`)

// columnarDigits matches a run of digits standing alone elsewhere on a line,
// used by the multi-line FILE # emitter.
var columnarDigits = regexp.MustCompile(`\b\d{4,10}\b`)

// Result is the output of Scan: the discovered FieldContexts and any
// derived spans (labeled NAME, multi-line NAME / FILE #). Derived MRN spans
// additionally carry the offsets of any ZIP span they should suppress via
// DeleteZIPAt.
type Result struct {
	Contexts     []FieldContext
	DerivedSpans []*span.Span
	// DeleteZIPAt lists offset pairs where a competing ZIP span must be
	// removed before overlap resolution — MRN wins by design (spec §4.3).
	DeleteZIPAt [][2]int
}

// Scan runs the pre-pass described in spec §4.3.
func Scan(text string) Result {
	var res Result

	lines := splitLinesWithOffsets(text)

	for _, m := range labelLine.FindAllStringSubmatchIndex(text, -1) {
		labelStart, labelEnd := m[2], m[3]
		valueStart, valueEnd := m[4], m[5]
		label := strings.ToUpper(strings.TrimSpace(text[labelStart:labelEnd]))

		entry, ok := lookupLabel(label)
		if !ok {
			continue
		}
		res.Contexts = append(res.Contexts, FieldContext{
			LabelSpan:     text[labelStart:labelEnd],
			ExpectedTypes: entry.types,
			ValueStart:    valueStart,
			ValueEnd:      valueEnd,
		})
	}

	scanLabeledNameValue(text, &res)
	scanMultiLineName(lines, &res)
	scanMultiLineFileNumber(text, lines, &res)

	return res
}

// scanLabeledNameValue implements the "Labeled name field" carve-out (spec
// §4.4 rule 4): a PATIENT/NAME label followed on the same line by a
// well-formed name value, title-case or ALL-CAPS, is emitted as a NAME
// span at confidence 0.95 regardless of what (if anything) an actual NAME
// detector found there — that confidence is the whitelist chain's own
// signal to never drop it.
func scanLabeledNameValue(text string, res *Result) {
	for _, m := range labelLine.FindAllStringSubmatchIndex(text, -1) {
		labelStart, labelEnd := m[2], m[3]
		valueStart, valueEnd := m[4], m[5]
		label := strings.ToUpper(strings.TrimSpace(text[labelStart:labelEnd]))
		if label != "PATIENT" && label != "NAME" {
			continue
		}
		trimmed := strings.TrimRight(text[valueStart:valueEnd], " \t\r")
		if !labeledNameValue.MatchString(trimmed) {
			continue
		}
		end := valueStart + len(trimmed)
		res.DerivedSpans = append(res.DerivedSpans, &span.Span{
			Text:           trimmed,
			CharacterStart: valueStart,
			CharacterEnd:   end,
			FilterType:     span.Name,
			Confidence:     0.95,
			Priority:       100,
			Pattern:        "Labeled name field",
		})
	}
}

func lookupLabel(label string) (labelEntry, bool) {
	for _, e := range labelTable {
		if e.label == label {
			return e, true
		}
	}
	return labelEntry{}, false
}

type lineInfo struct {
	text  string
	start int
	end   int
}

func splitLinesWithOffsets(text string) []lineInfo {
	var lines []lineInfo
	start := 0
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			lines = append(lines, lineInfo{text: text[start:i], start: start, end: i})
			start = i + 1
		}
	}
	lines = append(lines, lineInfo{text: text[start:], start: start, end: len(text)})
	return lines
}

// scanMultiLineName implements: "when a NAME label ends a line and the next
// non-empty line is a well-formed name, emit a NAME span with priority 100".
func scanMultiLineName(lines []lineInfo, res *Result) {
	for i, ln := range lines {
		trimmed := strings.TrimSpace(ln.text)
		upper := strings.ToUpper(trimmed)
		if !strings.HasSuffix(upper, "PATIENT") && !strings.HasSuffix(upper, "NAME") {
			continue
		}
		for j := i + 1; j < len(lines); j++ {
			candidate := strings.TrimSpace(lines[j].text)
			if candidate == "" {
				continue
			}
			if multiLineName.MatchString(candidate) {
				offset := strings.Index(lines[j].text, candidate)
				start := lines[j].start + offset
				end := start + len(candidate)
				res.DerivedSpans = append(res.DerivedSpans, &span.Span{
					Text:           candidate,
					CharacterStart: start,
					CharacterEnd:   end,
					FilterType:     span.Name,
					Confidence:     0.9,
					Priority:       100,
					Pattern:        "Multi-line patient name",
				})
			}
			break
		}
	}
}

// scanMultiLineFileNumber implements: "when a FILE # label is followed by a
// columnar numeric value elsewhere on the line, emit an MRN span with
// priority 100 and delete any ZIP span covering the same offsets."
func scanMultiLineFileNumber(text string, lines []lineInfo, res *Result) {
	for _, ln := range lines {
		upper := strings.ToUpper(ln.text)
		idx := strings.Index(upper, "FILE #")
		if idx < 0 {
			continue
		}
		rest := ln.text[idx+len("FILE #"):]
		loc := columnarDigits.FindStringIndex(rest)
		if loc == nil {
			continue
		}
		start := ln.start + idx + len("FILE #") + loc[0]
		end := ln.start + idx + len("FILE #") + loc[1]
		res.DerivedSpans = append(res.DerivedSpans, &span.Span{
			Text:           text[start:end],
			CharacterStart: start,
			CharacterEnd:   end,
			FilterType:     span.MRN,
			Confidence:     0.9,
			Priority:       100,
			Pattern:        "Multi-line FILE #",
		})
		res.DeleteZIPAt = append(res.DeleteZIPAt, [2]int{start, end})
	}
}

// ApplyExpectations adjusts s.Confidence and s.Priority when s overlaps a
// FieldContext, per spec §4.3: a matching expected type multiplies
// confidence by 1.15 (capped at 1.0) and raises priority to at least 90; a
// conflicting type with confidence < 0.70 multiplies confidence by 0.80
// (never dropped here).
func ApplyExpectations(s *span.Span, contexts []FieldContext) {
	for _, fc := range contexts {
		if s.CharacterStart >= fc.ValueEnd || fc.ValueStart >= s.CharacterEnd {
			continue // no overlap with the labeled value region
		}
		if typeExpected(s.FilterType, fc.ExpectedTypes) {
			s.Confidence *= 1.15
			if s.Confidence > 1.0 {
				s.Confidence = 1.0
			}
			if s.Priority < 90 {
				s.Priority = 90
			}
		} else if s.Confidence < 0.70 {
			s.Confidence *= 0.80
		}
	}
}

func typeExpected(t span.FilterType, expected []span.FilterType) bool {
	for _, e := range expected {
		if e == t {
			return true
		}
	}
	return false
}

// DeleteZIPsAt removes ZIP spans whose offsets exactly match any pair
// recorded in deleteAt, per the "MRN wins by design" rule.
func DeleteZIPsAt(spans []*span.Span, deleteAt [][2]int) []*span.Span {
	if len(deleteAt) == 0 {
		return spans
	}
	kept := spans[:0]
	for _, s := range spans {
		drop := false
		if s.FilterType == span.Zip {
			for _, pair := range deleteAt {
				if s.CharacterStart == pair[0] && s.CharacterEnd == pair[1] {
					drop = true
					break
				}
			}
		}
		if !drop {
			kept = append(kept, s)
		}
	}
	return kept
}
