// Package window implements the window service (spec §4.5): for each span
// it records up to K tokens immediately before and after, stopping at
// sentence boundaries, and attaches them to the span for later scoring.
package window

import (
	"strings"
	"unicode"

	"github.com/DocHatty/vulpes-celare/internal/span"
)

// DefaultK is the default number of context tokens captured on each side.
const DefaultK = 6

// token is a word-like run together with its byte offsets in the source text.
type token struct {
	text       string
	start, end int
}

// Attach computes and assigns the left/right context window for every span
// in spans, given the full input text. Spans are expected to already carry
// correct CharacterStart/CharacterEnd offsets into text.
//
// spec §4.5 describes the window as "a lazy sequence ... attached to the
// span". Go has no native lazy sequence primitive and the testable
// properties require window content to be stable once observed, so the
// window is materialized eagerly here and simply assigned to span.Window —
// functionally a memoized lazy sequence with the laziness realized at
// construction time instead of first access.
func Attach(text string, spans []*span.Span) {
	AttachK(text, spans, DefaultK)
}

// AttachK is Attach with an explicit K.
func AttachK(text string, spans []*span.Span, k int) {
	toks := tokenize(text)
	for _, s := range spans {
		s.Window = windowFor(toks, s.CharacterStart, s.CharacterEnd, k)
	}
}

// tokenize splits text into whitespace-delimited word tokens. Punctuation
// stays attached to its token, so isSentenceBoundary can spot a sentence end.
func tokenize(text string) []token {
	var toks []token
	start := -1
	for i, r := range text {
		if unicode.IsSpace(r) {
			if start >= 0 {
				toks = append(toks, token{text: text[start:i], start: start, end: i})
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		toks = append(toks, token{text: text[start:], start: start, end: len(text)})
	}
	return toks
}

func isSentenceBoundary(tok string) bool {
	t := strings.TrimSpace(tok)
	if t == "" {
		return false
	}
	last := t[len(t)-1]
	return last == '.' || last == '!' || last == '?'
}

// windowFor finds the tokens surrounding [start, end) in toks and returns up
// to k tokens before and k after, stopping early at a sentence boundary.
func windowFor(toks []token, start, end, k int) []string {
	// Locate the index range of tokens that the span itself covers, so we
	// know where "before" stops and "after" begins.
	firstInside, lastInside := -1, -1
	for i, tk := range toks {
		if tk.end <= start {
			continue
		}
		if tk.start >= end {
			break
		}
		if firstInside == -1 {
			firstInside = i
		}
		lastInside = i
	}
	if firstInside == -1 {
		// Span falls between tokens (e.g. pure punctuation); locate the
		// nearest boundary indices by position instead.
		for i, tk := range toks {
			if tk.start >= start {
				firstInside = i
				lastInside = i - 1
				break
			}
		}
		if firstInside == -1 {
			firstInside = len(toks)
			lastInside = len(toks) - 1
		}
	}

	var before []string
	for i := firstInside - 1; i >= 0 && len(before) < k; i-- {
		// A token ending in sentence punctuation closes the previous
		// sentence, so the left window stops before it.
		if isSentenceBoundary(toks[i].text) {
			break
		}
		before = append([]string{toks[i].text}, before...)
	}

	var after []string
	for i := lastInside + 1; i < len(toks) && len(after) < k; i++ {
		after = append(after, toks[i].text)
		if isSentenceBoundary(toks[i].text) {
			break
		}
	}

	out := make([]string, 0, len(before)+len(after))
	out = append(out, before...)
	out = append(out, after...)
	return out
}
