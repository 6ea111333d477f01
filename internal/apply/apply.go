// Package apply implements the apply kernel (spec §4.11, C12): the final
// step that turns a resolved, filtered span set into redacted output text,
// substituting each span's original text with a token and recording the
// reverse mapping needed to de-identify (or, for authorized callers,
// restore) the output later.
//
// Grounded on the teacher's internal/anonymizer/anonymizer.go: the
// sessions/sessionMu bijective token-map pair and the replacement()
// token-format idiom are reused wholesale, generalized from a single
// fixed "[PII_<TYPE>_<8hex>]" notation to the two token syntaxes spec.md
// §6 calls out (sequential counter or stable hash).
package apply

import (
	"crypto/md5" // #nosec G501 -- MD5 used for deterministic, collision-tolerant tokens, not cryptographic security
	"fmt"
	"sort"
	"strings"

	"github.com/DocHatty/vulpes-celare/internal/span"
)

// TokenStyle selects how a span's replacement token is derived.
type TokenStyle int

const (
	// TokenStyleCounter produces "[{TYPE}_{n}]", n an incrementing
	// per-document-per-type counter — stable and short, but not
	// deterministic across documents with the same value.
	TokenStyleCounter TokenStyle = iota

	// TokenStyleHash produces "[{TYPE}_{hash12}]", a 12-hex-char MD5
	// digest of the original text — deterministic: the same original
	// value always maps to the same token within a document, which lets
	// repeated values (e.g. a patient name mentioned ten times) collapse
	// onto one token in TokenManager's reverse map.
	TokenStyleHash
)

// Result is the outcome of one Apply call.
type Result struct {
	Text         string
	AppliedSpans []*span.Span
	TokenMap     map[string]string // token -> original text
}

// Apply substitutes each span's text in doc with its token, in a single
// right-to-left pass over a reverse-sorted (by start, descending) span
// list so earlier replacements never invalidate the offsets of spans not
// yet applied. Overlapping spans must already have been resolved
// (internal/overlap) before calling Apply; Apply itself does not re-check
// for overlaps.
func Apply(doc string, spans []*span.Span, style TokenStyle, tm *TokenManager, sessionID string) Result {
	ordered := make([]*span.Span, len(spans))
	copy(ordered, spans)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].CharacterStart > ordered[j].CharacterStart
	})

	counters := make(map[span.FilterType]int)
	tokenMap := make(map[string]string, len(ordered))

	result := doc
	applied := make([]*span.Span, 0, len(ordered))
	for _, s := range ordered {
		if s.CharacterStart < 0 || s.CharacterEnd > len(result) || s.CharacterStart >= s.CharacterEnd {
			continue // stale or invalid offsets; skip rather than corrupt the document
		}

		original := result[s.CharacterStart:s.CharacterEnd]
		token := tokenFor(s.FilterType, original, style, counters)

		result = result[:s.CharacterStart] + token + result[s.CharacterEnd:]

		s.Applied = true
		s.Replacement = token
		applied = append(applied, s)
		tokenMap[token] = original

		if tm != nil && sessionID != "" {
			tm.Record(sessionID, token, original)
		}
	}

	// Restore original ordering (by ascending start) for the caller's
	// execution report.
	sort.Slice(applied, func(i, j int) bool {
		return applied[i].CharacterStart < applied[j].CharacterStart
	})

	return Result{Text: result, AppliedSpans: applied, TokenMap: tokenMap}
}

func tokenFor(ft span.FilterType, original string, style TokenStyle, counters map[span.FilterType]int) string {
	switch style {
	case TokenStyleHash:
		h := fmt.Sprintf("%x", md5.Sum([]byte(original)))[:12] // #nosec G401 -- deterministic token, not crypto
		return fmt.Sprintf("[%s_%s]", strings.ToUpper(string(ft)), h)
	default:
		counters[ft]++
		return fmt.Sprintf("[%s_%d]", strings.ToUpper(string(ft)), counters[ft])
	}
}

// Deidentify reverses Apply: every token recorded for sessionID in text is
// replaced back with its original value.
func Deidentify(text string, tm *TokenManager, sessionID string) string {
	if sessionID == "" || text == "" || tm == nil {
		return text
	}
	tokenMap := tm.Snapshot(sessionID)
	result := text
	for token, original := range tokenMap {
		result = strings.ReplaceAll(result, token, original)
	}
	return result
}
