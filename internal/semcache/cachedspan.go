// Package semcache implements the semantic cache (spec §4.10, C11): a
// two-tier (exact + structural) cache that can short-circuit the whole
// redaction pipeline on a text match.
//
// This is the most direct reuse of teacher code: the teacher's three-file
// cache stack (cache.go's PersistentCache interface + memoryCache +
// bboltCache, and s3fifo_cache.go's S3-FIFO in-memory eviction layer) is
// adapted wholesale from "original PII value -> token" caching to
// "document exact/structural key -> serialized applied-span-set" caching.
package semcache

import (
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"strings"

	"github.com/DocHatty/vulpes-celare/internal/span"
)

// DefaultCapacity is the default number of entries held in the S3-FIFO
// in-memory layer (renamed from the teacher's defaultCacheCapacity).
const DefaultCapacity = 5000

// MinEligibleLength is the minimum document length eligible for caching
// (spec §4.10: "only documents >= 50 chars are eligible").
const MinEligibleLength = 50

// CachedSpan is the minimal, PHI-free projection of a Span persisted by
// the cache: offsets and classification only. Deliberately not the full
// Span — text/window are re-derived from the current input at apply time,
// so the cache never persists a redacted document or original PHI
// substring to disk (spec §1 Non-goal: "persistent storage of
// redactions").
type CachedSpan struct {
	Start      int
	End        int
	FilterType span.FilterType
	Confidence float64
	Pattern    string
	Priority   int
}

func init() {
	gob.Register(CachedSpan{})
}

// ToCachedSpans projects a []*span.Span down to its cacheable form.
func ToCachedSpans(spans []*span.Span) []CachedSpan {
	out := make([]CachedSpan, len(spans))
	for i, s := range spans {
		out[i] = CachedSpan{
			Start:      s.CharacterStart,
			End:        s.CharacterEnd,
			FilterType: s.FilterType,
			Confidence: s.Confidence,
			Pattern:    s.Pattern,
			Priority:   s.Priority,
		}
	}
	return out
}

// Rehydrate re-derives full Spans from cached offsets against the current
// input text, acquiring each from pool.
func Rehydrate(cached []CachedSpan, text string, pool *span.Pool) []*span.Span {
	out := make([]*span.Span, 0, len(cached))
	for _, c := range cached {
		if c.Start < 0 || c.End > len(text) || c.Start >= c.End {
			continue // offsets no longer valid against this input
		}
		s := pool.Acquire()
		s.Text = text[c.Start:c.End]
		s.CharacterStart = c.Start
		s.CharacterEnd = c.End
		s.FilterType = c.FilterType
		s.Confidence = c.Confidence
		s.Pattern = c.Pattern
		s.Priority = c.Priority
		out = append(out, s)
	}
	return out
}

// ExactKey computes the SHA-256 hex digest of (text, policyHash), the
// exact-tier cache key (spec §4.10).
func ExactKey(text, policyHash string) string {
	h := sha256.New()
	h.Write([]byte(text))
	h.Write([]byte{0})
	h.Write([]byte(policyHash))
	return hex.EncodeToString(h.Sum(nil))
}

// lengthBucket buckets document length into coarse bands for the
// structural fingerprint.
func lengthBucket(n int) string {
	switch {
	case n < 200:
		return "xs"
	case n < 1000:
		return "s"
	case n < 5000:
		return "m"
	case n < 20000:
		return "l"
	default:
		return "xl"
	}
}

// StructuralFingerprint computes a normalized fingerprint: a guessed
// document type, a section-header layout signature, and a length bucket
// (spec §4.10).
func StructuralFingerprint(text, documentType string) string {
	return strings.Join([]string{
		strings.ToUpper(documentType),
		headerSignature(text),
		lengthBucket(len(text)),
	}, "|")
}

// headerSignature builds a short signature from the sequence of ALL-CAPS
// lines (candidate section headers) in text.
func headerSignature(text string) string {
	var sig strings.Builder
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || len(trimmed) < 3 {
			continue
		}
		if strings.ToUpper(trimmed) == trimmed {
			if sig.Len() > 0 {
				sig.WriteByte('/')
			}
			// Use only the first two words to keep the signature stable
			// across minor header text edits.
			words := strings.Fields(trimmed)
			n := 2
			if len(words) < n {
				n = len(words)
			}
			sig.WriteString(strings.Join(words[:n], "_"))
			if sig.Len() > 120 {
				break
			}
		}
	}
	if sig.Len() == 0 {
		return "no-headers"
	}
	return sig.String()
}

// JaccardShingleSimilarity computes Jaccard similarity over character
// k-shingles of a and b, used by the structural tier to validate that a
// candidate cached document is actually similar enough to reuse (spec
// §4.10). No trigram-index library appears anywhere in the corpus; a
// direct shingle-set computation is the stdlib-only option, justified in
// DESIGN.md.
func JaccardShingleSimilarity(a, b string, k int) float64 {
	sa := shingles(a, k)
	sb := shingles(b, k)
	if len(sa) == 0 && len(sb) == 0 {
		return 1
	}
	if len(sa) == 0 || len(sb) == 0 {
		return 0
	}
	intersection := 0
	for s := range sa {
		if _, ok := sb[s]; ok {
			intersection++
		}
	}
	union := len(sa) + len(sb) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// shingles returns the set of k-shingles of s. Each shingle is stored as a
// truncated SHA-256 digest, so the set holds no substring of s.
func shingles(s string, k int) map[string]struct{} {
	set := make(map[string]struct{})
	add := func(sh string) {
		sum := sha256.Sum256([]byte(sh))
		set[string(sum[:8])] = struct{}{}
	}
	if len(s) < k {
		if s != "" {
			add(s)
		}
		return set
	}
	for i := 0; i+k <= len(s); i++ {
		add(s[i : i+k])
	}
	return set
}
