// Package disambiguate implements the disambiguator (spec §4.7, C7):
// resolving spans with more than one candidate filter type by comparing a
// hashed feature vector of the span's text and window against per-type
// prototype vectors, picking the highest-similarity candidate.
//
// Vectors are small (<=64-dim) hashed bag-of-words over text + window
// tokens via FNV — a "hashing trick" — grounded on the teacher's
// deterministic-hash idiom (md5 truncation in Anonymizer.replacement)
// applied here to feature hashing instead of token generation.
//
// A full vector-database client (weaviate-go-client, present elsewhere in
// the retrieval pack) was considered and rejected: this component resolves
// spans fully in-process and synchronously, and spec §1 places network
// transport out of scope; a network round trip per ambiguous span is not
// among the suspension points spec §5 enumerates.
package disambiguate

import (
	"hash/fnv"
	"math"
	"strings"

	"github.com/DocHatty/vulpes-celare/internal/span"
)

// VectorDims is the fixed dimensionality of hashed feature vectors.
const VectorDims = 64

// Prototypes maps a candidate filter type to its prototype feature vector,
// learned offline and supplied by the caller (training prototype vectors is
// out of scope per spec §1's ML Non-goal).
type Prototypes map[span.FilterType][]float64

// Resolve disambiguates every span in spans whose AmbiguousWith is
// non-empty: it computes text+window features, scores cosine similarity
// against each candidate type's prototype (including the span's current
// FilterType), reassigns FilterType to the best match, and clears
// AmbiguousWith. Spans with no candidates, or no matching prototypes, are
// left unresolved (AmbiguousWith is cleared regardless, per spec §4.6.3
// "keep the span").
func Resolve(spans []*span.Span, prototypes Prototypes) {
	for _, s := range spans {
		if len(s.AmbiguousWith) == 0 {
			continue
		}
		resolveOne(s, prototypes)
	}
}

func resolveOne(s *span.Span, prototypes Prototypes) {
	vec := featureVector(s.Text, s.Window)

	candidates := append([]span.FilterType{s.FilterType}, s.AmbiguousWith...)
	bestType := s.FilterType
	bestScore := math.Inf(-1)

	for _, c := range candidates {
		proto, ok := prototypes[c]
		if !ok {
			continue
		}
		score := cosineSimilarity(vec, proto)
		if score > bestScore {
			bestScore = score
			bestType = c
		}
	}

	s.FilterType = bestType
	s.AmbiguousWith = nil
}

// featureVector builds a hashed bag-of-words vector from text and window
// tokens, using FNV-1a to hash each token into one of VectorDims buckets.
func featureVector(text string, window []string) []float64 {
	vec := make([]float64, VectorDims)
	add := func(tok string) {
		tok = strings.ToLower(strings.TrimSpace(tok))
		if tok == "" {
			return
		}
		h := fnv.New32a()
		_, _ = h.Write([]byte(tok))
		bucket := int(h.Sum32() % uint32(VectorDims))
		vec[bucket]++
	}
	for _, tok := range strings.Fields(text) {
		add(tok)
	}
	for _, tok := range window {
		add(tok)
	}
	return vec
}

func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) {
		return -1
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
