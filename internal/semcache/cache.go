// Package semcache (cache.go) — the two-tier Service on top of Store: an
// exact lookup keyed on (text, policy) and, on exact miss, a structural
// lookup keyed on a normalized document fingerprint, validated by a
// shingle-similarity check before being accepted (spec §4.10).
package semcache

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/DocHatty/vulpes-celare/internal/span"
)

const (
	exactPrefix = "exact:"
	structPrefix = "struct:"
)

// structuralMinSimilarity is the minimum Jaccard shingle similarity
// against the fingerprint-matched candidate's stored text required before
// a structural hit is accepted (spec §4.10: "validated by similarity").
const structuralMinSimilarity = 0.85

// maxStructuralCandidates bounds how many exact keys are retained per
// structural fingerprint bucket.
const maxStructuralCandidates = 8

// shingleSize is the k-gram size used for structural-tier validation.
const shingleSize = 5

// HitType distinguishes how a cache lookup was satisfied.
type HitType string

const (
	HitNone       HitType = "NONE"
	HitExact      HitType = "EXACT"
	HitStructural HitType = "STRUCTURAL"
)

// Report is what the orchestrator records for one cache lookup (spec
// §4.10: "hit, hit_type, confidence, lookup_ms").
type Report struct {
	Hit        bool
	HitType    HitType
	Confidence float64
	LookupMs   float64
}

// structuralEntry is the gob payload stored under an exact key, carrying
// enough of the original text to validate future structural candidates
// without ever persisting PHI: only a set of shingle digests, never raw text.
type structuralEntry struct {
	Spans     []CachedSpan
	Shingles  map[string]struct{}
	TextLen   int
}

func init() {
	gob.Register(structuralEntry{})
}

// Service is the semantic cache service. One Service instance wraps one
// Store (typically an S3-FIFO layer over a bbolt-backed Store) and
// deduplicates concurrent identical lookups via singleflight, grounded on
// the teacher's async-Ollama-call dedup concerns in the anonymizer package.
type Service struct {
	store Store
	sf    singleflight.Group
}

// NewService wraps store in a Service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Eligible reports whether text is long enough to be worth caching (spec
// §4.10: documents under MinEligibleLength are never looked up or stored).
func Eligible(text string) bool {
	return len(text) >= MinEligibleLength
}

// Lookup attempts an exact hit, falling back to a structural hit. pool is
// used to rehydrate cached spans against the current text.
func (s *Service) Lookup(text, policyHash, documentType string, pool *span.Pool) ([]*span.Span, Report) {
	start := time.Now()
	if !Eligible(text) {
		return nil, Report{Hit: false, HitType: HitNone, LookupMs: msSince(start)}
	}

	ek := exactPrefix + ExactKey(text, policyHash)
	if raw, ok := s.store.Get(ek); ok {
		var entry structuralEntry
		if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&entry); err == nil {
			return Rehydrate(entry.Spans, text, pool), Report{
				Hit: true, HitType: HitExact, Confidence: 1.0, LookupMs: msSince(start),
			}
		}
	}

	fp := structPrefix + StructuralFingerprint(text, documentType)
	if raw, ok := s.store.Get(fp); ok {
		var candidates []string
		if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&candidates); err == nil {
			mine := shingles(text, shingleSize)
			for _, candidateKey := range candidates {
				candRaw, ok := s.store.Get(candidateKey)
				if !ok {
					continue
				}
				var entry structuralEntry
				if err := gob.NewDecoder(bytes.NewReader(candRaw)).Decode(&entry); err != nil {
					continue
				}
				sim := jaccardOfSets(mine, entry.Shingles)
				if sim >= structuralMinSimilarity {
					return Rehydrate(entry.Spans, text, pool), Report{
						Hit: true, HitType: HitStructural, Confidence: sim, LookupMs: msSince(start),
					}
				}
			}
		}
	}

	return nil, Report{Hit: false, HitType: HitNone, LookupMs: msSince(start)}
}

// LookupSingleflight is Lookup, but concurrent callers racing on the same
// (text, policyHash) collapse into a single Store round trip.
func (s *Service) LookupSingleflight(text, policyHash, documentType string, pool *span.Pool) ([]*span.Span, Report) {
	if !Eligible(text) {
		return nil, Report{Hit: false, HitType: HitNone}
	}
	ek := exactPrefix + ExactKey(text, policyHash)
	v, err, _ := s.sf.Do(ek, func() (interface{}, error) {
		cached, report := s.Lookup(text, policyHash, documentType, pool)
		return lookupResult{cached: ToCachedSpans(cached), report: report}, nil
	})
	if err != nil {
		return nil, Report{Hit: false, HitType: HitNone}
	}
	res := v.(lookupResult)
	return Rehydrate(res.cached, text, pool), res.report
}

type lookupResult struct {
	cached []CachedSpan
	report Report
}

// Store persists spans under both the exact key and the structural
// fingerprint bucket for text (spec §4.10).
func (s *Service) Store(text, policyHash, documentType string, spans []*span.Span) error {
	if !Eligible(text) {
		return nil
	}

	entry := structuralEntry{
		Spans:    ToCachedSpans(spans),
		Shingles: shingles(text, shingleSize),
		TextLen:  len(text),
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(entry); err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	ek := exactPrefix + ExactKey(text, policyHash)
	s.store.Set(ek, buf.Bytes())

	fp := structPrefix + StructuralFingerprint(text, documentType)
	var candidates []string
	if raw, ok := s.store.Get(fp); ok {
		_ = gob.NewDecoder(bytes.NewReader(raw)).Decode(&candidates)
	}
	candidates = appendCandidate(candidates, ek, maxStructuralCandidates)
	var cbuf bytes.Buffer
	if err := gob.NewEncoder(&cbuf).Encode(candidates); err != nil {
		return fmt.Errorf("encode structural candidates: %w", err)
	}
	s.store.Set(fp, cbuf.Bytes())
	return nil
}

// Close releases the underlying Store's resources.
func (s *Service) Close() error {
	return s.store.Close()
}

func appendCandidate(existing []string, key string, max int) []string {
	for _, k := range existing {
		if k == key {
			return existing
		}
	}
	existing = append(existing, key)
	if len(existing) > max {
		existing = existing[len(existing)-max:]
	}
	return existing
}

func jaccardOfSets(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := 0
	for s := range a {
		if _, ok := b[s]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func msSince(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}
