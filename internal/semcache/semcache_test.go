package semcache

import (
	"strings"
	"testing"

	"github.com/DocHatty/vulpes-celare/internal/span"
)

func longEnough(s string) string {
	for len(s) < MinEligibleLength {
		s += " filler"
	}
	return s
}

func TestExactHitRoundTrips(t *testing.T) {
	svc := NewService(NewMemoryStore())
	pool := span.NewPool()

	text := longEnough("PATIENT: John Smith, DOB 01/02/1980, MRN 12345.")
	spans := []*span.Span{
		{Text: "John Smith", CharacterStart: 9, CharacterEnd: 19, FilterType: span.Name, Confidence: 0.9},
	}

	if err := svc.Store(text, "policy-v1", "ADMISSION_NOTE", spans); err != nil {
		t.Fatalf("store: %v", err)
	}

	got, report := svc.Lookup(text, "policy-v1", "ADMISSION_NOTE", pool)
	if !report.Hit || report.HitType != HitExact {
		t.Fatalf("expected exact hit, got %+v", report)
	}
	if len(got) != 1 || got[0].FilterType != span.Name {
		t.Errorf("expected rehydrated NAME span, got %+v", got)
	}
}

func TestMissOnUnseenText(t *testing.T) {
	svc := NewService(NewMemoryStore())
	pool := span.NewPool()
	text := longEnough("never stored before")
	_, report := svc.Lookup(text, "policy-v1", "ADMISSION_NOTE", pool)
	if report.Hit {
		t.Errorf("expected miss on unseen text")
	}
}

func TestIneligibleShortTextNeverCached(t *testing.T) {
	svc := NewService(NewMemoryStore())
	pool := span.NewPool()
	text := "short"
	if err := svc.Store(text, "policy-v1", "ADMISSION_NOTE", nil); err != nil {
		t.Fatalf("store: %v", err)
	}
	_, report := svc.Lookup(text, "policy-v1", "ADMISSION_NOTE", pool)
	if report.Hit {
		t.Errorf("expected short text never cached")
	}
}

func TestStructuralHitOnSimilarDocument(t *testing.T) {
	svc := NewService(NewMemoryStore())
	pool := span.NewPool()

	original := longEnough("ADMISSION NOTE\nPATIENT: Jane Doe, DOB 03/04/1975, seen for evaluation today.")
	spans := []*span.Span{
		{Text: "Jane Doe", CharacterStart: 24, CharacterEnd: 32, FilterType: span.Name, Confidence: 0.9},
	}
	if err := svc.Store(original, "policy-v1", "ADMISSION_NOTE", spans); err != nil {
		t.Fatalf("store: %v", err)
	}

	// A near-duplicate: same shape, tiny wording change, so the exact key
	// misses but the structural fingerprint/shingle check should hit.
	similar := strings.Replace(original, "evaluation today", "evaluation todays", 1)
	got, report := svc.Lookup(similar, "policy-v1", "ADMISSION_NOTE", pool)
	if !report.Hit || report.HitType != HitStructural {
		t.Fatalf("expected structural hit, got %+v", report)
	}
	if len(got) != 1 {
		t.Errorf("expected rehydrated span from structural hit")
	}
}

func TestStructuralMissBelowSimilarityThreshold(t *testing.T) {
	svc := NewService(NewMemoryStore())
	pool := span.NewPool()

	original := longEnough("ADMISSION NOTE\nPATIENT: Jane Doe, DOB 03/04/1975, seen for evaluation today.")
	if err := svc.Store(original, "policy-v1", "ADMISSION_NOTE", nil); err != nil {
		t.Fatalf("store: %v", err)
	}

	unrelated := longEnough("ADMISSION NOTE\nfully different body text that shares almost nothing with the original content stored above, on purpose.")
	_, report := svc.Lookup(unrelated, "policy-v1", "ADMISSION_NOTE", pool)
	if report.Hit {
		t.Errorf("expected structural miss for dissimilar document, got %+v", report)
	}
}

func TestJaccardShingleSimilarityIdentical(t *testing.T) {
	if got := JaccardShingleSimilarity("hello world", "hello world", 3); got != 1 {
		t.Errorf("expected identical strings to have similarity 1, got %f", got)
	}
}

func TestJaccardShingleSimilarityDisjoint(t *testing.T) {
	got := JaccardShingleSimilarity("aaaaaaaa", "zzzzzzzz", 3)
	if got != 0 {
		t.Errorf("expected disjoint strings to have similarity 0, got %f", got)
	}
}
