package overlap

import (
	"testing"

	"github.com/DocHatty/vulpes-celare/internal/span"
)

func TestResolvePriorityWins(t *testing.T) {
	pool := span.NewPool()
	low := &span.Span{CharacterStart: 0, CharacterEnd: 10, Priority: 50, Confidence: 0.9}
	high := &span.Span{CharacterStart: 5, CharacterEnd: 15, Priority: 100, Confidence: 0.5}

	winners := Resolve([]*span.Span{low, high}, pool)

	if len(winners) != 1 || winners[0] != high {
		t.Errorf("expected the higher-priority span to win, got %+v", winners)
	}
}

func TestResolveDisjointBothSurvive(t *testing.T) {
	pool := span.NewPool()
	a := &span.Span{CharacterStart: 0, CharacterEnd: 5, Priority: 50}
	b := &span.Span{CharacterStart: 10, CharacterEnd: 15, Priority: 50}

	winners := Resolve([]*span.Span{a, b}, pool)
	if len(winners) != 2 {
		t.Errorf("expected both disjoint spans to survive, got %d", len(winners))
	}
}

func TestResolveTieBreakConfidenceThenLengthThenStart(t *testing.T) {
	pool := span.NewPool()
	a := &span.Span{CharacterStart: 0, CharacterEnd: 10, Priority: 50, Confidence: 0.8}
	b := &span.Span{CharacterStart: 5, CharacterEnd: 20, Priority: 50, Confidence: 0.8}

	winners := Resolve([]*span.Span{a, b}, pool)
	if len(winners) != 1 || winners[0] != b {
		t.Errorf("expected the longer span to win on a confidence tie, got %+v", winners)
	}
}

func TestResolveIgnoredSpansPreDropped(t *testing.T) {
	pool := span.NewPool()
	ignored := &span.Span{CharacterStart: 0, CharacterEnd: 10, Priority: 100, Ignored: true}
	live := &span.Span{CharacterStart: 20, CharacterEnd: 30, Priority: 10}

	winners := Resolve([]*span.Span{ignored, live}, pool)
	if len(winners) != 1 || winners[0] != live {
		t.Errorf("expected ignored span excluded from the sweep, got %+v", winners)
	}
}

func TestResolveReleasesLosers(t *testing.T) {
	pool := span.NewPool()
	winner := &span.Span{CharacterStart: 0, CharacterEnd: 10, Priority: 100, Confidence: 0.9, Text: "winner"}
	loser := &span.Span{CharacterStart: 5, CharacterEnd: 15, Priority: 10, Confidence: 0.1, Text: "loser"}

	Resolve([]*span.Span{winner, loser}, pool)

	if loser.Text != "" {
		t.Errorf("expected loser span released (PHI cleared), got %+v", loser)
	}
}
