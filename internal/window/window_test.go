package window

import (
	"reflect"
	"testing"

	"github.com/DocHatty/vulpes-celare/internal/span"
)

func TestAttachCapturesBothSides(t *testing.T) {
	text := "Patient was admitted on 03/15/1972 by Dr. Smith yesterday."
	start := 24 // "03/15/1972"
	end := start + len("03/15/1972")
	s := &span.Span{CharacterStart: start, CharacterEnd: end}

	Attach(text, []*span.Span{s})

	if len(s.Window) == 0 {
		t.Fatalf("expected a non-empty window, got none")
	}
	// "admitted" and "on" precede; "by" and "Dr." follow.
	found := map[string]bool{}
	for _, tk := range s.Window {
		found[tk] = true
	}
	if !found["on"] {
		t.Errorf("expected preceding token %q in window, got %v", "on", s.Window)
	}
}

func TestAttachStopsAtSentenceBoundary(t *testing.T) {
	text := "Short note. DATE here matters a lot for context words padding."
	// "DATE" token starts right after the sentence boundary.
	start := 12
	end := start + len("DATE")
	s := &span.Span{CharacterStart: start, CharacterEnd: end}

	AttachK(text, []*span.Span{s}, 6)

	for _, tk := range s.Window {
		if tk == "Short" || tk == "note." {
			t.Errorf("window crossed a sentence boundary into the previous sentence: %v", s.Window)
		}
	}
}

func TestWindowStableOnceObserved(t *testing.T) {
	text := "one two three four five six seven eight nine"
	s := &span.Span{CharacterStart: 19, CharacterEnd: 23} // "five"
	Attach(text, []*span.Span{s})
	first := append([]string(nil), s.Window...)
	Attach(text, []*span.Span{s})
	if !reflect.DeepEqual(first, s.Window) {
		t.Errorf("window content not stable across repeated attach: %v vs %v", first, s.Window)
	}
}
