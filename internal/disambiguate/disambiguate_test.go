package disambiguate

import (
	"testing"

	"github.com/DocHatty/vulpes-celare/internal/span"
)

func TestResolvePicksHighestSimilarity(t *testing.T) {
	s := &span.Span{
		Text:          "03/15/1972",
		Window:        []string{"born", "in"},
		FilterType:    span.Date,
		AmbiguousWith: []span.FilterType{span.Age},
	}

	dateVec := featureVector("03/15/1972 born in", nil)
	ageVec := make([]float64, VectorDims)

	protos := Prototypes{
		span.Date: dateVec,
		span.Age:  ageVec,
	}

	Resolve([]*span.Span{s}, protos)

	if s.FilterType != span.Date {
		t.Errorf("expected DATE to win, got %v", s.FilterType)
	}
	if s.AmbiguousWith != nil {
		t.Errorf("expected AmbiguousWith cleared after resolution")
	}
}

func TestResolveSkipsUnambiguousSpans(t *testing.T) {
	s := &span.Span{FilterType: span.Name}
	Resolve([]*span.Span{s}, Prototypes{})
	if s.FilterType != span.Name {
		t.Errorf("expected unambiguous span untouched")
	}
}

func TestCosineSimilarityIdentical(t *testing.T) {
	v := []float64{1, 2, 3}
	if sim := cosineSimilarity(v, v); sim < 0.999 {
		t.Errorf("expected identical vectors to have similarity ~1, got %f", sim)
	}
}
