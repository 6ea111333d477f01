// Package overlap implements the overlap resolver (spec §4.7, C8): a
// greedy sweep over candidate spans, keeping the highest-priority winner
// at each overlapping position and releasing every span it overlaps with
// back to the pool.
package overlap

import (
	"sort"

	"github.com/DocHatty/vulpes-celare/internal/span"
)

// Resolve sorts candidates by (priority desc, confidence desc, length desc,
// start asc), then sweeps keeping only pairwise-disjoint winners. Every
// dropped span is released via pool.Release so no PHI survives past this
// stage. Spans already marked Ignored (e.g. by the cross-type reasoner's
// mutual-exclusion rule) are treated as pre-dropped and released without
// entering the sweep.
func Resolve(candidates []*span.Span, pool *span.Pool) []*span.Span {
	live := make([]*span.Span, 0, len(candidates))
	for _, s := range candidates {
		if s.Ignored {
			pool.Release(s)
			continue
		}
		live = append(live, s)
	}

	sort.SliceStable(live, func(i, j int) bool {
		a, b := live[i], live[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if a.Len() != b.Len() {
			return a.Len() > b.Len()
		}
		return a.CharacterStart < b.CharacterStart
	})

	var winners []*span.Span
	for _, candidate := range live {
		conflict := false
		for _, w := range winners {
			if candidate.Overlaps(w) {
				conflict = true
				break
			}
		}
		if conflict {
			pool.Release(candidate)
			continue
		}
		winners = append(winners, candidate)
	}

	return winners
}
