// crosstype.go implements stage 4 of the confidence pipeline (spec §4.6.4):
// the cross-type reasoner.
//
// spec §9 flags the reasoner's exact shape as an open question ("a generic
// CrossTypeReasoner or a Datalog-backed one... treat the rule set as a
// small, explicit, ordered list"). This resolves it in favor of a real
// embedded Prolog engine, grounded on cognicore-io-korel's
// inference.Engine abstraction and its go.mod dependency on
// github.com/ichiban/prolog: Prolog's unification and backward-chaining
// give the three rule families a direct, auditable representation — one
// clause per rule — instead of a hand-rolled if-chain, while still being
// "a small, explicit, ordered list" (the rule source below is the entire
// program, embedded as a string constant and loaded once).
//
// Facts are asserted per document (span_type/2, span_conf/2, span_near/3,
// doc_year/2) and each rule query is scoped to the current document's span
// set — never an unbounded search.
package confidence

import (
	"context"
	"fmt"
	"strings"

	"github.com/ichiban/prolog"

	"github.com/DocHatty/vulpes-celare/internal/span"
)

// crossTypeRules is the entire rule program (spec §4.6.4): mutual
// exclusion, mutual support, and document consistency, one clause family
// each.
const crossTypeRules = `
mutual_exclusion(N, M) :-
    span_type(N, date), span_type(M, age),
    span_near(N, M, D), D =< 0.

mutual_support(N, M) :-
    span_type(N, name), span_type(M, mrn),
    span_near(N, M, D), D =< 20.

mutual_support(N, M) :-
    span_type(N, mrn), span_type(M, name),
    span_near(N, M, D), D =< 20.

document_consistency(M) :-
    span_type(M, mrn),
    doc_year(_, Count), Count >= 3.
`

// CrossTypeReasoner is stage 4 of the confidence pipeline.
type CrossTypeReasoner struct{}

// NewCrossTypeReasoner returns a reasoner ready to load rules per document.
func NewCrossTypeReasoner() *CrossTypeReasoner {
	return &CrossTypeReasoner{}
}

func (r *CrossTypeReasoner) Name() string { return "cross_type_reasoner" }

// Apply asserts facts for the current span set, consults crossTypeRules,
// and applies the three rule families' adjustments directly to spans.
func (r *CrossTypeReasoner) Apply(spans []*span.Span, doc *Document) error {
	if len(spans) == 0 {
		return nil
	}

	interp := prolog.New(nil, nil)
	if err := interp.Exec(crossTypeRules); err != nil {
		return fmt.Errorf("cross-type reasoner: load rules: %w", err)
	}

	for i, s := range spans {
		if err := interp.Exec(`assertz(span_type(?, ?)).`, i, strings.ToLower(string(s.FilterType))); err != nil {
			return fmt.Errorf("cross-type reasoner: assert span_type: %w", err)
		}
		if err := interp.Exec(`assertz(span_conf(?, ?)).`, i, s.Confidence); err != nil {
			return fmt.Errorf("cross-type reasoner: assert span_conf: %w", err)
		}
	}
	for i := range spans {
		for j := range spans {
			if i == j {
				continue
			}
			dist := proximity(spans[i], spans[j])
			if err := interp.Exec(`assertz(span_near(?, ?, ?)).`, i, j, dist); err != nil {
				return fmt.Errorf("cross-type reasoner: assert span_near: %w", err)
			}
		}
	}
	for year, count := range groupDateYears(spans) {
		if err := interp.Exec(`assertz(doc_year(?, ?)).`, year, count); err != nil {
			return fmt.Errorf("cross-type reasoner: assert doc_year: %w", err)
		}
	}

	ctx := context.Background()

	if err := applyMutualExclusion(ctx, interp, spans); err != nil {
		return err
	}
	if err := applyMutualSupport(ctx, interp, spans); err != nil {
		return err
	}
	if err := applyDocumentConsistency(ctx, interp, spans); err != nil {
		return err
	}

	return nil
}

func applyMutualExclusion(ctx context.Context, interp *prolog.Interpreter, spans []*span.Span) error {
	sols, err := interp.Query(`mutual_exclusion(N, M).`)
	if err != nil {
		return fmt.Errorf("cross-type reasoner: mutual_exclusion query: %w", err)
	}
	defer sols.Close()

	for sols.Next() {
		var pair struct{ N, M int }
		if err := sols.Scan(&pair); err != nil {
			continue
		}
		if pair.N < 0 || pair.N >= len(spans) || pair.M < 0 || pair.M >= len(spans) {
			continue
		}
		// Keep the higher-confidence span; the loser is marked Ignored so
		// it never reaches the overlap resolver as a live candidate.
		n, m := spans[pair.N], spans[pair.M]
		if n.Confidence >= m.Confidence {
			m.Ignored = true
		} else {
			n.Ignored = true
		}
	}
	return nil
}

func applyMutualSupport(ctx context.Context, interp *prolog.Interpreter, spans []*span.Span) error {
	sols, err := interp.Query(`mutual_support(N, M).`)
	if err != nil {
		return fmt.Errorf("cross-type reasoner: mutual_support query: %w", err)
	}
	defer sols.Close()

	for sols.Next() {
		var pair struct{ N, M int }
		if err := sols.Scan(&pair); err != nil {
			continue
		}
		if pair.N < 0 || pair.N >= len(spans) || pair.M < 0 || pair.M >= len(spans) {
			continue
		}
		spans[pair.N].Confidence = clamp(spans[pair.N].Confidence + 0.05)
		spans[pair.M].Confidence = clamp(spans[pair.M].Confidence + 0.05)
	}
	return nil
}

func applyDocumentConsistency(ctx context.Context, interp *prolog.Interpreter, spans []*span.Span) error {
	sols, err := interp.Query(`document_consistency(M).`)
	if err != nil {
		return fmt.Errorf("cross-type reasoner: document_consistency query: %w", err)
	}
	defer sols.Close()

	for sols.Next() {
		var row struct{ M int }
		if err := sols.Scan(&row); err != nil {
			continue
		}
		if row.M < 0 || row.M >= len(spans) {
			continue
		}
		spans[row.M].Confidence = clamp(spans[row.M].Confidence + 0.05)
	}
	return nil
}

// proximity returns the character distance between two non-overlapping
// spans, or 0 if they overlap.
func proximity(a, b *span.Span) int {
	if a.Overlaps(b) {
		return 0
	}
	if a.CharacterEnd <= b.CharacterStart {
		return b.CharacterStart - a.CharacterEnd
	}
	return a.CharacterStart - b.CharacterEnd
}

// groupDateYears extracts a 4-digit year from each DATE span's text (a
// deliberately simple heuristic; full date parsing is a detector's
// concern, out of scope here) and counts occurrences per year.
func groupDateYears(spans []*span.Span) map[string]int {
	counts := make(map[string]int)
	for _, s := range spans {
		if s.FilterType != span.Date {
			continue
		}
		year := extractYear(s.Text)
		if year == "" {
			continue
		}
		counts[year]++
	}
	return counts
}

func extractYear(text string) string {
	digits := make([]rune, 0, 4)
	for _, r := range text {
		if r >= '0' && r <= '9' {
			digits = append(digits, r)
			if len(digits) == 4 {
				return string(digits)
			}
		} else {
			digits = digits[:0]
		}
	}
	return ""
}
