// dfa.go implements the optional DFA pre-scan (spec §4.2): a multi-pattern
// Aho-Corasick automaton, compiled once from cheap literal patterns, that
// marks candidate offsets before the individual detectors run. Matches are
// emitted as low-priority (50) spans that seed the merge.
//
// Grounded directly on
// other_examples/.../SWARM-INTELLIGENCE-NETWORK/services/signature-engine/scanner/aho.go:
// the same byte-indexed trie + BFS failure-link construction, generalized
// from security-signature matching to PHI literal pre-scanning.
package detect

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/DocHatty/vulpes-celare/internal/span"
)

// DFAPreScanPriority is the priority assigned to every span the DFA
// pre-scan emits (spec §4.2).
const DFAPreScanPriority = 50

// LiteralRule is one entry in the DFA's literal pattern table.
type LiteralRule struct {
	Pattern    string
	FilterType span.FilterType
}

type acNode struct {
	next map[byte]*acNode
	fail *acNode
	out  []*LiteralRule
}

// Automaton is a compiled multi-pattern matcher over a fixed literal set.
// Safe for concurrent read-only use after Build returns; rebuild only when
// the literal pattern set changes.
type Automaton struct {
	root      *acNode
	ruleCount int
	buildHash string
}

// BuildAutomaton compiles rules into an Automaton, following the teacher-
// grounded trie-plus-failure-link construction.
func BuildAutomaton(rules []LiteralRule) *Automaton {
	root := &acNode{next: make(map[byte]*acNode)}
	h := sha256.New()
	added := 0

	for i := range rules {
		r := &rules[i]
		if r.Pattern == "" {
			continue
		}
		added++
		h.Write([]byte(r.Pattern))
		h.Write([]byte{0})

		cur := root
		for j := 0; j < len(r.Pattern); j++ {
			b := r.Pattern[j]
			nxt, ok := cur.next[b]
			if !ok {
				nxt = &acNode{next: make(map[byte]*acNode)}
				cur.next[b] = nxt
			}
			cur = nxt
		}
		cur.out = append(cur.out, r)
	}

	queue := make([]*acNode, 0, len(root.next))
	for _, n := range root.next {
		n.fail = root
		queue = append(queue, n)
	}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for b, nxt := range n.next {
			f := n.fail
			for f != nil && f.next[b] == nil {
				f = f.fail
			}
			if f == nil {
				nxt.fail = root
			} else {
				nxt.fail = f.next[b]
			}
			if nxt.fail != nil && len(nxt.fail.out) > 0 {
				nxt.out = append(nxt.out, nxt.fail.out...)
			}
			queue = append(queue, nxt)
		}
	}

	fp := hex.EncodeToString(h.Sum(nil))[:16]
	return &Automaton{root: root, ruleCount: added, buildHash: fp}
}

// RuleCount returns the number of literal patterns compiled into the automaton.
func (a *Automaton) RuleCount() int { return a.ruleCount }

// BuildHash returns a fingerprint of the compiled pattern set, useful for
// deciding whether a rebuild is needed when the literal set changes.
func (a *Automaton) BuildHash() string { return a.buildHash }

// Scan walks text once and returns one low-priority Span per literal match.
func (a *Automaton) Scan(text string) []*span.Span {
	if a == nil || a.root == nil {
		return nil
	}

	var out []*span.Span
	n := a.root
	for i := 0; i < len(text); i++ {
		b := text[i]
		for n != nil && n.next[b] == nil {
			n = n.fail
		}
		if n == nil {
			n = a.root
			continue
		}
		n = n.next[b]
		if len(n.out) == 0 {
			continue
		}
		for _, r := range n.out {
			start := i - len(r.Pattern) + 1
			if start < 0 {
				continue
			}
			end := i + 1
			out = append(out, &span.Span{
				Text:           text[start:end],
				CharacterStart: start,
				CharacterEnd:   end,
				FilterType:     r.FilterType,
				Confidence:     0.5,
				Priority:       DFAPreScanPriority,
				Pattern:        "DFA:" + string(r.FilterType),
			})
		}
	}
	return out
}
