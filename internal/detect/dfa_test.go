package detect

import (
	"testing"

	"github.com/DocHatty/vulpes-celare/internal/span"
)

func TestAutomatonScanFindsLiterals(t *testing.T) {
	a := BuildAutomaton([]LiteralRule{
		{Pattern: "SSN", FilterType: span.SSN},
		{Pattern: "MRN", FilterType: span.MRN},
	})
	if a.RuleCount() != 2 {
		t.Fatalf("expected 2 compiled rules, got %d", a.RuleCount())
	}

	spans := a.Scan("Patient SSN on file, also MRN noted.")
	var sawSSN, sawMRN bool
	for _, s := range spans {
		if s.Priority != DFAPreScanPriority {
			t.Errorf("expected priority %d, got %d", DFAPreScanPriority, s.Priority)
		}
		if s.FilterType == span.SSN {
			sawSSN = true
		}
		if s.FilterType == span.MRN {
			sawMRN = true
		}
	}
	if !sawSSN || !sawMRN {
		t.Errorf("expected both literals found, spans=%+v", spans)
	}
}

func TestAutomatonEmptyRulesNoMatches(t *testing.T) {
	a := BuildAutomaton(nil)
	if spans := a.Scan("anything at all"); len(spans) != 0 {
		t.Errorf("expected no matches on empty automaton, got %+v", spans)
	}
}
