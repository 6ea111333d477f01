package detect

import (
	"testing"

	"github.com/DocHatty/vulpes-celare/internal/span"
)

func TestRegistryEnabledFiltersDisabled(t *testing.T) {
	r := NewRegistry()
	r.Register(&fakeDetector{name: "ssn", ft: span.SSN})
	r.Register(&fakeDetector{name: "name", ft: span.Name})

	policy := Policy{
		span.SSN:  {Enabled: true},
		span.Name: {Enabled: false},
	}
	enabled := r.Enabled(policy)
	if len(enabled) != 1 || enabled[0].FilterType() != span.SSN {
		t.Errorf("expected only SSN detector enabled, got %+v", enabled)
	}
}

func TestRegistryEnabledDefaultsOnWhenUnspecified(t *testing.T) {
	r := NewRegistry()
	r.Register(&fakeDetector{name: "date", ft: span.Date})

	enabled := r.Enabled(Policy{})
	if len(enabled) != 1 {
		t.Errorf("expected detector with no policy entry to default enabled, got %+v", enabled)
	}
}
