// Package detect implements the detector registry and worker pool (spec
// §4.2): the contract individual PHI detectors satisfy, a registry keyed by
// filter type, and a parallel worker pool that runs one task per enabled
// detector with panic isolation and per-detector circuit breaking.
//
// The individual PHI detectors themselves (patterns, dictionaries, NER,
// OCR) are out of scope per spec §1 and are addressed only through the
// Detector interface; internal/testdetectors supplies small example
// implementations used by tests and the CLI.
package detect

import (
	"context"

	"github.com/DocHatty/vulpes-celare/internal/span"
	"github.com/DocHatty/vulpes-celare/internal/whitelist"
)

// Config carries one filter type's policy entry: whether it is enabled,
// an optional replacement string, and any detector-specific options. The
// apply kernel does not read Replacement; it always generates its own token.
type Config struct {
	Enabled     bool
	Replacement string
	Options     map[string]any
}

// Policy is the caller-supplied `policy.identifiers` map from spec §6.
type Policy map[span.FilterType]Config

// DetectorContext is the immutable context passed to every Detect call,
// resolving the "cyclic references between detectors and the orchestrator"
// design hazard (spec §9) — detectors may consult vocabularies without
// holding a reference back into the orchestrator.
type DetectorContext struct {
	Vocabularies whitelist.Vocabularies
	Adaptive     AdaptiveContext
}

// AdaptiveContext mirrors the document-level features named in spec §3;
// detectors may use it to adjust their own internal heuristics (e.g. an
// OCR-aware detector relaxing character-confusion tolerances).
type AdaptiveContext struct {
	DocumentType     string
	Specialty        string
	ContextStrength  string
	PurposeOfUse     string
	IsOCR            bool
	Length           int
}

// Detector is the contract every PHI detector satisfies (spec §6). It must
// not mutate text and may suspend only on I/O it owns.
type Detector interface {
	Name() string
	FilterType() span.FilterType
	Detect(ctx context.Context, text string, cfg Config, dctx *DetectorContext) ([]*span.Span, error)
}

// Registry holds the ordered set of known detectors, keyed by filter type.
type Registry struct {
	detectors []Detector
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds d to the registry.
func (r *Registry) Register(d Detector) {
	r.detectors = append(r.detectors, d)
}

// Enabled returns the subset of registered detectors whose filter type is
// enabled in policy, pre-filtering disabled detectors per spec §4.12.
func (r *Registry) Enabled(policy Policy) []Detector {
	var out []Detector
	for _, d := range r.detectors {
		cfg, ok := policy[d.FilterType()]
		if !ok || cfg.Enabled {
			out = append(out, d)
		}
	}
	return out
}

// All returns every registered detector, regardless of policy.
func (r *Registry) All() []Detector {
	return append([]Detector(nil), r.detectors...)
}

// TaskResult captures the outcome of one detector's execution.
type TaskResult struct {
	Detector string
	Spans    []*span.Span
	Err      error
	TimingMs float64
}
