// Package confidence implements the confidence pipeline (spec §4.6, C6):
// context modifier, ensemble enhancer, disambiguator (C7, invoked from
// within this pipeline per spec's flow diagram), cross-type reasoner,
// clinical-context modifier, and calibrator, composed in a fixed order.
// Every stage may only adjust confidence and priority, never drop a span
// outright; all stages clamp confidence to [0.30, 0.99].
package confidence

import (
	"github.com/DocHatty/vulpes-celare/internal/disambiguate"
	"github.com/DocHatty/vulpes-celare/internal/span"
)

const (
	// MinConfidence and MaxConfidence bound every stage's output (spec §4.6).
	MinConfidence = 0.30
	MaxConfidence = 0.99
)

// clamp restricts v to [MinConfidence, MaxConfidence].
func clamp(v float64) float64 {
	if v < MinConfidence {
		return MinConfidence
	}
	if v > MaxConfidence {
		return MaxConfidence
	}
	return v
}

// Document carries the document-level inputs confidence stages read beyond
// the span set itself.
type Document struct {
	Text string
}

// Stage is one step of the confidence pipeline.
type Stage interface {
	Name() string
	Apply(spans []*span.Span, doc *Document) error
}

// Pipeline runs every stage in the fixed order spec §4.6 names, with the
// disambiguator folded in between the ensemble enhancer and the cross-type
// reasoner.
type Pipeline struct {
	contextModifier  *ContextModifier
	ensembleEnhancer *EnsembleEnhancer
	prototypes       disambiguate.Prototypes
	crossType        *CrossTypeReasoner
	clinical         *ClinicalContextModifier
	calibrator       *Calibrator

	// EnableClinicalModifier gates stage 5 behind VULPES_CONTEXT_MODIFIER.
	EnableClinicalModifier bool
}

// NewPipeline builds the standard confidence pipeline. prototypes may be
// nil (the disambiguator then leaves ambiguous spans on their first
// candidate type). calibrator may be nil (identity pass-through).
func NewPipeline(prototypes disambiguate.Prototypes, calibrator *Calibrator) *Pipeline {
	return &Pipeline{
		contextModifier:  NewContextModifier(),
		ensembleEnhancer: NewEnsembleEnhancer(),
		prototypes:       prototypes,
		crossType:        NewCrossTypeReasoner(),
		clinical:         NewClinicalContextModifier(),
		calibrator:       calibrator,
	}
}

// Run executes every stage of the pipeline over spans in order.
func (p *Pipeline) Run(spans []*span.Span, doc *Document) error {
	if err := p.contextModifier.Apply(spans, doc); err != nil {
		return err
	}
	if err := p.ensembleEnhancer.Apply(spans, doc); err != nil {
		return err
	}

	disambiguate.Resolve(spans, p.prototypes)

	if err := p.crossType.Apply(spans, doc); err != nil {
		return err
	}

	if p.EnableClinicalModifier {
		if err := p.clinical.Apply(spans, doc); err != nil {
			return err
		}
	}

	if p.calibrator != nil {
		if err := p.calibrator.Apply(spans, doc); err != nil {
			return err
		}
	} else {
		for _, s := range spans {
			s.Confidence = clamp(s.Confidence)
		}
	}

	return nil
}
