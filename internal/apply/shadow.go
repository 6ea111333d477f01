// shadow.go — the optional native apply-kernel accelerator seam (spec
// §4.11, §7), identical in shape to internal/postfilter's Accelerator:
// an interface with a nil default, exercised only when a caller installs
// a non-nil implementation.
package apply

import "github.com/DocHatty/vulpes-celare/internal/span"

// Accelerator is an alternate (e.g. natively compiled) apply-kernel
// implementation, run in shadow alongside Apply for byte-equality
// assertion. No in-tree implementation exists; none exists anywhere in
// the retrieval pack either, matching the spec's description of this seam
// as optional and currently unimplemented.
type Accelerator interface {
	Apply(doc string, spans []*span.Span) (string, error)
}

// DivergenceReport is what gets surfaced as an ApplyKernelDivergence error
// when the accelerator and the reference Apply disagree.
type DivergenceReport struct {
	FirstDiffOffset int
	ReferenceLen    int
	AcceleratedLen  int
}

// CompareShadow runs accel against the same input Apply just processed and
// reports the first byte offset at which the two outputs diverge, or ok
// == true if they match exactly. accel may be nil, in which case
// CompareShadow is a no-op.
func CompareShadow(accel Accelerator, doc string, spans []*span.Span, reference string) (DivergenceReport, bool) {
	if accel == nil {
		return DivergenceReport{}, true
	}
	out, err := accel.Apply(doc, spans)
	if err != nil {
		return DivergenceReport{FirstDiffOffset: 0}, false
	}
	if out == reference {
		return DivergenceReport{}, true
	}
	n := len(out)
	if len(reference) < n {
		n = len(reference)
	}
	diff := n
	for i := 0; i < n; i++ {
		if out[i] != reference[i] {
			diff = i
			break
		}
	}
	return DivergenceReport{
		FirstDiffOffset: diff,
		ReferenceLen:    len(reference),
		AcceleratedLen:  len(out),
	}, false
}
