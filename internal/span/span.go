// Package span implements the redaction engine's unit of work: the Span
// data model (spec §3) and a bounded-LIFO Pool that recycles Span objects
// across documents without letting PHI survive a release.
package span

import (
	"sync"
	"sync/atomic"
	"time"
)

// FilterType is a tag from the closed set of PHI categories a Span may be
// classified as.
type FilterType string

// The closed set of filter types. CUSTOM escapes for caller-supplied
// detector types not otherwise named here.
const (
	Name       FilterType = "NAME"
	Date       FilterType = "DATE"
	Age        FilterType = "AGE"
	SSN        FilterType = "SSN"
	MRN        FilterType = "MRN"
	Phone      FilterType = "PHONE"
	Fax        FilterType = "FAX"
	Email      FilterType = "EMAIL"
	Address    FilterType = "ADDRESS"
	Zip        FilterType = "ZIP"
	IPAddress  FilterType = "IP_ADDRESS"
	URL        FilterType = "URL"
	Account    FilterType = "ACCOUNT"
	License    FilterType = "LICENSE"
	VehicleID  FilterType = "VEHICLE_ID"
	DeviceID   FilterType = "DEVICE_ID"
	Biometric  FilterType = "BIOMETRIC"
	HealthPlan FilterType = "HEALTH_PLAN"
	CreditCard FilterType = "CREDIT_CARD"
	Custom     FilterType = "CUSTOM"
)

// Span is the unit of redaction: a classified, scored substring of the
// input document. A Span is owned exclusively by the pipeline, from its
// creation by a detector or the Pool, until it is either released back to
// the Pool or applied and returned to the caller.
type Span struct {
	Text string

	// CharacterStart and CharacterEnd are half-open UTF-8 byte offsets
	// into the input. Invariant: 0 <= CharacterStart < CharacterEnd <= len(input).
	CharacterStart int
	CharacterEnd   int

	FilterType FilterType
	Confidence float64
	Priority   int

	// Pattern is a short provenance string, e.g. "DFA:ssn", "Labeled name field".
	Pattern string

	// Context is a <=60 char snippet around the span for diagnostics.
	Context string

	// Window holds the ordered left/right context tokens attached by the
	// window service (C5). Populated lazily and memoized there.
	Window []string

	// Replacement is the deterministic token assigned at apply time.
	// Empty before apply.
	Replacement string

	// AmbiguousWith holds alternative filter types produced by detectors
	// for the same span; resolved (and cleared) by the disambiguator (C7).
	AmbiguousWith []FilterType

	Applied bool
	Ignored bool
}

// reset clears every PHI-bearing field so no classified text, context, or
// provenance survives a release. Positions are set to the -1 sentinel per
// spec §4.1.
func (s *Span) reset() {
	s.Text = ""
	s.CharacterStart = -1
	s.CharacterEnd = -1
	s.FilterType = ""
	s.Confidence = 0
	s.Priority = 0
	s.Pattern = ""
	s.Context = ""
	s.Window = nil
	s.Replacement = ""
	s.AmbiguousWith = nil
	s.Applied = false
	s.Ignored = false
}

// Overlaps reports whether two spans' half-open intervals intersect.
func (s *Span) Overlaps(o *Span) bool {
	return s.CharacterStart < o.CharacterEnd && o.CharacterStart < s.CharacterEnd
}

// Len returns the byte length of the span's covered interval.
func (s *Span) Len() int {
	return s.CharacterEnd - s.CharacterStart
}

const (
	// DefaultMaxPoolSize is the default bounded LIFO capacity (spec §4.1).
	DefaultMaxPoolSize = 10000
	// DefaultMinShrinkFloor is the lower bound shrink() will never go below.
	DefaultMinShrinkFloor = 100
	// shrinkInterval is the minimum time between automatic shrinks.
	shrinkInterval = 60 * time.Second
)

// Pool is a bounded LIFO of reusable Span objects, process-wide in the
// orchestrator's lifetime. Acquire prefers reuse; on an empty pool a new
// Span is allocated. Release zeroes PHI-bearing fields before the Span
// re-enters the pool, or drops it (incrementing Dropped) when full.
//
// Debug mode additionally tracks released-but-not-yet-reacquired spans in
// a "weak set" (a plain map guarded by mu, since Go has no true weak
// references) so a double release is detected and ignored rather than
// corrupting the free list.
type Pool struct {
	mu    sync.Mutex
	free  []*Span
	debug bool
	// released tracks spans currently sitting in the free list, keyed by
	// pointer identity, so Release can detect a double-release. Entries
	// are removed on Acquire, so this set never grows past pool size.
	released map[*Span]struct{}

	maxSize int
	peak    int // largest free-list length observed since the last shrink

	lastShrink time.Time

	dropped atomic.Int64
}

// NewPool returns a Pool with the default maximum size.
func NewPool() *Pool {
	return NewPoolSize(DefaultMaxPoolSize)
}

// NewPoolSize returns a Pool bounded at maxSize reusable spans.
func NewPoolSize(maxSize int) *Pool {
	if maxSize < 1 {
		maxSize = DefaultMaxPoolSize
	}
	return &Pool{
		maxSize:    maxSize,
		lastShrink: time.Now(),
	}
}

// SetDebug enables or disables double-release detection.
func (p *Pool) SetDebug(on bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.debug = on
	if on && p.released == nil {
		p.released = make(map[*Span]struct{})
	}
}

// Acquire returns a Span from the free list, or a freshly allocated one if
// the pool is empty.
func (p *Pool) Acquire() *Span {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := len(p.free)
	if n == 0 {
		return &Span{}
	}
	s := p.free[n-1]
	p.free = p.free[:n-1]
	if p.debug {
		delete(p.released, s)
	}
	return s
}

// Release clears s and returns it to the free list. If the pool is at
// capacity, s is dropped (not retained) and the dropped counter is
// incremented. Releasing the same *Span twice is a no-op in debug mode;
// outside debug mode it is the caller's responsibility not to double
// release (the zero-cost path trusts the orchestrator's single-ownership
// discipline described in spec §5).
func (p *Pool) Release(s *Span) {
	if s == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.debug {
		if _, already := p.released[s]; already {
			return // double release: ignored
		}
	}

	s.reset()

	if len(p.free) >= p.maxSize {
		p.dropped.Add(1)
		return
	}

	p.free = append(p.free, s)
	if len(p.free) > p.peak {
		p.peak = len(p.free)
	}
	if p.debug {
		p.released[s] = struct{}{}
	}

	p.maybeShrinkLocked()
}

// Dropped returns the number of Release calls that found the pool full.
func (p *Pool) Dropped() int64 {
	return p.dropped.Load()
}

// Len returns the current number of spans sitting in the free list.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.free)
}

// maybeShrinkLocked trims the free list to max(0.5*peak, DefaultMinShrinkFloor)
// when at least shrinkInterval has elapsed since the last shrink. Must be
// called with p.mu held.
func (p *Pool) maybeShrinkLocked() {
	if time.Since(p.lastShrink) < shrinkInterval {
		return
	}
	target := p.peak / 2
	if target < DefaultMinShrinkFloor {
		target = DefaultMinShrinkFloor
	}
	if len(p.free) > target {
		// Drop the oldest entries at the bottom of the LIFO; the top
		// (most recently released, most likely to be reused) is kept.
		trimmed := len(p.free) - target
		if p.debug {
			for _, s := range p.free[:trimmed] {
				delete(p.released, s)
			}
		}
		p.free = append([]*Span(nil), p.free[trimmed:]...)
	}
	p.peak = len(p.free)
	p.lastShrink = time.Now()
}
