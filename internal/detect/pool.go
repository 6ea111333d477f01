// pool.go implements the parallel worker pool spec §4.2 and §5 describe:
// one task per enabled detector, run on N = CPU cores - 1 (minimum 1)
// workers, with per-detector panic isolation and circuit breaking. A task
// that finds every worker slot taken waits for a free slot; the pool has no
// synchronous fallback path.
//
// Grounded on the teacher's dispatchOllamaAsync goroutine-plus-semaphore
// dispatch pattern (ollamaSem chan struct{}), generalized from "one Ollama
// query" to "one detector task", and on jordigilh-kubernaut's use of
// golang.org/x/sync/errgroup, golang.org/x/sync/semaphore, and
// github.com/sony/gobreaker for bounded, resilient concurrent fan-out.
package detect

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/DocHatty/vulpes-celare/internal/span"
)

// WorkerPool runs detectors concurrently, isolating panics and circuit-
// breaking detectors that fail repeatedly.
type WorkerPool struct {
	maxConcurrent int64
	sem           *semaphore.Weighted

	breakersMu sync.Mutex
	breakers   map[string]*gobreaker.CircuitBreaker

	// Inline forces synchronous, in-order execution (VULPES_WORKERS=0).
	Inline bool
}

// NewWorkerPool returns a pool sized at runtime.NumCPU()-1 (minimum 1).
func NewWorkerPool() *WorkerPool {
	n := runtime.NumCPU() - 1
	if n < 1 {
		n = 1
	}
	return NewWorkerPoolSize(n)
}

// NewWorkerPoolSize returns a pool with an explicit worker count.
func NewWorkerPoolSize(n int) *WorkerPool {
	if n < 1 {
		n = 1
	}
	return &WorkerPool{
		maxConcurrent: int64(n),
		sem:           semaphore.NewWeighted(int64(n)),
		breakers:      make(map[string]*gobreaker.CircuitBreaker),
	}
}

func (wp *WorkerPool) breakerFor(name string) *gobreaker.CircuitBreaker {
	wp.breakersMu.Lock()
	defer wp.breakersMu.Unlock()
	if b, ok := wp.breakers[name]; ok {
		return b
	}
	b := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    0,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})
	wp.breakers[name] = b
	return b
}

// Run dispatches one task per detector in detectors, returning the
// flattened span sequence from every successful task and one TaskResult
// per detector (including failed and breaker-tripped ones, recorded in
// spec's "failed_filters"). A detector failure never aborts the run.
func (wp *WorkerPool) Run(ctx context.Context, detectors []Detector, text string, policy Policy, dctx *DetectorContext) ([]*span.Span, []TaskResult) {
	results := make([]TaskResult, len(detectors))

	if wp.Inline {
		var all []*span.Span
		for i, d := range detectors {
			spans, tr := wp.runOne(ctx, d, text, policy, dctx)
			results[i] = tr
			all = append(all, spans...)
		}
		return all, results
	}

	var mu sync.Mutex
	var all []*span.Span

	g, gctx := errgroup.WithContext(ctx)
	for i, d := range detectors {
		i, d := i, d
		g.Go(func() error {
			// Non-blocking acquire first; on contention the task waits
			// for a free slot. The detector never runs without a slot,
			// and a context cancelled while waiting ends the wait.
			acquired := wp.sem.TryAcquire(1)
			if !acquired {
				if err := wp.sem.Acquire(gctx, 1); err != nil {
					// Context cancelled while waiting: record a timeout
					// result for this detector and move on without
					// aborting the group (detector failures are isolated).
					mu.Lock()
					results[i] = TaskResult{Detector: d.Name(), Err: gctx.Err()}
					mu.Unlock()
					return nil
				}
				acquired = true
			}
			if acquired {
				defer wp.sem.Release(1)
			}

			spans, tr := wp.runOne(gctx, d, text, policy, dctx)
			mu.Lock()
			results[i] = tr
			all = append(all, spans...)
			mu.Unlock()
			return nil // detector errors never fail the group (spec §5)
		})
	}
	_ = g.Wait() // errors are already folded into results, never fatal here

	return all, results
}

// runOne executes a single detector behind its circuit breaker with panic
// recovery, translating any panic or breaker trip into an isolated,
// recorded failure rather than a propagated error (spec §5, §7
// DetectorFailure is isolated).
func (wp *WorkerPool) runOne(ctx context.Context, d Detector, text string, policy Policy, dctx *DetectorContext) (spans []*span.Span, tr TaskResult) {
	name := d.Name()
	cfg, ok := policy[d.FilterType()]
	if !ok {
		// No policy entry: default enabled, matching Registry.Enabled's
		// "defaults enabled when no policy entry" semantics, so a detector
		// that made it into the active set is never starved by a zero-value
		// Config here.
		cfg = Config{Enabled: true}
	}
	breaker := wp.breakerFor(name)

	start := time.Now()
	out, err := breaker.Execute(func() (any, error) {
		return wp.safeDetect(ctx, d, text, cfg, dctx)
	})
	elapsed := time.Since(start)

	tr = TaskResult{Detector: name, TimingMs: float64(elapsed.Microseconds()) / 1000.0}
	if err != nil {
		tr.Err = err
		return nil, tr
	}
	spans, _ = out.([]*span.Span)
	tr.Spans = spans
	return spans, tr
}

// safeDetect calls d.Detect, converting a panic into an error so the
// caller's circuit breaker and the orchestrator's failure bookkeeping see a
// uniform failure mode regardless of how the detector misbehaved.
func (wp *WorkerPool) safeDetect(ctx context.Context, d Detector, text string, cfg Config, dctx *DetectorContext) (result []*span.Span, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("detector %s panicked: %v", d.Name(), r)
		}
	}()
	return d.Detect(ctx, text, cfg, dctx)
}
