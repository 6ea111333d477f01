// Package metrics provides lightweight, lock-minimal performance counters
// for the redaction engine.
//
// Counters use sync/atomic so hot paths (detection dispatch, token
// substitution) incur no mutex contention. Latency statistics and the
// per-filter-type cache tallies use a single mutex each; they are updated
// at most once per request or cache lookup. Alongside the atomic counters,
// Metrics can feed a github.com/prometheus/client_golang registry so the
// same events can be scraped over HTTP: RegisterPrometheus creates separate
// Prometheus counters and a histogram, and the Inc*/Record* methods update
// them next to the atomic counters whenever they have been registered.
package metrics

import (
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all runtime counters for a running redaction engine.
// The zero value is valid and ready to use; prefer New() for clarity.
type Metrics struct {
	// Request counters
	RequestsTotal          atomic.Int64
	RequestsRedacted       atomic.Int64
	RequestsPassthrough    atomic.Int64
	RequestsShortCircuited atomic.Int64

	// Error counters
	ErrorsDetector   atomic.Int64
	ErrorsValidation atomic.Int64
	ErrorsPlugin     atomic.Int64

	// Span volume
	SpansDetected atomic.Int64
	SpansApplied  atomic.Int64
	SpansDropped  atomic.Int64 // whitelisted, post-filtered, or threshold-suppressed

	// Latency statistics (mutex-guarded because they accumulate floats)
	redactMu   sync.Mutex
	redactStat latencyStats

	detectMu   sync.Mutex
	detectStat latencyStats

	// Per-filter-type semantic cache tallies
	cacheMu     sync.Mutex
	cacheHits   map[string]int64
	cacheMisses map[string]int64

	startTime time.Time

	promReqTotal    prometheus.Counter
	promReqRedacted prometheus.Counter
	promErrors      *prometheus.CounterVec
	promSpans       *prometheus.CounterVec
	promCache       *prometheus.CounterVec
	promRedactMs    prometheus.Histogram
}

// New returns a new Metrics with the start time recorded.
func New() *Metrics {
	return &Metrics{
		startTime:   time.Now(),
		cacheHits:   make(map[string]int64),
		cacheMisses: make(map[string]int64),
	}
}

// RegisterPrometheus creates the prometheus collectors backing this
// Metrics instance and registers them against reg. Call once per process;
// reg is typically prometheus.NewRegistry() so tests don't collide with
// the global DefaultRegisterer.
func (m *Metrics) RegisterPrometheus(reg *prometheus.Registry) {
	m.promReqTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "vulpes_celare",
		Name:      "requests_total",
		Help:      "Total redaction requests processed.",
	})
	m.promReqRedacted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "vulpes_celare",
		Name:      "requests_redacted_total",
		Help:      "Requests that had at least one span applied.",
	})
	m.promErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vulpes_celare",
		Name:      "errors_total",
		Help:      "Errors by category (detector, validation, plugin).",
	}, []string{"category"})
	m.promSpans = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vulpes_celare",
		Name:      "spans_total",
		Help:      "Spans by stage (detected, applied, dropped).",
	}, []string{"stage"})
	m.promCache = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vulpes_celare",
		Name:      "cache_lookups_total",
		Help:      "Semantic cache lookups by filter type and result.",
	}, []string{"filter_type", "result"})
	m.promRedactMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "vulpes_celare",
		Name:      "redact_duration_ms",
		Help:      "End-to-end Redact() latency in milliseconds.",
		Buckets:   prometheus.ExponentialBuckets(0.5, 2, 12),
	})

	reg.MustRegister(m.promReqTotal, m.promReqRedacted, m.promErrors, m.promSpans, m.promCache, m.promRedactMs)
}

// RecordRedactLatency records the duration of one full Redact() call.
func (m *Metrics) RecordRedactLatency(d time.Duration) {
	ms := float64(d.Microseconds()) / 1000.0
	m.redactMu.Lock()
	m.redactStat.record(ms)
	m.redactMu.Unlock()
	if m.promRedactMs != nil {
		m.promRedactMs.Observe(ms)
	}
}

// RecordDetectLatency records the duration of one worker-pool detection pass.
func (m *Metrics) RecordDetectLatency(d time.Duration) {
	m.detectMu.Lock()
	m.detectStat.record(float64(d.Microseconds()) / 1000.0)
	m.detectMu.Unlock()
}

// RecordCacheHit records a semantic cache hit for the given filter type.
func (m *Metrics) RecordCacheHit(filterType string) {
	m.cacheMu.Lock()
	m.cacheHits[filterType]++
	m.cacheMu.Unlock()
	if m.promCache != nil {
		m.promCache.WithLabelValues(filterType, "hit").Inc()
	}
}

// RecordCacheMiss records a semantic cache miss for the given filter type.
func (m *Metrics) RecordCacheMiss(filterType string) {
	m.cacheMu.Lock()
	m.cacheMisses[filterType]++
	m.cacheMu.Unlock()
	if m.promCache != nil {
		m.promCache.WithLabelValues(filterType, "miss").Inc()
	}
}

// IncRequestsTotal increments the request counter, mirroring it into the
// prometheus collector when registered.
func (m *Metrics) IncRequestsTotal() {
	m.RequestsTotal.Add(1)
	if m.promReqTotal != nil {
		m.promReqTotal.Inc()
	}
}

// IncRequestsRedacted increments the redacted-request counter.
func (m *Metrics) IncRequestsRedacted() {
	m.RequestsRedacted.Add(1)
	if m.promReqRedacted != nil {
		m.promReqRedacted.Inc()
	}
}

// IncError increments the named error category counter.
func (m *Metrics) IncError(category string) {
	switch category {
	case "detector":
		m.ErrorsDetector.Add(1)
	case "validation":
		m.ErrorsValidation.Add(1)
	case "plugin":
		m.ErrorsPlugin.Add(1)
	}
	if m.promErrors != nil {
		m.promErrors.WithLabelValues(category).Inc()
	}
}

// IncSpans increments the named span-stage counter (detected, applied,
// dropped).
func (m *Metrics) IncSpans(stage string, n int64) {
	switch stage {
	case "detected":
		m.SpansDetected.Add(n)
	case "applied":
		m.SpansApplied.Add(n)
	case "dropped":
		m.SpansDropped.Add(n)
	}
	if m.promSpans != nil {
		m.promSpans.WithLabelValues(stage).Add(float64(n))
	}
}

// Snapshot returns a point-in-time copy of all metrics, safe for JSON encoding.
func (m *Metrics) Snapshot() Snapshot {
	m.redactMu.Lock()
	redact := m.redactStat.snapshot()
	m.redactMu.Unlock()

	m.detectMu.Lock()
	detect := m.detectStat.snapshot()
	m.detectMu.Unlock()

	m.cacheMu.Lock()
	hits := copyNonZero(m.cacheHits)
	misses := copyNonZero(m.cacheMisses)
	m.cacheMu.Unlock()

	return Snapshot{
		Requests: RequestSnapshot{
			Total:          m.RequestsTotal.Load(),
			Redacted:       m.RequestsRedacted.Load(),
			Passthrough:    m.RequestsPassthrough.Load(),
			ShortCircuited: m.RequestsShortCircuited.Load(),
		},
		Errors: ErrorSnapshot{
			Detector:   m.ErrorsDetector.Load(),
			Validation: m.ErrorsValidation.Load(),
			Plugin:     m.ErrorsPlugin.Load(),
		},
		Spans: SpanSnapshot{
			Detected: m.SpansDetected.Load(),
			Applied:  m.SpansApplied.Load(),
			Dropped:  m.SpansDropped.Load(),
		},
		Cache: CacheSnapshot{
			Hits:   hits,
			Misses: misses,
		},
		Latency: LatencyGroup{
			RedactMs: redact,
			DetectMs: detect,
		},
		UptimeSecs: time.Since(m.startTime).Seconds(),
	}
}

func copyNonZero(m map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(m))
	for k, v := range m {
		if v != 0 {
			out[k] = v
		}
	}
	return out
}

// --- JSON-serialisable snapshot types ---

// Snapshot is a point-in-time view of all metrics.
type Snapshot struct {
	Requests   RequestSnapshot `json:"requests"`
	Errors     ErrorSnapshot   `json:"errors"`
	Spans      SpanSnapshot    `json:"spans"`
	Cache      CacheSnapshot   `json:"cache"`
	Latency    LatencyGroup    `json:"latency"`
	UptimeSecs float64         `json:"uptimeSecs"`
}

// RequestSnapshot holds request-level counters.
type RequestSnapshot struct {
	Total          int64 `json:"total"`
	Redacted       int64 `json:"redacted"`
	Passthrough    int64 `json:"passthrough"`
	ShortCircuited int64 `json:"shortCircuited"`
}

// ErrorSnapshot holds error counters by category.
type ErrorSnapshot struct {
	Detector   int64 `json:"detector"`
	Validation int64 `json:"validation"`
	Plugin     int64 `json:"plugin"`
}

// SpanSnapshot holds span counters by pipeline stage.
type SpanSnapshot struct {
	Detected int64 `json:"detected"`
	Applied  int64 `json:"applied"`
	Dropped  int64 `json:"dropped"`
}

// CacheSnapshot holds per-filter-type semantic cache tallies. Zero-count
// entries are omitted.
type CacheSnapshot struct {
	Hits   map[string]int64 `json:"hits"`
	Misses map[string]int64 `json:"misses"`
}

// LatencyGroup groups the two latency dimensions.
type LatencyGroup struct {
	RedactMs LatencySnapshot `json:"redactMs"`
	DetectMs LatencySnapshot `json:"detectMs"`
}

// LatencySnapshot is a min/mean/max summary for one latency dimension.
type LatencySnapshot struct {
	Count  int64   `json:"count"`
	MinMs  float64 `json:"minMs"`
	MeanMs float64 `json:"meanMs"`
	MaxMs  float64 `json:"maxMs"`
}

// --- internal accumulator ---

type latencyStats struct {
	count int64
	sum   float64
	min   float64
	max   float64
}

func (s *latencyStats) record(ms float64) {
	s.count++
	s.sum += ms
	if s.count == 1 || ms < s.min {
		s.min = ms
	}
	if ms > s.max {
		s.max = ms
	}
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func (s *latencyStats) snapshot() LatencySnapshot {
	if s.count == 0 {
		return LatencySnapshot{}
	}
	return LatencySnapshot{
		Count:  s.count,
		MinMs:  round2(s.min),
		MeanMs: round2(s.sum / float64(s.count)),
		MaxMs:  round2(s.max),
	}
}
