// Package redact implements the orchestrator (spec §4.12, C13): the
// single entry point that sequences every other component in the
// documented order, owns their shared instance state, and returns a
// report by value rather than mutating process-global state (spec §9's
// "shared static state" redesign hazard, resolved here exactly the way
// the teacher's own proxy.Server already avoids it — config and
// dependencies as fields, a constructor, no package-level mutable globals).
package redact

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/DocHatty/vulpes-celare/internal/apply"
	"github.com/DocHatty/vulpes-celare/internal/confidence"
	"github.com/DocHatty/vulpes-celare/internal/detect"
	"github.com/DocHatty/vulpes-celare/internal/fieldctx"
	"github.com/DocHatty/vulpes-celare/internal/logger"
	"github.com/DocHatty/vulpes-celare/internal/metrics"
	"github.com/DocHatty/vulpes-celare/internal/overlap"
	"github.com/DocHatty/vulpes-celare/internal/postfilter"
	"github.com/DocHatty/vulpes-celare/internal/semcache"
	"github.com/DocHatty/vulpes-celare/internal/span"
	"github.com/DocHatty/vulpes-celare/internal/threshold"
	"github.com/DocHatty/vulpes-celare/internal/whitelist"
	"github.com/DocHatty/vulpes-celare/internal/window"
)

// minTextLength below which Redact short-circuits immediately (spec §4.12,
// §8's "early return when text length < 3").
const minTextLength = 3

// Options configure one Orchestrator instance.
type Options struct {
	PolicyHash string // identifies the active policy for exact-cache keys

	EnableWorkerPool      bool // VULPES_WORKERS
	EnableDFAScan         bool // VULPES_DFA_SCAN
	EnableSemanticCache   bool // VULPES_SEMANTIC_CACHE (default on)
	EnableContextModifier bool // VULPES_CONTEXT_MODIFIER

	TokenStyle apply.TokenStyle

	Vocabularies whitelist.Vocabularies
	Prototypes   map[span.FilterType][]float64

	DFARules []detectDFALiteral

	Plugins []Plugin

	ShadowAccelerator      postfilter.Accelerator
	ShadowApplyAccelerator apply.Accelerator

	Metrics *metrics.Metrics // optional; nil disables instrumentation
	Logger  *logger.Logger   // optional; nil disables logging
}

// detectDFALiteral re-exports detect.LiteralRule under a local alias so
// callers configuring Options don't need to import internal/detect
// purely for this one type.
type detectDFALiteral = detect.LiteralRule

// Orchestrator owns every shared instance (span pool, worker pool,
// confidence pipeline, post-filter chain, threshold
// service, semantic cache, token manager) as fields — spec §9's resolution
// for the "shared static state" hazard.
type Orchestrator struct {
	opts Options

	pool            *span.Pool
	workerPool      *detect.WorkerPool
	confidencePipe  *confidence.Pipeline
	thresholdSvc    *threshold.Service
	postfilterChain *postfilter.Chain
	tokenManager    *apply.TokenManager
	cache           *semcache.Service // nil when semantic cache disabled
	dfa             *detect.Automaton // nil when DFA pre-scan disabled
}

// New constructs an Orchestrator. cache may be nil (caching disabled or
// unavailable); calibrator may be nil (no fitted isotonic model yet).
func New(opts Options, cache *semcache.Service, calibrator *confidence.Calibrator) *Orchestrator {
	o := &Orchestrator{
		opts:            opts,
		pool:            span.NewPool(),
		confidencePipe:  confidence.NewPipeline(opts.Prototypes, calibrator),
		thresholdSvc:    threshold.NewService(),
		postfilterChain: postfilter.NewChain(),
		tokenManager:    apply.NewTokenManager(),
		cache:           cache,
	}
	o.confidencePipe.EnableClinicalModifier = opts.EnableContextModifier
	o.postfilterChain.Accelerator = opts.ShadowAccelerator

	o.workerPool = detect.NewWorkerPool()
	if !opts.EnableWorkerPool {
		o.workerPool.Inline = true
	}
	if opts.EnableDFAScan && len(opts.DFARules) > 0 {
		o.dfa = detect.BuildAutomaton(opts.DFARules)
	}
	return o
}

func newCorrelationID() string {
	return uuid.NewString()
}

// Redact is the orchestrator entry point (spec §6):
//
//	redact(text, detectors, policy, context) →
//	  { text, applied_spans, report }
func (o *Orchestrator) Redact(ctx context.Context, text string, detectors []detect.Detector, policy detect.Policy, adaptive detect.AdaptiveContext) (string, []*span.Span, ExecutionReport, error) {
	start := time.Now()
	report := ExecutionReport{CorrelationID: newCorrelationID()}

	if o.opts.Metrics != nil {
		o.opts.Metrics.IncRequestsTotal()
	}
	if o.opts.Logger != nil {
		o.opts.Logger.Debugf("redact_start", "correlation_id=%s len=%d", report.CorrelationID, len(text))
	}

	req := &Request{Text: text, Policy: policy, Adaptive: adaptive, TokenStyle: tokenStyleName(o.opts.TokenStyle)}
	if err := req.Validate(report.CorrelationID); err != nil {
		if o.opts.Metrics != nil {
			o.opts.Metrics.IncError("validation")
		}
		if o.opts.Logger != nil {
			o.opts.Logger.Warnf("validation_failed", "correlation_id=%s err=%v", report.CorrelationID, err)
		}
		report.TotalExecutionMs = msSince(start)
		return text, nil, report, err
	}

	if len(text) < minTextLength {
		if o.opts.Metrics != nil {
			o.opts.Metrics.RequestsPassthrough.Add(1)
		}
		report.TotalExecutionMs = msSince(start)
		return text, nil, report, nil
	}

	adaptive.Length = len(text)

	doc := text
	for _, p := range o.opts.Plugins {
		if p.PreProcess == nil {
			continue
		}
		out, failed, err := runHook(&report, p.Name+":pre_process", func() (string, error) { return p.PreProcess(doc) })
		if failed {
			recordPluginFailure(&report, p.Name+":pre_process")
			if o.opts.Metrics != nil {
				o.opts.Metrics.IncError("plugin")
			}
			if err != nil {
				continue // isolated: keep doc unmodified, proceed
			}
		}
		doc = out
	}

	for _, p := range o.opts.Plugins {
		if p.ShortCircuit == nil {
			continue
		}
		res, failed, err := runHook(&report, p.Name+":short_circuit", func() (*Result, error) { return p.ShortCircuit(doc) })
		if failed {
			recordPluginFailure(&report, p.Name+":short_circuit")
			if o.opts.Metrics != nil {
				o.opts.Metrics.IncError("plugin")
			}
			_ = err
			continue
		}
		if res != nil {
			report.ShortCircuited = true
			if o.opts.Metrics != nil {
				o.opts.Metrics.RequestsShortCircuited.Add(1)
			}
			report.TotalExecutionMs = msSince(start)
			return res.Text, nil, report, nil
		}
	}

	var cacheReport semcache.Report
	if o.cache != nil && o.opts.EnableSemanticCache {
		cached, r := o.cache.Lookup(doc, o.opts.PolicyHash, adaptive.DocumentType, o.pool)
		cacheReport = r
		report.Cache = &cacheReport
		if o.opts.Metrics != nil {
			if r.Hit {
				o.opts.Metrics.RecordCacheHit(adaptive.DocumentType)
			} else {
				o.opts.Metrics.RecordCacheMiss(adaptive.DocumentType)
			}
		}
		if r.Hit {
			result := apply.Apply(doc, cached, o.opts.TokenStyle, o.tokenManager, sessionIDOrNew(adaptive))
			report.TotalSpansDetected = len(result.AppliedSpans)
			if o.opts.Metrics != nil {
				o.opts.Metrics.IncRequestsRedacted()
				o.opts.Metrics.IncSpans("applied", int64(len(result.AppliedSpans)))
				o.opts.Metrics.RecordRedactLatency(time.Since(start))
			}
			report.TotalExecutionMs = msSince(start)
			return result.Text, result.AppliedSpans, report, nil
		}
	}

	enabled := activeDetectors(detectors, policy)
	report.TotalFilters = len(detectors)
	report.FiltersExecuted = len(enabled)
	report.FiltersDisabled = len(detectors) - len(enabled)

	dctx := &detect.DetectorContext{Vocabularies: o.opts.Vocabularies, Adaptive: adaptive}
	detectStart := time.Now()
	allSpans, taskResults := o.workerPool.Run(ctx, enabled, doc, policy, dctx)
	if o.opts.Metrics != nil {
		o.opts.Metrics.RecordDetectLatency(time.Since(detectStart))
		o.opts.Metrics.IncSpans("detected", int64(len(allSpans)))
	}
	for _, tr := range taskResults {
		report.FilterResults = append(report.FilterResults, FilterResult{Name: tr.Detector, TimingMs: tr.TimingMs, SpansFound: len(tr.Spans)})
		if tr.Err != nil {
			report.FiltersFailed++
			report.FailedFilters = append(report.FailedFilters, FailedFilter{Name: tr.Detector, Reason: tr.Err.Error()})
			if o.opts.Metrics != nil {
				o.opts.Metrics.IncError("detector")
			}
			if o.opts.Logger != nil {
				o.opts.Logger.Warnf("detector_failure", "detector=%s err=%v", tr.Detector, tr.Err)
			}
		}
	}

	if o.dfa != nil {
		allSpans = append(allSpans, o.dfa.Scan(doc)...)
	}

	fcResult := fieldctx.Scan(doc)
	allSpans = append(allSpans, fcResult.DerivedSpans...)
	for _, s := range allSpans {
		fieldctx.ApplyExpectations(s, fcResult.Contexts)
	}
	allSpans = fieldctx.DeleteZIPsAt(allSpans, fcResult.DeleteZIPAt)

	var dropped []*span.Span
	allSpans = whitelist.Filter(doc, allSpans, o.opts.Vocabularies, &dropped)
	releaseAll(o.pool, dropped)
	if o.opts.Metrics != nil && len(dropped) > 0 {
		o.opts.Metrics.IncSpans("dropped", int64(len(dropped)))
	}

	window.Attach(doc, allSpans)

	confDoc := &confidence.Document{Text: doc}
	if err := o.confidencePipe.Run(allSpans, confDoc); err != nil {
		report.FiltersFailed++
	}

	allSpans = runPostDetectionHooks(o.opts.Plugins, &report, doc, allSpans, o.pool, o.opts.Metrics)

	allSpans = overlap.Resolve(allSpans, o.pool)

	allSpans = runPreRedactionHooks(o.opts.Plugins, &report, doc, allSpans, o.pool, o.opts.Metrics)

	kept := o.postfilterChain.Filter(doc, allSpans, o.pool)

	kept = o.applyThresholds(kept, adaptive)

	report.TotalSpansDetected = len(kept)

	sessionID := sessionIDOrNew(adaptive)
	result := apply.Apply(doc, kept, o.opts.TokenStyle, o.tokenManager, sessionID)

	if o.opts.ShadowApplyAccelerator != nil {
		divergence, ok := apply.CompareShadow(o.opts.ShadowApplyAccelerator, doc, kept, result.Text)
		if !ok {
			report.Shadow = &divergence
		}
	}

	if o.cache != nil && o.opts.EnableSemanticCache && !cacheReport.Hit {
		_ = o.cache.Store(doc, o.opts.PolicyHash, adaptive.DocumentType, result.AppliedSpans)
	}

	finalResult := Result{Text: result.Text}
	for _, p := range o.opts.Plugins {
		if p.PostRedaction == nil {
			continue
		}
		out, failed, _ := runHook(&report, p.Name+":post_redaction", func() (Result, error) { return p.PostRedaction(finalResult) })
		if failed {
			recordPluginFailure(&report, p.Name+":post_redaction")
			if o.opts.Metrics != nil {
				o.opts.Metrics.IncError("plugin")
			}
			continue
		}
		finalResult = out
	}

	report.TotalExecutionMs = msSince(start)
	if o.opts.Metrics != nil {
		o.opts.Metrics.IncSpans("applied", int64(len(result.AppliedSpans)))
		o.opts.Metrics.RecordRedactLatency(time.Since(start))
		if len(result.AppliedSpans) > 0 {
			o.opts.Metrics.IncRequestsRedacted()
		} else {
			o.opts.Metrics.RequestsPassthrough.Add(1)
		}
	}
	if o.opts.Logger != nil {
		o.opts.Logger.Infof("redact_complete", "correlation_id=%s spans_applied=%d duration_ms=%.2f", report.CorrelationID, len(result.AppliedSpans), report.TotalExecutionMs)
	}
	return finalResult.Text, result.AppliedSpans, report, nil
}

func (o *Orchestrator) applyThresholds(spans []*span.Span, adaptive detect.AdaptiveContext) []*span.Span {
	kept := spans[:0]
	for _, s := range spans {
		bundle := o.thresholdSvc.Thresholds(adaptive, s.FilterType)
		if s.Confidence < bundle.Minimum {
			o.pool.Release(s)
			continue
		}
		kept = append(kept, s)
	}
	return kept
}

func activeDetectors(detectors []detect.Detector, policy detect.Policy) []detect.Detector {
	registry := detect.NewRegistry()
	for _, d := range detectors {
		registry.Register(d)
	}
	return registry.Enabled(policy)
}

func releaseAll(pool *span.Pool, spans []*span.Span) {
	for _, s := range spans {
		pool.Release(s)
	}
}

func recordPluginFailure(report *ExecutionReport, hook string) {
	if report.Plugins == nil {
		report.Plugins = &PluginReport{}
	}
	report.Plugins.Failed = append(report.Plugins.Failed, hook)
}

func sessionIDOrNew(adaptive detect.AdaptiveContext) string {
	// Sessions are request-scoped; the orchestrator mints one per Redact
	// call since spec §5 specifies TokenManager state is "per-session; not
	// shared across sessions" and this orchestrator has no upstream
	// request ID to key off of (unlike the teacher's HTTP proxy).
	return uuid.NewString()
}

func msSince(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}
