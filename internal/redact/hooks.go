// hooks.go — wiring the PostDetection and PreRedaction plugin hooks against
// the pool-owned []*span.Span slice the rest of the pipeline operates on.
//
// Hooks see and return []SpanLite, index-aligned with the input slice: a
// plugin may only flip each entry's Drop flag, not reorder or resize the
// set. This keeps the orchestrator's span-pool bookkeeping (drop → release)
// well-defined even though plugins are third-party, untrusted code.
package redact

import (
	"github.com/DocHatty/vulpes-celare/internal/metrics"
	"github.com/DocHatty/vulpes-celare/internal/span"
)

func toSpanLite(spans []*span.Span) []SpanLite {
	out := make([]SpanLite, len(spans))
	for i, s := range spans {
		out[i] = SpanLite{Start: s.CharacterStart, End: s.CharacterEnd, FilterType: string(s.FilterType)}
	}
	return out
}

func applyLiteDrops(spans []*span.Span, lite []SpanLite, pool *span.Pool) []*span.Span {
	if len(lite) != len(spans) {
		return spans // malformed hook output; ignore rather than risk index panics
	}
	kept := spans[:0]
	for i, s := range spans {
		if lite[i].Drop {
			pool.Release(s)
			continue
		}
		kept = append(kept, s)
	}
	return kept
}

func runPostDetectionHooks(plugins []Plugin, report *ExecutionReport, doc string, spans []*span.Span, pool *span.Pool, m *metrics.Metrics) []*span.Span {
	for _, p := range plugins {
		if p.PostDetection == nil {
			continue
		}
		lite := toSpanLite(spans)
		out, failed, _ := runHook(report, p.Name+":post_detection", func() ([]SpanLite, error) { return p.PostDetection(lite, doc) })
		if failed {
			recordPluginFailure(report, p.Name+":post_detection")
			if m != nil {
				m.IncError("plugin")
			}
			continue
		}
		spans = applyLiteDrops(spans, out, pool)
	}
	return spans
}

func runPreRedactionHooks(plugins []Plugin, report *ExecutionReport, doc string, spans []*span.Span, pool *span.Pool, m *metrics.Metrics) []*span.Span {
	for _, p := range plugins {
		if p.PreRedaction == nil {
			continue
		}
		lite := toSpanLite(spans)
		out, failed, _ := runHook(report, p.Name+":pre_redaction", func() ([]SpanLite, error) { return p.PreRedaction(lite, doc) })
		if failed {
			recordPluginFailure(report, p.Name+":pre_redaction")
			if m != nil {
				m.IncError("plugin")
			}
			continue
		}
		spans = applyLiteDrops(spans, out, pool)
	}
	return spans
}
