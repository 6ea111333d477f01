// plugin.go — the four optional plugin hooks plus short_circuit (spec
// §4.12, §6). Each hook is wrapped so a panicking or erroring plugin is
// isolated exactly like a failing detector (spec §7), grounded on
// internal/detect's safeDetect panic-recovery idiom (pool.go) generalized
// from detectors to plugin hooks.
package redact

import (
	"fmt"
	"time"
)

// Result is what short_circuit returns to bypass the entire pipeline.
type Result struct {
	Text         string
	AppliedSpans []string // token strings only; full Span detail isn't meaningful post-bypass
}

// Plugin is the optional hook set an orchestrator caller may install. Any
// hook left nil is skipped without being recorded as failed.
type Plugin struct {
	Name string

	PreProcess    func(doc string) (string, error)
	PostDetection func(spans []SpanLite, doc string) ([]SpanLite, error)
	PreRedaction  func(spans []SpanLite, doc string) ([]SpanLite, error)
	PostRedaction func(result Result) (Result, error)
	ShortCircuit  func(doc string) (*Result, error)
}

// SpanLite is the plugin-facing span projection: plugins operate on
// documents from outside this module and have no business holding a
// pool-owned *span.Span pointer, so hooks see and return only instructions
// for the orchestrator to apply by offset in the pool-owned span slice.
type SpanLite struct {
	Start, End int
	FilterType string
	Drop       bool // plugin requests this span be dropped
}

// runHook invokes fn, converting a panic into a PluginError exactly like
// internal/detect's safeDetect converts a detector panic into an error.
// Its wall-clock time is accumulated into report.Plugins.TotalTimeMs
// (spec §4.12: "the orchestrator accumulates total plugin time into the
// report"), whether the hook succeeds, errors, or panics.
func runHook[T any](report *ExecutionReport, name string, fn func() (T, error)) (result T, failed bool, err error) {
	start := time.Now()
	defer func() {
		recordPluginTime(report, time.Since(start))
		if r := recover(); r != nil {
			failed = true
			err = newError(ErrPluginError, fmt.Sprintf("plugin hook %q panicked: %v", name, r), "check the plugin implementation for nil-pointer or index-out-of-range bugs", nil)
		}
	}()
	v, e := fn()
	if e != nil {
		return result, true, newError(ErrPluginError, fmt.Sprintf("plugin hook %q failed", name), "the hook's error is wrapped as Cause", e)
	}
	return v, false, nil
}

func recordPluginTime(report *ExecutionReport, d time.Duration) {
	if report.Plugins == nil {
		report.Plugins = &PluginReport{}
	}
	report.Plugins.TotalTimeMs += float64(d.Microseconds()) / 1000.0
}
