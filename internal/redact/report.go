// report.go — the orchestrator's execution report (spec §4.12, §6).
package redact

import (
	"github.com/DocHatty/vulpes-celare/internal/apply"
	"github.com/DocHatty/vulpes-celare/internal/semcache"
)

// FilterResult is one detector's contribution to the report.
type FilterResult struct {
	Name       string
	FilterType string
	SpansFound int
	TimingMs   float64
}

// FailedFilter records a detector that errored or panicked; its result
// was substituted with an empty span set (spec §7: detector failures are
// isolated).
type FailedFilter struct {
	Name   string
	Reason string
}

// PluginReport summarizes plugin hook execution.
type PluginReport struct {
	TotalTimeMs float64
	Failed      []string // hook names whose invocation was isolated
}

// ExecutionReport is the wire-level report shape from spec §6.
type ExecutionReport struct {
	TotalFilters       int
	FiltersExecuted    int
	FiltersDisabled    int
	FiltersFailed      int
	TotalSpansDetected int
	TotalExecutionMs   float64

	FilterResults []FilterResult
	FailedFilters []FailedFilter

	Plugins *PluginReport
	Cache   *semcache.Report

	Shadow *apply.DivergenceReport

	ShortCircuited bool
	CorrelationID  string
}
