package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestNew_StartTimeSet(t *testing.T) {
	before := time.Now()
	m := New()
	after := time.Now()

	if m.startTime.Before(before) || m.startTime.After(after) {
		t.Errorf("startTime %v not in expected range [%v, %v]", m.startTime, before, after)
	}
}

func TestZeroValue_SnapshotSafe(t *testing.T) {
	var m Metrics
	s := m.Snapshot()
	if s.Requests.Total != 0 {
		t.Errorf("expected 0 total requests, got %d", s.Requests.Total)
	}
}

func TestRequestCounters(t *testing.T) {
	m := New()
	m.RequestsTotal.Add(10)
	m.RequestsRedacted.Add(7)
	m.RequestsPassthrough.Add(2)
	m.RequestsShortCircuited.Add(1)

	s := m.Snapshot()
	if s.Requests.Total != 10 {
		t.Errorf("Total: got %d, want 10", s.Requests.Total)
	}
	if s.Requests.Redacted != 7 {
		t.Errorf("Redacted: got %d, want 7", s.Requests.Redacted)
	}
	if s.Requests.Passthrough != 2 {
		t.Errorf("Passthrough: got %d, want 2", s.Requests.Passthrough)
	}
	if s.Requests.ShortCircuited != 1 {
		t.Errorf("ShortCircuited: got %d, want 1", s.Requests.ShortCircuited)
	}
}

func TestIncRequestsHelpers(t *testing.T) {
	m := New()
	m.IncRequestsTotal()
	m.IncRequestsTotal()
	m.IncRequestsRedacted()

	s := m.Snapshot()
	if s.Requests.Total != 2 {
		t.Errorf("Total: got %d, want 2", s.Requests.Total)
	}
	if s.Requests.Redacted != 1 {
		t.Errorf("Redacted: got %d, want 1", s.Requests.Redacted)
	}
}

func TestErrorCounters(t *testing.T) {
	m := New()
	m.IncError("detector")
	m.IncError("detector")
	m.IncError("validation")
	m.IncError("plugin")
	m.IncError("unknown") // ignored category, no panic

	s := m.Snapshot()
	if s.Errors.Detector != 2 {
		t.Errorf("Detector errors: got %d, want 2", s.Errors.Detector)
	}
	if s.Errors.Validation != 1 {
		t.Errorf("Validation errors: got %d, want 1", s.Errors.Validation)
	}
	if s.Errors.Plugin != 1 {
		t.Errorf("Plugin errors: got %d, want 1", s.Errors.Plugin)
	}
}

func TestSpanCounters(t *testing.T) {
	m := New()
	m.IncSpans("detected", 5)
	m.IncSpans("applied", 3)
	m.IncSpans("dropped", 2)

	s := m.Snapshot()
	if s.Spans.Detected != 5 {
		t.Errorf("Detected: got %d, want 5", s.Spans.Detected)
	}
	if s.Spans.Applied != 3 {
		t.Errorf("Applied: got %d, want 3", s.Spans.Applied)
	}
	if s.Spans.Dropped != 2 {
		t.Errorf("Dropped: got %d, want 2", s.Spans.Dropped)
	}
}

func TestRecordRedactLatency_SingleSample(t *testing.T) {
	m := New()
	m.RecordRedactLatency(100 * time.Millisecond)

	s := m.Snapshot()
	if s.Latency.RedactMs.Count != 1 {
		t.Errorf("Count: got %d, want 1", s.Latency.RedactMs.Count)
	}
	if s.Latency.RedactMs.MinMs < 90 || s.Latency.RedactMs.MinMs > 110 {
		t.Errorf("MinMs: got %f, want ~100", s.Latency.RedactMs.MinMs)
	}
}

func TestRecordDetectLatency_MinMaxMean(t *testing.T) {
	m := New()
	m.RecordDetectLatency(50 * time.Millisecond)
	m.RecordDetectLatency(150 * time.Millisecond)
	m.RecordDetectLatency(100 * time.Millisecond)

	s := m.Snapshot()
	ls := s.Latency.DetectMs
	if ls.Count != 3 {
		t.Errorf("Count: got %d, want 3", ls.Count)
	}
	if ls.MinMs > 60 {
		t.Errorf("MinMs too high: %f", ls.MinMs)
	}
	if ls.MaxMs < 140 {
		t.Errorf("MaxMs too low: %f", ls.MaxMs)
	}
	if ls.MeanMs < 90 || ls.MeanMs > 110 {
		t.Errorf("MeanMs: got %f, want ~100", ls.MeanMs)
	}
}

func TestSnapshotLatency_EmptyIsZeroValue(t *testing.T) {
	m := New()
	s := m.Snapshot()
	if s.Latency.RedactMs.Count != 0 {
		t.Errorf("empty redact latency count should be 0")
	}
	if s.Latency.DetectMs.Count != 0 {
		t.Errorf("empty detect latency count should be 0")
	}
}

func TestSnapshot_UptimePositive(t *testing.T) {
	m := New()
	time.Sleep(5 * time.Millisecond)
	s := m.Snapshot()
	if s.UptimeSecs <= 0 {
		t.Errorf("UptimeSecs should be positive, got %f", s.UptimeSecs)
	}
}

func TestRound2(t *testing.T) {
	cases := []struct {
		input float64
		want  float64
	}{
		{1.236, 1.24},
		{1.234, 1.23},
		{100.0, 100.0},
		{0.0, 0.0},
	}
	for _, c := range cases {
		got := round2(c.input)
		if got != c.want {
			t.Errorf("round2(%f) = %f, want %f", c.input, got, c.want)
		}
	}
}

func TestLatencyStats_Record(t *testing.T) {
	var s latencyStats
	s.record(10)
	s.record(20)
	s.record(15)

	snap := s.snapshot()
	if snap.Count != 3 {
		t.Errorf("Count: got %d, want 3", snap.Count)
	}
	if snap.MinMs != 10 {
		t.Errorf("MinMs: got %f, want 10", snap.MinMs)
	}
	if snap.MaxMs != 20 {
		t.Errorf("MaxMs: got %f, want 20", snap.MaxMs)
	}
	if snap.MeanMs != 15 {
		t.Errorf("MeanMs: got %f, want 15", snap.MeanMs)
	}
}

func TestLatencyStats_Empty(t *testing.T) {
	var s latencyStats
	snap := s.snapshot()
	if snap.Count != 0 || snap.MinMs != 0 || snap.MaxMs != 0 || snap.MeanMs != 0 {
		t.Errorf("empty stats snapshot should be zero, got %+v", snap)
	}
}

func TestCacheHitCounters(t *testing.T) {
	m := New()
	m.RecordCacheHit("email")
	m.RecordCacheHit("email")
	m.RecordCacheHit("phone")

	s := m.Snapshot()
	if s.Cache.Hits["email"] != 2 {
		t.Errorf("email hits: got %d, want 2", s.Cache.Hits["email"])
	}
	if s.Cache.Hits["phone"] != 1 {
		t.Errorf("phone hits: got %d, want 1", s.Cache.Hits["phone"])
	}
	if _, present := s.Cache.Hits["ssn"]; present {
		t.Error("ssn should be absent from snapshot when count is 0")
	}
}

func TestCacheMissCounters(t *testing.T) {
	m := New()
	m.RecordCacheMiss("phone")
	m.RecordCacheMiss("phone")
	m.RecordCacheMiss("zip")

	s := m.Snapshot()
	if s.Cache.Misses["phone"] != 2 {
		t.Errorf("phone misses: got %d, want 2", s.Cache.Misses["phone"])
	}
	if s.Cache.Misses["zip"] != 1 {
		t.Errorf("zip misses: got %d, want 1", s.Cache.Misses["zip"])
	}
}

func TestCacheCountersZeroValueOmitted(t *testing.T) {
	m := New()
	s := m.Snapshot()
	if len(s.Cache.Hits) != 0 {
		t.Errorf("Hits should be empty map when all zero, got %v", s.Cache.Hits)
	}
	if len(s.Cache.Misses) != 0 {
		t.Errorf("Misses should be empty map when all zero, got %v", s.Cache.Misses)
	}
}

func TestRegisterPrometheus_CountersReachable(t *testing.T) {
	m := New()
	reg := prometheus.NewRegistry()
	m.RegisterPrometheus(reg)

	m.IncRequestsTotal()
	m.IncError("detector")
	m.IncSpans("applied", 1)
	m.RecordCacheHit("ssn")
	m.RecordRedactLatency(10 * time.Millisecond)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(families) == 0 {
		t.Error("expected at least one registered metric family")
	}
}
