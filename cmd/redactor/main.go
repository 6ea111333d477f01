// Command redactor batch-redacts PHI from a document.
//
// It reads the input document from a file argument (or stdin when none is
// given), runs it through the full detect → disambiguate → confidence →
// overlap → post-filter → threshold → apply pipeline, and writes the
// redacted text to stdout. A one-line execution summary goes to stderr;
// pass -report to also dump the full ExecutionReport as JSON.
//
// Usage:
//
//	./redactor clinical-note.txt
//	cat note.txt | ./redactor
//	./redactor -report -policy-hash hipaa-v1 note.txt
//
// Config is layered the same way the rest of the engine is configured:
// defaults → redactor-config.json → environment variables (spec §6's
// VULPES_* flags). When VULPES_METRICS_ADDR is set, a background HTTP
// server exposes /metrics in Prometheus exposition format.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/DocHatty/vulpes-celare/internal/apply"
	"github.com/DocHatty/vulpes-celare/internal/config"
	"github.com/DocHatty/vulpes-celare/internal/detect"
	"github.com/DocHatty/vulpes-celare/internal/logger"
	"github.com/DocHatty/vulpes-celare/internal/metrics"
	bolt "go.etcd.io/bbolt"

	"github.com/DocHatty/vulpes-celare/internal/redact"
	"github.com/DocHatty/vulpes-celare/internal/semcache"
	"github.com/DocHatty/vulpes-celare/internal/testdetectors"
	"github.com/DocHatty/vulpes-celare/internal/whitelist"
)

func main() {
	reportFlag := flag.Bool("report", false, "print the full execution report as JSON to stderr")
	policyHashFlag := flag.String("policy-hash", "", "override the configured policy hash used as the cache key")
	documentTypeFlag := flag.String("document-type", "", "adaptive context document type (e.g. ADMISSION_NOTE)")
	flag.Parse()

	cfg := config.Load()
	if *policyHashFlag != "" {
		cfg.PolicyHash = *policyHashFlag
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[CONFIG] invalid configuration: %v", err)
	}

	lg := logger.New("ORCHESTRATOR", cfg.LogLevel)
	m := metrics.New()

	if addr := os.Getenv("VULPES_METRICS_ADDR"); addr != "" {
		reg := prometheus.NewRegistry()
		m.RegisterPrometheus(reg)
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		go func() {
			lg.Infof("metrics_listen", "serving /metrics on %s", addr)
			if err := http.ListenAndServe(addr, mux); err != nil { //nolint:gosec // G114: batch CLI, no externally-facing timeouts needed
				lg.Errorf("metrics_listen", "%v", err)
			}
		}()
	}

	cache, closeCache, err := openCache(cfg.CacheFile)
	if err != nil {
		lg.Warnf("cache_open", "semantic cache disabled: %v", err)
	}
	if closeCache != nil {
		defer closeCache()
	}

	orch := redact.New(redact.Options{
		PolicyHash:            cfg.PolicyHash,
		EnableWorkerPool:      cfg.EnableWorkerPool,
		EnableDFAScan:         cfg.EnableDFAScan,
		EnableSemanticCache:   cfg.EnableSemanticCache && cache != nil,
		EnableContextModifier: cfg.EnableContextModifier,
		TokenStyle:            tokenStyleFromConfig(cfg.TokenStyle),
		Vocabularies: whitelist.Vocabularies{
			Medical:   whitelist.NewMapVocabulary(),
			Hospital:  whitelist.NewMapVocabulary(),
			Insurance: whitelist.NewMapVocabulary(),
			NonPHI:    whitelist.NewMapVocabulary(),
		},
		Metrics: m,
		Logger:  lg,
	}, cache, nil)

	text, err := readInput(flag.Args())
	if err != nil {
		lg.Fatalf("read_input", "%v", err)
	}

	redacted, spans, report, err := orch.Redact(context.Background(), text, testdetectors.All(), defaultPolicy(), detect.AdaptiveContext{
		DocumentType: *documentTypeFlag,
	})
	if err != nil {
		lg.Fatalf("redact", "%v", err)
	}

	fmt.Println(redacted)
	lg.Infof("redact_summary", "correlation_id=%s spans_applied=%d duration_ms=%.2f", report.CorrelationID, len(spans), report.TotalExecutionMs)

	if *reportFlag {
		enc := json.NewEncoder(os.Stderr)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			lg.Errorf("report_encode", "%v", err)
		}
	}
}

// defaultPolicy enables every example detector; a real deployment supplies
// its own policy.identifiers map per spec §6.
func defaultPolicy() detect.Policy {
	policy := detect.Policy{}
	for _, d := range testdetectors.All() {
		policy[d.FilterType()] = detect.Config{Enabled: true}
	}
	return policy
}

func tokenStyleFromConfig(s string) apply.TokenStyle {
	if s == "hash" {
		return apply.TokenStyleHash
	}
	return apply.TokenStyleCounter
}

// openCache opens the shared bbolt-backed semantic cache store, wrapped in
// the S3-FIFO eviction layer. When the file cannot be opened it returns a
// nil cache, a nil close func and the error; main logs that error and runs
// without a semantic cache, just slower.
func openCache(path string) (*semcache.Service, func(), error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	store, err := semcache.NewBoltStore(db)
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("init store: %w", err)
	}
	s3fifo := semcache.NewS3FIFOStore(store, semcache.DefaultCapacity)
	svc := semcache.NewService(s3fifo)
	return svc, func() {
		if err := svc.Close(); err != nil {
			log.Printf("[CACHE] close error: %v", err)
		}
	}, nil
}

func readInput(args []string) (string, error) {
	if len(args) > 0 {
		data, err := os.ReadFile(args[0]) //nolint:gosec // G304: CLI argument is an intentional, operator-supplied path
		if err != nil {
			return "", fmt.Errorf("read %s: %w", args[0], err)
		}
		return string(data), nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(data), nil
}
