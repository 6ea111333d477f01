// Package config loads and holds all redactor configuration.
// Settings are layered: defaults → redactor-config.json → environment
// variables (env vars win), kept in the exact layering and file shape the
// teacher's own config.go uses for the proxy.
package config

import (
	"encoding/json"
	"log"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Config holds the full redactor configuration (spec §6's environment
// flags plus the persistence paths the semantic cache and threshold
// feedback store need).
type Config struct {
	Workers               int  `json:"workers" validate:"gte=0"`
	EnableWorkerPool      bool `json:"enableWorkerPool"`
	EnableDFAScan         bool `json:"enableDFAScan"`
	EnableSemanticCache   bool `json:"enableSemanticCache"`
	EnableContextModifier bool `json:"enableContextModifier"`
	ShadowPostfilter      bool `json:"shadowPostfilter"`
	ShadowApplyKernel     bool `json:"shadowApplyKernel"`

	LogLevel string `json:"logLevel"`

	CacheFile  string `json:"cacheFile"` // shared bbolt path: semantic cache + threshold feedback
	PolicyHash string `json:"policyHash"`

	TokenStyle string `json:"tokenStyle" validate:"omitempty,oneof=counter hash"`
}

// Validate runs struct-tag validation over cfg (spec §7: a misconfigured
// engine fails fast at startup with a single structured reason, the
// ConfigInvalid half of the error taxonomy redact.Error also implements).
func (cfg *Config) Validate() error {
	return validate.Struct(cfg)
}

// Load returns config with defaults overridden by redactor-config.json and
// env vars.
func Load() *Config {
	cfg := defaults()
	loadFile(cfg, "redactor-config.json")
	loadEnv(cfg)
	return cfg
}

func defaults() *Config {
	return &Config{
		Workers:               0, // 0 => runtime.NumCPU()-1
		EnableWorkerPool:      false,
		EnableDFAScan:         false,
		EnableSemanticCache:   true,
		EnableContextModifier: false,
		LogLevel:              "info",
		CacheFile:             "redactor-cache.db",
		PolicyHash:            "default",
		TokenStyle:            "counter",
	}
}

func loadFile(cfg *Config, path string) {
	data, err := os.ReadFile(path) //nolint:gosec // G703: path is a controlled config file path, not user input
	if err != nil {
		return // file is optional
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		log.Printf("[CONFIG] Warning: could not parse %s: %v", path, err)
	} else {
		log.Printf("[CONFIG] Loaded %s", path)
	}
}

// loadEnv applies the environment flags from spec §6, one
// if v := os.Getenv(...) per flag, following the teacher's layering (env
// wins over file, file wins over defaults).
func loadEnv(cfg *Config) {
	if v := os.Getenv("VULPES_WORKERS"); v != "" {
		cfg.EnableWorkerPool = v != "0"
		if n, err := strconv.Atoi(v); err == nil && n > 1 {
			cfg.Workers = n
		}
	}
	if v := os.Getenv("VULPES_DFA_SCAN"); v == "1" {
		cfg.EnableDFAScan = true
	}
	if v := os.Getenv("VULPES_SEMANTIC_CACHE"); v != "" {
		cfg.EnableSemanticCache = v != "0"
	}
	if v := os.Getenv("VULPES_CONTEXT_MODIFIER"); v == "1" {
		cfg.EnableContextModifier = true
	}
	if v := os.Getenv("VULPES_SHADOW_POSTFILTER"); v == "1" {
		cfg.ShadowPostfilter = true
	}
	if v := os.Getenv("VULPES_SHADOW_APPLY"); v == "1" {
		cfg.ShadowApplyKernel = true
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("VULPES_CACHE_FILE"); v != "" {
		cfg.CacheFile = v
	}
	if v := os.Getenv("VULPES_POLICY_HASH"); v != "" {
		cfg.PolicyHash = v
	}
	if v := os.Getenv("VULPES_TOKEN_STYLE"); v == "counter" || v == "hash" {
		cfg.TokenStyle = v
	}
}
