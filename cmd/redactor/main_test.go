package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/DocHatty/vulpes-celare/internal/apply"
)

func TestTokenStyleFromConfig(t *testing.T) {
	if tokenStyleFromConfig("hash") != apply.TokenStyleHash {
		t.Error("expected hash style for \"hash\"")
	}
	if tokenStyleFromConfig("counter") != apply.TokenStyleCounter {
		t.Error("expected counter style for \"counter\"")
	}
	if tokenStyleFromConfig("") != apply.TokenStyleCounter {
		t.Error("expected counter style as the fallback default")
	}
}

func TestDefaultPolicyEnablesEveryExampleDetector(t *testing.T) {
	policy := defaultPolicy()
	if len(policy) == 0 {
		t.Fatal("expected a non-empty default policy")
	}
	for ft, cfg := range policy {
		if !cfg.Enabled {
			t.Errorf("expected %s enabled by default", ft)
		}
	}
}

func TestReadInputFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "note.txt")
	if err := os.WriteFile(path, []byte("patient note text"), 0o600); err != nil {
		t.Fatal(err)
	}

	got, err := readInput([]string{path})
	if err != nil {
		t.Fatalf("readInput: %v", err)
	}
	if got != "patient note text" {
		t.Errorf("got %q", got)
	}
}

func TestReadInputMissingFile(t *testing.T) {
	_, err := readInput([]string{"/nonexistent/path/note.txt"})
	if err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestOpenCacheUnwritableDirReturnsError(t *testing.T) {
	_, closeFn, err := openCache("/nonexistent/dir/cache.db")
	if err == nil {
		t.Error("expected an error opening a cache file in a nonexistent directory")
	}
	if closeFn != nil {
		t.Error("expected a nil close func on failure")
	}
}

func TestOpenCacheValidPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cache.db")

	svc, closeFn, err := openCache(path)
	if err != nil {
		t.Fatalf("openCache: %v", err)
	}
	if svc == nil {
		t.Fatal("expected a non-nil cache service")
	}
	if closeFn != nil {
		closeFn()
	}
}
