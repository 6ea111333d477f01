package redact

import (
	"errors"
	"testing"

	"github.com/DocHatty/vulpes-celare/internal/apply"
)

func TestRequestValidateRequiresText(t *testing.T) {
	req := &Request{TokenStyle: TokenStyleNameCounter}
	err := req.Validate("corr-1")
	if err == nil {
		t.Fatal("expected an error for empty Text")
	}
	var rerr *Error
	if !errors.As(err, &rerr) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if rerr.Kind != ErrValidationFailed || rerr.CorrelationID != "corr-1" {
		t.Errorf("unexpected error: %+v", rerr)
	}
}

func TestRequestValidateRejectsUnknownTokenStyle(t *testing.T) {
	req := &Request{Text: "hello", TokenStyle: "rot13"}
	if err := req.Validate("corr-2"); err == nil {
		t.Fatal("expected an error for an unrecognized TokenStyle")
	}
}

func TestRequestValidatePasses(t *testing.T) {
	req := &Request{Text: "hello", TokenStyle: TokenStyleNameHash}
	if err := req.Validate("corr-3"); err != nil {
		t.Errorf("expected a valid request to pass, got %v", err)
	}
}

func TestTokenStyleName(t *testing.T) {
	if tokenStyleName(apply.TokenStyleHash) != TokenStyleNameHash {
		t.Error("expected hash style to map to TokenStyleNameHash")
	}
	if tokenStyleName(apply.TokenStyleCounter) != TokenStyleNameCounter {
		t.Error("expected counter style to map to TokenStyleNameCounter")
	}
}
