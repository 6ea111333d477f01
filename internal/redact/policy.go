// policy.go — the caller-supplied redaction policy and the request-level
// document context, validated with go-playground/validator struct tags
// (grounded on jordigilh-kubernaut's and jinterlante1206-AleutianLocal's
// validator.New()/Struct() idiom).
package redact

import (
	"github.com/go-playground/validator/v10"

	"github.com/DocHatty/vulpes-celare/internal/apply"
	"github.com/DocHatty/vulpes-celare/internal/detect"
)

var validate = validator.New()

// Request is one redaction request (spec §6's `redact(text, detectors,
// policy, context)` arguments bundled for validation).
type Request struct {
	Text       string                 `validate:"required"`
	Policy     detect.Policy          `validate:"-"`
	Adaptive   detect.AdaptiveContext `validate:"-"`
	SessionID  string                 `validate:"omitempty"`
	TokenStyle TokenStyleName         `validate:"omitempty,oneof=counter hash"`
}

// TokenStyleName names the requested apply-kernel token syntax (spec §6:
// "[{TYPE}_{counter}] or [{TYPE}_{hash12}] depending on policy").
type TokenStyleName string

const (
	TokenStyleNameCounter TokenStyleName = "counter"
	TokenStyleNameHash    TokenStyleName = "hash"
)

// Validate runs struct-tag validation over req, returning the single
// structured ValidationFailed error spec §7 calls for on the first
// failure. correlationID is folded in so the returned error matches the
// ExecutionReport of the request being validated.
func (req *Request) Validate(correlationID string) error {
	if err := validate.Struct(req); err != nil {
		e := newError(ErrValidationFailed, "request validation failed", "check the field(s) named in the validator error and retry", err)
		e.CorrelationID = correlationID
		return e
	}
	return nil
}

// tokenStyleName maps the internal apply.TokenStyle enum back to the
// request-facing TokenStyleName the validator's oneof tag checks.
func tokenStyleName(s apply.TokenStyle) TokenStyleName {
	if s == apply.TokenStyleHash {
		return TokenStyleNameHash
	}
	return TokenStyleNameCounter
}
