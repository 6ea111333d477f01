// errors.go — the orchestrator's structured error type (spec §7).
//
// Grounded on the teacher's plain fmt.Errorf("...: %w", err) wrapping
// idiom throughout internal/proxy and internal/anonymizer: the teacher
// never imports a third-party errors-wrapping package (github.com/pkg/
// errors and github.com/go-faster/errors both appear elsewhere in the
// pack, but neither is a teacher habit to generalize), so Error here
// implements the standard error interface directly over stdlib.
package redact

import "fmt"

// ErrorKind enumerates the orchestrator-level error categories (spec §7).
type ErrorKind string

const (
	ErrConfigInvalid        ErrorKind = "CONFIG_INVALID"
	ErrValidationFailed     ErrorKind = "VALIDATION_FAILED"
	ErrDetectorFailure      ErrorKind = "DETECTOR_FAILURE"
	ErrOverlapConflict      ErrorKind = "OVERLAP_CONFLICT"
	ErrCacheCorruption      ErrorKind = "CACHE_CORRUPTION"
	ErrApplyKernelDivergence ErrorKind = "APPLY_KERNEL_DIVERGENCE"
	ErrTimeout              ErrorKind = "TIMEOUT"
	ErrPluginError          ErrorKind = "PLUGIN_ERROR"
)

// Error is the single structured error the orchestrator returns for
// request-fatal conditions (spec §7: "a single structured error carrying
// code, reason, resolution steps, and a correlation id").
type Error struct {
	Kind          ErrorKind
	Reason        string
	Resolution    string
	CorrelationID string
	Cause         error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (correlation_id=%s): %v", e.Kind, e.Reason, e.CorrelationID, e.Cause)
	}
	return fmt.Sprintf("%s: %s (correlation_id=%s)", e.Kind, e.Reason, e.CorrelationID)
}

func (e *Error) Unwrap() error { return e.Cause }

// newError builds an *Error with a fresh correlation id.
func newError(kind ErrorKind, reason, resolution string, cause error) *Error {
	return &Error{
		Kind:          kind,
		Reason:        reason,
		Resolution:    resolution,
		CorrelationID: newCorrelationID(),
		Cause:         cause,
	}
}
