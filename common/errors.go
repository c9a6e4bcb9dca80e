package common

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError rejects a request before any state is mutated.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// NewValidationError formats a ValidationError.
func NewValidationError(format string, args ...interface{}) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// NotFoundError reports a missing record.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

// NewNotFoundError builds a NotFoundError for the given record kind.
func NewNotFoundError(kind, id string) error {
	return &NotFoundError{Kind: kind, ID: id}
}

// ProviderError wraps a failure of an external collaborator (LLM, TTS, storage, media engine).
type ProviderError struct {
	Provider string
	Op       string
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %s", e.Provider, ErrorMessage(e.Err))
	}
	return fmt.Sprintf("%s %s: %s", e.Provider, e.Op, ErrorMessage(e.Err))
}

func (e *ProviderError) Unwrap() error { return e.Err }

// NewProviderError wraps err, returning nil when err is nil.
// An err that is already a ProviderError is returned unchanged.
func NewProviderError(provider, op string, err error) error {
	if err == nil {
		return nil
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return err
	}
	return &ProviderError{Provider: provider, Op: op, Err: err}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsProvider reports whether err is (or wraps) a ProviderError.
func IsProvider(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe)
}

// ErrorMessage extracts a human-readable message from an arbitrary value,
// such as an error, a string, a recovered panic value or nil.
func ErrorMessage(v interface{}) string {
	switch e := v.(type) {
	case nil:
		return "unknown error"
	case error:
		if msg := strings.TrimSpace(e.Error()); msg != "" {
			return msg
		}
		return "unknown error"
	case string:
		if msg := strings.TrimSpace(e); msg != "" {
			return msg
		}
		return "unknown error"
	case fmt.Stringer:
		return e.String()
	default:
		return fmt.Sprintf("%v", e)
	}
}
