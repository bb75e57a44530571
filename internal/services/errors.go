package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrExternalTool    = errors.New("external tool error")
	ErrValidation      = errors.New("validation error")
	ErrConfiguration   = errors.New("configuration error")
	ErrNotFound        = errors.New("not found")
	ErrTimeout         = errors.New("timeout")
	ErrTransient       = errors.New("transient failure")
	ErrMalformedInput  = errors.New("malformed input")
	ErrMissingIdentity = errors.New("missing session identity")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// ErrorDetails summarizes a wrapped stage error for logging and persistence.
type ErrorDetails struct {
	Kind    string
	Message string
	Cause   error
}

// Details unwraps the sentinel marker from an error produced by Wrap. The
// message excludes the marker prefix so operators see the stage context first.
func Details(err error) ErrorDetails {
	if err == nil {
		return ErrorDetails{}
	}
	details := ErrorDetails{Message: err.Error(), Cause: err}
	for marker, kind := range markerKinds {
		if errors.Is(err, marker) {
			details.Kind = kind
			details.Message = strings.TrimSpace(strings.TrimPrefix(details.Message, marker.Error()+":"))
			break
		}
	}
	return details
}

// Retryable reports whether an error represents a condition worth retrying.
// Validation, configuration, and identity failures never succeed on retry.
func Retryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrValidation),
		errors.Is(err, ErrConfiguration),
		errors.Is(err, ErrMalformedInput),
		errors.Is(err, ErrMissingIdentity):
		return false
	default:
		return true
	}
}

var markerKinds = map[error]string{
	ErrExternalTool:    "external_tool",
	ErrValidation:      "validation",
	ErrConfiguration:   "configuration",
	ErrNotFound:        "not_found",
	ErrTimeout:         "timeout",
	ErrTransient:       "transient",
	ErrMalformedInput:  "malformed_input",
	ErrMissingIdentity: "missing_identity",
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
