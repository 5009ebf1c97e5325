package services

import (
	"errors"
	"fmt"
	"strings"
)

// Failure markers. Every error surfaced by the capture pipeline wraps exactly
// one of these so callers can classify it with errors.Is.
var (
	ErrConfiguration     = errors.New("configuration error")
	ErrWriterConfig      = errors.New("writer configuration error")
	ErrWriteFinalize     = errors.New("write finalize error")
	ErrEmptySegments     = errors.New("no segments to merge")
	ErrExport            = errors.New("export error")
	ErrUpload            = errors.New("upload error")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrExternalTool      = errors.New("external tool error")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrExternalTool
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Retryable reports whether an operation that failed with err could succeed if
// the user repeats it without changing configuration. Nothing in the pipeline
// retries automatically; the CLI uses this to phrase its hint.
func Retryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrConfiguration), errors.Is(err, ErrWriterConfig), errors.Is(err, ErrInvalidTransition):
		return false
	default:
		return true
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "pipeline failure"
	}
	return strings.Join(parts, ": ")
}
