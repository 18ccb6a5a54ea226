package gen

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for common failure cases.
var (
	// ErrInvalidConfig indicates a configuration error.
	ErrInvalidConfig = errors.New("fhirgen: invalid configuration")
	// ErrGenerationFailed indicates a code generation failure.
	ErrGenerationFailed = errors.New("fhirgen: code generation failed")
	// ErrSnapshotFormat indicates an unknown snapshot encoding.
	ErrSnapshotFormat = errors.New("fhirgen: unknown snapshot format")
)

// ConfigError reports an option rejected while building a Config.
type ConfigError struct {
	Option  string
	Value   any
	Message string
}

func (e *ConfigError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("fhirgen: invalid %s (%v): %s", e.Option, e.Value, e.Message)
	}
	return fmt.Sprintf("fhirgen: invalid %s: %s", e.Option, e.Message)
}

// Is matches ErrInvalidConfig.
func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalidConfig
}

// NewConfigError returns a ConfigError for the named option.
func NewConfigError(option string, value any, message string) *ConfigError {
	return &ConfigError{Option: option, Value: value, Message: message}
}

// Phase names the generator step that failed.
type Phase string

// Generator phases.
const (
	PhaseRender Phase = "render"
	PhaseFormat Phase = "format"
	PhaseWrite  Phase = "write"
)

// GenerationError reports a failure while emitting one file.
type GenerationError struct {
	Phase   Phase
	File    string
	Message string
	Cause   error
}

// Error formats as "fhirgen: <phase> <file>: <message>: <cause>",
// omitting the empty parts.
func (e *GenerationError) Error() string {
	parts := []string{"fhirgen: " + string(e.Phase)}
	if e.File != "" {
		parts[0] += " " + e.File
	}
	if e.Message != "" {
		parts = append(parts, e.Message)
	}
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}
	return strings.Join(parts, ": ")
}

func (e *GenerationError) Unwrap() error {
	return e.Cause
}

// Is matches ErrGenerationFailed.
func (e *GenerationError) Is(target error) bool {
	return target == ErrGenerationFailed
}

// NewGenerationError returns a GenerationError.
func NewGenerationError(phase Phase, file, message string, cause error) *GenerationError {
	return &GenerationError{Phase: phase, File: file, Message: message, Cause: cause}
}

// IsConfigError reports whether err is, or wraps, a ConfigError.
func IsConfigError(err error) bool {
	var configErr *ConfigError
	return errors.As(err, &configErr)
}

// IsGenerationError reports whether err is, or wraps, a GenerationError.
func IsGenerationError(err error) bool {
	var genErr *GenerationError
	return errors.As(err, &genErr)
}
