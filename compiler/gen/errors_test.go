package gen

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigError(t *testing.T) {
	t.Run("Error message with value", func(t *testing.T) {
		err := NewConfigError("Workers", 0, "workers must be positive")

		assert.Equal(t, "fhirgen: invalid Workers (0): workers must be positive", err.Error())
	})

	t.Run("Error message without value", func(t *testing.T) {
		err := NewConfigError("Package", nil, "cannot be empty")

		assert.Equal(t, "fhirgen: invalid Package: cannot be empty", err.Error())
	})

	t.Run("Is matches ErrInvalidConfig", func(t *testing.T) {
		err := NewConfigError("Target", nil, "missing")
		assert.True(t, errors.Is(err, ErrInvalidConfig))
		assert.False(t, errors.Is(err, ErrGenerationFailed))
	})

	t.Run("IsConfigError helper", func(t *testing.T) {
		err := NewConfigError("Target", nil, "missing")
		assert.True(t, IsConfigError(err))
		assert.False(t, IsConfigError(errors.New("other")))
	})
}

func TestGenerationError(t *testing.T) {
	t.Run("Error message with all fields", func(t *testing.T) {
		cause := errors.New("disk full")
		err := NewGenerationError(PhaseWrite, "patient.go", "cannot write", cause)

		assert.Equal(t, "fhirgen: write patient.go: cannot write: disk full", err.Error())
	})

	t.Run("Error message with phase only", func(t *testing.T) {
		err := &GenerationError{Phase: PhaseRender}
		assert.Equal(t, "fhirgen: render", err.Error())
	})

	t.Run("Unwrap returns cause", func(t *testing.T) {
		cause := errors.New("root cause")
		err := NewGenerationError("format", "", "", cause)

		assert.Equal(t, cause, err.Unwrap())
		assert.True(t, errors.Is(err, cause))
		assert.True(t, errors.Is(err, ErrGenerationFailed))
	})

	t.Run("IsGenerationError helper", func(t *testing.T) {
		err := NewGenerationError("write", "x.go", "", nil)
		assert.True(t, IsGenerationError(err))
		assert.False(t, IsGenerationError(errors.New("other")))
	})
}
