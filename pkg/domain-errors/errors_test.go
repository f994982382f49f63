package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasCode(t *testing.T) {
	t.Run("direct error", func(t *testing.T) {
		err := New(CodeValidation, "stage already open")
		assert.True(t, HasCode(err, CodeValidation))
		assert.False(t, HasCode(err, CodeNotFound))
	})

	t.Run("wrapped error", func(t *testing.T) {
		inner := New(CodeConflict, "duplicate outcome")
		err := fmt.Errorf("allocator pass: %w", inner)
		assert.True(t, HasCode(err, CodeConflict))
	})

	t.Run("uncoded error", func(t *testing.T) {
		assert.False(t, HasCode(errors.New("boom"), CodeInternal))
		assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
	})
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("driver: connection reset")
	err := Wrap(cause, CodeInternal, "failed to persist outcome")

	require.ErrorIs(t, err, cause)
	assert.Equal(t, CodeInternal, CodeOf(err))
	assert.Contains(t, err.Error(), "failed to persist outcome")
}

func TestFieldDetails(t *testing.T) {
	err := New(CodeValidation, "stage rejected").
		WithField("multiplier", "must be at least 1").
		WithField("number", "stage 0 requires multiplier 1")

	fields := FieldsOf(err)
	require.Len(t, fields, 2)
	assert.Equal(t, "multiplier", fields[0].Field)
	assert.Equal(t, "stage 0 requires multiplier 1", fields[1].Message)
}
