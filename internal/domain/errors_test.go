package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationError(t *testing.T) {
	t.Parallel()

	single := NewValidationError("complaintImage", "image is required")
	assert.Equal(t, "validation: complaintImage: image is required", single.Error())
	assert.ErrorIs(t, single, ErrValidation)

	multi := NewValidationErrors([]FieldError{
		{Field: "complaintDescription", Message: "required"},
		{Field: "complaintLocation", Message: "required"},
	})
	assert.Equal(t, "validation: 2 errors", multi.Error())
	assert.Equal(t, map[string]string{
		"complaintDescription": "required",
		"complaintLocation":    "required",
	}, multi.Fields())

	wrapped := fmt.Errorf("create complaint: %w", multi)
	var ve *ValidationError
	assert.True(t, errors.As(wrapped, &ve))
	assert.Len(t, ve.Errors, 2)
}

func TestHelpers(t *testing.T) {
	t.Parallel()

	assert.ErrorIs(t, Forbidden("not the owner"), ErrForbidden)
	assert.EqualError(t, Forbidden("not the owner"), "forbidden: not the owner")
	assert.ErrorIs(t, NotFound("complaint"), ErrNotFound)
	assert.EqualError(t, NotFound("complaint"), "complaint not found")
}

func TestSentinelErrors_AreDistinct(t *testing.T) {
	t.Parallel()

	sentinels := []error{
		ErrNotFound, ErrValidation, ErrUnauthorized,
		ErrForbidden, ErrConflict, ErrClassificationUnavailable,
	}
	for i, a := range sentinels {
		for j, b := range sentinels {
			if i != j {
				assert.False(t, errors.Is(a, b), "sentinels %d and %d should not match", i, j)
			}
		}
	}
}
