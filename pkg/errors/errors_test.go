package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPredicates(t *testing.T) {
	nf := NotFoundf("patient with id=%d not found", 7)
	assert.True(t, IsNotFound(nf))
	assert.False(t, IsInvalidInput(nf))
	assert.Equal(t, "patient with id=7 not found", nf.Error())

	wrapped := fmt.Errorf("handler: %w", InvalidInput("Name cannot be empty", nil))
	assert.True(t, IsInvalidInput(wrapped))
	assert.Equal(t, ErrInvalidInput, Code(wrapped))

	cause := errors.New("disk full")
	internal := Internal(cause)
	assert.True(t, IsInternal(internal))
	assert.ErrorIs(t, internal, cause)
	assert.Equal(t, "internal error: disk full", internal.Error())

	assert.Equal(t, ErrInternal, Code(cause))
	assert.False(t, IsNotFound(cause))
}

func TestErrorCodeString(t *testing.T) {
	assert.Equal(t, "NOT_FOUND", ErrNotFound.String())
	assert.Equal(t, "INVALID_INPUT", ErrInvalidInput.String())
	assert.Equal(t, "INTERNAL", ErrInternal.String())
	assert.Equal(t, "ErrorCode(1)", ErrorCode(1).String())
}
