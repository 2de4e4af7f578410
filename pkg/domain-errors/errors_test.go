package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasCode(t *testing.T) {
	err := New(CodeNotFound, "credential not found")
	assert.True(t, HasCode(err, CodeNotFound))
	assert.False(t, HasCode(err, CodeConflict))
	assert.False(t, HasCode(nil, CodeNotFound))
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(CodeUnavailable, "store unreachable", cause)

	assert.True(t, HasCode(err, CodeUnavailable))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestHasCodeThroughFmtWrapping(t *testing.T) {
	inner := New(CodeConflict, "already revoked")
	outer := fmt.Errorf("revoking credential: %w", inner)
	assert.True(t, HasCode(outer, CodeConflict))
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeForbidden, CodeOf(New(CodeForbidden, "nope")))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain error")))
}

func TestMessageOf(t *testing.T) {
	require.Equal(t, "nope", MessageOf(New(CodeForbidden, "nope")))
	assert.NotEmpty(t, MessageOf(errors.New("plain error")))
}
