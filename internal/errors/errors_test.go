package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorString(t *testing.T) {
	e := NewMalformedProject("missing field %q", "proccode").WithFrame("Step#3")
	assert.Contains(t, e.Error(), "MalformedProject")
	assert.Contains(t, e.Error(), "proccode")
	assert.Contains(t, e.Error(), "Step#3")
}

func TestIsKind(t *testing.T) {
	var err error = NewUnimplemented("data_itemoflist with non-integer index")
	assert.True(t, errors.Is(err, ErrUnimplemented))
	assert.False(t, errors.Is(err, ErrMalformedProject))
}

func TestInternalErrorLocation(t *testing.T) {
	e := NewInternalError("ssa/propagate.go", 42, "stack underflow")
	assert.Equal(t, "ssa/propagate.go:42:0", e.Location.String())
}
