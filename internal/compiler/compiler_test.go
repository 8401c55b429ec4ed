package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"

	cerr "scratchc/internal/errors"
	"scratchc/internal/sb3"
)

func TestCompileRejectsManualStringType(t *testing.T) {
	flags := DefaultFlags()
	flags.StringType = Manual

	_, err := Compile(&sb3.Project{}, flags)

	var ce *cerr.CompileError
	assert.ErrorAs(t, err, &ce)
	assert.Equal(t, cerr.Unimplemented, ce.Kind)
}

func TestDefaultFlags(t *testing.T) {
	f := DefaultFlags()
	assert.Equal(t, ExternRef, f.StringType)
	assert.True(t, f.Integers)
	assert.False(t, f.PrintIR)
}
