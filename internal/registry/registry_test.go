package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"scratchc/internal/wasmbin"
)

func TestTableDedupes(t *testing.T) {
	tbl := New[string, int]()
	a := tbl.RegisterOverride("x", 1)
	b := tbl.RegisterOverride("x", 2) // second registration ignored
	assert.Equal(t, a, b)
	assert.Equal(t, 1, tbl.Get(a))
	assert.Equal(t, 1, tbl.Len())
}

func TestRegisterType(t *testing.T) {
	r := NewRegistries()
	ft1 := wasmbin.FunctionType{Params: []wasmbin.ValueType{wasmbin.ValueTypeI32}}
	ft2 := wasmbin.FunctionType{Params: []wasmbin.ValueType{wasmbin.ValueTypeI32}}
	i1 := r.RegisterType(ft1)
	i2 := r.RegisterType(ft2)
	assert.Equal(t, i1, i2)
	assert.Len(t, r.Types.Finalize(), 1)
}

func TestRegisterString(t *testing.T) {
	r := NewRegistries()
	a := r.RegisterString("hello")
	b := r.RegisterString("world")
	c := r.RegisterString("hello")
	assert.Equal(t, a, c)
	assert.NotEqual(t, a, b)
}
