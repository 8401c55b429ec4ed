package wasmbin

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeHeader(t *testing.T) {
	m := &Module{MemoryMinPages: 1}
	out := Encode(m)
	assert.Equal(t, []byte{0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00}, out[:8])
}

func TestEncodeSimpleFunction(t *testing.T) {
	m := &Module{
		Types: []FunctionType{{Results: []ValueType{ValueTypeI32}}},
		Functions: []Function{
			{TypeIndex: 0, Body: []Instruction{I32Const(42)}, Export: "answer"},
		},
		MemoryMinPages: 1,
		ExportMemory:   true,
	}
	out := Encode(m)
	assert.NotEmpty(t, out)
	// Type section id is 1 and must appear right after the 8-byte header.
	assert.Equal(t, byte(sectionType), out[8])
}

func TestLeb128RoundTripShape(t *testing.T) {
	assert.Equal(t, []byte{0x00}, putUleb128(nil, 0))
	assert.Equal(t, []byte{0xE5, 0x8E, 0x26}, putUleb128(nil, 624485))
	assert.Equal(t, []byte{0x00}, putSleb128(nil, 0))
	assert.Equal(t, []byte{0x7F}, putSleb128(nil, -1))
}
