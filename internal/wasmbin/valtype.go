// Package wasmbin is a minimal WASM 1.0+GC+reference-types binary
// encoder: it accepts a sequence of typed Instructions plus section
// contents and produces module bytes. No actively maintained Go module
// exposes this as a standalone importable API — tetratelabs/wazero's
// encoder lives in its unexported internal/wasm package, and
// wasmtime-go/wasmer-go are runtimes, not encoders — so this package is
// hand-written, shaped section-for-section after wazero's wasm.Module
// (TypeSection/ImportSection/.../DataSection, in that order) and
// following the teacher's own binary-format convention of a magic
// number plus version written with encoding/binary
// (buildutil.BytecodeFile.Serialize).
package wasmbin

// ValueType is the binary encoding of a WASM value type.
type ValueType byte

const (
	ValueTypeI32      ValueType = 0x7F
	ValueTypeI64      ValueType = 0x7E
	ValueTypeF32      ValueType = 0x7D
	ValueTypeF64      ValueType = 0x7C
	ValueTypeFuncref  ValueType = 0x70
	ValueTypeExternref ValueType = 0x6F
)

// FunctionType is a WASM function signature; deduplicated by the type
// registry (§4.7).
type FunctionType struct {
	Params  []ValueType
	Results []ValueType
}

// Equal reports structural equality, used by the type registry to
// dedupe identical signatures to one TypeSection entry.
func (f FunctionType) Equal(other FunctionType) bool {
	if len(f.Params) != len(other.Params) || len(f.Results) != len(other.Results) {
		return false
	}
	for i := range f.Params {
		if f.Params[i] != other.Params[i] {
			return false
		}
	}
	for i := range f.Results {
		if f.Results[i] != other.Results[i] {
			return false
		}
	}
	return true
}
