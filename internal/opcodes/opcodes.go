// Package opcodes is the opcode catalogue (§4.2): one definition per
// supported Scratch block plus the synthetic ops, each exposing
// acceptable_inputs, output_type and wasm as specified. Dispatch is a
// single flat map from ir.Kind to Def, filled by each file's init
// function rather than by a build-time generator; a Kind with no entry
// is reported as Unimplemented.
package opcodes

import (
	cerr "scratchc/internal/errors"
	"scratchc/internal/ir"
	"scratchc/internal/types"
	"scratchc/internal/wasmbin"
)

// FuncCtx is the subset of per-function codegen state an opcode's wasm
// function needs: fresh local allocation and the global/import/string
// registries, without opcodes importing codegen (which imports
// opcodes), avoiding an import cycle.
type FuncCtx interface {
	// NewLocal allocates a fresh function-local of type t and returns
	// its local index.
	NewLocal(t wasmbin.ValueType) uint32
	// VariableSlot returns the index backing v (a function-local index
	// when v.Local is set, else a global index) and the WASM value type
	// it is stored as (a base type's WASM lowering, or i64 for a boxed
	// variable), allocating the slot on first use.
	VariableSlot(v *ir.Variable) (index uint32, valType wasmbin.ValueType)
	// ListSlot returns the dense slot number of l's block within the
	// lists region of linear memory, assigning it on first use.
	ListSlot(l *ir.List) uint32
	// ArgLocal returns the local index holding the i'th argument of the
	// enclosing procedure.
	ArgLocal(i int) uint32
	// Import returns the function-index-space index of an imported
	// function, registering the import on first use.
	Import(module, name string, sig wasmbin.FunctionType) uint32
	// StringIndex interns s into the strings table and returns its slot.
	StringIndex(s string) uint32
	// BoxArenaNext returns the global index of the shared mutable i32
	// bump-pointer that hands out fresh strings-table slots for
	// runtime-computed (non-literal) boxed strings — see boxToI64's
	// externref case.
	BoxArenaNext() uint32
	// ListsBase returns the linear-memory byte offset where the lists
	// region begins — see data_list.go.
	ListsBase() uint32
}

// Def is an opcode's full contract: the three pure functions §4.2
// specifies, plus whether this opcode must be the last effect in its
// Step during non-warped execution (§4.3 screen-refresh discipline).
type Def struct {
	AcceptableInputs func(f ir.Fields) ([]types.Type, error)
	OutputType       func(inputs []types.Type, f ir.Fields) (ir.ReturnType, error)
	Wasm             func(ctx FuncCtx, inputs []types.Type, f ir.Fields) ([]wasmbin.Instruction, error)
	RequestsScreenRefresh bool
}

var catalogue = map[ir.Kind]Def{}

func register(k ir.Kind, d Def) {
	catalogue[k] = d
}

// Lookup returns the Def for k, and true, or a zero Def and false if k
// has no catalogue entry (either a structural opcode the code generator
// handles directly, or simply unrecognised).
func Lookup(k ir.Kind) (Def, bool) {
	d, ok := catalogue[k]
	return d, ok
}

// AcceptableInputs calls the registered opcode's acceptable_inputs, or
// fails with Unimplemented if k has no catalogue entry.
func AcceptableInputs(k ir.Kind, f ir.Fields) ([]types.Type, error) {
	d, ok := Lookup(k)
	if !ok {
		return nil, cerr.NewUnimplemented("opcode kind %d has no acceptable_inputs", k)
	}
	return d.AcceptableInputs(f)
}

// OutputType calls the registered opcode's output_type, or fails with
// Unimplemented if k has no catalogue entry.
func OutputType(k ir.Kind, inputs []types.Type, f ir.Fields) (ir.ReturnType, error) {
	d, ok := Lookup(k)
	if !ok {
		return ir.ReturnType{}, cerr.NewUnimplemented("opcode kind %d has no output_type", k)
	}
	return d.OutputType(inputs, f)
}

// Wasm calls the registered opcode's wasm emitter, or fails with
// Unimplemented if k has no catalogue entry.
func Wasm(k ir.Kind, ctx FuncCtx, inputs []types.Type, f ir.Fields) ([]wasmbin.Instruction, error) {
	d, ok := Lookup(k)
	if !ok {
		return nil, cerr.NewUnimplemented("opcode kind %d has no wasm emitter", k)
	}
	return d.Wasm(ctx, inputs, f)
}

// RequestsScreenRefresh reports whether k must be the last effect in its
// Step during non-warped execution.
func RequestsScreenRefresh(k ir.Kind) bool {
	d, ok := Lookup(k)
	return ok && d.RequestsScreenRefresh
}
