package registry

import (
	"github.com/google/uuid"

	"scratchc/internal/wasmbin"
)

// funcTypeKey is a comparable rendering of a wasmbin.FunctionType, used
// to key the Types table (FunctionType itself has slice fields and so
// cannot be a Go map key directly).
type funcTypeKey string

func keyFor(ft wasmbin.FunctionType) funcTypeKey {
	b := make([]byte, 0, len(ft.Params)+len(ft.Results)+1)
	for _, p := range ft.Params {
		b = append(b, byte(p))
	}
	b = append(b, '>')
	for _, r := range ft.Results {
		b = append(b, byte(r))
	}
	return funcTypeKey(b)
}

// Registries bundles every dedup table the code generator needs. One
// Registries is built per compilation.
type Registries struct {
	Types   *Table[funcTypeKey, wasmbin.FunctionType]
	Imports *Table[string, wasmbin.Import] // keyed by "module.name"
	Globals *Table[string, wasmbin.Global] // keyed by a synthetic name
	Helpers *Table[string, HelperFunction] // keyed by helper name
	Strings *Table[string, int]            // string constant -> strings-table slot

	// Variables maps a Variable identity to the global index that holds
	// it. Lists maps a List identity to a dense slot number (the list's
	// block within the lists region of linear memory); lists get no WASM
	// global.
	Variables map[uuid.UUID]int
	Lists     map[uuid.UUID]int
}

// HelperFunction is a compiler-synthesised WASM function not tied to any
// single Step (e.g. shared boxing/unboxing helpers), keyed by name.
type HelperFunction struct {
	TypeIndex uint32
	Locals    []wasmbin.ValueType
	Body      []wasmbin.Instruction
}

// NewRegistries allocates an empty Registries.
func NewRegistries() *Registries {
	return &Registries{
		Types:     New[funcTypeKey, wasmbin.FunctionType](),
		Imports:   New[string, wasmbin.Import](),
		Globals:   New[string, wasmbin.Global](),
		Helpers:   New[string, HelperFunction](),
		Strings:   New[string, int](),
		Variables: make(map[uuid.UUID]int),
		Lists:     make(map[uuid.UUID]int),
	}
}

// RegisterType dedupes ft and returns its TypeSection index.
func (r *Registries) RegisterType(ft wasmbin.FunctionType) uint32 {
	return uint32(r.Types.RegisterOverride(keyFor(ft), ft))
}

// RegisterImport dedupes a (module, name) function import and returns
// its function-index-space slot is NOT computed here (that depends on
// import ordering relative to defined functions); this only returns the
// ImportSection index.
func (r *Registries) RegisterImport(im wasmbin.Import) int {
	return r.Imports.RegisterOverride(im.Module+"."+im.Name, im)
}

// RegisterString interns s, returning its slot in the strings table.
func (r *Registries) RegisterString(s string) int {
	return r.Strings.RegisterOverride(s, r.Strings.Len())
}

// VariableGlobal returns the global index backing v, registering a new
// one (of WASM type vt) on first use.
func (r *Registries) VariableGlobal(id uuid.UUID, alloc func() int) int {
	if i, ok := r.Variables[id]; ok {
		return i
	}
	i := alloc()
	r.Variables[id] = i
	return i
}

// ListGlobal returns the slot number assigned to l, assigning a new one
// via alloc on first use.
func (r *Registries) ListGlobal(id uuid.UUID, alloc func() int) int {
	if i, ok := r.Lists[id]; ok {
		return i
	}
	i := alloc()
	r.Lists[id] = i
	return i
}
