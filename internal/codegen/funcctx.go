package codegen

import (
	"github.com/google/uuid"

	cerr "scratchc/internal/errors"
	"scratchc/internal/ir"
	"scratchc/internal/opcodes"
	"scratchc/internal/registry"
	"scratchc/internal/wasmbin"
)

// funcCtx implements opcodes.FuncCtx for a single Step's compilation: it
// owns the growing local list for the function under construction and
// forwards every cross-function concern (globals, imports, the strings
// table) to the shared Registries, mirroring how the teacher's
// compregister.RegisterAllocator is handed to each function compiler in
// turn rather than rebuilt per call.
type funcCtx struct {
	regs *registry.Registries

	// params holds every WASM parameter this function declares, thread_ptr
	// first, then one boxed-i64 slot per procedure argument (§4.2's
	// GC-managed arg_struct is unavailable — wasmbin models no struct
	// type or struct.get/set instruction — so a warp procedure's
	// arguments are instead passed as ordinary extra i64 parameters; see
	// DESIGN.md).
	params []wasmbin.ValueType

	// locals holds every local beyond params, in declaration order;
	// NewLocal appends and returns len(locals)-1 offset by len(params).
	locals []wasmbin.ValueType

	// argLocals maps a procedure argument's position to the local (here,
	// parameter) index holding it. compileStepFunction populates this before
	// any opcode's Wasm is called, once per function.
	argLocals []uint32

	// localVars maps a Local (SSA-rebound) Variable's identity to the
	// local index allocated for it within this function. control_if_else
	// and control_loop bodies are always compiled as structured blocks
	// nested in their enclosing Step's own function (§4.6), so a Local
	// variable's lifetime never crosses a funcCtx boundary — it is always
	// safe to allocate it lazily, once, here.
	localVars map[uuid.UUID]uint32

	// steps resolves another Step's ID to its `steps`-table slot or
	// virtual call target; shared, read-only, across every funcCtx built
	// for one compilation.
	steps *stepTable

	// listsBase is the linear-memory byte offset where the lists region
	// begins, computed once from proj.Targets alone (§4.2/§4.6) before any
	// Step is compiled — see memory.go.
	listsBase uint32
}

func newFuncCtx(regs *registry.Registries, steps *stepTable, params []wasmbin.ValueType, listsBase uint32) *funcCtx {
	return &funcCtx{regs: regs, steps: steps, params: params, listsBase: listsBase, localVars: make(map[uuid.UUID]uint32)}
}

// NewLocal allocates a fresh function-local of type t and returns its
// local index (offset past this function's own parameter list).
func (c *funcCtx) NewLocal(t wasmbin.ValueType) uint32 {
	idx := uint32(len(c.params) + len(c.locals))
	c.locals = append(c.locals, t)
	return idx
}

// VariableSlot returns the index backing v and the WASM type it is
// stored as. A Local (SSA-rebound) Variable resolves to a function-local
// of this funcCtx, allocated lazily on first reference within this
// Step's compilation; everything else resolves to a project-wide global,
// registered in the shared Registries on first use across the whole
// module.
func (c *funcCtx) VariableSlot(v *ir.Variable) (uint32, wasmbin.ValueType) {
	vt := opcodes.WasmWide(v.PossibleTypes())
	if v.Local {
		if idx, ok := c.localVars[v.ID]; ok {
			return idx, vt
		}
		idx := c.NewLocal(vt)
		c.localVars[v.ID] = idx
		return idx, vt
	}
	idx := c.regs.VariableGlobal(v.ID, func() int {
		return c.regs.Globals.RegisterOverride(globalKey(v.ID), wasmbin.Global{
			Name:    "var$" + v.Name,
			Type:    vt,
			Mutable: true,
			Init:    zeroInit(vt),
		})
	})
	return uint32(idx), vt
}

// ListSlot returns the dense, project-wide slot number identifying l's
// fixed-capacity block within the lists region (internal/opcodes/
// data_list.go's listBase): unlike VariableSlot this is never read back
// inside the module via global.get — it is only ever folded into a
// compile-time-constant byte offset — so it costs no WASM global at
// all, just a stable integer registered once in the shared Registries.
func (c *funcCtx) ListSlot(l *ir.List) uint32 {
	idx := c.regs.ListGlobal(l.ID, func() int { return len(c.regs.Lists) })
	return uint32(idx)
}

// ArgLocal returns the local index holding the i'th argument of the
// enclosing procedure. compileStepFunction populates argLocals once, at
// function-entry compilation, before any opcode's Wasm is called.
func (c *funcCtx) ArgLocal(i int) uint32 {
	if i < 0 || i >= len(c.argLocals) {
		panic(cerr.NewInternalError("funcctx.go", 0, "argument index %d out of range (have %d)", i, len(c.argLocals)))
	}
	return c.argLocals[i]
}

// Import returns the function-index-space index of an imported
// function, registering the import (and its signature's type-section
// entry) on first use. Callers that share one (module, name) pair
// across differently-typed call sites must normalise to one signature
// themselves (see package opcodes' boxToI64) since an import is
// deduplicated by name alone, matching §4.7's register_override
// first-registration-wins semantics.
func (c *funcCtx) Import(module, name string, sig wasmbin.FunctionType) uint32 {
	typeIdx := c.regs.RegisterType(sig)
	idx := c.regs.RegisterImport(wasmbin.Import{Module: module, Name: name, TypeIndex: typeIdx})
	return uint32(idx)
}

// StringIndex interns s into the strings table and returns its slot.
func (c *funcCtx) StringIndex(s string) uint32 {
	return uint32(c.regs.RegisterString(s))
}

// boxArenaGlobalKey names the shared mutable i32 bump-pointer global
// boxToI64's externref case hands out fresh `strings`-table slots from.
// Its declared Init is a placeholder (see newFuncCtx's caller, Compile):
// the real starting value — the number of compile-time string constants
// — isn't known until every Step has been compiled and every literal
// interned, so module.go patches it in afterward, the same two-pass
// trick patchCallTargets already applies to virtual call targets.
const boxArenaGlobalKey = "~box_string_arena_next"

// BoxArenaNext returns the global index of the box-string arena
// bump-pointer, registering it (with a zero placeholder Init) on first
// use.
func (c *funcCtx) BoxArenaNext() uint32 {
	idx := c.regs.Globals.RegisterOverride(boxArenaGlobalKey, wasmbin.Global{
		Name:    "box_string_arena_next",
		Type:    wasmbin.ValueTypeI32,
		Mutable: true,
		Init:    wasmbin.I32Const(0),
	})
	return uint32(idx)
}

// ListsBase returns the linear-memory byte offset where the lists region
// begins.
func (c *funcCtx) ListsBase() uint32 {
	return c.listsBase
}

func globalKey(id uuid.UUID) string { return id.String() }

// zeroInit returns the global-section initializer instruction for a
// freshly allocated variable global of type vt: always the
// representation's zero value. Nothing in this package writes a
// Variable's Initial value into its global, so every variable global
// starts from this zero value.
func zeroInit(vt wasmbin.ValueType) wasmbin.Instruction {
	switch vt {
	case wasmbin.ValueTypeI32:
		return wasmbin.I32Const(0)
	case wasmbin.ValueTypeI64:
		return wasmbin.I64Const(0)
	case wasmbin.ValueTypeF64:
		return wasmbin.F64Const(0)
	case wasmbin.ValueTypeExternref:
		return wasmbin.RefNull(wasmbin.ValueTypeExternref)
	default:
		return wasmbin.I32Const(0)
	}
}
