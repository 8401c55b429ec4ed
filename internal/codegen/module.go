// Package codegen is the code generator (§4.6): it walks the Project's
// Steps (already cast-inserted and SSA-narrowed) and emits a
// wasmbin.Module — one function per non-inline Step, the steps/strings/
// threads tables, linear memory, globals, a tick scheduler and one
// per-event entry point — mirroring the teacher's own final-assembly
// pass that stitches together a compiled unit's sections in a fixed
// order.
package codegen

import (
	"sort"

	cerr "scratchc/internal/errors"
	"scratchc/internal/ir"
	"scratchc/internal/opcodes"
	"scratchc/internal/registry"
	"scratchc/internal/wasmbin"
)

// boxStringArenaCap reserves headroom in the `strings` table past the
// compile-time string constants: slots a runtime-computed string value
// can be written into when boxed (opcodes.boxString), handed out by the
// box_string_arena_next bump-pointer global. A fixed generous ceiling,
// matching the same no-growable-table story maxThreads already accepts.
const boxStringArenaCap uint32 = 4096

// Compile emits a complete wasmbin.Module for proj.
func Compile(proj *ir.Project) (*wasmbin.Module, error) {
	steps := newStepTable(proj)
	regs := registry.NewRegistries()

	// The lists region's start is fixed by the sprite layout alone (§6),
	// so it can be computed before any Step is compiled; each list's own
	// slot within that region is assigned the moment ctx.ListSlot first
	// sees it, during the Step compilation below. Only the region's total
	// size (needed for memoryPages) depends on the final list count, and
	// that is computed after the loop once regs.Lists is settled.
	listsBase := buildMemoryLayout(proj.Targets).totalBytes

	stepFuncs := make([]wasmbin.Function, len(steps.order))
	for i, step := range steps.order {
		fn, err := compileStepFunction(step, regs, steps, listsBase)
		if err != nil {
			return nil, err.(*cerr.CompileError).WithFrame("Step#" + step.ID.String())
		}
		stepFuncs[i] = fn
	}

	stepFuncType := regs.RegisterType(wasmbin.FunctionType{Params: []wasmbin.ValueType{wasmbin.ValueTypeI32}})

	eventNames := proj.EventNames()
	sort.Strings(eventNames) // deterministic output
	eventFuncs := make([]wasmbin.Function, len(eventNames))
	for i, name := range eventNames {
		eventFuncs[i] = buildEventFunction(name, proj.Events(name), regs, steps)
	}

	tickFunc := buildTickFunction(regs, stepFuncType)

	unreachableDbg := wasmbin.Function{
		Name:   "unreachable_dbg",
		Export: "unreachable_dbg",
		Body:   []wasmbin.Instruction{wasmbin.Simple(wasmbin.OpUnreachable)},
	}
	unreachableDbg.TypeIndex = regs.RegisterType(wasmbin.FunctionType{})

	// Step functions occupy the function index space immediately after
	// every import, in stepTable order, so position(id) + len(imports)
	// is a real function index; everything else (events, tick, the debug
	// trap) follows.
	functions := make([]wasmbin.Function, 0, len(stepFuncs)+len(eventFuncs)+2)
	functions = append(functions, stepFuncs...)
	functions = append(functions, eventFuncs...)
	functions = append(functions, tickFunc, unreachableDbg)

	importCount := uint32(regs.Imports.Len())
	for i := range functions {
		patchCallTargets(functions[i].Body, importCount)
	}

	// Every list referenced by any Step is now registered in regs.Lists, so
	// the lists region's total size (and hence the module's memory page
	// count) is finally known; listsBase itself (each list's own offset
	// within the region) never depended on this count.
	layout := buildMemoryLayout(proj.Targets)
	layout.totalBytes += uint32(len(regs.Lists)) * opcodes.ListBlockSize

	elementFuncIndices := make([]uint32, len(steps.order))
	for i := range steps.order {
		elementFuncIndices[i] = importCount + uint32(i)
	}

	// The box-string arena's bump pointer starts past every compile-time
	// string constant (see funcctx.go's BoxArenaNext); that count is only
	// settled now, so the global registered with a zero placeholder Init
	// during Step compilation is patched in place here, the same
	// finalize-time fixup patchCallTargets already applies to call targets.
	globals := regs.Globals.Finalize()
	if gi, ok := regs.Globals.Lookup(boxArenaGlobalKey); ok {
		globals[gi].Init = wasmbin.I32Const(int32(regs.Strings.Len()))
	}

	mod := &wasmbin.Module{
		Types:     regs.Types.Finalize(),
		Imports:   regs.Imports.Finalize(),
		Globals:   globals,
		Functions: functions,
		Tables: []wasmbin.Table{
			{Kind: wasmbin.TableSteps, Elem: wasmbin.ValueTypeFuncref, Min: uint32(len(steps.order)), Max: maxUint32P(uint32(len(steps.order)))},
			{Kind: wasmbin.TableStrings, Elem: wasmbin.ValueTypeExternref, Min: uint32(regs.Strings.Len()) + boxStringArenaCap, Max: maxUint32P(uint32(regs.Strings.Len()) + boxStringArenaCap)},
			{Kind: wasmbin.TableThreads, Elem: wasmbin.ValueTypeFuncref, Min: maxThreads, Max: maxUint32P(maxThreads)},
		},
		Elements: []wasmbin.ElementSegment{
			{Table: wasmbin.TableSteps, Offset: 0, FuncIndices: elementFuncIndices},
		},
		MemoryMinPages: memoryPages(layout),
		ExportMemory:   true,
		ExportTables:   []wasmbin.TableKind{wasmbin.TableThreads, wasmbin.TableStrings},
		// StringConstants is handed to the host alongside the binary, in
		// strings-table slot order, so it can populate those slots before
		// running the module (§6: "a single module plus a parallel list of
		// compile-time strings"); the box-string arena slots past this
		// list are left host-uninitialized and are only ever written by
		// this module's own table.set (opcodes.boxString) before they are
		// ever read.
		StringConstants: regs.Strings.Keys(),
	}
	return mod, nil
}

func maxUint32P(v uint32) *uint32 { return &v }

// patchCallTargets rewrites every Call instruction's virtual step-target
// index (see callStepBase in steps.go) to its real function-index-space
// slot, now that the import count is fixed.
func patchCallTargets(body []wasmbin.Instruction, importCount uint32) {
	for i := range body {
		if body[i].Op == wasmbin.OpCall && body[i].Index >= callStepBase {
			body[i].Index = importCount + (body[i].Index - callStepBase)
		}
	}
}
