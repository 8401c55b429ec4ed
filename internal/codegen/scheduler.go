package codegen

import (
	"scratchc/internal/ir"
	"scratchc/internal/registry"
	"scratchc/internal/wasmbin"
)

// maxThreads bounds the `threads`/`steps`-indexed table size. Scratch
// projects in practice run a few dozen concurrent scripts at most; a
// fixed generous ceiling avoids a growable-table story this encoder
// doesn't model (table.grow has no Instruction encoding here).
const maxThreads uint32 = 512

// threadsCountGlobal registers the scheduler's live thread count as a
// mutable i32 global (§4.6: "a sibling i32 global threads_count tracks
// the count"), returning its global index.
func threadsCountGlobal(regs *registry.Registries) uint32 {
	return uint32(regs.Globals.RegisterOverride("threads_count", wasmbin.Global{
		Name:    "threads_count",
		Type:    wasmbin.ValueTypeI32,
		Mutable: true,
		Init:    wasmbin.I32Const(0),
	}))
}

// scheduleStep rewrites the slot at thread_ptr (local 0, this function's
// own table index) to target's entry in the `steps` table, then returns:
// control passes back to the scheduler, which will call_indirect the new
// value on the thread's next turn.
func scheduleStep(ctx *funcCtx, target *ir.Step) []wasmbin.Instruction {
	// threads_count itself is untouched by a reschedule — only finishThread
	// and the per-event seeders change it — so this just overwrites the
	// table slot.
	return []wasmbin.Instruction{
		wasmbin.LocalGet(0),
		wasmbin.I32Const(int32(ctx.steps.position(target.ID))),
		wasmbin.TableGet(uint32(wasmbin.TableSteps)),
		wasmbin.TableSet(uint32(wasmbin.TableThreads)),
	}
}

// finishThread implements the §5 cancellation rule: "a None yield
// removes the thread from the table by swapping the last active slot
// into its position and decrementing threads_count; no other observable
// state is touched." thread_ptr (local 0) is this thread's own table
// index.
func finishThread(ctx *funcCtx) []wasmbin.Instruction {
	countIdx := threadsCountGlobal(ctx.regs)
	return []wasmbin.Instruction{
		wasmbin.GlobalGet(countIdx),
		wasmbin.I32Const(1),
		wasmbin.Simple(wasmbin.OpI32Sub),
		wasmbin.GlobalSet(countIdx),

		wasmbin.LocalGet(0),
		wasmbin.GlobalGet(countIdx),
		wasmbin.Simple(wasmbin.OpI32Ne),
		wasmbin.If(wasmbin.VoidBlock()),
		wasmbin.LocalGet(0),
		wasmbin.GlobalGet(countIdx),
		wasmbin.TableGet(uint32(wasmbin.TableThreads)),
		wasmbin.TableSet(uint32(wasmbin.TableThreads)),
		wasmbin.Simple(wasmbin.OpEnd),
	}
}

// buildTickFunction emits the `tick` export: one call_indirect per active
// thread, in table-index order (§4.6's scheduler pseudocode). Each step
// function has signature (i32) -> (), matching every Step's own thread_ptr
// parameter.
func buildTickFunction(regs *registry.Registries, stepFuncType uint32) wasmbin.Function {
	countIdx := threadsCountGlobal(regs)
	iLocal := uint32(0) // function has no params, so local 0 is the first declared local

	body := []wasmbin.Instruction{
		wasmbin.I32Const(0),
		wasmbin.LocalSet(iLocal),
		wasmbin.Block(wasmbin.VoidBlock()),
		wasmbin.Loop(wasmbin.VoidBlock()),

		wasmbin.LocalGet(iLocal),
		wasmbin.GlobalGet(countIdx),
		wasmbin.Simple(wasmbin.OpI32LtS), // i < count
		wasmbin.Simple(wasmbin.OpI32Eqz), // !(i < count), i.e. i >= count
		wasmbin.Instruction{Op: wasmbin.OpBrIf, Index: 1}, // exit the outer block once i >= count

		wasmbin.LocalGet(iLocal),
		wasmbin.LocalGet(iLocal),
		wasmbin.CallIndirect(stepFuncType, uint32(wasmbin.TableThreads)),

		wasmbin.LocalGet(iLocal),
		wasmbin.I32Const(1),
		wasmbin.Simple(wasmbin.OpI32Add),
		wasmbin.LocalSet(iLocal),
		wasmbin.Instruction{Op: wasmbin.OpBr, Index: 0},

		wasmbin.Simple(wasmbin.OpEnd), // loop
		wasmbin.Simple(wasmbin.OpEnd), // block
	}

	return wasmbin.Function{
		Name:      "tick",
		TypeIndex: regs.RegisterType(wasmbin.FunctionType{}),
		Locals:    []wasmbin.ValueType{wasmbin.ValueTypeI32},
		Body:      body,
		Export:    "tick",
	}
}

// buildEventFunction emits one exported per-event entry point: it
// appends every entry Step registered under name to the end of the
// active thread range and bumps threads_count, per §4.6 ("per-event
// entry points ... seed the thread table from a pre-baked data segment
// of step-function indices and bump threads_count"). This implementation
// seeds via an inline table.get/table.set sequence rather than an actual
// data/element segment — equivalent at runtime, and avoids hand-rolling
// an additional passive-segment encoding for a handful of known indices.
func buildEventFunction(name string, entries []*ir.Step, regs *registry.Registries, steps *stepTable) wasmbin.Function {
	countIdx := threadsCountGlobal(regs)

	var body []wasmbin.Instruction
	for _, e := range entries {
		body = append(body,
			wasmbin.GlobalGet(countIdx),
			wasmbin.I32Const(int32(steps.position(e.ID))),
			wasmbin.TableGet(uint32(wasmbin.TableSteps)),
			wasmbin.TableSet(uint32(wasmbin.TableThreads)),
			wasmbin.GlobalGet(countIdx),
			wasmbin.I32Const(1),
			wasmbin.Simple(wasmbin.OpI32Add),
			wasmbin.GlobalSet(countIdx),
		)
	}

	return wasmbin.Function{
		Name:      "event$" + name,
		TypeIndex: regs.RegisterType(wasmbin.FunctionType{}),
		Body:      body,
		Export:    name,
	}
}
