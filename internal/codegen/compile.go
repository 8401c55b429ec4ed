package codegen

import (
	"scratchc/internal/cast"
	cerr "scratchc/internal/errors"
	"scratchc/internal/ir"
	"scratchc/internal/opcodes"
	"scratchc/internal/registry"
	"scratchc/internal/types"
	"scratchc/internal/wasmbin"
)

// compileStepFunction builds the WASM function for one non-inline Step.
// Every Step function starts with an i32 thread_ptr parameter — here,
// the thread's slot index in the `threads`/`steps` tables, not a linear-
// memory address, since no per-thread state beyond "current step" is
// implemented yet (see scheduler.go). A Step that is a warp procedure's
// WarpEntry additionally takes one boxed i64 parameter per declared
// argument: §4.2's GC-managed arg_struct has no home in this encoder,
// which models no struct type or struct.get/set instruction, so warp
// arguments travel as ordinary extra parameters instead (see DESIGN.md).
func compileStepFunction(step *ir.Step, regs *registry.Registries, steps *stepTable, listsBase uint32) (wasmbin.Function, error) {
	params := []wasmbin.ValueType{wasmbin.ValueTypeI32}

	var argLocals []uint32
	if step.Context.Proc != nil && step.Context.Proc.WarpEntry != nil && step.Context.Proc.WarpEntry.Equal(step) {
		for range step.Context.Proc.Args {
			argLocals = append(argLocals, uint32(len(params)))
			params = append(params, wasmbin.ValueTypeI64)
		}
	}

	ctx := newFuncCtx(regs, steps, params, listsBase)
	ctx.argLocals = argLocals

	body, err := compileBody(ctx, step.Opcodes())
	if err != nil {
		return wasmbin.Function{}, err
	}

	typeIdx := regs.RegisterType(wasmbin.FunctionType{Params: params})

	return wasmbin.Function{
		Name:      "step$" + step.ID.String(),
		TypeIndex: typeIdx,
		Locals:    ctx.locals,
		Body:      body,
	}, nil
}

// compileBody walks ops maintaining a symbolic type stack mirroring the
// physical WASM stack's contents, dispatching catalogued opcodes through
// package opcodes (reusing internal/cast's shared contract resolution,
// the same one cast insertion itself used) and the handful of
// structural kinds directly, since those carry no catalogue entry (they
// are control-flow splices, not straight-line instruction sequences).
func compileBody(ctx *funcCtx, ops []ir.Opcode) ([]wasmbin.Instruction, error) {
	var out []wasmbin.Instruction
	var stack []types.Type

	pop := func(k int) ([]types.Type, error) {
		if k > len(stack) {
			return nil, cerr.NewInternalError("internal/codegen/compile.go", 0,
				"opcode wants %d inputs but only %d are on the stack", k, len(stack))
		}
		consumed := stack[len(stack)-k:]
		stack = stack[:len(stack)-k]
		return consumed, nil
	}

	for i, op := range ops {
		switch op.Kind {
		case ir.ControlIfElse:
			f, ok := op.Fields.(ir.IfElseFields)
			if !ok {
				return nil, cerr.NewInternalError("internal/codegen/compile.go", 0, "control_if_else missing IfElseFields")
			}
			if _, err := pop(1); err != nil {
				return nil, err
			}
			thenInstrs, err := compileBody(ctx, f.Then.Opcodes())
			if err != nil {
				return nil, err
			}
			out = append(out, wasmbin.If(wasmbin.VoidBlock()))
			out = append(out, thenInstrs...)
			if f.Else != nil {
				elseInstrs, err := compileBody(ctx, f.Else.Opcodes())
				if err != nil {
					return nil, err
				}
				out = append(out, wasmbin.Simple(wasmbin.OpElse))
				out = append(out, elseInstrs...)
			}
			out = append(out, wasmbin.Simple(wasmbin.OpEnd))

		case ir.ControlLoop:
			f, ok := op.Fields.(ir.LoopFields)
			if !ok {
				return nil, cerr.NewInternalError("internal/codegen/compile.go", 0, "control_loop missing LoopFields")
			}
			instrs, err := compileLoop(ctx, f)
			if err != nil {
				return nil, err
			}
			out = append(out, instrs...)

		case ir.HqYield:
			f, ok := op.Fields.(ir.YieldFields)
			if !ok {
				return nil, cerr.NewInternalError("internal/codegen/compile.go", 0, "hq_yield missing YieldFields")
			}
			instrs, err := compileYield(ctx, f.Mode)
			if err != nil {
				return nil, err
			}
			out = append(out, instrs...)

		case ir.ProceduresCallWarp:
			cf, ok := op.Fields.(ir.CallFields)
			if !ok {
				return nil, cerr.NewInternalError("internal/codegen/compile.go", 0, "procedures_call_warp missing CallFields")
			}
			consumed, err := pop(len(cf.Proc.Args))
			if err != nil {
				return nil, err
			}
			instrs, retTypes, err := compileWarpCall(ctx, cf.Proc, consumed)
			if err != nil {
				return nil, err
			}
			out = append(out, instrs...)
			stack = append(stack, retTypes...)

		case ir.ProceduresCallNonwarp:
			// A non-warped call suspends the calling thread mid-script and
			// resumes it later via a per-thread call-stack array (§4.2);
			// that array and its GC element type are not modeled by this
			// encoder yet, so compilation fails cleanly — one of the
			// "holes to be filled, not bugs to guess" §9 calls out.
			return nil, cerr.NewUnimplemented("procedures_call_nonwarp is not implemented")

		default:
			inputs, output, err := cast.Contract(op, i)
			if err != nil {
				return nil, err
			}
			consumed, err := pop(len(inputs))
			if err != nil {
				return nil, err
			}
			for j, have := range consumed {
				want := inputs[j]
				var wantWidth wasmbin.ValueType
				needCoerce := false
				switch {
				case want == types.Any || want == types.None:
					// Variable writes (data_setvariableto/data_teevariable)
					// declare Any as their acceptable input — the real
					// target representation is the Variable's own global
					// width, not derivable from acceptable_inputs at all.
					if vf, ok := op.Fields.(ir.VariableFields); ok {
						wantWidth = opcodes.WasmWide(vf.Var.PossibleTypes())
						needCoerce = opcodes.WasmWide(have) != wantWidth
					}
				default:
					if _, ok := have.BaseType(); !ok {
						wantWidth = opcodes.TargetRepr(want)
						needCoerce = true
					}
				}
				if needCoerce {
					out = append(out, coerceToWidth(ctx, have, wantWidth)...)
				}
			}
			instrs, err := opcodes.Wasm(op.Kind, ctx, inputs, op.Fields)
			if err != nil {
				return nil, err
			}
			out = append(out, instrs...)
			switch output.Kind {
			case ir.ReturnSingleton:
				stack = append(stack, output.Single)
			case ir.ReturnMulti:
				stack = append(stack, output.Multi...)
			}
		}
	}

	return out, nil
}

// coerceToWidth converts whatever physically represents have, currently
// on top of the stack, into the want representation. Unlike the input
// switcher's UnboxTo (which only ever unboxes an i64), this also covers
// boxing and the Boolean-to-numeric widening castWasm already needs,
// since a variable write's true target width is not always wider than
// its operand's.
func coerceToWidth(ctx *funcCtx, have types.Type, want wasmbin.ValueType) []wasmbin.Instruction {
	haveWidth := opcodes.WasmWide(have)
	if haveWidth == want {
		return nil
	}
	if want == wasmbin.ValueTypeI64 {
		return opcodes.BoxToI64(ctx, have)
	}
	if haveWidth == wasmbin.ValueTypeI64 {
		return opcodes.UnboxTo(ctx, want)
	}
	if haveWidth == wasmbin.ValueTypeI32 && want == wasmbin.ValueTypeF64 {
		return []wasmbin.Instruction{wasmbin.Simple(wasmbin.OpF64ConvertI32S)}
	}
	// Any other combination (e.g. a purely numeric operand flowing into a
	// purely-Boolean slot) cannot arise given SSA type narrowing; emit
	// nothing rather than invalid WASM.
	return nil
}

// compileLoop lowers control_loop into a WASM block+loop pair: the block
// gives the loop a forward exit target, the loop itself re-tests
// Condition (or FirstCondition on the very first pass) and branches back
// to its own top while it holds. Bodies are warped-only (§4.3, §5), so
// no suspension can occur inside — a structural br/br_if is always
// sufficient, no scheduler handoff is needed.
func compileLoop(ctx *funcCtx, f ir.LoopFields) ([]wasmbin.Instruction, error) {
	cond := f.Condition
	if f.FirstCondition != nil {
		cond = f.FirstCondition
	}
	preInstrs, err := compileBody(ctx, cond.Opcodes())
	if err != nil {
		return nil, err
	}
	bodyInstrs, err := compileBody(ctx, f.Body.Opcodes())
	if err != nil {
		return nil, err
	}
	repeatCondInstrs, err := compileBody(ctx, f.Condition.Opcodes())
	if err != nil {
		return nil, err
	}

	var out []wasmbin.Instruction
	out = append(out, preInstrs...)
	out = append(out, wasmbin.Simple(wasmbin.OpI32Eqz))
	out = append(out, wasmbin.If(wasmbin.VoidBlock())) // skip the loop entirely if the pre-test fails
	out = append(out, wasmbin.Simple(wasmbin.OpElse))
	out = append(out, wasmbin.Block(wasmbin.VoidBlock()))
	out = append(out, wasmbin.Loop(wasmbin.VoidBlock()))
	out = append(out, bodyInstrs...)
	out = append(out, repeatCondInstrs...)
	out = append(out, wasmbin.Instruction{Op: wasmbin.OpBrIf, Index: 0}) // branch back to loop top while true
	out = append(out, wasmbin.Simple(wasmbin.OpEnd))                    // loop
	out = append(out, wasmbin.Simple(wasmbin.OpEnd))                    // block
	out = append(out, wasmbin.Simple(wasmbin.OpEnd))                    // if/else
	return out, nil
}

// compileYield lowers hq_yield's four modes. YieldInline splices the
// target Step's opcodes directly into the current function body (it
// never gets its own WASM function); YieldSchedule and YieldNone are the
// two true suspension points (§5) and delegate to scheduler.go's
// thread-table bookkeeping; YieldTail is unimplemented per §9.
func compileYield(ctx *funcCtx, mode ir.YieldMode) ([]wasmbin.Instruction, error) {
	switch mode.Kind {
	case ir.YieldNone:
		return finishThread(ctx), nil
	case ir.YieldInline:
		return compileBody(ctx, mode.Target.Opcodes())
	case ir.YieldSchedule:
		return scheduleStep(ctx, mode.Target), nil
	case ir.YieldTail:
		return nil, cerr.NewUnimplemented("hq_yield Tail mode is not implemented (reserved, §9 open question)")
	default:
		return nil, cerr.NewInternalError("internal/codegen/compile.go", 0, "unknown yield mode %d", mode.Kind)
	}
}

// compileWarpCall emits a direct call to the callee's warp entry
// function: warp procedures never yield, so the call is an ordinary WASM
// call instruction rather than a scheduler handoff. By the time this
// runs, args are already sitting on the value stack as [arg0, ..., argN]
// (the preceding argument-reporter opcodes pushed them, arg0 deepest);
// the call's actual first operand must be thread_ptr, which only lives
// in local 0, underneath all of that. Each argument is spilled to its
// own fresh local first, then thread_ptr is pushed, then every argument
// is replayed from its local (boxed to the callee's uniform i64
// parameter type) in its original order. Returns (warped procedures
// returning multiple values via aliased Variables, per §3) are not
// modeled as WASM multi-value results here; callers read them back
// through the returned Variables' own globals/locals instead, so
// compileWarpCall itself always reports zero return types.
func compileWarpCall(ctx *funcCtx, proc *ir.Procedure, args []types.Type) ([]wasmbin.Instruction, []types.Type, error) {
	if proc.WarpEntry == nil {
		return nil, nil, cerr.NewMalformedProject("procedure %q has no warp entry", proc.Proccode)
	}
	argLocals := make([]uint32, len(args))
	var out []wasmbin.Instruction
	for i := len(args) - 1; i >= 0; i-- {
		local := ctx.NewLocal(opcodes.WasmWide(args[i]))
		argLocals[i] = local
		out = append(out, wasmbin.LocalSet(local))
	}
	out = append(out, wasmbin.LocalGet(0)) // thread_ptr, unchanged across a warp call
	for i, a := range args {
		out = append(out, wasmbin.LocalGet(argLocals[i]))
		out = append(out, opcodes.BoxToI64(ctx, a)...)
	}
	out = append(out, wasmbin.Call(ctx.steps.callTarget(proc.WarpEntry.ID)))
	return out, nil, nil
}
