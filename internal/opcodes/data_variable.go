package opcodes

import (
	"scratchc/internal/ir"
	"scratchc/internal/types"
	"scratchc/internal/wasmbin"
)

// data_setvariableto / data_teevariable / data_changevariableby operate
// on whichever global or local the SSA pass has bound their
// VariableFields.Var to. By the time code generation runs, every
// variable read/write has already been redirected by the SSA pass
// (ir.Variable.Local) to either a local or a global; here we just emit
// the matching get/set/tee against that slot.
func init() {
	register(ir.DataVariable, Def{
		AcceptableInputs: noInputs,
		OutputType:       readVariableOutputType,
		Wasm:             readVariableWasm,
	})
	register(ir.DataSetVariableTo, Def{
		AcceptableInputs: anySingle,
		OutputType:       func([]types.Type, ir.Fields) (ir.ReturnType, error) { return ir.None(), nil },
		Wasm:             setVariableWasm,
	})
	register(ir.DataTeeVariable, Def{
		AcceptableInputs: anySingle,
		OutputType:       func(inputs []types.Type, f ir.Fields) (ir.ReturnType, error) { return Singleton(inputs[0]), nil },
		Wasm:             teeVariableWasm,
	})
	register(ir.DataChangeVariableBy, Def{
		AcceptableInputs: func(ir.Fields) ([]types.Type, error) { return []types.Type{types.Number}, nil },
		OutputType:       func([]types.Type, ir.Fields) (ir.ReturnType, error) { return ir.None(), nil },
		Wasm:             changeVariableWasm,
	})
	register(ir.ProceduresArgument, Def{
		AcceptableInputs: noInputs,
		OutputType:       argumentOutputType,
		Wasm:             argumentWasm,
	})
}

func variableFields(f ir.Fields) (ir.VariableFields, bool) {
	vf, ok := f.(ir.VariableFields)
	return vf, ok
}

// readVariableOutputType reports the variable's current possible-type
// set directly, rather than classifying Fields: a variable's type
// depends on every write reachable in the project, which is exactly
// what the SSA pass's fixed-point propagation accumulates onto
// ir.Variable itself.
func readVariableOutputType(inputs []types.Type, f ir.Fields) (ir.ReturnType, error) {
	vf, ok := variableFields(f)
	if !ok {
		return ir.ReturnType{}, errNotVariableFields
	}
	return Singleton(vf.Var.PossibleTypes()), nil
}

func readVariableWasm(ctx FuncCtx, inputs []types.Type, f ir.Fields) ([]wasmbin.Instruction, error) {
	vf, ok := variableFields(f)
	if !ok {
		return nil, errNotVariableFields
	}
	idx, _ := ctx.VariableSlot(vf.Var)
	if vf.Var.Local {
		return []wasmbin.Instruction{wasmbin.LocalGet(idx)}, nil
	}
	return []wasmbin.Instruction{wasmbin.GlobalGet(idx)}, nil
}

func setVariableWasm(ctx FuncCtx, inputs []types.Type, f ir.Fields) ([]wasmbin.Instruction, error) {
	vf, ok := variableFields(f)
	if !ok {
		return nil, errNotVariableFields
	}
	idx, _ := ctx.VariableSlot(vf.Var)
	if vf.Var.Local {
		return []wasmbin.Instruction{wasmbin.LocalSet(idx)}, nil
	}
	return []wasmbin.Instruction{wasmbin.GlobalSet(idx)}, nil
}

func teeVariableWasm(ctx FuncCtx, inputs []types.Type, f ir.Fields) ([]wasmbin.Instruction, error) {
	vf, ok := variableFields(f)
	if !ok {
		return nil, errNotVariableFields
	}
	idx, _ := ctx.VariableSlot(vf.Var)
	if vf.Var.Local {
		return []wasmbin.Instruction{wasmbin.LocalTee(idx)}, nil
	}
	// Globals have no tee form: duplicate via a local, set the global,
	// then push the duplicate back.
	vt := wasmWide(inputs[0])
	tmp := ctx.NewLocal(vt)
	return []wasmbin.Instruction{
		wasmbin.LocalTee(tmp),
		wasmbin.GlobalSet(idx),
		wasmbin.LocalGet(tmp),
	}, nil
}

func changeVariableWasm(ctx FuncCtx, inputs []types.Type, f ir.Fields) ([]wasmbin.Instruction, error) {
	vf, ok := variableFields(f)
	if !ok {
		return nil, errNotVariableFields
	}
	idx, _ := ctx.VariableSlot(vf.Var)
	get, set := wasmbin.GlobalGet(idx), wasmbin.GlobalSet(idx)
	if vf.Var.Local {
		get, set = wasmbin.LocalGet(idx), wasmbin.LocalSet(idx)
	}
	return []wasmbin.Instruction{
		get,
		wasmbin.Simple(wasmbin.OpF64Add), // stack: [delta, old] -> new; delta already pushed by the caller
		set,
	}, nil
}

func argumentOutputType(inputs []types.Type, f ir.Fields) (ir.ReturnType, error) {
	af, ok := f.(ir.ArgumentFields)
	if !ok {
		return ir.ReturnType{}, errNotArgumentFields
	}
	_ = af
	return Singleton(types.Any), nil
}

func argumentWasm(ctx FuncCtx, inputs []types.Type, f ir.Fields) ([]wasmbin.Instruction, error) {
	af, ok := f.(ir.ArgumentFields)
	if !ok {
		return nil, errNotArgumentFields
	}
	return []wasmbin.Instruction{wasmbin.LocalGet(ctx.ArgLocal(af.Index))}, nil
}
