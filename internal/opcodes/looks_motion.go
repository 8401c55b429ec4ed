package opcodes

import (
	"scratchc/internal/ir"
	"scratchc/internal/types"
	"scratchc/internal/wasmbin"
)

// looks_say and motion_gotoxy stand in for the wider families of
// screen-affecting blocks (§4.3): each is a thin call into a host
// import and has RequestsScreenRefresh set, so in non-warped code
// lowering ends the Step after it and links any following block through
// a Schedule yield; warped code is not split.
func init() {
	register(ir.LooksSay, Def{
		AcceptableInputs: func(ir.Fields) ([]types.Type, error) { return []types.Type{types.Any}, nil },
		OutputType:       func([]types.Type, ir.Fields) (ir.ReturnType, error) { return ir.None(), nil },
		Wasm:             sayWasm,
		RequestsScreenRefresh: true,
	})
	register(ir.MotionGotoXY, Def{
		AcceptableInputs: func(ir.Fields) ([]types.Type, error) { return []types.Type{types.Number, types.Number}, nil },
		OutputType:       func([]types.Type, ir.Fields) (ir.ReturnType, error) { return ir.None(), nil },
		Wasm:             gotoXYWasm,
		RequestsScreenRefresh: true,
	})
}

func sayWasm(ctx FuncCtx, inputs []types.Type, f ir.Fields) ([]wasmbin.Instruction, error) {
	helper := ctx.Import("looks", "say", wasmbin.FunctionType{
		Params: []wasmbin.ValueType{wasmbin.ValueTypeI64},
	})
	instrs := boxToI64(ctx, inputs[0])
	instrs = append(instrs, wasmbin.Call(helper))
	return instrs, nil
}

func gotoXYWasm(ctx FuncCtx, inputs []types.Type, f ir.Fields) ([]wasmbin.Instruction, error) {
	helper := ctx.Import("motion", "goto_xy", wasmbin.FunctionType{
		Params: []wasmbin.ValueType{wasmbin.ValueTypeF64, wasmbin.ValueTypeF64},
	})
	return []wasmbin.Instruction{wasmbin.Call(helper)}, nil
}
