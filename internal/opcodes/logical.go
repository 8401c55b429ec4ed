package opcodes

import (
	"scratchc/internal/ir"
	"scratchc/internal/types"
	"scratchc/internal/wasmbin"
)

func init() {
	register(ir.OperatorAnd, Def{
		AcceptableInputs: boolPair,
		OutputType:       boolOutputType,
		Wasm:             arithWasm(wasmbin.OpI32And),
	})
	register(ir.OperatorOr, Def{
		AcceptableInputs: boolPair,
		OutputType:       boolOutputType,
		Wasm:             arithWasm(wasmbin.OpI32Or),
	})
	register(ir.OperatorNot, Def{
		AcceptableInputs: boolSingle,
		OutputType:       boolOutputType,
		Wasm:             notWasm,
	})
	register(ir.OperatorJoin, Def{
		AcceptableInputs: stringPair,
		OutputType:       stringOutputType,
		Wasm:             joinWasm,
	})
}

func boolPair(ir.Fields) ([]types.Type, error)   { return []types.Type{types.Boolean, types.Boolean}, nil }
func boolSingle(ir.Fields) ([]types.Type, error) { return []types.Type{types.Boolean}, nil }
func stringPair(ir.Fields) ([]types.Type, error) { return []types.Type{types.String, types.String}, nil }

func stringOutputType(inputs []types.Type, f ir.Fields) (ir.ReturnType, error) {
	return Singleton(types.StringOther), nil
}

func notWasm(ctx FuncCtx, inputs []types.Type, f ir.Fields) ([]wasmbin.Instruction, error) {
	return []wasmbin.Instruction{wasmbin.Simple(wasmbin.OpI32Eqz)}, nil
}

func joinWasm(ctx FuncCtx, inputs []types.Type, f ir.Fields) ([]wasmbin.Instruction, error) {
	helper := ctx.Import("wasm:js-string", "concat", wasmbin.FunctionType{
		Params:  []wasmbin.ValueType{wasmbin.ValueTypeExternref, wasmbin.ValueTypeExternref},
		Results: []wasmbin.ValueType{wasmbin.ValueTypeExternref},
	})
	return []wasmbin.Instruction{wasmbin.Call(helper)}, nil
}
