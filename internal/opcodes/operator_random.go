package opcodes

import (
	"scratchc/internal/ir"
	"scratchc/internal/types"
	"scratchc/internal/wasmbin"
)

// operator_random(lo, hi): integer-inclusive range if both operands are
// integral, else a uniform float in the same closed interval; lo==hi
// returns that value. The only randomness this module imports is the
// single `(operator, random)` entry §6 enumerates — a uniform float in
// [lo, hi] from the host's own entropy source, since WASM has no native
// RNG instruction. Rounding that raw float to the nearest integer for
// the integer-pair case is ordinary arithmetic and stays in-module.
func init() {
	register(ir.OperatorRandom, Def{
		AcceptableInputs: numberPair,
		OutputType:       randomOutputType,
		Wasm:             randomWasm,
	})
}

func randomOutputType(inputs []types.Type, f ir.Fields) (ir.ReturnType, error) {
	a, b := inputs[0], inputs[1]
	if isIntLike(a) && isIntLike(b) {
		return Singleton(types.Int), nil
	}
	return Singleton(types.FloatReal), nil
}

func randomWasm(ctx FuncCtx, inputs []types.Type, f ir.Fields) ([]wasmbin.Instruction, error) {
	a, b := inputs[0], inputs[1]
	helper := ctx.Import("operator", "random", wasmbin.FunctionType{
		Params:  []wasmbin.ValueType{wasmbin.ValueTypeF64, wasmbin.ValueTypeF64},
		Results: []wasmbin.ValueType{wasmbin.ValueTypeF64},
	})
	out := []wasmbin.Instruction{wasmbin.Call(helper)}
	if isIntLike(a) && isIntLike(b) {
		// Round to the nearest integer: floor(x + 0.5).
		out = append(out,
			wasmbin.F64Const(0.5),
			wasmbin.Simple(wasmbin.OpF64Add),
			wasmbin.Simple(wasmbin.OpF64Floor),
		)
	}
	return out, nil
}
