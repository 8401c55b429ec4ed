package opcodes

import (
	"scratchc/internal/ir"
	"scratchc/internal/types"
	"scratchc/internal/wasmbin"
)

func numberPair(ir.Fields) ([]types.Type, error) {
	return []types.Type{types.Number, types.Number}, nil
}

func init() {
	register(ir.OperatorAdd, Def{
		AcceptableInputs: numberPair,
		OutputType:       addOutputType,
		Wasm:             arithWasm(wasmbin.OpF64Add),
	})
	register(ir.OperatorSubtract, Def{
		AcceptableInputs: numberPair,
		OutputType:       subOutputType,
		Wasm:             arithWasm(wasmbin.OpF64Sub),
	})
	register(ir.OperatorMultiply, Def{
		AcceptableInputs: numberPair,
		OutputType:       mulOutputType,
		Wasm:             arithWasm(wasmbin.OpF64Mul),
	})
	register(ir.OperatorDivide, Def{
		AcceptableInputs: numberPair,
		OutputType:       divOutputType,
		Wasm:             arithWasm(wasmbin.OpF64Div),
	})
}

// arithWasm builds a Wasm emitter for a binary operator that is a single
// instruction: both operands arrive already unboxed by the input
// switcher (§4.6) to the representation op works on (f64 for the
// arithmetic operators, i32 for operator_and/or), so the straight-line
// body is just that instruction.
func arithWasm(op wasmbin.Op) func(FuncCtx, []types.Type, ir.Fields) ([]wasmbin.Instruction, error) {
	return func(ctx FuncCtx, inputs []types.Type, f ir.Fields) ([]wasmbin.Instruction, error) {
		return []wasmbin.Instruction{wasmbin.Simple(op)}, nil
	}
}

// addOutputType: Int if both inputs are Int, Float if either is Float,
// NaN-inclusive when adding opposite infinities.
func addOutputType(inputs []types.Type, f ir.Fields) (ir.ReturnType, error) {
	return Singleton(combineArith(inputs[0], inputs[1])), nil
}

func subOutputType(inputs []types.Type, f ir.Fields) (ir.ReturnType, error) {
	return Singleton(combineArith(inputs[0], inputs[1])), nil
}

func mulOutputType(inputs []types.Type, f ir.Fields) (ir.ReturnType, error) {
	a, b := inputs[0], inputs[1]
	var result types.Type
	if isIntLike(a) && isIntLike(b) {
		result = types.Int
	} else {
		result = types.FloatReal
	}
	result = result.Or(types.NoneIfFalse(a.MaybeNan() || b.MaybeNan(), types.FloatNan))
	result = result.Or(types.NoneIfFalse(
		(a.MaybeZero() && b.MaybeInf()) || (a.MaybeInf() && b.MaybeZero()),
		types.FloatNan,
	))
	return Singleton(result), nil
}

func divOutputType(inputs []types.Type, f ir.Fields) (ir.ReturnType, error) {
	a, b := inputs[0], inputs[1]
	result := types.FloatReal
	result = result.Or(types.NoneIfFalse(a.MaybeNan() || b.MaybeNan(), types.FloatNan))
	result = result.Or(types.NoneIfFalse(a.MaybeZero() && b.MaybeZero(), types.FloatNan))
	result = result.Or(types.NoneIfFalse(b.MaybeZero(), types.FloatInf))
	return Singleton(result), nil
}

func isIntLike(t types.Type) bool {
	return types.Int.Contains(t) || types.Boolean.Contains(t)
}

// combineArith implements operator_add/subtract's output_type: additive
// operators stay integral iff both operands are integral; NaN results
// when combining opposite infinities.
func combineArith(a, b types.Type) types.Type {
	var result types.Type
	if isIntLike(a) && isIntLike(b) {
		result = types.Int
	} else {
		result = types.FloatReal
	}
	result = result.Or(types.NoneIfFalse(a.MaybeNan() || b.MaybeNan(), types.FloatNan))
	result = result.Or(types.NoneIfFalse(a.MaybeInf() && b.MaybeInf(), types.FloatNan))
	return result
}

// Singleton is a convenience re-export so opcode files don't need to
// import ir just for this one helper name.
func Singleton(t types.Type) ir.ReturnType { return ir.Singleton(t) }
