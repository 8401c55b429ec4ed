package opcodes

import (
	"scratchc/internal/ir"
	"scratchc/internal/types"
	"scratchc/internal/wasmbin"
)

// operator_modulo: result has the sign of the divisor; divide-by-zero
// yields NaN. (int,int) operands with a divisor known nonzero get an Int
// output type; the emitted code is the same f64 sequence for every
// operand type, with no separate integer path.
func init() {
	register(ir.OperatorMod, Def{
		AcceptableInputs: numberPair,
		OutputType:       modOutputType,
		Wasm:             modWasm,
	})
}

func modOutputType(inputs []types.Type, f ir.Fields) (ir.ReturnType, error) {
	a, b := inputs[0], inputs[1]
	var result types.Type
	if isIntLike(a) && isIntLike(b) && !b.MaybeZero() {
		result = types.Int
	} else {
		result = types.FloatReal
	}
	result = result.Or(types.NoneIfFalse(b.MaybeZero(), types.FloatNan))
	result = result.Or(types.NoneIfFalse(a.MaybeNan() || b.MaybeNan(), types.FloatNan))
	return Singleton(result), nil
}

// modWasm computes fmod-with-divisor-sign as `a - floor(a/b)*b` directly
// in WASM: f64.div, f64.floor and f64.mul are each single instructions,
// so no host helper is needed. Dividing by zero propagates to inf/NaN
// through floor and the final subtract without any special-casing,
// matching the "divide-by-zero yields NaN" rule above. The int/int fast
// path (when both operands are statically known integral and the
// divisor statically known nonzero) reduces to the same f64 sequence,
// since this compiler represents every number as an f64 local
// pre-boxing.
func modWasm(ctx FuncCtx, inputs []types.Type, f ir.Fields) ([]wasmbin.Instruction, error) {
	a := ctx.NewLocal(wasmbin.ValueTypeF64)
	b := ctx.NewLocal(wasmbin.ValueTypeF64)
	return []wasmbin.Instruction{
		wasmbin.LocalSet(b),
		wasmbin.LocalSet(a),
		wasmbin.LocalGet(a),
		wasmbin.LocalGet(a),
		wasmbin.LocalGet(b),
		wasmbin.Simple(wasmbin.OpF64Div),
		wasmbin.Simple(wasmbin.OpF64Floor),
		wasmbin.LocalGet(b),
		wasmbin.Simple(wasmbin.OpF64Mul),
		wasmbin.Simple(wasmbin.OpF64Sub),
	}, nil
}
