package opcodes

import (
	"scratchc/internal/ir"
	"scratchc/internal/types"
	"scratchc/internal/wasmbin"
)

// operator_equals/lt/gt perform cross-type comparison: when both sides
// are numeric, NaN equals NaN in this language; when comparing a number
// with a string, an imported helper applies the host's numeric-prefix-
// then-lexicographic ordering rule.
func init() {
	register(ir.OperatorEquals, Def{
		AcceptableInputs: anyPair,
		OutputType:       boolOutputType,
		Wasm:             compareWasm("eq"),
	})
	register(ir.OperatorLt, Def{
		AcceptableInputs: anyPair,
		OutputType:       boolOutputType,
		Wasm:             compareWasm("lt"),
	})
	register(ir.OperatorGt, Def{
		AcceptableInputs: anyPair,
		OutputType:       boolOutputType,
		Wasm:             compareWasm("gt"),
	})
}

func anyPair(ir.Fields) ([]types.Type, error) {
	return []types.Type{types.Any, types.Any}, nil
}

func boolOutputType(inputs []types.Type, f ir.Fields) (ir.ReturnType, error) {
	return Singleton(types.Boolean), nil
}

// compareWasm returns the emitter for one of the three comparisons. Both
// operands are assumed already unboxed to the same base by the input
// switcher's monomorphisation; for the (Number, Number) case a single
// f64 comparison instruction (numberCompareOp) does lt/gt, and eq ORs
// f64.eq with "both operands are NaN" so that NaN==NaN is true. For any case
// spanning String, the imported eq_string/lt_string/gt_string helper is
// used.
func compareWasm(which string) func(FuncCtx, []types.Type, ir.Fields) ([]wasmbin.Instruction, error) {
	return func(ctx FuncCtx, inputs []types.Type, f ir.Fields) ([]wasmbin.Instruction, error) {
		a, b := inputs[0], inputs[1]
		if a.Intersects(types.String) || b.Intersects(types.String) {
			helper := ctx.Import("operator", which+"_string", wasmbin.FunctionType{
				Params:  []wasmbin.ValueType{wasmbin.ValueTypeExternref, wasmbin.ValueTypeExternref},
				Results: []wasmbin.ValueType{wasmbin.ValueTypeI32},
			})
			return []wasmbin.Instruction{wasmbin.Call(helper)}, nil
		}
		if which == "eq" {
			x, y := ctx.NewLocal(wasmbin.ValueTypeF64), ctx.NewLocal(wasmbin.ValueTypeF64)
			return []wasmbin.Instruction{
				wasmbin.LocalSet(y), wasmbin.LocalSet(x),
				wasmbin.LocalGet(x), wasmbin.LocalGet(y), wasmbin.Simple(wasmbin.OpF64Eq),
				wasmbin.LocalGet(x), wasmbin.LocalGet(x), wasmbin.Simple(wasmbin.OpF64Ne),
				wasmbin.LocalGet(y), wasmbin.LocalGet(y), wasmbin.Simple(wasmbin.OpF64Ne),
				wasmbin.Simple(wasmbin.OpI32And),
				wasmbin.Simple(wasmbin.OpI32Or),
			}, nil
		}
		return []wasmbin.Instruction{wasmbin.Simple(numberCompareOp(which))}, nil
	}
}

func numberCompareOp(which string) wasmbin.Op {
	switch which {
	case "eq":
		return wasmbin.OpF64Eq
	case "lt":
		return wasmbin.OpF64Lt
	default:
		return wasmbin.OpF64Gt
	}
}
