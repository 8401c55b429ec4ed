package opcodes

import (
	"scratchc/internal/ir"
	"scratchc/internal/types"
	"scratchc/internal/wasmbin"
)

func noInputs(ir.Fields) ([]types.Type, error) { return nil, nil }

func init() {
	register(ir.HqInteger, Def{
		AcceptableInputs: noInputs,
		OutputType:       integerOutputType,
		Wasm:             integerWasm,
	})
	register(ir.HqFloat, Def{
		AcceptableInputs: noInputs,
		OutputType:       floatOutputType,
		Wasm:             floatWasm,
	})
	register(ir.HqText, Def{
		AcceptableInputs: noInputs,
		OutputType:       textOutputType,
		Wasm:             textWasm,
	})
	register(ir.HqBoolean, Def{
		AcceptableInputs: noInputs,
		OutputType:       booleanLiteralOutputType,
		Wasm:             booleanWasm,
	})
}

func literalFields(f ir.Fields) (ir.LiteralFields, bool) {
	lf, ok := f.(ir.LiteralFields)
	return lf, ok
}

func integerOutputType(inputs []types.Type, f ir.Fields) (ir.ReturnType, error) {
	lf, _ := literalFields(f)
	switch {
	case lf.Int > 0:
		return Singleton(types.IntPos), nil
	case lf.Int < 0:
		return Singleton(types.IntNeg), nil
	default:
		return Singleton(types.IntZero), nil
	}
}

func integerWasm(ctx FuncCtx, inputs []types.Type, f ir.Fields) ([]wasmbin.Instruction, error) {
	lf, _ := literalFields(f)
	return []wasmbin.Instruction{wasmbin.F64Const(float64(lf.Int))}, nil
}

func floatOutputType(inputs []types.Type, f ir.Fields) (ir.ReturnType, error) {
	lf, _ := literalFields(f)
	v := lf.Float
	switch {
	case v != v: // NaN
		return Singleton(types.FloatNan), nil
	case v == 0:
		return Singleton(types.FloatPosZero), nil
	case v > 0:
		if v == float64(int64(v)) {
			return Singleton(types.FloatPosInt), nil
		}
		return Singleton(types.FloatPosFrac), nil
	default:
		if v == float64(int64(v)) {
			return Singleton(types.FloatNegInt), nil
		}
		return Singleton(types.FloatNegFrac), nil
	}
}

func floatWasm(ctx FuncCtx, inputs []types.Type, f ir.Fields) ([]wasmbin.Instruction, error) {
	lf, _ := literalFields(f)
	return []wasmbin.Instruction{wasmbin.F64Const(lf.Float)}, nil
}

func textOutputType(inputs []types.Type, f ir.Fields) (ir.ReturnType, error) {
	lf, _ := literalFields(f)
	return Singleton(classifyStringContent(lf.Text)), nil
}

// classifyStringContent implements the content-based String atomic
// kinds: a compile-time-known text literal is classified the same way
// data_setvariableto's string operand would be at runtime, so cast
// insertion/SSA can narrow it just as tightly as a numeric literal.
func classifyStringContent(s string) types.Type {
	switch s {
	case "true", "false":
		return types.StringBoolean
	case "NaN":
		return types.StringNan
	}
	if isNumericString(s) {
		return types.StringNumber
	}
	return types.StringOther
}

func isNumericString(s string) bool {
	if s == "" {
		return false
	}
	seenDigit, seenDot := false, false
	for i, r := range s {
		switch {
		case r == '-' && i == 0:
		case r == '.' && !seenDot:
			seenDot = true
		case r >= '0' && r <= '9':
			seenDigit = true
		default:
			return false
		}
	}
	return seenDigit
}

func textWasm(ctx FuncCtx, inputs []types.Type, f ir.Fields) ([]wasmbin.Instruction, error) {
	lf, _ := literalFields(f)
	idx := ctx.StringIndex(lf.Text)
	return []wasmbin.Instruction{
		wasmbin.I32Const(int32(idx)),
		wasmbin.TableGet(uint32(wasmbin.TableStrings)),
	}, nil
}

func booleanLiteralOutputType(inputs []types.Type, f ir.Fields) (ir.ReturnType, error) {
	lf, _ := literalFields(f)
	if lf.Bool {
		return Singleton(types.BooleanTrue), nil
	}
	return Singleton(types.BooleanFalse), nil
}

func booleanWasm(ctx FuncCtx, inputs []types.Type, f ir.Fields) ([]wasmbin.Instruction, error) {
	lf, _ := literalFields(f)
	v := int32(0)
	if lf.Bool {
		v = 1
	}
	return []wasmbin.Instruction{wasmbin.I32Const(v)}, nil
}
