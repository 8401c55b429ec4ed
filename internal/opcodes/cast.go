package opcodes

import (
	"scratchc/internal/ir"
	"scratchc/internal/types"
	"scratchc/internal/wasmbin"
)

// hq_cast(to): chooses the best base type to cast to (prefer the
// operand's own base if it already has one; otherwise a fixed
// Float -> String -> QuasiInt preference order), then emits the
// matching conversion.
func init() {
	register(ir.HqCast, Def{
		AcceptableInputs: castAcceptableInputs,
		OutputType:       castOutputType,
		Wasm:             castWasm,
	})
}

func castAcceptableInputs(f ir.Fields) ([]types.Type, error) {
	return []types.Type{types.Any}, nil
}

func castOutputType(inputs []types.Type, f ir.Fields) (ir.ReturnType, error) {
	cf, ok := f.(ir.CastFields)
	if !ok {
		return ir.ReturnType{}, errNotCastFields
	}
	return Singleton(cf.To), nil
}

// preferredBase picks which of the three bases to route a cast through
// when `to` itself is not a single base type (i.e. the destination is
// boxed): same base as the source if possible, else Float, then String,
// then QuasiInt.
func preferredBase(from, to types.Type) types.Type {
	if fb, ok := from.BaseType(); ok && to.Intersects(fb) {
		return fb
	}
	for _, b := range []types.Type{types.Float, types.String, types.QuasiInt} {
		if to.Intersects(b) {
			return b
		}
	}
	return types.Float
}

func castWasm(ctx FuncCtx, inputs []types.Type, f ir.Fields) ([]wasmbin.Instruction, error) {
	cf, ok := f.(ir.CastFields)
	if !ok {
		return nil, errNotCastFields
	}
	from := inputs[0]

	// A Boolean destination is handled separately from the three-base
	// preferredBase logic below: QuasiInt bundles Boolean together with
	// plain integers (§4.1), so "cast to QuasiInt" and "cast to Boolean"
	// would otherwise be indistinguishable even though they need
	// different physical representations (i32 vs f64).
	if cf.To != types.None && types.Boolean.Contains(cf.To) {
		return castToBooleanWasm(ctx, from)
	}

	fromBase, fromIsBase := from.BaseType()
	toBase := preferredBase(from, cf.To)

	if fromIsBase && fromBase == toBase {
		return nil, nil // already the right representation
	}

	switch {
	case wasmWide(from) == wasmWide(toBase):
		// Float and (non-boolean) QuasiInt share the same physical f64
		// representation (§4.6: "this compiler represents all numbers as
		// f64 locals pre-boxing") — the symbolic base differs but no
		// runtime conversion is needed.
		return nil, nil
	case wasmWide(from) == wasmbin.ValueTypeI32 && wasmWide(toBase) == wasmbin.ValueTypeF64:
		// A genuine Boolean value flowing into a numeric consumer (true/
		// false used as 1/0): from's symbolic base is QuasiInt here too,
		// but physically it is i32, not the f64 the destination needs.
		return []wasmbin.Instruction{wasmbin.Simple(wasmbin.OpF64ConvertI32S)}, nil
	case toBase == types.String:
		name := "float2string"
		if fromBase == types.QuasiInt {
			name = "int2string"
		}
		helper := ctx.Import("cast", name, wasmbin.FunctionType{
			Params:  []wasmbin.ValueType{wasmWide(from)},
			Results: []wasmbin.ValueType{wasmbin.ValueTypeExternref},
		})
		return []wasmbin.Instruction{wasmbin.Call(helper)}, nil
	case fromBase == types.String:
		name := "string2float"
		if toBase == types.QuasiInt {
			name = "string2int"
		}
		helper := ctx.Import("cast", name, wasmbin.FunctionType{
			Params:  []wasmbin.ValueType{wasmbin.ValueTypeExternref},
			Results: []wasmbin.ValueType{wasmWide(types.Type(toBase))},
		})
		return []wasmbin.Instruction{wasmbin.Call(helper)}, nil
	default:
		return nil, errUnsupportedCast
	}
}

// castToBooleanWasm converts whatever is on the stack to an i32
// truthiness value: already-boolean values pass through, a number is
// compared against zero, a string is truthy unless empty or exactly
// "0" (checked with the §6-enumerated js-string length import and the
// operator.eq_string import, the latter being the one operator_equals
// already uses — no cast-to-bool import is enumerated there, so this stays
// in-module), and a boxed value is dispatched by its NaN-box tag the
// same way UnboxTo is, rather than crossing the host boundary at all.
func castToBooleanWasm(ctx FuncCtx, from types.Type) ([]wasmbin.Instruction, error) {
	switch wasmWide(from) {
	case wasmbin.ValueTypeI32:
		return nil, nil
	case wasmbin.ValueTypeF64:
		return []wasmbin.Instruction{wasmbin.F64Const(0), wasmbin.Simple(wasmbin.OpF64Ne)}, nil
	case wasmbin.ValueTypeExternref:
		return stringTruthyWasm(ctx), nil
	default: // boxed (i64)
		return boxedTruthyWasm(ctx), nil
	}
}

// stringTruthyWasm consumes an externref already on the stack and
// leaves an i32 truthiness value: false only for the empty string or
// the literal string "0" (Scratch's string-truthiness rule).
func stringTruthyWasm(ctx FuncCtx) []wasmbin.Instruction {
	s := ctx.NewLocal(wasmbin.ValueTypeExternref)
	lengthFn := ctx.Import("wasm:js-string", "length", wasmbin.FunctionType{
		Params:  []wasmbin.ValueType{wasmbin.ValueTypeExternref},
		Results: []wasmbin.ValueType{wasmbin.ValueTypeI32},
	})
	eqFn := ctx.Import("operator", "eq_string", wasmbin.FunctionType{
		Params:  []wasmbin.ValueType{wasmbin.ValueTypeExternref, wasmbin.ValueTypeExternref},
		Results: []wasmbin.ValueType{wasmbin.ValueTypeI32},
	})
	zero := ctx.StringIndex("0")
	return []wasmbin.Instruction{
		wasmbin.LocalSet(s),
		wasmbin.LocalGet(s), wasmbin.Call(lengthFn),
		wasmbin.I32Const(0), wasmbin.Simple(wasmbin.OpI32Ne),
		wasmbin.LocalGet(s),
		wasmbin.I32Const(int32(zero)), wasmbin.TableGet(uint32(wasmbin.TableStrings)),
		wasmbin.Call(eqFn),
		wasmbin.I32Const(0), wasmbin.Simple(wasmbin.OpI32Eq),
		wasmbin.Simple(wasmbin.OpI32And),
	}
}

// boxedTruthyWasm consumes a boxed i64 already on the stack and leaves
// an i32 truthiness value, dispatching on the NaN-box tag (the same
// pattern UnboxTo uses): a boxed int is already a 0/1-valued Boolean
// payload (boxToI64's only i32 case), a boxed string defers to
// stringTruthyWasm, and anything else is an ordinary float compared
// against zero.
func boxedTruthyWasm(ctx FuncCtx) []wasmbin.Instruction {
	boxed := ctx.NewLocal(wasmbin.ValueTypeI64)

	var out []wasmbin.Instruction
	out = append(out, wasmbin.LocalSet(boxed))
	out = append(out, boxedHighWord(boxed)...)
	out = append(out, wasmbin.I32Const(int32(BoxedIntHighPattern)), wasmbin.Simple(wasmbin.OpI32Eq))
	out = append(out, wasmbin.If(wasmbin.BlockType{Result: wasmbin.ValueTypeI32}))
	out = append(out, boxedLowWordI32(boxed)...)
	out = append(out, wasmbin.Simple(wasmbin.OpElse))
	out = append(out, boxedHighWord(boxed)...)
	out = append(out, wasmbin.I32Const(int32(BoxedStringHighPattern)), wasmbin.Simple(wasmbin.OpI32Eq))
	out = append(out, wasmbin.If(wasmbin.BlockType{Result: wasmbin.ValueTypeI32}))
	out = append(out, boxedLowWordI32(boxed)...)
	out = append(out, wasmbin.TableGet(uint32(wasmbin.TableStrings)))
	out = append(out, stringTruthyWasm(ctx)...)
	out = append(out, wasmbin.Simple(wasmbin.OpElse))
	out = append(out, wasmbin.LocalGet(boxed), wasmbin.Simple(wasmbin.OpF64ReinterpretI64))
	out = append(out, wasmbin.F64Const(0), wasmbin.Simple(wasmbin.OpF64Ne))
	out = append(out, wasmbin.Simple(wasmbin.OpEnd))
	out = append(out, wasmbin.Simple(wasmbin.OpEnd))
	return out
}
