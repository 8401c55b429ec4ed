package opcodes

import (
	"scratchc/internal/ir"
	"scratchc/internal/types"
	"scratchc/internal/wasmbin"
)

// hq_drop/hq_dup are stack-shape synthetic ops for rearranging values
// without touching variables; hq_swap has an ir.Kind but no catalogue
// entry, and no pass in this repository emits any of the three. Their
// acceptable input is always Any at this level; the
// surrounding pass is responsible for only emitting them where the
// concrete type is already known, so output_type simply forwards it.
func init() {
	register(ir.HqDrop, Def{
		AcceptableInputs: anySingle,
		OutputType:       func([]types.Type, ir.Fields) (ir.ReturnType, error) { return ir.None(), nil },
		Wasm:             func(FuncCtx, []types.Type, ir.Fields) ([]wasmbin.Instruction, error) {
			return []wasmbin.Instruction{wasmbin.Simple(wasmbin.OpDrop)}, nil
		},
	})
	register(ir.HqDup, Def{
		AcceptableInputs: anySingle,
		OutputType:       dupOutputType,
		Wasm:             dupWasm,
	})
}

func anySingle(ir.Fields) ([]types.Type, error) { return []types.Type{types.Any}, nil }

func dupOutputType(inputs []types.Type, f ir.Fields) (ir.ReturnType, error) {
	return ir.Multi([]types.Type{inputs[0], inputs[0]}), nil
}

// dupWasm duplicates the top of stack via a fresh local: tee leaves a
// copy on the stack while also stashing it, then a get pushes the
// second copy.
func dupWasm(ctx FuncCtx, inputs []types.Type, f ir.Fields) ([]wasmbin.Instruction, error) {
	vt := wasmWide(inputs[0])
	tmp := ctx.NewLocal(vt)
	return []wasmbin.Instruction{
		wasmbin.LocalTee(tmp),
		wasmbin.LocalGet(tmp),
	}, nil
}

// wasmWide returns the WASM value type used to hold t: its base type's
// natural lowering if t is a base type, else the i64 boxed
// representation (§4.6).
//
// QuasiInt (§4.1) bundles two rather different runtime shapes under one
// lattice base: genuine booleans and known-integral numbers. Scratch has
// no separate integer runtime type — every number is an f64 — so only
// the boolean slice of QuasiInt is ever actually stored as i32; a
// variable/list whose possible types narrow to plain Int (no Boolean
// bit set) still lowers to f64, the same as Float, matching every
// arithmetic opcode's hardcoded f64 instruction bodies. t.BaseType()
// itself keeps treating QuasiInt as one lattice base throughout cast
// insertion and SSA type narrowing (e.g. castWasm's int2string/
// float2string helper choice) — that symbolic grouping is unrelated to
// the physical wasm type chosen here.
// WasmWide exports wasmWide for the code generator, which needs the
// same representation decision outside an opcode's own Wasm function —
// e.g. to pick a Variable's global type or a procedure argument's local
// type.
func WasmWide(t types.Type) wasmbin.ValueType { return wasmWide(t) }

func wasmWide(t types.Type) wasmbin.ValueType {
	if t != types.None && types.Boolean.Contains(t) {
		return wasmbin.ValueTypeI32
	}
	base, ok := t.BaseType()
	if !ok {
		return wasmbin.ValueTypeI64
	}
	switch base {
	case types.String:
		return wasmbin.ValueTypeExternref
	default: // types.QuasiInt (non-boolean Int) or types.Float
		return wasmbin.ValueTypeF64
	}
}

// boxToI64 converts whatever is on top of the stack, in from's natural
// wasm representation, into the uniform 64-bit NaN-boxed value (§4.6,
// §9 "Boxed NaN tagging") every multi-base operand, list element and
// warp-call argument shares regardless of which base a particular call
// site narrowed its operand to. A plain f64 needs only a bit
// reinterpretation, since an ordinary number is already a valid boxed
// pattern by construction. A boolean (i32) is zero-extended into the low
// word and tagged with BoxedIntHighPattern in the high word. A string
// (externref) cannot be reinterpreted into an integer at all — externref
// is WASM's opaque reference type, with no instruction that recovers a
// bit pattern from an arbitrary runtime value — so a runtime string is
// instead written into a fresh slot of the `strings` table (reserved
// arena capacity past the compile-time string constants, handed out by
// the BoxArenaNext bump-pointer global) and that slot's index is what
// gets tagged with BoxedStringHighPattern and boxed.
// BoxToI64 exports boxToI64 for the code generator's warp procedure call
// lowering, which needs the identical boxed i64 calling convention every
// procedure argument crosses a `call` boundary with.
func BoxToI64(ctx FuncCtx, from types.Type) []wasmbin.Instruction { return boxToI64(ctx, from) }

func boxToI64(ctx FuncCtx, from types.Type) []wasmbin.Instruction {
	switch wasmWide(from) {
	case wasmbin.ValueTypeI64:
		return nil
	case wasmbin.ValueTypeF64:
		return []wasmbin.Instruction{wasmbin.Simple(wasmbin.OpI64ReinterpretF64)}
	case wasmbin.ValueTypeExternref:
		return boxString(ctx)
	default: // i32: boolean
		return []wasmbin.Instruction{
			wasmbin.Simple(wasmbin.OpI64ExtendI32U),
			wasmbin.I64Const(int64(BoxedIntHighPattern) << 32),
			wasmbin.Simple(wasmbin.OpI64Or),
		}
	}
}

// boxString spills the externref already on the stack into the next
// free arena slot of the strings table, bumps the arena pointer, and
// boxes that slot's index. table.set needs [index, value] with value on
// top, and the externref is already on the stack above everything else,
// so the value is stashed in a local first and the index computed
// underneath it before the table.set is emitted.
func boxString(ctx FuncCtx) []wasmbin.Instruction {
	valLocal := ctx.NewLocal(wasmbin.ValueTypeExternref)
	idxLocal := ctx.NewLocal(wasmbin.ValueTypeI32)
	arena := ctx.BoxArenaNext()
	return []wasmbin.Instruction{
		wasmbin.LocalSet(valLocal),
		wasmbin.GlobalGet(arena),
		wasmbin.LocalTee(idxLocal),
		wasmbin.LocalGet(valLocal),
		wasmbin.TableSet(uint32(wasmbin.TableStrings)),
		wasmbin.GlobalGet(arena),
		wasmbin.I32Const(1),
		wasmbin.Simple(wasmbin.OpI32Add),
		wasmbin.GlobalSet(arena),
		wasmbin.LocalGet(idxLocal),
		wasmbin.Simple(wasmbin.OpI64ExtendI32U),
		wasmbin.I64Const(int64(BoxedStringHighPattern) << 32),
		wasmbin.Simple(wasmbin.OpI64Or),
	}
}

// UnboxTo converts a boxed i64 value on top of the stack into the
// concrete representation want — the code generator's §4.6 input
// switcher, used when an operand's static type spans more than one base
// but its consumer declares a single-base acceptable input. It spills
// the boxed value to a local, tests its high word against the two
// reserved tag patterns with a nested if/else (the only three
// possibilities the NaN-box scheme admits: boxed int, boxed string, or
// else an ordinary float by reinterpretation), unpacks whichever base
// matched, and coerces that base's native value to want.
func UnboxTo(ctx FuncCtx, want wasmbin.ValueType) []wasmbin.Instruction {
	boxed := ctx.NewLocal(wasmbin.ValueTypeI64)

	var out []wasmbin.Instruction
	out = append(out, wasmbin.LocalSet(boxed))
	out = append(out, boxedHighWord(boxed)...)
	out = append(out, wasmbin.I32Const(int32(BoxedIntHighPattern)), wasmbin.Simple(wasmbin.OpI32Eq))
	out = append(out, wasmbin.If(wasmbin.BlockType{Result: want}))
	out = append(out, boxedLowWordI32(boxed)...) // boxed-int payload: a Boolean's i32 value
	out = append(out, fromI32(want)...)
	out = append(out, wasmbin.Simple(wasmbin.OpElse))
	out = append(out, boxedHighWord(boxed)...)
	out = append(out, wasmbin.I32Const(int32(BoxedStringHighPattern)), wasmbin.Simple(wasmbin.OpI32Eq))
	out = append(out, wasmbin.If(wasmbin.BlockType{Result: want}))
	out = append(out, boxedLowWordI32(boxed)...)
	out = append(out, wasmbin.TableGet(uint32(wasmbin.TableStrings)))
	out = append(out, fromExternref(want)...)
	out = append(out, wasmbin.Simple(wasmbin.OpElse))
	out = append(out, wasmbin.LocalGet(boxed), wasmbin.Simple(wasmbin.OpF64ReinterpretI64))
	out = append(out, fromF64(want)...)
	out = append(out, wasmbin.Simple(wasmbin.OpEnd))
	out = append(out, wasmbin.Simple(wasmbin.OpEnd))
	return out
}

// boxedHighWord reads boxed's high 32 bits — the NaN-box tag word.
func boxedHighWord(boxed uint32) []wasmbin.Instruction {
	return []wasmbin.Instruction{
		wasmbin.LocalGet(boxed),
		wasmbin.I64Const(32),
		wasmbin.Simple(wasmbin.OpI64ShrU),
		wasmbin.Simple(wasmbin.OpI32WrapI64),
	}
}

// boxedLowWordI32 reads boxed's low 32 bits as a raw i32 payload.
func boxedLowWordI32(boxed uint32) []wasmbin.Instruction {
	return []wasmbin.Instruction{
		wasmbin.LocalGet(boxed),
		wasmbin.Simple(wasmbin.OpI32WrapI64),
	}
}

// fromI32 coerces a just-unboxed Boolean i32 payload to want.
func fromI32(want wasmbin.ValueType) []wasmbin.Instruction {
	switch want {
	case wasmbin.ValueTypeI32:
		return nil
	case wasmbin.ValueTypeF64:
		return []wasmbin.Instruction{wasmbin.Simple(wasmbin.OpF64ConvertI32S)}
	default:
		// A Boolean payload flowing into a String-only consumer cannot
		// arise given SSA type narrowing; drop and substitute null rather
		// than emit an ill-typed value.
		return []wasmbin.Instruction{wasmbin.Simple(wasmbin.OpDrop), wasmbin.RefNull(wasmbin.ValueTypeExternref)}
	}
}

// fromExternref coerces a just-unboxed string payload to want.
func fromExternref(want wasmbin.ValueType) []wasmbin.Instruction {
	if want == wasmbin.ValueTypeExternref {
		return nil
	}
	// A String payload flowing into a Number-only consumer cannot arise
	// given SSA type narrowing; drop and substitute a zero.
	if want == wasmbin.ValueTypeI32 {
		return []wasmbin.Instruction{wasmbin.Simple(wasmbin.OpDrop), wasmbin.I32Const(0)}
	}
	return []wasmbin.Instruction{wasmbin.Simple(wasmbin.OpDrop), wasmbin.F64Const(0)}
}

// fromF64 coerces a just-unboxed plain float to want.
func fromF64(want wasmbin.ValueType) []wasmbin.Instruction {
	switch want {
	case wasmbin.ValueTypeF64:
		return nil
	case wasmbin.ValueTypeI32:
		// Numeric truthiness: nonzero is true. Scratch's own boolean
		// coercion of a number follows the same rule (§4.5 castWasm).
		return []wasmbin.Instruction{wasmbin.F64Const(0), wasmbin.Simple(wasmbin.OpF64Ne)}
	default:
		return []wasmbin.Instruction{wasmbin.Simple(wasmbin.OpDrop), wasmbin.RefNull(wasmbin.ValueTypeExternref)}
	}
}

// TargetRepr picks the physical representation a restricted acceptable
// input (Number, Boolean or String — never the fully generic Any)
// requires, for use with UnboxTo when the arriving operand's static
// type has no single BaseType. Number spans two of the three symbolic
// bases (QuasiInt, Float) but both already lower to f64 (§4.6), so it
// resolves the same as either alone.
func TargetRepr(accepts types.Type) wasmbin.ValueType {
	switch {
	case accepts == types.Boolean:
		return wasmbin.ValueTypeI32
	case accepts != types.None && types.String.Contains(accepts) && !accepts.Intersects(types.Number):
		return wasmbin.ValueTypeExternref
	default:
		return wasmbin.ValueTypeF64
	}
}
