package opcodes

import (
	"scratchc/internal/ir"
	"scratchc/internal/types"
	"scratchc/internal/wasmbin"
)

// ListCap is the §5 200,000-element append cap: data_addtolist is a
// no-op once a list's length reaches this bound.
const ListCap uint32 = 200000

// listItemSize is the byte width of one stored element: every list
// element travels boxed (§4.6), regardless of which base a particular
// list's values happen to take at runtime, so every slot is a uniform
// i64.
const listItemSize uint32 = 8

// ListBlockSize is the per-list linear-memory footprint: a 4-byte i32
// length cell followed by ListCap boxed-i64 element slots. Lists are
// laid out as fixed-capacity linear-memory arrays rather than true WASM
// GC arrays (this encoder models no array heap type or array.new/get/set
// instruction — see DESIGN.md); memory load/store is the in-module
// primitive this compiler actually has for indexed, growable storage.
const ListBlockSize uint32 = 4 + ListCap*listItemSize

func init() {
	register(ir.DataAddToList, Def{
		AcceptableInputs: func(ir.Fields) ([]types.Type, error) { return []types.Type{types.Any}, nil },
		OutputType:       func([]types.Type, ir.Fields) (ir.ReturnType, error) { return ir.None(), nil },
		Wasm:             addToListWasm,
	})
	register(ir.DataItemOfList, Def{
		AcceptableInputs: func(ir.Fields) ([]types.Type, error) { return []types.Type{types.Number}, nil },
		OutputType:       func([]types.Type, ir.Fields) (ir.ReturnType, error) { return Singleton(types.Any), nil },
		Wasm:             itemOfListWasm,
	})
	register(ir.DataLengthOfList, Def{
		AcceptableInputs: noInputs,
		OutputType:       func([]types.Type, ir.Fields) (ir.ReturnType, error) { return Singleton(types.IntNonZero.Or(types.IntZero)), nil },
		Wasm:             lengthOfListWasm,
	})
	register(ir.DataReplaceItemOfList, Def{
		AcceptableInputs: func(ir.Fields) ([]types.Type, error) { return []types.Type{types.Number, types.Any}, nil },
		OutputType:       func([]types.Type, ir.Fields) (ir.ReturnType, error) { return ir.None(), nil },
		Wasm:             replaceItemOfListWasm,
	})
}

func listFields(f ir.Fields) (ir.ListFields, bool) {
	lf, ok := f.(ir.ListFields)
	return lf, ok
}

// listBase returns the fixed byte offset of l's length cell: the lists
// region start (known up front from the Target layout alone, §6) plus
// one ListBlockSize per list slot ahead of l's own, in registration
// order.
func listBase(ctx FuncCtx, l *ir.List) uint32 {
	return ctx.ListsBase() + ctx.ListSlot(l)*ListBlockSize
}

// addToListWasm boxes the value already on the stack (§4.6) then, if the
// list's length cell (offset 0 of its block) is still under ListCap,
// stores it at offset 4+length*8 and increments the length cell — the §5
// 200,000-element cap enforced entirely in-module, with no host
// round-trip.
func addToListWasm(ctx FuncCtx, inputs []types.Type, f ir.Fields) ([]wasmbin.Instruction, error) {
	lf, ok := listFields(f)
	if !ok {
		return nil, errNotListFields
	}
	base := listBase(ctx, lf.List)

	valLocal := ctx.NewLocal(wasmbin.ValueTypeI64)
	lenLocal := ctx.NewLocal(wasmbin.ValueTypeI32)

	var out []wasmbin.Instruction
	out = append(out, boxToI64(ctx, inputs[0])...)
	out = append(out, wasmbin.LocalSet(valLocal))
	out = append(out,
		wasmbin.I32Const(0), wasmbin.I32Load(base),
		wasmbin.LocalTee(lenLocal),
		wasmbin.I32Const(int32(ListCap)),
		wasmbin.Simple(wasmbin.OpI32LtS),
		wasmbin.If(wasmbin.VoidBlock()),
		// address = length*8, offset = base+4
		wasmbin.I32Const(0), wasmbin.LocalGet(lenLocal),
		wasmbin.I32Const(int32(listItemSize)), wasmbin.Simple(wasmbin.OpI32Mul),
		wasmbin.Simple(wasmbin.OpI32Add),
		wasmbin.LocalGet(valLocal),
		wasmbin.I64Store(base+4),
		// length cell += 1
		wasmbin.I32Const(0), wasmbin.LocalGet(lenLocal),
		wasmbin.I32Const(1), wasmbin.Simple(wasmbin.OpI32Add),
		wasmbin.I32Store(base),
		wasmbin.Simple(wasmbin.OpEnd),
	)
	return out, nil
}

// itemOfListWasm implements 1-based indexing with an empty string for an
// out-of-range index (§4.2), via an in-module bounds check and a memory
// load.
func itemOfListWasm(ctx FuncCtx, inputs []types.Type, f ir.Fields) ([]wasmbin.Instruction, error) {
	lf, ok := listFields(f)
	if !ok {
		return nil, errNotListFields
	}
	base := listBase(ctx, lf.List)

	idxF := ctx.NewLocal(wasmbin.ValueTypeF64)
	idxI := ctx.NewLocal(wasmbin.ValueTypeI32)
	lenLocal := ctx.NewLocal(wasmbin.ValueTypeI32)

	out := []wasmbin.Instruction{
		wasmbin.LocalSet(idxF),
		wasmbin.LocalGet(idxF), wasmbin.Simple(wasmbin.OpI32TruncF64S),
		wasmbin.LocalSet(idxI),
		wasmbin.I32Const(0), wasmbin.I32Load(base), wasmbin.LocalSet(lenLocal),

		wasmbin.LocalGet(idxI), wasmbin.I32Const(1), wasmbin.Simple(wasmbin.OpI32GeS),
		wasmbin.LocalGet(idxI), wasmbin.LocalGet(lenLocal), wasmbin.Simple(wasmbin.OpI32LeS),
		wasmbin.Simple(wasmbin.OpI32And),
		wasmbin.If(wasmbin.BlockType{Result: wasmbin.ValueTypeI64}),
		wasmbin.I32Const(0), wasmbin.LocalGet(idxI),
		wasmbin.I32Const(1), wasmbin.Simple(wasmbin.OpI32Sub),
		wasmbin.I32Const(int32(listItemSize)), wasmbin.Simple(wasmbin.OpI32Mul),
		wasmbin.Simple(wasmbin.OpI32Add),
		wasmbin.I64Load(base + 4),
		wasmbin.Simple(wasmbin.OpElse),
		wasmbin.I64Const(int64(BoxedStringHighPattern)<<32 | int64(ctx.StringIndex(""))), // a boxed string pointing at the strings-table slot interned for ""
		wasmbin.Simple(wasmbin.OpEnd),
	}
	return out, nil
}

func lengthOfListWasm(ctx FuncCtx, inputs []types.Type, f ir.Fields) ([]wasmbin.Instruction, error) {
	lf, ok := listFields(f)
	if !ok {
		return nil, errNotListFields
	}
	base := listBase(ctx, lf.List)
	return []wasmbin.Instruction{
		wasmbin.I32Const(0), wasmbin.I32Load(base),
		wasmbin.Simple(wasmbin.OpF64ConvertI32S),
	}, nil
}

// replaceItemOfListWasm is itemOfListWasm's bounds check with a store in
// place of a load; an out-of-range index is silently ignored (§4.2).
func replaceItemOfListWasm(ctx FuncCtx, inputs []types.Type, f ir.Fields) ([]wasmbin.Instruction, error) {
	lf, ok := listFields(f)
	if !ok {
		return nil, errNotListFields
	}
	base := listBase(ctx, lf.List)

	idxF := ctx.NewLocal(wasmbin.ValueTypeF64)
	idxI := ctx.NewLocal(wasmbin.ValueTypeI32)
	lenLocal := ctx.NewLocal(wasmbin.ValueTypeI32)
	valLocal := ctx.NewLocal(wasmbin.ValueTypeI64)

	var out []wasmbin.Instruction
	out = append(out, boxToI64(ctx, inputs[1])...)
	out = append(out, wasmbin.LocalSet(valLocal))
	out = append(out, wasmbin.LocalSet(idxF))
	out = append(out,
		wasmbin.LocalGet(idxF), wasmbin.Simple(wasmbin.OpI32TruncF64S),
		wasmbin.LocalSet(idxI),
		wasmbin.I32Const(0), wasmbin.I32Load(base), wasmbin.LocalSet(lenLocal),

		wasmbin.LocalGet(idxI), wasmbin.I32Const(1), wasmbin.Simple(wasmbin.OpI32GeS),
		wasmbin.LocalGet(idxI), wasmbin.LocalGet(lenLocal), wasmbin.Simple(wasmbin.OpI32LeS),
		wasmbin.Simple(wasmbin.OpI32And),
		wasmbin.If(wasmbin.VoidBlock()),
		wasmbin.I32Const(0), wasmbin.LocalGet(idxI),
		wasmbin.I32Const(1), wasmbin.Simple(wasmbin.OpI32Sub),
		wasmbin.I32Const(int32(listItemSize)), wasmbin.Simple(wasmbin.OpI32Mul),
		wasmbin.Simple(wasmbin.OpI32Add),
		wasmbin.LocalGet(valLocal),
		wasmbin.I64Store(base+4),
		wasmbin.Simple(wasmbin.OpEnd),
	)
	return out, nil
}
