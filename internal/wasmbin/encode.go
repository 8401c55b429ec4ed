package wasmbin

import (
	"encoding/binary"
	"math"
)

// Section IDs, in the order §6 specifies they are emitted.
const (
	sectionType     = 1
	sectionImport   = 2
	sectionFunction = 3
	sectionTable    = 4
	sectionMemory   = 5
	sectionGlobal   = 6
	sectionExport   = 7
	sectionStart    = 8
	sectionElement  = 9
	sectionDataCount = 12
	sectionCode     = 10
	sectionData     = 11
)

const (
	exportKindFunc   = 0x00
	exportKindTable  = 0x01
	exportKindMemory = 0x02
	exportKindGlobal = 0x03
)

// Encode serialises m into a complete WASM binary module: the magic
// number "\0asm", version 1, then each section in §6's fixed order,
// each length-prefixed with a ULEB128 byte count, mirroring the
// magic-number-then-version framing the teacher's
// buildutil.BytecodeFile.Serialize uses for its own binary format.
func Encode(m *Module) []byte {
	var out []byte
	out = append(out, 0x00, 0x61, 0x73, 0x6D) // "\0asm"
	out = append(out, 0x01, 0x00, 0x00, 0x00) // version 1

	out = appendSection(out, sectionType, encodeTypeSection(m))
	out = appendSection(out, sectionImport, encodeImportSection(m))
	out = appendSection(out, sectionFunction, encodeFunctionSection(m))
	out = appendSection(out, sectionTable, encodeTableSection(m))
	out = appendSection(out, sectionMemory, encodeMemorySection(m))
	out = appendSection(out, sectionGlobal, encodeGlobalSection(m))
	out = appendSection(out, sectionExport, encodeExportSection(m))
	out = appendSection(out, sectionElement, encodeElementSection(m))
	out = appendSection(out, sectionDataCount, putUleb128(nil, uint64(len(m.Data))))
	out = appendSection(out, sectionCode, encodeCodeSection(m))
	out = appendSection(out, sectionData, encodeDataSection(m))
	return out
}

func appendSection(out []byte, id byte, payload []byte) []byte {
	out = append(out, id)
	out = putUleb128(out, uint64(len(payload)))
	return append(out, payload...)
}

func encodeTypeSection(m *Module) []byte {
	var b []byte
	b = putUleb128(b, uint64(len(m.Types)))
	for _, ft := range m.Types {
		b = append(b, 0x60) // func type tag
		b = putUleb128(b, uint64(len(ft.Params)))
		for _, p := range ft.Params {
			b = append(b, byte(p))
		}
		b = putUleb128(b, uint64(len(ft.Results)))
		for _, r := range ft.Results {
			b = append(b, byte(r))
		}
	}
	return b
}

func encodeImportSection(m *Module) []byte {
	var b []byte
	b = putUleb128(b, uint64(len(m.Imports)))
	for _, im := range m.Imports {
		b = appendName(b, im.Module)
		b = appendName(b, im.Name)
		b = append(b, 0x00) // import kind: function
		b = putUleb128(b, uint64(im.TypeIndex))
	}
	return b
}

func encodeFunctionSection(m *Module) []byte {
	var b []byte
	b = putUleb128(b, uint64(len(m.Functions)))
	for _, f := range m.Functions {
		b = putUleb128(b, uint64(f.TypeIndex))
	}
	return b
}

func encodeTableSection(m *Module) []byte {
	var b []byte
	b = putUleb128(b, uint64(len(m.Tables)))
	for _, t := range m.Tables {
		b = append(b, byte(t.Elem))
		if t.Max != nil {
			b = append(b, 0x01)
			b = putUleb128(b, uint64(t.Min))
			b = putUleb128(b, uint64(*t.Max))
		} else {
			b = append(b, 0x00)
			b = putUleb128(b, uint64(t.Min))
		}
	}
	return b
}

func encodeMemorySection(m *Module) []byte {
	var b []byte
	b = putUleb128(b, 1)
	b = append(b, 0x00)
	b = putUleb128(b, uint64(m.MemoryMinPages))
	return b
}

func encodeGlobalSection(m *Module) []byte {
	var b []byte
	b = putUleb128(b, uint64(len(m.Globals)))
	for _, g := range m.Globals {
		b = append(b, byte(g.Type))
		if g.Mutable {
			b = append(b, 0x01)
		} else {
			b = append(b, 0x00)
		}
		b = encodeInstruction(b, g.Init)
		b = append(b, byte(OpEnd))
	}
	return b
}

func encodeExportSection(m *Module) []byte {
	var b []byte
	count := 0
	for _, f := range m.Functions {
		if f.Export != "" {
			count++
		}
	}
	if m.ExportMemory {
		count++
	}
	count += len(m.ExportTables)
	b = putUleb128(b, uint64(count))
	for i, f := range m.Functions {
		if f.Export == "" {
			continue
		}
		b = appendName(b, f.Export)
		b = append(b, exportKindFunc)
		b = putUleb128(b, uint64(i))
	}
	if m.ExportMemory {
		b = appendName(b, "memory")
		b = append(b, exportKindMemory)
		b = putUleb128(b, 0)
	}
	for _, tk := range m.ExportTables {
		b = appendName(b, tableName(tk))
		b = append(b, exportKindTable)
		b = putUleb128(b, uint64(tk))
	}
	return b
}

func encodeElementSection(m *Module) []byte {
	var b []byte
	b = putUleb128(b, uint64(len(m.Elements)))
	for _, el := range m.Elements {
		b = putUleb128(b, uint64(el.Table))
		b = append(b, byte(OpI32Const))
		b = putSleb128(b, int64(el.Offset))
		b = append(b, byte(OpEnd))
		b = putUleb128(b, uint64(len(el.FuncIndices)))
		for _, fi := range el.FuncIndices {
			b = putUleb128(b, uint64(fi))
		}
	}
	return b
}

func encodeCodeSection(m *Module) []byte {
	var b []byte
	b = putUleb128(b, uint64(len(m.Functions)))
	for _, f := range m.Functions {
		body := encodeFunctionBody(f)
		b = putUleb128(b, uint64(len(body)))
		b = append(b, body...)
	}
	return b
}

func encodeFunctionBody(f Function) []byte {
	var b []byte
	// Run-length-encoded local declarations: group consecutive equal
	// types, as the binary format requires.
	type run struct {
		typ   ValueType
		count int
	}
	var runs []run
	for _, l := range f.Locals {
		if len(runs) > 0 && runs[len(runs)-1].typ == l {
			runs[len(runs)-1].count++
		} else {
			runs = append(runs, run{typ: l, count: 1})
		}
	}
	b = putUleb128(b, uint64(len(runs)))
	for _, r := range runs {
		b = putUleb128(b, uint64(r.count))
		b = append(b, byte(r.typ))
	}
	for _, ins := range f.Body {
		b = encodeInstruction(b, ins)
	}
	b = append(b, byte(OpEnd))
	return b
}

func encodeDataSection(m *Module) []byte {
	var b []byte
	b = putUleb128(b, uint64(len(m.Data)))
	for _, d := range m.Data {
		b = append(b, 0x00) // active, memory 0
		b = append(b, byte(OpI32Const))
		b = putSleb128(b, int64(d.Offset))
		b = append(b, byte(OpEnd))
		b = putUleb128(b, uint64(len(d.Bytes)))
		b = append(b, d.Bytes...)
	}
	return b
}

func encodeInstruction(b []byte, ins Instruction) []byte {
	b = append(b, byte(ins.Op))
	switch ins.Op {
	case OpI32Const:
		b = putSleb128(b, int64(ins.I32))
	case OpI64Const:
		b = putSleb128(b, ins.I64)
	case OpF32Const:
		var buf [4]byte
		binary.LittleEndian.PutUint32(buf[:], math.Float32bits(ins.F32))
		b = append(b, buf[:]...)
	case OpF64Const:
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(ins.F64))
		b = append(b, buf[:]...)
	case OpLocalGet, OpLocalSet, OpLocalTee, OpGlobalGet, OpGlobalSet, OpCall, OpBr, OpBrIf:
		b = putUleb128(b, uint64(ins.Index))
	case OpCallIndirect:
		b = putUleb128(b, uint64(ins.Index))
		b = putUleb128(b, uint64(ins.Index2))
	case OpBlock, OpLoop, OpIf:
		if ins.Block.Void {
			b = append(b, 0x40)
		} else {
			b = append(b, byte(ins.Block.Result))
		}
	case OpRefFunc:
		b = putUleb128(b, uint64(ins.Index))
	case OpRefNull:
		b = append(b, byte(ins.RefType))
	case OpTableGet, OpTableSet:
		b = putUleb128(b, uint64(ins.Index))
	case OpI32Load, OpI32Store:
		b = putUleb128(b, 2) // natural alignment, 4 bytes
		b = putUleb128(b, uint64(ins.Index))
	case OpI64Load, OpI64Store, OpF64Load, OpF64Store:
		b = putUleb128(b, 3) // natural alignment, 8 bytes
		b = putUleb128(b, uint64(ins.Index))
	}
	return b
}

func appendName(b []byte, s string) []byte {
	b = putUleb128(b, uint64(len(s)))
	return append(b, s...)
}

func tableName(k TableKind) string {
	switch k {
	case TableSteps:
		return "steps"
	case TableStrings:
		return "strings"
	case TableThreads:
		return "threads"
	default:
		return ""
	}
}
