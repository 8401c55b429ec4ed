package wasmbin

// Op is a WASM instruction opcode byte (single-byte opcodes only; no
// prefixed multi-byte instruction is modeled).
type Op byte

const (
	OpUnreachable Op = 0x00
	OpNop         Op = 0x01
	OpBlock       Op = 0x02
	OpLoop        Op = 0x03
	OpIf          Op = 0x04
	OpElse        Op = 0x05
	OpEnd         Op = 0x0B
	OpBr          Op = 0x0C
	OpBrIf        Op = 0x0D
	OpReturn      Op = 0x0F
	OpCall        Op = 0x10
	OpCallIndirect Op = 0x11

	OpDrop   Op = 0x1A
	OpSelect Op = 0x1B

	OpLocalGet  Op = 0x20
	OpLocalSet  Op = 0x21
	OpLocalTee  Op = 0x22
	OpGlobalGet Op = 0x23
	OpGlobalSet Op = 0x24

	OpI32Load  Op = 0x28
	OpI64Load  Op = 0x29
	OpF32Load  Op = 0x2A
	OpF64Load  Op = 0x2B
	OpI32Store Op = 0x36
	OpI64Store Op = 0x37
	OpF32Store Op = 0x38
	OpF64Store Op = 0x39

	OpI32Const Op = 0x41
	OpI64Const Op = 0x42
	OpF32Const Op = 0x43
	OpF64Const Op = 0x44

	OpI32Eqz Op = 0x45
	OpI32Eq  Op = 0x46
	OpI32Ne  Op = 0x47
	OpI32LtS Op = 0x48
	OpI32GtS Op = 0x4A
	OpI32LeS Op = 0x4C
	OpI32GeS Op = 0x4E

	OpI64Eq Op = 0x51
	OpI64Ne Op = 0x52

	OpF64Eq Op = 0x61
	OpF64Ne Op = 0x62
	OpF64Lt Op = 0x63
	OpF64Gt Op = 0x64

	OpI32And Op = 0x71
	OpI32Or  Op = 0x72

	OpI32Add Op = 0x6A
	OpI32Sub Op = 0x6B
	OpI32Mul Op = 0x6C

	OpI64And  Op = 0x83
	OpI64Or   Op = 0x84
	OpI64Shl  Op = 0x86
	OpI64ShrU Op = 0x88

	OpF64Floor Op = 0x9C

	OpF64Add Op = 0xA0
	OpF64Sub Op = 0xA1
	OpF64Mul Op = 0xA2
	OpF64Div Op = 0xA3

	OpI32WrapI64    Op = 0xA7
	OpI32TruncF64S  Op = 0xAA
	OpI64ExtendI32U Op = 0xAD
	OpF64ConvertI32S Op = 0xB7

	OpI32ReinterpretF32 Op = 0xBC
	OpI64ReinterpretF64 Op = 0xBD
	OpF64ReinterpretI64 Op = 0xBF

	OpRefNull Op = 0xD0
	OpRefFunc Op = 0xD2

	OpCallIndirectTable Op = 0x11 // alias, table index follows type index

	OpTableGet Op = 0x25
	OpTableSet Op = 0x26
)

// BlockType is the immediate carried by block/loop/if: either void or a
// single result value type. This compiler never needs a multi-value
// block signature (every control-flow construct it emits is effectful
// only, not value-producing), so this narrower encoding
// covers every block this code generator emits.
type BlockType struct {
	Void   bool
	Result ValueType
}

func VoidBlock() BlockType { return BlockType{Void: true} }

// Instruction is one WASM instruction with its encoded immediates, in
// the order this module's own LEB128/byte writer expects. Opcodes'
// wasm() functions build these directly rather than emitting raw bytes,
// so the code generator's input switcher can splice/inspect instruction
// sequences before final encoding.
type Instruction struct {
	Op Op

	// Immediates. Only the fields relevant to Op are meaningful.
	I32   int32
	I64   int64
	F32   float32
	F64   float64
	Index uint32 // local/global/function/table/type index
	Index2 uint32 // second index (e.g. call_indirect's table index)
	Block BlockType // block/loop/if's signature
	RefType ValueType // ref.null's heap type (Funcref or Externref)
}

func Block(bt BlockType) Instruction { return Instruction{Op: OpBlock, Block: bt} }
func Loop(bt BlockType) Instruction  { return Instruction{Op: OpLoop, Block: bt} }
func If(bt BlockType) Instruction    { return Instruction{Op: OpIf, Block: bt} }
func RefFunc(i uint32) Instruction   { return Instruction{Op: OpRefFunc, Index: i} }
func RefNull(t ValueType) Instruction { return Instruction{Op: OpRefNull, RefType: t} }
func TableGet(table uint32) Instruction { return Instruction{Op: OpTableGet, Index: table} }
func TableSet(table uint32) Instruction { return Instruction{Op: OpTableSet, Index: table} }
func CallIndirect(typeIndex, table uint32) Instruction {
	return Instruction{Op: OpCallIndirect, Index: typeIndex, Index2: table}
}

// Load/Store instructions carry their static byte offset in Index (the
// dynamic base address is whatever is already on the stack); Align is
// fixed per op by the encoder rather than tracked here, since this
// compiler never emits an unnatural alignment hint.
func I32Load(offset uint32) Instruction  { return Instruction{Op: OpI32Load, Index: offset} }
func I64Load(offset uint32) Instruction  { return Instruction{Op: OpI64Load, Index: offset} }
func F64Load(offset uint32) Instruction  { return Instruction{Op: OpF64Load, Index: offset} }
func I32Store(offset uint32) Instruction { return Instruction{Op: OpI32Store, Index: offset} }
func I64Store(offset uint32) Instruction { return Instruction{Op: OpI64Store, Index: offset} }
func F64Store(offset uint32) Instruction { return Instruction{Op: OpF64Store, Index: offset} }

func I32Const(v int32) Instruction { return Instruction{Op: OpI32Const, I32: v} }
func I64Const(v int64) Instruction { return Instruction{Op: OpI64Const, I64: v} }
func F64Const(v float64) Instruction { return Instruction{Op: OpF64Const, F64: v} }
func LocalGet(i uint32) Instruction { return Instruction{Op: OpLocalGet, Index: i} }
func LocalSet(i uint32) Instruction { return Instruction{Op: OpLocalSet, Index: i} }
func LocalTee(i uint32) Instruction { return Instruction{Op: OpLocalTee, Index: i} }
func GlobalGet(i uint32) Instruction { return Instruction{Op: OpGlobalGet, Index: i} }
func GlobalSet(i uint32) Instruction { return Instruction{Op: OpGlobalSet, Index: i} }
func Call(i uint32) Instruction { return Instruction{Op: OpCall, Index: i} }
func Simple(op Op) Instruction { return Instruction{Op: op} }
