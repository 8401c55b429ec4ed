package wasmbin

// Import is one entry of the import section: a two-level (Module, Name)
// namespace, matching §6's `(dbg, log|assert)`-style import naming.
type Import struct {
	Module string
	Name   string
	// TypeIndex indexes FunctionTypes for a function import; Importing a
	// table/memory/global instead is out of scope for this compiler's
	// own imports (the host never imports a table/memory/global from the
	// module, only the reverse), so Import always denotes a function.
	TypeIndex uint32
}

// Global is one entry of the global section. Imported globals are not
// modeled.
type Global struct {
	Name    string
	Type    ValueType
	Mutable bool
	Init    Instruction // a single const/ref.null instruction
}

// TableKind distinguishes the three named tables §4.6/§6 specify.
type TableKind uint8

const (
	TableSteps TableKind = iota
	TableStrings
	TableThreads
)

// Table is one entry of the table section.
type Table struct {
	Kind    TableKind
	Elem    ValueType
	Min     uint32
	Max     *uint32
}

// Function is one defined (non-imported) function: its signature (by
// TypeIndex), its locals beyond the parameters, and its instruction
// sequence. FunctionSection/CodeSection in the real binary format are
// index-correlated parallel arrays; this struct merges them because
// this compiler always defines both together.
type Function struct {
	Name      string
	TypeIndex uint32
	Locals    []ValueType
	Body      []Instruction
	// Export is the export name, or "" if this function is not exported.
	Export string
}

// ElementSegment seeds a table's initial contents (§6 element section).
type ElementSegment struct {
	Table  TableKind
	Offset uint32
	FuncIndices []uint32
}

// DataSegment seeds linear memory (§6 data section). The code generator
// emits none: per-event thread seeding is done by inline code.
type DataSegment struct {
	Offset uint32
	Bytes  []byte
}

// Module is the in-memory form of the compiled output, laid out in the
// same section order §6 specifies: types, imports, functions, tables,
// memory, globals, exports, elements, data-count, code, data.
type Module struct {
	Types   []FunctionType
	Imports []Import
	Globals []Global
	Tables  []Table
	Functions []Function
	Elements []ElementSegment
	Data    []DataSegment

	MemoryMinPages uint32

	// Exports beyond functions (memory, tables) named directly, since
	// Function.Export already covers function exports.
	ExportMemory bool
	ExportTables []TableKind

	// StringConstants is the compile-time string table, in TableStrings
	// slot order, handed to the host alongside the binary so it can
	// populate that table before running the module (§6). It is not part
	// of the binary format itself — Encode ignores this field entirely.
	StringConstants []string
}
