package opcodes

// Boxed 64-bit runtime representation (§4.6, §9 "Boxed NaN tagging"). A
// value whose static type spans more than one base is represented as an
// f64-shaped quiet NaN with a reserved high-word pattern; every other f64
// bit pattern, including every NaN this compiler itself ever produces for
// a numeric FloatNan result, is a plain float, which is why the tag
// patterns below sit outside that range.
//
// This tagging scheme is adapted from the teacher's NaN-boxing Value
// representation (vmregister's Value uint64, quiet-NaN tag space with
// TAG_NIL/TAG_PTR/TAG_INT carved out of bits 50-48), narrowed to the two
// tags this compiler's boxed representation actually needs. boxToI64 and
// UnboxTo in stack.go are the WASM-instruction-sequence form of the same
// scheme; the constants and pure-Go helpers here are what a host-side
// reader of a boxed global (e.g. a debugger) or a table-driven test
// checks the emitted bit patterns against.
const (
	// BoxedIntHighPattern is the top-32-bits pattern identifying a boxed
	// 32-bit integer (here, always a Boolean payload — see wasmWide), in
	// the high word of the 64-bit box; the low 32 bits hold the i32
	// payload. The NaN sign/exponent/leading-mantissa bits are set (quiet
	// NaN), plus one extra tag bit this compiler never sets when
	// producing a genuine FloatNan result.
	BoxedIntHighPattern uint32 = 0x7FF9_0000

	// BoxedStringHighPattern identifies a boxed strings-table index in
	// the low 32 bits, using a distinct tag bit from BoxedIntHighPattern.
	BoxedStringHighPattern uint32 = 0x7FFA_0000
)

// MakeBoxedInt packs a 32-bit integer payload into the 64-bit boxed
// representation.
func MakeBoxedInt(v int32) uint64 {
	return uint64(BoxedIntHighPattern)<<32 | uint64(uint32(v))
}

// MakeBoxedString packs a strings-table index into the 64-bit boxed
// representation.
func MakeBoxedString(stringsIndex uint32) uint64 {
	return uint64(BoxedStringHighPattern)<<32 | uint64(stringsIndex)
}

// IsBoxedInt reports whether the high 32 bits of a boxed Value match the
// boxed-int tag.
func IsBoxedInt(bits uint64) bool {
	return uint32(bits>>32) == BoxedIntHighPattern
}

// IsBoxedString reports whether the high 32 bits of a boxed Value match
// the boxed-string tag.
func IsBoxedString(bits uint64) bool {
	return uint32(bits>>32) == BoxedStringHighPattern
}

// UnboxInt extracts the i32 payload of a boxed-int Value.
func UnboxInt(bits uint64) int32 {
	return int32(uint32(bits))
}

// UnboxStringIndex extracts the strings-table index of a boxed-string
// Value.
func UnboxStringIndex(bits uint64) uint32 {
	return uint32(bits)
}
