// Package buildinfo holds this compiler's own version metadata, grounded
// on the teacher's buildutil.BytecodeFile (magic number + version header
// in front of every serialized bytecode file). Nothing here is written
// into the compiled WASM module itself — the module's own header is the
// ordinary four-byte WASM magic plus version 1, unrelated to this
// package — this is purely the compiler binary's own identity, surfaced
// through print_ir dumps.
package buildinfo

// MagicNumber tags a print_ir JSON dump so a later run of this compiler
// can tell at a glance whether a dump file came from itself, the same
// way BytecodeFile.Serialize's leading magic number lets the VM refuse a
// foreign or corrupt bytecode file before reading further.
const MagicNumber uint32 = 0x53435243 // "SCRC"

// IRFormatVersion is bumped whenever the shape of the diag JSON dump
// changes in a way a consumer would need to know about. Independent of
// Version: the compiler can gain a point release without the dump
// format moving at all.
const IRFormatVersion uint32 = 1

// Version is this compiler's own release version. Set at build time via
// -ldflags; "dev" when built without it, matching go build's own
// convention for unset VCS info.
var Version = "dev"

// Info bundles every build-identifying field print_ir attaches to a
// dump's header.
type Info struct {
	Version        string
	IRFormatVersion uint32
	Magic          uint32
}

// Current returns this build's Info.
func Current() Info {
	return Info{Version: Version, IRFormatVersion: IRFormatVersion, Magic: MagicNumber}
}
