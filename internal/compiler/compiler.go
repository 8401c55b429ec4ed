// Package compiler is the top-level entry point: it wires lowering,
// cast insertion, SSA/type propagation and code generation into the one
// public Compile call a host embeds, mirroring how the teacher's own
// top-level compiler.Compile is thin glue over its lexer/parser/
// bytecode packages rather than a place that does work itself.
package compiler

import (
	"scratchc/internal/cast"
	"scratchc/internal/codegen"
	"scratchc/internal/diag"
	cerr "scratchc/internal/errors"
	"scratchc/internal/lower"
	"scratchc/internal/sb3"
	"scratchc/internal/ssa"
	"scratchc/internal/wasmbin"
)

// StringRepr selects how String values are represented in the compiled
// module (§6 Flags.string_type).
type StringRepr uint8

const (
	// ExternRef represents strings as externref, backed by the host's
	// js-string-builtins import (§4.6) — the only representation this
	// code generator actually emits.
	ExternRef StringRepr = iota
	// Manual represents strings as linear-memory byte sequences instead
	// of externref. No component of this encoder builds that
	// representation (every string-producing opcode and every
	// list/string host import already assumes externref), so selecting
	// it is a compile-time Unimplemented rather than a silent
	// downgrade to ExternRef.
	Manual
)

// Flags configures a single Compile call (§6).
type Flags struct {
	StringType StringRepr
	PrintIR    bool
	// Integers, when true, keeps the lattice's IntPos/IntNeg/IntZero
	// split active through cast insertion and SSA type propagation
	// (this compiler's default and only implemented behavior — the
	// lattice is defined with that split baked in, so "off" has no
	// coarser lattice to fall back to; see DESIGN.md).
	Integers bool
}

// DefaultFlags returns the flags this compiler was built and tested
// against: externref strings, integer specialisation on, no IR dump.
func DefaultFlags() Flags {
	return Flags{StringType: ExternRef, PrintIR: false, Integers: true}
}

// Result is what a successful Compile call hands back to the host: the
// finished module, and (only when flags.PrintIR is set) its IR dump in
// both the indented-text and JSON forms diag produces.
type Result struct {
	Module *wasmbin.Module
	Bytes  []byte // wasmbin.Encode(Module); the bytes a host actually loads
	// Strings is Module.StringConstants surfaced directly on Result, since
	// it is the one piece of compiler output a host needs that isn't
	// inside Bytes: the initial contents of the `strings` table (§6).
	Strings []string
	IRText  string
	IRJSON  []byte
}

// Compile lowers src into IR, inserts casts, runs SSA/type propagation,
// inserts casts a second time against the now-narrowed types (§4.5's
// "cast insertion runs once before SSA and once after, against the
// post-propagation types"), and emits the final module.
func Compile(src *sb3.Project, flags Flags) (*Result, error) {
	if flags.StringType == Manual {
		return nil, cerr.NewUnimplemented("string_type=Manual is not implemented; only ExternRef is supported")
	}

	proj, err := lower.Lower(src)
	if err != nil {
		return nil, err
	}

	if err := cast.Project(proj); err != nil {
		return nil, err
	}

	if err := ssa.Run(proj); err != nil {
		return nil, err
	}

	// Post-pass: SSA's type propagation may have narrowed a Variable's
	// possible_types past what the first cast-insertion pass saw, so
	// casts inserted against the coarser pre-SSA types can now be
	// redundant or (after variable splitting introduced fresh per-path
	// locals) missing entirely on the new copy/phi opcodes SSA emitted.
	// Re-running cast insertion against the settled types is cheap
	// (idempotent on an opcode that already carries the right cast) and
	// is what §4.5 calls the "post-pass".
	if err := cast.Project(proj); err != nil {
		return nil, err
	}

	mod, err := codegen.Compile(proj)
	if err != nil {
		return nil, err
	}

	res := &Result{Module: mod, Bytes: wasmbin.Encode(mod), Strings: mod.StringConstants}
	if flags.PrintIR {
		res.IRText = diag.Dump(proj)
		irJSON, err := diag.DumpJSON(proj)
		if err != nil {
			return nil, cerr.NewInternalError("internal/compiler/compiler.go", 0, "print_ir JSON dump failed: %v", err)
		}
		res.IRJSON = irJSON
	}
	return res, nil
}
