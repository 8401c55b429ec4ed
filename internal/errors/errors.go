// Package errors defines the three compile-error kinds the compiler ever
// returns: MalformedProject, Unimplemented and InternalError. They are
// never mixed; every compilation function bubbles the first one hit to
// the top-level entry point unchanged.
package errors

import (
	"fmt"
	"strings"
)

// Kind identifies which of the three error categories a CompileError is.
type Kind string

const (
	// MalformedProject: the input lacks a required field, references a
	// non-existent block/variable/costume, or violates Scratch structural
	// rules (e.g. a prototype without a parent).
	MalformedProject Kind = "MalformedProject"
	// Unimplemented: the input uses a feature the compiler does not yet
	// support. Never a trap; always a clean compile failure.
	Unimplemented Kind = "Unimplemented"
	// InternalError: an invariant was violated inside the compiler
	// (borrow failure, type stack underflow, stale registry index).
	InternalError Kind = "InternalError"
)

// Location pins a CompileError to a place in the project being compiled,
// or to a place in the compiler's own source for InternalError.
type Location struct {
	File   string
	Line   int
	Column int
}

func (l Location) String() string {
	if l.File == "" {
		return ""
	}
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}

// CompileError is the single error type every compiler entry point
// returns. Frame carries the chain of Steps/opcodes being processed when
// the error was raised, innermost last.
type CompileError struct {
	Kind     Kind
	Message  string
	Location Location
	Frame    []string
}

func (e *CompileError) Error() string {
	var sb strings.Builder
	sb.WriteString(string(e.Kind))
	sb.WriteString(": ")
	sb.WriteString(e.Message)
	if loc := e.Location.String(); loc != "" {
		sb.WriteString(" (")
		sb.WriteString(loc)
		sb.WriteString(")")
	}
	for i := len(e.Frame) - 1; i >= 0; i-- {
		sb.WriteString("\n  in ")
		sb.WriteString(e.Frame[i])
	}
	return sb.String()
}

// Is supports errors.Is against the Kind sentinels below.
func (e *CompileError) Is(target error) bool {
	other, ok := target.(*CompileError)
	if !ok {
		return false
	}
	return e.Kind == other.Kind && other.Message == ""
}

func newf(kind Kind, format string, args ...interface{}) *CompileError {
	return &CompileError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// NewMalformedProject builds a MalformedProject error.
func NewMalformedProject(format string, args ...interface{}) *CompileError {
	return newf(MalformedProject, format, args...)
}

// NewUnimplemented builds an Unimplemented error.
func NewUnimplemented(format string, args ...interface{}) *CompileError {
	return newf(Unimplemented, format, args...)
}

// NewInternalError builds an InternalError error, tagged with the
// compiler source location that detected the invariant violation.
func NewInternalError(file string, line int, format string, args ...interface{}) *CompileError {
	e := newf(InternalError, format, args...)
	e.Location = Location{File: file, Line: line}
	return e
}

// WithFrame appends a frame describing the Step/Target/opcode being
// compiled when the error propagates through it, innermost-last.
func (e *CompileError) WithFrame(frame string) *CompileError {
	e.Frame = append(e.Frame, frame)
	return e
}

// Sentinels for errors.Is matching purely on Kind.
var (
	ErrMalformedProject = &CompileError{Kind: MalformedProject}
	ErrUnimplemented    = &CompileError{Kind: Unimplemented}
	ErrInternalError    = &CompileError{Kind: InternalError}
)
