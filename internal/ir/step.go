package ir

import (
	"sync"

	"github.com/google/uuid"
)

// Context identifies the Target and, if any, Procedure a Step belongs
// to. Procedure arguments resolve through Context.Proc; everything else
// resolves through Context.Target.
type Context struct {
	Target *Target
	Proc   *Procedure // nil outside a procedure body
}

// Step is a straight-line IR block terminated by exactly one hq_yield
// opcode; the unit of WASM-function compilation. Two Steps are equal iff
// their IDs are equal.
type Step struct {
	ID uuid.UUID

	project *Project // weak: Steps never outlive their owning Project

	mu      sync.Mutex
	opcodes []Opcode

	// UsedNonInline is true once some YieldMode references this Step by
	// Schedule/Tail, or it is a procedure/event entry point — i.e. it
	// will get a real WASM function rather than being emitted inline at
	// its single call site.
	UsedNonInline bool

	Context Context
}

// NewStep allocates a Step owned by project, with an empty opcode list.
// Callers must append opcodes (ending in exactly one hq_yield) before
// the Step is handed to cast insertion.
func NewStep(project *Project, ctx Context) *Step {
	s := &Step{ID: uuid.New(), project: project, Context: ctx}
	project.steps[s.ID] = s
	return s
}

// Project returns the owning Project.
func (s *Step) Project() *Project { return s.project }

// Opcodes returns a snapshot copy of s's opcode list. Safe to range over
// while another goroutine is not concurrently mutating s (the compiler
// itself is single-threaded per §5; the lock only guards against
// programmer error, matching the teacher's RefCell-borrow-check style).
func (s *Step) Opcodes() []Opcode {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Opcode, len(s.opcodes))
	copy(out, s.opcodes)
	return out
}

// Len returns the number of opcodes currently in s.
func (s *Step) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.opcodes)
}

// Push appends op to the end of s's opcode list.
func (s *Step) Push(op Opcode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opcodes = append(s.opcodes, op)
}

// SetOpcodes replaces s's entire opcode list. Used by cast insertion and
// the SSA pass, which each rebuild the list wholesale.
func (s *Step) SetOpcodes(ops []Opcode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opcodes = ops
}

// Equal reports identity equality (by Step ID).
func (s *Step) Equal(other *Step) bool {
	if s == nil || other == nil {
		return s == other
	}
	return s.ID == other.ID
}

// YieldModeKind distinguishes the four terminal continuations a Step's
// trailing hq_yield opcode can carry.
type YieldModeKind uint8

const (
	// YieldNone: the thread is finished; the scheduler removes it from
	// the active thread table.
	YieldNone YieldModeKind = iota
	// YieldInline: the named Step is emitted inline in the current WASM
	// function frame; it never gets its own function.
	YieldInline
	// YieldSchedule: the thread's current-step pointer is replaced with
	// the named Step; control returns to the scheduler.
	YieldSchedule
	// YieldTail: reserved; its lowering is unspecified (open question,
	// left to the implementer per spec §9). Always an Unimplemented
	// compile error today.
	YieldTail
)

// YieldMode is the payload of an hq_yield opcode. Target is nil for
// YieldNone. Every other mode, Schedule included, holds an ordinary
// *Step pointer to its target; the Project's Steps set also holds every
// Step.
type YieldMode struct {
	Kind   YieldModeKind
	Target *Step
}
