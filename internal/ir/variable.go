package ir

import (
	"sync"

	"github.com/google/uuid"

	"scratchc/internal/types"
)

// InitialValue is the value a Variable/List slot starts execution with,
// before any write. Scratch only ever stores bool, float64 or string.
type InitialValue struct {
	Bool   bool
	Float  float64
	String string
	Kind   InitialKind
}

// InitialKind discriminates InitialValue's active field.
type InitialKind uint8

const (
	InitialBool InitialKind = iota
	InitialFloat
	InitialString
)

// Variable is a single Scratch variable, or the fresh SSA-local instance
// of one created by the variable-splitting pass. Equality and ordering
// are always by identity (ID), never by content: two Variables with the
// same name and initial value are still distinct slots.
type Variable struct {
	ID      uuid.UUID
	Name    string
	Initial InitialValue

	mu            sync.Mutex
	possibleTypes types.Type

	// Local is true once the SSA pass has rebound this Variable to a
	// function-local WASM value rather than a global. Read/write opcodes
	// consult this flag to decide how to resolve the variable.
	Local bool
}

// NewVariable allocates a fresh, empty-typed Variable. Used both for
// Scratch-authored variables during IR construction and for the
// synthetic SSA-local/phi/loop-header Variables the SSA pass allocates.
func NewVariable(name string, initial InitialValue) *Variable {
	return &Variable{ID: uuid.New(), Name: name, Initial: initial}
}

// PossibleTypes returns the current (monotone-growing) possible-type set.
func (v *Variable) PossibleTypes() types.Type {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.possibleTypes
}

// UnionType grows v's possible-type set by t. Possible-type sets only
// ever grow over the compilation lifetime (§3 invariant); this is the
// single mutation point type propagation uses.
func (v *Variable) UnionType(t types.Type) (changed bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	merged := v.possibleTypes.Or(t)
	changed = merged != v.possibleTypes
	v.possibleTypes = merged
	return changed
}

// Equal reports identity equality, per the §3 invariant that Variables
// compare by ID, not content.
func (v *Variable) Equal(other *Variable) bool {
	if v == nil || other == nil {
		return v == other
	}
	return v.ID == other.ID
}

// List is a single Scratch list (array). Like Variable, identity-based.
type List struct {
	ID      uuid.UUID
	Name    string
	Initial []InitialValue

	mu                 sync.Mutex
	possibleElemType   types.Type
	lengthMutable      bool
	itemsMutable       bool
}

// NewList allocates a fresh List with the given initial contents.
func NewList(name string, initial []InitialValue) *List {
	return &List{ID: uuid.New(), Name: name, Initial: initial}
}

// PossibleElementType returns the current possible element type set.
func (l *List) PossibleElementType() types.Type {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.possibleElemType
}

// UnionElementType grows l's possible element type set by t.
func (l *List) UnionElementType(t types.Type) (changed bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	merged := l.possibleElemType.Or(t)
	changed = merged != l.possibleElemType
	l.possibleElemType = merged
	return changed
}

// MarkLengthMutable records that some opcode reachable on l can change
// its length (add/delete/insert).
func (l *List) MarkLengthMutable() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lengthMutable = true
}

// LengthMutable reports whether any compiled opcode can change l's length.
func (l *List) LengthMutable() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lengthMutable
}

// MarkItemsMutable records that some opcode reachable on l can overwrite
// an existing element in place (data_replaceitemoflist).
func (l *List) MarkItemsMutable() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.itemsMutable = true
}

// ItemsMutable reports whether any compiled opcode can overwrite an
// existing element of l.
func (l *List) ItemsMutable() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.itemsMutable
}

// Equal reports identity equality.
func (l *List) Equal(other *List) bool {
	if l == nil || other == nil {
		return l == other
	}
	return l.ID == other.ID
}
