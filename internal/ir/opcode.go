package ir

import "scratchc/internal/types"

// Kind flatly enumerates every supported Scratch block plus the
// synthetic ops the compiler itself introduces. Dispatch over Kind is a
// single flat switch in package opcodes (§4.2: "Dispatch is by flat
// enum").
type Kind uint16

const (
	// Synthetic / structural ops.
	HqCast Kind = iota
	HqYield
	HqInteger
	HqFloat
	HqText
	HqBoolean
	HqDrop
	HqDup
	HqSwap
	ProceduresArgument
	ProceduresCallWarp
	ProceduresCallNonwarp
	ControlIfElse
	ControlLoop

	// Operators.
	OperatorAdd
	OperatorSubtract
	OperatorMultiply
	OperatorDivide
	OperatorMod
	OperatorRandom
	OperatorEquals
	OperatorLt
	OperatorGt
	OperatorAnd
	OperatorOr
	OperatorNot
	OperatorJoin

	// Data (variables/lists).
	DataVariable
	DataSetVariableTo
	DataTeeVariable
	DataChangeVariableBy
	DataAddToList
	DataItemOfList
	DataLengthOfList
	DataReplaceItemOfList

	// Looks / motion (representative screen-refresh opcodes).
	LooksSay
	MotionGotoXY
)

var kindNames = [...]string{
	"hq_cast", "hq_yield", "hq_integer", "hq_float", "hq_text", "hq_boolean",
	"hq_drop", "hq_dup", "hq_swap",
	"procedures_argument", "procedures_call_warp", "procedures_call_nonwarp",
	"control_if_else", "control_loop",
	"operator_add", "operator_subtract", "operator_multiply", "operator_divide",
	"operator_mod", "operator_random", "operator_equals", "operator_lt",
	"operator_gt", "operator_and", "operator_or", "operator_not", "operator_join",
	"data_variable", "data_setvariableto", "data_teevariable", "data_changevariableby",
	"data_addtolist", "data_itemoflist", "data_lengthoflist", "data_replaceitemoflist",
	"looks_say", "motion_gotoxy",
}

// String renders k as its original Scratch opcode name (or the
// hq_-prefixed synthetic name), for diagnostics.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown_kind"
}

// Fields is the marker interface every opcode's strongly-typed field
// struct implements. Concrete types live next to the opcode that uses
// them, or in this file for synthetic ops.
type Fields interface {
	isFields()
}

type baseFields struct{}

func (baseFields) isFields() {}

// CastFields is hq_cast(target_type)'s payload.
type CastFields struct {
	baseFields
	To types.Type
}

// YieldFields is hq_yield{mode}'s payload.
type YieldFields struct {
	baseFields
	Mode YieldMode
}

// LiteralFields backs hq_integer/hq_float/hq_text/hq_boolean.
type LiteralFields struct {
	baseFields
	Int    int64
	Float  float64
	Text   string
	Bool   bool
}

// NoFields is used by opcodes with no field payload (hq_drop, hq_dup,
// hq_swap, operator_add, ...).
type NoFields struct{ baseFields }

// VariableFields names the Variable an opcode reads or writes.
type VariableFields struct {
	baseFields
	Var *Variable
}

// ListFields names the List an opcode operates on.
type ListFields struct {
	baseFields
	List *List
}

// ArgumentFields is procedures_argument's payload: which positional
// argument of the enclosing procedure to read.
type ArgumentFields struct {
	baseFields
	Index int
}

// CallFields is procedures_call_{warp,nonwarp}'s payload.
type CallFields struct {
	baseFields
	Proc *Procedure
}

// IfElseFields is control_if_else's payload: inner Steps for each
// branch, sharing the enclosing Step's function frame when inlined.
type IfElseFields struct {
	baseFields
	Then *Step
	Else *Step // nil if there is no else branch
}

// LoopFields is control_loop's payload. FirstCondition, if non-nil, is
// used for the initial pre-test instead of Condition.
type LoopFields struct {
	baseFields
	FirstCondition *Step
	Condition      *Step
	Body           *Step
}

// Opcode is one instruction in a Step's opcode list. It carries its own
// typed Fields; the IR stores no separate type annotation on Opcode
// because types are recomputed from operand types by output_type.
type Opcode struct {
	Kind   Kind
	Fields Fields
}

// ReturnKind discriminates ReturnType's three shapes.
type ReturnKind uint8

const (
	ReturnNone ReturnKind = iota
	ReturnSingleton
	ReturnMulti
)

// ReturnType is the result of an opcode's output_type function: either
// nothing is pushed, a single typed value is pushed, or several are
// (MultiValue, used by warped procedure returns).
type ReturnType struct {
	Kind   ReturnKind
	Single types.Type
	Multi  []types.Type
}

// None is the ReturnNone value.
func None() ReturnType { return ReturnType{Kind: ReturnNone} }

// Singleton wraps t as a single-value ReturnType.
func Singleton(t types.Type) ReturnType { return ReturnType{Kind: ReturnSingleton, Single: t} }

// Multi wraps ts as a multi-value ReturnType.
func Multi(ts []types.Type) ReturnType { return ReturnType{Kind: ReturnMulti, Multi: ts} }

// Count returns how many stack slots this ReturnType produces.
func (r ReturnType) Count() int {
	switch r.Kind {
	case ReturnNone:
		return 0
	case ReturnSingleton:
		return 1
	default:
		return len(r.Multi)
	}
}
