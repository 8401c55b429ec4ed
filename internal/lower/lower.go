// Package lower constructs the IR (internal/ir) from an already-parsed
// Scratch project (internal/sb3): resolving block references, creating
// Steps at yield boundaries, and registering procedures. Cast insertion
// and variable-splitting run afterwards as separate passes over the IR
// this package produces.
package lower

import (
	cerr "scratchc/internal/errors"
	"scratchc/internal/ir"
	"scratchc/internal/opcodes"
	"scratchc/internal/sb3"
)

// builder holds the per-target resolution state while lowering one
// Target's blocks into IR.
type builder struct {
	project *ir.Project
	src     *sb3.Target
	dst     *ir.Target
	blocks  sb3.BlockArray

	variablesByID map[string]*ir.Variable
	listsByID     map[string]*ir.List
}

// Lower walks every Target in src and returns the equivalent ir.Project.
func Lower(src *sb3.Project) (*ir.Project, error) {
	proj := ir.NewProject()
	builders := make([]*builder, 0, len(src.Targets))

	for i, t := range src.Targets {
		dst := ir.NewTarget(t.Name, t.IsStage, i)
		b := &builder{
			project:       proj,
			src:           &src.Targets[i],
			dst:           dst,
			blocks:        t.Blocks,
			variablesByID: make(map[string]*ir.Variable),
			listsByID:     make(map[string]*ir.List),
		}
		for id, decl := range t.Variables {
			v := ir.NewVariable(decl.Name, toInitialValue(decl.Initial))
			dst.Variables[decl.Name] = v
			b.variablesByID[id] = v
		}
		for id, decl := range t.Lists {
			l := ir.NewList(decl.Name, toInitialValues(decl.Initial))
			dst.Lists[decl.Name] = l
			b.listsByID[id] = l
		}
		proj.AddTarget(dst)
		builders = append(builders, b)
	}

	// Procedure prototypes are registered before any body is lowered so
	// that a recursive or forward call within the same target resolves.
	for _, b := range builders {
		for _, proto := range b.src.Procedures {
			args := make([]*ir.Variable, len(proto.ArgNames))
			for i, name := range proto.ArgNames {
				args[i] = ir.NewVariable(name, ir.InitialValue{Kind: ir.InitialFloat})
			}
			b.dst.Procedures[proto.Proccode] = &ir.Procedure{
				Proccode: proto.Proccode,
				Warp:     proto.Warp,
				Args:     args,
			}
		}
	}

	for _, b := range builders {
		if err := b.lowerScripts(); err != nil {
			return nil, err
		}
		if err := b.lowerProcedureBodies(); err != nil {
			return nil, err
		}
	}

	return proj, nil
}

func toInitialValue(v sb3.InitialValue) ir.InitialValue {
	switch v.Kind {
	case sb3.InitialValueBool:
		return ir.InitialValue{Kind: ir.InitialBool, Bool: v.Bool}
	case sb3.InitialValueString:
		return ir.InitialValue{Kind: ir.InitialString, String: v.String}
	default:
		return ir.InitialValue{Kind: ir.InitialFloat, Float: v.Number}
	}
}

func toInitialValues(vs []sb3.InitialValue) []ir.InitialValue {
	out := make([]ir.InitialValue, len(vs))
	for i, v := range vs {
		out[i] = toInitialValue(v)
	}
	return out
}

// lowerScripts lowers every top-level hat-block script (anything that
// is not a procedure prototype's body) into its own event-entry Step.
func (b *builder) lowerScripts() error {
	for _, blk := range b.blocks {
		if !blk.TopLevel || blk.Parent != "" {
			continue
		}
		if isProcedureHat(blk.Opcode) {
			continue // handled by lowerProcedureBodies via its prototype's EntryID
		}
		entry, err := b.lowerChain(ir.Context{Target: b.dst}, blk.Next, true)
		if err != nil {
			return err
		}
		if entry != nil {
			// Event entries always get their own WASM function: the
			// scheduler seeds the thread table with their index.
			entry.UsedNonInline = true
			b.project.AddEvent(blk.Opcode, entry)
		}
	}
	return nil
}

func isProcedureHat(opcode string) bool {
	return opcode == "procedures_definition"
}

// lowerProcedureBodies lowers each registered Procedure's body twice:
// once with screen-refresh splitting suppressed (WarpEntry, since a
// warped procedure call never yields back to the scheduler) and once
// with normal splitting (NonwarpEntry).
func (b *builder) lowerProcedureBodies() error {
	for _, proto := range b.src.Procedures {
		proc := b.dst.Procedures[proto.Proccode]
		ctx := ir.Context{Target: b.dst, Proc: proc}

		warpEntry, err := b.lowerChain(ctx, proto.EntryID, false)
		if err != nil {
			return err
		}
		proc.WarpEntry = warpEntry
		if warpEntry != nil {
			warpEntry.UsedNonInline = true
		}

		nonwarpEntry, err := b.lowerChain(ctx, proto.EntryID, true)
		if err != nil {
			return err
		}
		proc.NonwarpEntry = nonwarpEntry
		if nonwarpEntry != nil {
			nonwarpEntry.UsedNonInline = true
		}
	}
	return nil
}

// lowerChain lowers the stack of blocks starting at startID into one or
// more Steps, splitting into a fresh Step after any opcode whose
// RequestsScreenRefresh is true when splitOnRefresh is set (§4.3); the
// new Step is linked from the old one via hq_yield{Schedule}. Returns
// the first Step in the chain, or nil if startID is empty (an empty
// script/procedure body).
func (b *builder) lowerChain(ctx ir.Context, startID string, splitOnRefresh bool) (*ir.Step, error) {
	if startID == "" {
		return nil, nil
	}
	first := ir.NewStep(b.project, ctx)
	cur := first
	blockID := startID

	for blockID != "" {
		blk, ok := b.blocks[blockID]
		if !ok {
			return nil, cerr.NewMalformedProject("block %q referenced but not present", blockID)
		}
		_, screenRefresh, err := b.lowerEffect(cur, ctx, blk)
		if err != nil {
			return nil, err
		}

		blockID = blk.Next
		if splitOnRefresh && screenRefresh && blockID != "" {
			next := ir.NewStep(b.project, ctx)
			next.UsedNonInline = true
			cur.Push(ir.Opcode{Kind: ir.HqYield, Fields: ir.YieldFields{Mode: ir.YieldMode{Kind: ir.YieldSchedule, Target: next}}})
			cur = next
		}
	}
	cur.Push(ir.Opcode{Kind: ir.HqYield, Fields: ir.YieldFields{Mode: ir.YieldMode{Kind: ir.YieldNone}}})
	return first, nil
}

// lowerEffect lowers one block's own opcode (after recursively lowering
// its inputs) onto step, and reports whether that opcode requests a
// screen refresh.
func (b *builder) lowerEffect(step *ir.Step, ctx ir.Context, blk sb3.Block) (ir.Kind, bool, error) {
	switch blk.Opcode {
	case "control_if_else", "control_if":
		return b.lowerIfElse(step, ctx, blk)
	case "control_forever":
		return b.lowerForever(step, ctx, blk)
	case "control_repeat_until":
		return b.lowerRepeatUntil(step, ctx, blk)
	case "control_repeat":
		return 0, false, cerr.NewUnimplemented("control_repeat: counted loops need a compiler-synthesized counter, not yet lowered")
	case "procedures_call":
		return b.lowerCall(step, ctx, blk)
	case "argument_reporter_string_number", "argument_reporter_boolean":
		return b.lowerArgumentReporter(step, ctx, blk)
	}

	kind, ok := scratchOpcodeKind[blk.Opcode]
	if !ok {
		return 0, false, cerr.NewUnimplemented("opcode %q has no lowering", blk.Opcode)
	}

	fields, err := b.fieldsFor(ctx, blk, kind)
	if err != nil {
		return 0, false, err
	}

	inputNames := inputOrder[blk.Opcode]
	for _, name := range inputNames {
		in, ok := blk.Inputs[name]
		if !ok {
			return 0, false, cerr.NewMalformedProject("block %q missing input %q", blk.ID, name)
		}
		if err := b.lowerInput(step, ctx, in); err != nil {
			return 0, false, err
		}
	}

	step.Push(ir.Opcode{Kind: kind, Fields: fields})
	return kind, opcodes.RequestsScreenRefresh(kind), nil
}

// scratchOpcodeKind maps a raw Scratch opcode string to this compiler's
// flat ir.Kind for every block this compiler has a catalogue entry for
// (§4.2's "representative subset", documented in DESIGN.md).
var scratchOpcodeKind = map[string]ir.Kind{
	"operator_add":           ir.OperatorAdd,
	"operator_subtract":      ir.OperatorSubtract,
	"operator_multiply":      ir.OperatorMultiply,
	"operator_divide":        ir.OperatorDivide,
	"operator_mod":           ir.OperatorMod,
	"operator_random":        ir.OperatorRandom,
	"operator_equals":        ir.OperatorEquals,
	"operator_lt":            ir.OperatorLt,
	"operator_gt":            ir.OperatorGt,
	"operator_and":           ir.OperatorAnd,
	"operator_or":            ir.OperatorOr,
	"operator_not":           ir.OperatorNot,
	"operator_join":          ir.OperatorJoin,
	"data_variable":          ir.DataVariable,
	"data_setvariableto":     ir.DataSetVariableTo,
	"data_changevariableby":  ir.DataChangeVariableBy,
	"data_addtolist":         ir.DataAddToList,
	"data_itemoflist":        ir.DataItemOfList,
	"data_lengthoflist":      ir.DataLengthOfList,
	"data_replaceitemoflist": ir.DataReplaceItemOfList,
	"looks_say":              ir.LooksSay,
	"motion_gotoxy":          ir.MotionGotoXY,
}

// inputOrder fixes the stack order inputs must be pushed in for each
// block, matching the acceptable_inputs order its Def declares.
var inputOrder = map[string][]string{
	"operator_add":           {"NUM1", "NUM2"},
	"operator_subtract":      {"NUM1", "NUM2"},
	"operator_multiply":      {"NUM1", "NUM2"},
	"operator_divide":        {"NUM1", "NUM2"},
	"operator_mod":           {"NUM1", "NUM2"},
	"operator_random":        {"FROM", "TO"},
	"operator_equals":        {"OPERAND1", "OPERAND2"},
	"operator_lt":            {"OPERAND1", "OPERAND2"},
	"operator_gt":            {"OPERAND1", "OPERAND2"},
	"operator_and":           {"OPERAND1", "OPERAND2"},
	"operator_or":            {"OPERAND1", "OPERAND2"},
	"operator_not":           {"OPERAND"},
	"operator_join":          {"STRING1", "STRING2"},
	"data_setvariableto":     {"VALUE"},
	"data_changevariableby":  {"VALUE"},
	"data_addtolist":         {"ITEM"},
	"data_itemoflist":        {"INDEX"},
	"data_replaceitemoflist": {"INDEX", "ITEM"},
	"looks_say":              {"MESSAGE"},
	"motion_gotoxy":          {"X", "Y"},
}

// fieldsFor builds the strongly-typed Fields payload a block's opcode
// needs beyond its stack inputs: variable/list identity resolved from a
// field, or no payload at all for pure stack operators.
func (b *builder) fieldsFor(ctx ir.Context, blk sb3.Block, kind ir.Kind) (ir.Fields, error) {
	switch kind {
	case ir.DataVariable, ir.DataSetVariableTo, ir.DataChangeVariableBy:
		v, err := b.resolveVariableField(blk, "VARIABLE")
		if err != nil {
			return nil, err
		}
		return ir.VariableFields{Var: v}, nil
	case ir.DataAddToList, ir.DataItemOfList, ir.DataLengthOfList, ir.DataReplaceItemOfList:
		l, err := b.resolveListField(blk, "LIST")
		if err != nil {
			return nil, err
		}
		return ir.ListFields{List: l}, nil
	default:
		return ir.NoFields{}, nil
	}
}

func (b *builder) resolveVariableField(blk sb3.Block, name string) (*ir.Variable, error) {
	field, ok := blk.Fields[name]
	if !ok {
		return nil, cerr.NewMalformedProject("block %q missing field %q", blk.ID, name)
	}
	if v, ok := b.variablesByID[field.ID]; ok {
		return v, nil
	}
	return nil, cerr.NewMalformedProject("block %q references unknown variable %q", blk.ID, field.ID)
}

func (b *builder) resolveListField(blk sb3.Block, name string) (*ir.List, error) {
	field, ok := blk.Fields[name]
	if !ok {
		return nil, cerr.NewMalformedProject("block %q missing field %q", blk.ID, name)
	}
	if l, ok := b.listsByID[field.ID]; ok {
		return l, nil
	}
	return nil, cerr.NewMalformedProject("block %q references unknown list %q", blk.ID, field.ID)
}

// lowerInput pushes the opcode(s) that produce in's value onto step: a
// literal becomes one of the hq_* literal opcodes, a block reference is
// lowered recursively (reporters are evaluated once per use, matching
// Scratch's own reporter-by-reference semantics).
func (b *builder) lowerInput(step *ir.Step, ctx ir.Context, in sb3.Input) error {
	if in.Kind == sb3.InputLiteral {
		return b.lowerLiteral(step, toInitialValue(in.Literal))
	}
	blk, ok := b.blocks[in.BlockID]
	if !ok {
		return cerr.NewMalformedProject("input references missing block %q", in.BlockID)
	}
	_, _, err := b.lowerEffect(step, ctx, blk)
	return err
}

func (b *builder) lowerLiteral(step *ir.Step, v ir.InitialValue) error {
	switch v.Kind {
	case ir.InitialBool:
		step.Push(ir.Opcode{Kind: ir.HqBoolean, Fields: ir.LiteralFields{Bool: v.Bool}})
	case ir.InitialString:
		step.Push(ir.Opcode{Kind: ir.HqText, Fields: ir.LiteralFields{Text: v.String}})
	default:
		if v.Float == float64(int64(v.Float)) {
			step.Push(ir.Opcode{Kind: ir.HqInteger, Fields: ir.LiteralFields{Int: int64(v.Float)}})
		} else {
			step.Push(ir.Opcode{Kind: ir.HqFloat, Fields: ir.LiteralFields{Float: v.Float}})
		}
	}
	return nil
}

func (b *builder) lowerIfElse(step *ir.Step, ctx ir.Context, blk sb3.Block) (ir.Kind, bool, error) {
	cond, ok := blk.Inputs["CONDITION"]
	if !ok {
		return 0, false, cerr.NewMalformedProject("block %q missing CONDITION", blk.ID)
	}
	if err := b.lowerInput(step, ctx, cond); err != nil {
		return 0, false, err
	}

	thenID := substackBlockID(blk, "SUBSTACK")
	elseID := substackBlockID(blk, "SUBSTACK2")

	thenStep, err := b.lowerChain(ctx, thenID, true)
	if err != nil {
		return 0, false, err
	}
	elseStep, err := b.lowerChain(ctx, elseID, true)
	if err != nil {
		return 0, false, err
	}
	if thenStep != nil {
		b.project.MarkInline(thenStep)
	}
	if elseStep != nil {
		b.project.MarkInline(elseStep)
	}

	step.Push(ir.Opcode{Kind: ir.ControlIfElse, Fields: ir.IfElseFields{Then: thenStep, Else: elseStep}})
	return ir.ControlIfElse, false, nil
}

func (b *builder) lowerForever(step *ir.Step, ctx ir.Context, blk sb3.Block) (ir.Kind, bool, error) {
	bodyID := substackBlockID(blk, "SUBSTACK")
	body, err := b.lowerChain(ctx, bodyID, true)
	if err != nil {
		return 0, false, err
	}
	if body != nil {
		b.project.MarkInline(body)
	}
	step.Push(ir.Opcode{Kind: ir.ControlLoop, Fields: ir.LoopFields{Body: body}})
	return ir.ControlLoop, false, nil
}

func (b *builder) lowerRepeatUntil(step *ir.Step, ctx ir.Context, blk sb3.Block) (ir.Kind, bool, error) {
	condIn, ok := blk.Inputs["CONDITION"]
	if !ok {
		return 0, false, cerr.NewMalformedProject("block %q missing CONDITION", blk.ID)
	}
	condStep := ir.NewStep(b.project, ctx)
	if err := b.lowerInput(condStep, ctx, condIn); err != nil {
		return 0, false, err
	}
	condStep.Push(ir.Opcode{Kind: ir.HqYield, Fields: ir.YieldFields{Mode: ir.YieldMode{Kind: ir.YieldNone}}})
	b.project.MarkInline(condStep)

	bodyID := substackBlockID(blk, "SUBSTACK")
	body, err := b.lowerChain(ctx, bodyID, true)
	if err != nil {
		return 0, false, err
	}
	if body != nil {
		b.project.MarkInline(body)
	}

	step.Push(ir.Opcode{Kind: ir.ControlLoop, Fields: ir.LoopFields{Condition: condStep, Body: body}})
	return ir.ControlLoop, false, nil
}

// lowerArgumentReporter resolves an `argument_reporter_*` block's VALUE
// field (the argument's declared name) to its positional index in the
// enclosing procedure's Args, per Context.Proc.
func (b *builder) lowerArgumentReporter(step *ir.Step, ctx ir.Context, blk sb3.Block) (ir.Kind, bool, error) {
	if ctx.Proc == nil {
		return 0, false, cerr.NewMalformedProject("argument reporter %q used outside a procedure body", blk.ID)
	}
	field, ok := blk.Fields["VALUE"]
	if !ok {
		return 0, false, cerr.NewMalformedProject("argument reporter %q missing VALUE field", blk.ID)
	}
	for i, a := range ctx.Proc.Args {
		if a.Name == field.Value {
			step.Push(ir.Opcode{Kind: ir.ProceduresArgument, Fields: ir.ArgumentFields{Index: i}})
			return ir.ProceduresArgument, false, nil
		}
	}
	return 0, false, cerr.NewMalformedProject("argument reporter %q names unknown argument %q", blk.ID, field.Value)
}

func substackBlockID(blk sb3.Block, name string) string {
	in, ok := blk.Inputs[name]
	if !ok || in.Kind != sb3.InputBlockRef {
		return ""
	}
	return in.BlockID
}

func (b *builder) lowerCall(step *ir.Step, ctx ir.Context, blk sb3.Block) (ir.Kind, bool, error) {
	if blk.Mutation == nil {
		return 0, false, cerr.NewMalformedProject("procedures_call block %q missing mutation", blk.ID)
	}
	proc, ok := b.dst.Procedures[blk.Mutation.Proccode]
	if !ok {
		return 0, false, cerr.NewMalformedProject("call to undeclared procedure %q", blk.Mutation.Proccode)
	}
	for _, argID := range blk.Mutation.ArgIDs {
		in, ok := blk.Inputs[argID]
		if !ok {
			return 0, false, cerr.NewMalformedProject("call to %q missing argument %q", blk.Mutation.Proccode, argID)
		}
		if err := b.lowerInput(step, ctx, in); err != nil {
			return 0, false, err
		}
	}
	kind := ir.ProceduresCallNonwarp
	if proc.Warp {
		kind = ir.ProceduresCallWarp
	}
	step.Push(ir.Opcode{Kind: kind, Fields: ir.CallFields{Proc: proc}})
	return kind, false, nil
}
