// Package ssa implements variable splitting with type inference (§4.5):
// the pass that rewrites each Step's variable reads/writes onto fresh
// per-path WASM locals, merges control-flow branches with phi-style
// writes, promotes loop-carried variables to a reused header local, and
// then propagates value types to a fixed point across the whole
// project.
//
// It runs in two phases. Rewrite is the structural half: it never reads
// a Variable's possible-types, only its identity, so it runs exactly
// once. PropagateTypes is the numeric half: it replays each Step's
// (already-rewritten) opcodes against the opcode catalogue's
// acceptable_inputs/output_type contract, unioning types into the
// Variables and Lists each write touches, repeating across the whole
// project until nothing changes. The type lattice is finite and every
// union is monotone, so this is guaranteed to converge.
package ssa

import (
	"sort"

	cerr "scratchc/internal/errors"
	"scratchc/internal/ir"
	"scratchc/internal/opcodes"
	"scratchc/internal/types"
)

// Run applies both phases in the order code generation needs: structural
// rewrite first, then type propagation to a fixed point. Callers that
// need the spec's "post-pass" cast-insertion rerun do that separately,
// against the Steps this leaves behind.
func Run(proj *ir.Project) error {
	if err := Rewrite(proj); err != nil {
		return err
	}
	return PropagateTypes(proj)
}

// scope is the per-path SSA binding a single root Step's walk
// accumulates: which fresh local Variable each global Variable currently
// resolves to along this path.
type scope struct {
	ssa map[*ir.Variable]*ir.Variable
}

func newScope() *scope { return &scope{ssa: map[*ir.Variable]*ir.Variable{}} }

func (s *scope) clone() *scope {
	c := newScope()
	for k, v := range s.ssa {
		c.ssa[k] = v
	}
	return c
}

// bound returns whatever global currently resolves to along this path: a
// previously-created local, or global itself if nothing has touched it
// yet (meaning reads still hit the live global/outer binding).
func (s *scope) bound(global *ir.Variable) *ir.Variable {
	if local, ok := s.ssa[global]; ok {
		return local
	}
	return global
}

// Rewrite performs the structural half of §4.5 over every Step that will
// get its own WASM function. Steps reachable only as if/else branches or
// loop bodies are rewritten as part of their parent's walk, never as
// their own root, since a fresh scope must start at exactly the
// boundaries where the scheduler may interleave other threads.
func Rewrite(proj *ir.Project) error {
	for _, step := range proj.NonInlineSteps() {
		sc := newScope()
		ops, err := rewriteOpcodes(proj, step.Context, step.Opcodes(), sc)
		if err != nil {
			return err
		}
		step.SetOpcodes(writeBack(ops, sc))
	}
	return nil
}

func freshLocal(v *ir.Variable) *ir.Variable {
	fresh := ir.NewVariable(v.Name, v.Initial)
	fresh.Local = true
	return fresh
}

func copyPair(from, to *ir.Variable) []ir.Opcode {
	return []ir.Opcode{
		{Kind: ir.DataVariable, Fields: ir.VariableFields{Var: from}},
		{Kind: ir.DataSetVariableTo, Fields: ir.VariableFields{Var: to}},
	}
}

// insertBeforeTail splices extra opcodes into ops immediately before its
// final element (every Step's opcode list ends in exactly one hq_yield).
func insertBeforeTail(ops []ir.Opcode, extra []ir.Opcode) []ir.Opcode {
	if len(extra) == 0 {
		return ops
	}
	if len(ops) == 0 {
		return extra
	}
	out := make([]ir.Opcode, 0, len(ops)+len(extra))
	out = append(out, ops[:len(ops)-1]...)
	out = append(out, extra...)
	out = append(out, ops[len(ops)-1])
	return out
}

// writeBack implements §4.5's write-back rule: at the tail of a
// non-inline Step, every (global, local) this walk bound gets flushed
// back to the global so sibling threads and the next scheduled Step see
// a fresh value rather than a stale one sitting in a local that dies
// when this WASM function returns.
func writeBack(ops []ir.Opcode, sc *scope) []ir.Opcode {
	vars := sortedKeys(sc.ssa)
	var copies []ir.Opcode
	for _, v := range vars {
		copies = append(copies, copyPair(sc.ssa[v], v)...)
	}
	return insertBeforeTail(ops, copies)
}

func sortedKeys(m map[*ir.Variable]*ir.Variable) []*ir.Variable {
	out := make([]*ir.Variable, 0, len(m))
	for v := range m {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func unionKeys(a, b map[*ir.Variable]*ir.Variable) []*ir.Variable {
	seen := make(map[*ir.Variable]bool, len(a)+len(b))
	var out []*ir.Variable
	for v := range a {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	for v := range b {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// rewriteOpcodes rebuilds ops, rebinding every variable read/write to its
// SSA substitute and recursing into if/else and loop structure. sc is
// mutated in place as writes are encountered.
func rewriteOpcodes(proj *ir.Project, ctx ir.Context, ops []ir.Opcode, sc *scope) ([]ir.Opcode, error) {
	out := make([]ir.Opcode, 0, len(ops))
	for _, op := range ops {
		switch op.Kind {
		case ir.DataVariable:
			vf, ok := op.Fields.(ir.VariableFields)
			if !ok {
				return nil, cerr.NewInternalError("internal/ssa/ssa.go", 0, "data_variable missing VariableFields")
			}
			out = append(out, ir.Opcode{Kind: ir.DataVariable, Fields: ir.VariableFields{Var: sc.bound(vf.Var)}})

		case ir.DataSetVariableTo, ir.DataTeeVariable:
			vf, ok := op.Fields.(ir.VariableFields)
			if !ok {
				return nil, cerr.NewInternalError("internal/ssa/ssa.go", 0, "variable write missing VariableFields")
			}
			fresh := freshLocal(vf.Var)
			sc.ssa[vf.Var] = fresh
			out = append(out, ir.Opcode{Kind: op.Kind, Fields: ir.VariableFields{Var: fresh}})

		case ir.DataChangeVariableBy:
			vf, ok := op.Fields.(ir.VariableFields)
			if !ok {
				return nil, cerr.NewInternalError("internal/ssa/ssa.go", 0, "data_changevariableby missing VariableFields")
			}
			if _, bound := sc.ssa[vf.Var]; !bound {
				// First touch in this scope: change-by both reads and
				// writes the same slot, so the fresh local needs the
				// outer value copied in before the in-place update.
				fresh := freshLocal(vf.Var)
				out = append(out, copyPair(vf.Var, fresh)...)
				sc.ssa[vf.Var] = fresh
			}
			out = append(out, ir.Opcode{Kind: ir.DataChangeVariableBy, Fields: ir.VariableFields{Var: sc.ssa[vf.Var]}})

		case ir.ControlIfElse:
			rewritten, err := rewriteIfElse(proj, ctx, op, sc)
			if err != nil {
				return nil, err
			}
			out = append(out, rewritten)

		case ir.ControlLoop:
			rewritten, err := rewriteLoop(proj, ctx, op, sc, &out)
			if err != nil {
				return nil, err
			}
			out = append(out, rewritten)

		default:
			out = append(out, op)
		}
	}
	return out, nil
}

// rewriteIfElse recurses into both branches with clones of sc (they are
// mutually exclusive at runtime) and, for every variable whose binding
// diverges between them, allocates a merge Variable and appends a
// closing write to each branch so the outer scope can keep reading one
// consistent local after the join. A branch that was empty in the
// source (no else, or an empty then) gets synthesized on demand only
// when a merge actually needs somewhere to write.
func rewriteIfElse(proj *ir.Project, ctx ir.Context, op ir.Opcode, sc *scope) (ir.Opcode, error) {
	f, ok := op.Fields.(ir.IfElseFields)
	if !ok {
		return op, cerr.NewInternalError("internal/ssa/ssa.go", 0, "control_if_else missing IfElseFields")
	}

	thenSC := sc.clone()
	var thenOps []ir.Opcode
	if f.Then != nil {
		var err error
		thenOps, err = rewriteOpcodes(proj, ctx, f.Then.Opcodes(), thenSC)
		if err != nil {
			return op, err
		}
	}

	elseSC := sc.clone()
	var elseOps []ir.Opcode
	if f.Else != nil {
		var err error
		elseOps, err = rewriteOpcodes(proj, ctx, f.Else.Opcodes(), elseSC)
		if err != nil {
			return op, err
		}
	}

	var thenCopies, elseCopies []ir.Opcode
	for _, v := range unionKeys(thenSC.ssa, elseSC.ssa) {
		thenBound, elseBound := thenSC.bound(v), elseSC.bound(v)
		if thenBound == elseBound {
			continue
		}
		merge := freshLocal(v)
		thenCopies = append(thenCopies, copyPair(thenBound, merge)...)
		elseCopies = append(elseCopies, copyPair(elseBound, merge)...)
		sc.ssa[v] = merge
	}

	newThen := applyBranch(proj, ctx, f.Then, thenOps, thenCopies)
	newElse := applyBranch(proj, ctx, f.Else, elseOps, elseCopies)
	return ir.Opcode{Kind: ir.ControlIfElse, Fields: ir.IfElseFields{Then: newThen, Else: newElse}}, nil
}

// applyBranch finalizes one if/else arm: if there's nothing to add and
// no existing Step, the branch stays absent; otherwise copies are
// spliced before the trailing hq_yield of (a possibly freshly minted,
// inline-marked) Step.
func applyBranch(proj *ir.Project, ctx ir.Context, existing *ir.Step, ops, copies []ir.Opcode) *ir.Step {
	switch {
	case existing == nil && len(copies) == 0:
		return nil
	case existing == nil:
		step := ir.NewStep(proj, ctx)
		proj.MarkInline(step)
		tail := []ir.Opcode{{Kind: ir.HqYield, Fields: ir.YieldFields{Mode: ir.YieldMode{Kind: ir.YieldNone}}}}
		step.SetOpcodes(insertBeforeTail(tail, copies))
		return step
	default:
		existing.SetOpcodes(insertBeforeTail(ops, copies))
		return existing
	}
}

// rewriteLoop implements §4.5's loop-header promotion, scoped to the
// variables actually written somewhere in the loop (a variable the loop
// never assigns can't observe a different value across iterations, so
// it never needs a header substitute — a deliberate narrowing of the
// spec's "every globally-scoped variable visible here", recorded in
// DESIGN.md). Each such variable gets a header local seeded from its
// pre-loop value; the loop body's own writes create further fresh
// locals as usual, and a closing copy at the bottom of the body folds
// the body's final binding back into the header so the reused local
// carries the right value into the next iteration.
func rewriteLoop(proj *ir.Project, ctx ir.Context, op ir.Opcode, sc *scope, out *[]ir.Opcode) (ir.Opcode, error) {
	f, ok := op.Fields.(ir.LoopFields)
	if !ok {
		return op, cerr.NewInternalError("internal/ssa/ssa.go", 0, "control_loop missing LoopFields")
	}

	written := map[*ir.Variable]bool{}
	collectWritten(f.FirstCondition, written)
	collectWritten(f.Condition, written)
	collectWritten(f.Body, written)

	vars := make([]*ir.Variable, 0, len(written))
	for v := range written {
		vars = append(vars, v)
	}
	sort.Slice(vars, func(i, j int) bool { return vars[i].Name < vars[j].Name })

	headers := make(map[*ir.Variable]*ir.Variable, len(vars))
	for _, v := range vars {
		header := freshLocal(v)
		*out = append(*out, copyPair(sc.bound(v), header)...)
		sc.ssa[v] = header
		headers[v] = header
	}

	if f.FirstCondition != nil {
		ops, err := rewriteOpcodes(proj, ctx, f.FirstCondition.Opcodes(), sc)
		if err != nil {
			return op, err
		}
		f.FirstCondition.SetOpcodes(ops)
	}
	if f.Condition != nil {
		ops, err := rewriteOpcodes(proj, ctx, f.Condition.Opcodes(), sc)
		if err != nil {
			return op, err
		}
		f.Condition.SetOpcodes(ops)
	}

	var bodyOps []ir.Opcode
	if f.Body != nil {
		var err error
		bodyOps, err = rewriteOpcodes(proj, ctx, f.Body.Opcodes(), sc)
		if err != nil {
			return op, err
		}
	}

	var backEdge []ir.Opcode
	for _, v := range vars {
		cur, header := sc.bound(v), headers[v]
		if cur == header {
			continue
		}
		backEdge = append(backEdge, copyPair(cur, header)...)
	}
	f.Body = applyBranch(proj, ctx, f.Body, bodyOps, backEdge)

	for _, v := range vars {
		sc.ssa[v] = headers[v]
	}

	return ir.Opcode{Kind: ir.ControlLoop, Fields: f}, nil
}

// collectWritten walks step's raw, not-yet-rewritten opcodes (recursing
// structurally into nested if/else and loop bodies) gathering every
// global Variable some write opcode references.
func collectWritten(step *ir.Step, out map[*ir.Variable]bool) {
	if step == nil {
		return
	}
	for _, op := range step.Opcodes() {
		switch op.Kind {
		case ir.DataSetVariableTo, ir.DataTeeVariable, ir.DataChangeVariableBy:
			if vf, ok := op.Fields.(ir.VariableFields); ok {
				out[vf.Var] = true
			}
		case ir.ControlIfElse:
			if f, ok := op.Fields.(ir.IfElseFields); ok {
				collectWritten(f.Then, out)
				collectWritten(f.Else, out)
			}
		case ir.ControlLoop:
			if f, ok := op.Fields.(ir.LoopFields); ok {
				collectWritten(f.FirstCondition, out)
				collectWritten(f.Condition, out)
				collectWritten(f.Body, out)
			}
		}
	}
}

// PropagateTypes replays every Step's (already SSA-rewritten) opcodes,
// unioning types into the Variables and Lists each write touches, and
// repeats across the whole project until a pass makes no further
// change. The iteration cap is a defensive backstop, not a real limit:
// the type lattice is finite and every union is monotone, so convergence
// is guaranteed long before it's reached.
func PropagateTypes(proj *ir.Project) error {
	const maxIterations = 64
	for iter := 0; iter < maxIterations; iter++ {
		changed := false
		for _, step := range proj.NonInlineSteps() {
			if err := propagateNested(step, &changed); err != nil {
				return err
			}
		}
		if !changed {
			return nil
		}
	}
	return cerr.NewInternalError("internal/ssa/ssa.go", 0, "type propagation did not converge within %d iterations", maxIterations)
}

func propagateNested(step *ir.Step, changed *bool) error {
	if step == nil {
		return nil
	}
	_, err := propagateOpcodes(step.Opcodes(), changed)
	return err
}

// propagateOpcodes evaluates ops against a symbolic type stack built
// from the opcode catalogue's own acceptable_inputs/output_type
// contract, the same contract cast insertion uses, so the two passes
// can never disagree about an opcode's shape. Writes additionally union
// their consumed operand's type into the Variable/List they target;
// recursion into if/else and loop children accumulates into the same
// *changed flag so one project-wide pass can detect convergence.
func propagateOpcodes(ops []ir.Opcode, changed *bool) ([]types.Type, error) {
	var stack []types.Type
	for _, op := range ops {
		switch op.Kind {
		case ir.HqYield:
			continue

		case ir.ControlIfElse:
			f, ok := op.Fields.(ir.IfElseFields)
			if !ok {
				return nil, cerr.NewInternalError("internal/ssa/ssa.go", 0, "control_if_else missing IfElseFields")
			}
			if len(stack) == 0 {
				return nil, cerr.NewInternalError("internal/ssa/ssa.go", 0, "control_if_else has no condition on the type stack")
			}
			stack = stack[:len(stack)-1]
			if err := propagateNested(f.Then, changed); err != nil {
				return nil, err
			}
			if err := propagateNested(f.Else, changed); err != nil {
				return nil, err
			}
			continue

		case ir.ControlLoop:
			f, ok := op.Fields.(ir.LoopFields)
			if !ok {
				return nil, cerr.NewInternalError("internal/ssa/ssa.go", 0, "control_loop missing LoopFields")
			}
			if err := propagateNested(f.FirstCondition, changed); err != nil {
				return nil, err
			}
			if err := propagateNested(f.Condition, changed); err != nil {
				return nil, err
			}
			if err := propagateNested(f.Body, changed); err != nil {
				return nil, err
			}
			continue

		case ir.ProceduresCallWarp, ir.ProceduresCallNonwarp:
			cf, ok := op.Fields.(ir.CallFields)
			if !ok {
				return nil, cerr.NewInternalError("internal/ssa/ssa.go", 0, "procedures_call missing CallFields")
			}
			k := len(cf.Proc.Args)
			if k > len(stack) {
				return nil, cerr.NewInternalError("internal/ssa/ssa.go", 0, "procedures_call wants %d args but stack has %d", k, len(stack))
			}
			stack = stack[:len(stack)-k]
			continue
		}

		d, ok := opcodes.Lookup(op.Kind)
		if !ok {
			return nil, cerr.NewUnimplemented("opcode kind %d has no type-propagation rule", op.Kind)
		}
		inputs, err := d.AcceptableInputs(op.Fields)
		if err != nil {
			return nil, err
		}
		k := len(inputs)
		if k > len(stack) {
			return nil, cerr.NewInternalError("internal/ssa/ssa.go", 0, "opcode kind %d wants %d inputs but stack has %d", op.Kind, k, len(stack))
		}
		actual := append([]types.Type(nil), stack[len(stack)-k:]...)
		stack = stack[:len(stack)-k]

		if unionSideEffect(op, actual) {
			*changed = true
		}

		output, err := d.OutputType(actual, op.Fields)
		if err != nil {
			return nil, err
		}
		switch output.Kind {
		case ir.ReturnSingleton:
			stack = append(stack, output.Single)
		case ir.ReturnMulti:
			stack = append(stack, output.Multi...)
		}
	}
	return stack, nil
}

// unionSideEffect applies the one piece of state propagateOpcodes
// mutates outside the symbolic stack: growing a write target's
// possible-type set. actual is the already-popped operand type(s) for
// op, in acceptable_inputs order.
func unionSideEffect(op ir.Opcode, actual []types.Type) bool {
	switch op.Kind {
	case ir.DataSetVariableTo, ir.DataTeeVariable:
		vf := op.Fields.(ir.VariableFields)
		return vf.Var.UnionType(actual[0])
	case ir.DataChangeVariableBy:
		// change-by always coerces its target to a number, regardless of
		// the delta's own type or the variable's prior content.
		vf := op.Fields.(ir.VariableFields)
		return vf.Var.UnionType(types.Float)
	case ir.DataAddToList:
		lf := op.Fields.(ir.ListFields)
		changed := lf.List.UnionElementType(actual[0])
		lf.List.MarkLengthMutable()
		return changed
	case ir.DataReplaceItemOfList:
		lf := op.Fields.(ir.ListFields)
		changed := lf.List.UnionElementType(actual[1])
		lf.List.MarkItemsMutable()
		return changed
	default:
		return false
	}
}
