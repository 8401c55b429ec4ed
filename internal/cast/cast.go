// Package cast implements the cast-insertion pass (§4.4): a symbolic
// type-stack walk over each Step's opcode list that inserts explicit
// hq_cast opcodes wherever a producer's inferred type is not contained
// in its consumer's acceptable input type. It runs once after IR
// construction and again after the SSA pass narrows variable types
// (§4.5's "post-pass rerun"), so it must be idempotent on an
// already-cast Step.
package cast

import (
	"sort"

	cerr "scratchc/internal/errors"
	"scratchc/internal/ir"
	"scratchc/internal/opcodes"
	"scratchc/internal/types"
)

// entry is one symbolic stack slot: its inferred type and the index, in
// the Step's opcode list, of the opcode that produced it.
type entry struct {
	typ      types.Type
	producer int
}

// insertion is a recorded cast requirement: after the opcode at
// producer, insert an hq_cast to want before anything downstream reads
// it.
type insertion struct {
	producer int
	want     types.Type
}

// Step rewrites step's opcode list in place, inserting hq_cast opcodes
// wherever a consumer's acceptable_inputs is not satisfied by the
// producing opcode's inferred output type.
func Step(step *ir.Step) error {
	ops := step.Opcodes()
	var stack []entry
	var insertions []insertion

	for i, op := range ops {
		inputs, output, err := contract(op, i)
		if err != nil {
			return err
		}

		k := len(inputs)
		if k > len(stack) {
			return cerr.NewInternalError("internal/cast/cast.go", 0,
				"opcode %d (%d) wants %d inputs but only %d are on the stack", i, op.Kind, k, len(stack))
		}
		consumed := stack[len(stack)-k:]
		stack = stack[:len(stack)-k]

		for j, have := range consumed {
			want := inputs[j]
			if want.Contains(have.typ) {
				continue
			}
			insertions = append(insertions, insertion{producer: have.producer, want: want})
		}

		switch output.Kind {
		case ir.ReturnSingleton:
			stack = append(stack, entry{typ: output.Single, producer: i})
		case ir.ReturnMulti:
			for range output.Multi {
				stack = append(stack, entry{typ: types.Any, producer: i})
			}
			// Multi-output producers (hq_dup) keep this pass's simpler
			// single-slot cast model: every output shares one producer
			// index, so if two different consumers of the same dup
			// needed different casts only the last recorded
			// requirement would apply. No current opcode lowering
			// produces that shape; see DESIGN.md.
		}
	}

	if len(insertions) == 0 {
		return nil
	}

	// Dedup by producer index (last-recorded wins; see the ReturnMulti
	// note above), then apply in descending producer order so earlier
	// insertions don't shift the indices of later ones.
	byProducer := make(map[int]types.Type, len(insertions))
	for _, ins := range insertions {
		byProducer[ins.producer] = ins.want
	}
	producers := make([]int, 0, len(byProducer))
	for p := range byProducer {
		producers = append(producers, p)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(producers)))

	for _, p := range producers {
		castOp := ir.Opcode{Kind: ir.HqCast, Fields: ir.CastFields{To: byProducer[p]}}
		ops = append(ops[:p+1], append([]ir.Opcode{castOp}, ops[p+1:]...)...)
	}

	step.SetOpcodes(ops)
	return nil
}

// Project runs Step over every Step the project owns.
func Project(proj *ir.Project) error {
	for _, step := range proj.Steps() {
		if err := Step(step); err != nil {
			return err
		}
	}
	return nil
}

// contract returns an opcode's acceptable_inputs and output_type,
// consulting internal/opcodes for every catalogued opcode and falling
// back to a fixed contract for the structural opcodes the code
// generator handles directly (hq_yield, control_if_else, control_loop,
// procedures_call_{warp,nonwarp}), which carry no catalogue entry
// because their "wasm" is a control-flow splice, not a straight-line
// sequence.
// Contract exports contract for the code generator's per-Step compiler,
// which needs the identical acceptable_inputs/output_type resolution
// (including the structural-opcode fallback below) to replay the same
// symbolic stack walk this pass already performs, this time to emit
// instructions instead of insertions.
func Contract(op ir.Opcode, index int) ([]types.Type, ir.ReturnType, error) {
	return contract(op, index)
}

func contract(op ir.Opcode, index int) ([]types.Type, ir.ReturnType, error) {
	if _, ok := opcodes.Lookup(op.Kind); ok {
		inputs, err := opcodes.AcceptableInputs(op.Kind, op.Fields)
		if err != nil {
			return nil, ir.ReturnType{}, err
		}
		output, err := opcodes.OutputType(op.Kind, inputs, op.Fields)
		if err != nil {
			return nil, ir.ReturnType{}, err
		}
		return inputs, output, nil
	}

	switch op.Kind {
	case ir.HqYield:
		return nil, ir.None(), nil
	case ir.ControlIfElse:
		return []types.Type{types.Boolean}, ir.None(), nil
	case ir.ControlLoop:
		return nil, ir.None(), nil
	case ir.ProceduresCallWarp, ir.ProceduresCallNonwarp:
		cf, ok := op.Fields.(ir.CallFields)
		if !ok {
			return nil, ir.ReturnType{}, cerr.NewInternalError("internal/cast/cast.go", 0,
				"opcode %d missing CallFields", index)
		}
		inputs := make([]types.Type, len(cf.Proc.Args))
		for i := range inputs {
			inputs[i] = types.Any
		}
		return inputs, ir.None(), nil
	default:
		return nil, ir.ReturnType{}, cerr.NewUnimplemented("opcode kind %d has no cast-insertion contract", op.Kind)
	}
}
