package ssa

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scratchc/internal/ir"
	"scratchc/internal/types"
)

func newRootStep(t *testing.T, proj *ir.Project, ops ...ir.Opcode) *ir.Step {
	t.Helper()
	step := ir.NewStep(proj, ir.Context{})
	for _, op := range ops {
		step.Push(op)
	}
	step.UsedNonInline = true
	return step
}

func variableOf(t *testing.T, op ir.Opcode) *ir.Variable {
	t.Helper()
	vf, ok := op.Fields.(ir.VariableFields)
	require.True(t, ok)
	return vf.Var
}

func TestRewriteSetThenReadBindsLocalAndWritesBack(t *testing.T) {
	proj := ir.NewProject()
	v := ir.NewVariable("v", ir.InitialValue{Kind: ir.InitialFloat})

	step := newRootStep(t, proj,
		ir.Opcode{Kind: ir.HqInteger, Fields: ir.LiteralFields{Int: 5}},
		ir.Opcode{Kind: ir.DataSetVariableTo, Fields: ir.VariableFields{Var: v}},
		ir.Opcode{Kind: ir.DataVariable, Fields: ir.VariableFields{Var: v}},
		ir.Opcode{Kind: ir.LooksSay, Fields: ir.NoFields{}},
		ir.Opcode{Kind: ir.HqYield, Fields: ir.YieldFields{Mode: ir.YieldMode{Kind: ir.YieldNone}}},
	)

	require.NoError(t, Rewrite(proj))

	ops := step.Opcodes()
	require.Len(t, ops, 7)

	fresh := variableOf(t, ops[1])
	assert.NotEqual(t, v, fresh)
	assert.True(t, fresh.Local)
	assert.Equal(t, fresh, variableOf(t, ops[2]), "the read must redirect to the same fresh local the write created")

	// write-back: read-local / write-global spliced before the tail yield.
	assert.Equal(t, ir.DataVariable, ops[4].Kind)
	assert.Equal(t, fresh, variableOf(t, ops[4]))
	assert.Equal(t, ir.DataSetVariableTo, ops[5].Kind)
	assert.Equal(t, v, variableOf(t, ops[5]))
	assert.Equal(t, ir.HqYield, ops[6].Kind)
}

func TestRewriteIfElseSynthesizesMissingBranchAndMerges(t *testing.T) {
	proj := ir.NewProject()
	v := ir.NewVariable("v", ir.InitialValue{Kind: ir.InitialFloat})

	thenStep := ir.NewStep(proj, ir.Context{})
	thenStep.Push(ir.Opcode{Kind: ir.HqInteger, Fields: ir.LiteralFields{Int: 1}})
	thenStep.Push(ir.Opcode{Kind: ir.DataSetVariableTo, Fields: ir.VariableFields{Var: v}})
	thenStep.Push(ir.Opcode{Kind: ir.HqYield, Fields: ir.YieldFields{Mode: ir.YieldMode{Kind: ir.YieldNone}}})
	proj.MarkInline(thenStep)

	root := newRootStep(t, proj,
		ir.Opcode{Kind: ir.HqBoolean, Fields: ir.LiteralFields{Bool: true}},
		ir.Opcode{Kind: ir.ControlIfElse, Fields: ir.IfElseFields{Then: thenStep, Else: nil}},
		ir.Opcode{Kind: ir.HqYield, Fields: ir.YieldFields{Mode: ir.YieldMode{Kind: ir.YieldNone}}},
	)

	require.NoError(t, Rewrite(proj))

	rootOps := root.Opcodes()
	require.Len(t, rootOps, 5, "condition, if/else, write-back pair, yield")
	ifElse, ok := rootOps[1].Fields.(ir.IfElseFields)
	require.True(t, ok)
	require.NotNil(t, ifElse.Else, "a merge needed a write site, so an else branch must be synthesized")
	assert.True(t, proj.IsInlined(ifElse.Else))

	mergeVar := variableOf(t, rootOps[2])
	assert.Equal(t, ir.DataVariable, rootOps[2].Kind)
	assert.Equal(t, ir.DataSetVariableTo, rootOps[3].Kind)
	assert.Equal(t, v, variableOf(t, rootOps[3]))
	assert.Equal(t, ir.HqYield, rootOps[4].Kind)

	thenOps := ifElse.Then.Opcodes()
	require.Len(t, thenOps, 5)
	assert.Equal(t, ir.DataVariable, thenOps[2].Kind)
	assert.Equal(t, ir.DataSetVariableTo, thenOps[3].Kind)
	assert.Equal(t, mergeVar, variableOf(t, thenOps[3]))

	elseOps := ifElse.Else.Opcodes()
	require.Len(t, elseOps, 3)
	assert.Equal(t, ir.DataVariable, elseOps[0].Kind)
	assert.Equal(t, v, variableOf(t, elseOps[0]), "the untouched else path must read the pre-branch global")
	assert.Equal(t, ir.DataSetVariableTo, elseOps[1].Kind)
	assert.Equal(t, mergeVar, variableOf(t, elseOps[1]))
}

func TestRewriteLoopPromotesWrittenVariableToHeader(t *testing.T) {
	proj := ir.NewProject()
	v := ir.NewVariable("v", ir.InitialValue{Kind: ir.InitialFloat})

	body := ir.NewStep(proj, ir.Context{})
	body.Push(ir.Opcode{Kind: ir.HqInteger, Fields: ir.LiteralFields{Int: 1}})
	body.Push(ir.Opcode{Kind: ir.DataChangeVariableBy, Fields: ir.VariableFields{Var: v}})
	body.Push(ir.Opcode{Kind: ir.HqYield, Fields: ir.YieldFields{Mode: ir.YieldMode{Kind: ir.YieldNone}}})
	proj.MarkInline(body)

	root := newRootStep(t, proj,
		ir.Opcode{Kind: ir.ControlLoop, Fields: ir.LoopFields{Body: body}},
		ir.Opcode{Kind: ir.HqYield, Fields: ir.YieldFields{Mode: ir.YieldMode{Kind: ir.YieldNone}}},
	)

	require.NoError(t, Rewrite(proj))

	rootOps := root.Opcodes()
	// header seed (read global, write header), control_loop, write-back pair, yield
	require.Len(t, rootOps, 6)
	assert.Equal(t, ir.DataVariable, rootOps[0].Kind)
	assert.Equal(t, v, variableOf(t, rootOps[0]))
	header := variableOf(t, rootOps[1])
	assert.Equal(t, ir.DataSetVariableTo, rootOps[1].Kind)
	assert.True(t, header.Local)

	loop, ok := rootOps[2].Fields.(ir.LoopFields)
	require.True(t, ok)
	bodyOps := loop.Body.Opcodes()
	// hq_integer, change-by-on-header, yield; no back-edge copy is
	// emitted, since change-by updates the already-bound header local in
	// place, so no extra closing write is needed.
	require.Len(t, bodyOps, 3)
	assert.Equal(t, header, variableOf(t, bodyOps[1]))

	assert.Equal(t, ir.DataVariable, rootOps[3].Kind)
	assert.Equal(t, header, variableOf(t, rootOps[3]))
	assert.Equal(t, ir.DataSetVariableTo, rootOps[4].Kind)
	assert.Equal(t, v, variableOf(t, rootOps[4]))
	assert.Equal(t, ir.HqYield, rootOps[5].Kind)
}

func TestPropagateTypesUnionsThroughFreshLocal(t *testing.T) {
	proj := ir.NewProject()
	v := ir.NewVariable("v", ir.InitialValue{Kind: ir.InitialFloat})

	step := newRootStep(t, proj,
		ir.Opcode{Kind: ir.HqInteger, Fields: ir.LiteralFields{Int: 5}},
		ir.Opcode{Kind: ir.DataSetVariableTo, Fields: ir.VariableFields{Var: v}},
		ir.Opcode{Kind: ir.DataVariable, Fields: ir.VariableFields{Var: v}},
		ir.Opcode{Kind: ir.LooksSay, Fields: ir.NoFields{}},
		ir.Opcode{Kind: ir.HqYield, Fields: ir.YieldFields{Mode: ir.YieldMode{Kind: ir.YieldNone}}},
	)

	require.NoError(t, Run(proj))

	fresh := variableOf(t, step.Opcodes()[1])
	assert.True(t, fresh.PossibleTypes().Contains(types.IntPos))
	assert.True(t, v.PossibleTypes().Contains(types.IntPos), "write-back round-trips the fresh local's type onto the global")
}

func TestPropagateTypesConvergesOnAlreadyStableProject(t *testing.T) {
	proj := ir.NewProject()
	v := ir.NewVariable("v", ir.InitialValue{Kind: ir.InitialFloat})
	newRootStep(t, proj,
		ir.Opcode{Kind: ir.HqInteger, Fields: ir.LiteralFields{Int: 1}},
		ir.Opcode{Kind: ir.DataSetVariableTo, Fields: ir.VariableFields{Var: v}},
		ir.Opcode{Kind: ir.HqYield, Fields: ir.YieldFields{Mode: ir.YieldMode{Kind: ir.YieldNone}}},
	)
	require.NoError(t, Rewrite(proj))
	require.NoError(t, PropagateTypes(proj))
	require.NoError(t, PropagateTypes(proj), "a second run over already-converged types must not error or loop")
}
