package lower

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scratchc/internal/ir"
	"scratchc/internal/sb3"
)

// buildSetThenSay constructs the sb3 tree for S1's program: `set v to
// (3 + 4)`; `say v`.
func buildSetThenSay() *sb3.Project {
	blocks := sb3.BlockArray{
		"hat": sb3.Block{
			ID: "hat", Opcode: "event_whenflagclicked",
			TopLevel: true, Next: "set",
		},
		"set": sb3.Block{
			ID: "set", Opcode: "data_setvariableto", Parent: "hat", Next: "say",
			Fields: map[string]sb3.Field{"VARIABLE": {Value: "v", ID: "var-v"}},
			Inputs: map[string]sb3.Input{
				"VALUE": {Kind: sb3.InputBlockRef, BlockID: "add"},
			},
		},
		"add": sb3.Block{
			ID: "add", Opcode: "operator_add", Parent: "set",
			Inputs: map[string]sb3.Input{
				"NUM1": {Kind: sb3.InputLiteral, Literal: sb3.InitialValue{Kind: sb3.InitialValueNumber, Number: 3}},
				"NUM2": {Kind: sb3.InputLiteral, Literal: sb3.InitialValue{Kind: sb3.InitialValueNumber, Number: 4}},
			},
		},
		"say": sb3.Block{
			ID: "say", Opcode: "looks_say", Parent: "set", Next: "say2",
			Inputs: map[string]sb3.Input{
				"MESSAGE": {Kind: sb3.InputBlockRef, BlockID: "readv"},
			},
		},
		"readv": sb3.Block{
			ID: "readv", Opcode: "data_variable", Parent: "say",
			Fields: map[string]sb3.Field{"VARIABLE": {Value: "v", ID: "var-v"}},
		},
		"say2": sb3.Block{
			ID: "say2", Opcode: "looks_say", Parent: "say",
			Inputs: map[string]sb3.Input{
				"MESSAGE": {Kind: sb3.InputLiteral, Literal: sb3.InitialValue{Kind: sb3.InitialValueString, String: "done"}},
			},
		},
	}

	return &sb3.Project{
		Targets: []sb3.Target{
			{
				Name:    "Stage",
				IsStage: true,
				Variables: map[string]sb3.VariableDecl{
					"var-v": {ID: "var-v", Name: "v", Initial: sb3.InitialValue{Kind: sb3.InitialValueNumber, Number: 0}},
				},
				Blocks: blocks,
			},
		},
	}
}

func TestLowerSetThenSaySplitsAtScreenRefresh(t *testing.T) {
	proj, err := Lower(buildSetThenSay())
	require.NoError(t, err)
	require.Len(t, proj.Targets, 1)

	stage := proj.Targets[0]
	v, ok := stage.Variables["v"]
	require.True(t, ok)
	assert.False(t, v.Local)

	entrySteps := proj.NonInlineSteps()
	require.Len(t, entrySteps, 2, "looks_say must start a fresh non-inline Step")

	var first *ir.Step
	for _, s := range entrySteps {
		ops := s.Opcodes()
		if len(ops) > 0 && ops[0].Kind == ir.HqInteger {
			first = s
		}
	}
	require.NotNil(t, first, "expected the entry Step to start with the literal 3")

	ops := first.Opcodes()
	// hq_integer(3), hq_integer(4), operator_add, data_setvariableto,
	// data_variable(v), looks_say, hq_yield{Schedule}
	require.Len(t, ops, 7)
	assert.Equal(t, ir.HqInteger, ops[0].Kind)
	assert.Equal(t, ir.HqInteger, ops[1].Kind)
	assert.Equal(t, ir.OperatorAdd, ops[2].Kind)
	assert.Equal(t, ir.DataSetVariableTo, ops[3].Kind)
	assert.Equal(t, ir.DataVariable, ops[4].Kind)
	assert.Equal(t, ir.LooksSay, ops[5].Kind)
	assert.Equal(t, ir.HqYield, ops[6].Kind)

	yf, ok := ops[6].Fields.(ir.YieldFields)
	require.True(t, ok)
	assert.Equal(t, ir.YieldSchedule, yf.Mode.Kind)
	require.NotNil(t, yf.Mode.Target)

	nextOps := yf.Mode.Target.Opcodes()
	// hq_text("done"), looks_say, hq_yield{None}
	require.Len(t, nextOps, 3)
	assert.Equal(t, ir.HqText, nextOps[0].Kind)
	assert.Equal(t, ir.LooksSay, nextOps[1].Kind)
	assert.Equal(t, ir.HqYield, nextOps[2].Kind)
}

func TestLowerMalformedProjectOnMissingVariable(t *testing.T) {
	src := buildSetThenSay()
	blk := src.Targets[0].Blocks["set"]
	blk.Fields = map[string]sb3.Field{"VARIABLE": {Value: "v", ID: "does-not-exist"}}
	src.Targets[0].Blocks["set"] = blk

	_, err := Lower(src)
	require.Error(t, err)
}
