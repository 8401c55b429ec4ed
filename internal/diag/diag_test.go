package diag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scratchc/internal/ir"
	"scratchc/internal/types"
)

func sampleProject() *ir.Project {
	proj := ir.NewProject()
	target := ir.NewTarget("Sprite1", false, 0)
	proj.AddTarget(target)

	v := ir.NewVariable("score", ir.InitialValue{Kind: ir.InitialFloat, Float: 0})
	v.UnionType(types.Float)
	target.Variables["score"] = v

	step := ir.NewStep(proj, ir.Context{Target: target})
	step.Push(ir.Opcode{Kind: ir.HqFloat, Fields: ir.LiteralFields{Float: 1}})
	step.Push(ir.Opcode{Kind: ir.DataSetVariableTo, Fields: ir.VariableFields{Var: v}})
	step.Push(ir.Opcode{Kind: ir.HqYield, Fields: ir.YieldFields{Mode: ir.YieldMode{Kind: ir.YieldNone}}})

	return proj
}

func TestDumpRendersTargetsAndVariables(t *testing.T) {
	out := Dump(sampleProject())
	assert.Contains(t, out, "target \"Sprite1\"")
	assert.Contains(t, out, "var \"score\"")
	assert.Contains(t, out, "data_setvariableto var=\"score\"")
}

func TestDumpJSONIncludesBuildInfo(t *testing.T) {
	raw, err := DumpJSON(sampleProject())
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"build"`)
	assert.Contains(t, string(raw), `"score"`)
}
