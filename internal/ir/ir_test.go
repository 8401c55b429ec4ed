package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"scratchc/internal/types"
)

func TestVariableIdentityNotContent(t *testing.T) {
	a := NewVariable("v", InitialValue{Kind: InitialFloat})
	b := NewVariable("v", InitialValue{Kind: InitialFloat})
	assert.False(t, a.Equal(b), "same name/initial but distinct identity")
	assert.True(t, a.Equal(a))
}

func TestPossibleTypesMonotone(t *testing.T) {
	v := NewVariable("v", InitialValue{})
	assert.True(t, v.UnionType(types.IntPos))
	assert.Equal(t, types.Type(types.IntPos), v.PossibleTypes())
	// Unioning a subtype again is a no-op.
	assert.False(t, v.UnionType(types.IntPos))
	assert.True(t, v.UnionType(types.StringOther))
	assert.True(t, v.PossibleTypes().Contains(types.IntPos))
	assert.True(t, v.PossibleTypes().Contains(types.StringOther))
}

func TestListLengthCapFlags(t *testing.T) {
	l := NewList("l", nil)
	assert.False(t, l.LengthMutable())
	l.MarkLengthMutable()
	assert.True(t, l.LengthMutable())
}

func TestStepIdentity(t *testing.T) {
	p := NewProject()
	tgt := NewTarget("Stage", true, 0)
	s1 := NewStep(p, Context{Target: tgt})
	s2 := NewStep(p, Context{Target: tgt})
	assert.False(t, s1.Equal(s2))
	assert.True(t, s1.Equal(s1))
	assert.Same(t, s1, p.LookupStep(s1.ID))
}

func TestNonInlineSteps(t *testing.T) {
	p := NewProject()
	tgt := NewTarget("Sprite1", false, 1)
	s1 := NewStep(p, Context{Target: tgt})
	s1.UsedNonInline = true
	s2 := NewStep(p, Context{Target: tgt})
	s2.UsedNonInline = true
	p.MarkInline(s2)

	out := p.NonInlineSteps()
	assert.Len(t, out, 1)
	assert.True(t, out[0].Equal(s1))
}
