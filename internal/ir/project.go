package ir

import "github.com/google/uuid"

// Project owns every Target, Step, Variable and List created during
// compilation. Targets preserve declaration order with the stage first.
type Project struct {
	Targets []*Target

	steps   map[uuid.UUID]*Step
	inlined map[uuid.UUID]bool // Steps that never get their own WASM function

	// events maps a hat block's raw opcode (e.g. "event_whenflagclicked")
	// to every entry Step a script under that hat lowered to, one per
	// Target that defines such a script. The code generator seeds the
	// threads table from these at module build time (§4.6 "per-event
	// entry points").
	events map[string][]*Step
}

// NewProject allocates an empty Project.
func NewProject() *Project {
	return &Project{
		steps:   make(map[uuid.UUID]*Step),
		inlined: make(map[uuid.UUID]bool),
		events:  make(map[string][]*Step),
	}
}

// AddEvent records entry as one of the Steps the hat block named name
// lowered to.
func (p *Project) AddEvent(name string, entry *Step) {
	p.events[name] = append(p.events[name], entry)
}

// Events returns every entry Step registered under the hat opcode name,
// in registration order.
func (p *Project) Events(name string) []*Step {
	return p.events[name]
}

// EventNames returns every distinct hat opcode name that has at least
// one registered entry, in no particular order.
func (p *Project) EventNames() []string {
	out := make([]string, 0, len(p.events))
	for name := range p.events {
		out = append(out, name)
	}
	return out
}

// Stage returns the stage Target, or nil if none has been added yet.
func (p *Project) Stage() *Target {
	for _, t := range p.Targets {
		if t.IsStage {
			return t
		}
	}
	return nil
}

// AddTarget appends t to the Project. The caller is responsible for
// putting the stage first.
func (p *Project) AddTarget(t *Target) {
	p.Targets = append(p.Targets, t)
}

// MarkInline records that step will be emitted inline at its call site
// and must never receive its own WASM function / steps-table slot.
func (p *Project) MarkInline(step *Step) {
	p.inlined[step.ID] = true
}

// IsInlined reports whether step was marked inline.
func (p *Project) IsInlined(step *Step) bool {
	return p.inlined[step.ID]
}

// Steps returns every Step owned by the Project, in no particular order.
func (p *Project) Steps() []*Step {
	out := make([]*Step, 0, len(p.steps))
	for _, s := range p.steps {
		out = append(out, s)
	}
	return out
}

// NonInlineSteps returns every Step that will receive its own WASM
// function: those marked UsedNonInline and not in the inlined set.
func (p *Project) NonInlineSteps() []*Step {
	out := make([]*Step, 0, len(p.steps))
	for _, s := range p.steps {
		if s.UsedNonInline && !p.inlined[s.ID] {
			out = append(out, s)
		}
	}
	return out
}

// LookupStep returns the Step with the given ID, or nil.
func (p *Project) LookupStep(id uuid.UUID) *Step {
	return p.steps[id]
}

// Target is one Scratch sprite or the stage.
type Target struct {
	Name    string
	IsStage bool
	Index   int

	Variables  map[string]*Variable
	Lists      map[string]*List
	Procedures map[string]*Procedure
}

// NewTarget allocates an empty Target.
func NewTarget(name string, isStage bool, index int) *Target {
	return &Target{
		Name:       name,
		IsStage:    isStage,
		Index:      index,
		Variables:  make(map[string]*Variable),
		Lists:      make(map[string]*List),
		Procedures: make(map[string]*Procedure),
	}
}
