package codegen

import (
	"sort"

	"github.com/google/uuid"

	"scratchc/internal/ir"
)

// callStepBase marks a Call instruction's Index as a not-yet-resolved
// step-function reference rather than a real import/function-index-space
// slot: imports are registered lazily while a Step's body is being
// compiled, so the true function index (import count + position) isn't
// known until every Step has been compiled. Compile's final pass
// rewrites every such Index back down to a real function index once the
// import count is fixed. 1<<20 comfortably exceeds any realistic import
// count, so the two numberings never collide before the rewrite.
const callStepBase uint32 = 1 << 20

// stepTable assigns every non-inline Step a stable position, used two
// ways: as a plain i32 constant indexing the `steps` funcref table
// (scheduling/event-seeding never needs the real function index, only a
// table slot), and — via callTarget — as a virtual Call target for
// direct warp-procedure calls, resolved to a real function index once
// Compile (module.go) knows the import count.
type stepTable struct {
	order []*ir.Step
	pos   map[uuid.UUID]int
}

func newStepTable(proj *ir.Project) *stepTable {
	steps := proj.NonInlineSteps()
	sort.Slice(steps, func(i, j int) bool { return steps[i].ID.String() < steps[j].ID.String() })
	t := &stepTable{order: steps, pos: make(map[uuid.UUID]int, len(steps))}
	for i, s := range steps {
		t.pos[s.ID] = i
	}
	return t
}

// position returns id's slot in the `steps` table.
func (t *stepTable) position(id uuid.UUID) uint32 {
	return uint32(t.pos[id])
}

// callTarget returns a virtual function index for a direct `call` to
// id's Step function; see callStepBase.
func (t *stepTable) callTarget(id uuid.UUID) uint32 {
	return callStepBase + t.position(id)
}
