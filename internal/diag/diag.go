// Package diag renders the compiler's IR for the print_ir flag (§6
// Flags), in the teacher's formatter.Formatter style: an indent-tracking
// strings.Builder walk for a human-readable dump, plus a JSON encoding
// for tooling, mirroring the multi-format style of the teacher's
// reporting.go (encoding/json there, csv/xml alongside it).
package diag

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"scratchc/internal/buildinfo"
	"scratchc/internal/ir"
)

// Dumper renders a Project as indented text.
type Dumper struct {
	indent int
	out    strings.Builder
}

// NewDumper allocates an empty Dumper.
func NewDumper() *Dumper { return &Dumper{} }

// Dump renders proj as indented text and returns it.
func Dump(proj *ir.Project) string {
	d := NewDumper()
	d.writeProject(proj)
	return d.out.String()
}

func (d *Dumper) writeIndent() {
	for i := 0; i < d.indent; i++ {
		d.out.WriteString("  ")
	}
}

func (d *Dumper) line(format string, args ...interface{}) {
	d.writeIndent()
	fmt.Fprintf(&d.out, format, args...)
	d.out.WriteString("\n")
}

func (d *Dumper) writeProject(proj *ir.Project) {
	d.line("project (ir format v%d)", buildinfo.IRFormatVersion)
	d.indent++
	for _, t := range proj.Targets {
		d.writeTarget(t)
	}
	d.indent--
}

func (d *Dumper) writeTarget(t *ir.Target) {
	kind := "sprite"
	if t.IsStage {
		kind = "stage"
	}
	d.line("target %q (%s, index %d)", t.Name, kind, t.Index)
	d.indent++

	for _, name := range sortedKeys(t.Variables) {
		v := t.Variables[name]
		d.line("var %q: possible_types=%s local=%v", v.Name, v.PossibleTypes(), v.Local)
	}
	for _, name := range sortedKeys(t.Lists) {
		l := t.Lists[name]
		d.line("list %q: elem_types=%s length_mutable=%v items_mutable=%v",
			l.Name, l.PossibleElementType(), l.LengthMutable(), l.ItemsMutable())
	}
	for _, name := range sortedKeys(t.Procedures) {
		d.writeProcedure(t.Procedures[name])
	}

	d.indent--
}

func (d *Dumper) writeProcedure(p *ir.Procedure) {
	d.line("procedure %q (warp=%v, args=%d, returns=%d)", p.Proccode, p.Warp, len(p.Args), len(p.Returns))
	d.indent++
	if p.WarpEntry != nil {
		d.line("warp_entry:")
		d.indent++
		d.writeStep(p.WarpEntry)
		d.indent--
	}
	if p.NonwarpEntry != nil {
		d.line("nonwarp_entry:")
		d.indent++
		d.writeStep(p.NonwarpEntry)
		d.indent--
	}
	d.indent--
}

func (d *Dumper) writeStep(s *ir.Step) {
	d.line("step %s (used_non_inline=%v)", s.ID, s.UsedNonInline)
	d.indent++
	for _, op := range s.Opcodes() {
		d.writeOpcode(op)
	}
	d.indent--
}

func (d *Dumper) writeOpcode(op ir.Opcode) {
	switch f := op.Fields.(type) {
	case ir.IfElseFields:
		d.line("%s", op.Kind)
		d.indent++
		d.line("then:")
		d.indent++
		d.writeStep(f.Then)
		d.indent--
		if f.Else != nil {
			d.line("else:")
			d.indent++
			d.writeStep(f.Else)
			d.indent--
		}
		d.indent--
	case ir.LoopFields:
		d.line("%s", op.Kind)
		d.indent++
		if f.FirstCondition != nil {
			d.line("first_condition:")
			d.indent++
			d.writeStep(f.FirstCondition)
			d.indent--
		}
		d.line("condition:")
		d.indent++
		d.writeStep(f.Condition)
		d.indent--
		d.line("body:")
		d.indent++
		d.writeStep(f.Body)
		d.indent--
		d.indent--
	case ir.YieldFields:
		if f.Mode.Target != nil {
			d.line("%s mode=%d target=%s", op.Kind, f.Mode.Kind, f.Mode.Target.ID)
		} else {
			d.line("%s mode=%d", op.Kind, f.Mode.Kind)
		}
	case ir.VariableFields:
		d.line("%s var=%q", op.Kind, f.Var.Name)
	case ir.ListFields:
		d.line("%s list=%q", op.Kind, f.List.Name)
	case ir.CallFields:
		d.line("%s proc=%q", op.Kind, f.Proc.Proccode)
	case ir.CastFields:
		d.line("%s to=%s", op.Kind, f.To)
	case ir.LiteralFields:
		d.line("%s int=%d float=%g text=%q bool=%v", op.Kind, f.Int, f.Float, f.Text, f.Bool)
	case ir.ArgumentFields:
		d.line("%s index=%d", op.Kind, f.Index)
	default:
		d.line("%s", op.Kind)
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// --- JSON dump ---

// projectJSON mirrors Project well enough for tooling, without trying to
// marshal the IR's own types directly (Step/Variable guard their fields
// behind a mutex, matching the teacher's RefCell-style borrow discipline
// — encoding/json would either skip them as unexported or need custom
// MarshalJSON methods on types that otherwise have no reason to know
// about JSON at all).
type projectJSON struct {
	Build   buildinfo.Info `json:"build"`
	Targets []targetJSON   `json:"targets"`
}

type targetJSON struct {
	Name       string         `json:"name"`
	IsStage    bool           `json:"is_stage"`
	Variables  []variableJSON `json:"variables"`
	Procedures []string       `json:"procedures"`
}

type variableJSON struct {
	Name          string `json:"name"`
	PossibleTypes string `json:"possible_types"`
	Local         bool   `json:"local"`
}

// DumpJSON renders proj as a JSON document, versioned by buildinfo.
func DumpJSON(proj *ir.Project) ([]byte, error) {
	out := projectJSON{Build: buildinfo.Current()}
	for _, t := range proj.Targets {
		tj := targetJSON{Name: t.Name, IsStage: t.IsStage}
		for _, name := range sortedKeys(t.Variables) {
			v := t.Variables[name]
			tj.Variables = append(tj.Variables, variableJSON{
				Name: v.Name, PossibleTypes: v.PossibleTypes().String(), Local: v.Local,
			})
		}
		for _, name := range sortedKeys(t.Procedures) {
			tj.Procedures = append(tj.Procedures, name)
		}
		out.Targets = append(out.Targets, tj)
	}
	return json.MarshalIndent(out, "", "  ")
}
