package codegen

import "scratchc/internal/ir"

// Linear-memory layout (§6, byte offsets). REDRAW_REQUESTED and
// THREAD_NUM are exposed here for host introspection; the scheduler's
// own hot-path thread count lives in the threads_count WASM global
// instead (see scheduler.go) since rereading a memory byte on every
// reschedule would cost an extra load this encoder has no reason to pay.
const (
	memRedrawRequested uint32 = 0
	memThreadNum       uint32 = 4
	memThreadsBase     uint32 = 8
)

// spriteBlockSize is the per-sprite state block §6 lays out: x, y (f64),
// pen HSV (4×f32), pen RGBA (4×f32), pen size (f64), pen_down (u8),
// visible (u8), pad (u16), costume (i32), size (f64), rotation (f64).
// This memory is owned by the host's rendering step, not read back by
// generated code (motion/looks/pen opcodes delegate entirely to host
// imports) — it exists so the host can locate each sprite's state at a
// fixed offset without a side channel.
const spriteBlockSize uint32 = 8 + 8 + 4*4 + 4*4 + 8 + 1 + 1 + 2 + 4 + 8 + 8

// memoryLayout assigns every non-stage Target a byte offset within the
// sprite-block region that follows THREADS. The stage itself has no
// x/y/rotation/pen state and so owns no block.
type memoryLayout struct {
	spriteOffset map[string]uint32
	totalBytes   uint32
}

func buildMemoryLayout(targets []*ir.Target) memoryLayout {
	layout := memoryLayout{spriteOffset: make(map[string]uint32)}
	off := memThreadsBase + maxThreads*4 // one i32 slot reserved per potential thread
	for _, t := range targets {
		if t.IsStage {
			continue
		}
		layout.spriteOffset[t.Name] = off
		off += spriteBlockSize
	}
	layout.totalBytes = off
	return layout
}

// memoryPages returns the number of 64KiB pages needed to hold layout,
// at least the §6-mandated minimum of one.
func memoryPages(layout memoryLayout) uint32 {
	const pageSize = 65536
	pages := (layout.totalBytes + pageSize - 1) / pageSize
	if pages < 1 {
		return 1
	}
	return pages
}
