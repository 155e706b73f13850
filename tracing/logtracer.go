package tracing

import (
	"log"

	"github.com/sarchlab/vmfork/mem/vm"
	"github.com/sarchlab/vmfork/mem/vm/cow"
	"github.com/sarchlab/vmfork/mem/vm/frame"
	"github.com/sarchlab/vmfork/sim"
)

// LogTracer is a hook that prints forks, copy-on-write faults and, if
// enabled, frame allocations.
type LogTracer struct {
	sim.LogHookBase

	logFrameAllocs bool
}

// NewLogTracer returns a LogTracer that writes to the logger. A nil logger
// means the standard logger.
func NewLogTracer(logger *log.Logger) *LogTracer {
	return &LogTracer{LogHookBase: sim.NewLogHookBase(logger)}
}

// LogFrameAllocs turns the printing of frame allocations on or off.
func (t *LogTracer) LogFrameAllocs(on bool) {
	t.logFrameAllocs = on
}

// Func prints the event.
func (t *LogTracer) Func(ctx sim.HookCtx) {
	switch ctx.Pos {
	case cow.HookPosForkEnd:
		t.logFork(ctx)
	case cow.HookPosCOWFault:
		t.logFault(ctx)
	case frame.HookPosFrameAlloc:
		if t.logFrameAllocs {
			ppn := ctx.Item.(vm.PPN)
			t.Printf("%s: alloc 0x%x", domainName(ctx), uint64(ppn))
		}
	}
}

func (t *LogTracer) logFork(ctx sim.HookCtx) {
	d := ctx.Item.(cow.ForkDetail)

	if d.Err != nil {
		t.Printf("%s: %s fork of %s failed: %v",
			domainName(ctx), d.Mode, d.Parent, d.Err)
		return
	}

	t.Printf("%s: %s fork %s -> %s, %d leaves, %d frames copied",
		domainName(ctx), d.Mode, d.Parent, d.Child, d.Leaves, d.FramesCopied)
}

func (t *LogTracer) logFault(ctx sim.HookCtx) {
	d := ctx.Item.(cow.FaultDetail)

	t.Printf("%s: cow fault in %s at %s, %s 0x%x -> 0x%x, %d left",
		domainName(ctx), d.Space, d.VAddr, d.Resolution,
		uint64(d.OldPPN), uint64(d.NewPPN), d.RefCount)
}
