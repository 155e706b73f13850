package tracing

import (
	"github.com/sarchlab/vmfork/datarecording"
	"github.com/sarchlab/vmfork/mem/vm"
	"github.com/sarchlab/vmfork/mem/vm/cow"
	"github.com/sarchlab/vmfork/mem/vm/frame"
	"github.com/sarchlab/vmfork/sim"
)

// Table names used by the RecordingTracer.
const (
	ForkTable       = "fork"
	COWFaultTable   = "cow_fault"
	FrameAllocTable = "frame_alloc"
)

type forkEntry struct {
	ID           string
	Seq          int
	Domain       string
	Mode         string
	Parent       string
	Child        string
	Leaves       int
	FramesCopied int
	Err          string
}

type cowFaultEntry struct {
	ID         string
	Seq        int
	Domain     string
	Space      string
	VAddr      int64
	OldPPN     int64
	NewPPN     int64
	Resolution string
	RefCount   int
}

type frameAllocEntry struct {
	ID     string
	Seq    int
	Domain string
	PPN    int64
}

// RecordingTracer writes forks, copy-on-write faults and frame allocations
// into a data recorder. Seq orders the rows of all tables.
type RecordingTracer struct {
	recorder datarecording.DataRecorder
	idGen    sim.IDGenerator
	seq      int
}

// NewRecordingTracer creates the tables in the recorder and returns a tracer
// that fills them.
func NewRecordingTracer(
	recorder datarecording.DataRecorder,
) *RecordingTracer {
	recorder.CreateTable(ForkTable, forkEntry{})
	recorder.CreateTable(COWFaultTable, cowFaultEntry{})
	recorder.CreateTable(FrameAllocTable, frameAllocEntry{})

	return &RecordingTracer{
		recorder: recorder,
		idGen:    sim.GetIDGenerator(),
	}
}

// Func records the event.
func (t *RecordingTracer) Func(ctx sim.HookCtx) {
	switch ctx.Pos {
	case cow.HookPosForkEnd:
		d := ctx.Item.(cow.ForkDetail)
		t.recorder.InsertData(ForkTable, forkEntry{
			ID:           t.idGen.Generate(),
			Seq:          t.next(),
			Domain:       domainName(ctx),
			Mode:         d.Mode.String(),
			Parent:       d.Parent,
			Child:        d.Child,
			Leaves:       d.Leaves,
			FramesCopied: d.FramesCopied,
			Err:          errString(d.Err),
		})
	case cow.HookPosCOWFault:
		d := ctx.Item.(cow.FaultDetail)
		t.recorder.InsertData(COWFaultTable, cowFaultEntry{
			ID:         t.idGen.Generate(),
			Seq:        t.next(),
			Domain:     domainName(ctx),
			Space:      d.Space,
			VAddr:      int64(d.VAddr),
			OldPPN:     int64(d.OldPPN),
			NewPPN:     int64(d.NewPPN),
			Resolution: d.Resolution.String(),
			RefCount:   d.RefCount,
		})
	case frame.HookPosFrameAlloc:
		t.recorder.InsertData(FrameAllocTable, frameAllocEntry{
			ID:     t.idGen.Generate(),
			Seq:    t.next(),
			Domain: domainName(ctx),
			PPN:    int64(ctx.Item.(vm.PPN)),
		})
	}
}

// Flush writes the buffered rows.
func (t *RecordingTracer) Flush() {
	t.recorder.Flush()
}

func (t *RecordingTracer) next() int {
	t.seq++
	return t.seq
}
