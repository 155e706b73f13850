// Package cow forks simulated address spaces, either by copying every data
// frame or by sharing frames copy-on-write, and resolves the write faults on
// shared frames.
package cow

import (
	"fmt"
	"sort"

	"github.com/sarchlab/vmfork/mem/vm"
	"github.com/sarchlab/vmfork/mem/vm/frame"
	"github.com/sarchlab/vmfork/mem/vm/pagetable"
	"github.com/sarchlab/vmfork/sim"
)

var (
	// HookPosForkStart marks the start of a fork. The item is a ForkDetail
	// without the child.
	HookPosForkStart = &sim.HookPos{Name: "Fork Start"}

	// HookPosForkEnd marks the end of a fork. The item is a ForkDetail.
	HookPosForkEnd = &sim.HookPos{Name: "Fork End"}

	// HookPosCOWFault marks a resolved copy-on-write fault. The item is a
	// FaultDetail.
	HookPosCOWFault = &sim.HookPos{Name: "COW Fault"}
)

// Mode tells how a fork treats data frames.
type Mode int

// Fork modes.
const (
	ModeCopy Mode = iota
	ModeCOW
)

func (m Mode) String() string {
	switch m {
	case ModeCopy:
		return "copy"
	case ModeCOW:
		return "cow"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ForkDetail describes a fork.
type ForkDetail struct {
	Mode   Mode
	Parent string
	Child  string

	// Leaves is the number of valid leaf entries of the parent.
	Leaves int

	// FramesCopied is the number of data frames copied.
	FramesCopied int

	Err error
}

// Stats counts what a Forker has done.
type Stats struct {
	Forks             uint64
	FailedForks       uint64
	EagerFramesCopied uint64
	FaultsCopied      uint64
	FaultsRetained    uint64
	FaultsNoop        uint64
	ForeignFaults     uint64
}

// Forker creates address spaces in one physical memory, forks them, and
// resolves their copy-on-write faults. It owns the shared-frame reference
// table of the memory, so address spaces of different Forkers never
// interact.
//
// A Forker is not safe for concurrent use.
type Forker struct {
	sim.HookableBase

	name   string
	mem    frame.PhysicalMemory
	refs   *RefTable
	idGen  sim.IDGenerator
	spaces map[string]*pagetable.AddressSpace
	order  []string
	stats  Stats
}

// Name returns the name of the forker.
func (f *Forker) Name() string {
	return f.name
}

// Memory returns the physical memory the forker allocates from.
func (f *Forker) Memory() frame.PhysicalMemory {
	return f.mem
}

// RefCount returns the shared reference count of the frame ppn.
func (f *Forker) RefCount(ppn vm.PPN) (int, error) {
	return f.refs.Get(f.mem.Index(ppn))
}

// Stats returns the counters of the forker.
func (f *Forker) Stats() Stats {
	return f.stats
}

// Spaces returns the address spaces created by the forker in creation order.
func (f *Forker) Spaces() []*pagetable.AddressSpace {
	res := make([]*pagetable.AddressSpace, 0, len(f.order))
	for _, id := range f.order {
		res = append(res, f.spaces[id])
	}

	return res
}

// Space returns the address space with the given ID.
func (f *Forker) Space(id string) (*pagetable.AddressSpace, bool) {
	s, ok := f.spaces[id]
	return s, ok
}

// SharedFrames returns the PPNs with a positive shared count, sorted.
func (f *Forker) SharedFrames() []vm.PPN {
	res := make([]vm.PPN, 0)
	for index := range f.refs.NonZero() {
		res = append(res, f.mem.PPN(index))
	}

	sort.Slice(res, func(i, j int) bool { return res[i] < res[j] })

	return res
}

// NewAddressSpace creates an empty address space whose faults are handled by
// the forker.
func (f *Forker) NewAddressSpace() (*pagetable.AddressSpace, error) {
	s, err := pagetable.New(f.idGen.Generate(), f.mem)
	if err != nil {
		return nil, err
	}

	f.register(s)

	return s, nil
}

func (f *Forker) register(s *pagetable.AddressSpace) {
	s.SetFaultHandler(f)
	f.spaces[s.ID()] = s
	f.order = append(f.order, s.ID())
}

func (f *Forker) hook(pos *sim.HookPos, item interface{}) {
	if f.NumHooks() == 0 {
		return
	}

	f.InvokeHook(sim.HookCtx{
		Domain: f,
		Pos:    pos,
		Item:   item,
	})
}

func (f *Forker) startFork(mode Mode, parent *pagetable.AddressSpace) {
	f.hook(HookPosForkStart, ForkDetail{Mode: mode, Parent: parent.ID()})
}

func (f *Forker) endFork(detail ForkDetail) {
	if detail.Err != nil {
		f.stats.FailedForks++
	} else {
		f.stats.Forks++
	}

	f.hook(HookPosForkEnd, detail)
}
