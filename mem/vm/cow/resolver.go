package cow

import (
	"errors"
	"fmt"

	"github.com/sarchlab/vmfork/mem/vm"
	"github.com/sarchlab/vmfork/mem/vm/pagetable"
)

// ErrNotCOWFault is returned for faults that copy-on-write does not explain.
// The caller has to deal with them in its own way.
var ErrNotCOWFault = errors.New("not a copy-on-write fault")

// Resolution tells how a copy-on-write fault was resolved.
type Resolution int

// Resolutions.
const (
	ResolutionNone Resolution = iota

	// ResolutionCopied means the sharer got a private copy of the frame.
	ResolutionCopied

	// ResolutionRetained means the sharer was the last one and kept the
	// original frame.
	ResolutionRetained

	// ResolutionAlreadyWritable means the entry had been resolved before.
	ResolutionAlreadyWritable
)

func (r Resolution) String() string {
	switch r {
	case ResolutionNone:
		return "none"
	case ResolutionCopied:
		return "copied"
	case ResolutionRetained:
		return "retained"
	case ResolutionAlreadyWritable:
		return "already-writable"
	default:
		return fmt.Sprintf("Resolution(%d)", int(r))
	}
}

// FaultDetail describes a resolved fault.
type FaultDetail struct {
	Space      string
	VAddr      vm.VAddr
	OldPPN     vm.PPN
	NewPPN     vm.PPN
	Resolution Resolution

	// RefCount is the shared count of the old frame after the fault.
	RefCount int
}

// HandleFault resolves copy-on-write faults. It returns ErrNotCOWFault for
// every other fault.
func (f *Forker) HandleFault(fault pagetable.Fault) error {
	_, err := f.Resolve(fault)
	return err
}

// Resolve completes the lazy copy of a leaf entry after a write fault.
//
// Only leaf faults on entries marked CUSTOM are handled. If WRITE is already
// set, nothing happens. Otherwise, if other sharers are outstanding, the
// entry gets a private copy of the frame and the shared count drops by one;
// if none is left, the entry keeps the frame. Either way the entry becomes
// writable and loses the CUSTOM mark.
func (f *Forker) Resolve(fault pagetable.Fault) (Resolution, error) {
	if fault.Level != vm.LeafLevel {
		f.stats.ForeignFaults++
		return ResolutionNone, ErrNotCOWFault
	}

	index, e := fault.Table.EntryFor(fault.VAddr)
	if !e.Valid() || !e.Custom() {
		f.stats.ForeignFaults++
		return ResolutionNone, ErrNotCOWFault
	}

	if e.Write() {
		f.stats.FaultsNoop++
		return ResolutionAlreadyWritable, nil
	}

	oldPPN := e.PPN()
	frameIndex := f.mem.Index(oldPPN)

	count, err := f.refs.Get(frameIndex)
	if err != nil {
		return ResolutionNone, err
	}

	resolution := ResolutionRetained

	if count > 0 {
		newPPN, err := f.copyFrame(oldPPN)
		if err != nil {
			return ResolutionNone, err
		}

		e.SetPPN(newPPN)
		count--
		resolution = ResolutionCopied

		if err := f.refs.Dec(frameIndex); err != nil {
			panic(err)
		}
	}

	e.SetWrite()
	e.ClearCustom()
	fault.Table.SetEntry(index, e)

	f.countResolution(resolution)
	f.hook(HookPosCOWFault, FaultDetail{
		Space:      fault.Space,
		VAddr:      fault.VAddr,
		OldPPN:     oldPPN,
		NewPPN:     e.PPN(),
		Resolution: resolution,
		RefCount:   count,
	})

	return resolution, nil
}

func (f *Forker) copyFrame(src vm.PPN) (vm.PPN, error) {
	dst, err := f.mem.Alloc()
	if err != nil {
		return 0, fmt.Errorf("resolving copy-on-write: %w", err)
	}

	err = f.mem.CopyFrame(dst, src)
	if err != nil {
		return 0, fmt.Errorf("resolving copy-on-write: %w", err)
	}

	return dst, nil
}

func (f *Forker) countResolution(r Resolution) {
	switch r {
	case ResolutionCopied:
		f.stats.FaultsCopied++
	case ResolutionRetained:
		f.stats.FaultsRetained++
	}
}
