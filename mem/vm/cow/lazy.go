package cow

import (
	"fmt"

	"github.com/sarchlab/vmfork/mem/vm"
	"github.com/sarchlab/vmfork/mem/vm/pagetable"
)

// ForkCOW creates a child with its own page-table nodes that shares every
// data frame with the parent. Writable parent mappings become read-only and
// both sides are marked CUSTOM, so that the first write by any sharer traps
// into the fault resolver. No data byte is copied.
//
// Every node is allocated before the parent is touched. If the memory runs
// out, the fork is aborted and neither the parent nor the reference table
// has changed.
func (f *Forker) ForkCOW(
	parent *pagetable.AddressSpace,
) (*pagetable.AddressSpace, error) {
	f.startFork(ModeCOW, parent)

	detail := ForkDetail{Mode: ModeCOW, Parent: parent.ID()}

	var slots []leafSlot

	child, err := f.cloneTree(parent, func(slot leafSlot) error {
		index := f.mem.Index(slot.parentEntry().PPN())
		if _, err := f.refs.Get(index); err != nil {
			return err
		}

		slots = append(slots, slot)

		return nil
	})
	if err != nil {
		detail.Err = fmt.Errorf("fork: %w", err)
		f.endFork(detail)

		return nil, detail.Err
	}

	for _, slot := range slots {
		f.shareLeaf(slot)
	}

	f.register(child)
	detail.Child = child.ID()
	detail.Leaves = len(slots)
	f.endFork(detail)

	return child, nil
}

// shareLeaf points the child slot at the parent's frame and records one more
// outstanding sharer of the frame. The frame index has been checked already.
func (f *Forker) shareLeaf(slot leafSlot) {
	pe := slot.parentEntry()

	ce := vm.MakePTE(pe.PPN(), vm.PTEValid)
	if pe.Read() {
		ce.SetRead()
	}

	if pe.Write() {
		ce.SetCustom()
		pe.SetCustom()
		pe.ClearWrite()
		slot.parent.SetEntry(slot.index, pe)
	}

	if pe.Custom() {
		ce.SetCustom()
	}

	slot.child.SetEntry(slot.index, ce)

	err := f.refs.Inc(f.mem.Index(pe.PPN()))
	if err != nil {
		panic(err)
	}
}
