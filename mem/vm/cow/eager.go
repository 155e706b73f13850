package cow

import (
	"fmt"

	"github.com/sarchlab/vmfork/mem/vm"
	"github.com/sarchlab/vmfork/mem/vm/pagetable"
)

// ForkCopy creates a child that shares nothing with the parent. Every valid
// leaf gets a new frame holding a copy of the parent's frame, with READ and
// WRITE copied verbatim.
//
// If the memory runs out, the fork is aborted and the parent is unchanged.
func (f *Forker) ForkCopy(
	parent *pagetable.AddressSpace,
) (*pagetable.AddressSpace, error) {
	f.startFork(ModeCopy, parent)

	detail := ForkDetail{Mode: ModeCopy, Parent: parent.ID()}

	child, err := f.cloneTree(parent, func(slot leafSlot) error {
		detail.Leaves++
		return f.copyLeaf(slot, &detail)
	})
	if err != nil {
		detail.Err = fmt.Errorf("fork: %w", err)
		f.endFork(detail)

		return nil, detail.Err
	}

	f.register(child)
	detail.Child = child.ID()
	f.endFork(detail)

	return child, nil
}

func (f *Forker) copyLeaf(slot leafSlot, detail *ForkDetail) error {
	pe := slot.parentEntry()

	ppn, err := f.mem.Alloc()
	if err != nil {
		return fmt.Errorf("allocating data frame: %w", err)
	}

	err = f.mem.CopyFrame(ppn, pe.PPN())
	if err != nil {
		return err
	}

	ce := vm.MakePTE(ppn, vm.PTEValid)
	if pe.Read() {
		ce.SetRead()
	}

	if pe.Write() {
		ce.SetWrite()
	}

	slot.child.SetEntry(slot.index, ce)

	detail.FramesCopied++
	f.stats.EagerFramesCopied++

	return nil
}
