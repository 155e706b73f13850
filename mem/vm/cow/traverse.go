package cow

import (
	"fmt"

	"github.com/sarchlab/vmfork/mem/vm"
	"github.com/sarchlab/vmfork/mem/vm/pagetable"
)

// leafSlot is a valid leaf slot of a parent together with the slot that
// mirrors it in the child.
type leafSlot struct {
	parent pagetable.Table
	child  pagetable.Table
	index  int
}

func (s leafSlot) parentEntry() vm.PTE {
	return s.parent.Entry(s.index)
}

type leafVisitor func(slot leafSlot) error

// cloneTree creates a child address space and gives it a fresh node for every
// valid middle and leaf node of the parent. Leaf slots are handed to visit;
// what goes into them is up to the caller.
func (f *Forker) cloneTree(
	parent *pagetable.AddressSpace,
	visit leafVisitor,
) (*pagetable.AddressSpace, error) {
	child, err := pagetable.New(f.idGen.Generate(), f.mem)
	if err != nil {
		return nil, err
	}

	err = f.cloneNodes(parent.Root(), child.Root(), visit)
	if err != nil {
		return nil, err
	}

	return child, nil
}

// cloneNodes visits the slots of parent in increasing index order and
// recurses into every valid entry until the leaf level.
func (f *Forker) cloneNodes(
	parent, child pagetable.Table,
	visit leafVisitor,
) error {
	for i := 0; i < vm.NumPTEEntries; i++ {
		if !parent.Entry(i).Valid() {
			continue
		}

		if parent.IsLeaf() {
			err := visit(leafSlot{parent: parent, child: child, index: i})
			if err != nil {
				return err
			}

			continue
		}

		node, err := f.mem.Alloc()
		if err != nil {
			return fmt.Errorf("allocating level %d node: %w",
				child.Level()-1, err)
		}

		child.SetEntry(i, vm.MakePTE(node, vm.PTEValid))

		parentNext, _ := parent.Next(i)
		childNext, _ := child.Next(i)

		err = f.cloneNodes(parentNext, childNext, visit)
		if err != nil {
			return err
		}
	}

	return nil
}
