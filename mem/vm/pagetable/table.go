// Package pagetable implements the three-level page-table tree of a simulated
// address space.
package pagetable

import (
	"fmt"
	"log"

	"github.com/sarchlab/vmfork/mem/vm"
	"github.com/sarchlab/vmfork/mem/vm/frame"
)

// Table is a view of one page-table node. The node lives in a frame of the
// physical memory and holds vm.NumPTEEntries entries.
type Table struct {
	mem   frame.Accessor
	ppn   vm.PPN
	level int
}

// NewTable returns the view of the node stored in frame ppn at the given
// level.
func NewTable(mem frame.Accessor, ppn vm.PPN, level int) Table {
	if level < vm.LeafLevel || level > vm.RootLevel {
		panic(fmt.Sprintf("level %d does not exist", level))
	}

	return Table{mem: mem, ppn: ppn, level: level}
}

// PPN returns the frame that holds the node.
func (t Table) PPN() vm.PPN {
	return t.ppn
}

// Level returns the level of the node in the tree.
func (t Table) Level() int {
	return t.level
}

// IsLeaf returns true if the entries of the node point at data frames.
func (t Table) IsLeaf() bool {
	return t.level == vm.LeafLevel
}

// Entry returns the entry in the given slot.
func (t Table) Entry(index int) vm.PTE {
	word, err := t.mem.ReadWord(t.ppn, index)
	if err != nil {
		log.Panicf("reading entry %d of table 0x%x: %v",
			index, uint64(t.ppn), err)
	}

	return vm.PTE(word)
}

// SetEntry overwrites the entry in the given slot.
func (t Table) SetEntry(index int, e vm.PTE) {
	err := t.mem.WriteWord(t.ppn, index, uint64(e))
	if err != nil {
		log.Panicf("writing entry %d of table 0x%x: %v",
			index, uint64(t.ppn), err)
	}
}

// Update applies f to the entry in the given slot and stores the result.
func (t Table) Update(index int, f func(e *vm.PTE)) vm.PTE {
	e := t.Entry(index)
	f(&e)
	t.SetEntry(index, e)

	return e
}

// EntryFor returns the slot that the virtual address selects in this node,
// together with the entry in it.
func (t Table) EntryFor(va vm.VAddr) (int, vm.PTE) {
	index := va.Index(t.level)
	return index, t.Entry(index)
}

// Next returns the node that the entry in the given slot points to. It
// returns false if the node is a leaf or the entry is not valid.
func (t Table) Next(index int) (Table, bool) {
	if t.IsLeaf() {
		return Table{}, false
	}

	e := t.Entry(index)
	if !e.Valid() {
		return Table{}, false
	}

	return NewTable(t.mem, e.PPN(), t.level-1), true
}
