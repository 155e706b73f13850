package pagetable

import (
	"fmt"
	"io"

	"github.com/sarchlab/vmfork/mem/vm"
	"github.com/sarchlab/vmfork/mem/vm/frame"
)

// AddressSpace is a page-table tree rooted at one root node together with the
// physical memory it maps into.
//
// An AddressSpace is not safe for concurrent use.
type AddressSpace struct {
	id           string
	mem          frame.PhysicalMemory
	root         vm.PPN
	faultHandler FaultHandler
}

// New allocates an empty root node and returns the address space that owns
// it.
func New(id string, mem frame.PhysicalMemory) (*AddressSpace, error) {
	root, err := mem.Alloc()
	if err != nil {
		return nil, fmt.Errorf("creating address space %s: %w", id, err)
	}

	return Attach(id, mem, root), nil
}

// Attach returns the address space whose root node is already stored in
// frame root.
func Attach(id string, mem frame.PhysicalMemory, root vm.PPN) *AddressSpace {
	return &AddressSpace{
		id:   id,
		mem:  mem,
		root: root,
	}
}

// ID returns the identifier of the address space.
func (s *AddressSpace) ID() string {
	return s.id
}

// Memory returns the physical memory of the address space.
func (s *AddressSpace) Memory() frame.PhysicalMemory {
	return s.mem
}

// Root returns the root node.
func (s *AddressSpace) Root() Table {
	return NewTable(s.mem, s.root, vm.RootLevel)
}

// SetFaultHandler sets the handler that receives the faults of the address
// space.
func (s *AddressSpace) SetFaultHandler(h FaultHandler) {
	s.faultHandler = h
}

// FaultHandler returns the handler that receives the faults.
func (s *AddressSpace) FaultHandler() FaultHandler {
	return s.faultHandler
}

// walk descends from the root along the path of va. It returns the node at
// the target level. If an entry above the target level is not valid, it
// returns the node holding that entry and false.
func (s *AddressSpace) walk(va vm.VAddr, level int) (Table, bool) {
	t := s.Root()

	for t.Level() > level {
		next, ok := t.Next(va.Index(t.Level()))
		if !ok {
			return t, false
		}

		t = next
	}

	return t, true
}

// Walk returns the node at the given level on the path of va, or false if
// the path is not mapped down to that level or va is out of range.
func (s *AddressSpace) Walk(va vm.VAddr, level int) (Table, bool) {
	if !va.InRange() {
		return Table{}, false
	}

	t, ok := s.walk(va, level)
	if !ok {
		return Table{}, false
	}

	return t, true
}

// Lookup returns the leaf entry of va. It returns false if the leaf entry is
// not valid or va is out of range.
func (s *AddressSpace) Lookup(va vm.VAddr) (vm.PTE, bool) {
	if !va.InRange() {
		return 0, false
	}

	t, ok := s.walk(va, vm.LeafLevel)
	if !ok {
		return 0, false
	}

	_, e := t.EntryFor(va)

	return e, e.Valid()
}

// Map points the page of va at frame ppn with the given flags. Missing
// middle and leaf nodes are allocated.
func (s *AddressSpace) Map(va vm.VAddr, ppn vm.PPN, flags vm.PTE) error {
	if !va.InRange() {
		return fmt.Errorf("mapping %s: %w", va, ErrAddressOutOfRange)
	}

	t := s.Root()
	for !t.IsLeaf() {
		index := va.Index(t.Level())

		next, ok := t.Next(index)
		if !ok {
			node, err := s.mem.Alloc()
			if err != nil {
				return fmt.Errorf("mapping %s: %w", va, err)
			}

			t.SetEntry(index, vm.MakePTE(node, vm.PTEValid))
			next = NewTable(s.mem, node, t.Level()-1)
		}

		t = next
	}

	index, e := t.EntryFor(va)
	if e.Valid() {
		return fmt.Errorf("mapping %s: %w", va, ErrAlreadyMapped)
	}

	t.SetEntry(index, vm.MakePTE(ppn, flags|vm.PTEValid))

	return nil
}

// MapNew allocates a zeroed data frame and maps the page of va to it.
func (s *AddressSpace) MapNew(va vm.VAddr, flags vm.PTE) (vm.PPN, error) {
	if !va.InRange() {
		return 0, fmt.Errorf("mapping %s: %w", va, ErrAddressOutOfRange)
	}

	ppn, err := s.mem.Alloc()
	if err != nil {
		return 0, fmt.Errorf("mapping %s: %w", va, err)
	}

	err = s.Map(va, ppn, flags)
	if err != nil {
		return 0, err
	}

	return ppn, nil
}

// Unmap invalidates the leaf entry of va. The data frame is left to the
// allocator.
func (s *AddressSpace) Unmap(va vm.VAddr) error {
	if !va.InRange() {
		return fmt.Errorf("unmapping %s: %w", va, ErrAddressOutOfRange)
	}

	t, ok := s.walk(va, vm.LeafLevel)
	if !ok {
		return fmt.Errorf("unmapping %s: %w", va, ErrNotMapped)
	}

	index, e := t.EntryFor(va)
	if !e.Valid() {
		return fmt.Errorf("unmapping %s: %w", va, ErrNotMapped)
	}

	t.SetEntry(index, 0)

	return nil
}

// Translate returns the frame and the in-frame offset of va.
func (s *AddressSpace) Translate(va vm.VAddr) (vm.PPN, uint64, error) {
	if !va.InRange() {
		return 0, 0, fmt.Errorf("translating %s: %w", va, ErrAddressOutOfRange)
	}

	e, ok := s.Lookup(va)
	if !ok {
		return 0, 0, fmt.Errorf("translating %s: %w", va, ErrNotMapped)
	}

	return e.PPN(), va.Offset(), nil
}

// Read returns n bytes starting at va. Reads do not go through the fault
// handler.
func (s *AddressSpace) Read(va vm.VAddr, n uint64) ([]byte, error) {
	res := make([]byte, 0, n)

	for done := uint64(0); done < n; {
		curr := va + vm.VAddr(done)
		length := min(n-done, vm.PageSize-curr.Offset())

		data, err := s.readPage(curr, length)
		if err != nil {
			return nil, err
		}

		res = append(res, data...)
		done += length
	}

	return res, nil
}

func (s *AddressSpace) readPage(va vm.VAddr, length uint64) ([]byte, error) {
	if !va.InRange() {
		return nil, outOfRange(va, AccessRead)
	}

	t, ok := s.walk(va, vm.LeafLevel)
	if !ok {
		return nil, &PageFaultError{
			VAddr: va, Level: t.Level(), Access: AccessRead, Err: ErrNotMapped,
		}
	}

	_, e := t.EntryFor(va)
	if !e.Valid() {
		return nil, &PageFaultError{
			VAddr: va, Level: vm.LeafLevel, Access: AccessRead, Err: ErrNotMapped,
		}
	}

	if !e.Read() {
		return nil, &PageFaultError{
			VAddr: va, Level: vm.LeafLevel, Access: AccessRead, Err: ErrPermission,
		}
	}

	return s.mem.ReadAt(e.PPN(), va.Offset(), length)
}

// Write stores data starting at va. A page that cannot be written is
// reported to the fault handler, and the write to that page is retried once
// if the handler succeeds. Pages before a failing page stay written.
func (s *AddressSpace) Write(va vm.VAddr, data []byte) error {
	n := uint64(len(data))

	for done := uint64(0); done < n; {
		curr := va + vm.VAddr(done)
		length := min(n-done, vm.PageSize-curr.Offset())

		err := s.writePage(curr, data[done:done+length])
		if err != nil {
			return err
		}

		done += length
	}

	return nil
}

func (s *AddressSpace) writePage(va vm.VAddr, data []byte) error {
	if !va.InRange() {
		return outOfRange(va, AccessWrite)
	}

	for retried := false; ; retried = true {
		t, ok := s.walk(va, vm.LeafLevel)

		cause := ErrNotMapped
		if ok {
			_, e := t.EntryFor(va)
			if e.Valid() && e.Write() {
				return s.mem.WriteAt(e.PPN(), va.Offset(), data)
			}

			if e.Valid() {
				cause = ErrPermission
			}
		}

		fault := Fault{
			Space:  s.id,
			VAddr:  va,
			Level:  t.Level(),
			Table:  t,
			Access: AccessWrite,
		}

		if retried || s.faultHandler == nil {
			return &PageFaultError{
				VAddr: va, Level: fault.Level, Access: AccessWrite, Err: cause,
			}
		}

		err := s.faultHandler.HandleFault(fault)
		if err != nil {
			return &PageFaultError{
				VAddr: va, Level: fault.Level, Access: AccessWrite, Err: err,
			}
		}
	}
}

// outOfRange reports an access above the top of the address range. Such
// accesses never reach the fault handler.
func outOfRange(va vm.VAddr, access AccessType) error {
	return &PageFaultError{
		VAddr:  va,
		Level:  vm.RootLevel,
		Access: access,
		Err:    ErrAddressOutOfRange,
	}
}

// LeafVisitor is called for every valid leaf entry.
type LeafVisitor func(va vm.VAddr, leaf Table, index int, e vm.PTE) error

// VisitLeaves calls visit for every valid leaf entry in increasing address
// order. It stops at the first error.
func (s *AddressSpace) VisitLeaves(visit LeafVisitor) error {
	return visitLeaves(s.Root(), 0, visit)
}

func visitLeaves(t Table, prefix vm.VAddr, visit LeafVisitor) error {
	for i := 0; i < vm.NumPTEEntries; i++ {
		e := t.Entry(i)
		if !e.Valid() {
			continue
		}

		va := prefix | vm.VAddr(uint64(i)<<(vm.Log2PageSize+t.Level()*vm.Log2NumPTEEntries))

		if t.IsLeaf() {
			if err := visit(va, t, i, e); err != nil {
				return err
			}

			continue
		}

		next, _ := t.Next(i)
		if err := visitLeaves(next, va, visit); err != nil {
			return err
		}
	}

	return nil
}

// NumMappedPages returns the number of valid leaf entries.
func (s *AddressSpace) NumMappedPages() int {
	count := 0

	_ = s.VisitLeaves(func(vm.VAddr, Table, int, vm.PTE) error {
		count++
		return nil
	})

	return count
}

// Dump prints every valid leaf entry.
func (s *AddressSpace) Dump(w io.Writer) error {
	return s.VisitLeaves(func(va vm.VAddr, _ Table, _ int, e vm.PTE) error {
		_, err := fmt.Fprintf(w, "%s %s\n", va, e)
		return err
	})
}
