package frame

import (
	"encoding/binary"
	"fmt"

	"github.com/sarchlab/vmfork/mem/storage"
	"github.com/sarchlab/vmfork/mem/vm"
	"github.com/sarchlab/vmfork/sim"
)

// HookPosFrameAlloc marks a frame allocation. The hook item is the PPN.
var HookPosFrameAlloc = &sim.HookPos{Name: "Frame Alloc"}

// Memory is the default PhysicalMemory. It keeps frame contents in a
// storage.Storage and allocates frames in increasing PPN order. Frames are
// never reused, so a new frame always reads as zeros.
//
// Memory is not safe for concurrent use.
type Memory struct {
	sim.HookableBase

	name      string
	storage   *storage.Storage
	basePPN   vm.PPN
	numFrames int
	next      int
}

// Name returns the name of the memory.
func (m *Memory) Name() string {
	return m.name
}

// Alloc returns the PPN of a new zeroed frame.
func (m *Memory) Alloc() (vm.PPN, error) {
	if m.next >= m.numFrames {
		return 0, fmt.Errorf("%s: %w", m.name, ErrOutOfFrames)
	}

	ppn := m.PPN(m.next)
	m.next++

	if m.NumHooks() > 0 {
		m.InvokeHook(sim.HookCtx{
			Domain: m,
			Pos:    HookPosFrameAlloc,
			Item:   ppn,
		})
	}

	return ppn, nil
}

// Index returns the dense index of the frame, or -1 if the PPN is not managed
// by this memory.
func (m *Memory) Index(ppn vm.PPN) int {
	if ppn < m.basePPN || ppn-m.basePPN >= vm.PPN(m.numFrames) {
		return -1
	}

	return int(ppn - m.basePPN)
}

// PPN returns the PPN of the frame with the given index.
func (m *Memory) PPN(index int) vm.PPN {
	return m.basePPN + vm.PPN(index)
}

// NumFrames returns the total number of frames.
func (m *Memory) NumFrames() int {
	return m.numFrames
}

// NumAllocated returns how many frames have been handed out.
func (m *Memory) NumAllocated() int {
	return m.next
}

func (m *Memory) frameAddr(ppn vm.PPN) (uint64, error) {
	index := m.Index(ppn)
	if index < 0 || index >= m.next {
		return 0, fmt.Errorf("%w: 0x%x", ErrInvalidPPN, uint64(ppn))
	}

	return uint64(index) * vm.PageSize, nil
}

// ReadFrame returns a copy of the whole frame.
func (m *Memory) ReadFrame(ppn vm.PPN) ([]byte, error) {
	return m.ReadAt(ppn, 0, vm.PageSize)
}

// ReadAt returns a copy of length bytes of the frame starting at offset.
func (m *Memory) ReadAt(ppn vm.PPN, offset, length uint64) ([]byte, error) {
	addr, err := m.frameAddr(ppn)
	if err != nil {
		return nil, err
	}

	if offset+length > vm.PageSize {
		return nil, fmt.Errorf("reading %d bytes at offset %d crosses the frame",
			length, offset)
	}

	return m.storage.Read(addr+offset, length)
}

// WriteAt stores data into the frame starting at offset.
func (m *Memory) WriteAt(ppn vm.PPN, offset uint64, data []byte) error {
	addr, err := m.frameAddr(ppn)
	if err != nil {
		return err
	}

	if offset+uint64(len(data)) > vm.PageSize {
		return fmt.Errorf("writing %d bytes at offset %d crosses the frame",
			len(data), offset)
	}

	return m.storage.Write(addr+offset, data)
}

// CopyFrame copies the whole content of src into dst.
func (m *Memory) CopyFrame(dst, src vm.PPN) error {
	data, err := m.ReadFrame(src)
	if err != nil {
		return err
	}

	return m.WriteAt(dst, 0, data)
}

// ReadWord reads the index-th 8-byte little-endian word of the frame.
func (m *Memory) ReadWord(ppn vm.PPN, index int) (uint64, error) {
	if index < 0 || index >= vm.NumPTEEntries {
		return 0, fmt.Errorf("word index %d out of frame", index)
	}

	data, err := m.ReadAt(ppn, uint64(index)*vm.PTESize, vm.PTESize)
	if err != nil {
		return 0, err
	}

	return binary.LittleEndian.Uint64(data), nil
}

// WriteWord writes the index-th 8-byte little-endian word of the frame.
func (m *Memory) WriteWord(ppn vm.PPN, index int, word uint64) error {
	if index < 0 || index >= vm.NumPTEEntries {
		return fmt.Errorf("word index %d out of frame", index)
	}

	data := make([]byte, vm.PTESize)
	binary.LittleEndian.PutUint64(data, word)

	return m.WriteAt(ppn, uint64(index)*vm.PTESize, data)
}
