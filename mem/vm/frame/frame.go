// Package frame models the physical frames of the simulated memory and the
// allocator that hands them out.
package frame

import (
	"errors"

	"github.com/sarchlab/vmfork/mem/vm"
)

var (
	// ErrOutOfFrames is returned when every frame has been allocated.
	ErrOutOfFrames = errors.New("out of physical frames")

	// ErrInvalidPPN is returned when accessing a frame that has not been
	// allocated.
	ErrInvalidPPN = errors.New("invalid physical page number")
)

// Allocator hands out zeroed frames and maps PPNs to dense indices.
type Allocator interface {
	// Alloc returns the PPN of a new zeroed frame.
	Alloc() (vm.PPN, error)

	// Index returns the dense index of the frame in [0, NumFrames()), or -1
	// if the PPN does not belong to the allocator.
	Index(ppn vm.PPN) int

	// PPN is the inverse of Index.
	PPN(index int) vm.PPN

	// NumFrames returns the total number of frames.
	NumFrames() int

	// NumAllocated returns how many frames have been handed out.
	NumAllocated() int
}

// Accessor reads and writes frame contents.
type Accessor interface {
	ReadFrame(ppn vm.PPN) ([]byte, error)
	ReadAt(ppn vm.PPN, offset, length uint64) ([]byte, error)
	WriteAt(ppn vm.PPN, offset uint64, data []byte) error
	CopyFrame(dst, src vm.PPN) error
	ReadWord(ppn vm.PPN, index int) (uint64, error)
	WriteWord(ppn vm.PPN, index int, word uint64) error
}

// PhysicalMemory is an allocator whose frames can be accessed.
type PhysicalMemory interface {
	Allocator
	Accessor
}
