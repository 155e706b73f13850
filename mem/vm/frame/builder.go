package frame

import (
	"github.com/sarchlab/vmfork/mem/storage"
	"github.com/sarchlab/vmfork/mem/vm"
)

// A Builder can build Memory.
type Builder struct {
	numFrames int
	basePPN   vm.PPN
}

// MakeBuilder creates a new builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		numFrames: 4096,
		basePPN:   0x80000,
	}
}

// WithNumFrames sets the number of frames the memory can allocate.
func (b Builder) WithNumFrames(n int) Builder {
	b.numFrames = n
	return b
}

// WithBasePPN sets the PPN of the first frame.
func (b Builder) WithBasePPN(ppn vm.PPN) Builder {
	b.basePPN = ppn
	return b
}

// Build creates a new Memory.
func (b Builder) Build(name string) *Memory {
	if b.numFrames <= 0 {
		panic("number of frames must be positive")
	}

	if b.basePPN+vm.PPN(b.numFrames)-1 > vm.MaxPPN {
		panic("frames do not fit in the ppn field of a page-table entry")
	}

	m := &Memory{
		name:      name,
		basePPN:   b.basePPN,
		numFrames: b.numFrames,
	}
	m.storage = storage.NewWithUnitSize(
		uint64(b.numFrames)*vm.PageSize, vm.PageSize)

	return m
}
