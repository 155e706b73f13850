package cow

import (
	"github.com/sarchlab/vmfork/mem/vm/frame"
	"github.com/sarchlab/vmfork/mem/vm/pagetable"
	"github.com/sarchlab/vmfork/sim"
)

// A Builder can build Forkers.
type Builder struct {
	mem       frame.PhysicalMemory
	numFrames int
	idGen     sim.IDGenerator
}

// MakeBuilder creates a new builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		numFrames: 4096,
	}
}

// WithMemory sets the physical memory the forker allocates from. If it is
// not set, a frame.Memory is created.
func (b Builder) WithMemory(mem frame.PhysicalMemory) Builder {
	b.mem = mem
	return b
}

// WithNumFrames sets the number of frames of the memory created when no
// memory is given.
func (b Builder) WithNumFrames(n int) Builder {
	b.numFrames = n
	return b
}

// WithIDGenerator sets the generator of address-space IDs. By default, each
// forker counts from 1.
func (b Builder) WithIDGenerator(g sim.IDGenerator) Builder {
	b.idGen = g
	return b
}

// Build creates a new Forker.
func (b Builder) Build(name string) *Forker {
	f := &Forker{
		name:   name,
		mem:    b.mem,
		idGen:  b.idGen,
		spaces: make(map[string]*pagetable.AddressSpace),
	}

	if f.mem == nil {
		f.mem = frame.MakeBuilder().
			WithNumFrames(b.numFrames).
			Build(name + ".Memory")
	}

	if f.idGen == nil {
		f.idGen = sim.NewSequentialIDGenerator()
	}

	f.refs = NewRefTable(f.mem.NumFrames())

	return f
}
