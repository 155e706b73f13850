package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/sarchlab/vmfork/mem/vm"
	"github.com/sarchlab/vmfork/mem/vm/cow"
	"github.com/sarchlab/vmfork/mem/vm/pagetable"
	"github.com/sarchlab/vmfork/tracing"
)

var seedFlag = flag.Int64("seed", 0, "Random Seed")
var numOpsFlag = flag.Int("num-ops", 10000, "Number of operations to run")
var numPagesFlag = flag.Int("num-pages", 16, "Number of pages of the first space")
var maxSpacesFlag = flag.Int("max-spaces", 16, "Maximum number of address spaces")
var traceFlag = flag.Bool("trace", false, "Print forks and faults")

type pageState int

const (
	statePrivate pageState = iota
	statePending
	stateReadOnly
)

type page struct {
	state pageState
	data  []byte
}

// shadow is what every address space should hold.
type shadow map[string][]*page

type tester struct {
	rng    *rand.Rand
	forker *cow.Forker
	spaces []*pagetable.AddressSpace
	model  shadow
	pages  int
}

func pageVAddr(i int) vm.VAddr {
	return vm.VAddr(uint64(i) * vm.PageSize * 3)
}

func newTester(seed int64) *tester {
	t := &tester{
		rng:    rand.New(rand.NewSource(seed)),
		forker: cow.MakeBuilder().WithNumFrames(1 << 20).Build("Forker"),
		model:  make(shadow),
		pages:  *numPagesFlag,
	}

	if *traceFlag {
		tracing.Attach(t.forker, tracing.NewLogTracer(log.New(os.Stdout, "", 0)))
	}

	parent, err := t.forker.NewAddressSpace()
	dieOnErr(err)

	pages := make([]*page, t.pages)
	for i := range pages {
		flags := vm.PTERead | vm.PTEWrite
		state := statePrivate
		if i%5 == 4 {
			flags = vm.PTERead
			state = stateReadOnly
		}

		ppn, err := parent.MapNew(pageVAddr(i), flags)
		dieOnErr(err)

		data := make([]byte, vm.PageSize)
		t.rng.Read(data)
		dieOnErr(parent.Memory().WriteAt(ppn, 0, data))

		pages[i] = &page{state: state, data: data}
	}

	t.spaces = append(t.spaces, parent)
	t.model[parent.ID()] = pages

	return t
}

func (t *tester) fork() {
	parent := t.spaces[t.rng.Intn(len(t.spaces))]
	eager := t.rng.Intn(4) == 0

	var child *pagetable.AddressSpace
	var err error
	if eager {
		child, err = t.forker.ForkCopy(parent)
	} else {
		child, err = t.forker.ForkCOW(parent)
	}
	dieOnErr(err)

	parentPages := t.model[parent.ID()]
	childPages := make([]*page, len(parentPages))
	for i, p := range parentPages {
		c := &page{data: append([]byte(nil), p.data...)}

		switch {
		case eager && p.state == statePrivate:
			c.state = statePrivate
		case eager:
			c.state = stateReadOnly
		case p.state == stateReadOnly:
			c.state = stateReadOnly
		default:
			p.state = statePending
			c.state = statePending
		}

		childPages[i] = c
	}

	t.spaces = append(t.spaces, child)
	t.model[child.ID()] = childPages
}

func (t *tester) write() {
	space := t.spaces[t.rng.Intn(len(t.spaces))]
	i := t.rng.Intn(t.pages)
	offset := t.rng.Intn(vm.PageSize - 8)
	data := make([]byte, 1+t.rng.Intn(8))
	t.rng.Read(data)

	p := t.model[space.ID()][i]
	err := space.Write(pageVAddr(i)+vm.VAddr(offset), data)

	if p.state == stateReadOnly {
		if !errors.Is(err, cow.ErrNotCOWFault) {
			log.Panicf("write to read-only page %d of space %s: %v",
				i, space.ID(), err)
		}

		return
	}

	dieOnErr(err)

	p.state = statePrivate
	copy(p.data[offset:], data)
}

func (t *tester) check() {
	for _, s := range t.spaces {
		for i, p := range t.model[s.ID()] {
			data, err := s.Read(pageVAddr(i), vm.PageSize)
			dieOnErr(err)

			for j := range data {
				if data[j] != p.data[j] {
					log.Panicf("space %s page %d byte %d: 0x%x, want 0x%x",
						s.ID(), i, j, data[j], p.data[j])
				}
			}
		}
	}

	t.checkExclusiveWritableFrames()
}

// checkExclusiveWritableFrames makes sure that a frame writable through one
// entry is referenced by no other entry.
func (t *tester) checkExclusiveWritableFrames() {
	refs := make(map[vm.PPN]int)
	writable := make(map[vm.PPN]string)

	for _, s := range t.spaces {
		for i := 0; i < t.pages; i++ {
			e, ok := s.Lookup(pageVAddr(i))
			if !ok {
				log.Panicf("page %d of space %s lost", i, s.ID())
			}

			refs[e.PPN()]++

			if e.Write() {
				writable[e.PPN()] = s.ID()

				if e.Custom() {
					log.Panicf("page %d of space %s is writable and shared",
						i, s.ID())
				}
			}
		}
	}

	for ppn, id := range writable {
		if refs[ppn] != 1 {
			log.Panicf("frame 0x%x writable by %s has %d references",
				uint64(ppn), id, refs[ppn])
		}

		count, err := t.forker.RefCount(ppn)
		dieOnErr(err)

		if count != 0 {
			log.Panicf("frame 0x%x writable by %s has shared count %d",
				uint64(ppn), id, count)
		}
	}
}

func main() {
	flag.Parse()

	seed := *seedFlag
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	fmt.Fprintf(os.Stderr, "Seed %d\n", seed)

	t := newTester(seed)

	for op := 0; op < *numOpsFlag; op++ {
		if len(t.spaces) < *maxSpacesFlag && t.rng.Intn(50) == 0 {
			t.fork()
		} else {
			t.write()
		}

		if op%500 == 0 {
			t.check()
		}
	}

	t.check()

	stats := t.forker.Stats()
	fmt.Fprintf(os.Stderr,
		"%d spaces, %d forks, %d copied, %d retained, %d frames\n",
		len(t.spaces), stats.Forks, stats.FaultsCopied, stats.FaultsRetained,
		t.forker.Memory().NumAllocated())
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
