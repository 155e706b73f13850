// Package scenario runs a complete fork workload: an address space with a
// number of pages is forked into a group of sharers, every sharer writes to
// every page, and the result is checked for isolation.
package scenario

import (
	"errors"
	"fmt"

	"github.com/sarchlab/vmfork/mem/vm"
	"github.com/sarchlab/vmfork/mem/vm/cow"
	"github.com/sarchlab/vmfork/mem/vm/pagetable"
)

// ErrCorrupted is returned when a sharer does not read what it should.
var ErrCorrupted = errors.New("page content corrupted")

// BaseVAddr is the address of the first page of the workload.
const BaseVAddr = vm.VAddr(0x10000000)

// Config describes a workload.
type Config struct {
	Mode    cow.Mode
	Pages   int
	Sharers int
}

// Report summarizes a run.
type Report struct {
	Mode    cow.Mode
	Pages   int
	Sharers int

	// Spaces are the IDs of the sharers, the parent first.
	Spaces []string

	// FramesAfterFork is the number of frames allocated once all forks are
	// done, and FramesAfterWrite once every sharer has written.
	FramesAfterFork  int
	FramesAfterWrite int

	// SharedAfterFork maps each data frame of the parent to its shared
	// count right after the forks.
	SharedAfterFork map[vm.PPN]int

	Stats cow.Stats
}

// Runner runs workloads on a forker.
type Runner struct {
	Forker *cow.Forker

	// Do wraps every step that touches the forker. It runs the step directly
	// if not set.
	Do func(step func())

	// OnPageWriting is called before a sharer writes a page, and
	// OnPageWritten after the write succeeded.
	OnPageWriting func()
	OnPageWritten func()
}

func (r *Runner) do(step func()) {
	if r.Do == nil {
		step()
		return
	}

	r.Do(step)
}

// PageVAddr returns the address of the i-th page of the workload.
func PageVAddr(i int) vm.VAddr {
	return BaseVAddr + vm.VAddr(uint64(i)*vm.PageSize)
}

// PageContent is what page i holds before any sharer writes.
func PageContent(i int) []byte {
	data := make([]byte, vm.PageSize)
	for j := range data {
		data[j] = byte(i*31 + j)
	}

	return data
}

// Run maps the pages in a new address space, forks it cfg.Sharers-1 times,
// lets every sharer write its own index into every page, and verifies that
// each sharer sees only its own write.
func (r *Runner) Run(cfg Config) (Report, error) {
	if cfg.Pages <= 0 || cfg.Sharers <= 0 {
		return Report{}, fmt.Errorf(
			"need at least one page and one sharer, got %d and %d",
			cfg.Pages, cfg.Sharers)
	}

	if cfg.Sharers > vm.PageSize {
		return Report{}, fmt.Errorf("at most %d sharers are supported",
			vm.PageSize)
	}

	report := Report{
		Mode:            cfg.Mode,
		Pages:           cfg.Pages,
		Sharers:         cfg.Sharers,
		SharedAfterFork: make(map[vm.PPN]int),
	}

	var sharers []*pagetable.AddressSpace
	var err error

	r.do(func() {
		sharers, err = r.setUp(cfg, &report)
	})
	if err != nil {
		return report, err
	}

	for s, space := range sharers {
		for i := 0; i < cfg.Pages; i++ {
			if r.OnPageWriting != nil {
				r.OnPageWriting()
			}

			r.do(func() {
				err = space.Write(PageVAddr(i)+vm.VAddr(s), []byte{byte(s)})
			})
			if err != nil {
				return report, err
			}

			if r.OnPageWritten != nil {
				r.OnPageWritten()
			}
		}
	}

	r.do(func() {
		report.FramesAfterWrite = r.Forker.Memory().NumAllocated()
		report.Stats = r.Forker.Stats()
		err = verify(sharers, cfg.Pages)
	})

	return report, err
}

func (r *Runner) setUp(
	cfg Config,
	report *Report,
) ([]*pagetable.AddressSpace, error) {
	parent, err := r.Forker.NewAddressSpace()
	if err != nil {
		return nil, err
	}

	for i := 0; i < cfg.Pages; i++ {
		ppn, err := parent.MapNew(PageVAddr(i), vm.PTERead|vm.PTEWrite)
		if err != nil {
			return nil, err
		}

		err = parent.Memory().WriteAt(ppn, 0, PageContent(i))
		if err != nil {
			return nil, err
		}
	}

	sharers := []*pagetable.AddressSpace{parent}
	for g := 1; g < cfg.Sharers; g++ {
		child, err := r.fork(cfg.Mode, parent)
		if err != nil {
			return nil, err
		}

		sharers = append(sharers, child)
	}

	for _, s := range sharers {
		report.Spaces = append(report.Spaces, s.ID())
	}

	report.FramesAfterFork = r.Forker.Memory().NumAllocated()

	for i := 0; i < cfg.Pages; i++ {
		e, _ := parent.Lookup(PageVAddr(i))

		count, err := r.Forker.RefCount(e.PPN())
		if err != nil {
			return nil, err
		}

		report.SharedAfterFork[e.PPN()] = count
	}

	return sharers, nil
}

func (r *Runner) fork(
	mode cow.Mode,
	parent *pagetable.AddressSpace,
) (*pagetable.AddressSpace, error) {
	switch mode {
	case cow.ModeCopy:
		return r.Forker.ForkCopy(parent)
	case cow.ModeCOW:
		return r.Forker.ForkCOW(parent)
	default:
		return nil, fmt.Errorf("unknown fork mode %s", mode)
	}
}

func verify(sharers []*pagetable.AddressSpace, pages int) error {
	for s, space := range sharers {
		for i := 0; i < pages; i++ {
			data, err := space.Read(PageVAddr(i), vm.PageSize)
			if err != nil {
				return err
			}

			expected := PageContent(i)
			expected[s] = byte(s)

			for j := range data {
				if data[j] != expected[j] {
					return fmt.Errorf(
						"%w: space %s page %d byte %d is 0x%x, want 0x%x",
						ErrCorrupted, space.ID(), i, j, data[j], expected[j])
				}
			}
		}
	}

	return nil
}

// ParseMode converts a mode name to a mode.
func ParseMode(name string) (cow.Mode, error) {
	switch name {
	case cow.ModeCopy.String():
		return cow.ModeCopy, nil
	case cow.ModeCOW.String():
		return cow.ModeCOW, nil
	default:
		return 0, fmt.Errorf("unknown fork mode %q, want copy or cow", name)
	}
}
