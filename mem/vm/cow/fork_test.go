package cow

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/vmfork/mem/vm"
	"github.com/sarchlab/vmfork/mem/vm/frame"
	"github.com/sarchlab/vmfork/mem/vm/pagetable"
)

func pagePattern(seed byte) []byte {
	data := make([]byte, vm.PageSize)
	for i := range data {
		data[i] = seed + byte(i%251)
	}

	return data
}

func mapPage(
	space *pagetable.AddressSpace,
	va vm.VAddr,
	flags vm.PTE,
	data []byte,
) vm.PPN {
	ppn, err := space.MapNew(va, flags)
	Expect(err).NotTo(HaveOccurred())
	Expect(space.Memory().WriteAt(ppn, 0, data)).To(Succeed())

	return ppn
}

func readPage(space *pagetable.AddressSpace, va vm.VAddr) []byte {
	data, err := space.Read(va, vm.PageSize)
	Expect(err).NotTo(HaveOccurred())

	return data
}

func leafEntry(space *pagetable.AddressSpace, va vm.VAddr) vm.PTE {
	e, ok := space.Lookup(va)
	Expect(ok).To(BeTrue())

	return e
}

var _ = Describe("Forker", func() {
	var (
		mem    *frame.Memory
		forker *Forker
		parent *pagetable.AddressSpace
		vas    []vm.VAddr
	)

	BeforeEach(func() {
		mem = frame.MakeBuilder().WithNumFrames(256).Build("Memory")
		forker = MakeBuilder().WithMemory(mem).Build("Forker")

		var err error
		parent, err = forker.NewAddressSpace()
		Expect(err).NotTo(HaveOccurred())

		vas = []vm.VAddr{
			vm.MakeVAddr(0, 0, 0, 0),
			vm.MakeVAddr(0, 0, 1, 0),
			vm.MakeVAddr(0, 3, 0, 0),
			vm.MakeVAddr(5, 0, 511, 0),
		}
		for i, va := range vas {
			mapPage(parent, va, vm.PTERead|vm.PTEWrite, pagePattern(byte(i)))
		}
	})

	Context("copy fork", func() {
		It("should give the child identical private frames", func() {
			child, err := forker.ForkCopy(parent)
			Expect(err).NotTo(HaveOccurred())

			for i, va := range vas {
				pe := leafEntry(parent, va)
				ce := leafEntry(child, va)

				Expect(ce.PPN()).NotTo(Equal(pe.PPN()))
				Expect(ce.Flags()).To(Equal(pe.Flags()))
				Expect(readPage(child, va)).To(Equal(pagePattern(byte(i))))
			}

			Expect(forker.Stats().EagerFramesCopied).To(Equal(uint64(len(vas))))
			Expect(forker.SharedFrames()).To(BeEmpty())
		})

		It("should keep writes invisible to the other side", func() {
			child, err := forker.ForkCopy(parent)
			Expect(err).NotTo(HaveOccurred())

			Expect(child.Write(vas[0], []byte("child"))).To(Succeed())
			Expect(parent.Write(vas[1], []byte("parent"))).To(Succeed())

			Expect(readPage(parent, vas[0])).To(Equal(pagePattern(0)))
			Expect(readPage(child, vas[1])).To(Equal(pagePattern(1)))
		})

		It("should copy read and write flags verbatim", func() {
			ro := vm.MakeVAddr(7, 7, 7, 0)
			mapPage(parent, ro, vm.PTERead, pagePattern(9))

			child, err := forker.ForkCopy(parent)
			Expect(err).NotTo(HaveOccurred())

			ce := leafEntry(child, ro)
			Expect(ce.Read()).To(BeTrue())
			Expect(ce.Write()).To(BeFalse())
			Expect(ce.Custom()).To(BeFalse())
		})

		It("should visit leaves in increasing slot order", func() {
			child, err := forker.ForkCopy(parent)
			Expect(err).NotTo(HaveOccurred())

			var ppns []vm.PPN
			Expect(child.VisitLeaves(
				func(_ vm.VAddr, _ pagetable.Table, _ int, e vm.PTE) error {
					ppns = append(ppns, e.PPN())
					return nil
				})).To(Succeed())

			Expect(ppns).To(HaveLen(len(vas)))
			for i := 1; i < len(ppns); i++ {
				Expect(ppns[i]).To(BeNumerically(">", ppns[i-1]))
			}
		})
	})

	Context("cow fork", func() {
		It("should share frames without copying", func() {
			allocated := mem.NumAllocated()

			child, err := forker.ForkCOW(parent)
			Expect(err).NotTo(HaveOccurred())

			// Root, 2 middle nodes, 3 leaf nodes.
			Expect(mem.NumAllocated() - allocated).To(Equal(6))

			for _, va := range vas {
				pe := leafEntry(parent, va)
				ce := leafEntry(child, va)

				Expect(ce.PPN()).To(Equal(pe.PPN()))
				Expect(pe.Write()).To(BeFalse())
				Expect(ce.Write()).To(BeFalse())
				Expect(pe.Custom()).To(BeTrue())
				Expect(ce.Custom()).To(BeTrue())
				Expect(ce.Read()).To(BeTrue())

				count, err := forker.RefCount(pe.PPN())
				Expect(err).NotTo(HaveOccurred())
				Expect(count).To(Equal(1))
			}
		})

		It("should read the pre-fork content through both sides", func() {
			child, err := forker.ForkCOW(parent)
			Expect(err).NotTo(HaveOccurred())

			for i, va := range vas {
				Expect(readPage(parent, va)).To(Equal(pagePattern(byte(i))))
				Expect(readPage(child, va)).To(Equal(pagePattern(byte(i))))
			}
		})

		It("should isolate writes", func() {
			child, err := forker.ForkCOW(parent)
			Expect(err).NotTo(HaveOccurred())

			Expect(child.Write(vas[2]+8, []byte("child"))).To(Succeed())
			Expect(parent.Write(vas[3]+8, []byte("parent"))).To(Succeed())

			Expect(readPage(parent, vas[2])).To(Equal(pagePattern(2)))
			Expect(readPage(child, vas[3])).To(Equal(pagePattern(3)))

			data, _ := child.Read(vas[2]+8, 5)
			Expect(data).To(Equal([]byte("child")))
			data, _ = parent.Read(vas[3]+8, 6)
			Expect(data).To(Equal([]byte("parent")))
		})

		It("should share read-only frames without marking them", func() {
			ro := vm.MakeVAddr(7, 7, 7, 0)
			ppn := mapPage(parent, ro, vm.PTERead, pagePattern(9))

			child, err := forker.ForkCOW(parent)
			Expect(err).NotTo(HaveOccurred())

			ce := leafEntry(child, ro)
			Expect(ce.PPN()).To(Equal(ppn))
			Expect(ce.Custom()).To(BeFalse())
			Expect(leafEntry(parent, ro).Custom()).To(BeFalse())

			count, _ := forker.RefCount(ppn)
			Expect(count).To(Equal(1))

			err = child.Write(ro, []byte{1})
			Expect(err).To(MatchError(ErrNotCOWFault))
		})
	})

	Context("structural independence", func() {
		for _, mode := range []Mode{ModeCopy, ModeCOW} {
			mode := mode

			It("should not share nodes in "+mode.String()+" mode", func() {
				var child *pagetable.AddressSpace
				var err error
				if mode == ModeCopy {
					child, err = forker.ForkCopy(parent)
				} else {
					child, err = forker.ForkCOW(parent)
				}
				Expect(err).NotTo(HaveOccurred())

				Expect(child.Root().PPN()).NotTo(Equal(parent.Root().PPN()))

				pLeaf, _ := parent.Walk(vas[0], vm.LeafLevel)
				cLeaf, _ := child.Walk(vas[0], vm.LeafLevel)
				Expect(cLeaf.PPN()).NotTo(Equal(pLeaf.PPN()))

				Expect(child.Unmap(vas[0])).To(Succeed())
				_, ok := parent.Lookup(vas[0])
				Expect(ok).To(BeTrue())

				cMiddle, _ := child.Walk(vas[2], 1)
				cMiddle.SetEntry(vas[2].Index(1), 0)
				_, ok = parent.Lookup(vas[2])
				Expect(ok).To(BeTrue())
				_, ok = child.Lookup(vas[2])
				Expect(ok).To(BeFalse())

				Expect(parent.Unmap(vas[1])).To(Succeed())
				_, ok = child.Lookup(vas[1])
				Expect(ok).To(BeTrue())
			})
		}
	})

	Context("allocation failure", func() {
		var small *frame.Memory

		BeforeEach(func() {
			small = frame.MakeBuilder().WithNumFrames(6).Build("Small")
			forker = MakeBuilder().WithMemory(small).Build("Forker")

			var err error
			parent, err = forker.NewAddressSpace()
			Expect(err).NotTo(HaveOccurred())

			mapPage(parent, vas[0], vm.PTERead|vm.PTEWrite, pagePattern(0))
		})

		It("should abort a cow fork and leave the parent unchanged", func() {
			before := leafEntry(parent, vas[0])

			child, err := forker.ForkCOW(parent)

			Expect(err).To(MatchError(frame.ErrOutOfFrames))
			Expect(child).To(BeNil())
			Expect(leafEntry(parent, vas[0])).To(Equal(before))
			Expect(forker.SharedFrames()).To(BeEmpty())
			Expect(forker.Spaces()).To(HaveLen(1))
			Expect(forker.Stats().FailedForks).To(Equal(uint64(1)))
		})

		It("should abort a copy fork", func() {
			before := leafEntry(parent, vas[0])

			_, err := forker.ForkCopy(parent)

			Expect(err).To(MatchError(frame.ErrOutOfFrames))
			Expect(leafEntry(parent, vas[0])).To(Equal(before))
		})
	})

	It("should refuse to share frames it does not manage", func() {
		Expect(parent.Map(vm.MakeVAddr(9, 9, 9, 0), 0x10, vm.PTERead)).
			To(Succeed())
		before := leafEntry(parent, vas[0])

		_, err := forker.ForkCOW(parent)

		Expect(err).To(MatchError(ErrFrameIndexOutOfRange))
		Expect(leafEntry(parent, vas[0])).To(Equal(before))
	})

	It("should register every space it creates", func() {
		child, _ := forker.ForkCOW(parent)
		grandchild, _ := forker.ForkCopy(child)

		Expect(forker.Spaces()).To(Equal(
			[]*pagetable.AddressSpace{parent, child, grandchild}))

		s, ok := forker.Space(child.ID())
		Expect(ok).To(BeTrue())
		Expect(s).To(BeIdenticalTo(child))
		Expect(child.FaultHandler()).To(BeIdenticalTo(forker))
	})

	It("should dump the parent and the child alike after a cow fork", func() {
		child, _ := forker.ForkCOW(parent)

		pBuf := new(bytes.Buffer)
		cBuf := new(bytes.Buffer)
		Expect(parent.Dump(pBuf)).To(Succeed())
		Expect(child.Dump(cBuf)).To(Succeed())

		Expect(cBuf.String()).To(Equal(pBuf.String()))
		Expect(cBuf.String()).To(ContainSubstring("Flags: C-RV"))
	})
})
