package tracing

import (
	"bytes"
	"log"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/vmfork/mem/vm"
	"github.com/sarchlab/vmfork/mem/vm/cow"
	"github.com/sarchlab/vmfork/mem/vm/pagetable"
	"go.uber.org/mock/gomock"
)

func newForkerWithPage() (*cow.Forker, *pagetable.AddressSpace, vm.VAddr) {
	forker := cow.MakeBuilder().WithNumFrames(32).Build("Forker")

	parent, err := forker.NewAddressSpace()
	Expect(err).NotTo(HaveOccurred())

	va := vm.MakeVAddr(0, 1, 2, 0)
	_, err = parent.MapNew(va, vm.PTERead|vm.PTEWrite)
	Expect(err).NotTo(HaveOccurred())

	return forker, parent, va
}

var _ = Describe("RecordingTracer", func() {
	var (
		mockCtrl *gomock.Controller
		recorder *MockDataRecorder
		tracer   *RecordingTracer
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		recorder = NewMockDataRecorder(mockCtrl)

		recorder.EXPECT().CreateTable(ForkTable, forkEntry{})
		recorder.EXPECT().CreateTable(COWFaultTable, cowFaultEntry{})
		recorder.EXPECT().CreateTable(FrameAllocTable, frameAllocEntry{})

		tracer = NewRecordingTracer(recorder)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should record forks, faults and allocations", func() {
		forker, parent, va := newForkerWithPage()
		Attach(forker, tracer)

		rows := make(map[string][]any)
		recorder.EXPECT().
			InsertData(gomock.Any(), gomock.Any()).
			Do(func(table string, entry any) {
				rows[table] = append(rows[table], entry)
			}).
			AnyTimes()

		child, err := forker.ForkCOW(parent)
		Expect(err).NotTo(HaveOccurred())
		Expect(child.Write(va, []byte{1})).To(Succeed())

		Expect(rows[FrameAllocTable]).To(HaveLen(4))
		Expect(rows[ForkTable]).To(HaveLen(1))
		Expect(rows[COWFaultTable]).To(HaveLen(1))

		fork := rows[ForkTable][0].(forkEntry)
		Expect(fork.Domain).To(Equal("Forker"))
		Expect(fork.Mode).To(Equal("cow"))
		Expect(fork.Parent).To(Equal(parent.ID()))
		Expect(fork.Child).To(Equal(child.ID()))
		Expect(fork.Leaves).To(Equal(1))
		Expect(fork.Err).To(BeEmpty())

		fault := rows[COWFaultTable][0].(cowFaultEntry)
		Expect(fault.Space).To(Equal(child.ID()))
		Expect(fault.VAddr).To(Equal(int64(va)))
		Expect(fault.Resolution).To(Equal("copied"))
		Expect(fault.Seq).To(BeNumerically(">", fork.Seq))

		alloc := rows[FrameAllocTable][3].(frameAllocEntry)
		Expect(alloc.Domain).To(Equal("Forker.Memory"))
		Expect(alloc.PPN).To(Equal(fault.NewPPN))
	})

	It("should flush the recorder", func() {
		recorder.EXPECT().Flush()

		tracer.Flush()
	})
})

var _ = Describe("LogTracer", func() {
	var (
		buf    *bytes.Buffer
		tracer *LogTracer
	)

	BeforeEach(func() {
		buf = new(bytes.Buffer)
		tracer = NewLogTracer(log.New(buf, "", 0))
	})

	It("should print forks and faults", func() {
		forker, parent, va := newForkerWithPage()
		Attach(forker, tracer)

		child, _ := forker.ForkCOW(parent)
		Expect(child.Write(va, []byte{1})).To(Succeed())
		Expect(parent.Write(va, []byte{1})).To(Succeed())

		out := buf.String()
		Expect(out).To(ContainSubstring(
			"Forker: cow fork 1 -> 2, 1 leaves, 0 frames copied"))
		Expect(out).To(ContainSubstring("cow fault in 2 at 0x202000, copied"))
		Expect(out).To(ContainSubstring("cow fault in 1 at 0x202000, retained"))
		Expect(out).NotTo(ContainSubstring("alloc"))
	})

	It("should print failed forks", func() {
		forker := cow.MakeBuilder().WithNumFrames(1).Build("Forker")
		parent, _ := forker.NewAddressSpace()
		Attach(forker, tracer)

		_, err := forker.ForkCopy(parent)
		Expect(err).To(HaveOccurred())

		Expect(buf.String()).To(ContainSubstring("copy fork of 1 failed"))
	})

	It("should print frame allocations if asked to", func() {
		tracer.LogFrameAllocs(true)
		forker := cow.MakeBuilder().WithNumFrames(4).Build("Forker")
		Attach(forker, tracer)

		_, err := forker.NewAddressSpace()
		Expect(err).NotTo(HaveOccurred())

		Expect(buf.String()).To(Equal("Forker.Memory: alloc 0x80000\n"))
	})
})
