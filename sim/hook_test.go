package sim

import (
	"bytes"
	"log"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type recordingHook struct {
	ctxs []HookCtx
}

func (h *recordingHook) Func(ctx HookCtx) {
	h.ctxs = append(h.ctxs, ctx)
}

var _ = Describe("HookableBase", func() {
	It("should invoke every hook in order", func() {
		domain := NewHookableBase()
		pos := &HookPos{Name: "Pos"}
		h1 := &recordingHook{}
		h2 := &recordingHook{}

		domain.AcceptHook(h1)
		domain.AcceptHook(h2)
		domain.InvokeHook(HookCtx{Pos: pos, Item: 1})

		Expect(domain.NumHooks()).To(Equal(2))
		Expect(h1.ctxs).To(HaveLen(1))
		Expect(h1.ctxs[0].Pos).To(BeIdenticalTo(pos))
		Expect(h2.ctxs[0].Item).To(Equal(1))
	})
})

var _ = Describe("LogHookBase", func() {
	It("should write to the given logger", func() {
		buf := new(bytes.Buffer)
		h := NewLogHookBase(log.New(buf, "", 0))

		h.Printf("alloc %d", 1)

		Expect(buf.String()).To(Equal("alloc 1\n"))
	})

	It("should fall back to the standard logger", func() {
		h := NewLogHookBase(nil)

		Expect(h.Logger).To(BeIdenticalTo(log.Default()))
	})
})

var _ = Describe("IDGenerator", func() {
	It("should count from one", func() {
		g := NewSequentialIDGenerator()

		Expect(g.Generate()).To(Equal("1"))
		Expect(g.Generate()).To(Equal("2"))
	})

	It("should keep generators independent", func() {
		g1 := NewSequentialIDGenerator()
		g2 := NewSequentialIDGenerator()

		g1.Generate()

		Expect(g2.Generate()).To(Equal("1"))
	})

	It("should generate unique parallel IDs", func() {
		g := parallelIDGenerator{}

		Expect(g.Generate()).NotTo(Equal(g.Generate()))
	})

	It("should not change the process generator once used", func() {
		g := GetIDGenerator()

		Expect(GetIDGenerator()).To(BeIdenticalTo(g))
		Expect(UseParallelIDGenerator).To(Panic())
	})
})
