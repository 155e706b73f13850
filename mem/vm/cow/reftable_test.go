package cow

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("RefTable", func() {
	var t *RefTable

	BeforeEach(func() {
		t = NewRefTable(4)
	})

	It("should start at zero", func() {
		Expect(t.Capacity()).To(Equal(4))
		for i := 0; i < 4; i++ {
			count, err := t.Get(i)
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(BeZero())
		}
		Expect(t.NonZero()).To(BeEmpty())
	})

	It("should count up and down", func() {
		Expect(t.Inc(3)).To(Succeed())
		Expect(t.Inc(3)).To(Succeed())
		Expect(t.Inc(0)).To(Succeed())
		Expect(t.Dec(3)).To(Succeed())

		Expect(t.Get(3)).To(Equal(1))
		Expect(t.NonZero()).To(Equal(map[int]int{0: 1, 3: 1}))
	})

	It("should never go below zero", func() {
		Expect(t.Inc(1)).To(Succeed())
		Expect(t.Dec(1)).To(Succeed())

		err := t.Dec(1)

		Expect(err).To(MatchError(ErrRefCountUnderflow))
		Expect(t.Get(1)).To(Equal(0))
	})

	It("should reject indices outside the table", func() {
		for _, index := range []int{-1, 4} {
			_, err := t.Get(index)
			Expect(err).To(MatchError(ErrFrameIndexOutOfRange))
			Expect(t.Inc(index)).To(MatchError(ErrFrameIndexOutOfRange))
			Expect(t.Dec(index)).To(MatchError(ErrFrameIndexOutOfRange))
		}

		Expect(t.NonZero()).To(BeEmpty())
	})
})
