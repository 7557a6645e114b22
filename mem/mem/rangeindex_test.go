package mem

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("RangeIndex", func() {
	var index *RangeIndex[string]

	BeforeEach(func() {
		index = NewRangeIndex[string]()
	})

	It("should find plain ranges", func() {
		Expect(index.Insert(NewAddrRange(0, GB), "Low")).To(Succeed())
		Expect(index.Insert(NewAddrRange(2*GB, GB), "High")).To(Succeed())

		v, r, found := index.Lookup(2*GB + 5)
		Expect(found).To(BeTrue())
		Expect(v).To(Equal("High"))
		Expect(r.Start).To(Equal(2 * GB))

		_, _, found = index.Lookup(GB + 5)
		Expect(found).To(BeFalse())
		Expect(index.Len()).To(Equal(2))
	})

	It("should tell interleaved stripes apart", func() {
		for i := uint64(0); i < 2; i++ {
			r := AddrRange{
				Start:        0,
				Size:         GB,
				IntlvHighBit: 7,
				IntlvBits:    1,
				IntlvMatch:   i,
			}
			Expect(index.Insert(r, []string{"Even", "Odd"}[i])).To(Succeed())
		}

		v, _, _ := index.Lookup(0x80)
		Expect(v).To(Equal("Odd"))

		v, _, _ = index.Lookup(0x100)
		Expect(v).To(Equal("Even"))
	})

	It("should reject intersecting ranges", func() {
		Expect(index.Insert(NewAddrRange(GB, GB), "A")).To(Succeed())

		err := index.Insert(NewAddrRange(0, GB+1), "B")
		Expect(err).To(MatchError(ContainSubstring("intersects")))
		Expect(index.Len()).To(Equal(1))
	})

	It("should reject stripes of a different region", func() {
		a := AddrRange{
			Start:        0,
			Size:         2 * GB,
			IntlvHighBit: 7,
			IntlvBits:    1,
			IntlvMatch:   0,
		}
		b := a
		b.Start = GB
		b.IntlvMatch = 1

		Expect(index.Insert(a, "A")).To(Succeed())
		Expect(index.Insert(b, "B")).NotTo(Succeed())

		v, _, found := index.Lookup(GB + 0x100)
		Expect(found).To(BeTrue())
		Expect(v).To(Equal("A"))
	})

	It("should reject invalid ranges", func() {
		Expect(index.Insert(AddrRange{}, "Empty")).NotTo(Succeed())
	})
})
