package memconfig

import (
	"github.com/sarchlab/memcfg/mem/mem"
	"github.com/sarchlab/memcfg/mem/memintf"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Planner", func() {
	var (
		ddr3   memintf.Kind
		simple memintf.Kind
		nvm    memintf.Kind
		r      mem.AddrRange
	)

	BeforeEach(func() {
		catalog := memintf.DefaultCatalog()
		ddr3, _ = catalog.Get("DDR3_1600_8x8")
		simple, _ = catalog.Get("SimpleMemory")
		nvm, _ = catalog.Get("NVM_2400_1x64")
		r = mem.NewAddrRange(0, 2*mem.GB)
	})

	It("should use log2 of the channel count as the interleaving bits", func() {
		for n, bits := range map[int]uint{1: 0, 2: 1, 4: 2, 8: 3, 16: 4} {
			p, err := NewPlanner(n, 128, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(p.IntlvBits()).To(Equal(bits))
			Expect(p.NumChannels()).To(Equal(n))
			Expect(p.IntlvSize()).To(Equal(uint64(128)))
		}
	})

	It("should reject a channel count that is not a power of 2", func() {
		_, err := NewPlanner(3, 128, 0)
		Expect(err).To(HaveOccurred())
		Expect(IsConfigurationError(err)).To(BeTrue())
	})

	It("should reject a non-positive channel count", func() {
		_, err := NewPlanner(0, 128, 0)
		Expect(IsConfigurationError(err)).To(BeTrue())
	})

	It("should reject a granularity that is not a power of 2", func() {
		_, err := NewPlanner(2, 96, 0)
		Expect(IsConfigurationError(err)).To(BeTrue())
	})

	It("should interleave above the granularity by default", func() {
		d, err := PlanChannel(r, 1, 4, 128, 0, simple)
		Expect(err).NotTo(HaveOccurred())
		Expect(d.IntlvLowBit).To(Equal(uint(7)))
		Expect(d.IntlvHighBit).To(Equal(uint(8)))
		Expect(d.IntlvBits).To(Equal(uint(2)))
		Expect(d.IntlvMatch).To(Equal(uint64(1)))
		Expect(d.Start).To(Equal(r.Start))
		Expect(d.Size).To(Equal(r.Size))
	})

	It("should interleave at the rank row buffer for RoRaBaChCo DRAM", func() {
		p, _ := NewPlanner(4, 128, 0)

		low, src, err := p.IntlvLowBit(ddr3)
		Expect(err).NotTo(HaveOccurred())
		Expect(low).To(Equal(uint(13)))
		Expect(src).To(Equal(LowBitFromRowBuffer))

		d, err := p.PlanChannel(r, 2, ddr3)
		Expect(err).NotTo(HaveOccurred())
		Expect(d.IntlvLowBit).To(Equal(uint(13)))
		Expect(d.IntlvHighBit).To(Equal(uint(14)))
	})

	It("should use the fixed low bit for RoRaChCoBaCo DRAM", func() {
		pim, _ := memintf.DefaultCatalog().Get("DDR4_2400_16x4_PIM")
		p, _ := NewPlanner(2, 128, 0)

		low, src, err := p.IntlvLowBit(pim)
		Expect(err).NotTo(HaveOccurred())
		Expect(low).To(Equal(uint(14)))
		Expect(src).To(Equal(LowBitFixed))
	})

	It("should interleave at the bank buffer for RoRaBaChCo NVM", func() {
		p, _ := NewPlanner(2, 128, 0)

		low, src, err := p.IntlvLowBit(nvm)
		Expect(err).NotTo(HaveOccurred())
		Expect(low).To(Equal(uint(6)))
		Expect(src).To(Equal(LowBitFromBankBuffer))
	})

	It("should use the granularity for other known mappings", func() {
		hbm, _ := memintf.DefaultCatalog().Get("HBM_1000_4H_1x128")
		p, _ := NewPlanner(2, 256, 0)

		low, src, err := p.IntlvLowBit(hbm)
		Expect(err).NotTo(HaveOccurred())
		Expect(low).To(Equal(uint(8)))
		Expect(src).To(Equal(LowBitFromGranularity))
	})

	It("should fall back to the granularity for unknown mappings", func() {
		k := memintf.WithAddrMapping(ddr3,
			memintf.ParseAddrMapping("BaRaRoChCo"))
		p, _ := NewPlanner(2, 128, 0)

		low, src, err := p.IntlvLowBit(k)
		Expect(err).NotTo(HaveOccurred())
		Expect(low).To(Equal(uint(7)))
		Expect(src).To(Equal(LowBitUnknownMapping))
	})

	It("should reject row buffers that are not a power of 2", func() {
		k := memintf.DRAM{
			DeviceRowBufferSize: 1024,
			DevicesPerRank:      3,
			AddrMapping:         memintf.RoRaBaChCo,
		}
		p, _ := NewPlanner(2, 128, 0)

		_, err := p.PlanChannel(r, 0, k)
		Expect(IsConfigurationError(err)).To(BeTrue())
	})

	It("should reject a missing interface kind", func() {
		p, _ := NewPlanner(2, 128, 0)
		_, err := p.PlanChannel(r, 0, nil)
		Expect(IsConfigurationError(err)).To(BeTrue())
	})

	It("should disable hashing when the XOR low bit is 0", func() {
		p, _ := NewPlanner(4, 128, 0)
		ds, err := p.PlanRange(r, ddr3)
		Expect(err).NotTo(HaveOccurred())
		Expect(ds).To(HaveLen(4))

		for _, d := range ds {
			Expect(d.XorHighBit).To(BeZero())
		}
	})

	It("should place the XOR bits above the XOR low bit", func() {
		d, err := PlanChannel(r, 3, 4, 128, 20, ddr3)
		Expect(err).NotTo(HaveOccurred())
		Expect(d.XorHighBit).To(Equal(uint(21)))
		Expect(d.AddrRange().XorLowBit()).To(Equal(uint(20)))
	})

	It("should reject XOR bits that overlap the interleaving bits", func() {
		_, err := PlanChannel(r, 0, 4, 128, 14, ddr3)
		Expect(IsConfigurationError(err)).To(BeTrue())
	})

	It("should not interleave a single channel", func() {
		d, err := PlanChannel(r, 0, 1, 128, 20, ddr3)
		Expect(err).NotTo(HaveOccurred())
		Expect(d.IntlvBits).To(BeZero())
		Expect(d.IntlvLowBit).To(Equal(uint(13)))
		Expect(d.IntlvHighBit).To(BeZero())
		Expect(d.XorHighBit).To(BeZero())
		Expect(d.AddrRange()).To(Equal(r))
	})

	It("should reject channel indices out of range", func() {
		p, _ := NewPlanner(4, 128, 0)

		_, err := p.PlanChannel(r, 4, ddr3)
		Expect(IsConfigurationError(err)).To(BeTrue())

		_, err = p.PlanChannel(r, -1, ddr3)
		Expect(IsConfigurationError(err)).To(BeTrue())
	})

	It("should reject ranges that are already interleaved", func() {
		p, _ := NewPlanner(2, 128, 0)
		striped := mem.AddrRange{
			Start: 0, Size: mem.GB, IntlvHighBit: 7, IntlvBits: 1,
		}

		_, err := p.PlanChannel(striped, 0, ddr3)
		Expect(IsConfigurationError(err)).To(BeTrue())
	})

	It("should reject empty ranges", func() {
		p, _ := NewPlanner(2, 128, 0)
		_, err := p.PlanChannel(mem.NewAddrRange(0, 0), 0, ddr3)
		Expect(IsConfigurationError(err)).To(BeTrue())
	})

	DescribeTable("should partition the range among the channels",
		func(n int, kind func() memintf.Kind, xorLowBit uint) {
			small := mem.NewAddrRange(0x100000, 1*mem.MB)
			p, err := NewPlanner(n, 128, xorLowBit)
			Expect(err).NotTo(HaveOccurred())

			ds, err := p.PlanRange(small, kind())
			Expect(err).NotTo(HaveOccurred())

			for addr := small.Start - 64; addr < small.End()+64; addr += 64 {
				owners := 0
				for _, d := range ds {
					if d.Contains(addr) {
						owners++
					}
				}

				if small.Contains(addr) {
					Expect(owners).To(Equal(1), "address %#x", addr)
				} else {
					Expect(owners).To(BeZero(), "address %#x", addr)
				}
			}
		},
		Entry("1 channel", 1, func() memintf.Kind { return simple }, uint(0)),
		Entry("2 channels", 2, func() memintf.Kind { return simple }, uint(0)),
		Entry("4 channels on row buffers",
			4, func() memintf.Kind { return ddr3 }, uint(0)),
		Entry("8 channels hashed",
			8, func() memintf.Kind { return simple }, uint(16)),
		Entry("4 channels on row buffers hashed",
			4, func() memintf.Kind { return ddr3 }, uint(18)),
	)

	It("should produce identical plans for identical inputs", func() {
		p1, _ := NewPlanner(8, 256, 20)
		p2, _ := NewPlanner(8, 256, 20)

		ds1, err := p1.PlanRange(r, ddr3)
		Expect(err).NotTo(HaveOccurred())
		ds2, err := p2.PlanRange(r, ddr3)
		Expect(err).NotTo(HaveOccurred())
		again, _ := p1.PlanRange(r, ddr3)

		Expect(ds1).To(Equal(ds2))
		Expect(ds1).To(Equal(again))
	})

	It("should print the descriptor as an address range", func() {
		d, _ := PlanChannel(r, 1, 4, 128, 20, simple)
		Expect(d.String()).To(Equal("[0x0:0x80000000] i2:7 m1 x20"))
	})
})

var _ = Describe("LowBitSource", func() {
	It("should have names", func() {
		Expect(LowBitFromRowBuffer.String()).To(Equal("row-buffer"))
		Expect(LowBitUnknownMapping.String()).To(Equal("unknown-mapping"))
		Expect(LowBitSource(42).String()).To(Equal("LowBitSource(42)"))
	})
})
