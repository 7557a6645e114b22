package memconfig

import (
	"fmt"
	"log/slog"

	"github.com/sarchlab/memcfg/mem/mem"
	"github.com/sarchlab/memcfg/mem/memintf"
)

// roRaChCoBaCoIntlvLowBit is where the channel bits start in the RoRaChCoBaCo
// mapping. The column bits below it are split around the bank bits by the
// device, so the position does not follow from the row buffer size.
const roRaChCoBaCoIntlvLowBit = 14

// LowBitSource tells how the planner chose the lowest interleaving bit.
type LowBitSource int

// The sources of the lowest interleaving bit.
const (
	LowBitFromGranularity LowBitSource = iota
	LowBitFromRowBuffer
	LowBitFromBankBuffer
	LowBitFixed
	// LowBitUnknownMapping means the interface uses an address mapping the
	// planner does not recognize, so it fell back to the granularity.
	LowBitUnknownMapping
)

func (s LowBitSource) String() string {
	switch s {
	case LowBitFromGranularity:
		return "granularity"
	case LowBitFromRowBuffer:
		return "row-buffer"
	case LowBitFromBankBuffer:
		return "bank-buffer"
	case LowBitFixed:
		return "fixed"
	case LowBitUnknownMapping:
		return "unknown-mapping"
	default:
		return fmt.Sprintf("LowBitSource(%d)", int(s))
	}
}

// ChannelDescriptor is the address range that one channel serves.
//
// A single channel (IntlvBits == 0) is a plain range: IntlvHighBit and
// XorHighBit are 0 rather than IntlvLowBit-1 and xorLowBit-1, while
// IntlvLowBit still reports the low bit the mapping would use.
type ChannelDescriptor struct {
	Start        uint64
	Size         uint64
	IntlvLowBit  uint
	IntlvHighBit uint
	IntlvBits    uint
	IntlvMatch   uint64
	XorHighBit   uint
}

// AddrRange converts the descriptor into an address range.
func (d ChannelDescriptor) AddrRange() mem.AddrRange {
	return mem.AddrRange{
		Start:        d.Start,
		Size:         d.Size,
		IntlvHighBit: d.IntlvHighBit,
		XorHighBit:   d.XorHighBit,
		IntlvBits:    d.IntlvBits,
		IntlvMatch:   d.IntlvMatch,
	}
}

// Contains tells if the channel serves the address.
func (d ChannelDescriptor) Contains(addr uint64) bool {
	return d.AddrRange().Contains(addr)
}

func (d ChannelDescriptor) String() string {
	return d.AddrRange().String()
}

// LogValue implements slog.LogValuer.
func (d ChannelDescriptor) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("range", fmt.Sprintf("[%#x:%#x]", d.Start, d.Start+d.Size)),
		slog.Uint64("intlv_low_bit", uint64(d.IntlvLowBit)),
		slog.Uint64("intlv_high_bit", uint64(d.IntlvHighBit)),
		slog.Uint64("intlv_bits", uint64(d.IntlvBits)),
		slog.Uint64("intlv_match", d.IntlvMatch),
		slog.Uint64("xor_high_bit", uint64(d.XorHighBit)),
	)
}

// A Planner splits physical ranges into equally sized, interleaved channels.
// It is a pure function of its parameters.
type Planner struct {
	numChannels int
	intlvBits   uint
	intlvSize   uint64
	xorLowBit   uint
}

// NewPlanner creates a planner for numChannels channels interleaved at
// intlvSize bytes. A non-zero xorLowBit enables XOR hashing of the channel
// selector with the bits starting at xorLowBit.
func NewPlanner(
	numChannels int,
	intlvSize uint64,
	xorLowBit uint,
) (*Planner, error) {
	if numChannels <= 0 {
		return nil, configErrorf("plan",
			"number of memory channels must be positive, got %d", numChannels)
	}

	intlvBits, ok := log2(uint64(numChannels))
	if !ok {
		return nil, configErrorf("plan",
			"number of memory channels must be a power of 2, got %d",
			numChannels)
	}

	if _, ok := log2(intlvSize); !ok {
		return nil, configErrorf("plan",
			"interleaving granularity must be a power of 2, got %d", intlvSize)
	}

	p := &Planner{
		numChannels: numChannels,
		intlvBits:   uint(intlvBits),
		intlvSize:   intlvSize,
		xorLowBit:   xorLowBit,
	}

	return p, nil
}

// NumChannels returns the number of channels per range.
func (p *Planner) NumChannels() int {
	return p.numChannels
}

// IntlvBits returns the number of address bits that select a channel.
func (p *Planner) IntlvBits() uint {
	return p.intlvBits
}

// IntlvSize returns the interleaving granularity in bytes.
func (p *Planner) IntlvSize() uint64 {
	return p.intlvSize
}

// IntlvLowBit returns the lowest channel-selection bit for an interface.
//
// By default the channels interleave right above the granularity. Interfaces
// whose address mapping puts the channel bits above the column or buffer bits
// interleave at the row buffer or bank buffer size instead, so that a whole
// buffer is served by one channel.
func (p *Planner) IntlvLowBit(kind memintf.Kind) (uint, LowBitSource, error) {
	low, _ := log2(p.intlvSize)

	switch k := kind.(type) {
	case memintf.DRAM:
		switch k.AddrMapping {
		case memintf.RoRaBaChCo:
			rowBits, ok := log2(k.RowBufferSize())
			if !ok {
				return 0, 0, configErrorf("plan",
					"row buffer size %d is not a power of 2",
					k.RowBufferSize())
			}

			return uint(rowBits), LowBitFromRowBuffer, nil
		case memintf.RoRaChCoBaCo:
			return roRaChCoBaCoIntlvLowBit, LowBitFixed, nil
		}

		if !k.AddrMapping.Known() {
			return uint(low), LowBitUnknownMapping, nil
		}
	case memintf.NVM:
		if k.AddrMapping == memintf.RoRaBaChCo {
			bufBits, ok := log2(k.PerBankBufferSize)
			if !ok {
				return 0, 0, configErrorf("plan",
					"per-bank buffer size %d is not a power of 2",
					k.PerBankBufferSize)
			}

			return uint(bufBits), LowBitFromBankBuffer, nil
		}

		if !k.AddrMapping.Known() {
			return uint(low), LowBitUnknownMapping, nil
		}
	case memintf.Simple:
	case nil:
		return 0, 0, configErrorf("plan", "memory interface kind is missing")
	}

	return uint(low), LowBitFromGranularity, nil
}

// PlanChannel computes the range served by channel i of range r.
func (p *Planner) PlanChannel(
	r mem.AddrRange,
	i int,
	kind memintf.Kind,
) (ChannelDescriptor, error) {
	d, _, err := p.planChannel(r, i, kind)
	return d, err
}

func (p *Planner) planChannel(
	r mem.AddrRange,
	i int,
	kind memintf.Kind,
) (ChannelDescriptor, LowBitSource, error) {
	if err := r.Validate(); err != nil {
		return ChannelDescriptor{}, 0,
			wrapConfigError("plan", err, "invalid memory range")
	}

	if r.Interleaved() {
		return ChannelDescriptor{}, 0, configErrorf("plan",
			"memory range %s is already interleaved", r)
	}

	if i < 0 || i >= p.numChannels {
		return ChannelDescriptor{}, 0, configErrorf("plan",
			"channel %d out of [0, %d)", i, p.numChannels)
	}

	low, src, err := p.IntlvLowBit(kind)
	if err != nil {
		return ChannelDescriptor{}, 0, err
	}

	d := ChannelDescriptor{
		Start:       r.Start,
		Size:        r.Size,
		IntlvLowBit: low,
		IntlvBits:   p.intlvBits,
		IntlvMatch:  uint64(i),
	}

	if p.intlvBits > 0 {
		d.IntlvHighBit = low + p.intlvBits - 1

		if p.xorLowBit != 0 {
			d.XorHighBit = p.xorLowBit + p.intlvBits - 1
		}
	}

	if err := d.AddrRange().Validate(); err != nil {
		return ChannelDescriptor{}, 0,
			wrapConfigError("plan", err, "channel %d of %s", i, r)
	}

	return d, src, nil
}

// PlanRange computes the ranges of all the channels of range r, in channel
// order.
func (p *Planner) PlanRange(
	r mem.AddrRange,
	kind memintf.Kind,
) ([]ChannelDescriptor, error) {
	ds := make([]ChannelDescriptor, 0, p.numChannels)

	for i := 0; i < p.numChannels; i++ {
		d, err := p.PlanChannel(r, i, kind)
		if err != nil {
			return nil, err
		}

		ds = append(ds, d)
	}

	return ds, nil
}

// PlanChannel computes the range served by channel i when range r is split
// into n channels interleaved at intlvSize bytes.
func PlanChannel(
	r mem.AddrRange,
	i, n int,
	intlvSize uint64,
	xorLowBit uint,
	kind memintf.Kind,
) (ChannelDescriptor, error) {
	p, err := NewPlanner(n, intlvSize, xorLowBit)
	if err != nil {
		return ChannelDescriptor{}, err
	}

	return p.PlanChannel(r, i, kind)
}

// log2 returns the log2 of a number. It also returns false if it is not a log2
// number.
func log2(n uint64) (uint64, bool) {
	oneCount := 0
	onePos := uint64(0)

	for i := uint64(0); i < 64; i++ {
		if n&(1<<i) > 0 {
			onePos = i
			oneCount++
		}
	}

	return onePos, oneCount == 1
}
