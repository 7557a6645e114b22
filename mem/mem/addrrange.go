package mem

import (
	"errors"
	"fmt"
)

// AddrRange is a range of physical addresses. A range can be interleaved, in
// which case it only holds the addresses whose interleaving bits select the
// IntlvMatch value.
//
// The interleaving bits are IntlvBits consecutive bits that end at
// IntlvHighBit. When XorHighBit is not zero, the selector is the interleaving
// bits XORed with IntlvBits bits that end at XorHighBit.
type AddrRange struct {
	Start        uint64
	Size         uint64
	IntlvHighBit uint
	XorHighBit   uint
	IntlvBits    uint
	IntlvMatch   uint64
}

// NewAddrRange creates a plain, non-interleaved range.
func NewAddrRange(start, size uint64) AddrRange {
	return AddrRange{Start: start, Size: size}
}

// End returns the first address after the range.
func (r AddrRange) End() uint64 {
	return r.Start + r.Size
}

// Interleaved tells if the range only holds part of its addresses.
func (r AddrRange) Interleaved() bool {
	return r.IntlvBits > 0
}

// Hashed tells if the interleaving selector is XOR-hashed.
func (r AddrRange) Hashed() bool {
	return r.Interleaved() && r.XorHighBit != 0
}

// IntlvLowBit returns the position of the lowest interleaving bit.
func (r AddrRange) IntlvLowBit() uint {
	if !r.Interleaved() {
		return 0
	}

	return r.IntlvHighBit - r.IntlvBits + 1
}

// XorLowBit returns the position of the lowest hashing bit, or 0 if hashing is
// disabled.
func (r AddrRange) XorLowBit() uint {
	if !r.Hashed() {
		return 0
	}

	return r.XorHighBit - r.IntlvBits + 1
}

// NumStripes returns the number of ranges that share the same start and size
// and differ only in IntlvMatch.
func (r AddrRange) NumStripes() uint64 {
	return 1 << r.IntlvBits
}

// Granularity returns the number of consecutive bytes that always belong to
// the same stripe.
func (r AddrRange) Granularity() uint64 {
	if !r.Interleaved() {
		return r.Size
	}

	low := r.IntlvLowBit()
	if r.Hashed() && r.XorLowBit() < low {
		low = r.XorLowBit()
	}

	return 1 << low
}

// Validate checks the internal consistency of the range.
func (r AddrRange) Validate() error {
	if r.Size == 0 {
		return errors.New("address range size must not be 0")
	}

	if r.End() < r.Start {
		return fmt.Errorf("address range %s overflows", r)
	}

	if !r.Interleaved() {
		return nil
	}

	if r.IntlvBits > r.IntlvHighBit+1 || r.IntlvHighBit > 63 {
		return fmt.Errorf("interleaving bits [%d, %d] out of bound",
			int(r.IntlvHighBit)-int(r.IntlvBits)+1, r.IntlvHighBit)
	}

	if r.IntlvMatch >= r.NumStripes() {
		return fmt.Errorf("interleaving match %d does not fit in %d bits",
			r.IntlvMatch, r.IntlvBits)
	}

	if r.XorHighBit != 0 {
		if r.XorHighBit > 63 || r.XorHighBit < r.IntlvBits-1 {
			return fmt.Errorf("hashing bit %d out of bound", r.XorHighBit)
		}

		if r.XorLowBit() <= r.IntlvHighBit {
			return fmt.Errorf(
				"hashing bits [%d, %d] overlap interleaving bits [%d, %d]",
				r.XorLowBit(), r.XorHighBit, r.IntlvLowBit(), r.IntlvHighBit)
		}
	}

	return nil
}

// Select returns the stripe index of an address, regardless of whether the
// address is within the range bounds.
func (r AddrRange) Select(addr uint64) uint64 {
	if !r.Interleaved() {
		return 0
	}

	mask := r.NumStripes() - 1
	sel := (addr >> r.IntlvLowBit()) & mask

	if r.Hashed() {
		sel ^= (addr >> r.XorLowBit()) & mask
	}

	return sel
}

// Contains tells if the address is held by the range.
func (r AddrRange) Contains(addr uint64) bool {
	if addr < r.Start || addr >= r.End() {
		return false
	}

	return r.Select(addr) == r.IntlvMatch
}

// Intersects tells if two ranges may hold a common address. Ranges that
// stripe the same region with the same bits but different match values do not
// intersect.
func (r AddrRange) Intersects(o AddrRange) bool {
	if r.Start >= o.End() || o.Start >= r.End() {
		return false
	}

	if r.Interleaved() && o.Interleaved() &&
		r.IntlvHighBit == o.IntlvHighBit &&
		r.IntlvBits == o.IntlvBits &&
		r.XorHighBit == o.XorHighBit {
		return r.IntlvMatch == o.IntlvMatch
	}

	return true
}

// RemoveIntlvBits squeezes out the interleaving bits of an address, giving the
// dense address seen by the owner of the stripe.
func (r AddrRange) RemoveIntlvBits(addr uint64) uint64 {
	if !r.Interleaved() {
		return addr
	}

	low := r.IntlvLowBit()
	lowMask := uint64(1)<<low - 1

	return addr&lowMask | (addr>>(r.IntlvHighBit+1))<<low
}

// AddIntlvBits is the inverse of RemoveIntlvBits. It re-inserts the
// interleaving bits so that the result selects IntlvMatch.
func (r AddrRange) AddIntlvBits(addr uint64) uint64 {
	if !r.Interleaved() {
		return addr
	}

	low := r.IntlvLowBit()
	lowMask := uint64(1)<<low - 1
	out := addr&lowMask | (addr>>low)<<(r.IntlvHighBit+1)

	bits := r.IntlvMatch
	if r.Hashed() {
		mask := r.NumStripes() - 1
		bits ^= (out >> r.XorLowBit()) & mask
	}

	return out | bits<<low
}

// String prints the range the way memory configuration dumps do, e.g.
// "[0x0:0x80000000] i2:7 m1 x21".
func (r AddrRange) String() string {
	s := fmt.Sprintf("[%#x:%#x]", r.Start, r.End())
	if !r.Interleaved() {
		return s
	}

	s += fmt.Sprintf(" i%d:%d m%d", r.IntlvBits, r.IntlvLowBit(), r.IntlvMatch)
	if r.Hashed() {
		s += fmt.Sprintf(" x%d", r.XorLowBit())
	}

	return s
}
