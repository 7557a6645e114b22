// Package memintf describes the memory technologies that a memory controller
// can drive and the catalog of named memory types.
package memintf

import "time"

// Kind is the technology of a memory interface. It is one of DRAM, NVM or
// Simple.
type Kind interface {
	// Tech returns a short name of the technology.
	Tech() string

	// Mapping returns the address mapping order of the interface. Simple
	// memories return the zero mapping.
	Mapping() AddrMapping

	isKind()
}

// DRAM describes a DRAM interface.
type DRAM struct {
	// Size of the row buffer of a single device, in bytes.
	DeviceRowBufferSize uint64
	DevicesPerRank      int
	RanksPerChannel     int
	BanksPerRank        int

	// Capacity of a single device, in bytes.
	DeviceSize  uint64
	AddrMapping AddrMapping
}

// Tech returns "dram".
func (DRAM) Tech() string { return "dram" }

// Mapping returns the address mapping order.
func (k DRAM) Mapping() AddrMapping { return k.AddrMapping }

// RowBufferSize returns the number of bytes a rank holds open at once.
func (k DRAM) RowBufferSize() uint64 {
	return k.DeviceRowBufferSize * uint64(k.DevicesPerRank)
}

func (DRAM) isKind() {}

// NVM describes a non-volatile memory interface.
type NVM struct {
	// Size of the per-bank read/write buffer, in bytes.
	PerBankBufferSize uint64
	RanksPerChannel   int
	BanksPerRank      int
	DeviceSize        uint64
	AddrMapping       AddrMapping
}

// Tech returns "nvm".
func (NVM) Tech() string { return "nvm" }

// Mapping returns the address mapping order.
func (k NVM) Mapping() AddrMapping { return k.AddrMapping }

func (NVM) isKind() {}

// Simple describes a generic fixed-latency memory.
type Simple struct {
	Latency   time.Duration
	Bandwidth uint64
}

// Tech returns "simple".
func (Simple) Tech() string { return "simple" }

// Mapping returns the zero mapping.
func (Simple) Mapping() AddrMapping { return AddrMapping{} }

func (Simple) isKind() {}

// WithAddrMapping returns a copy of the kind that uses another address
// mapping. Simple memories are returned unchanged.
func WithAddrMapping(k Kind, m AddrMapping) Kind {
	switch k := k.(type) {
	case DRAM:
		k.AddrMapping = m
		return k
	case NVM:
		k.AddrMapping = m
		return k
	default:
		return k
	}
}
