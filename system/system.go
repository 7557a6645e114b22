// Package system models the simulated machine that memory controllers are
// configured into: its physical memory ranges, crossbars, and the components
// hanging off them.
package system

import (
	"fmt"

	"github.com/sarchlab/memcfg/mem/mem"
	"github.com/sarchlab/memcfg/sim/naming"
)

// Workload holds the workload settings that the memory configuration touches.
type Workload struct {
	// AddrCheck makes the workload verify that every access targets a
	// configured memory range.
	AddrCheck bool
}

// Subsystem groups crossbars and the memories hanging off them.
type Subsystem struct {
	Name           string
	Xbars          []*Crossbar
	Bridges        []*Bridge
	MemCtrls       []MemSidePeer
	ExternalMemory *ExternalSlave
}

// System is the root of the simulated machine.
type System struct {
	Subsystem

	MemRanges     []mem.AddrRange
	CacheLineSize uint64
	MemBus        *Crossbar
	Workload      Workload

	HMCHost *Subsystem
	HMCDev  *Subsystem

	PIMType       string
	PIMProcessors []*PIMProcessor
}

// New creates a system with a memory bus and the given physical ranges. The
// name must be a valid component name.
func New(name string, cacheLineSize uint64, ranges ...mem.AddrRange) *System {
	naming.NameMustBeValid(name)

	membus := NewCrossbar(naming.BuildName(name, "MemBus"))

	return &System{
		Subsystem: Subsystem{
			Name:  name,
			Xbars: []*Crossbar{membus},
		},
		MemRanges:     ranges,
		CacheLineSize: cacheLineSize,
		MemBus:        membus,
		Workload:      Workload{AddrCheck: true},
	}
}

// Validate checks that the system can host a memory configuration.
func (s *System) Validate() error {
	if s.MemBus == nil {
		return fmt.Errorf("system %s has no memory bus", s.Name)
	}

	if len(s.MemRanges) == 0 {
		return fmt.Errorf("system %s has no memory ranges", s.Name)
	}

	if s.CacheLineSize == 0 {
		return fmt.Errorf("system %s has no cache line size", s.Name)
	}

	index := mem.NewRangeIndex[int]()
	for i, r := range s.MemRanges {
		if r.Interleaved() {
			return fmt.Errorf("memory range %s must not be interleaved", r)
		}

		if err := index.Insert(r, i); err != nil {
			return fmt.Errorf("system %s: %w", s.Name, err)
		}
	}

	return nil
}

// TotalMemSize returns the number of bytes in all the memory ranges.
func (s *System) TotalMemSize() uint64 {
	total := uint64(0)
	for _, r := range s.MemRanges {
		total += r.Size
	}

	return total
}

// FindMemCtrl returns the memory controller that has the given name, looking
// into the HMC device as well.
func (s *System) FindMemCtrl(name string) (MemSidePeer, bool) {
	subsystems := []*Subsystem{&s.Subsystem}
	if s.HMCDev != nil {
		subsystems = append(subsystems, s.HMCDev)
	}

	for _, sub := range subsystems {
		for _, c := range sub.MemCtrls {
			if c.Name() == name {
				return c, true
			}
		}
	}

	return nil, false
}

// AllMemCtrls returns the controllers of the system and of its HMC device.
func (s *System) AllMemCtrls() []MemSidePeer {
	ctrls := append([]MemSidePeer{}, s.MemCtrls...)
	if s.HMCDev != nil {
		ctrls = append(ctrls, s.HMCDev.MemCtrls...)
	}

	return ctrls
}
