package system

import "github.com/sarchlab/memcfg/mem/mem"

// ExternalSlave is a memory that lives outside of the simulator, such as a
// SystemC/TLM model or an external memory simulator.
type ExternalSlave struct {
	name     string
	PortType string
	PortData string
	Ranges   []mem.AddrRange
}

// NewExternalSlave creates an external memory that serves the given ranges.
func NewExternalSlave(
	name, portType, portData string,
	ranges []mem.AddrRange,
) *ExternalSlave {
	return &ExternalSlave{
		name:     name,
		PortType: portType,
		PortData: portData,
		Ranges:   append([]mem.AddrRange{}, ranges...),
	}
}

// Name returns the name of the external memory.
func (e *ExternalSlave) Name() string { return e.name }

// AddrRanges returns the ranges the external memory serves.
func (e *ExternalSlave) AddrRanges() []mem.AddrRange { return e.Ranges }

// Bridge forwards requests from one crossbar into another, like a serial
// link between a host and a memory cube.
type Bridge struct {
	name       string
	Downstream *Crossbar
}

// NewBridge creates a bridge that forwards into the downstream crossbar.
func NewBridge(name string, downstream *Crossbar) *Bridge {
	return &Bridge{name: name, Downstream: downstream}
}

// Name returns the name of the bridge.
func (b *Bridge) Name() string { return b.name }

// AddrRanges returns the ranges served behind the bridge.
func (b *Bridge) AddrRanges() []mem.AddrRange {
	if b.Downstream == nil {
		return nil
	}

	return b.Downstream.AddrRanges()
}

// Route forwards the address to the downstream crossbar.
func (b *Bridge) Route(addr uint64) (MemSidePeer, error) {
	return b.Downstream.Route(addr)
}

// PIMProcessor is a processor slot placed next to memory. It issues requests
// into the memory bus through its instruction and data ports.
type PIMProcessor struct {
	name        string
	ID          int
	SwitchedOut bool
	ClockGHz    float64
	ICachePort  int
	DCachePort  int
}

// NewPIMProcessor creates a switched-out processor slot.
func NewPIMProcessor(name string, id int) *PIMProcessor {
	return &PIMProcessor{
		name:        name,
		ID:          id,
		SwitchedOut: true,
		ClockGHz:    1,
	}
}

// Name returns the name of the processor.
func (p *PIMProcessor) Name() string { return p.name }
