package system

import (
	"fmt"

	"github.com/sarchlab/memcfg/mem/mem"
	"github.com/sarchlab/memcfg/sim/naming"
)

// MemSidePeer is a component that can be attached to the memory side of a
// crossbar. It claims the address ranges it serves.
type MemSidePeer interface {
	Name() string
	AddrRanges() []mem.AddrRange
}

// CPUSidePeer is a component that sends requests into a crossbar.
type CPUSidePeer interface {
	Name() string
}

// A Router forwards an address to one of the peers behind it.
type Router interface {
	Route(addr uint64) (MemSidePeer, error)
}

// Crossbar connects requesters on its CPU side to memories on its memory side.
type Crossbar struct {
	name    string
	memSide []MemSidePeer
	cpuSide []CPUSidePeer
}

// NewCrossbar creates a crossbar with no ports.
func NewCrossbar(name string) *Crossbar {
	return &Crossbar{name: name}
}

// Name returns the name of the crossbar.
func (x *Crossbar) Name() string {
	return x.name
}

// ConnectMemSide attaches a peer to a new memory-side port and returns the
// port index. Peers whose ranges intersect the ranges of the peers already
// attached are rejected.
func (x *Crossbar) ConnectMemSide(p MemSidePeer) (int, error) {
	x.memSide = append(x.memSide, p)

	if _, err := x.buildIndex(); err != nil {
		x.memSide = x.memSide[:len(x.memSide)-1]
		return 0, fmt.Errorf("cannot connect %s to %s: %w",
			p.Name(), x.name, err)
	}

	return len(x.memSide) - 1, nil
}

// ConnectCPUSide attaches a requester to a new CPU-side port and returns the
// port index.
func (x *Crossbar) ConnectCPUSide(p CPUSidePeer) int {
	x.cpuSide = append(x.cpuSide, p)
	return len(x.cpuSide) - 1
}

// MemSidePeers returns the peers in port order.
func (x *Crossbar) MemSidePeers() []MemSidePeer {
	return x.memSide
}

// CPUSidePeers returns the requesters in port order.
func (x *Crossbar) CPUSidePeers() []CPUSidePeer {
	return x.cpuSide
}

// MemSidePortName returns the name of a memory-side port.
func (x *Crossbar) MemSidePortName(i int) mem.RemotePort {
	return mem.RemotePort(naming.BuildNameWithIndex(x.name, "MemSidePort", i))
}

// AddrRanges returns the ranges of all the memory-side peers, which makes a
// crossbar usable as the peer of another crossbar.
func (x *Crossbar) AddrRanges() []mem.AddrRange {
	var ranges []mem.AddrRange
	for _, p := range x.memSide {
		ranges = append(ranges, p.AddrRanges()...)
	}

	return ranges
}

// Route finds the memory that serves the address. Routers on the way are
// followed until a memory is reached.
func (x *Crossbar) Route(addr uint64) (MemSidePeer, error) {
	index, err := x.buildIndex()
	if err != nil {
		return nil, err
	}

	p, _, found := index.Lookup(addr)
	if !found {
		return nil, fmt.Errorf("%s: no memory serves address %#x", x.name, addr)
	}

	if r, ok := p.(Router); ok {
		return r.Route(addr)
	}

	return p, nil
}

// PortMapper returns a mapper from addresses to the memory-side ports that
// serve them.
func (x *Crossbar) PortMapper() (*mem.RangeAddressPortMapper, error) {
	mapper := mem.NewRangeAddressPortMapper()

	for i, p := range x.memSide {
		for _, r := range p.AddrRanges() {
			if err := mapper.AddRange(r, x.MemSidePortName(i)); err != nil {
				return nil, fmt.Errorf("%s: %w", x.name, err)
			}
		}
	}

	return mapper, nil
}

func (x *Crossbar) buildIndex() (*mem.RangeIndex[MemSidePeer], error) {
	index := mem.NewRangeIndex[MemSidePeer]()

	for _, p := range x.memSide {
		for _, r := range p.AddrRanges() {
			if err := index.Insert(r, p); err != nil {
				return nil, err
			}
		}
	}

	return index, nil
}
