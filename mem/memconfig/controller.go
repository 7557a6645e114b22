package memconfig

import (
	"fmt"
	"time"

	"github.com/sarchlab/memcfg/mem/mem"
	"github.com/sarchlab/memcfg/mem/memintf"
)

// Interface is one channel of a memory technology, configured for the range
// it serves.
type Interface struct {
	TypeName string
	Kind     memintf.Kind
	Channel  ChannelDescriptor

	RanksPerChannel int
	EnablePowerdown bool
	Latency         time.Duration
	DeviceSize      uint64
}

func newInterface(
	typeName string,
	kind memintf.Kind,
	d ChannelDescriptor,
) *Interface {
	intf := &Interface{
		TypeName: typeName,
		Kind:     kind,
		Channel:  d,
	}

	switch k := kind.(type) {
	case memintf.DRAM:
		intf.RanksPerChannel = k.RanksPerChannel
		intf.DeviceSize = k.DeviceSize
	case memintf.NVM:
		intf.RanksPerChannel = k.RanksPerChannel
		intf.DeviceSize = k.DeviceSize
	case memintf.Simple:
		intf.Latency = k.Latency
	}

	return intf
}

// Range returns the address range of the interface.
func (i *Interface) Range() mem.AddrRange {
	return i.Channel.AddrRange()
}

// CtrlKind distinguishes plain memory controllers from heterogeneous ones that
// can drive an NVM interface.
type CtrlKind int

// Kinds of memory controllers.
const (
	CtrlKindMem CtrlKind = iota
	CtrlKindHetero
)

func (k CtrlKind) String() string {
	switch k {
	case CtrlKindMem:
		return "MemCtrl"
	case CtrlKindHetero:
		return "HeteroMemCtrl"
	default:
		return fmt.Sprintf("CtrlKind(%d)", int(k))
	}
}

// MemCtrl is a memory controller that drives a DRAM interface, an NVM
// interface, or both when they share a channel.
type MemCtrl struct {
	name string
	ID   string
	Kind CtrlKind

	DRAM *Interface
	NVM  *Interface

	// Xbar and Port tell where the controller is attached. Port is -1 until
	// the controller is connected.
	Xbar string
	Port int
}

func newMemCtrl(name, id string, kind CtrlKind) *MemCtrl {
	return &MemCtrl{
		name: name,
		ID:   id,
		Kind: kind,
		Port: -1,
	}
}

// Name returns the name of the controller.
func (c *MemCtrl) Name() string {
	return c.name
}

// AddrRanges returns the ranges of the interfaces the controller drives.
func (c *MemCtrl) AddrRanges() []mem.AddrRange {
	var ranges []mem.AddrRange

	if c.DRAM != nil {
		ranges = append(ranges, c.DRAM.Range())
	}

	if c.NVM != nil {
		ranges = append(ranges, c.NVM.Range())
	}

	return ranges
}

// AttachNVM lets the controller drive an NVM interface as well. A plain
// controller becomes a heterogeneous one.
func (c *MemCtrl) AttachNVM(nvm *Interface) {
	c.NVM = nvm
	c.Kind = CtrlKindHetero
}

func (c *MemCtrl) String() string {
	return fmt.Sprintf("%s(%s)", c.name, c.Kind)
}
