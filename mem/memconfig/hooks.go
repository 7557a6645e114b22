package memconfig

import (
	"log/slog"

	"github.com/sarchlab/memcfg/sim/hooking"
)

// HookPosChannelPlanned marks that the range of a channel is decided. The item
// is the ChannelDescriptor and the detail is a ChannelPlannedDetail.
var HookPosChannelPlanned = &hooking.HookPos{Name: "channel planned"}

// HookPosUnknownAddrMapping marks that an interface uses an address mapping the
// planner does not recognize. The item is the memory type name and the detail
// is the mapping.
var HookPosUnknownAddrMapping = &hooking.HookPos{
	Name:  "unknown address mapping, interleaving at the granularity",
	Level: slog.LevelWarn,
}

// HookPosCtrlCreated marks the creation of a memory controller. The item is the
// *MemCtrl.
var HookPosCtrlCreated = &hooking.HookPos{Name: "memory controller created"}

// HookPosCtrlConnected marks the connection of a memory controller to a
// crossbar. The item is the *MemCtrl.
var HookPosCtrlConnected = &hooking.HookPos{Name: "memory controller connected"}

// HookPosExternalMemory marks that an external memory replaces the
// controllers. The item is the *system.ExternalSlave.
var HookPosExternalMemory = &hooking.HookPos{Name: "external memory connected"}

// HookPosPIMProcessor marks the placement of a PIM processor. The item is the
// *system.PIMProcessor.
var HookPosPIMProcessor = &hooking.HookPos{Name: "PIM processor placed"}

// ChannelPlannedDetail describes where a planned channel comes from.
type ChannelPlannedDetail struct {
	TypeName   string
	Tech       string
	RangeIndex int
	Source     LowBitSource
}

// LogValue implements slog.LogValuer.
func (d ChannelPlannedDetail) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("type", d.TypeName),
		slog.String("tech", d.Tech),
		slog.Int("range", d.RangeIndex),
		slog.String("low_bit_source", d.Source.String()),
	)
}
