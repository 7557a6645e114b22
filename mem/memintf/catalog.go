package memintf

import (
	"fmt"
	"sort"
	"time"
)

// A Catalog maps memory type names to interface descriptions.
type Catalog struct {
	kinds map[string]Kind
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{kinds: make(map[string]Kind)}
}

// Register adds a memory type. Registering the same name twice replaces the
// previous description.
func (c *Catalog) Register(name string, k Kind) {
	if name == "" {
		panic("memory type name must not be empty")
	}

	c.kinds[name] = k
}

// Get finds a memory type by name.
func (c *Catalog) Get(name string) (Kind, error) {
	k, ok := c.kinds[name]
	if !ok {
		return nil, fmt.Errorf("unknown memory type %q", name)
	}

	return k, nil
}

// Names returns all the registered names in alphabetical order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.kinds))
	for n := range c.kinds {
		names = append(names, n)
	}

	sort.Strings(names)

	return names
}

const (
	kib = uint64(1) << 10
	mib = uint64(1) << 20
	gib = uint64(1) << 30
)

// DefaultCatalog returns the memory types shipped with memcfg.
func DefaultCatalog() *Catalog {
	c := NewCatalog()

	c.Register("SimpleMemory", Simple{
		Latency:   30 * time.Nanosecond,
		Bandwidth: 12800 * mib,
	})

	c.Register("DDR3_1600_8x8", DRAM{
		DeviceRowBufferSize: 1 * kib,
		DevicesPerRank:      8,
		RanksPerChannel:     2,
		BanksPerRank:        8,
		DeviceSize:          512 * mib,
		AddrMapping:         RoRaBaChCo,
	})
	c.Register("DDR3_2133_8x8", DRAM{
		DeviceRowBufferSize: 1 * kib,
		DevicesPerRank:      8,
		RanksPerChannel:     2,
		BanksPerRank:        8,
		DeviceSize:          512 * mib,
		AddrMapping:         RoRaBaChCo,
	})
	c.Register("DDR4_2400_16x4", DRAM{
		DeviceRowBufferSize: 512,
		DevicesPerRank:      16,
		RanksPerChannel:     2,
		BanksPerRank:        16,
		DeviceSize:          1 * gib,
		AddrMapping:         RoRaBaChCo,
	})
	c.Register("DDR4_2400_8x8", DRAM{
		DeviceRowBufferSize: 1 * kib,
		DevicesPerRank:      8,
		RanksPerChannel:     2,
		BanksPerRank:        16,
		DeviceSize:          1 * gib,
		AddrMapping:         RoRaBaChCo,
	})
	c.Register("DDR4_2400_4x16", DRAM{
		DeviceRowBufferSize: 2 * kib,
		DevicesPerRank:      4,
		RanksPerChannel:     1,
		BanksPerRank:        8,
		DeviceSize:          1 * gib,
		AddrMapping:         RoRaBaChCo,
	})
	c.Register("DDR4_2400_16x4_PIM", DRAM{
		DeviceRowBufferSize: 512,
		DevicesPerRank:      16,
		RanksPerChannel:     2,
		BanksPerRank:        16,
		DeviceSize:          1 * gib,
		AddrMapping:         RoRaChCoBaCo,
	})
	c.Register("LPDDR3_1600_1x32", DRAM{
		DeviceRowBufferSize: 4 * kib,
		DevicesPerRank:      1,
		RanksPerChannel:     1,
		BanksPerRank:        8,
		DeviceSize:          512 * mib,
		AddrMapping:         RoRaBaCoCh,
	})
	c.Register("LPDDR5_5500_1x16_BG_BL32", DRAM{
		DeviceRowBufferSize: 2 * kib,
		DevicesPerRank:      1,
		RanksPerChannel:     1,
		BanksPerRank:        16,
		DeviceSize:          512 * mib,
		AddrMapping:         RoRaBaCoCh,
	})
	c.Register("GDDR5_4000_2x32", DRAM{
		DeviceRowBufferSize: 2 * kib,
		DevicesPerRank:      2,
		RanksPerChannel:     1,
		BanksPerRank:        16,
		DeviceSize:          128 * mib,
		AddrMapping:         RoRaBaCoCh,
	})
	c.Register("HBM_1000_4H_1x128", DRAM{
		DeviceRowBufferSize: 2 * kib,
		DevicesPerRank:      2,
		RanksPerChannel:     2,
		BanksPerRank:        16,
		DeviceSize:          256 * mib,
		AddrMapping:         RoRaBaCoCh,
	})
	c.Register("WideIO_200_1x128", DRAM{
		DeviceRowBufferSize: 4 * kib,
		DevicesPerRank:      1,
		RanksPerChannel:     1,
		BanksPerRank:        4,
		DeviceSize:          1 * gib,
		AddrMapping:         RoRaBaCoCh,
	})
	c.Register("HMC_2500_1x32", DRAM{
		DeviceRowBufferSize: 256,
		DevicesPerRank:      1,
		RanksPerChannel:     1,
		BanksPerRank:        2,
		DeviceSize:          256 * mib,
		AddrMapping:         RoCoRaBaCh,
	})

	c.Register("NVM_2400_1x64", NVM{
		PerBankBufferSize: 64,
		RanksPerChannel:   1,
		BanksPerRank:      16,
		DeviceSize:        8 * gib,
		AddrMapping:       RoRaBaChCo,
	})

	return c
}
