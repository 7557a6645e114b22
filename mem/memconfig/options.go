package memconfig

import "github.com/sarchlab/memcfg/mem/mem"

// HMCMemType is the memory type that builds a Hybrid Memory Cube instead of
// attaching the controllers to the memory bus.
const HMCMemType = "HMC_2500_1x32"

// PIM processor placements.
const (
	PIMTypeKernel = "kernel"
	PIMTypeCPU    = "cpu"
	PIMTypeHybrid = "hybrid"
)

// Options holds every setting that the memory configuration reads. Start from
// DefaultOptions and override fields.
type Options struct {
	// MemType names the DRAM (or simple memory) type from the catalog.
	MemType string `yaml:"mem_type"`
	// NVMType names the NVM type from the catalog.
	NVMType string `yaml:"nvm_type"`

	// MemChannels is the number of channels per memory range. It must be a
	// power of 2.
	MemChannels int `yaml:"mem_channels"`
	// MemRanks overrides the ranks per channel of DRAM interfaces when
	// positive.
	MemRanks int `yaml:"mem_ranks"`
	// NVMRanks overrides the ranks per channel of NVM interfaces when
	// positive.
	NVMRanks int `yaml:"nvm_ranks"`
	// HybridChannel makes NVM interfaces share the controllers of DRAM
	// interfaces instead of getting their own.
	HybridChannel bool `yaml:"hybrid_channel"`
	// DRAMPowerdown enables the low-power states of DRAM interfaces.
	DRAMPowerdown bool `yaml:"enable_dram_powerdown"`

	// MemChannelsIntlv is the channel interleaving granularity in bytes. The
	// cache line size is used instead if it is larger.
	MemChannelsIntlv uint64 `yaml:"mem_channels_intlv"`
	// XORLowBit enables XOR hashing of the channel selector with the address
	// bits starting at this position. 0 disables hashing.
	XORLowBit uint `yaml:"xor_low_bit"`

	// DRAMAddrMapping and NVMAddrMapping override the address mapping of the
	// selected types when not empty.
	DRAMAddrMapping string `yaml:"dram_addr_mapping"`
	NVMAddrMapping  string `yaml:"nvm_addr_mapping"`

	// TLMMemory connects a SystemC/TLM memory instead of controllers.
	TLMMemory string `yaml:"tlm_memory"`
	// ExternalMemorySystem connects an external memory simulator instead of
	// controllers.
	ExternalMemorySystem string `yaml:"external_memory_system"`
	// ElasticTraceEn requires a simple memory, whose latency is forced to
	// 1ns.
	ElasticTraceEn bool `yaml:"elastic_trace_en"`

	// HMCDevVaultSize is the capacity of each HMC vault.
	HMCDevVaultSize uint64 `yaml:"hmc_dev_vault_size"`

	EnablePIM        bool   `yaml:"enable_pim"`
	PIMType          string `yaml:"pim_type"`
	NumPIMProcessors int    `yaml:"num_pim_processors"`
}

// DefaultOptions returns the options used when nothing is specified. No memory
// type is selected, so at least MemType or NVMType has to be set.
func DefaultOptions() Options {
	return Options{
		MemChannels:      1,
		MemChannelsIntlv: 128,
		XORLowBit:        0,
		HMCDevVaultSize:  256 * mem.MB,
		PIMType:          PIMTypeCPU,
	}
}

// UsesHMC tells if the memory type builds a Hybrid Memory Cube.
func (o Options) UsesHMC() bool {
	return o.MemType == HMCMemType
}

// Validate checks the options that do not depend on the catalog or on the
// system.
func (o Options) Validate() error {
	if o.MemType == "" && o.NVMType == "" {
		return configErrorf("options",
			"must have option for either mem-type or nvm-type, or both")
	}

	if o.MemChannels <= 0 {
		return configErrorf("options",
			"number of memory channels must be positive, got %d",
			o.MemChannels)
	}

	if _, ok := log2(uint64(o.MemChannels)); !ok {
		return configErrorf("options",
			"number of memory channels must be a power of 2, got %d",
			o.MemChannels)
	}

	if o.MemChannelsIntlv == 0 {
		return configErrorf("options",
			"channel interleaving granularity must not be 0")
	}

	if o.MemRanks < 0 || o.NVMRanks < 0 {
		return configErrorf("options", "number of ranks must not be negative")
	}

	if o.HybridChannel && (o.MemType == "" || o.NVMType == "") {
		return configErrorf("options",
			"hybrid channel requires both mem-type and nvm-type")
	}

	if o.UsesHMC() && o.HMCDevVaultSize == 0 {
		return configErrorf("options", "HMC vault size must not be 0")
	}

	return o.validatePIM()
}

func (o Options) validatePIM() error {
	if !o.EnablePIM {
		return nil
	}

	switch o.PIMType {
	case PIMTypeKernel, PIMTypeCPU, PIMTypeHybrid:
	default:
		return configErrorf("options", "unknown PIM type %q", o.PIMType)
	}

	if o.NumPIMProcessors <= 0 {
		return configErrorf("options",
			"the number of PIM processors cannot be zero while enabling PIM")
	}

	return nil
}
