package cmd

import (
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/sarchlab/memcfg/mem/mem"
	"github.com/sarchlab/memcfg/mem/memconfig"
	"github.com/sarchlab/memcfg/sim/naming"
	"github.com/sarchlab/memcfg/system"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// planConfig is everything needed to configure a system. It is loaded from a
// YAML file, the environment, and flags, in increasing priority.
type planConfig struct {
	memconfig.Options `yaml:",inline"`

	SystemName    string   `yaml:"system_name"`
	MemSize       string   `yaml:"mem_size"`
	MemRanges     []string `yaml:"mem_ranges"`
	CacheLineSize string   `yaml:"cache_line_size"`
}

func defaultPlanConfig() planConfig {
	return planConfig{
		Options:       memconfig.DefaultOptions(),
		SystemName:    "System",
		MemSize:       "512MB",
		CacheLineSize: "64",
	}
}

type flagBinding struct {
	name  string
	usage string
	apply func(cfg *planConfig, value string) error
}

func stringBinding(name, usage string, field func(*planConfig) *string) flagBinding {
	return flagBinding{
		name:  name,
		usage: usage,
		apply: func(cfg *planConfig, value string) error {
			*field(cfg) = value
			return nil
		},
	}
}

func intBinding(name, usage string, field func(*planConfig) *int) flagBinding {
	return flagBinding{
		name:  name,
		usage: usage,
		apply: func(cfg *planConfig, value string) error {
			n, err := strconv.Atoi(value)
			if err != nil {
				return err
			}

			*field(cfg) = n

			return nil
		},
	}
}

func boolBinding(name, usage string, field func(*planConfig) *bool) flagBinding {
	return flagBinding{
		name:  name,
		usage: usage,
		apply: func(cfg *planConfig, value string) error {
			b, err := strconv.ParseBool(value)
			if err != nil {
				return err
			}

			*field(cfg) = b

			return nil
		},
	}
}

func sizeBinding(name, usage string, field func(*planConfig) *uint64) flagBinding {
	return flagBinding{
		name:  name,
		usage: usage,
		apply: func(cfg *planConfig, value string) error {
			n, err := mem.ParseSize(value)
			if err != nil {
				return err
			}

			*field(cfg) = n

			return nil
		},
	}
}

// planFlags lists the flags that override the configuration. All of them are
// registered as strings, so that an unset flag can be told from a flag set to
// the zero value.
var planFlags = []flagBinding{
	stringBinding("mem-type", "Memory type of the DRAM channels.",
		func(c *planConfig) *string { return &c.MemType }),
	stringBinding("nvm-type", "Memory type of the NVM channels.",
		func(c *planConfig) *string { return &c.NVMType }),
	intBinding("mem-channels", "Number of channels per range (power of 2).",
		func(c *planConfig) *int { return &c.MemChannels }),
	intBinding("mem-ranks", "Ranks per DRAM channel. 0 keeps the type's.",
		func(c *planConfig) *int { return &c.MemRanks }),
	intBinding("nvm-ranks", "Ranks per NVM channel. 0 keeps the type's.",
		func(c *planConfig) *int { return &c.NVMRanks }),
	boolBinding("hybrid-channel", "Let NVM share the DRAM controllers.",
		func(c *planConfig) *bool { return &c.HybridChannel }),
	boolBinding("enable-dram-powerdown", "Enable DRAM low-power states.",
		func(c *planConfig) *bool { return &c.DRAMPowerdown }),
	sizeBinding("mem-channels-intlv", "Channel interleaving granularity.",
		func(c *planConfig) *uint64 { return &c.MemChannelsIntlv }),
	{
		name:  "xor-low-bit",
		usage: "Lowest address bit hashed into the channel selector. 0 disables hashing.",
		apply: func(cfg *planConfig, value string) error {
			n, err := strconv.ParseUint(value, 0, 8)
			if err != nil {
				return err
			}

			cfg.XORLowBit = uint(n)

			return nil
		},
	},
	stringBinding("dram-addr-mapping", "Override the DRAM address mapping.",
		func(c *planConfig) *string { return &c.DRAMAddrMapping }),
	stringBinding("nvm-addr-mapping", "Override the NVM address mapping.",
		func(c *planConfig) *string { return &c.NVMAddrMapping }),
	stringBinding("tlm-memory", "Use a TLM memory with this port data.",
		func(c *planConfig) *string { return &c.TLMMemory }),
	stringBinding("external-memory-system",
		"Use an external memory simulator of this port type.",
		func(c *planConfig) *string { return &c.ExternalMemorySystem }),
	boolBinding("elastic-trace-en", "Configure for elastic traces.",
		func(c *planConfig) *bool { return &c.ElasticTraceEn }),
	sizeBinding("hmc-dev-vault-size", "Capacity of an HMC vault.",
		func(c *planConfig) *uint64 { return &c.HMCDevVaultSize }),
	boolBinding("enable-pim", "Place processing-in-memory processors.",
		func(c *planConfig) *bool { return &c.EnablePIM }),
	stringBinding("pim-type", "PIM type: kernel, cpu, or hybrid.",
		func(c *planConfig) *string { return &c.PIMType }),
	intBinding("num-pim-processors", "Number of PIM processors.",
		func(c *planConfig) *int { return &c.NumPIMProcessors }),
	stringBinding("system-name", "Name of the system.",
		func(c *planConfig) *string { return &c.SystemName }),
	stringBinding("mem-size", "Size of the memory when no ranges are given.",
		func(c *planConfig) *string { return &c.MemSize }),
	{
		name:  "mem-ranges",
		usage: "Comma-separated START:SIZE memory ranges, e.g. 0:2GB,4GB:2GB.",
		apply: func(cfg *planConfig, value string) error {
			cfg.MemRanges = strings.Split(value, ",")
			return nil
		},
	},
	stringBinding("cache-line-size", "Cache line size of the system.",
		func(c *planConfig) *string { return &c.CacheLineSize }),
}

func addPlanFlags(cmd *cobra.Command) {
	cmd.Flags().String("config", "",
		"YAML file with the configuration. Flags override it.")

	for _, b := range planFlags {
		cmd.Flags().String(b.name, "", b.usage)
	}
}

// loadPlanConfig reads the configuration file given by --config and applies
// the flags that are set. Environment variables have been turned into flags
// by then.
func loadPlanConfig(cmd *cobra.Command) (planConfig, error) {
	cfg := defaultPlanConfig()

	path, _ := cmd.Flags().GetString("config")
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, errors.Wrap(err, "cannot read configuration")
		}

		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, errors.Wrapf(err, "cannot parse %s", path)
		}
	}

	for _, b := range planFlags {
		if !cmd.Flags().Changed(b.name) {
			continue
		}

		value, _ := cmd.Flags().GetString(b.name)
		if err := b.apply(&cfg, value); err != nil {
			return cfg, errors.Wrapf(err, "invalid --%s", b.name)
		}
	}

	return cfg, nil
}

// buildSystem creates the system that the memory is configured into.
func (c planConfig) buildSystem() (*system.System, error) {
	if err := naming.ValidateName(c.SystemName); err != nil {
		return nil, errors.Wrap(err, "invalid system name")
	}

	cacheLine, err := mem.ParseSize(c.CacheLineSize)
	if err != nil {
		return nil, errors.Wrap(err, "invalid cache line size")
	}

	var ranges []mem.AddrRange

	if len(c.MemRanges) == 0 {
		size, err := mem.ParseSize(c.MemSize)
		if err != nil {
			return nil, errors.Wrap(err, "invalid memory size")
		}

		ranges = append(ranges, mem.NewAddrRange(0, size))
	}

	for _, s := range c.MemRanges {
		r, err := parseRange(s)
		if err != nil {
			return nil, err
		}

		ranges = append(ranges, r)
	}

	return system.New(c.SystemName, cacheLine, ranges...), nil
}

// parseRange parses START:SIZE. Both parts accept sizes such as 4GB and hex
// numbers.
func parseRange(s string) (mem.AddrRange, error) {
	startStr, sizeStr, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return mem.AddrRange{},
			errors.Errorf("memory range %q is not START:SIZE", s)
	}

	start, err := parseAddr(startStr)
	if err != nil {
		return mem.AddrRange{}, errors.Wrapf(err, "memory range %q", s)
	}

	size, err := parseAddr(sizeStr)
	if err != nil {
		return mem.AddrRange{}, errors.Wrapf(err, "memory range %q", s)
	}

	return mem.NewAddrRange(start, size), nil
}

func parseAddr(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(strings.ToLower(s), "0x") {
		return strconv.ParseUint(s, 0, 64)
	}

	return mem.ParseSize(s)
}
