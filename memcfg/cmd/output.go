package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/sarchlab/memcfg/mem/mem"
	"github.com/sarchlab/memcfg/mem/memconfig"
	"github.com/sarchlab/memcfg/system"
	"gopkg.in/yaml.v3"
)

type planSummary struct {
	System         string           `json:"system" yaml:"system"`
	TotalSize      string           `json:"total_size" yaml:"total_size"`
	CacheLineSize  uint64           `json:"cache_line_size" yaml:"cache_line_size"`
	Ranges         []string         `json:"ranges" yaml:"ranges"`
	Controllers    []ctrlSummary    `json:"controllers,omitempty" yaml:"controllers,omitempty"`
	ExternalMemory *externalSummary `json:"external_memory,omitempty" yaml:"external_memory,omitempty"`
	PIMProcessors  []pimSummary     `json:"pim_processors,omitempty" yaml:"pim_processors,omitempty"`
	Channels       []channelSummary `json:"channels,omitempty" yaml:"channels,omitempty"`
}

type ctrlSummary struct {
	Name   string   `json:"name" yaml:"name"`
	ID     string   `json:"id" yaml:"id"`
	Kind   string   `json:"kind" yaml:"kind"`
	DRAM   string   `json:"dram,omitempty" yaml:"dram,omitempty"`
	NVM    string   `json:"nvm,omitempty" yaml:"nvm,omitempty"`
	Port   string   `json:"port" yaml:"port"`
	Ranges []string `json:"ranges" yaml:"ranges"`
}

type channelSummary struct {
	Range        string `json:"range" yaml:"range"`
	IntlvLowBit  uint   `json:"intlv_low_bit" yaml:"intlv_low_bit"`
	IntlvHighBit uint   `json:"intlv_high_bit" yaml:"intlv_high_bit"`
	IntlvBits    uint   `json:"intlv_bits" yaml:"intlv_bits"`
	IntlvMatch   uint64 `json:"intlv_match" yaml:"intlv_match"`
	XorHighBit   uint   `json:"xor_high_bit" yaml:"xor_high_bit"`
}

type externalSummary struct {
	Name     string `json:"name" yaml:"name"`
	PortType string `json:"port_type" yaml:"port_type"`
	PortData string `json:"port_data" yaml:"port_data"`
}

type pimSummary struct {
	Name       string `json:"name" yaml:"name"`
	ICachePort int    `json:"icache_port" yaml:"icache_port"`
	DCachePort int    `json:"dcache_port" yaml:"dcache_port"`
}

func summarize(sys *system.System, res *memconfig.Result) planSummary {
	s := planSummary{
		System:        sys.Name,
		TotalSize:     mem.FormatSize(sys.TotalMemSize()),
		CacheLineSize: sys.CacheLineSize,
	}

	for _, r := range sys.MemRanges {
		s.Ranges = append(s.Ranges, r.String())
	}

	for _, ctrl := range res.MemCtrls {
		c := ctrlSummary{
			Name: ctrl.Name(),
			ID:   ctrl.ID,
			Kind: ctrl.Kind.String(),
			Port: fmt.Sprintf("%s[%d]", ctrl.Xbar, ctrl.Port),
		}

		if ctrl.DRAM != nil {
			c.DRAM = ctrl.DRAM.TypeName
		}

		if ctrl.NVM != nil {
			c.NVM = ctrl.NVM.TypeName
		}

		for _, r := range ctrl.AddrRanges() {
			c.Ranges = append(c.Ranges, r.String())
		}

		s.Controllers = append(s.Controllers, c)
	}

	for _, d := range res.Channels {
		s.Channels = append(s.Channels, channelSummary{
			Range:        d.String(),
			IntlvLowBit:  d.IntlvLowBit,
			IntlvHighBit: d.IntlvHighBit,
			IntlvBits:    d.IntlvBits,
			IntlvMatch:   d.IntlvMatch,
			XorHighBit:   d.XorHighBit,
		})
	}

	if ext := res.ExternalMemory; ext != nil {
		s.ExternalMemory = &externalSummary{
			Name:     ext.Name(),
			PortType: ext.PortType,
			PortData: ext.PortData,
		}
	}

	for _, p := range res.PIMProcessors {
		s.PIMProcessors = append(s.PIMProcessors, pimSummary{
			Name:       p.Name(),
			ICachePort: p.ICachePort,
			DCachePort: p.DCachePort,
		})
	}

	return s
}

func writePlan(
	w io.Writer,
	format string,
	sys *system.System,
	res *memconfig.Result,
) error {
	s := summarize(sys, res)

	switch format {
	case "text":
		return writePlanText(w, s)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")

		return enc.Encode(s)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)

		if err := enc.Encode(s); err != nil {
			return err
		}

		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func writePlanText(w io.Writer, s planSummary) error {
	fmt.Fprintf(w, "System %s: %s in %s, cache line %d B\n",
		s.System, s.TotalSize, strings.Join(s.Ranges, ", "), s.CacheLineSize)

	if s.ExternalMemory != nil {
		fmt.Fprintf(w, "External memory %s: %s (%s)\n",
			s.ExternalMemory.Name, s.ExternalMemory.PortType,
			s.ExternalMemory.PortData)
	}

	if len(s.Controllers) > 0 {
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "CONTROLLER\tKIND\tDRAM\tNVM\tPORT\tRANGES")

		for _, c := range s.Controllers {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
				c.Name, c.Kind, dash(c.DRAM), dash(c.NVM), c.Port,
				strings.Join(c.Ranges, "; "))
		}

		if err := tw.Flush(); err != nil {
			return err
		}
	}

	for _, p := range s.PIMProcessors {
		fmt.Fprintf(w, "PIM processor %s: ports %d, %d\n",
			p.Name, p.ICachePort, p.DCachePort)
	}

	return nil
}

func dash(s string) string {
	if s == "" {
		return "-"
	}

	return s
}
