package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sarchlab/memcfg/mem/memintf"
	"github.com/spf13/cobra"
)

func newTypesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List the memory types that can be configured.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			catalog := memintf.DefaultCatalog()
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)

			fmt.Fprintln(tw, "NAME\tTECH\tMAPPING\tDETAILS")

			for _, name := range catalog.Names() {
				k, _ := catalog.Get(name)
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
					name, k.Tech(), k.Mapping(), describeKind(k))
			}

			return tw.Flush()
		},
	}
}

func describeKind(k memintf.Kind) string {
	switch k := k.(type) {
	case memintf.DRAM:
		return fmt.Sprintf("row buffer %s x %d, %d ranks, %d banks, %s devices",
			humanize.IBytes(k.DeviceRowBufferSize), k.DevicesPerRank,
			k.RanksPerChannel, k.BanksPerRank, humanize.IBytes(k.DeviceSize))
	case memintf.NVM:
		return fmt.Sprintf("bank buffer %s, %d ranks, %d banks, %s devices",
			humanize.IBytes(k.PerBankBufferSize), k.RanksPerChannel,
			k.BanksPerRank, humanize.IBytes(k.DeviceSize))
	case memintf.Simple:
		return fmt.Sprintf("latency %s, bandwidth %s/s",
			k.Latency.Round(time.Nanosecond), humanize.IBytes(k.Bandwidth))
	default:
		return ""
	}
}
