package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/sarchlab/memcfg/datarecording"
	"github.com/spf13/cobra"
)

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <db>",
		Short: "Print a plan recorded with plan --record.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reader, err := datarecording.NewPlanReader(args[0])
			if err != nil {
				return err
			}
			defer reader.Close()

			channels, err := reader.ReadChannelPlan(cmd.Context())
			if err != nil {
				return err
			}

			ctrls, err := reader.ReadMemCtrls(cmd.Context())
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)

			fmt.Fprintln(tw, "TYPE\tRANGE#\tCHANNEL\tLOW BIT FROM")
			for _, c := range channels {
				fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n",
					c.Type, c.RangeIndex, c.Descriptor(), c.LowBitSource)
			}

			fmt.Fprintln(tw)
			fmt.Fprintln(tw, "CONTROLLER\tKIND\tPORT\tRANGES")
			for _, c := range ctrls {
				fmt.Fprintf(tw, "%s\t%s\t%s[%d]\t%s\n",
					c.Name, c.Kind, c.Xbar, c.Port, c.Ranges)
			}

			return tw.Flush()
		},
	}
}
