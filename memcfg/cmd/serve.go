package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/sarchlab/memcfg/monitoring"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Configure the memory of a system and serve it over HTTP.",
		Long: `serve configures the memory the same way as plan and starts ` +
			`a web server to inspect the components, the ranges, and the ` +
			`routing of addresses.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadPlanConfig(cmd)
			if err != nil {
				return err
			}

			sys, _, err := configure(cfg, "")
			if err != nil {
				return err
			}

			port, _ := cmd.Flags().GetInt("port")
			m := monitoring.NewMonitor(sys).WithPortNumber(port)

			url, err := m.StartServer()
			if err != nil {
				return err
			}
			defer m.Close()

			fmt.Fprintf(cmd.ErrOrStderr(), "Serving %s at %s\n", sys.Name, url)

			if open, _ := cmd.Flags().GetBool("open"); open {
				if err := m.OpenBrowser(); err != nil {
					slog.Warn("cannot open browser", "error", err)
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			<-ctx.Done()

			return nil
		},
	}

	addPlanFlags(serveCmd)
	serveCmd.Flags().Int("port", 0,
		"Port of the server. 0 picks a random port.")
	serveCmd.Flags().Bool("open", false, "Open the page in a browser.")

	return serveCmd
}
