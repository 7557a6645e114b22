// Package cmd provides the command-line interface of memcfg.
package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// EnvPrefix is the prefix of the environment variables that set flags. The
// flag --mem-type is read from MEMCFG_MEM_TYPE.
const EnvPrefix = "MEMCFG_"

// NewRootCmd creates the memcfg command with all its subcommands.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "memcfg",
		Short: "memcfg plans the memory channels of a simulated system.",
		Long: `memcfg splits the physical memory ranges of a system into ` +
			`interleaved channels, creates the memory controllers, and ` +
			`attaches them to the memory bus.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return setup(cmd)
		},
	}

	rootCmd.PersistentFlags().String("log-level", "warn",
		"Log level: debug, info, warn, or error.")
	rootCmd.PersistentFlags().String("env-file", ".env",
		"File with MEMCFG_* variables to load. Missing files are ignored.")

	rootCmd.AddCommand(
		newPlanCmd(),
		newServeCmd(),
		newShowCmd(),
		newTypesCmd(),
	)

	return rootCmd
}

// Execute runs the command line.
func Execute() error {
	return NewRootCmd().Execute()
}

func setup(cmd *cobra.Command) error {
	envFile, _ := cmd.Flags().GetString("env-file")
	if envFile != "" {
		err := godotenv.Load(envFile)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("cannot load %s: %w", envFile, err)
		}
	}

	if err := applyEnv(cmd); err != nil {
		return err
	}

	levelName, _ := cmd.Flags().GetString("log-level")

	var level slog.Level
	if err := level.UnmarshalText([]byte(levelName)); err != nil {
		return fmt.Errorf("invalid log level %q", levelName)
	}

	handler := slog.NewTextHandler(cmd.ErrOrStderr(),
		&slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))

	return nil
}

// applyEnv sets the flags that are not given on the command line from the
// environment.
func applyEnv(cmd *cobra.Command) error {
	var err error

	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if err != nil || f.Changed {
			return
		}

		value, ok := os.LookupEnv(envName(f.Name))
		if !ok {
			return
		}

		if setErr := cmd.Flags().Set(f.Name, value); setErr != nil {
			err = fmt.Errorf("invalid %s: %w", envName(f.Name), setErr)
		}
	})

	return err
}

func envName(flagName string) string {
	return EnvPrefix +
		strings.ToUpper(strings.ReplaceAll(flagName, "-", "_"))
}
