package cmd

import (
	"fmt"
	"log/slog"

	"github.com/sarchlab/memcfg/datarecording"
	"github.com/sarchlab/memcfg/mem/memconfig"
	"github.com/sarchlab/memcfg/sim/hooking"
	"github.com/sarchlab/memcfg/sim/id"
	"github.com/sarchlab/memcfg/sim/naming"
	"github.com/sarchlab/memcfg/system"
	"github.com/spf13/cobra"
)

func newPlanCmd() *cobra.Command {
	planCmd := &cobra.Command{
		Use:   "plan",
		Short: "Configure the memory of a system and print the plan.",
		Long: `plan creates the memory controllers of a system and prints ` +
			`the channels and controllers. Options come from --config, ` +
			`MEMCFG_* environment variables, and flags, in increasing ` +
			`priority.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, _ := cmd.Flags().GetString("output")

			cfg, err := loadPlanConfig(cmd)
			if err != nil {
				return err
			}

			recordPath, _ := cmd.Flags().GetString("record")

			sys, res, err := configure(cfg, recordPath)
			if err != nil {
				return err
			}

			return writePlan(cmd.OutOrStdout(), format, sys, res)
		},
	}

	addPlanFlags(planCmd)
	planCmd.Flags().StringP("output", "o", "text",
		"Output format: text, json, or yaml.")
	planCmd.Flags().String("record", "",
		"Record the plan into this SQLite database.")

	return planCmd
}

// configure builds the system described by the configuration and configures
// its memory. The plan is recorded if recordPath is not empty.
func configure(
	cfg planConfig,
	recordPath string,
) (*system.System, *memconfig.Result, error) {
	sys, err := cfg.buildSystem()
	if err != nil {
		return nil, nil, err
	}

	builder := memconfig.MakeBuilder().
		WithOptions(cfg.Options).
		WithAdditionalHooks(hooking.NewLogHook(slog.Default()))

	var recorder *datarecording.PlanRecorder

	if recordPath != "" {
		recorder, err = datarecording.NewPlanRecorder(recordPath)
		if err != nil {
			return nil, nil, err
		}

		builder = builder.
			WithIDGenerator(id.NewUniqueIDGenerator()).
			WithAdditionalHooks(recorder)
	}

	res, err := builder.
		Build(naming.BuildName(cfg.SystemName, "MemConfig")).
		Configure(sys)

	if recorder != nil {
		err = finishRecording(recorder, recordPath, err)
	}

	if err != nil {
		return nil, nil, fmt.Errorf("cannot configure %s: %w",
			cfg.SystemName, err)
	}

	return sys, res, nil
}

// finishRecording keeps the recorded plan only if the configuration succeeded.
func finishRecording(
	recorder *datarecording.PlanRecorder,
	recordPath string,
	configErr error,
) error {
	if configErr != nil {
		if err := recorder.Discard(); err != nil {
			slog.Warn("cannot discard recorded plan", "error", err)
		}

		return configErr
	}

	if err := recorder.Close(); err != nil {
		return err
	}

	slog.Info("plan recorded", "file", datarecording.DBFilename(recordPath))

	return nil
}
