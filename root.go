package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"splicer/command"
	"splicer/config"
	"splicer/internal/logging"
	"splicer/pipeline"
	"splicer/publish"
	"splicer/report"
)

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "splicer [flags] VIDEO...",
		Short: "Split videos into segments and splice filler clips between them",
		Long: `splicer cuts every input video into fixed-length segments, re-encodes
segments and filler clips to one canonical format, places a filler before
each segment (cycling through the filler set) and joins the result into a
single output file.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runSplice,
	}

	config.RegisterFlags(rootCmd.PersistentFlags())
	rootCmd.AddCommand(newConfigCommand())
	rootCmd.AddCommand(newProbeCommand())

	return rootCmd
}

func runSplice(cmd *cobra.Command, inputs []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	cfg, configPath, err := config.LoadConfig(cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}
	runID := uuid.NewString()
	logger = logger.With(zap.String("run_id", runID))
	defer logger.Sync() //nolint:errcheck

	if configPath != "" {
		logger.Debug("config loaded", zap.String("file", configPath))
	}

	runner := command.NewExecRunner(logger, cfg.ProcessTimeout)
	p := pipeline.New(cfg, runner, logger)

	if cfg.DryRun {
		rendered, err := cfg.Render()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Effective configuration:\n%s\n", rendered)

		plan, err := p.Plan(ctx, inputs)
		if err != nil {
			return err
		}
		return plan.Render(out)
	}

	if cfg.Publish.Enabled() {
		storage, err := publish.NewStorage(ctx, cfg.Publish)
		if err != nil {
			return fmt.Errorf("init publish storage: %w", err)
		}
		p.SetPublisher(publish.NewPublisher(storage, cfg.Publish, logger))
	}

	logger.Info("starting splice",
		zap.Strings("inputs", inputs),
		zap.String("output", cfg.Output),
		zap.Int("fillers", len(cfg.Fillers)),
		zap.Int("segment_length", cfg.SegmentLength))

	result, err := p.Run(ctx, inputs)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, report.RenderSummary(result.Summary(runID)))
	return nil
}
