package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"splicer/command"
	"splicer/config"
	"splicer/ffprobe"
	"splicer/internal/logging"
	"splicer/report"
)

func newProbeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "probe VIDEO...",
		Short: "Show duration, geometry and codecs of media files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, paths []string) error {
			ctx := cmd.Context()

			cfg, _, err := config.LoadConfig(cmd.Flags())
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
			defer logger.Sync() //nolint:errcheck

			prober := ffprobe.NewProber(command.NewExecRunner(logger, cfg.ProcessTimeout), cfg.FFprobePath, logger)

			media := make([]report.Media, 0, len(paths))
			for _, path := range paths {
				info, err := prober.Inspect(ctx, path)
				if err != nil {
					return err
				}
				duration, err := info.GetDuration()
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				width, height := info.Resolution()
				fps := info.FrameRate()
				media = append(media, report.Media{
					Path:       path,
					Duration:   duration,
					Width:      width,
					Height:     height,
					FrameRate:  fps,
					VideoCodec: info.Codec("video"),
					AudioCodec: info.Codec("audio"),
					Size:       info.Size(),
					Canonical:  cfg.Canonical.Matches(width, height, fps),
				})
			}

			fmt.Fprintln(cmd.OutOrStdout(), report.RenderMedia(media))
			return nil
		},
	}
}
