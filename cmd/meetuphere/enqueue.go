package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"meetuphere/config"
	"meetuphere/internal/bootstrap"
	"meetuphere/internal/domain"
)

func enqueueCmd() *cobra.Command {
	var (
		fid       string
		lat, lng  float64
		checkinID string
	)
	cmd := &cobra.Command{
		Use:   "enqueue",
		Short: "Publish a check-in to the configured queue",
		Long: `Publish a check-in as if it had arrived from a push.

Examples:
  meetuphere enqueue --fid 12345 --lat 40.7411 --lng -73.9897`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := config.NewLogger(cfg.Environment, cfg.LogLevel)
			ctx := cmd.Context()
			deps, err := bootstrap.New(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer deps.Close()
			q, err := deps.Queue(ctx)
			if err != nil {
				return err
			}
			return runEnqueue(ctx, cmd.OutOrStdout(), q, newEvent(fid, lat, lng, checkinID, time.Now()))
		},
	}
	cmd.Flags().StringVar(&fid, "fid", "", "check-in owner id")
	cmd.Flags().Float64Var(&lat, "lat", 0, "venue latitude")
	cmd.Flags().Float64Var(&lng, "lng", 0, "venue longitude")
	cmd.Flags().StringVar(&checkinID, "checkin-id", "", "check-in id used for dedup (optional)")
	_ = cmd.MarkFlagRequired("fid")
	_ = cmd.MarkFlagRequired("lat")
	_ = cmd.MarkFlagRequired("lng")
	return cmd
}

func newEvent(fid string, lat, lng float64, checkinID string, now time.Time) *domain.CheckinEvent {
	return &domain.CheckinEvent{
		OwnerID:   fid,
		Latitude:  lat,
		Longitude: lng,
		CheckinID: checkinID,
		CreatedAt: now.Unix(),
	}
}

func runEnqueue(ctx context.Context, out io.Writer, q domain.CheckinQueue, event *domain.CheckinEvent) error {
	if err := q.Enqueue(ctx, event); err != nil {
		return fmt.Errorf("enqueue failed: %w", err)
	}
	fmt.Fprintf(out, "queued check-in for %s at %g,%g\n", event.OwnerID, event.Latitude, event.Longitude)
	return nil
}
