package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"meetuphere/config"
	"meetuphere/internal/bootstrap"
	"meetuphere/internal/domain"
	"meetuphere/internal/services"
)

func lookupCmd() *cobra.Command {
	var (
		lat, lng  float64
		threshold float64
		asJSON    bool
	)
	cmd := &cobra.Command{
		Use:   "lookup",
		Short: "Query the event directory and show the match decision",
		Long: `Run the directory lookup and match step for a location without
sending anything.

Examples:
  meetuphere lookup --lat 40.7411 --lng -73.9897
  meetuphere lookup --lat 40.7411 --lng -73.9897 --threshold 0.1 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("threshold") {
				threshold = cfg.Meetup.MatchThreshold
			}
			deps, err := bootstrap.New(cmd.Context(), cfg, config.NewLogger(cfg.Environment, cfg.LogLevel))
			if err != nil {
				return err
			}
			defer deps.Close()
			return runLookup(cmd.Context(), cmd.OutOrStdout(), deps.Directory(), lat, lng, threshold, asJSON)
		},
	}
	cmd.Flags().Float64Var(&lat, "lat", 0, "latitude")
	cmd.Flags().Float64Var(&lng, "lng", 0, "longitude")
	cmd.Flags().Float64Var(&threshold, "threshold", domain.DefaultMatchThreshold, "match distance threshold")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	_ = cmd.MarkFlagRequired("lat")
	_ = cmd.MarkFlagRequired("lng")
	return cmd
}

type lookupResult struct {
	Candidates int                  `json:"candidates"`
	Decision   domain.MatchDecision `json:"decision"`
	Message    string               `json:"message,omitempty"`
}

func runLookup(ctx context.Context, out io.Writer, dir domain.EventDirectory, lat, lng, threshold float64, asJSON bool) error {
	candidates, err := dir.Lookup(ctx, lat, lng)
	if err != nil {
		return err
	}
	res := lookupResult{Candidates: len(candidates), Decision: services.Decide(candidates, threshold)}
	if res.Decision.Notify {
		res.Message = services.MessageBody(*res.Decision.Event)
	}

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	fmt.Fprintf(out, "candidates: %d\n", res.Candidates)
	if !res.Decision.Matched {
		fmt.Fprintln(out, "no event nearby")
		return nil
	}
	ev := res.Decision.Event
	fmt.Fprintf(out, "nearest: %s (%s) distance=%g status=%s\n", ev.Name, ev.GroupName, ev.Distance, ev.Status)
	if !res.Decision.Notify {
		fmt.Fprintln(out, "would not notify")
		return nil
	}
	fmt.Fprintf(out, "would notify:\n%s\n", res.Message)
	return nil
}
