package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/raaihank/stt-pii-datagen/internal/manifest"
)

func runsCmd(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded generation runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := manifest.New(&a.cfg.Manifest, a.cfg.Generation.OutputDir, a.log.WithComponent("manifest").Logger)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			a.log.Debug("Listed runs", zap.Int("count", len(runs)))

			out := cmd.OutOrStdout()
			for _, r := range runs {
				status := "ok"
				if r.Exhausted {
					status = "exhausted"
				}
				fmt.Fprintf(out, "%s  %s  %-5s seed=%-6d %d/%d  %-9s %s\n",
					r.CreatedAt.Format(time.RFC3339), shortID(r.RunID), r.Split, r.Seed, r.Written, r.Target, status, r.Path)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of entries")
	return cmd
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
