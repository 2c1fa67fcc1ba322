package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/raaihank/stt-pii-datagen/internal/pool"
)

func poolsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pools",
		Short: "Inspect entity pools and templates",
	}
	cmd.AddCommand(poolsValidateCmd(a))
	return cmd
}

func poolsValidateCmd(a *app) *cobra.Command {
	var (
		poolsFile string
		threshold float64
		strict    bool
	)

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate pools and report values shared between splits",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if poolsFile == "" {
				poolsFile = a.cfg.Generation.PoolsFile
			}
			provider, err := loadProvider(poolsFile)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, split := range provider.Splits() {
				pools, templates, err := provider.Pools(split)
				if err != nil {
					return err
				}
				values := 0
				for _, v := range pools {
					values += len(v)
				}
				fmt.Fprintf(out, "%-5s %d templates, %d values\n", split, len(templates), values)
			}

			leaks, err := pool.CheckLeakage(provider, threshold)
			if err != nil {
				return err
			}
			for _, l := range leaks {
				fmt.Fprintf(out, "leak  %-12s %s:%q ~ %s:%q (%.3f)\n",
					l.Label, l.SplitA, l.ValueA, l.SplitB, l.ValueB, l.Similarity)
			}
			a.log.Info("Pools validated",
				zap.String("file", poolsFile),
				zap.Int("leaks", len(leaks)),
				zap.Float64("threshold", threshold))

			if strict && len(leaks) > 0 {
				return fmt.Errorf("%d values leak between splits", len(leaks))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&poolsFile, "pools", "", "pool YAML file (default from config, else built-in pools)")
	cmd.Flags().Float64Var(&threshold, "threshold", 0.95, "Jaro-Winkler similarity at which values count as shared")
	cmd.Flags().BoolVar(&strict, "strict", false, "fail when any value leaks between splits")
	return cmd
}
