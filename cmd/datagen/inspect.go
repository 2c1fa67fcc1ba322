package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/raaihank/stt-pii-datagen/internal/dataset"
	"github.com/raaihank/stt-pii-datagen/internal/privacy"
)

func verifyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <file>",
		Short: "Check span round-trip and non-overlap for every record of a dataset file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			records, err := dataset.ReadFile(path)
			if err != nil {
				return err
			}

			problems := dataset.Verify(records)
			for _, p := range problems {
				fmt.Fprintln(cmd.ErrOrStderr(), p.Error())
			}
			a.log.Info("Dataset verified",
				zap.String("path", path),
				zap.Int("records", len(records)),
				zap.Int("problems", len(problems)))

			if len(problems) > 0 {
				return fmt.Errorf("%s: %d problems in %d records", path, len(problems), len(records))
			}
			sum, err := dataset.FileSHA256(path)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d records ok (sha256 %s)\n", path, len(records), sum)
			return nil
		},
	}
}

func statsCmd(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "stats <file>",
		Short: "Show label counts and regex detectability of a dataset file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := dataset.ReadFile(args[0])
			if err != nil {
				return err
			}

			var detector *privacy.Detector
			if a.cfg.Privacy.Enabled {
				detector, err = privacy.New(a.cfg.Privacy, a.log.WithComponent("privacy").Logger)
				if err != nil {
					return fmt.Errorf("failed to create privacy detector: %w", err)
				}
			}

			summary := dataset.Summarize(records, detector)
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(summary)
			}
			printSummary(cmd.OutOrStdout(), args[0], summary, detector != nil)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the summary as JSON")
	return cmd
}

func printSummary(out io.Writer, path string, s *dataset.Summary, detected bool) {
	fmt.Fprintf(out, "\n=== %s ===\n", path)
	fmt.Fprintf(out, "Examples:           %d\n", s.Examples)
	fmt.Fprintf(out, "Entities:           %d\n", s.Entities)
	fmt.Fprintf(out, "Entities/Example:   %.2f\n", s.MeanEntities)
	fmt.Fprintf(out, "Mean Text Length:   %.1f\n", s.MeanTextLength)

	fmt.Fprintf(out, "\n=== Labels ===\n")
	for _, label := range s.Labels() {
		count := s.LabelCounts[label]
		share := 0.0
		if s.Entities > 0 {
			share = float64(count) / float64(s.Entities) * 100
		}
		fmt.Fprintf(out, "%-18s  %d (%.1f%%)\n", label+":", count, share)
	}

	if !detected {
		return
	}
	fmt.Fprintf(out, "\n=== Regex Detector ===\n")
	fmt.Fprintf(out, "Flagged Examples:   %d (%.1f%%)\n", s.RegexDetected, s.RegexDetectRate*100)
	for rule, count := range s.DetectorFindings {
		fmt.Fprintf(out, "  %-16s  %d\n", rule+":", count)
	}
	fmt.Fprintf(out, "Caught Entities:    %d\n", s.CaughtEntities)
	for _, label := range s.Labels() {
		if n := s.CaughtByLabel[label]; n > 0 {
			fmt.Fprintf(out, "  %-16s  %d of %d\n", label+":", n, s.LabelCounts[label])
		}
	}
}
