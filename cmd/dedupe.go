package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/farelens/deals-cli/internal/pipeline"
)

var (
	dedupeOut   string
	dedupeFuzzy bool
)

var dedupeCmd = &cobra.Command{
	Use:   "dedupe <input.jsonl>",
	Short: "Normalize and deduplicate a scrape file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		records, total, err := pipeline.ReadRecords(args[0])
		if err != nil {
			return eris.Wrap(err, "dedupe")
		}

		deals := pipeline.NormalizeAll(records)
		deals = pipeline.Dedupe(deals)
		if dedupeFuzzy || cfg.Prune.FuzzyDedupe {
			deals = pipeline.DedupeFuzzy(deals, cfg.Prune.FuzzyThreshold)
		}

		zap.L().Info("deduplicated",
			zap.Int("rows_in_file", total),
			zap.Int("rows_out", len(deals)),
		)

		return writeDeals(dedupeOut, deals)
	},
}

func init() {
	dedupeCmd.Flags().StringVarP(&dedupeOut, "out", "o", "", "output file (default stdout)")
	dedupeCmd.Flags().BoolVar(&dedupeFuzzy, "fuzzy", false, "also collapse near-duplicate titles")
	rootCmd.AddCommand(dedupeCmd)
}
