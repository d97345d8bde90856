package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/farelens/deals-cli/internal/pipeline"
)

var validateOut string

var validateCmd = &cobra.Command{
	Use:   "validate <input.jsonl>",
	Short: "Check field coverage of a scrape file against quality thresholds",
	Long:  "Computes per-field coverage over the whole batch, writes a QA summary plus the sanity-filtered records, and exits non-zero when any threshold is missed.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		records, total, err := pipeline.ReadRecords(args[0])
		if err != nil {
			return eris.Wrap(err, "validate")
		}

		deals := pipeline.NormalizeAll(records)
		report, valid := pipeline.ValidateBatch(deals, cfg.Validate)

		if err := pipeline.WriteQASummary(validateOut, report, valid); err != nil {
			return eris.Wrap(err, "validate")
		}

		zap.L().Info("validation complete",
			zap.Int("rows_in_file", total),
			zap.Int("records", report.Records),
			zap.Int("valid", report.Valid),
			zap.Float64("price_pct", report.Price.Pct),
			zap.Float64("duration_pct", report.Duration.Pct),
			zap.Float64("destinations_pct", report.Destinations.Pct),
			zap.Bool("status_ok", report.StatusOK),
		)

		if !report.StatusOK {
			return eris.New("coverage below thresholds")
		}

		fmt.Println("PASS")
		return nil
	},
}

func init() {
	validateCmd.Flags().StringVarP(&validateOut, "out", "o", "qa", "output directory for the QA summary")
	rootCmd.AddCommand(validateCmd)
}
