package main

import (
	"bufio"
	"encoding/json"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/farelens/deals-cli/internal/model"
	"github.com/farelens/deals-cli/internal/pipeline"
)

var normalizeOut string

var normalizeCmd = &cobra.Command{
	Use:   "normalize <input.jsonl>",
	Short: "Normalize a raw scrape file into canonical deal records",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		records, total, err := pipeline.ReadRecords(args[0])
		if err != nil {
			return eris.Wrap(err, "normalize")
		}

		deals := pipeline.NormalizeAll(records)

		zap.L().Info("normalized",
			zap.Int("rows_in_file", total),
			zap.Int("rows_out", len(deals)),
		)

		return writeDeals(normalizeOut, deals)
	},
}

// writeDeals writes deals as JSONL to path, or stdout when path is empty.
func writeDeals(path string, deals []model.Deal) error {
	var out io.Writer = os.Stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return eris.Wrap(err, "create output file")
		}
		defer f.Close() //nolint:errcheck
		out = f
	}

	w := bufio.NewWriter(out)
	enc := json.NewEncoder(w)
	for _, d := range deals {
		if err := enc.Encode(d); err != nil {
			return eris.Wrap(err, "encode deal")
		}
	}
	return w.Flush()
}

func init() {
	normalizeCmd.Flags().StringVarP(&normalizeOut, "out", "o", "", "output file (default stdout)")
	rootCmd.AddCommand(normalizeCmd)
}
