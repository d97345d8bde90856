package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/farelens/deals-cli/internal/diy"
	"github.com/farelens/deals-cli/internal/fetcher"
	"github.com/farelens/deals-cli/internal/oracle"
	"github.com/farelens/deals-cli/internal/pipeline"
	"github.com/farelens/deals-cli/internal/store"
	"github.com/farelens/deals-cli/pkg/amadeus"
	anthropicpkg "github.com/farelens/deals-cli/pkg/anthropic"
	"github.com/farelens/deals-cli/pkg/kiwi"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <input.jsonl>",
	Short: "Run the full analysis pipeline over a scrape file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if cfg.Oracle.Key == "" {
			return eris.New("anthropic API key is required (DEALS_ORACLE_KEY)")
		}

		// Pricing adapters are optional. A missing credential disables the
		// adapter rather than failing the run.
		var sources []diy.PriceSource
		if cfg.Kiwi.Key != "" {
			kc := kiwi.NewClient(cfg.Kiwi.Key, kiwi.WithBaseURL(cfg.Kiwi.BaseURL))
			sources = append(sources, diy.NewKiwiFlights(kc))
		} else {
			zap.L().Warn("kiwi API key not set, flight pricing disabled")
		}
		if cfg.Amadeus.Key != "" && cfg.Amadeus.Secret != "" {
			ac := amadeus.NewClient(cfg.Amadeus.Key, cfg.Amadeus.Secret, amadeus.WithBaseURL(cfg.Amadeus.BaseURL))
			sources = append(sources, diy.NewAmadeusHotels(ac))
		} else {
			zap.L().Warn("amadeus credentials not set, hotel pricing disabled")
		}

		pageFetcher := fetcher.NewPageFetcher(cfg.Fetch)
		estimator := diy.NewEstimator(cfg.Diy, sources...)
		evaluator := oracle.NewEvaluator(anthropicpkg.NewClient(cfg.Oracle.Key), cfg.Oracle)

		// Run history is best-effort: a broken store downgrades to
		// filesystem-only output.
		st, err := store.Open(ctx, cfg.Store)
		if err != nil {
			zap.L().Warn("store unavailable, run history disabled", zap.Error(err))
			st = nil
		} else {
			defer st.Close() //nolint:errcheck
		}

		a := pipeline.NewAnalyzer(cfg, pageFetcher, estimator, evaluator, st)

		outDir, err := a.Run(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "analyze")
		}

		fmt.Println(outDir)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
}
