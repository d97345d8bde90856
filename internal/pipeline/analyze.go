package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/farelens/deals-cli/internal/config"
	"github.com/farelens/deals-cli/internal/diy"
	"github.com/farelens/deals-cli/internal/fetcher"
	"github.com/farelens/deals-cli/internal/model"
	"github.com/farelens/deals-cli/internal/store"
)

// Evaluator is the oracle surface the analyzer depends on.
type Evaluator interface {
	Evaluate(ctx context.Context, deal model.Deal, evidence string, est model.DiyEstimate) model.DealResult
}

// Analyzer drives the full pipeline: ingest, normalize, dedupe, prune,
// shortlist, fetch evidence, estimate DIY cost, rank via the oracle, and
// write artifacts. Stages run sequentially; only the fetch stage is
// concurrent internally.
type Analyzer struct {
	Cfg       *config.Config
	Fetcher   *fetcher.PageFetcher
	Estimator *diy.Estimator
	Oracle    Evaluator
	Store     store.Store

	// now is injectable for deterministic tests.
	now func() time.Time
}

// NewAnalyzer wires an analyzer from its stage implementations. Store may
// be nil to skip run-history persistence.
func NewAnalyzer(cfg *config.Config, f *fetcher.PageFetcher, est *diy.Estimator, oracle Evaluator, st store.Store) *Analyzer {
	return &Analyzer{
		Cfg:       cfg,
		Fetcher:   f,
		Estimator: est,
		Oracle:    oracle,
		Store:     st,
		now:       time.Now,
	}
}

// Run executes one full analysis of the input file and returns the run
// directory. Per-candidate failures are isolated into their results; only
// input and artifact I/O errors abort.
func (a *Analyzer) Run(ctx context.Context, inputFile string) (string, error) {
	runID := uuid.New().String()
	start := a.now().UTC()

	if a.Store != nil {
		if run, err := a.Store.CreateRun(ctx, inputFile); err != nil {
			zap.L().Warn("analyze: run history unavailable", zap.Error(err))
			a.Store = nil
		} else {
			runID = run.ID
		}
	}

	records, lines, err := ReadRecords(inputFile)
	if err != nil {
		a.failRun(ctx, runID, start, inputFile)
		return "", err
	}

	deals := NormalizeAll(records)
	deduped := Dedupe(deals)
	if a.Cfg.Prune.FuzzyDedupe {
		deduped = DedupeFuzzy(deduped, a.Cfg.Prune.FuzzyThreshold)
	}
	pruned := Prune(deduped, a.Cfg.Prune.Percentile)
	shortlist := Shortlist(pruned, a.Cfg.Prune.Shortlist)

	zap.L().Info("analyze: candidates selected",
		zap.Int("lines", lines),
		zap.Int("normalized", len(deals)),
		zap.Int("deduped", len(deduped)),
		zap.Int("pruned", len(pruned)),
		zap.Int("shortlist", len(shortlist)),
	)

	urls := make([]string, len(shortlist))
	for i, d := range shortlist {
		urls[i] = d.URL
	}
	evidence := a.Fetcher.FetchAll(ctx, urls)

	results := make([]model.DealResult, 0, len(shortlist))
	for i, deal := range shortlist {
		text := ""
		if !evidence[i].Unavailable {
			text = evidence[i].Text
		}
		est := a.Estimator.Estimate(ctx, deal, text)
		results = append(results, a.Oracle.Evaluate(ctx, deal, text, est))
	}

	meta := &model.RunMeta{
		RunID:           runID,
		InputFile:       inputFile,
		RowsInFile:      lines,
		RowsAfterFilter: len(deals),
		RowsAfterDedupe: len(deduped),
		RowsAfterPrune:  len(pruned),
		RowsAnalyzed:    len(shortlist),
		Model:           a.Cfg.Oracle.Model,
		GeneratedAtUTC:  start,
		TopN:            a.Cfg.Report.TopN,
		PrunePercentile: a.Cfg.Prune.Percentile,
		ShortlistSize:   a.Cfg.Prune.Shortlist,
		ParallelFetch:   a.Cfg.Fetch.Parallel,
		ReadTimeout:     a.Cfg.Fetch.TimeoutSecs,
		CachePages:      a.Cfg.Fetch.CachePages,
		Adapters:        a.Estimator.EnabledSources(),
	}

	reporter := &Reporter{
		OutDir:   a.Cfg.Report.OutDir,
		TopN:     a.Cfg.Report.TopN,
		Currency: a.Cfg.Diy.BaseCurrency,
	}
	dir, err := reporter.WriteArtifacts(shortID(runID), meta, results)
	if err != nil {
		a.failRun(ctx, runID, start, inputFile)
		return "", err
	}

	if a.Store != nil {
		if err := a.Store.SaveResults(ctx, runID, results); err != nil {
			zap.L().Warn("analyze: save results failed", zap.Error(err))
		}
		if err := a.Store.CompleteRun(ctx, runID, model.RunStatusComplete, meta, dir); err != nil {
			zap.L().Warn("analyze: complete run failed", zap.Error(err))
		}
	}

	return dir, nil
}

func (a *Analyzer) failRun(ctx context.Context, runID string, start time.Time, inputFile string) {
	if a.Store == nil {
		return
	}
	meta := &model.RunMeta{RunID: runID, InputFile: inputFile, GeneratedAtUTC: start}
	if err := a.Store.CompleteRun(ctx, runID, model.RunStatusFailed, meta, ""); err != nil {
		zap.L().Warn("analyze: mark run failed", zap.Error(err))
	}
}

// shortID keeps run directory names readable.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
