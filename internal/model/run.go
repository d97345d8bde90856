package model

import "time"

// RunStatus tracks the lifecycle of an analysis run.
type RunStatus string

// Run statuses.
const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// RunMeta captures the row count at every pipeline stage plus the config
// snapshot for one run, written to run_meta.json for auditability.
type RunMeta struct {
	RunID           string          `json:"run_id"`
	InputFile       string          `json:"input_file"`
	RowsInFile      int             `json:"rows_in_file"`
	RowsAfterFilter int             `json:"rows_after_filter"`
	RowsAfterDedupe int             `json:"rows_after_dedupe"`
	RowsAfterPrune  int             `json:"rows_after_prune"`
	RowsAnalyzed    int             `json:"rows_analyzed"`
	Model           string          `json:"model"`
	GeneratedAtUTC  time.Time       `json:"generated_at_utc"`
	TopN            int             `json:"top_n"`
	PrunePercentile float64         `json:"prune_percentile"`
	ShortlistSize   int             `json:"shortlist_size"`
	ParallelFetch   int             `json:"parallel_fetch"`
	ReadTimeout     int             `json:"read_timeout"`
	CachePages      bool            `json:"cache_pages"`
	Adapters        map[string]bool `json:"adapters"`
}

// Run is a persisted run-history record.
type Run struct {
	ID        string    `json:"id"`
	Status    RunStatus `json:"status"`
	Meta      *RunMeta  `json:"meta,omitempty"`
	OutputDir string    `json:"output_dir,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
