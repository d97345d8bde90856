// Package pipeline implements the deal analysis pipeline: ingestion,
// normalization, deduplication, value-score pruning, orchestration of the
// evidence/DIY/oracle stages, reporting, and coverage validation.
package pipeline

import (
	"bufio"
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/farelens/deals-cli/internal/model"
)

// maxLineBytes bounds a single JSONL line; scraper outputs occasionally embed
// whole page descriptions.
const maxLineBytes = 4 * 1024 * 1024

// ReadRecords reads newline-delimited JSON records from path. Malformed
// lines are skipped silently (debug-logged); a missing file is the only
// fatal condition. Returns the parsed records and the total line count.
func ReadRecords(path string) ([]model.RawRecord, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, eris.Wrapf(err, "ingest: open %s", path)
	}
	defer f.Close()

	var records []model.RawRecord
	lines := 0

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		lines++

		var rec model.RawRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			zap.L().Debug("ingest: skipping malformed line",
				zap.Int("line", lines),
				zap.Error(err),
			)
			continue
		}
		records = append(records, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, lines, eris.Wrapf(err, "ingest: scan %s", path)
	}

	return records, lines, nil
}
