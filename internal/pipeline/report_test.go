package pipeline

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farelens/deals-cli/internal/model"
)

func result(title string, savings, rating *float64) model.DealResult {
	res := model.DealResult{
		DealID:        title,
		Title:         title,
		URL:           "https://x.test/" + slugify(title),
		RatingOutOf10: rating,
	}
	if savings != nil {
		res.EstimatedSavings = &model.Savings{Abs: savings}
	}
	return res
}

func TestRank_SavingsDescThenRating(t *testing.T) {
	in := []model.DealResult{
		result("low", model.Float(100), model.Float(9)),
		result("high", model.Float(900), model.Float(3)),
		result("mid-a", model.Float(500), model.Float(4)),
		result("mid-b", model.Float(500), model.Float(8)),
	}

	out := Rank(in)

	assert.Equal(t, "high", out[0].Title)
	assert.Equal(t, "mid-b", out[1].Title)
	assert.Equal(t, "mid-a", out[2].Title)
	assert.Equal(t, "low", out[3].Title)
}

func TestRank_UnknownSavingsSortLast(t *testing.T) {
	in := []model.DealResult{
		result("no-savings", nil, model.Float(9)),
		result("small-savings", model.Float(10), model.Float(2)),
		result("failed", nil, nil),
	}

	out := Rank(in)

	assert.Equal(t, "small-savings", out[0].Title)
	assert.Equal(t, "no-savings", out[1].Title)
	assert.Equal(t, "failed", out[2].Title)
}

func TestRank_DoesNotMutateInput(t *testing.T) {
	in := []model.DealResult{
		result("a", model.Float(1), nil),
		result("b", model.Float(2), nil),
	}
	Rank(in)
	assert.Equal(t, "a", in[0].Title)
}

func TestFmtMoney(t *testing.T) {
	assert.Equal(t, "—", fmtMoney(nil, "AUD"))
	assert.Equal(t, "A$1,998.00", fmtMoney(model.Float(1998), "AUD"))
	assert.Equal(t, "€12,345.50", fmtMoney(model.Float(12345.5), "EUR"))
	assert.Equal(t, "JPY 900.00", fmtMoney(model.Float(900), "jpy"))
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "bali-7-nights-with-flights", slugify("Bali: 7 Nights, with Flights!"))
	assert.Equal(t, "deal", slugify("???"))
	long := strings.Repeat("very-long-title-", 10)
	assert.LessOrEqual(t, len(slugify(long)), 60)
}

func TestWriteArtifacts(t *testing.T) {
	outDir := t.TempDir()
	r := &Reporter{OutDir: outDir, TopN: 2, Currency: "AUD"}

	meta := &model.RunMeta{
		RunID:          "run-1",
		RowsInFile:     10,
		RowsAnalyzed:   3,
		GeneratedAtUTC: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
	}
	results := []model.DealResult{
		result("small", model.Float(50), model.Float(5)),
		result("big", model.Float(700), model.Float(8)),
		result("failed", nil, nil),
	}
	results[2].Error = "oracle_failed: timeout"

	dir, err := r.WriteArtifacts("run-1", meta, results)
	require.NoError(t, err)

	// run_meta.json round-trips.
	raw, err := os.ReadFile(filepath.Join(dir, "run_meta.json"))
	require.NoError(t, err)
	var gotMeta model.RunMeta
	require.NoError(t, json.Unmarshal(raw, &gotMeta))
	assert.Equal(t, "run-1", gotMeta.RunID)

	// combined.jsonl has every result, ranked or not.
	combined, err := os.ReadFile(filepath.Join(dir, "combined.jsonl"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(combined)), "\n")
	assert.Len(t, lines, 3)
	assert.Contains(t, string(combined), "oracle_failed: timeout")

	// topN.json is capped and ordered.
	topRaw, err := os.ReadFile(filepath.Join(dir, "top2.json"))
	require.NoError(t, err)
	var top []model.DealResult
	require.NoError(t, json.Unmarshal(topRaw, &top))
	require.Len(t, top, 2)
	assert.Equal(t, "big", top[0].Title)

	// Markdown renders the null-safe table.
	md, err := os.ReadFile(filepath.Join(dir, "top2.md"))
	require.NoError(t, err)
	assert.Contains(t, string(md), "A$700.00")
	assert.Contains(t, string(md), "—")

	// Per-deal files follow the rank naming scheme.
	_, err = os.Stat(filepath.Join(dir, "per-deal", "rank-1-big.json"))
	assert.NoError(t, err)

	// The latest pointer names the new run dir.
	latest, err := os.ReadFile(filepath.Join(outDir, "LATEST.txt"))
	require.NoError(t, err)
	assert.Equal(t, dir, strings.TrimSpace(string(latest)))
}

func TestRenderTopMarkdown_UnratedEntryShowsUnavailable(t *testing.T) {
	r := &Reporter{Currency: "AUD"}
	meta := &model.RunMeta{RunID: "run-3", GeneratedAtUTC: time.Now().UTC()}

	rated := result("rated", model.Float(100), model.Float(7))
	rated.Reasoning = "Solid value against the DIY estimate."
	unrated := result("unrated", model.Float(50), nil)
	failed := result("failed", nil, nil)
	failed.Error = "oracle_failed: timeout"

	md := r.renderTopMarkdown(meta, []model.DealResult{rated, unrated, failed})

	assert.Contains(t, md, "Solid value against the DIY estimate.")
	assert.Contains(t, md, "Analysis unavailable (no rating returned)")
	assert.Contains(t, md, "Analysis unavailable (oracle_failed: timeout)")
}

func TestWriteArtifacts_EmptyResults(t *testing.T) {
	outDir := t.TempDir()
	r := &Reporter{OutDir: outDir, TopN: 5}
	meta := &model.RunMeta{RunID: "run-2", GeneratedAtUTC: time.Now().UTC()}

	dir, err := r.WriteArtifacts("run-2", meta, nil)
	require.NoError(t, err)

	// Artifacts exist even for an all-failed or empty run.
	for _, name := range []string{"run_meta.json", "combined.jsonl", "top5.json", "top5.md"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}
}
