package pipeline

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farelens/deals-cli/internal/config"
	"github.com/farelens/deals-cli/internal/model"
)

func defaultThresholds() config.ValidateConfig {
	return config.ValidateConfig{
		MinPricePct:        90,
		MinDurationPct:     80,
		MinDestinationsPct: 60,
	}
}

func covDeal(source string, price *float64, nights *int, dests []string) model.Deal {
	return model.Deal{
		Title:              "Some deal",
		URL:                "https://x.test/d",
		Source:             source,
		Nights:             nights,
		PackageTotalForTwo: price,
		Destinations:       dests,
		Raw:                model.RawRecord{},
	}
}

func TestValidateBatch_Pass(t *testing.T) {
	var deals []model.Deal
	for i := 0; i < 10; i++ {
		deals = append(deals, covDeal("a", model.Float(2000), model.Int(5), []string{"Bali"}))
	}

	report, valid := ValidateBatch(deals, defaultThresholds())

	assert.True(t, report.StatusOK)
	assert.Equal(t, 10, report.Records)
	assert.Len(t, valid, 10)
	assert.InDelta(t, 100, report.Price.Pct, 0.001)
}

func TestValidateBatch_PriceCoverageBelowThresholdFails(t *testing.T) {
	// 17 of 20 priced = 85%, under the 90% minimum.
	var deals []model.Deal
	for i := 0; i < 17; i++ {
		deals = append(deals, covDeal("a", model.Float(2000), model.Int(5), []string{"Bali"}))
	}
	for i := 0; i < 3; i++ {
		deals = append(deals, covDeal("a", nil, model.Int(5), []string{"Bali"}))
	}

	report, valid := ValidateBatch(deals, defaultThresholds())

	assert.False(t, report.StatusOK)
	assert.InDelta(t, 85, report.Price.Pct, 0.001)
	// Missing price fails coverage, not sanity.
	assert.Len(t, valid, 20)
}

func TestValidateBatch_SanityFilterIndependentOfVerdict(t *testing.T) {
	deals := []model.Deal{
		covDeal("a", model.Float(2000), model.Int(5), []string{"Bali"}),
		covDeal("a", model.Float(-50), model.Int(5), []string{"Bali"}), // non-positive price
		{Title: "", URL: "https://x.test", Source: "a", Nights: model.Int(3)},
	}

	report, valid := ValidateBatch(deals, config.ValidateConfig{})

	assert.True(t, report.StatusOK)
	assert.Equal(t, 3, report.Records)
	require.Len(t, valid, 1)
	assert.Equal(t, 1, report.Valid)
}

func TestValidateBatch_DurationSignalFromRaw(t *testing.T) {
	d := covDeal("a", model.Float(2000), nil, nil)
	d.Raw = model.RawRecord{"duration": "5 days"}

	report, valid := ValidateBatch([]model.Deal{d}, config.ValidateConfig{MinDurationPct: 50})

	// A raw duration key keeps the record sane but does not count as
	// normalized duration coverage.
	assert.Len(t, valid, 1)
	assert.InDelta(t, 0, report.Duration.Pct, 0.001)
	assert.False(t, report.StatusOK)
}

func TestValidateBatch_PerSourceBreakdown(t *testing.T) {
	deals := []model.Deal{
		covDeal("alpha", model.Float(2000), model.Int(5), []string{"Bali"}),
		covDeal("alpha", nil, model.Int(5), nil),
		covDeal("beta", model.Float(1500), model.Int(7), []string{"Fiji"}),
	}

	report, _ := ValidateBatch(deals, config.ValidateConfig{})

	require.Len(t, report.BySource, 2)
	assert.Equal(t, "alpha", report.BySource[0].Source)
	assert.InDelta(t, 50, report.BySource[0].Price.Pct, 0.001)
	assert.Equal(t, "beta", report.BySource[1].Source)
	assert.InDelta(t, 100, report.BySource[1].Price.Pct, 0.001)
}

func TestValidateBatch_EmptyBatch(t *testing.T) {
	report, valid := ValidateBatch(nil, defaultThresholds())
	assert.False(t, report.StatusOK)
	assert.Empty(t, valid)
}

func TestWriteQASummary(t *testing.T) {
	dir := t.TempDir()
	deals := []model.Deal{
		covDeal("a", model.Float(2000), model.Int(5), []string{"Bali"}),
	}
	report, valid := ValidateBatch(deals, defaultThresholds())

	require.NoError(t, WriteQASummary(dir, report, valid))

	raw, err := os.ReadFile(filepath.Join(dir, "qa_summary.json"))
	require.NoError(t, err)
	var parsed CoverageReport
	require.NoError(t, json.Unmarshal(raw, &parsed))
	assert.True(t, parsed.StatusOK)

	md, err := os.ReadFile(filepath.Join(dir, "qa_summary.md"))
	require.NoError(t, err)
	assert.Contains(t, string(md), "# Coverage QA: PASS")

	lines, err := os.ReadFile(filepath.Join(dir, "valid.jsonl"))
	require.NoError(t, err)
	assert.Contains(t, string(lines), `"Some deal"`)
}
