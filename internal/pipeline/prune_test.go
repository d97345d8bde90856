package pipeline

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farelens/deals-cli/internal/model"
)

func priced(title string, nights int, total float64) model.Deal {
	return model.Deal{
		Title:              title,
		URL:                "https://x.test/" + title,
		Nights:             &nights,
		PPPrice:            model.Float(total / 2),
		PackageTotalForTwo: &total,
	}
}

func TestValueScore_PerNight(t *testing.T) {
	d := priced("hotel only", 5, 1000)
	assert.Equal(t, 200.0, ValueScore(d))
}

func TestValueScore_FlightBonus(t *testing.T) {
	d := priced("escape with flights", 5, 1000)
	assert.InDelta(t, 190.0, ValueScore(d), 0.0001)
}

func TestValueScore_MissingDataSortsLast(t *testing.T) {
	assert.True(t, math.IsInf(ValueScore(model.Deal{Title: "no price"}), 1))
	n := 0
	assert.True(t, math.IsInf(ValueScore(model.Deal{Title: "zero nights", Nights: &n, PackageTotalForTwo: model.Float(100)}), 1))
}

func TestPrune_ExactCeilingBound(t *testing.T) {
	var deals []model.Deal
	for i := 0; i < 10; i++ {
		deals = append(deals, priced(string(rune('a'+i)), 5, float64(1000+i*100)))
	}
	// ceil(10 * 25 / 100) = 3
	out := Prune(deals, 25)
	require.Len(t, out, 3)
	// Cheapest first.
	assert.Equal(t, "a", out[0].Title)
	assert.Equal(t, "b", out[1].Title)
	assert.Equal(t, "c", out[2].Title)

	// ceil(10 * 31 / 100) = 4
	assert.Len(t, Prune(deals, 31), 4)
}

func TestPrune_PassThrough(t *testing.T) {
	deals := []model.Deal{priced("a", 5, 1000), priced("b", 5, 2000)}
	assert.Equal(t, deals, Prune(deals, 0))
	assert.Equal(t, deals, Prune(deals, 100))
	assert.Equal(t, deals, Prune(deals, 120))
	assert.Equal(t, deals, Prune(deals, -5))
}

func TestPrune_UnscoredNeverPrunedCheap(t *testing.T) {
	deals := []model.Deal{
		{Title: "no price", URL: "https://x.test/n"},
		priced("cheap", 5, 500),
		priced("mid", 5, 1500),
	}
	out := Prune(deals, 34) // ceil(3*0.34)=2
	require.Len(t, out, 2)
	assert.Equal(t, "cheap", out[0].Title)
	assert.Equal(t, "mid", out[1].Title)
}

func TestShortlist(t *testing.T) {
	deals := []model.Deal{priced("a", 5, 1), priced("b", 5, 2), priced("c", 5, 3)}
	assert.Len(t, Shortlist(deals, 2), 2)
	assert.Equal(t, deals, Shortlist(deals, 0))
	assert.Equal(t, deals, Shortlist(deals, 5))
}
