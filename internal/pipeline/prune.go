package pipeline

import (
	"math"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/farelens/deals-cli/internal/model"
)

// flightBonusMultiplier nudges flight-inclusive titles ahead of otherwise
// equal per-night prices before the oracle is consulted (lower score is
// better). Tunable heuristic, not validated against outcomes.
const flightBonusMultiplier = 0.95

var flightWords = []string{"flight", "flights", "airfare", "fly ", "flying"}

// titleSuggestsFlights reports whether the listing title textually claims
// the package includes flights.
func titleSuggestsFlights(title string) bool {
	lower := strings.ToLower(title)
	for _, w := range flightWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

// ValueScore is the per-night pruning heuristic: package total for two
// divided by nights, with the flight-inclusive bonus applied. Deals missing
// either value score +Inf so they sort last without being pruned away
// artificially cheap.
func ValueScore(d model.Deal) float64 {
	if d.PackageTotalForTwo == nil || d.Nights == nil || *d.Nights <= 0 {
		return math.Inf(1)
	}
	score := *d.PackageTotalForTwo / float64(*d.Nights)
	if titleSuggestsFlights(d.Title) {
		score *= flightBonusMultiplier
	}
	return score
}

// Prune keeps the cheapest pct percentile of deals by value score,
// returning exactly ceil(n*pct/100) rows sorted cheapest-first. A pct of 0
// or >=100 is a pass-through. The stage exists purely to bound the volume
// handed to the expensive fetch+oracle stages.
func Prune(deals []model.Deal, pct float64) []model.Deal {
	if pct <= 0 || pct >= 100 || len(deals) == 0 {
		return deals
	}

	sorted := make([]model.Deal, len(deals))
	copy(sorted, deals)
	sort.SliceStable(sorted, func(i, j int) bool {
		return ValueScore(sorted[i]) < ValueScore(sorted[j])
	})

	keep := int(math.Ceil(float64(len(deals)) * pct / 100))
	if keep > len(sorted) {
		keep = len(sorted)
	}

	zap.L().Info("prune: kept cheapest percentile",
		zap.Float64("pct", pct),
		zap.Int("in", len(deals)),
		zap.Int("kept", keep),
	)
	return sorted[:keep]
}

// Shortlist hard-caps the candidate count regardless of pruning outcome.
func Shortlist(deals []model.Deal, max int) []model.Deal {
	if max <= 0 || len(deals) <= max {
		return deals
	}
	zap.L().Info("shortlist: capped candidates",
		zap.Int("in", len(deals)),
		zap.Int("cap", max),
	)
	return deals[:max]
}
