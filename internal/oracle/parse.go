// Package oracle evaluates shortlisted deals with an external LLM ranking
// collaborator behind a strict JSON contract. Calls run sequentially with
// inter-call pacing, retries are bounded, and malformed output degrades to
// tagged sentinel results instead of failing the batch.
package oracle

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/farelens/deals-cli/internal/model"
)

// errBadJSON tags a result whose content survived no recovery strategy.
const errBadJSON = "bad_json"

// ParseResult parses oracle output defensively. Strategies in order: strict
// unmarshal, code-fence stripping, outermost brace-span extraction. When all
// fail the result is tagged bad_json with the raw content preserved.
func ParseResult(content string) model.DealResult {
	var res model.DealResult

	candidates := []string{
		content,
		stripFences(content),
		braceSpan(content),
	}
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if !strings.HasPrefix(c, "{") {
			continue
		}
		if err := json.Unmarshal([]byte(c), &res); err == nil {
			return res
		}
	}

	return model.DealResult{Error: errBadJSON, Raw: content}
}

// stripFences removes a surrounding Markdown code fence, with or without a
// language tag.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.Index(s, "\n"); idx >= 0 {
		// Drop the language tag line ("json", "JSON", or empty).
		s = s[idx+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// braceSpan returns the outermost {...} span, empty when none exists.
func braceSpan(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}

// Backfill fills the six echoed ground-truth fields from the originating
// deal wherever the oracle omitted them. An explicit oracle value is kept.
func Backfill(res *model.DealResult, deal model.Deal) {
	res.DealID = deal.ID
	if res.Title == "" {
		res.Title = deal.Title
	}
	if res.URL == "" {
		res.URL = deal.URL
	}
	if res.Source == "" {
		res.Source = deal.Source
	}
	if res.Nights == nil {
		res.Nights = deal.Nights
	}
	if res.PPPrice == nil {
		res.PPPrice = deal.PPPrice
	}
	if res.PackageTotalForTwo == nil {
		res.PackageTotalForTwo = deal.PackageTotalForTwo
	}
}

// ApplySavings computes package-vs-DIY savings locally when the oracle did
// not supply them. Requires both totals present and positive; an
// oracle-provided value is never overridden.
func ApplySavings(res *model.DealResult, est model.DiyEstimate) {
	if res.EstimatedSavings != nil {
		return
	}
	if res.PackageTotalForTwo == nil || est.DiyTotalForTwo == nil {
		return
	}
	pkg, diyTotal := *res.PackageTotalForTwo, *est.DiyTotalForTwo
	if pkg <= 0 || diyTotal <= 0 {
		return
	}

	abs := math.Round((diyTotal-pkg)*100) / 100
	pct := math.Round(abs/diyTotal*100*100) / 100
	res.EstimatedSavings = &model.Savings{Abs: &abs, Pct: &pct}
}
