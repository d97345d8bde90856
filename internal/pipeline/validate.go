package pipeline

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/farelens/deals-cli/internal/config"
	"github.com/farelens/deals-cli/internal/model"
)

// FieldCoverage is the presence percentage for one required field.
type FieldCoverage struct {
	Present int     `json:"present"`
	Total   int     `json:"total"`
	Pct     float64 `json:"pct"`
}

// SourceCoverage breaks coverage down for one source site.
type SourceCoverage struct {
	Source       string        `json:"source"`
	Price        FieldCoverage `json:"price"`
	Duration     FieldCoverage `json:"duration"`
	Destinations FieldCoverage `json:"destinations"`
}

// CoverageReport is the validator verdict with its full breakdown. StatusOK
// is strictly PASS or FAIL, never partial.
type CoverageReport struct {
	StatusOK     bool                  `json:"status_ok"`
	Records      int                   `json:"records"`
	Valid        int                   `json:"valid"`
	Price        FieldCoverage         `json:"price"`
	Duration     FieldCoverage         `json:"duration"`
	Destinations FieldCoverage         `json:"destinations"`
	Thresholds   config.ValidateConfig `json:"thresholds"`
	BySource     []SourceCoverage      `json:"by_source,omitempty"`
}

func pct(present, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(present)/float64(total)*100*100) / 100
}

func coverage(present, total int) FieldCoverage {
	return FieldCoverage{Present: present, Total: total, Pct: pct(present, total)}
}

// durationKeys are raw field names that count as a duration signal even when
// nights normalization failed.
var durationKeys = []string{"nights", "duration", "days", "length_of_stay"}

func hasDurationSignal(d model.Deal) bool {
	if d.Nights != nil {
		return true
	}
	for _, k := range durationKeys {
		if _, ok := d.Raw[k]; ok {
			return true
		}
	}
	return false
}

// sane reports whether a record clears the basic sanity bar: a title, a URL,
// no explicitly non-positive price, and some duration signal. A missing
// price passes sanity and is charged to coverage instead.
func sane(d model.Deal) bool {
	if d.Title == "" || d.URL == "" {
		return false
	}
	if d.PackageTotalForTwo != nil && *d.PackageTotalForTwo <= 0 {
		return false
	}
	return hasDurationSignal(d)
}

// ValidateBatch computes per-field coverage over the whole batch and
// separately filters the records that clear the sanity bar. The coverage
// verdict and the sanity filter are independent.
func ValidateBatch(deals []model.Deal, th config.ValidateConfig) (*CoverageReport, []model.Deal) {
	var pricePresent, durPresent, destPresent int
	type counts struct{ price, dur, dest, total int }
	bySource := map[string]*counts{}

	for _, d := range deals {
		priceOK := d.HasPrice()
		durOK := d.Nights != nil
		destOK := len(d.Destinations) > 0

		if priceOK {
			pricePresent++
		}
		if durOK {
			durPresent++
		}
		if destOK {
			destPresent++
		}

		src := d.Source
		if src == "" {
			src = "unknown"
		}
		c := bySource[src]
		if c == nil {
			c = &counts{}
			bySource[src] = c
		}
		c.total++
		if priceOK {
			c.price++
		}
		if durOK {
			c.dur++
		}
		if destOK {
			c.dest++
		}
	}

	n := len(deals)
	report := &CoverageReport{
		Records:      n,
		Price:        coverage(pricePresent, n),
		Duration:     coverage(durPresent, n),
		Destinations: coverage(destPresent, n),
		Thresholds:   th,
	}
	report.StatusOK = report.Price.Pct >= th.MinPricePct &&
		report.Duration.Pct >= th.MinDurationPct &&
		report.Destinations.Pct >= th.MinDestinationsPct

	sources := make([]string, 0, len(bySource))
	for s := range bySource {
		sources = append(sources, s)
	}
	sort.Strings(sources)
	for _, s := range sources {
		c := bySource[s]
		report.BySource = append(report.BySource, SourceCoverage{
			Source:       s,
			Price:        coverage(c.price, c.total),
			Duration:     coverage(c.dur, c.total),
			Destinations: coverage(c.dest, c.total),
		})
	}

	valid := make([]model.Deal, 0, n)
	for _, d := range deals {
		if sane(d) {
			valid = append(valid, d)
		}
	}
	report.Valid = len(valid)

	zap.L().Info("validate: coverage computed",
		zap.Bool("status_ok", report.StatusOK),
		zap.Int("records", n),
		zap.Int("valid", report.Valid),
		zap.Float64("price_pct", report.Price.Pct),
		zap.Float64("duration_pct", report.Duration.Pct),
		zap.Float64("destinations_pct", report.Destinations.Pct),
	)

	return report, valid
}

// WriteQASummary writes the filtered valid JSONL plus the JSON and Markdown
// coverage summaries into dir.
func WriteQASummary(dir string, report *CoverageReport, valid []model.Deal) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrap(err, "validate: create output dir")
	}

	var lines strings.Builder
	for _, d := range valid {
		b, err := json.Marshal(d)
		if err != nil {
			return eris.Wrap(err, "validate: marshal record")
		}
		lines.Write(b)
		lines.WriteByte('\n')
	}
	if err := os.WriteFile(filepath.Join(dir, "valid.jsonl"), []byte(lines.String()), 0o644); err != nil {
		return eris.Wrap(err, "validate: write valid.jsonl")
	}

	jsonBytes, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return eris.Wrap(err, "validate: marshal summary")
	}
	if err := os.WriteFile(filepath.Join(dir, "qa_summary.json"), jsonBytes, 0o644); err != nil {
		return eris.Wrap(err, "validate: write qa_summary.json")
	}

	md := renderQAMarkdown(report)
	if err := os.WriteFile(filepath.Join(dir, "qa_summary.md"), []byte(md), 0o644); err != nil {
		return eris.Wrap(err, "validate: write qa_summary.md")
	}

	return nil
}

func renderQAMarkdown(report *CoverageReport) string {
	var b strings.Builder
	verdict := "PASS"
	if !report.StatusOK {
		verdict = "FAIL"
	}
	fmt.Fprintf(&b, "# Coverage QA: %s\n\n", verdict)
	fmt.Fprintf(&b, "Records: %d, valid after sanity filter: %d\n\n", report.Records, report.Valid)
	b.WriteString("| Field | Present | Coverage | Threshold |\n")
	b.WriteString("|---|---|---|---|\n")
	fmt.Fprintf(&b, "| price | %d/%d | %.2f%% | %.0f%% |\n",
		report.Price.Present, report.Price.Total, report.Price.Pct, report.Thresholds.MinPricePct)
	fmt.Fprintf(&b, "| duration | %d/%d | %.2f%% | %.0f%% |\n",
		report.Duration.Present, report.Duration.Total, report.Duration.Pct, report.Thresholds.MinDurationPct)
	fmt.Fprintf(&b, "| destinations | %d/%d | %.2f%% | %.0f%% |\n",
		report.Destinations.Present, report.Destinations.Total, report.Destinations.Pct, report.Thresholds.MinDestinationsPct)

	if len(report.BySource) > 0 {
		b.WriteString("\n## By source\n\n")
		b.WriteString("| Source | Price | Duration | Destinations |\n")
		b.WriteString("|---|---|---|---|\n")
		for _, s := range report.BySource {
			fmt.Fprintf(&b, "| %s | %.2f%% | %.2f%% | %.2f%% |\n",
				s.Source, s.Price.Pct, s.Duration.Pct, s.Destinations.Pct)
		}
	}

	return b.String()
}
