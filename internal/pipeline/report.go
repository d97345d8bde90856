package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/farelens/deals-cli/internal/model"
)

// Rank sorts results descending by absolute savings, breaking ties on
// rating. Results with no savings figure sort after all that have one; the
// order is stable so input order decides among fully unknown entries.
func Rank(results []model.DealResult) []model.DealResult {
	out := make([]model.DealResult, len(results))
	copy(out, results)
	sort.SliceStable(out, func(i, j int) bool {
		si, sj := out[i].SavingsAbs(), out[j].SavingsAbs()
		switch {
		case si != nil && sj == nil:
			return true
		case si == nil && sj != nil:
			return false
		case si != nil && sj != nil && *si != *sj:
			return *si > *sj
		}
		ri, rj := out[i].RatingOutOf10, out[j].RatingOutOf10
		switch {
		case ri != nil && rj == nil:
			return true
		case ri == nil && rj != nil:
			return false
		case ri != nil && rj != nil:
			return *ri > *rj
		}
		return false
	})
	return out
}

// Reporter writes run artifacts under a per-run directory.
type Reporter struct {
	OutDir   string
	TopN     int
	Currency string
}

// moneyPrinter renders thousands separators.
var moneyPrinter = message.NewPrinter(language.English)

// currencySymbols covers the currencies the feed sources actually use.
var currencySymbols = map[string]string{
	"AUD": "A$",
	"NZD": "NZ$",
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
}

// fmtMoney renders a nullable amount; unknown values render as "—".
func fmtMoney(v *float64, currency string) string {
	if v == nil {
		return "—"
	}
	sym, ok := currencySymbols[strings.ToUpper(currency)]
	if !ok {
		sym = strings.ToUpper(currency) + " "
	}
	return sym + moneyPrinter.Sprintf("%.2f", *v)
}

func fmtRating(v *float64) string {
	if v == nil {
		return "—"
	}
	return fmt.Sprintf("%.1f", *v)
}

func fmtNights(v *int) string {
	if v == nil {
		return "—"
	}
	return fmt.Sprintf("%d", *v)
}

var slugRe = regexp.MustCompile(`[^a-z0-9]+`)

// slugify turns a title into a safe filename fragment.
func slugify(s string) string {
	s = slugRe.ReplaceAllString(strings.ToLower(s), "-")
	s = strings.Trim(s, "-")
	if len(s) > 60 {
		s = strings.Trim(s[:60], "-")
	}
	if s == "" {
		return "deal"
	}
	return s
}

// WriteArtifacts writes the full artifact set for one run and returns the
// run directory. The latest-run pointer is written last, via rename, so a
// reader never observes a partially written run as latest.
func (r *Reporter) WriteArtifacts(runID string, meta *model.RunMeta, results []model.DealResult) (string, error) {
	dir := filepath.Join(r.OutDir, fmt.Sprintf("%s-%s", meta.GeneratedAtUTC.Format("20060102-150405"), runID))
	perDeal := filepath.Join(dir, "per-deal")
	if err := os.MkdirAll(perDeal, 0o755); err != nil {
		return "", eris.Wrap(err, "report: create run dir")
	}

	ranked := Rank(results)
	topN := r.TopN
	if topN <= 0 {
		topN = 10
	}
	top := ranked
	if len(top) > topN {
		top = top[:topN]
	}

	if err := writeJSON(filepath.Join(dir, "run_meta.json"), meta); err != nil {
		return "", err
	}

	var combined strings.Builder
	for _, res := range results {
		b, err := json.Marshal(res)
		if err != nil {
			return "", eris.Wrap(err, "report: marshal result")
		}
		combined.Write(b)
		combined.WriteByte('\n')
	}
	if err := os.WriteFile(filepath.Join(dir, "combined.jsonl"), []byte(combined.String()), 0o644); err != nil {
		return "", eris.Wrap(err, "report: write combined.jsonl")
	}

	if err := writeJSON(filepath.Join(dir, fmt.Sprintf("top%d.json", topN)), top); err != nil {
		return "", err
	}
	md := r.renderTopMarkdown(meta, top)
	if err := os.WriteFile(filepath.Join(dir, fmt.Sprintf("top%d.md", topN)), []byte(md), 0o644); err != nil {
		return "", eris.Wrap(err, "report: write top markdown")
	}

	for i, res := range top {
		name := fmt.Sprintf("rank-%d-%s.json", i+1, slugify(res.Title))
		if err := writeJSON(filepath.Join(perDeal, name), res); err != nil {
			return "", err
		}
	}

	if err := writeLatestPointer(r.OutDir, dir); err != nil {
		return "", err
	}

	zap.L().Info("report: artifacts written",
		zap.String("dir", dir),
		zap.Int("results", len(results)),
		zap.Int("top", len(top)),
	)
	return dir, nil
}

func writeJSON(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return eris.Wrapf(err, "report: marshal %s", filepath.Base(path))
	}
	if err := os.WriteFile(path, append(b, '\n'), 0o644); err != nil {
		return eris.Wrapf(err, "report: write %s", filepath.Base(path))
	}
	return nil
}

// writeLatestPointer atomically replaces LATEST.txt with the run dir path.
func writeLatestPointer(outDir, runDir string) error {
	path := filepath.Join(outDir, "LATEST.txt")
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(runDir+"\n"), 0o644); err != nil {
		return eris.Wrap(err, "report: write latest pointer")
	}
	if err := os.Rename(tmp, path); err != nil {
		return eris.Wrap(err, "report: rename latest pointer")
	}
	return nil
}

func (r *Reporter) renderTopMarkdown(meta *model.RunMeta, top []model.DealResult) string {
	cur := r.Currency
	if cur == "" {
		cur = "AUD"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Top %d travel deals\n\n", len(top))
	fmt.Fprintf(&b, "Run %s, generated %s. Analyzed %d of %d input rows.\n\n",
		meta.RunID, meta.GeneratedAtUTC.Format(time.RFC3339), meta.RowsAnalyzed, meta.RowsInFile)

	b.WriteString("| # | Deal | Nights | Package (2p) | DIY est. | Savings | Rating |\n")
	b.WriteString("|---|---|---|---|---|---|---|\n")
	for i, res := range top {
		var diyTotal *float64
		if res.DiyBreakdown != nil {
			diyTotal = res.DiyBreakdown.DiyTotalForTwo
		}
		title := res.Title
		if res.URL != "" {
			title = fmt.Sprintf("[%s](%s)", res.Title, res.URL)
		}
		fmt.Fprintf(&b, "| %d | %s | %s | %s | %s | %s | %s |\n",
			i+1, title,
			fmtNights(res.Nights),
			fmtMoney(res.PackageTotalForTwo, cur),
			fmtMoney(diyTotal, cur),
			fmtMoney(res.SavingsAbs(), cur),
			fmtRating(res.RatingOutOf10),
		)
	}

	for i, res := range top {
		fmt.Fprintf(&b, "\n## %d. %s\n\n", i+1, res.Title)
		if !res.Ranked() {
			if res.Error != "" {
				fmt.Fprintf(&b, "Analysis unavailable (%s).\n", res.Error)
			} else {
				b.WriteString("Analysis unavailable (no rating returned).\n")
			}
			continue
		}
		if res.Reasoning != "" {
			fmt.Fprintf(&b, "%s\n", res.Reasoning)
		}
		if len(res.InclusionsEvidence) > 0 {
			b.WriteString("\nEvidence:\n")
			for _, ev := range res.InclusionsEvidence {
				fmt.Fprintf(&b, "- %s\n", ev)
			}
		}
		if len(res.Citations) > 0 {
			b.WriteString("\nCitations:\n")
			for _, c := range res.Citations {
				fmt.Fprintf(&b, "- %s\n", c)
			}
		}
	}

	return b.String()
}
