package pipeline

import (
	"fmt"
	"net/url"
	"strings"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"
	"go.uber.org/zap"

	"github.com/farelens/deals-cli/internal/model"
)

// CanonicalURL reduces a URL to scheme+host+path with no query, fragment, or
// trailing slash, so listing pages that differ only in tracking parameters
// compare equal. Unparsable input falls back to the trimmed raw string.
func CanonicalURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return strings.TrimRight(strings.TrimSpace(raw), "/")
	}
	path := strings.TrimRight(u.Path, "/")
	return strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host) + path
}

// CanonicalTitle lowercases, strips non-alphanumeric-non-space characters,
// and collapses whitespace.
func CanonicalTitle(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == ' ':
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// dedupeKey is the exact-match near-duplicate key.
func dedupeKey(d model.Deal) string {
	return CanonicalURL(d.URL) + "|" + CanonicalTitle(d.Title)
}

// Dedupe removes exact near-duplicates, preserving first-seen order. Two
// deals are duplicates iff both their canonical URL and canonical title are
// equal.
func Dedupe(deals []model.Deal) []model.Deal {
	seen := make(map[string]bool, len(deals))
	out := make([]model.Deal, 0, len(deals))
	for _, d := range deals {
		key := dedupeKey(d)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, d)
	}
	if removed := len(deals) - len(out); removed > 0 {
		zap.L().Info("dedupe: removed duplicates",
			zap.Int("removed", removed),
			zap.Int("kept", len(out)),
		)
	}
	return out
}

// fuzzyKey composes source, canonical title, and duration into the
// near-duplicate comparison string used by the fuzzy variant.
func fuzzyKey(d model.Deal) string {
	nights := ""
	if d.Nights != nil {
		nights = fmt.Sprintf("%d", *d.Nights)
	}
	return strings.ToLower(d.Source) + "|" + CanonicalTitle(d.Title) + "|" + nights
}

// DedupeFuzzy removes near-duplicates by token-set similarity of the
// source|title|duration composite key against every previously kept key.
// O(n*k) against the kept set; fine at shortlist scale, not for unbounded
// input. threshold is on the 0-100 fuzzywuzzy scale; <=0 uses 92.
func DedupeFuzzy(deals []model.Deal, threshold int) []model.Deal {
	if threshold <= 0 {
		threshold = 92
	}

	var kept []model.Deal
	var keptKeys []string
	for _, d := range deals {
		key := fuzzyKey(d)
		dup := false
		for _, prev := range keptKeys {
			if fuzzy.TokenSetRatio(key, prev) >= threshold {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		kept = append(kept, d)
		keptKeys = append(keptKeys, key)
	}
	if removed := len(deals) - len(kept); removed > 0 {
		zap.L().Info("dedupe: fuzzy pass removed near-duplicates",
			zap.Int("removed", removed),
			zap.Int("kept", len(kept)),
			zap.Int("threshold", threshold),
		)
	}
	return kept
}
