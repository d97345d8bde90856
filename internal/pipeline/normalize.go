package pipeline

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/farelens/deals-cli/internal/model"
)

// maxReasonableNights is the duration ceiling. Listings above it are treated
// as scrape errors and excluded from every stage of the pipeline.
const maxReasonableNights = 21

// Vendor field aliases, checked in order. The canonical key comes first so
// normalizing an already-normalized record is a no-op.
var (
	idAliases     = []string{"id", "deal_id", "listing_id", "offer_id", "sku"}
	titleAliases  = []string{"title", "name", "headline", "deal_title", "offer_name"}
	urlAliases    = []string{"url", "link", "deal_url", "href", "permalink"}
	sourceAliases = []string{"source", "site", "vendor", "agency", "provider"}
	nightsAliases = []string{"nights", "duration_nights", "num_nights", "duration", "length_of_stay"}
	priceAliases  = []string{"pp_price", "price", "price_per_person", "price_pp", "price_aud", "from_price"}
	destAliases   = []string{"destinations", "destination", "locations", "location", "region"}
)

var (
	numberRe = regexp.MustCompile(`-?\d+(?:\.\d+)?`)
	intRe    = regexp.MustCompile(`\d+`)
)

// NormalizeRecord maps one raw scraper record onto the canonical Deal shape.
// Returns ok=false when the record lacks a usable title or URL, or carries a
// duration beyond the reasonable ceiling. Pure function over its input.
func NormalizeRecord(rec model.RawRecord) (*model.Deal, bool) {
	title := strings.TrimSpace(firstString(rec, titleAliases))
	rawURL := strings.TrimSpace(firstString(rec, urlAliases))
	if title == "" || rawURL == "" {
		return nil, false
	}

	nights := firstInt(rec, nightsAliases)
	if nights != nil && *nights > maxReasonableNights {
		return nil, false
	}
	if nights != nil && *nights < 0 {
		nights = nil
	}

	d := &model.Deal{
		Title:        title,
		URL:          rawURL,
		Source:       strings.TrimSpace(firstString(rec, sourceAliases)),
		Nights:       nights,
		PPPrice:      firstFloat(rec, priceAliases),
		Destinations: firstStringSlice(rec, destAliases),
		Raw:          rec,
	}

	// Identity falls back through vendor id fields, then title, then URL.
	d.ID = strings.TrimSpace(firstString(rec, idAliases))
	if d.ID == "" {
		d.ID = title
	}
	if d.ID == "" {
		d.ID = rawURL
	}

	// Package total is always derived, never independently supplied.
	if d.PPPrice != nil {
		d.PackageTotalForTwo = model.Float(*d.PPPrice * 2)
	}

	return d, true
}

// NormalizeAll normalizes a batch, dropping unusable records.
func NormalizeAll(records []model.RawRecord) []model.Deal {
	deals := make([]model.Deal, 0, len(records))
	dropped := 0
	for _, rec := range records {
		d, ok := NormalizeRecord(rec)
		if !ok {
			dropped++
			continue
		}
		deals = append(deals, *d)
	}
	if dropped > 0 {
		zap.L().Info("normalize: dropped unusable records",
			zap.Int("dropped", dropped),
			zap.Int("kept", len(deals)),
		)
	}
	return deals
}

// firstString resolves the first non-empty string value across the aliases.
func firstString(rec model.RawRecord, aliases []string) string {
	for _, key := range aliases {
		v, ok := rec[key]
		if !ok || v == nil {
			continue
		}
		switch s := v.(type) {
		case string:
			if strings.TrimSpace(s) != "" {
				return s
			}
		case float64, int, int64, bool:
			return fmt.Sprintf("%v", s)
		}
	}
	return ""
}

// firstFloat resolves the first parsable numeric value across the aliases.
// String values go through coerceFloat; unparsable input yields nil rather
// than an error.
func firstFloat(rec model.RawRecord, aliases []string) *float64 {
	for _, key := range aliases {
		v, ok := rec[key]
		if !ok || v == nil {
			continue
		}
		if f := coerceFloat(v); f != nil {
			return f
		}
	}
	return nil
}

// firstInt resolves the first parsable integer across the aliases, tolerating
// text like "7 nights".
func firstInt(rec model.RawRecord, aliases []string) *int {
	for _, key := range aliases {
		v, ok := rec[key]
		if !ok || v == nil {
			continue
		}
		switch n := v.(type) {
		case float64:
			i := int(n)
			return &i
		case int:
			return &n
		case string:
			if m := intRe.FindString(n); m != "" {
				if i, err := strconv.Atoi(m); err == nil {
					return &i
				}
			}
		}
	}
	return nil
}

// firstStringSlice resolves a list-ish field: a JSON array of strings, or a
// comma-separated string.
func firstStringSlice(rec model.RawRecord, aliases []string) []string {
	for _, key := range aliases {
		v, ok := rec[key]
		if !ok || v == nil {
			continue
		}
		switch val := v.(type) {
		case []any:
			var out []string
			for _, it := range val {
				if s, ok := it.(string); ok && strings.TrimSpace(s) != "" {
					out = append(out, strings.TrimSpace(s))
				}
			}
			if len(out) > 0 {
				return out
			}
		case []string:
			if len(val) > 0 {
				return val
			}
		case string:
			var out []string
			for _, part := range strings.Split(val, ",") {
				if p := strings.TrimSpace(part); p != "" {
					out = append(out, p)
				}
			}
			if len(out) > 0 {
				return out
			}
		}
	}
	return nil
}

// coerceFloat parses a numeric value from loose vendor input: numbers pass
// through, strings are stripped of currency symbols and thousands separators
// first. Fails soft to nil on unparsable input.
func coerceFloat(v any) *float64 {
	switch n := v.(type) {
	case float64:
		return &n
	case int:
		f := float64(n)
		return &f
	case int64:
		f := float64(n)
		return &f
	case string:
		cleaned := strings.NewReplacer(",", "", "$", "", "€", "", "£", "", "AUD", "", "USD", "", " ", "").Replace(n)
		if m := numberRe.FindString(cleaned); m != "" {
			if f, err := strconv.ParseFloat(m, 64); err == nil {
				return &f
			}
		}
	}
	return nil
}
