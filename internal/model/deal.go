package model

// RawRecord is one scraper output row. Field names vary by source; the
// normalizer maps them onto Deal via an ordered alias table.
type RawRecord map[string]any

// Deal is the canonical shape of a travel listing after normalization.
// Identity fields are immutable once created; DIY and oracle data are
// attached later in the pipeline as enrichment, never as mutation.
type Deal struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	URL    string `json:"url"`
	Source string `json:"source"`

	// Nights is the package duration. Listings longer than 21 nights are
	// treated as scrape errors and excluded from every pipeline stage.
	Nights *int `json:"nights"`

	// PPPrice is the per-person twin-share price.
	PPPrice *float64 `json:"pp_price"`

	// PackageTotalForTwo is always derived as PPPrice*2, never supplied
	// independently.
	PackageTotalForTwo *float64 `json:"package_total_for_two"`

	Destinations []string `json:"destinations,omitempty"`

	// Raw keeps the original scraper record for traceability only.
	Raw RawRecord `json:"raw,omitempty"`
}

// HasPrice reports whether the deal carries a positive package total. The
// total is derived from the per-person price, so this is the single presence
// check for pricing data.
func (d Deal) HasPrice() bool {
	return d.PackageTotalForTwo != nil && *d.PackageTotalForTwo > 0
}

// Float returns a pointer to v. Convenience for optional numeric fields.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }

// Bool returns a pointer to v.
func Bool(v bool) *bool { return &v }
