package model

// Savings holds the package-vs-DIY saving in absolute and percentage terms.
// Numeric fields use nil for unknown rather than zero.
type Savings struct {
	Abs *float64 `json:"abs"`
	Pct *float64 `json:"pct"`
}

// DealResult is the parsed (or error-flagged) oracle response for one
// candidate. The six ground-truth fields (title, url, source, nights,
// pp_price, package_total_for_two) are always backfilled from the
// originating Deal when the oracle omits them; the oracle can only replace
// a known fact by explicitly supplying a value.
type DealResult struct {
	DealID             string       `json:"deal_id"`
	Title              string       `json:"title"`
	URL                string       `json:"url"`
	Source             string       `json:"source"`
	Nights             *int         `json:"nights"`
	PPPrice            *float64     `json:"pp_price"`
	PackageTotalForTwo *float64     `json:"package_total_for_two"`
	IncludesFlights    *bool        `json:"includes_flights"`
	InclusionsEvidence []string     `json:"inclusions_evidence,omitempty"`
	DiyBreakdown       *DiyEstimate `json:"diy_breakdown,omitempty"`
	EstimatedSavings   *Savings     `json:"estimated_savings_vs_diy,omitempty"`
	RatingOutOf10      *float64     `json:"rating_out_of_10"`
	Reasoning          string       `json:"reasoning,omitempty"`
	AdditionalNotes    string       `json:"additional_notes,omitempty"`
	Citations          []string     `json:"citations,omitempty"`

	// Error carries a terminal failure sentinel ("oracle_failed: ..." after
	// exhausted retries, "bad_json" for unparsable content). A non-empty
	// Error never aborts the batch; the result is carried through
	// aggregation and reporting as-is.
	Error string `json:"_error,omitempty"`

	// Raw preserves the unparsable oracle output for offline inspection.
	Raw string `json:"_raw,omitempty"`
}

// Ranked reports whether the result carries a usable rating.
func (r DealResult) Ranked() bool {
	return r.Error == "" && r.RatingOutOf10 != nil
}

// SavingsAbs returns the absolute saving, or nil when unknown.
func (r DealResult) SavingsAbs() *float64 {
	if r.EstimatedSavings == nil {
		return nil
	}
	return r.EstimatedSavings.Abs
}
