// Package diy builds independent flight+hotel cost estimates for shortlisted
// deals. Live pricing flows through pluggable PriceSource adapters; with no
// adapter enabled the estimator still produces a structured estimate with
// unknown totals.
package diy

import (
	"context"
	"time"
)

// Query describes the trip the estimator wants priced.
type Query struct {
	Origin      string // IATA airport code
	Destination string // IATA airport or city code
	CityCode    string // IATA city code for hotel lookup
	Nights      int
	Depart      time.Time
	Return      time.Time
	Currency    string
}

// Quote is one adapter's answer for its portion of the trip.
type Quote struct {
	TotalForTwo float64
	Route       string
	Source      string
	Detail      string
}

// PriceSource prices one component of a trip. Adapters report Enabled false
// when their credentials are absent, and the estimator skips them.
type PriceSource interface {
	Name() string
	Enabled() bool
	Quote(ctx context.Context, q Query) (*Quote, error)
}
