package model

import "math"

// FlightEstimate is the flight portion of a DIY cost estimate.
type FlightEstimate struct {
	Included         bool     `json:"included"`
	AssumedRoute     string   `json:"assumed_route,omitempty"`
	PriceTotalForTwo *float64 `json:"price_total_for_two"`
	Sources          []string `json:"sources,omitempty"`
}

// HotelEstimate is the accommodation portion of a DIY cost estimate.
type HotelEstimate struct {
	NameOrHint        string   `json:"name_or_hint,omitempty"`
	Nights            *int     `json:"nights"`
	PriceTotalForStay *float64 `json:"price_total_for_stay"`
	Sources           []string `json:"sources,omitempty"`
}

// OtherCosts holds non-flight, non-hotel line items.
type OtherCosts struct {
	Items []string `json:"items,omitempty"`
	Notes string   `json:"notes,omitempty"`
}

// DiyEstimate is a best-effort independent flight+hotel cost estimate for
// one candidate, assembled from evidence text and optional pricing adapters.
type DiyEstimate struct {
	Flights FlightEstimate `json:"flights"`
	Hotel   HotelEstimate  `json:"hotel"`
	Other   OtherCosts     `json:"other"`

	// DiyTotalForTwo is nil unless at least one of the flight/hotel totals
	// is known; otherwise it is the sum of all known numeric sub-totals,
	// rounded to 2 decimals. Set via ComputeTotal.
	DiyTotalForTwo *float64 `json:"diy_total_for_two"`
}

// ComputeTotal recomputes DiyTotalForTwo from the known sub-totals.
func (e *DiyEstimate) ComputeTotal() {
	var sum float64
	known := false
	if e.Flights.PriceTotalForTwo != nil {
		sum += *e.Flights.PriceTotalForTwo
		known = true
	}
	if e.Hotel.PriceTotalForStay != nil {
		sum += *e.Hotel.PriceTotalForStay
		known = true
	}
	if !known {
		e.DiyTotalForTwo = nil
		return
	}
	rounded := math.Round(sum*100) / 100
	e.DiyTotalForTwo = &rounded
}
