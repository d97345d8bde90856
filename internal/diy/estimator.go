package diy

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/farelens/deals-cli/internal/config"
	"github.com/farelens/deals-cli/internal/model"
)

// nightsRe pulls a stay length out of free text ("7 nights", "5nts").
var nightsRe = regexp.MustCompile(`(?i)(\d{1,2})\s*(?:nights?|nts?)\b`)

// flightsIncludedRe matches phrasing that signals airfare is in the package.
var flightsIncludedRe = regexp.MustCompile(`(?i)(?:includ\w*|with|plus|\+)[^.]{0,40}?(?:return\s+)?(?:flights?|airfares?)|(?:flights?|airfares?)\s+included`)

// cityCodes maps destination names that show up in deal titles to IATA city
// codes usable for flight and hotel lookups. Deliberately small; unmatched
// destinations simply get no live quotes.
var cityCodes = map[string]string{
	"bali":        "DPS",
	"denpasar":    "DPS",
	"fiji":        "NAN",
	"nadi":        "NAN",
	"phuket":      "HKT",
	"bangkok":     "BKK",
	"tokyo":       "TYO",
	"osaka":       "OSA",
	"singapore":   "SIN",
	"hawaii":      "HNL",
	"honolulu":    "HNL",
	"queenstown":  "ZQN",
	"auckland":    "AKL",
	"london":      "LON",
	"paris":       "PAR",
	"rome":        "ROM",
	"new york":    "NYC",
	"los angeles": "LAX",
	"vanuatu":     "VLI",
	"samoa":       "APW",
	"rarotonga":   "RAR",
	"maldives":    "MLE",
	"hanoi":       "HAN",
	"ho chi minh": "SGN",
	"cairns":      "CNS",
	"gold coast":  "OOL",
	"perth":       "PER",
	"hobart":      "HBA",
	"darwin":      "DRW",
}

// defaultNights is assumed when neither the deal nor its evidence states a
// stay length.
const defaultNights = 5

// Estimator assembles DIY cost estimates from evidence and price adapters.
type Estimator struct {
	cfg     config.DiyConfig
	sources []PriceSource

	// now is injectable for deterministic tests.
	now func() time.Time
}

// NewEstimator builds an estimator over the given adapters. Disabled
// adapters are tolerated and skipped per estimate.
func NewEstimator(cfg config.DiyConfig, sources ...PriceSource) *Estimator {
	if cfg.OriginAirport == "" {
		cfg.OriginAirport = "SYD"
	}
	if cfg.BaseCurrency == "" {
		cfg.BaseCurrency = "AUD"
	}
	if cfg.LeadDays <= 0 {
		cfg.LeadDays = 45
	}
	return &Estimator{cfg: cfg, sources: sources, now: time.Now}
}

// EnabledSources reports adapter availability keyed by vendor, the form
// recorded in run_meta.json. Both vendor keys are always present so readers
// see an explicit false when an adapter is not configured.
func (e *Estimator) EnabledSources() map[string]bool {
	out := map[string]bool{"kiwi": false, "amadeus": false}
	for _, s := range e.sources {
		vendor, _, _ := strings.Cut(s.Name(), "_")
		out[vendor] = s.Enabled()
	}
	return out
}

// Estimate builds a DIY estimate for one deal. Adapter failures degrade to
// unknown sub-totals; the method itself never fails.
func (e *Estimator) Estimate(ctx context.Context, deal model.Deal, evidence string) model.DiyEstimate {
	nights := e.resolveNights(deal, evidence)
	included := FlightsIncluded(deal.Title, evidence)

	est := model.DiyEstimate{
		Flights: model.FlightEstimate{Included: included},
		Hotel:   model.HotelEstimate{Nights: &nights},
	}

	city := GuessCityCode(deal.Title)
	if city == "" {
		city = guessFromDestinations(deal.Destinations)
	}
	if city == "" {
		est.Other.Notes = "destination not recognized; no live quotes"
		est.ComputeTotal()
		return est
	}

	// Synthetic travel window: no real dates survive normalization, so
	// price a plausible trip a fixed lead time out.
	depart := e.now().AddDate(0, 0, e.cfg.LeadDays)
	q := Query{
		Origin:      e.cfg.OriginAirport,
		Destination: city,
		CityCode:    city,
		Nights:      nights,
		Depart:      depart,
		Return:      depart.AddDate(0, 0, nights),
		Currency:    e.cfg.BaseCurrency,
	}

	for _, src := range e.sources {
		if !src.Enabled() {
			continue
		}
		quote, err := src.Quote(ctx, q)
		if err != nil {
			zap.L().Debug("diy: adapter quote failed",
				zap.String("source", src.Name()),
				zap.String("deal", deal.ID),
				zap.Error(err),
			)
			continue
		}
		switch src.Name() {
		case "kiwi_flights":
			est.Flights.PriceTotalForTwo = model.Float(quote.TotalForTwo)
			est.Flights.AssumedRoute = quote.Route
			est.Flights.Sources = append(est.Flights.Sources, quote.Source)
		case "amadeus_hotels":
			est.Hotel.PriceTotalForStay = model.Float(quote.TotalForTwo)
			est.Hotel.NameOrHint = quote.Detail
			est.Hotel.Sources = append(est.Hotel.Sources, quote.Source)
		}
	}

	est.ComputeTotal()
	return est
}

// resolveNights prefers the normalized nights field, then text signals, then
// the default assumption.
func (e *Estimator) resolveNights(deal model.Deal, evidence string) int {
	if deal.Nights != nil && *deal.Nights > 0 {
		return *deal.Nights
	}
	if n := ParseNights(deal.Title); n > 0 {
		return n
	}
	if n := ParseNights(evidence); n > 0 {
		return n
	}
	return defaultNights
}

// ParseNights extracts a stay length from free text, 0 when absent.
func ParseNights(text string) int {
	m := nightsRe.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}

// FlightsIncluded reports whether the title or evidence claims airfare is
// part of the package.
func FlightsIncluded(title, evidence string) bool {
	return flightsIncludedRe.MatchString(title) || flightsIncludedRe.MatchString(evidence)
}

// GuessCityCode maps a recognizable destination name in the text to an IATA
// city code, empty when nothing matches.
func GuessCityCode(text string) string {
	lower := strings.ToLower(text)
	for name, code := range cityCodes {
		if strings.Contains(lower, name) {
			return code
		}
	}
	return ""
}

func guessFromDestinations(dests []string) string {
	for _, d := range dests {
		if code := GuessCityCode(d); code != "" {
			return code
		}
	}
	return ""
}
