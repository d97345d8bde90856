package diy

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farelens/deals-cli/internal/config"
	"github.com/farelens/deals-cli/internal/model"
)

type fakeSource struct {
	name    string
	enabled bool
	quote   *Quote
	err     error
	gotQ    *Query
}

func (f *fakeSource) Name() string  { return f.name }
func (f *fakeSource) Enabled() bool { return f.enabled }
func (f *fakeSource) Quote(_ context.Context, q Query) (*Quote, error) {
	f.gotQ = &q
	return f.quote, f.err
}

func testEstimator(sources ...PriceSource) *Estimator {
	e := NewEstimator(config.DiyConfig{
		BaseCurrency:  "AUD",
		OriginAirport: "SYD",
		LeadDays:      45,
	}, sources...)
	e.now = func() time.Time { return time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC) }
	return e
}

func TestEstimate_BothAdapters(t *testing.T) {
	flights := &fakeSource{name: "kiwi_flights", enabled: true,
		quote: &Quote{TotalForTwo: 1100.40, Route: "SYD-DPS return", Source: "kiwi_flights"}}
	hotels := &fakeSource{name: "amadeus_hotels", enabled: true,
		quote: &Quote{TotalForTwo: 900.10, Detail: "Kuta Resort", Source: "amadeus_hotels"}}

	e := testEstimator(flights, hotels)
	deal := model.Deal{ID: "d1", Title: "Bali 7 nights with flights", Nights: model.Int(7)}
	est := e.Estimate(context.Background(), deal, "")

	assert.True(t, est.Flights.Included)
	require.NotNil(t, est.Flights.PriceTotalForTwo)
	assert.InDelta(t, 1100.40, *est.Flights.PriceTotalForTwo, 0.001)
	assert.Equal(t, "SYD-DPS return", est.Flights.AssumedRoute)
	assert.Equal(t, "Kuta Resort", est.Hotel.NameOrHint)
	require.NotNil(t, est.DiyTotalForTwo)
	assert.InDelta(t, 2000.50, *est.DiyTotalForTwo, 0.001)

	// Synthetic window: lead time out from the injected clock, stay length
	// from the deal.
	require.NotNil(t, flights.gotQ)
	assert.Equal(t, time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC), flights.gotQ.Depart)
	assert.Equal(t, time.Date(2026, 10, 23, 0, 0, 0, 0, time.UTC), flights.gotQ.Return)
	assert.Equal(t, "DPS", flights.gotQ.Destination)
}

func TestEstimate_AdapterFailureDegrades(t *testing.T) {
	flights := &fakeSource{name: "kiwi_flights", enabled: true, err: eris.New("boom")}
	hotels := &fakeSource{name: "amadeus_hotels", enabled: true,
		quote: &Quote{TotalForTwo: 800, Detail: "Resort", Source: "amadeus_hotels"}}

	e := testEstimator(flights, hotels)
	est := e.Estimate(context.Background(), model.Deal{Title: "Fiji escape 5 nights"}, "")

	assert.Nil(t, est.Flights.PriceTotalForTwo)
	require.NotNil(t, est.DiyTotalForTwo)
	assert.InDelta(t, 800, *est.DiyTotalForTwo, 0.001)
}

func TestEstimate_DisabledAdapterSkipped(t *testing.T) {
	flights := &fakeSource{name: "kiwi_flights", enabled: false,
		quote: &Quote{TotalForTwo: 999}}

	e := testEstimator(flights)
	est := e.Estimate(context.Background(), model.Deal{Title: "Phuket 5 nights"}, "")

	assert.Nil(t, flights.gotQ)
	assert.Nil(t, est.DiyTotalForTwo)
}

func TestEstimate_UnknownDestinationNoQuotes(t *testing.T) {
	flights := &fakeSource{name: "kiwi_flights", enabled: true,
		quote: &Quote{TotalForTwo: 999}}

	e := testEstimator(flights)
	est := e.Estimate(context.Background(), model.Deal{Title: "Mystery cruise 4 nights"}, "")

	assert.Nil(t, flights.gotQ)
	assert.Nil(t, est.DiyTotalForTwo)
	assert.Contains(t, est.Other.Notes, "not recognized")
}

func TestEstimate_DestinationsFieldFallback(t *testing.T) {
	flights := &fakeSource{name: "kiwi_flights", enabled: true,
		quote: &Quote{TotalForTwo: 500, Route: "SYD-NAN return", Source: "kiwi_flights"}}

	e := testEstimator(flights)
	deal := model.Deal{Title: "Island escape", Destinations: []string{"Nadi"}, Nights: model.Int(4)}
	est := e.Estimate(context.Background(), deal, "")

	require.NotNil(t, flights.gotQ)
	assert.Equal(t, "NAN", flights.gotQ.Destination)
	require.NotNil(t, est.DiyTotalForTwo)
}

func TestResolveNights(t *testing.T) {
	e := testEstimator()

	assert.Equal(t, 9, e.resolveNights(model.Deal{Nights: model.Int(9)}, ""))
	assert.Equal(t, 7, e.resolveNights(model.Deal{Title: "Bali 7 nights deal"}, ""))
	assert.Equal(t, 6, e.resolveNights(model.Deal{Title: "Bali deal"}, "stay 6 nts at the resort"))
	assert.Equal(t, defaultNights, e.resolveNights(model.Deal{Title: "Bali deal"}, "no duration here"))
}

func TestParseNights(t *testing.T) {
	assert.Equal(t, 7, ParseNights("7 nights in paradise"))
	assert.Equal(t, 5, ParseNights("5nts twin share"))
	assert.Equal(t, 10, ParseNights("10 Night Escape"))
	assert.Zero(t, ParseNights("weekend getaway"))
}

func TestFlightsIncluded(t *testing.T) {
	assert.True(t, FlightsIncluded("Bali with flights", ""))
	assert.True(t, FlightsIncluded("Bali escape", "package includes return airfares and transfers"))
	assert.True(t, FlightsIncluded("Fiji + flights 5 nights", ""))
	assert.False(t, FlightsIncluded("Bali escape", "flights not included"))
	assert.False(t, FlightsIncluded("Hotel only special", "breakfast daily"))
}

func TestEnabledSources_VendorKeys(t *testing.T) {
	e := testEstimator(
		&fakeSource{name: "kiwi_flights", enabled: true},
		&fakeSource{name: "amadeus_hotels", enabled: false},
	)

	assert.Equal(t, map[string]bool{"kiwi": true, "amadeus": false}, e.EnabledSources())
}

func TestEnabledSources_NoAdaptersStillReportsVendors(t *testing.T) {
	e := testEstimator()

	assert.Equal(t, map[string]bool{"kiwi": false, "amadeus": false}, e.EnabledSources())
}

func TestGuessCityCode(t *testing.T) {
	assert.Equal(t, "DPS", GuessCityCode("Ultimate Bali Escape"))
	assert.Equal(t, "NAN", GuessCityCode("FIJI family deal"))
	assert.Equal(t, "", GuessCityCode("Somewhere unusual"))
}
