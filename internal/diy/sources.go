package diy

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/farelens/deals-cli/pkg/amadeus"
	"github.com/farelens/deals-cli/pkg/kiwi"
)

// kiwiFlights prices the return-flight component via the Tequila search API.
type kiwiFlights struct {
	client kiwi.Client
}

// NewKiwiFlights wraps a Tequila client as a flight PriceSource. A nil
// client yields a disabled source.
func NewKiwiFlights(client kiwi.Client) PriceSource {
	return &kiwiFlights{client: client}
}

func (s *kiwiFlights) Name() string { return "kiwi_flights" }

func (s *kiwiFlights) Enabled() bool { return s.client != nil }

func (s *kiwiFlights) Quote(ctx context.Context, q Query) (*Quote, error) {
	resp, err := s.client.Search(ctx, kiwi.SearchRequest{
		FlyFrom:    q.Origin,
		FlyTo:      q.Destination,
		DateFrom:   q.Depart,
		DateTo:     q.Depart,
		ReturnFrom: q.Return,
		ReturnTo:   q.Return,
		Adults:     2,
		Currency:   q.Currency,
		Limit:      3,
	})
	if err != nil {
		return nil, eris.Wrap(err, "diy: kiwi flight quote")
	}
	if len(resp.Data) == 0 {
		return nil, eris.Errorf("diy: no flights found %s-%s", q.Origin, q.Destination)
	}

	// Results are sorted by price; the first is the cheapest itinerary.
	cheapest := resp.Data[0]
	return &Quote{
		TotalForTwo: cheapest.Price,
		Route:       fmt.Sprintf("%s-%s return", q.Origin, q.Destination),
		Source:      s.Name(),
		Detail:      fmt.Sprintf("%s to %s", cheapest.CityFrom, cheapest.CityTo),
	}, nil
}

// amadeusHotels prices the accommodation component via hotel offers search.
type amadeusHotels struct {
	client amadeus.Client
}

// NewAmadeusHotels wraps an Amadeus client as a hotel PriceSource. A nil
// client yields a disabled source.
func NewAmadeusHotels(client amadeus.Client) PriceSource {
	return &amadeusHotels{client: client}
}

func (s *amadeusHotels) Name() string { return "amadeus_hotels" }

func (s *amadeusHotels) Enabled() bool { return s.client != nil }

func (s *amadeusHotels) Quote(ctx context.Context, q Query) (*Quote, error) {
	resp, err := s.client.HotelOffers(ctx, amadeus.HotelOffersRequest{
		CityCode:     q.CityCode,
		CheckIn:      q.Depart,
		CheckOut:     q.Return,
		Adults:       2,
		Currency:     q.Currency,
		BestRateOnly: true,
	})
	if err != nil {
		return nil, eris.Wrap(err, "diy: amadeus hotel quote")
	}

	for _, h := range resp.Data {
		for _, offer := range h.Offers {
			total, err := offer.Price.TotalFloat()
			if err != nil {
				continue
			}
			return &Quote{
				TotalForTwo: total,
				Source:      s.Name(),
				Detail:      h.Hotel.Name,
			}, nil
		}
	}
	return nil, eris.Errorf("diy: no hotel offers for %s", q.CityCode)
}
