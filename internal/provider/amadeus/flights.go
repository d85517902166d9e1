package amadeus

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/avstrong/tripwatch/internal/logger"
	"github.com/avstrong/tripwatch/internal/travel"
)

const (
	flightOffersPath = "/v2/shopping/flight-offers"
	bookingURLPrefix = "https://www.amadeus.com/travel/"
	searchCurrency   = "USD"
)

type FlightProvider struct {
	client *Client
	l      *logger.Logger
}

func NewFlightProvider(client *Client, l *logger.Logger) *FlightProvider {
	return &FlightProvider{client: client, l: l}
}

func flightParams(q travel.FlightQuery) Params {
	params := Params{
		"originLocationCode":      q.Origin,
		"destinationLocationCode": q.Destination,
		"departureDate":           q.DepartureDate.Format(travel.DateLayout),
		"adults":                  strconv.Itoa(q.Travelers),
		"currencyCode":            searchCurrency,
		"travelClass":             strings.ToUpper(q.Cabin),
		"includedAirlineCodes":    joinSorted(q.LoyaltyPrograms),
	}

	if q.ReturnDate != nil {
		params["returnDate"] = q.ReturnDate.Format(travel.DateLayout)
	}

	if q.MaxStops != nil {
		params["max"] = strconv.Itoa(*q.MaxStops)
	}

	return params
}

func (p *FlightProvider) SearchFlights(ctx context.Context, q travel.FlightQuery) ([]travel.FlightRecord, error) {
	var resp envelope

	if err := p.client.Get(ctx, flightOffersPath, flightParams(q), &resp); err != nil {
		return nil, fmt.Errorf("get flight offers: %w", err)
	}

	entries := resp.entries()
	records := make([]travel.FlightRecord, 0, len(entries))

	for idx, raw := range entries {
		rec, ok := parseFlightOffer(raw)
		if !ok {
			p.l.LogDebug("Skipping incomplete flight offer #%d", idx)

			continue
		}

		records = append(records, rec)
	}

	return records, nil
}

func parseFlightOffer(raw json.RawMessage) (travel.FlightRecord, bool) {
	var dto flightOfferDTO

	if err := json.Unmarshal(raw, &dto); err != nil {
		return travel.FlightRecord{}, false
	}

	if len(dto.Itineraries) == 0 || len(dto.Itineraries[0].Segments) == 0 {
		return travel.FlightRecord{}, false
	}

	segment := dto.Itineraries[0].Segments[0]
	if segment.Departure.At == "" || segment.Arrival.At == "" {
		return travel.FlightRecord{}, false
	}

	bookingURL := dto.Links.Self
	if bookingURL == "" {
		bookingURL = bookingURLPrefix + dto.ID
	}

	currency := dto.Price.Currency
	if currency == "" {
		currency = searchCurrency
	}

	//nolint:exhaustruct
	rec := travel.FlightRecord{
		Price:         dto.Price.Total.value,
		Currency:      currency,
		DepartureTime: segment.Departure.At,
		ArrivalTime:   segment.Arrival.At,
		Airline:       segment.CarrierCode,
		FlightNumber:  segment.CarrierCode + segment.Number,
		BookingURL:    bookingURL,
	}

	if loyalty := firstLoyaltyProgramme(dto.TravelerPricings); loyalty != nil {
		rec.LoyaltyCost = loyalty.Points.intPtr()
		rec.LoyaltyProgram = loyalty.Program
	}

	return rec, true
}

func firstLoyaltyProgramme(pricings []json.RawMessage) *loyaltyProgramme {
	if len(pricings) == 0 {
		return nil
	}

	var pricing travelerPricingDTO
	if err := json.Unmarshal(pricings[0], &pricing); err != nil {
		return nil
	}

	return pricing.LoyaltyProgramme
}

func joinSorted(values []string) string {
	if len(values) == 0 {
		return ""
	}

	sorted := append([]string(nil), values...)
	sort.Strings(sorted)

	return strings.Join(sorted, ",")
}
