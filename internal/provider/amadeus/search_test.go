package amadeus

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/avstrong/tripwatch/internal/logger"
	"github.com/avstrong/tripwatch/internal/travel"
)

func respondWith(body string) func(w http.ResponseWriter, r *http.Request, call int) {
	return func(w http.ResponseWriter, _ *http.Request, _ int) {
		_, _ = w.Write([]byte(body))
	}
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

const flightOffersBody = `{"data": [
  {
    "id": "1",
    "itineraries": [{"segments": [{
      "departure": {"at": "2024-05-01T08:00:00"},
      "arrival": {"at": "2024-05-01T11:05:00"},
      "carrierCode": "CA",
      "number": "123"
    }]}],
    "price": {"total": "3200.50", "currency": "CNY"},
    "links": {"self": "https://api.example.com/offers/1"},
    "travelerPricings": [{"loyaltyProgramme": {"points": 18000, "program": "PhoenixMiles"}}]
  },
  {
    "id": "2",
    "itineraries": [{"segments": [{
      "departure": {"at": "2024-05-01T09:00:00"},
      "arrival": {"at": "2024-05-01T12:00:00"},
      "carrierCode": "MU",
      "number": "5101"
    }]}],
    "price": {"total": 1800}
  },
  {"id": "3", "itineraries": []},
  {"id": "4"},
  "not an object"
]}`

func TestSearchFlights(t *testing.T) {
	api := &fakeAPI{apiHandler: respondWith(flightOffersBody)}
	client, _ := newTestClient(t, api)

	maxStops := 1
	returnDate := date(2024, 5, 4)

	records, err := NewFlightProvider(client, logger.NewNop()).SearchFlights(context.Background(), travel.FlightQuery{
		Origin:          "HKG",
		Destination:     "PEK",
		DepartureDate:   date(2024, 5, 1),
		ReturnDate:      &returnDate,
		Travelers:       2,
		Cabin:           "business",
		MaxStops:        &maxStops,
		LoyaltyPrograms: []string{"MU", "CA"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	q := api.snapshot().lastQuery
	want := map[string]string{
		"originLocationCode":      "HKG",
		"destinationLocationCode": "PEK",
		"departureDate":           "2024-05-01",
		"returnDate":              "2024-05-04",
		"adults":                  "2",
		"currencyCode":            "USD",
		"travelClass":             "BUSINESS",
		"max":                     "1",
		"includedAirlineCodes":    "CA,MU",
	}

	for k, v := range want {
		if q.Get(k) != v {
			t.Fatalf("param %s: expected %q, got %q", k, v, q.Get(k))
		}
	}

	if len(records) != 2 {
		t.Fatalf("expected 2 usable offers, got %d: %+v", len(records), records)
	}

	first := records[0]
	if first.FlightNumber != "CA123" || first.Airline != "CA" || first.Price != 3200.50 || first.Currency != "CNY" {
		t.Fatalf("unexpected first record: %+v", first)
	}

	if first.BookingURL != "https://api.example.com/offers/1" {
		t.Fatalf("unexpected booking url %q", first.BookingURL)
	}

	if first.LoyaltyCost == nil || *first.LoyaltyCost != 18000 || first.LoyaltyProgram != "PhoenixMiles" {
		t.Fatalf("unexpected loyalty: %+v", first)
	}

	second := records[1]
	if second.BookingURL != "https://www.amadeus.com/travel/2" || second.Currency != "USD" || second.LoyaltyCost != nil {
		t.Fatalf("unexpected fallbacks: %+v", second)
	}

	if _, err := travel.NormalizeFlight(first); err != nil {
		t.Fatalf("adapter output does not normalize: %v", err)
	}
}

func TestSearchFlightsOmitsAbsentOptionals(t *testing.T) {
	api := &fakeAPI{}
	client, _ := newTestClient(t, api)

	_, err := NewFlightProvider(client, logger.NewNop()).SearchFlights(context.Background(), travel.FlightQuery{
		Origin:        "HKG",
		Destination:   "PEK",
		DepartureDate: date(2024, 5, 1),
		Travelers:     1,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	q := api.snapshot().lastQuery
	for _, k := range []string{"returnDate", "travelClass", "max", "includedAirlineCodes"} {
		if _, ok := q[k]; ok {
			t.Fatalf("optional param %s was sent: %v", k, q)
		}
	}
}

const hotelOffersBody = `{"data": [
  {
    "hotel": {"name": "Grand Beijing Hotel", "rating": "4", "geoCode": {"latitude": 39.9, "longitude": 116.4}},
    "offers": [
      {
        "id": "OFF1",
        "self": "https://api.example.com/hotel-offers/OFF1",
        "price": {"total": "980.00", "currency": "CNY"},
        "boardType": "BREAKFAST",
        "room": {"description": {"text": "Deluxe king room"}},
        "loyaltyProgramme": {"points": "28000", "program": "Marriott Bonvoy"}
      },
      {"id": "OFF2", "price": {"total": 1200}}
    ]
  },
  {"hotel": {"name": "No Offers Inn"}},
  {"hotel": {"name": "Empty Offers Inn"}, "offers": []}
]}`

func TestSearchHotels(t *testing.T) {
	api := &fakeAPI{apiHandler: respondWith(hotelOffersBody)}
	client, _ := newTestClient(t, api)

	records, err := NewHotelProvider(client, logger.NewNop()).SearchHotels(context.Background(), travel.HotelQuery{
		Destination:     "BJS",
		CheckIn:         date(2024, 5, 1),
		CheckOut:        date(2024, 5, 4),
		Travelers:       2,
		Neighborhoods:   []string{"HOTEL2", "HOTEL1"},
		Amenities:       []string{"WIFI"},
		LoyaltyPrograms: nil,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	q := api.snapshot().lastQuery
	want := map[string]string{
		"cityCode":     "BJS",
		"checkInDate":  "2024-05-01",
		"checkOutDate": "2024-05-04",
		"adults":       "2",
		"roomQuantity": "1",
		"view":         "FULL",
		"hotelIds":     "HOTEL1,HOTEL2",
		"amenities":    "WIFI",
	}

	for k, v := range want {
		if q.Get(k) != v {
			t.Fatalf("param %s: expected %q, got %q", k, v, q.Get(k))
		}
	}

	if _, ok := q["loyaltyProgrammes"]; ok {
		t.Fatalf("empty loyaltyProgrammes was sent")
	}

	if len(records) != 2 {
		t.Fatalf("expected one record per offer, got %d", len(records))
	}

	first := records[0]
	if first.Name != "Grand Beijing Hotel" || first.PricePerNight != 980 || first.Currency != "CNY" {
		t.Fatalf("unexpected first record: %+v", first)
	}

	if first.Rating == nil || *first.Rating != 4 || first.Location != "39.9, 116.4" {
		t.Fatalf("unexpected rating or location: %+v", first)
	}

	if len(first.Notes) != 2 || first.Notes[0] != "Board: BREAKFAST" || first.Notes[1] != "Deluxe king room" {
		t.Fatalf("unexpected notes: %v", first.Notes)
	}

	if first.LoyaltyCost == nil || *first.LoyaltyCost != 28000 || first.LoyaltyProgram != "Marriott Bonvoy" {
		t.Fatalf("unexpected loyalty: %+v", first)
	}

	if first.CheckIn != "2024-05-01" || first.CheckOut != "2024-05-04" {
		t.Fatalf("unexpected stay dates: %+v", first)
	}

	second := records[1]
	if second.BookingURL != "OFF2" || second.Currency != "USD" || second.Notes != nil {
		t.Fatalf("unexpected fallbacks: %+v", second)
	}
}

func TestSearchHotelsEntryWithoutOffersOnly(t *testing.T) {
	api := &fakeAPI{apiHandler: respondWith(`{"data": [{"hotel": {"name": "Lonely"}}]}`)}
	client, _ := newTestClient(t, api)

	records, err := NewHotelProvider(client, logger.NewNop()).SearchHotels(context.Background(), travel.HotelQuery{
		Destination: "BJS",
		CheckIn:     date(2024, 5, 1),
		CheckOut:    date(2024, 5, 2),
		Travelers:   1,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(records) != 0 {
		t.Fatalf("expected no records, got %+v", records)
	}
}

func TestProviderSearchLocations(t *testing.T) {
	api := &fakeAPI{apiHandler: respondWith(`{"data": [
		{"type": "location", "subType": "CITY", "name": "BEIJING", "iataCode": "BJS"},
		42,
		{"type": "location", "subType": "AIRPORT", "name": "CAPITAL", "iataCode": "PEK"}
	]}`)}
	client, _ := newTestClient(t, api)

	records, err := New(client, logger.NewNop()).Search(context.Background(), "Beijing", map[string]string{"locale": "zh-CN"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	q := api.snapshot().lastQuery
	if q.Get("keyword") != "Beijing" || q.Get("subType") != "AIRPORT,CITY" || q.Get("locale") != "zh-CN" {
		t.Fatalf("unexpected query: %v", q)
	}

	if len(records) != 2 || records[0].String("iataCode") != "BJS" || records[1].String("iataCode") != "PEK" {
		t.Fatalf("unexpected records: %+v", records)
	}
}

func TestProviderSharesOneToken(t *testing.T) {
	api := &fakeAPI{expiresIn: 1800}
	client, _ := newTestClient(t, api)
	p := New(client, logger.NewNop())
	ctx := context.Background()

	if _, err := p.SearchFlights(ctx, travel.FlightQuery{Origin: "HKG", Destination: "PEK", DepartureDate: date(2024, 5, 1), Travelers: 1}); err != nil {
		t.Fatal(err)
	}

	if _, err := p.SearchHotels(ctx, travel.HotelQuery{Destination: "BJS", CheckIn: date(2024, 5, 1), CheckOut: date(2024, 5, 2), Travelers: 1}); err != nil {
		t.Fatal(err)
	}

	if _, err := p.Search(ctx, "Beijing", nil); err != nil {
		t.Fatal(err)
	}

	if got := api.snapshot().tokenCalls; got != 1 {
		t.Fatalf("expected adapters to share one token, got %d exchanges", got)
	}
}

func TestSearchWithNonArrayDataIsEmpty(t *testing.T) {
	api := &fakeAPI{apiHandler: respondWith(`{"data": {"unexpected": true}}`)}
	client, _ := newTestClient(t, api)

	records, err := NewFlightProvider(client, logger.NewNop()).SearchFlights(context.Background(), travel.FlightQuery{
		Origin: "HKG", Destination: "PEK", DepartureDate: date(2024, 5, 1), Travelers: 1,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(records) != 0 {
		t.Fatalf("expected no records, got %+v", records)
	}
}

func TestSearchHotelsSkipsOffersWithoutID(t *testing.T) {
	api := &fakeAPI{apiHandler: respondWith(`{"data": [
		{"hotel": {"name": "Mixed Inn"}, "offers": [
			{"id": "OK1", "price": {"total": "500"}},
			{"price": {"total": "400"}}
		]},
		{"hotel": {"name": "NoID"}, "offers": [{"price": {"total": "300"}}]}
	]}`)}
	client, _ := newTestClient(t, api)

	finder := travel.NewHotelFinder(logger.NewNop(), NewHotelProvider(client, logger.NewNop()), nil)

	offers, err := finder.FindBest(context.Background(), travel.NewTripRequest("HKG", "BJS", date(2024, 5, 1), date(2024, 5, 2), nil, 1), travel.DefaultHotelPreference())
	if err != nil {
		t.Fatalf("an offer without id must not fail the batch: %v", err)
	}

	if len(offers) != 1 || offers[0].BookingURL != "OK1" || offers[0].Name != "Mixed Inn" {
		t.Fatalf("unexpected offers: %+v", offers)
	}
}
