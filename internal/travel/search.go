package travel

import (
	"context"
	"time"
)

type Searcher interface {
	Search(ctx context.Context, query string, filters map[string]string) ([]Record, error)
}

type FlightSearcher interface {
	SearchFlights(ctx context.Context, q FlightQuery) ([]FlightRecord, error)
}

type HotelSearcher interface {
	SearchHotels(ctx context.Context, q HotelQuery) ([]HotelRecord, error)
}

// CompositeProvider serves every kind of search from one backend.
type CompositeProvider interface {
	Searcher
	FlightSearcher
	HotelSearcher
}

type FlightQuery struct {
	Origin          string
	Destination     string
	DepartureDate   time.Time
	ReturnDate      *time.Time
	Travelers       int
	Cabin           string
	MaxStops        *int
	LoyaltyPrograms []string
}

type HotelQuery struct {
	Destination     string
	CheckIn         time.Time
	CheckOut        time.Time
	Travelers       int
	Neighborhoods   []string
	Amenities       []string
	LoyaltyPrograms []string
}

// Record is a loosely typed generic search result. Only the itinerary planner reads it.
type Record map[string]any

func (r Record) String(key string) string {
	s, _ := r[key].(string)

	return s
}

// FlightRecord is the flat shape every flight backend produces.
type FlightRecord struct {
	Price          float64 `json:"price"`
	Currency       string  `json:"currency,omitempty"`
	DepartureTime  string  `json:"departure_time"`
	ArrivalTime    string  `json:"arrival_time"`
	Airline        string  `json:"airline"`
	FlightNumber   string  `json:"flight_number"`
	BookingURL     string  `json:"booking_url"`
	LoyaltyCost    *int    `json:"loyalty_cost,omitempty"`
	LoyaltyProgram string  `json:"loyalty_program,omitempty"`
}

// HotelRecord is the flat shape every hotel backend produces.
type HotelRecord struct {
	Name           string   `json:"name"`
	PricePerNight  float64  `json:"price_per_night"`
	Currency       string   `json:"currency,omitempty"`
	CheckIn        string   `json:"check_in"`
	CheckOut       string   `json:"check_out"`
	Rating         *float64 `json:"rating,omitempty"`
	Location       string   `json:"location,omitempty"`
	BookingURL     string   `json:"booking_url"`
	LoyaltyCost    *int     `json:"loyalty_cost,omitempty"`
	LoyaltyProgram string   `json:"loyalty_program,omitempty"`
	Notes          []string `json:"notes,omitempty"`
}

const defaultCurrency = "USD"

func NormalizeFlight(rec FlightRecord) (FlightOffer, error) {
	departure, ok := ParseTimestamp(rec.DepartureTime)
	if !ok {
		return FlightOffer{}, NewProviderError("flight record", "bad departure_time %q", rec.DepartureTime)
	}

	arrival, ok := ParseTimestamp(rec.ArrivalTime)
	if !ok {
		return FlightOffer{}, NewProviderError("flight record", "bad arrival_time %q", rec.ArrivalTime)
	}

	if rec.BookingURL == "" {
		return FlightOffer{}, NewProviderError("flight record", "empty booking_url for %s", rec.FlightNumber)
	}

	currency := rec.Currency
	if currency == "" {
		currency = defaultCurrency
	}

	return FlightOffer{
		Price:          rec.Price,
		Currency:       currency,
		DepartureTime:  departure,
		ArrivalTime:    arrival,
		Airline:        rec.Airline,
		FlightNumber:   rec.FlightNumber,
		BookingURL:     rec.BookingURL,
		LoyaltyCost:    rec.LoyaltyCost,
		LoyaltyProgram: rec.LoyaltyProgram,
	}, nil
}

func NormalizeHotel(rec HotelRecord) (HotelOffer, error) {
	checkIn, ok := ParseTimestamp(rec.CheckIn)
	if !ok {
		return HotelOffer{}, NewProviderError("hotel record", "bad check_in %q", rec.CheckIn)
	}

	checkOut, ok := ParseTimestamp(rec.CheckOut)
	if !ok {
		return HotelOffer{}, NewProviderError("hotel record", "bad check_out %q", rec.CheckOut)
	}

	if rec.BookingURL == "" {
		return HotelOffer{}, NewProviderError("hotel record", "empty booking_url for %q", rec.Name)
	}

	currency := rec.Currency
	if currency == "" {
		currency = defaultCurrency
	}

	return HotelOffer{
		Name:           rec.Name,
		PricePerNight:  rec.PricePerNight,
		Currency:       currency,
		CheckIn:        checkIn,
		CheckOut:       checkOut,
		Rating:         rec.Rating,
		Location:       rec.Location,
		BookingURL:     rec.BookingURL,
		LoyaltyCost:    rec.LoyaltyCost,
		LoyaltyProgram: rec.LoyaltyProgram,
		Notes:          append([]string(nil), rec.Notes...),
	}, nil
}
