package travel

import "time"

// DateLayout is the calendar-date format used on the wire.
const DateLayout = "2006-01-02"

type TripRequest struct {
	Origin             string    `json:"origin"`
	Destination        string    `json:"destination"`
	StartDate          time.Time `json:"start_date"`
	EndDate            time.Time `json:"end_date"`
	Interests          []string  `json:"interests"`
	Travelers          int       `json:"travelers"`
	Budget             *float64  `json:"budget,omitempty"`
	OriginDisplay      string    `json:"origin_display,omitempty"`
	DestinationDisplay string    `json:"destination_display,omitempty"`
}

// NewTripRequest normalizes dates to calendar days and copies interests so the caller's slice
// can't alter the request afterwards.
func NewTripRequest(origin, destination string, start, end time.Time, interests []string, travelers int) TripRequest {
	if travelers == 0 {
		travelers = 1
	}

	//nolint:exhaustruct
	return TripRequest{
		Origin:      origin,
		Destination: destination,
		StartDate:   civilDate(start),
		EndDate:     civilDate(end),
		Interests:   append([]string(nil), interests...),
		Travelers:   travelers,
	}
}

func (r TripRequest) OriginLabel() string {
	if r.OriginDisplay != "" {
		return r.OriginDisplay
	}

	return r.Origin
}

func (r TripRequest) DestinationLabel() string {
	if r.DestinationDisplay != "" {
		return r.DestinationDisplay
	}

	return r.Destination
}

func (r TripRequest) Validate() error {
	inputErr := newInputError()

	if r.Origin == "" {
		inputErr.addError("origin", "provide origin")
	}

	if r.Destination == "" {
		inputErr.addError("destination", "provide destination")
	}

	if r.StartDate.IsZero() {
		inputErr.addError("start_date", "provide start_date")
	}

	if r.EndDate.IsZero() {
		inputErr.addError("end_date", "provide end_date")
	}

	if civilDate(r.EndDate).Before(civilDate(r.StartDate)) {
		inputErr.addError("end_date", "end_date must not be before start_date")
	}

	if r.Travelers < 1 {
		inputErr.addError("travelers", "travelers must be at least 1")
	}

	if inputErr.fieldsCount() > 0 {
		return inputErr
	}

	return nil
}

type Activity struct {
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Location    string     `json:"location,omitempty"`
	StartTime   *time.Time `json:"start_time,omitempty"`
	EndTime     *time.Time `json:"end_time,omitempty"`
	BookingURL  string     `json:"booking_url,omitempty"`
}

type ItineraryDay struct {
	Date       time.Time  `json:"date"`
	Activities []Activity `json:"activities"`
}

type Itinerary struct {
	Request TripRequest    `json:"request"`
	Days    []ItineraryDay `json:"days"`
	Notes   []string       `json:"notes"`
}

type FlightPreference struct {
	Cabin             string   `json:"cabin,omitempty"`
	MaxStops          *int     `json:"max_stops,omitempty"`
	PreferredAirlines []string `json:"preferred_airlines,omitempty"`
	LoyaltyPrograms   []string `json:"loyalty_programs,omitempty"`
	MaxPrice          *float64 `json:"max_price,omitempty"`
	Alerts            bool     `json:"alerts"`
}

func DefaultFlightPreference() FlightPreference {
	//nolint:exhaustruct
	return FlightPreference{Alerts: true}
}

type FlightOffer struct {
	Price          float64   `json:"price"`
	Currency       string    `json:"currency"`
	DepartureTime  time.Time `json:"departure_time"`
	ArrivalTime    time.Time `json:"arrival_time"`
	Airline        string    `json:"airline"`
	FlightNumber   string    `json:"flight_number"`
	BookingURL     string    `json:"booking_url"`
	LoyaltyCost    *int      `json:"loyalty_cost,omitempty"`
	LoyaltyProgram string    `json:"loyalty_program,omitempty"`
}

type HotelPreference struct {
	Neighborhoods    []string `json:"neighborhoods,omitempty"`
	LoyaltyPrograms  []string `json:"loyalty_programs,omitempty"`
	MinRating        *float64 `json:"min_rating,omitempty"`
	MaxPricePerNight *float64 `json:"max_price_per_night,omitempty"`
	RoomType         string   `json:"room_type,omitempty"`
	Amenities        []string `json:"amenities,omitempty"`
	Alerts           bool     `json:"alerts"`
}

func DefaultHotelPreference() HotelPreference {
	//nolint:exhaustruct
	return HotelPreference{Alerts: true}
}

type HotelOffer struct {
	Name           string    `json:"name"`
	PricePerNight  float64   `json:"price_per_night"`
	Currency       string    `json:"currency"`
	CheckIn        time.Time `json:"check_in"`
	CheckOut       time.Time `json:"check_out"`
	Rating         *float64  `json:"rating,omitempty"`
	Location       string    `json:"location,omitempty"`
	BookingURL     string    `json:"booking_url"`
	LoyaltyCost    *int      `json:"loyalty_cost,omitempty"`
	LoyaltyProgram string    `json:"loyalty_program,omitempty"`
	Notes          []string  `json:"notes,omitempty"`
}

func civilDate(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}

	y, m, d := t.Date()

	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
