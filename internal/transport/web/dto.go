package web

import (
	"encoding/json"
	"time"

	"github.com/avstrong/tripwatch/internal/travel"
)

const (
	kindFlights = "flights"
	kindHotels  = "hotels"
)

type tripDTO struct {
	Origin             string   `json:"origin"`
	Destination        string   `json:"destination"`
	StartDate          string   `json:"start_date"`
	EndDate            string   `json:"end_date"`
	Interests          []string `json:"interests"`
	Travelers          int      `json:"travelers"`
	Budget             *float64 `json:"budget,omitempty"`
	OriginDisplay      string   `json:"origin_display,omitempty"`
	DestinationDisplay string   `json:"destination_display,omitempty"`
}

// toTrip parses dates and returns per-field messages for anything it could not read.
func (t tripDTO) toTrip() (travel.TripRequest, map[string][]string) {
	fields := make(map[string][]string)

	start, err := time.Parse(travel.DateLayout, t.StartDate)
	if err != nil {
		fields["start_date"] = append(fields["start_date"], "use YYYY-MM-DD")
	}

	end, err := time.Parse(travel.DateLayout, t.EndDate)
	if err != nil {
		fields["end_date"] = append(fields["end_date"], "use YYYY-MM-DD")
	}

	if len(fields) > 0 {
		return travel.TripRequest{}, fields
	}

	trip := travel.NewTripRequest(t.Origin, t.Destination, start, end, t.Interests, t.Travelers)
	trip.Budget = t.Budget
	trip.OriginDisplay = t.OriginDisplay
	trip.DestinationDisplay = t.DestinationDisplay

	return trip, nil
}

type searchRequest struct {
	Trip       tripDTO         `json:"trip"`
	Preference json.RawMessage `json:"preference"`
}

type monitorRequest struct {
	Kind            string          `json:"kind"`
	Trip            tripDTO         `json:"trip"`
	Preference      json.RawMessage `json:"preference"`
	IntervalSeconds *float64        `json:"interval_seconds"`
	MaxCycles       int             `json:"max_cycles"`
}

type monitorStarted struct {
	ID string `json:"id"`
}

// flightPreference overlays the request's preference on the defaults, so omitted alerts stays on.
func flightPreference(raw json.RawMessage) (travel.FlightPreference, error) {
	pref := travel.DefaultFlightPreference()

	if len(raw) == 0 || string(raw) == "null" {
		return pref, nil
	}

	if err := json.Unmarshal(raw, &pref); err != nil {
		return travel.FlightPreference{}, err //nolint:wrapcheck
	}

	return pref, nil
}

func hotelPreference(raw json.RawMessage) (travel.HotelPreference, error) {
	pref := travel.DefaultHotelPreference()

	if len(raw) == 0 || string(raw) == "null" {
		return pref, nil
	}

	if err := json.Unmarshal(raw, &pref); err != nil {
		return travel.HotelPreference{}, err //nolint:wrapcheck
	}

	return pref, nil
}
