package travel

import (
	"context"

	"github.com/avstrong/tripwatch/internal/logger"
)

// Agent ties the planner, the finders and their monitors to a single backend.
type Agent struct {
	planner *Planner
	flights *FlightFinder
	hotels  *HotelFinder
}

func NewAgent(l *logger.Logger, provider CompositeProvider, metrics monitorMetrics) *Agent {
	return &Agent{
		planner: NewPlanner(l, provider),
		flights: NewFlightFinder(l, provider, metrics),
		hotels:  NewHotelFinder(l, provider, metrics),
	}
}

func (a *Agent) PlanItinerary(ctx context.Context, req TripRequest) (Itinerary, error) {
	return a.planner.Plan(ctx, req)
}

func (a *Agent) FindBestFlights(ctx context.Context, req TripRequest, pref FlightPreference) ([]FlightOffer, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	return a.flights.FindBest(ctx, req, pref)
}

func (a *Agent) FindBestHotels(ctx context.Context, req TripRequest, pref HotelPreference) ([]HotelOffer, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	return a.hotels.FindBest(ctx, req, pref)
}

func (a *Agent) MonitorFlights(
	ctx context.Context,
	req TripRequest,
	pref FlightPreference,
	opts MonitorOptions[FlightOffer],
) error {
	if err := req.Validate(); err != nil {
		return err
	}

	return a.flights.Monitor(ctx, req, pref, opts)
}

func (a *Agent) MonitorHotels(
	ctx context.Context,
	req TripRequest,
	pref HotelPreference,
	opts MonitorOptions[HotelOffer],
) error {
	if err := req.Validate(); err != nil {
		return err
	}

	return a.hotels.Monitor(ctx, req, pref, opts)
}
