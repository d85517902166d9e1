package travel

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/avstrong/tripwatch/internal/logger"
)

type monitorMetrics interface {
	ObserveMonitorCycle(kind string, fresh int)
}

type FlightFinder struct {
	l        *logger.Logger
	provider FlightSearcher
	metrics  monitorMetrics
}

func NewFlightFinder(l *logger.Logger, provider FlightSearcher, metrics monitorMetrics) *FlightFinder {
	return &FlightFinder{
		l:        l,
		provider: provider,
		metrics:  metrics,
	}
}

func flightQuery(req TripRequest, pref FlightPreference) FlightQuery {
	returnDate := req.EndDate

	return FlightQuery{
		Origin:          req.Origin,
		Destination:     req.Destination,
		DepartureDate:   req.StartDate,
		ReturnDate:      &returnDate,
		Travelers:       req.Travelers,
		Cabin:           pref.Cabin,
		MaxStops:        pref.MaxStops,
		LoyaltyPrograms: pref.LoyaltyPrograms,
	}
}

// FindBest searches once, drops offers above the price ceiling and ranks preferred airlines first,
// cheapest first within each group.
func (f *FlightFinder) FindBest(ctx context.Context, req TripRequest, pref FlightPreference) ([]FlightOffer, error) {
	records, err := f.provider.SearchFlights(ctx, flightQuery(req, pref))
	if err != nil {
		return nil, fmt.Errorf("search flights %s-%s: %w", req.Origin, req.Destination, err)
	}

	offers := make([]FlightOffer, 0, len(records))

	for _, rec := range records {
		offer, err := NormalizeFlight(rec)
		if err != nil {
			return nil, err
		}

		if pref.MaxPrice != nil && offer.Price > *pref.MaxPrice {
			continue
		}

		offers = append(offers, offer)
	}

	preferred := normalizeSet(pref.PreferredAirlines)

	sort.SliceStable(offers, func(i, j int) bool {
		pi, pj := isPreferredAirline(offers[i], preferred), isPreferredAirline(offers[j], preferred)
		if pi != pj {
			return pi
		}

		return offers[i].Price < offers[j].Price
	})

	f.l.LogDebug("Found %d flight offers for %s-%s, session: %s", len(offers), req.Origin, req.Destination, sessionLabel(ctx))

	return offers, nil
}

func (f *FlightFinder) Monitor(ctx context.Context, req TripRequest, pref FlightPreference, opts MonitorOptions[FlightOffer]) error {
	find := func(ctx context.Context) ([]FlightOffer, error) {
		return f.FindBest(ctx, req, pref)
	}

	return Watch(ctx, find, flightKey, pref.Alerts, opts.watchOptions(f.metrics, "flights"))
}

func flightKey(o FlightOffer) string {
	return o.BookingURL
}

func isPreferredAirline(o FlightOffer, preferred map[string]struct{}) bool {
	if len(preferred) == 0 {
		return false
	}

	_, ok := preferred[strings.ToLower(o.Airline)]

	return ok
}

func normalizeSet(values []string) map[string]struct{} {
	if len(values) == 0 {
		return nil
	}

	set := make(map[string]struct{}, len(values))

	for _, v := range values {
		value := strings.ToLower(strings.TrimSpace(v))
		if value == "" {
			continue
		}

		set[value] = struct{}{}
	}

	return set
}
