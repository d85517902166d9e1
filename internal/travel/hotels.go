package travel

import (
	"context"
	"fmt"
	"sort"

	"github.com/avstrong/tripwatch/internal/logger"
)

type HotelFinder struct {
	l        *logger.Logger
	provider HotelSearcher
	metrics  monitorMetrics
}

func NewHotelFinder(l *logger.Logger, provider HotelSearcher, metrics monitorMetrics) *HotelFinder {
	return &HotelFinder{
		l:        l,
		provider: provider,
		metrics:  metrics,
	}
}

func hotelQuery(req TripRequest, pref HotelPreference) HotelQuery {
	return HotelQuery{
		Destination:     req.Destination,
		CheckIn:         req.StartDate,
		CheckOut:        req.EndDate,
		Travelers:       req.Travelers,
		Neighborhoods:   pref.Neighborhoods,
		Amenities:       pref.Amenities,
		LoyaltyPrograms: pref.LoyaltyPrograms,
	}
}

// FindBest searches once, drops offers over the nightly ceiling or under the rating floor and
// sorts the rest by nightly price. Offers without a rating pass the rating floor.
func (h *HotelFinder) FindBest(ctx context.Context, req TripRequest, pref HotelPreference) ([]HotelOffer, error) {
	records, err := h.provider.SearchHotels(ctx, hotelQuery(req, pref))
	if err != nil {
		return nil, fmt.Errorf("search hotels in %s: %w", req.Destination, err)
	}

	offers := make([]HotelOffer, 0, len(records))

	for _, rec := range records {
		offer, err := NormalizeHotel(rec)
		if err != nil {
			return nil, err
		}

		if !matchHotelPreference(offer, pref) {
			continue
		}

		offers = append(offers, offer)
	}

	sort.SliceStable(offers, func(i, j int) bool {
		return offers[i].PricePerNight < offers[j].PricePerNight
	})

	h.l.LogDebug("Found %d hotel offers in %s, session: %s", len(offers), req.Destination, sessionLabel(ctx))

	return offers, nil
}

func (h *HotelFinder) Monitor(ctx context.Context, req TripRequest, pref HotelPreference, opts MonitorOptions[HotelOffer]) error {
	find := func(ctx context.Context) ([]HotelOffer, error) {
		return h.FindBest(ctx, req, pref)
	}

	return Watch(ctx, find, hotelKey, pref.Alerts, opts.watchOptions(h.metrics, "hotels"))
}

func hotelKey(o HotelOffer) string {
	return o.BookingURL
}

func matchHotelPreference(o HotelOffer, pref HotelPreference) bool {
	if pref.MaxPricePerNight != nil && o.PricePerNight > *pref.MaxPricePerNight {
		return false
	}

	if pref.MinRating != nil && o.Rating != nil && *o.Rating < *pref.MinRating {
		return false
	}

	return true
}
