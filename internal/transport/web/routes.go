package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/avstrong/tripwatch/internal/session"
	"github.com/avstrong/tripwatch/internal/travel"
)

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.l.LogErrorf("Could not encode response: %v", err.Error())
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	if inputErr := travel.IsInputError(err); inputErr != nil {
		s.writeJSON(w, http.StatusBadRequest, inputErr.Fields())

		return
	}

	if httpErr := travel.IsHTTPError(err); httpErr != nil {
		s.l.LogErrorf("Upstream error: %v", err.Error())
		s.writeJSON(w, http.StatusBadGateway, map[string]string{"error": "upstream responded with " + http.StatusText(httpErr.StatusCode)})

		return
	}

	if providerErr := travel.IsProviderError(err); providerErr != nil {
		s.l.LogErrorf("Provider error: %v", err.Error())
		s.writeJSON(w, http.StatusBadGateway, map[string]string{"error": providerErr.Error()})

		return
	}

	switch {
	case errors.Is(err, session.ErrNotFound):
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	case errors.Is(err, session.ErrTooManySessions):
		http.Error(w, err.Error(), http.StatusTooManyRequests)
	case errors.Is(err, session.ErrShuttingDown):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	default:
		s.l.LogErrorf("Request failed: %v", err.Error())
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// decodeTrip reads the trip and answers 400 itself when it can't.
func (s *Server) decodeTrip(w http.ResponseWriter, dto tripDTO) (travel.TripRequest, bool) {
	trip, fields := dto.toTrip()
	if fields != nil {
		s.writeJSON(w, http.StatusBadRequest, fields)

		return travel.TripRequest{}, false
	}

	return trip, true
}

func (s *Server) planItineraryHandler(w http.ResponseWriter, r *http.Request) {
	var dto tripDTO

	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)

		return
	}

	trip, ok := s.decodeTrip(w, dto)
	if !ok {
		return
	}

	itinerary, err := s.agent.PlanItinerary(r.Context(), trip)
	if err != nil {
		s.writeError(w, err)

		return
	}

	s.writeJSON(w, http.StatusOK, itinerary)
}

func (s *Server) findFlightsHandler(w http.ResponseWriter, r *http.Request) {
	var req searchRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)

		return
	}

	trip, ok := s.decodeTrip(w, req.Trip)
	if !ok {
		return
	}

	pref, err := flightPreference(req.Preference)
	if err != nil {
		http.Error(w, "invalid preference", http.StatusBadRequest)

		return
	}

	offers, err := s.agent.FindBestFlights(r.Context(), trip, pref)
	if err != nil {
		s.writeError(w, err)

		return
	}

	s.writeJSON(w, http.StatusOK, offers)
}

func (s *Server) findHotelsHandler(w http.ResponseWriter, r *http.Request) {
	var req searchRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)

		return
	}

	trip, ok := s.decodeTrip(w, req.Trip)
	if !ok {
		return
	}

	pref, err := hotelPreference(req.Preference)
	if err != nil {
		http.Error(w, "invalid preference", http.StatusBadRequest)

		return
	}

	offers, err := s.agent.FindBestHotels(r.Context(), trip, pref)
	if err != nil {
		s.writeError(w, err)

		return
	}

	s.writeJSON(w, http.StatusOK, offers)
}

//nolint:funlen // one branch per monitor kind
func (s *Server) startMonitorHandler(w http.ResponseWriter, r *http.Request) {
	var req monitorRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)

		return
	}

	trip, ok := s.decodeTrip(w, req.Trip)
	if !ok {
		return
	}

	if err := trip.Validate(); err != nil {
		s.writeError(w, err)

		return
	}

	interval := s.conf.DefaultMonitorInterval
	if req.IntervalSeconds != nil {
		interval = time.Duration(*req.IntervalSeconds * float64(time.Second))

		if msg := checkInterval(interval, s.conf.MinMonitorInterval); msg != "" {
			s.writeJSON(w, http.StatusBadRequest, map[string][]string{"interval_seconds": {msg}})

			return
		}
	}

	var run session.RunFunc

	switch req.Kind {
	case kindFlights:
		pref, err := flightPreference(req.Preference)
		if err != nil {
			http.Error(w, "invalid preference", http.StatusBadRequest)

			return
		}

		run = func(ctx context.Context, deliver session.Deliver) error {
			return s.agent.MonitorFlights(ctx, trip, pref, travel.MonitorOptions[travel.FlightOffer]{
				Interval:  interval,
				MaxCycles: req.MaxCycles,
				Callback:  func(offers []travel.FlightOffer) { deliver(offers) },
			})
		}
	case kindHotels:
		pref, err := hotelPreference(req.Preference)
		if err != nil {
			http.Error(w, "invalid preference", http.StatusBadRequest)

			return
		}

		run = func(ctx context.Context, deliver session.Deliver) error {
			return s.agent.MonitorHotels(ctx, trip, pref, travel.MonitorOptions[travel.HotelOffer]{
				Interval:  interval,
				MaxCycles: req.MaxCycles,
				Callback:  func(offers []travel.HotelOffer) { deliver(offers) },
			})
		}
	default:
		s.writeJSON(w, http.StatusBadRequest, map[string][]string{"kind": {"use flights or hotels"}})

		return
	}

	id, err := s.sessions.Start(r.Context(), req.Kind, run)
	if err != nil {
		s.writeError(w, err)

		return
	}

	s.writeJSON(w, http.StatusAccepted, monitorStarted{ID: id})
}

func checkInterval(interval, minInterval time.Duration) string {
	switch {
	case interval <= 0:
		return "must be positive"
	case interval < minInterval:
		return fmt.Sprintf("must be at least %g", minInterval.Seconds())
	default:
		return ""
	}
}

func (s *Server) getMonitorHandler(w http.ResponseWriter, r *http.Request) {
	snap, err := s.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)

		return
	}

	s.writeJSON(w, http.StatusOK, snap)
}

func (s *Server) listMonitorsHandler(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.sessions.List())
}

func (s *Server) stopMonitorHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Stop(chi.URLParam(r, "id")); err != nil {
		s.writeError(w, err)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) livenessHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) addRoutes(r chi.Router) {
	r.Use(
		s.recoverMiddleware(),
		middleware.RequestID,
		middleware.RealIP,
		s.loggerMiddleware(),
		s.metricsMiddleware(),
	)

	r.Post("/api/itineraries/v1", s.planItineraryHandler)
	r.Post("/api/flights/v1", s.findFlightsHandler)
	r.Post("/api/hotels/v1", s.findHotelsHandler)

	r.Route("/api/monitors/v1", func(r chi.Router) {
		r.Post("/", s.startMonitorHandler)
		r.Get("/", s.listMonitorsHandler)
		r.Get("/{id}", s.getMonitorHandler)
		r.Delete("/{id}", s.stopMonitorHandler)
	})

	r.Get(s.conf.LivenessEndpoint, s.livenessHandler)
	r.Method(http.MethodGet, s.conf.MetricsEndpoint, s.conf.Metrics.Handler())
}
