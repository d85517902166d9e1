package web

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/avstrong/tripwatch/internal/logger"
	"github.com/avstrong/tripwatch/internal/obs"
	"github.com/avstrong/tripwatch/internal/session"
	"github.com/avstrong/tripwatch/internal/travel"
)

var ErrPanic = errors.New("panic")

type agent interface {
	PlanItinerary(ctx context.Context, req travel.TripRequest) (travel.Itinerary, error)
	FindBestFlights(ctx context.Context, req travel.TripRequest, pref travel.FlightPreference) ([]travel.FlightOffer, error)
	FindBestHotels(ctx context.Context, req travel.TripRequest, pref travel.HotelPreference) ([]travel.HotelOffer, error)
	MonitorFlights(
		ctx context.Context,
		req travel.TripRequest,
		pref travel.FlightPreference,
		opts travel.MonitorOptions[travel.FlightOffer],
	) error
	MonitorHotels(
		ctx context.Context,
		req travel.TripRequest,
		pref travel.HotelPreference,
		opts travel.MonitorOptions[travel.HotelOffer],
	) error
}

type sessionManager interface {
	Start(ctx context.Context, kind string, run session.RunFunc) (string, error)
	Get(id string) (session.Snapshot, error)
	List() []session.Snapshot
	Stop(id string) error
}

type Server struct {
	srv      *http.Server
	router   chi.Router
	l        *logger.Logger
	conf     Conf
	agent    agent
	sessions sessionManager
}

type Conf struct {
	L                      *logger.Logger
	ServerLogger           *log.Logger
	Metrics                *obs.Metrics
	Host                   string
	Port                   string
	ReadHeaderTimeout      time.Duration
	LivenessEndpoint       string
	MetricsEndpoint        string
	DefaultMonitorInterval time.Duration
	// MinMonitorInterval is the shortest interval a client may request. Zero only rejects non-positive values.
	MinMonitorInterval     time.Duration
}

func New(ctx context.Context, conf Conf, agent agent, sessions sessionManager) (*Server, error) {
	if conf.LivenessEndpoint == "" {
		conf.LivenessEndpoint = "/liveness"
	}

	if conf.MetricsEndpoint == "" {
		conf.MetricsEndpoint = "/metrics"
	}

	router := chi.NewRouter()

	//nolint:exhaustruct
	srv := &http.Server{
		Addr:              net.JoinHostPort(conf.Host, conf.Port),
		ReadHeaderTimeout: conf.ReadHeaderTimeout,
		ErrorLog:          conf.ServerLogger,
		Handler:           router,
		BaseContext: func(listener net.Listener) context.Context {
			return ctx
		},
	}

	server := &Server{
		srv:      srv,
		router:   router,
		l:        conf.L,
		conf:     conf,
		agent:    agent,
		sessions: sessions,
	}

	server.addRoutes(router)

	return server, nil
}

func (s *Server) Srv() *http.Server {
	return s.srv
}

func (s *Server) Handler() http.Handler {
	return s.router
}
