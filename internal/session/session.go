package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/avstrong/tripwatch/internal/logger"
	"github.com/avstrong/tripwatch/internal/travel"
)

var (
	ErrNotFound        = errors.New("monitor session not found")
	ErrTooManySessions = errors.New("too many running monitor sessions")
	ErrNextID          = errors.New("get next id from generator")
	ErrShuttingDown    = errors.New("session manager is shutting down")
)

type Status string

const (
	StatusRunning   Status = "running"
	StatusFinished  Status = "finished"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

const (
	maxDeliveries    = 50
	finishedRetained = time.Hour
)

type idGenerator interface {
	GetID(ctx context.Context) (string, error)
}

type sessionMetrics interface {
	SessionStarted()
	SessionFinished()
}

// Deliver records a batch of fresh offers for the session.
type Deliver func(offers any)

// RunFunc is the body of a session. It must return once ctx is done.
type RunFunc func(ctx context.Context, deliver Deliver) error

type Delivery struct {
	At     time.Time `json:"at"`
	Offers any       `json:"offers"`
}

type Snapshot struct {
	ID         string     `json:"id"`
	Kind       string     `json:"kind"`
	Status     Status     `json:"status"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Deliveries []Delivery `json:"deliveries"`
	Error      string     `json:"error,omitempty"`
}

type session struct {
	snap   Snapshot
	cancel context.CancelFunc
}

type Conf struct {
	L           *logger.Logger
	IDGen       idGenerator
	Metrics     sessionMetrics
	MaxSessions int
}

// Manager runs monitor sessions in their own goroutines and keeps their latest state.
type Manager struct {
	ctx     context.Context
	l       *logger.Logger
	idGen   idGenerator
	metrics sessionMetrics
	max     int
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
	closed   bool
	wg       sync.WaitGroup
}

// New derives every session context from ctx, so cancelling ctx stops all sessions.
func New(ctx context.Context, conf Conf) *Manager {
	//nolint:exhaustruct
	return &Manager{
		ctx:      ctx,
		l:        conf.L,
		idGen:    conf.IDGen,
		metrics:  conf.Metrics,
		max:      conf.MaxSessions,
		now:      time.Now,
		sessions: make(map[string]*session),
	}
}

func (m *Manager) Start(ctx context.Context, kind string, run RunFunc) (string, error) {
	id, err := m.idGen.GetID(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrNextID, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return "", ErrShuttingDown
	}

	m.pruneLocked()

	if m.max > 0 && m.runningLocked() >= m.max {
		return "", ErrTooManySessions
	}

	sctx, cancel := context.WithCancel(travel.NewContextWithSessionID(m.ctx, id))

	s := &session{
		snap: Snapshot{
			ID:         id,
			Kind:       kind,
			Status:     StatusRunning,
			StartedAt:  m.now().UTC(),
			FinishedAt: nil,
			Deliveries: []Delivery{},
			Error:      "",
		},
		cancel: cancel,
	}
	m.sessions[id] = s

	if m.metrics != nil {
		m.metrics.SessionStarted()
	}

	m.wg.Add(1)

	go func() {
		defer m.wg.Done()
		defer cancel()

		err := run(sctx, func(offers any) {
			m.record(s, offers)
		})

		m.finish(s, err)
	}()

	m.l.LogInfo("Monitor session %s (%s) started", id, kind)

	return id, nil
}

func (m *Manager) record(s *session, offers any) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s.snap.Deliveries = append(s.snap.Deliveries, Delivery{At: m.now().UTC(), Offers: offers})
	if len(s.snap.Deliveries) > maxDeliveries {
		s.snap.Deliveries = s.snap.Deliveries[len(s.snap.Deliveries)-maxDeliveries:]
	}
}

func (m *Manager) finish(s *session, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	finishedAt := m.now().UTC()
	s.snap.FinishedAt = &finishedAt

	switch {
	case err == nil:
		s.snap.Status = StatusFinished
		m.l.LogInfo("Monitor session %s finished", s.snap.ID)
	case errors.Is(err, context.Canceled):
		s.snap.Status = StatusCancelled
		m.l.LogInfo("Monitor session %s cancelled", s.snap.ID)
	default:
		s.snap.Status = StatusFailed
		s.snap.Error = err.Error()
		m.l.LogErrorf("Monitor session %s failed: %v", s.snap.ID, err)
	}

	if m.metrics != nil {
		m.metrics.SessionFinished()
	}
}

func (m *Manager) Get(id string) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return Snapshot{}, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}

	return s.snapshotLocked(), nil
}

func (m *Manager) List() []Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Snapshot, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s.snapshotLocked())
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedAt.Before(out[j].StartedAt)
	})

	return out
}

// Stop cancels a running session. The session stays visible until it is pruned.
func (m *Manager) Stop(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("session %s: %w", id, ErrNotFound)
	}

	s.cancel()

	return nil
}

// Shutdown cancels every session and waits for them to return or for ctx to expire.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true

	for _, s := range m.sessions {
		s.cancel()
	}
	m.mu.Unlock()

	done := make(chan struct{})

	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for monitor sessions: %w", ctx.Err())
	}
}

func (m *Manager) runningLocked() int {
	running := 0

	for _, s := range m.sessions {
		if s.snap.Status == StatusRunning {
			running++
		}
	}

	return running
}

func (m *Manager) pruneLocked() {
	cutoff := m.now().Add(-finishedRetained)

	for id, s := range m.sessions {
		if s.snap.FinishedAt != nil && s.snap.FinishedAt.Before(cutoff) {
			delete(m.sessions, id)
		}
	}
}

func (s *session) snapshotLocked() Snapshot {
	snap := s.snap
	snap.Deliveries = make([]Delivery, len(s.snap.Deliveries))
	copy(snap.Deliveries, s.snap.Deliveries)

	return snap
}
