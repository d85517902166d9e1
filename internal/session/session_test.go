package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/avstrong/tripwatch/internal/logger"
	"github.com/avstrong/tripwatch/internal/travel"
)

type seqIDs struct {
	mu   sync.Mutex
	next int
	err  error
}

func (g *seqIDs) GetID(context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.err != nil {
		return "", g.err
	}

	g.next++

	return fmt.Sprintf("s-%d", g.next), nil
}

type gauge struct {
	mu      sync.Mutex
	running int
}

func (g *gauge) SessionStarted() {
	g.mu.Lock()
	g.running++
	g.mu.Unlock()
}

func (g *gauge) SessionFinished() {
	g.mu.Lock()
	g.running--
	g.mu.Unlock()
}

func (g *gauge) value() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.running
}

func newManager(ctx context.Context, maxSessions int) (*Manager, *gauge) {
	g := &gauge{}

	return New(ctx, Conf{L: logger.NewNop(), IDGen: &seqIDs{}, Metrics: g, MaxSessions: maxSessions}), g
}

func waitStatus(t *testing.T, m *Manager, id string, want Status) Snapshot {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)

	for time.Now().Before(deadline) {
		snap, err := m.Get(id)
		if err != nil {
			t.Fatalf("get %s: %v", id, err)
		}

		if snap.Status == want {
			return snap
		}

		time.Sleep(5 * time.Millisecond)
	}

	snap, _ := m.Get(id)
	t.Fatalf("session %s: expected status %s, got %s", id, want, snap.Status)

	return Snapshot{}
}

func blockUntilDone(ctx context.Context, _ Deliver) error {
	<-ctx.Done()

	return ctx.Err()
}

func TestSessionRecordsDeliveriesAndFinishes(t *testing.T) {
	m, g := newManager(context.Background(), 0)

	var seenID string

	id, err := m.Start(context.Background(), "flights", func(ctx context.Context, deliver Deliver) error {
		seenID, _ = travel.SessionIDFromContext(ctx)
		deliver([]string{"CA123"})
		deliver([]string{"MU5101"})

		return nil
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	snap := waitStatus(t, m, id, StatusFinished)

	if seenID != id {
		t.Fatalf("expected session id %s in run context, got %q", id, seenID)
	}

	if snap.Kind != "flights" || snap.FinishedAt == nil || snap.Error != "" {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}

	if len(snap.Deliveries) != 2 {
		t.Fatalf("expected 2 deliveries, got %+v", snap.Deliveries)
	}

	if g.value() != 0 {
		t.Fatalf("expected gauge back at 0, got %d", g.value())
	}
}

func TestSessionFailureIsRecorded(t *testing.T) {
	m, _ := newManager(context.Background(), 0)

	id, _ := m.Start(context.Background(), "hotels", func(context.Context, Deliver) error {
		return errors.New("monitor cycle 2: upstream down")
	})

	snap := waitStatus(t, m, id, StatusFailed)
	if snap.Error != "monitor cycle 2: upstream down" {
		t.Fatalf("unexpected error text %q", snap.Error)
	}
}

func TestStopCancelsSession(t *testing.T) {
	m, _ := newManager(context.Background(), 0)

	id, _ := m.Start(context.Background(), "flights", blockUntilDone)

	if err := m.Stop(id); err != nil {
		t.Fatalf("stop: %v", err)
	}

	waitStatus(t, m, id, StatusCancelled)

	if err := m.Stop("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	if _, err := m.Get("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMaxSessions(t *testing.T) {
	m, _ := newManager(context.Background(), 1)

	first, err := m.Start(context.Background(), "flights", blockUntilDone)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	if _, err := m.Start(context.Background(), "flights", blockUntilDone); !errors.Is(err, ErrTooManySessions) {
		t.Fatalf("expected too many sessions, got %v", err)
	}

	_ = m.Stop(first)
	waitStatus(t, m, first, StatusCancelled)

	if _, err := m.Start(context.Background(), "flights", blockUntilDone); err != nil {
		t.Fatalf("expected a free slot after stop, got %v", err)
	}

	if got := len(m.List()); got != 2 {
		t.Fatalf("expected both sessions listed, got %d", got)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := m.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestShutdownCancelsAndRejects(t *testing.T) {
	m, g := newManager(context.Background(), 0)

	ids := make([]string, 0, 3)

	for range 3 {
		id, err := m.Start(context.Background(), "hotels", blockUntilDone)
		if err != nil {
			t.Fatalf("start: %v", err)
		}

		ids = append(ids, id)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := m.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	for _, id := range ids {
		if snap, _ := m.Get(id); snap.Status != StatusCancelled {
			t.Fatalf("session %s: expected cancelled, got %s", id, snap.Status)
		}
	}

	if g.value() != 0 {
		t.Fatalf("expected gauge back at 0, got %d", g.value())
	}

	if _, err := m.Start(context.Background(), "hotels", blockUntilDone); !errors.Is(err, ErrShuttingDown) {
		t.Fatalf("expected shutting down, got %v", err)
	}
}

func TestParentContextStopsSessions(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	m, _ := newManager(parent, 0)

	// The request context ending must not stop the session.
	reqCtx, reqCancel := context.WithCancel(context.Background())
	id, _ := m.Start(reqCtx, "flights", blockUntilDone)
	reqCancel()

	time.Sleep(20 * time.Millisecond)

	if snap, _ := m.Get(id); snap.Status != StatusRunning {
		t.Fatalf("expected running after request ended, got %s", snap.Status)
	}

	cancel()
	waitStatus(t, m, id, StatusCancelled)
}

func TestStartIDError(t *testing.T) {
	m := New(context.Background(), Conf{L: logger.NewNop(), IDGen: &seqIDs{err: errors.New("entropy")}, Metrics: nil, MaxSessions: 0})

	if _, err := m.Start(context.Background(), "flights", blockUntilDone); !errors.Is(err, ErrNextID) {
		t.Fatalf("expected id error, got %v", err)
	}
}

func TestFinishedSessionsArePruned(t *testing.T) {
	m, _ := newManager(context.Background(), 0)

	id, _ := m.Start(context.Background(), "flights", func(context.Context, Deliver) error { return nil })
	waitStatus(t, m, id, StatusFinished)

	m.mu.Lock()
	m.now = func() time.Time { return time.Now().Add(2 * finishedRetained) }
	m.mu.Unlock()

	if _, err := m.Start(context.Background(), "flights", func(context.Context, Deliver) error { return nil }); err != nil {
		t.Fatalf("start: %v", err)
	}

	if _, err := m.Get(id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected old session pruned, got %v", err)
	}
}
