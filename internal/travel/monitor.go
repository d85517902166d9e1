package travel

import (
	"context"
	"fmt"
	"time"
)

// CycleStats describes one finished poll of a monitor session.
type CycleStats struct {
	Cycle  int
	Polled int
	Fresh  int
}

type WatchOptions[T any] struct {
	// Interval is the pause between two polls.
	Interval time.Duration
	// MaxCycles caps the number of polls. Zero or less means no cap.
	MaxCycles int
	// Deliver receives fresh offers in poll order and is never called with an empty batch.
	Deliver func(offers []T)
	OnCycle func(stats CycleStats)
}

// Watch polls find until it runs out of cycles or ctx is done, delivering only offers whose key
// it has not seen before in this session. With alerts off and no cycle cap it does nothing.
// A find error ends the session and is returned.
func Watch[T any](
	ctx context.Context,
	find func(ctx context.Context) ([]T, error),
	key func(T) string,
	alerts bool,
	opts WatchOptions[T],
) error {
	if !alerts && opts.MaxCycles <= 0 {
		return nil
	}

	seen := make(map[string]struct{})
	cycles := 0

	for alerts || cycles < opts.MaxCycles {
		if err := ctx.Err(); err != nil {
			return err //nolint:wrapcheck
		}

		offers, err := find(ctx)
		if err != nil {
			return fmt.Errorf("monitor cycle %d: %w", cycles+1, err)
		}

		var fresh []T

		for _, offer := range offers {
			k := key(offer)
			if _, ok := seen[k]; ok {
				continue
			}

			seen[k] = struct{}{}
			fresh = append(fresh, offer)
		}

		cycles++

		if len(fresh) > 0 && opts.Deliver != nil {
			opts.Deliver(fresh)
		}

		if opts.OnCycle != nil {
			opts.OnCycle(CycleStats{Cycle: cycles, Polled: len(offers), Fresh: len(fresh)})
		}

		if opts.MaxCycles > 0 && cycles >= opts.MaxCycles {
			break
		}

		if err := sleep(ctx, opts.Interval); err != nil {
			return err
		}
	}

	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err //nolint:wrapcheck
	}

	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err() //nolint:wrapcheck
	case <-timer.C:
		return nil
	}
}

// MonitorOptions configures a flight or hotel monitor session.
type MonitorOptions[T any] struct {
	Interval  time.Duration
	MaxCycles int
	Callback  func(offers []T)
}

func (o MonitorOptions[T]) watchOptions(metrics monitorMetrics, kind string) WatchOptions[T] {
	opts := WatchOptions[T]{
		Interval:  o.Interval,
		MaxCycles: o.MaxCycles,
		Deliver:   o.Callback,
		OnCycle:   nil,
	}

	if metrics != nil {
		opts.OnCycle = func(stats CycleStats) {
			metrics.ObserveMonitorCycle(kind, stats.Fresh)
		}
	}

	return opts
}
