package wait

import (
	"context"
	"time"
)

// DefaultInterval is the pause between two completion checks.
const DefaultInterval = 200 * time.Millisecond

// Pauser suspends the waiting goroutine briefly between completion checks.
// Implementations that host a foreign event loop service it here.
type Pauser interface {
	Pause(ctx context.Context) error
}

// PauserFunc adapts a function to Pauser.
type PauserFunc func(ctx context.Context) error

func (f PauserFunc) Pause(ctx context.Context) error { return f(ctx) }

// SleepPauser sleeps for Interval.
type SleepPauser struct {
	Interval time.Duration
}

func (p SleepPauser) Pause(ctx context.Context) error {
	t := time.NewTimer(interval(p.Interval))
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// HostLoop is an event loop owned by the calling process, such as a
// plotting library's interactive window.
type HostLoop interface {
	// Active reports whether the loop currently has something to draw.
	Active() bool
	// Service processes pending events and redraws for about d.
	Service(d time.Duration)
}

// HostPauser services Host for each pause while it is active, and sleeps
// otherwise.
type HostPauser struct {
	Host     HostLoop
	Interval time.Duration
}

func (p HostPauser) Pause(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.Host == nil || !p.Host.Active() {
		return SleepPauser{Interval: p.Interval}.Pause(ctx)
	}
	p.Host.Service(interval(p.Interval))
	return ctx.Err()
}

// Default returns a HostPauser when host is non-nil, and a SleepPauser
// otherwise.
func Default(host HostLoop, d time.Duration) Pauser {
	if host != nil {
		return HostPauser{Host: host, Interval: d}
	}
	return SleepPauser{Interval: d}
}

func interval(d time.Duration) time.Duration {
	if d <= 0 {
		return DefaultInterval
	}
	return d
}
