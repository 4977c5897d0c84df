// Package wait runs a blocking job in the background while the calling
// goroutine keeps pausing through a Pauser, so an event loop hosted by the
// caller keeps receiving its ticks until the job completes.
package wait

import (
	"context"
	"errors"
	"sync/atomic"
)

// State is the position of a Loop in its lifecycle.
type State int32

const (
	Idle State = iota
	Dispatched
	Polling
	Completed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Dispatched:
		return "dispatched"
	case Polling:
		return "polling"
	case Completed:
		return "completed"
	}
	return "unknown"
}

// ErrReused is returned when Run is called on a loop that already ran.
var ErrReused = errors.New("wait loop already used")

// Loop waits for exactly one job. Create one per call.
type Loop struct {
	pauser Pauser
	state  atomic.Int32
	pauses atomic.Int64
}

// New returns an idle loop. A nil pauser sleeps DefaultInterval.
func New(p Pauser) *Loop {
	if p == nil {
		p = SleepPauser{Interval: DefaultInterval}
	}
	return &Loop{pauser: p}
}

// State returns the current state.
func (l *Loop) State() State {
	return State(l.state.Load())
}

// Pauses returns how many times the loop paused.
func (l *Loop) Pauses() int64 {
	return l.pauses.Load()
}

// Run starts job on its own goroutine and pauses on the calling goroutine
// until job returns. There is no timeout; ctx cancellation stops the wait
// (the job itself is expected to observe the same ctx).
func (l *Loop) Run(ctx context.Context, job func() error) error {
	if !l.state.CompareAndSwap(int32(Idle), int32(Dispatched)) {
		return ErrReused
	}
	defer l.state.Store(int32(Completed))

	done := make(chan error, 1)
	go func() {
		done <- job()
	}()

	l.state.Store(int32(Polling))
	for {
		select {
		case err := <-done:
			return err
		default:
		}
		if err := l.pauser.Pause(ctx); err != nil {
			// Prefer the job's own outcome if it raced the cancellation.
			select {
			case jobErr := <-done:
				return jobErr
			default:
				return err
			}
		}
		l.pauses.Add(1)
	}
}
