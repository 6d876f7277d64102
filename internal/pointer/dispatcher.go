package pointer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"
)

// DefaultTimeout bounds a single injector call.
const DefaultTimeout = 20 * time.Millisecond

var (
	// ErrInjection wraps an error returned by an injector.
	ErrInjection = errors.New("pointer injection failed")
	// ErrTimeout is reported when an injector call exceeds its deadline.
	ErrTimeout = errors.New("pointer injection timed out")
)

// Stats counts dispatched and failed actions.
type Stats struct {
	Sent     uint64 `json:"sent"`
	Failed   uint64 `json:"failed"`
	TimedOut uint64 `json:"timed_out"`
	Dropped  uint64 `json:"dropped"`
}

// Dispatcher sends actions to an Injector with a per-call deadline.
// Failures are logged and swallowed so the control loop keeps advancing.
//
// At most one injector call runs at a time. A call that outlives its
// deadline keeps the injector until it returns, and nothing else is
// injected meanwhile, so the OS never sees actions out of order.
type Dispatcher struct {
	injector Injector
	timeout  time.Duration
	logger   *log.Logger
	slot     chan struct{}

	sent     atomic.Uint64
	failed   atomic.Uint64
	timedOut atomic.Uint64
	dropped  atomic.Uint64
}

// NewDispatcher creates a Dispatcher. A non-positive timeout uses DefaultTimeout
// and a nil logger uses the standard logger.
func NewDispatcher(inj Injector, timeout time.Duration, logger *log.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Dispatcher{
		injector: inj,
		timeout:  timeout,
		logger:   logger,
		slot:     make(chan struct{}, 1),
	}
}

// Dispatch sends the actions in order. It returns the first error seen,
// for callers that want to observe failures. An injector error does not stop
// the remaining actions, but a timeout drops them.
func (d *Dispatcher) Dispatch(ctx context.Context, actions []Action) error {
	var first error
	for i, a := range actions {
		err := d.send(ctx, a)
		if err == nil {
			continue
		}
		d.logger.Printf("pointer: %s: %v", a, err)
		if first == nil {
			first = err
		}
		if errors.Is(err, ErrTimeout) {
			if rest := actions[i+1:]; len(rest) > 0 {
				d.dropped.Add(uint64(len(rest)))
				d.logger.Printf("pointer: dropped %d actions after timeout", len(rest))
			}
			break
		}
	}
	return first
}

// send runs one injector call. It waits for an earlier abandoned call to
// finish, within the same deadline. A call that outlives the deadline is
// abandoned; the injector sees a cancelled context.
func (d *Dispatcher) send(parent context.Context, a Action) error {
	if d.injector == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(parent, d.timeout)
	defer cancel()

	select {
	case d.slot <- struct{}{}:
	case <-ctx.Done():
		d.dropped.Add(1)
		return fmt.Errorf("%w waiting for an earlier call", ErrTimeout)
	}

	done := make(chan error, 1)
	go func() {
		defer func() { <-d.slot }()
		done <- Apply(ctx, d.injector, a)
	}()

	select {
	case err := <-done:
		if err == nil {
			d.sent.Add(1)
			return nil
		}
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return d.timedOutError()
		}
		d.failed.Add(1)
		return fmt.Errorf("%w: %v", ErrInjection, err)
	case <-ctx.Done():
		return d.timedOutError()
	}
}

func (d *Dispatcher) timedOutError() error {
	d.timedOut.Add(1)
	return fmt.Errorf("%w after %s", ErrTimeout, d.timeout)
}

// Stats returns a snapshot of the dispatch counters.
func (d *Dispatcher) Stats() Stats {
	return Stats{
		Sent:     d.sent.Load(),
		Failed:   d.failed.Load(),
		TimedOut: d.timedOut.Load(),
		Dropped:  d.dropped.Load(),
	}
}
