package pointer

import (
	"context"
	"sync"
	"time"
)

// Recorder is an Injector that records actions instead of touching the OS.
// It is used by tests and by headless runs.
type Recorder struct {
	mu      sync.Mutex
	actions []Action
	fail    map[Kind]error
	delay   time.Duration
	x, y    int
}

// NewRecorder creates a Recorder whose cursor starts at (x, y).
func NewRecorder(x, y int) *Recorder {
	return &Recorder{x: x, y: y, fail: make(map[Kind]error)}
}

// FailOn makes every action of the given kind return err.
func (r *Recorder) FailOn(k Kind, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fail[k] = err
}

// SetDelay makes every call block for d or until its context is done.
func (r *Recorder) SetDelay(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delay = d
}

func (r *Recorder) record(ctx context.Context, a Action) error {
	r.mu.Lock()
	delay := r.delay
	err := r.fail[a.Kind]
	r.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions = append(r.actions, a)
	if a.Kind == KindMove {
		r.x, r.y = a.X, a.Y
	}
	return nil
}

func (r *Recorder) MoveTo(ctx context.Context, x, y int) error {
	return r.record(ctx, Move(x, y))
}

func (r *Recorder) ButtonDown(ctx context.Context, b Button) error {
	return r.record(ctx, Down(b))
}

func (r *Recorder) ButtonUp(ctx context.Context, b Button) error {
	return r.record(ctx, Up(b))
}

func (r *Recorder) ScrollBy(ctx context.Context, amount int) error {
	return r.record(ctx, Scroll(amount))
}

// Position returns the last position moved to.
func (r *Recorder) Position() (int, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.x, r.y, nil
}

// Actions returns a copy of the recorded actions.
func (r *Recorder) Actions() []Action {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Action, len(r.actions))
	copy(out, r.actions)
	return out
}

// Reset clears the recorded actions.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions = nil
}
