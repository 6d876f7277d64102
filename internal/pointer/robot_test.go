package pointer

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRobot_ButtonErrors(t *testing.T) {
	failure := errors.New("no input device")
	var calls [][]interface{}
	orig := toggle
	toggle = func(args ...interface{}) error {
		calls = append(calls, args)
		return failure
	}
	defer func() { toggle = orig }()

	r := NewRobot()
	if err := r.ButtonDown(context.Background(), ButtonLeft); !errors.Is(err, failure) {
		t.Errorf("ButtonDown() error = %v, want %v", err, failure)
	}
	if err := r.ButtonUp(context.Background(), ButtonRight); !errors.Is(err, failure) {
		t.Errorf("ButtonUp() error = %v, want %v", err, failure)
	}

	want := [][]interface{}{{"left"}, {"right", "up"}}
	if diff := cmp.Diff(want, calls); diff != "" {
		t.Errorf("toggle calls mismatch (-want +got):\n%s", diff)
	}
}

func TestRobot_CancelledContext(t *testing.T) {
	orig := toggle
	toggle = func(...interface{}) error {
		t.Error("toggle called with a cancelled context")
		return nil
	}
	defer func() { toggle = orig }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := NewRobot().ButtonDown(ctx, ButtonLeft); !errors.Is(err, context.Canceled) {
		t.Errorf("ButtonDown() error = %v, want context.Canceled", err)
	}
}

func TestDispatcher_ReportsRobotFailure(t *testing.T) {
	orig := toggle
	toggle = func(...interface{}) error { return errors.New("denied") }
	defer func() { toggle = orig }()

	d := NewDispatcher(NewRobot(), 0, nil)
	err := d.Dispatch(context.Background(), []Action{Down(ButtonLeft)})
	if !errors.Is(err, ErrInjection) {
		t.Errorf("Dispatch() error = %v, want ErrInjection", err)
	}
	if got := d.Stats().Failed; got != 1 {
		t.Errorf("Failed = %d, want 1", got)
	}
}
