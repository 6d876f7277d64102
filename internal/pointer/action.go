// Package pointer defines pointer actions and the collaborators that inject them into the OS.
package pointer

import (
	"context"
	"errors"
	"fmt"
)

// Button identifies a mouse button.
type Button string

const (
	// ButtonLeft is the primary button.
	ButtonLeft Button = "left"
	// ButtonRight is the secondary button.
	ButtonRight Button = "right"
)

// Kind is the type of a pointer action.
type Kind string

const (
	KindMove   Kind = "move"
	KindDown   Kind = "down"
	KindUp     Kind = "up"
	KindScroll Kind = "scroll"
)

// Action is a single pointer event emitted by the controller.
type Action struct {
	Kind   Kind   `json:"kind"`
	X      int    `json:"x,omitempty"`
	Y      int    `json:"y,omitempty"`
	Button Button `json:"button,omitempty"`
	// Amount is the vertical scroll distance. Positive scrolls up.
	Amount int `json:"amount,omitempty"`
}

// Move returns a move-to action.
func Move(x, y int) Action {
	return Action{Kind: KindMove, X: x, Y: y}
}

// Down returns a button-down action.
func Down(b Button) Action {
	return Action{Kind: KindDown, Button: b}
}

// Up returns a button-up action.
func Up(b Button) Action {
	return Action{Kind: KindUp, Button: b}
}

// Scroll returns a scroll action.
func Scroll(amount int) Action {
	return Action{Kind: KindScroll, Amount: amount}
}

// Validate checks that the action is well formed.
func (a Action) Validate() error {
	switch a.Kind {
	case KindMove:
		if a.X < 0 || a.Y < 0 {
			return fmt.Errorf("move to negative coordinate (%d, %d)", a.X, a.Y)
		}
	case KindDown, KindUp:
		if a.Button != ButtonLeft && a.Button != ButtonRight {
			return fmt.Errorf("unknown button %q", a.Button)
		}
	case KindScroll:
		if a.Amount == 0 {
			return errors.New("scroll amount cannot be zero")
		}
	default:
		return fmt.Errorf("unknown action kind %q", a.Kind)
	}
	return nil
}

func (a Action) String() string {
	switch a.Kind {
	case KindMove:
		return fmt.Sprintf("move(%d,%d)", a.X, a.Y)
	case KindDown, KindUp:
		return fmt.Sprintf("%s(%s)", a.Kind, a.Button)
	case KindScroll:
		return fmt.Sprintf("scroll(%d)", a.Amount)
	}
	return string(a.Kind)
}

// Injector delivers pointer events to the operating system.
// Calls are best effort; the controller never stops on an error.
type Injector interface {
	MoveTo(ctx context.Context, x, y int) error
	ButtonDown(ctx context.Context, b Button) error
	ButtonUp(ctx context.Context, b Button) error
	ScrollBy(ctx context.Context, amount int) error
}

// Apply sends a single action through the injector.
func Apply(ctx context.Context, inj Injector, a Action) error {
	switch a.Kind {
	case KindMove:
		return inj.MoveTo(ctx, a.X, a.Y)
	case KindDown:
		return inj.ButtonDown(ctx, a.Button)
	case KindUp:
		return inj.ButtonUp(ctx, a.Button)
	case KindScroll:
		return inj.ScrollBy(ctx, a.Amount)
	}
	return fmt.Errorf("unknown action kind %q", a.Kind)
}
