package pointer

import (
	"context"

	"github.com/go-vgo/robotgo"
)

// toggle presses or releases a mouse button. Tests replace it.
var toggle = robotgo.Toggle

// Robot injects pointer events through robotgo.
type Robot struct{}

// NewRobot creates a Robot injector.
func NewRobot() *Robot {
	return &Robot{}
}

// MoveTo moves the cursor to absolute screen coordinates.
func (r *Robot) MoveTo(ctx context.Context, x, y int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	robotgo.Move(x, y)
	return nil
}

// ButtonDown presses and holds a mouse button.
func (r *Robot) ButtonDown(ctx context.Context, b Button) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return toggle(string(b))
}

// ButtonUp releases a mouse button.
func (r *Robot) ButtonUp(ctx context.Context, b Button) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return toggle(string(b), "up")
}

// ScrollBy scrolls vertically. Positive amounts scroll up.
func (r *Robot) ScrollBy(ctx context.Context, amount int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	robotgo.Scroll(0, amount)
	return nil
}

// Position returns the current cursor location.
func (r *Robot) Position() (int, int, error) {
	x, y := robotgo.Location()
	return x, y, nil
}

// ScreenSize returns the main display size in pixels.
func (r *Robot) ScreenSize() (int, int) {
	return robotgo.GetScreenSize()
}
