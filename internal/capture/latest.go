package capture

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// Frame is a captured image with its sequence number and capture time.
type Frame struct {
	Mat *gocv.Mat
	Seq uint64
	At  time.Time
}

// Close releases the image.
func (f Frame) Close() {
	if f.Mat != nil {
		f.Mat.Close()
	}
}

// Latest is a depth-one mailbox. Publishing replaces and closes any frame
// that has not been taken yet, so the consumer always sees the newest image.
type Latest struct {
	mu      sync.Mutex
	pending *Frame
	seq     uint64
	dropped uint64
	closed  bool
	notify  chan struct{}
}

func NewLatest() *Latest {
	return &Latest{notify: make(chan struct{}, 1)}
}

// Publish stores m as the newest frame and takes ownership of it.
func (l *Latest) Publish(m *gocv.Mat, at time.Time) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		m.Close()
		return
	}
	if l.pending != nil {
		l.pending.Close()
		l.dropped++
	}
	l.seq++
	l.pending = &Frame{Mat: m, Seq: l.seq, At: at}
	l.mu.Unlock()

	select {
	case l.notify <- struct{}{}:
	default:
	}
}

// Notify fires after a publish. A single signal may cover several publishes.
func (l *Latest) Notify() <-chan struct{} {
	return l.notify
}

// Take removes and returns the pending frame. The caller closes it.
func (l *Latest) Take() (Frame, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.pending == nil {
		return Frame{}, false
	}
	f := *l.pending
	l.pending = nil
	return f, true
}

// Dropped counts frames replaced before they were taken.
func (l *Latest) Dropped() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dropped
}

// Close discards the pending frame. Later publishes are closed immediately.
func (l *Latest) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.pending != nil {
		l.pending.Close()
		l.pending = nil
	}
	l.closed = true
}

// readRetry is the pause after a failed read.
const readRetry = 50 * time.Millisecond

// Pump reads cam until ctx is done and publishes each frame into out. When
// gate is set, frames that arrive while the scene is idle are dropped and the
// camera rate follows the gate.
func Pump(ctx context.Context, cam Camera, out *Latest, gate *ActivityGate) {
	var lastErr error
	for {
		if ctx.Err() != nil {
			return
		}

		mat, err := cam.ReadFrame()
		if err != nil {
			if !errors.Is(err, lastErr) {
				log.Printf("capture: read failed: %v", err)
				lastErr = err
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(readRetry):
			}
			continue
		}
		lastErr = nil

		now := time.Now()
		if gate != nil {
			active, changed := gate.Observe(mat, now)
			if changed {
				cam.SetFPS(gate.FPS())
			}
			if !active {
				mat.Close()
				continue
			}
		}
		out.Publish(mat, now)
	}
}
