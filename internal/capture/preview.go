package capture

import (
	"sync"
	"sync/atomic"

	"gocv.io/x/gocv"
)

// Preview keeps a copy of the most recently processed frame for viewers.
// Copies are made only while someone is watching.
type Preview struct {
	mu       sync.Mutex
	frame    gocv.Mat
	has      bool
	seq      uint64
	watchers atomic.Int32
}

func NewPreview() *Preview {
	return &Preview{frame: gocv.NewMat()}
}

// Watch registers a viewer. The returned func unregisters it.
func (p *Preview) Watch() func() {
	p.watchers.Add(1)
	var once sync.Once
	return func() { once.Do(func() { p.watchers.Add(-1) }) }
}

// Watching reports whether any viewer is registered.
func (p *Preview) Watching() bool {
	return p.watchers.Load() > 0
}

// Update copies m when someone is watching.
func (p *Preview) Update(m *gocv.Mat) {
	if m == nil || m.Empty() || !p.Watching() {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	m.CopyTo(&p.frame)
	p.has = true
	p.seq++
}

// Encode returns the newest frame as a JPEG and its sequence number. It
// reports false when there is no frame newer than after.
func (p *Preview) Encode(after uint64) ([]byte, uint64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.has || p.seq == after {
		return nil, p.seq, false
	}

	buf, err := gocv.IMEncode(".jpg", p.frame)
	if err != nil {
		return nil, p.seq, false
	}
	defer buf.Close()

	data := buf.GetBytes()
	out := make([]byte, len(data))
	copy(out, data)
	return out, p.seq, true
}

// Close releases the stored frame.
func (p *Preview) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.frame.Close()
	p.has = false
}
