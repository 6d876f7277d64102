package plugin

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/ayusman/mudra/internal/pointer"
)

// stopGrace is how long Close waits for the helper to exit on its own.
const stopGrace = 2 * time.Second

var (
	// ErrNotRunning is returned when calling a closed process.
	ErrNotRunning = errors.New("plugin process is not running")
	// ErrExited is returned when the helper exits while a call is pending.
	ErrExited = errors.New("plugin process exited")
	// ErrRejected wraps an error reported by the helper.
	ErrRejected = errors.New("plugin rejected action")
)

// Process is a running pointer helper. Each action is written to its stdin
// as one JSON line and answered by one JSON line on stdout carrying the same
// id. Calls are serialized; answers to abandoned calls are discarded.
// Writes honor the caller's deadline, so a helper that stops reading cannot
// block Send or Close.
type Process struct {
	plugin *Plugin

	// calls holds one token while a call owns the pipe.
	calls     chan struct{}
	cmd       *exec.Cmd
	stdin     *os.File
	enc       *json.Encoder
	responses chan Response
	done      chan struct{}

	mu      sync.Mutex
	nextID  uint64
	running bool
}

// Start launches the plugin executable in its own directory.
func Start(p *Plugin) (*Process, error) {
	cmd := exec.Command(p.Executable, p.Manifest.Args...)
	cmd.Dir = p.Path
	cmd.Stderr = os.Stderr

	// os.Pipe rather than StdinPipe so writes can carry a deadline.
	stdinR, stdin, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("create stdin pipe: %w", err)
	}
	cmd.Stdin = stdinR
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		stdinR.Close()
		stdin.Close()
		return nil, fmt.Errorf("create stdout pipe: %w", err)
	}
	err = cmd.Start()
	stdinR.Close()
	if err != nil {
		stdin.Close()
		return nil, fmt.Errorf("start plugin %s: %w", p.Manifest.Name, err)
	}

	proc := &Process{
		plugin:    p,
		calls:     make(chan struct{}, 1),
		cmd:       cmd,
		stdin:     stdin,
		enc:       json.NewEncoder(stdin),
		responses: make(chan Response, 16),
		done:      make(chan struct{}),
		running:   true,
	}
	go proc.readLoop(stdout)
	return proc, nil
}

func (p *Process) readLoop(stdout io.Reader) {
	defer close(p.done)

	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		var resp Response
		if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
			log.Printf("plugin %s: bad response %q: %v", p.plugin.Manifest.Name, scanner.Text(), err)
			continue
		}
		select {
		case p.responses <- resp:
		default:
			// Backlog of abandoned answers; drop.
		}
	}
}

// Name returns the plugin name.
func (p *Process) Name() string {
	return p.plugin.Manifest.Name
}

// Send writes one action and waits for its answer or for ctx to end.
func (p *Process) Send(ctx context.Context, a pointer.Action) error {
	if !p.isRunning() {
		return ErrNotRunning
	}
	select {
	case p.calls <- struct{}{}:
		defer func() { <-p.calls }()
	case <-p.done:
		return ErrExited
	case <-ctx.Done():
		return ctx.Err()
	}

	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return ErrNotRunning
	}
	p.nextID++
	id := p.nextID
	p.mu.Unlock()

	if err := p.write(ctx, Request{ID: id, Action: a, Config: p.plugin.Manifest.Config}); err != nil {
		return err
	}

	for {
		select {
		case resp := <-p.responses:
			if resp.ID != id {
				continue
			}
			if !resp.Success {
				return fmt.Errorf("%w: %s", ErrRejected, resp.Error)
			}
			return nil
		case <-p.done:
			return ErrExited
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (p *Process) isRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// write encodes req before ctx's deadline. A request cut short leaves a
// partial line on the pipe, so the process is closed.
func (p *Process) write(ctx context.Context, req Request) error {
	deadline, _ := ctx.Deadline()
	if err := p.stdin.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("write request: %w", err)
	}
	err := p.enc.Encode(req)
	if err == nil {
		return nil
	}
	if errors.Is(err, os.ErrDeadlineExceeded) {
		log.Printf("plugin %s: helper stopped reading, closing", p.Name())
		go p.Close()
		return context.DeadlineExceeded
	}
	if errors.Is(err, os.ErrClosed) {
		return ErrNotRunning
	}
	return fmt.Errorf("write request: %w", err)
}

func (p *Process) MoveTo(ctx context.Context, x, y int) error {
	return p.Send(ctx, pointer.Move(x, y))
}

func (p *Process) ButtonDown(ctx context.Context, b pointer.Button) error {
	return p.Send(ctx, pointer.Down(b))
}

func (p *Process) ButtonUp(ctx context.Context, b pointer.Button) error {
	return p.Send(ctx, pointer.Up(b))
}

func (p *Process) ScrollBy(ctx context.Context, amount int) error {
	return p.Send(ctx, pointer.Scroll(amount))
}

// Close ends the helper by closing its stdin, killing it if it does not
// exit within stopGrace. A pending write fails at once.
func (p *Process) Close() error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	p.mu.Unlock()

	p.stdin.Close()

	select {
	case <-p.done:
	case <-time.After(stopGrace):
		p.cmd.Process.Kill()
		<-p.done
	}

	err := p.cmd.Wait()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// Killed or non-zero exit after stdin closed.
		log.Printf("plugin %s: %v", p.Name(), err)
		return nil
	}
	return err
}
