// Package main provides a pointer plugin for Linux.
// It injects cursor moves, button presses and wheel scrolls through ydotool,
// which works under Wayland where X11 injection does not.
//
// Every executed action spawns one ydotool process, which can take longer
// than the controller's dispatch deadline. Moves that queue up behind a slow
// call are collapsed into the newest one.
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
)

// Action mirrors the pointer action sent by the controller.
type Action struct {
	Kind   string `json:"kind"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Button string `json:"button"`
	Amount int    `json:"amount"`
}

// Request is one line read from stdin.
type Request struct {
	ID     uint64          `json:"id"`
	Action Action          `json:"action"`
	Config json.RawMessage `json:"config"`
}

// Response is one line written to stdout.
type Response struct {
	ID      uint64 `json:"id"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Config is the optional plugin configuration from plugin.json.
type Config struct {
	// Binary overrides the ydotool executable.
	Binary string `json:"binary"`
}

// ydotool click codes: 0x40 is down, 0x80 is up, low bits pick the button.
var buttonCodes = map[string]int{
	"left":  0x00,
	"right": 0x01,
}

// maxBatch bounds how many queued lines are read before acting.
const maxBatch = 64

func main() {
	lines := make(chan []byte, maxBatch)
	go readLines(os.Stdin, lines)
	serve(lines, os.Stdout, handle)
}

func readLines(r io.Reader, lines chan<- []byte) {
	defer close(lines)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lines <- append([]byte(nil), scanner.Bytes()...)
	}
}

// serve answers every request in order. Each batch is whatever has queued
// up since the last one.
func serve(lines <-chan []byte, w io.Writer, do func(Request) error) {
	out := json.NewEncoder(w)
	for line := range lines {
		batch := [][]byte{line}
	drain:
		for len(batch) < maxBatch {
			select {
			case next, ok := <-lines:
				if !ok {
					break drain
				}
				batch = append(batch, next)
			default:
				break drain
			}
		}

		var reqs []Request
		for _, l := range batch {
			var req Request
			if err := json.Unmarshal(l, &req); err != nil {
				out.Encode(Response{Error: fmt.Sprintf("failed to decode request: %v", err)})
				continue
			}
			reqs = append(reqs, req)
		}

		for _, group := range coalesce(reqs) {
			last := group[len(group)-1]
			resp := Response{Success: true}
			if err := do(last); err != nil {
				resp.Success = false
				resp.Error = fmt.Sprintf("action %s failed: %v", last.Action.Kind, err)
			}
			for _, req := range group {
				resp.ID = req.ID
				out.Encode(resp)
			}
		}
	}
}

// coalesce groups requests into runs that need one ydotool call each.
// Consecutive moves form one run that only executes its last move.
func coalesce(reqs []Request) [][]Request {
	var runs [][]Request
	for _, req := range reqs {
		n := len(runs)
		if n > 0 && req.Action.Kind == "move" && runs[n-1][0].Action.Kind == "move" {
			runs[n-1] = append(runs[n-1], req)
			continue
		}
		runs = append(runs, []Request{req})
	}
	return runs
}

func handle(req Request) error {
	args, err := commandArgs(req.Action)
	if err != nil {
		return err
	}
	return run(binary(req.Config), args...)
}

// commandArgs translates an action into ydotool arguments.
func commandArgs(a Action) ([]string, error) {
	switch a.Kind {
	case "move":
		return []string{"mousemove", "--absolute", "-x", strconv.Itoa(a.X), "-y", strconv.Itoa(a.Y)}, nil
	case "down", "up":
		code, ok := buttonCodes[a.Button]
		if !ok {
			return nil, fmt.Errorf("unknown button %q", a.Button)
		}
		if a.Kind == "down" {
			code |= 0x40
		} else {
			code |= 0x80
		}
		return []string{"click", fmt.Sprintf("0x%02X", code)}, nil
	case "scroll":
		return []string{"mousemove", "--wheel", "-x", "0", "-y", strconv.Itoa(a.Amount)}, nil
	}
	return nil, fmt.Errorf("unknown action %q", a.Kind)
}

func binary(raw json.RawMessage) string {
	var cfg Config
	if len(raw) > 0 && json.Unmarshal(raw, &cfg) == nil && cfg.Binary != "" {
		return cfg.Binary
	}
	return "ydotool"
}

// run executes ydotool and returns any error with its output.
func run(bin string, args ...string) error {
	cmd := exec.Command(bin, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, string(output))
	}
	return nil
}
