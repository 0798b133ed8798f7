// Package engine connects the harness to physics engine backends.
// Each backend is reached through a bridge process speaking the
// simproto JSON-lines protocol; the Bridge type adapts that protocol
// to the sim.Engine interface.
package engine

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"

	"github.com/Motphys/phys-bench/internal/sim"
	"github.com/Motphys/phys-bench/internal/simproto"
)

// Bridge drives a simulation backend over a request/response stream.
// It is not safe for concurrent use: the task loop is single-threaded
// and each tick blocks on the bridge's reply before proceeding.
type Bridge struct {
	w       *bufio.Writer
	scanner *bufio.Scanner

	cmd    *exec.Cmd
	cancel context.CancelFunc

	pending int // capture requests not yet drained
	closed  bool
}

// NewBridge creates a Bridge over an existing reader/writer pair.
// Process-backed bridges are created with StartProcess; this
// constructor exists for in-memory peers in tests.
func NewBridge(w io.Writer, r io.Reader) *Bridge {
	scanner := bufio.NewScanner(r)
	// Frame payloads can make for long lines.
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 8*1024*1024)
	return &Bridge{w: bufio.NewWriter(w), scanner: scanner}
}

// StartProcess launches a bridge command and connects to its pipes.
// The bridge's stderr is passed through to the harness's stderr.
func StartProcess(ctx context.Context, argv []string, dir string) (*Bridge, error) {
	if len(argv) == 0 {
		return nil, fmt.Errorf("bridge command is empty")
	}
	ctx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		cancel()
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("starting bridge %s: %w", argv[0], err)
	}

	b := NewBridge(stdin, stdout)
	b.cmd = cmd
	b.cancel = cancel
	return b, nil
}

// Load loads a scene into the backend. A load failure is fatal for
// the run.
func (b *Bridge) Load(req simproto.LoadRequest) error {
	return b.roundTrip(simproto.OpLoad, req, nil)
}

// SetArmTarget writes the 7 arm actuator targets
func (b *Bridge) SetArmTarget(target [7]float64) error {
	return b.roundTrip(simproto.OpCtrl, simproto.CtrlRequest{Arm: target[:]}, nil)
}

// SetGripperTarget writes the finger actuator target
func (b *Bridge) SetGripperTarget(target float64) error {
	return b.roundTrip(simproto.OpCtrl, simproto.CtrlRequest{Gripper: &target}, nil)
}

// Step advances the simulation by one timestep
func (b *Bridge) Step() error {
	return b.roundTrip(simproto.OpStep, nil, nil)
}

// ObjectHeight returns the object's vertical position
func (b *Bridge) ObjectHeight() (float64, error) {
	var resp simproto.HeightResponse
	if err := b.roundTrip(simproto.OpHeight, nil, &resp); err != nil {
		return 0, err
	}
	return resp.Height, nil
}

// RequestCapture queues an asynchronous frame capture
func (b *Bridge) RequestCapture() error {
	var resp simproto.CaptureResponse
	if err := b.roundTrip(simproto.OpCapture, nil, &resp); err != nil {
		return err
	}
	b.pending++
	return nil
}

// Completed drains captures the bridge has finished, in request
// order, without waiting for pending ones.
func (b *Bridge) Completed() ([]sim.Frame, error) {
	if b.pending == 0 {
		return nil, nil
	}
	var resp simproto.PollResponse
	if err := b.roundTrip(simproto.OpPoll, nil, &resp); err != nil {
		return nil, err
	}
	frames := make([]sim.Frame, 0, len(resp.Frames))
	for _, f := range resp.Frames {
		frames = append(frames, sim.Frame{Width: f.Width, Height: f.Height, Pixels: f.Pixels})
	}
	b.pending -= len(frames)
	return frames, nil
}

// Close asks the bridge to quit and reaps the process
func (b *Bridge) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true

	// Best effort: the bridge may already be gone.
	if data, err := simproto.MarshalRequest(simproto.OpQuit, nil); err == nil {
		b.w.Write(data)
		b.w.WriteByte('\n')
		b.w.Flush()
	}

	if b.cmd != nil {
		err := b.cmd.Wait()
		b.cancel()
		if err != nil {
			log.Printf("[bridge] process exited: %v", err)
		}
	}
	return nil
}

func (b *Bridge) roundTrip(op string, payload, out interface{}) error {
	if b.closed {
		return fmt.Errorf("bridge is closed")
	}

	data, err := simproto.MarshalRequest(op, payload)
	if err != nil {
		return err
	}
	if _, err := b.w.Write(data); err != nil {
		return fmt.Errorf("writing %s request: %w", op, err)
	}
	if err := b.w.WriteByte('\n'); err != nil {
		return fmt.Errorf("writing %s request: %w", op, err)
	}
	if err := b.w.Flush(); err != nil {
		return fmt.Errorf("writing %s request: %w", op, err)
	}

	if !b.scanner.Scan() {
		if err := b.scanner.Err(); err != nil {
			return fmt.Errorf("reading %s response: %w", op, err)
		}
		return fmt.Errorf("bridge closed the stream during %s", op)
	}

	var resp simproto.Response
	if err := json.Unmarshal(b.scanner.Bytes(), &resp); err != nil {
		return fmt.Errorf("decoding %s response: %w", op, err)
	}
	if !resp.Ok {
		return fmt.Errorf("bridge %s failed: %s", op, resp.Error)
	}
	if out != nil && resp.Payload != nil {
		if err := json.Unmarshal(resp.Payload, out); err != nil {
			return fmt.Errorf("decoding %s payload: %w", op, err)
		}
	}
	return nil
}
