package engine

import (
	"bufio"
	"encoding/json"
	"io"
	"testing"

	"github.com/Motphys/phys-bench/internal/simproto"
)

// fakeBackend answers bridge requests over in-memory pipes the way a
// bridge process would over stdio.
type fakeBackend struct {
	t       *testing.T
	height  float64
	ops     []string
	loaded  simproto.LoadRequest
	pending []simproto.FramePayload
	nextID  int
}

func (f *fakeBackend) serve(r io.Reader, w io.Writer) {
	scanner := bufio.NewScanner(r)
	enc := json.NewEncoder(w)
	for scanner.Scan() {
		var req simproto.RequestRaw
		if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
			f.t.Errorf("backend: bad request: %v", err)
			return
		}
		f.ops = append(f.ops, req.Op)

		switch req.Op {
		case simproto.OpQuit:
			return
		case simproto.OpHeight:
			payload, _ := json.Marshal(simproto.HeightResponse{Height: f.height})
			enc.Encode(simproto.Response{Ok: true, Payload: payload})
		case simproto.OpCapture:
			f.nextID++
			f.pending = append(f.pending, simproto.FramePayload{
				CaptureID: f.nextID,
				Width:     2, Height: 2,
				Pixels: make([]byte, 12),
			})
			payload, _ := json.Marshal(simproto.CaptureResponse{CaptureID: f.nextID})
			enc.Encode(simproto.Response{Ok: true, Payload: payload})
		case simproto.OpPoll:
			// Complete at most one capture per poll to exercise the
			// partial-drain path.
			var done []simproto.FramePayload
			if len(f.pending) > 0 {
				done = f.pending[:1]
				f.pending = f.pending[1:]
			}
			payload, _ := json.Marshal(simproto.PollResponse{Frames: done})
			enc.Encode(simproto.Response{Ok: true, Payload: payload})
		case simproto.OpLoad:
			var load simproto.LoadRequest
			json.Unmarshal(req.Payload, &load)
			if load.Scene == "grasp/xml/pick_missing.xml" {
				enc.Encode(simproto.Response{Ok: false, Error: "scene not found"})
				continue
			}
			f.loaded = load
			enc.Encode(simproto.Response{Ok: true})
		default:
			enc.Encode(simproto.Response{Ok: true})
		}
	}
}

func newTestBridge(t *testing.T, backend *fakeBackend) *Bridge {
	t.Helper()
	backend.t = t
	reqR, reqW := io.Pipe()
	respR, respW := io.Pipe()
	go func() {
		backend.serve(reqR, respW)
		respW.Close()
	}()
	return NewBridge(reqW, respR)
}

func TestBridgeLoadAndStep(t *testing.T) {
	backend := &fakeBackend{height: 0.25}
	b := newTestBridge(t, backend)

	load := simproto.LoadRequest{
		Scene: "grasp/xml/pick_cube.xml", Object: "cube", Dt: 0.002,
		Width: 640, Height: 480,
	}
	if err := b.Load(load); err != nil {
		t.Fatal(err)
	}
	if backend.loaded.Width != 640 || backend.loaded.Height != 480 {
		t.Errorf("backend got render size %dx%d, want 640x480",
			backend.loaded.Width, backend.loaded.Height)
	}
	if err := b.SetArmTarget([7]float64{0, 0, 0, -1.5708, 0, 1.5708, -0.7853}); err != nil {
		t.Fatal(err)
	}
	if err := b.SetGripperTarget(0.04); err != nil {
		t.Fatal(err)
	}
	if err := b.Step(); err != nil {
		t.Fatal(err)
	}

	h, err := b.ObjectHeight()
	if err != nil {
		t.Fatal(err)
	}
	if h != 0.25 {
		t.Errorf("ObjectHeight() = %v, want 0.25", h)
	}
}

func TestBridgeLoadFailureIsFatal(t *testing.T) {
	b := newTestBridge(t, &fakeBackend{})
	err := b.Load(simproto.LoadRequest{Scene: "grasp/xml/pick_missing.xml", Object: "missing", Dt: 0.002})
	if err == nil {
		t.Fatal("Load() of a missing scene should fail")
	}
}

func TestBridgeCaptureDrainsInOrder(t *testing.T) {
	b := newTestBridge(t, &fakeBackend{})

	for i := 0; i < 3; i++ {
		if err := b.RequestCapture(); err != nil {
			t.Fatal(err)
		}
	}

	// The fake backend completes one capture per poll; the queue
	// drains without ever blocking.
	var total int
	for i := 0; i < 3; i++ {
		frames, err := b.Completed()
		if err != nil {
			t.Fatal(err)
		}
		total += len(frames)
	}
	if total != 3 {
		t.Errorf("drained %d frames, want 3", total)
	}

	// Nothing pending: Completed does not even poll.
	frames, err := b.Completed()
	if err != nil {
		t.Fatal(err)
	}
	if frames != nil {
		t.Errorf("Completed() with no pending captures = %v, want nil", frames)
	}
}

func TestBridgeClosed(t *testing.T) {
	b := newTestBridge(t, &fakeBackend{})
	b.Close()
	if err := b.Step(); err == nil {
		t.Error("Step() after Close should fail")
	}
}
