package pool

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Motphys/phys-bench/internal/domain"
)

func TestMarshalEnvelope(t *testing.T) {
	data, err := MarshalEnvelope(TypeJob, JobMessage{
		JobID: "j1", Engine: "mujoco", Object: "cube", Shake: true, Dt: 0.002,
	})
	if err != nil {
		t.Fatal(err)
	}

	var env EnvelopeRaw
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatal(err)
	}
	if env.Type != TypeJob {
		t.Errorf("Type = %q", env.Type)
	}
	var job JobMessage
	if err := json.Unmarshal(env.Payload, &job); err != nil {
		t.Fatal(err)
	}
	if job.Engine != "mujoco" || job.Dt != 0.002 || !job.Shake {
		t.Errorf("job = %+v", job)
	}
}

func TestRegistryFindReady(t *testing.T) {
	r := NewRegistry()
	r.Register(&ConnectedWorker{ID: "a", MaxJobs: 2, Slots: 0})
	r.Register(&ConnectedWorker{ID: "b", MaxJobs: 4, Slots: 3})
	r.Register(&ConnectedWorker{ID: "c", MaxJobs: 2, Slots: 1})

	if w := r.FindReady(); w == nil || w.ID != "b" {
		t.Errorf("FindReady picked %v, want the worker with most slots", w)
	}
	if r.TotalSlots() != 4 {
		t.Errorf("TotalSlots = %d, want 4", r.TotalSlots())
	}

	r.Unregister("b")
	if w := r.FindReady(); w == nil || w.ID != "c" {
		t.Errorf("FindReady after unregister picked %v", w)
	}
}

func TestWorkerConfigValidate(t *testing.T) {
	cases := []WorkerConfig{
		{WorkerID: "w1", MaxJobs: 1},
		{ServerURL: "ws://x", MaxJobs: 1},
		{ServerURL: "ws://x", WorkerID: "w1"},
	}
	for _, c := range cases {
		if err := c.Validate(); err == nil {
			t.Errorf("Validate() accepted %+v", c)
		}
	}
	good := WorkerConfig{ServerURL: "ws://x", WorkerID: "w1", MaxJobs: 2}
	if err := good.Validate(); err != nil {
		t.Errorf("Validate() rejected %+v: %v", good, err)
	}
}

// TestPoolRoundTrip connects a real worker to a coordinator and runs
// one sweep job through the full dispatch/result cycle.
func TestPoolRoundTrip(t *testing.T) {
	coord := NewCoordinator(CoordinatorConfig{JobTimeoutSec: 30})

	var mu sync.Mutex
	var got []JobResult
	done := make(chan struct{})
	coord.OnResult(func(res JobResult) {
		mu.Lock()
		got = append(got, res)
		n := len(got)
		mu.Unlock()
		if n == 2 {
			close(done)
		}
	})

	server := httptest.NewServer(http.HandlerFunc(coord.HandleWebSocket))
	defer server.Close()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	dropTime := 5.5
	worker, err := NewWorker(WorkerConfig{
		ServerURL: wsURL,
		WorkerID:  "gpu-box-1",
		MaxJobs:   2,
		GPU:       "RTX 4090",
	}, func(ctx context.Context, job JobMessage) ResultMessage {
		if job.Object == "ball" {
			return ResultMessage{Status: "failure", DropTime: &dropTime}
		}
		return ResultMessage{Status: "success"}
	})
	if err != nil {
		t.Fatal(err)
	}
	defer worker.Stop()

	if err := worker.Connect(); err != nil {
		t.Fatal(err)
	}
	go worker.Run()

	// Wait for registration before submitting.
	deadline := time.Now().Add(5 * time.Second)
	for coord.Registry().Count() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("worker never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	id1 := coord.Submit(domain.RunConfig{Engine: "mujoco", Object: "cube", Shake: true, Dt: 0.002})
	id2 := coord.Submit(domain.RunConfig{Engine: "mujoco", Object: "ball", Shake: true, Dt: 0.002})
	if id1 == id2 {
		t.Fatal("job IDs collide")
	}

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("results never arrived")
	}

	mu.Lock()
	defer mu.Unlock()
	byObject := map[domain.ObjectKind]JobResult{}
	for _, res := range got {
		byObject[res.Config.Object] = res
	}
	if byObject["cube"].Status != domain.StatusSuccess {
		t.Errorf("cube status = %q", byObject["cube"].Status)
	}
	ball := byObject["ball"]
	if ball.Status != domain.StatusFailure {
		t.Errorf("ball status = %q", ball.Status)
	}
	if ball.DropTime == nil || *ball.DropTime != 5.5 {
		t.Errorf("ball DropTime = %v", ball.DropTime)
	}
	if ball.WorkerID != "gpu-box-1" {
		t.Errorf("WorkerID = %q", ball.WorkerID)
	}

	queued, active := coord.Pending()
	if queued != 0 || active != 0 {
		t.Errorf("Pending = (%d, %d), want (0, 0)", queued, active)
	}
}

// TestHandleSubmit queues jobs through the coordinator's HTTP submit
// endpoint, the path the batch command uses for distributed sweeps.
func TestHandleSubmit(t *testing.T) {
	coord := NewCoordinator(CoordinatorConfig{})
	server := httptest.NewServer(http.HandlerFunc(coord.HandleSubmit))
	defer server.Close()

	body := `[{"engine":"mujoco","object":"cube","shake":true,"dt":0.002},
	          {"engine":"genesis","object":"ball","shake":true,"dt":0.002}]`
	resp, err := http.Post(server.URL, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var submitted SubmitResponse
	if err := json.NewDecoder(resp.Body).Decode(&submitted); err != nil {
		t.Fatal(err)
	}
	if len(submitted.JobIDs) != 2 {
		t.Fatalf("len(JobIDs) = %d, want 2", len(submitted.JobIDs))
	}
	if queued, _ := coord.Pending(); queued != 2 {
		t.Errorf("queued = %d, want 2 with no workers connected", queued)
	}
}

func TestHandleSubmitRejectsBadInput(t *testing.T) {
	coord := NewCoordinator(CoordinatorConfig{})
	server := httptest.NewServer(http.HandlerFunc(coord.HandleSubmit))
	defer server.Close()

	cases := []struct {
		name string
		body string
	}{
		{"malformed json", `{`},
		{"empty list", `[]`},
		{"unknown object", `[{"engine":"mujoco","object":"sphere","dt":0.002}]`},
		{"zero dt", `[{"engine":"mujoco","object":"cube"}]`},
	}
	for _, tc := range cases {
		resp, err := http.Post(server.URL, "application/json", strings.NewReader(tc.body))
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", tc.name, resp.StatusCode)
		}
	}
	if queued, _ := coord.Pending(); queued != 0 {
		t.Errorf("queued = %d, want 0 after rejected submits", queued)
	}

	resp, err := http.Get(server.URL)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("GET status = %d, want 405", resp.StatusCode)
	}
}

func TestCalculateBackoff(t *testing.T) {
	if got := calculateBackoff(0); got != initialBackoff {
		t.Errorf("backoff(0) = %v", got)
	}
	if got := calculateBackoff(2); got != 4*time.Second {
		t.Errorf("backoff(2) = %v", got)
	}
	if got := calculateBackoff(20); got != maxBackoff {
		t.Errorf("backoff(20) = %v, want cap", got)
	}
}
