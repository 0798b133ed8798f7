package pool

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Backoff constants for reconnection
const (
	initialBackoff = 1 * time.Second
	maxBackoff     = 60 * time.Second
	backoffFactor  = 2
)

// calculateBackoff returns the delay for a given attempt number using exponential backoff
func calculateBackoff(attempt int) time.Duration {
	delay := initialBackoff
	for i := 0; i < attempt; i++ {
		delay *= backoffFactor
		if delay > maxBackoff {
			return maxBackoff
		}
	}
	return delay
}

// pingWait is how long we wait for a ping from the coordinator before timing out
const pingWait = 90 * time.Second

// writeWait is time allowed to write a control message
const writeWait = 10 * time.Second

// RunFunc executes one assigned run and returns its result message.
// The context is cancelled when the job is cancelled or the worker
// shuts down.
type RunFunc func(ctx context.Context, job JobMessage) ResultMessage

// WorkerConfig configures the worker client
type WorkerConfig struct {
	ServerURL string
	WorkerID  string
	MaxJobs   int
	GPU       string
}

// Validate checks the config is valid
func (c *WorkerConfig) Validate() error {
	if c.ServerURL == "" {
		return fmt.Errorf("server_url is required")
	}
	if c.WorkerID == "" {
		return fmt.Errorf("worker_id is required")
	}
	if c.MaxJobs <= 0 {
		return fmt.Errorf("max_jobs must be positive")
	}
	return nil
}

// Worker connects to a coordinator and executes assigned runs
type Worker struct {
	config WorkerConfig
	run    RunFunc
	conn   *websocket.Conn
	connMu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc

	// Job tracking for cancellation
	jobsMu sync.Mutex
	jobs   map[string]context.CancelFunc
	slots  int
}

// NewWorker creates a new worker client
func NewWorker(config WorkerConfig, run RunFunc) (*Worker, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		config: config,
		run:    run,
		ctx:    ctx,
		cancel: cancel,
		jobs:   make(map[string]context.CancelFunc),
		slots:  config.MaxJobs,
	}, nil
}

// Connect establishes the connection and registers with the coordinator
func (w *Worker) Connect() error {
	conn, _, err := websocket.DefaultDialer.Dial(w.config.ServerURL, nil)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}

	conn.SetReadDeadline(time.Now().Add(pingWait))
	conn.SetPingHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(pingWait))
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(writeWait))
	})

	w.connMu.Lock()
	w.conn = conn
	w.connMu.Unlock()

	return w.send(TypeRegister, RegisterMessage{
		WorkerID: w.config.WorkerID,
		MaxJobs:  w.config.MaxJobs,
		GPU:      w.config.GPU,
	})
}

// Run processes jobs until the connection drops or Stop is called
func (w *Worker) Run() error {
	if err := w.sendReady(); err != nil {
		return err
	}

	for {
		select {
		case <-w.ctx.Done():
			return nil
		default:
		}

		_, message, err := w.conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}

		var env EnvelopeRaw
		if err := json.Unmarshal(message, &env); err != nil {
			log.Printf("[worker] invalid message: %v", err)
			continue
		}

		switch env.Type {
		case TypeJob:
			var job JobMessage
			if err := json.Unmarshal(env.Payload, &job); err != nil {
				log.Printf("[worker] invalid job: %v", err)
				continue
			}
			w.startJob(job)

		case TypeCancel:
			var cancelMsg CancelMessage
			if err := json.Unmarshal(env.Payload, &cancelMsg); err != nil {
				continue
			}
			w.cancelJob(cancelMsg.JobID)
		}
	}
}

// RunWithReconnect runs the worker loop, reconnecting with backoff
// when the coordinator goes away.
func (w *Worker) RunWithReconnect() {
	attempt := 0
	for {
		select {
		case <-w.ctx.Done():
			return
		default:
		}

		if err := w.Connect(); err != nil {
			delay := calculateBackoff(attempt)
			log.Printf("[worker] connect failed: %v (retry in %s)", err, delay)
			attempt++
			select {
			case <-time.After(delay):
			case <-w.ctx.Done():
				return
			}
			continue
		}

		attempt = 0
		if err := w.Run(); err != nil {
			log.Printf("[worker] connection lost: %v", err)
		}
	}
}

// Stop shuts the worker down and cancels running jobs
func (w *Worker) Stop() {
	w.cancel()
	w.jobsMu.Lock()
	for _, cancel := range w.jobs {
		cancel()
	}
	w.jobsMu.Unlock()

	w.connMu.Lock()
	if w.conn != nil {
		w.conn.Close()
	}
	w.connMu.Unlock()
}

func (w *Worker) startJob(job JobMessage) {
	var jobCtx context.Context
	var jobCancel context.CancelFunc
	if job.Timeout > 0 {
		jobCtx, jobCancel = context.WithTimeout(w.ctx, time.Duration(job.Timeout)*time.Second)
	} else {
		jobCtx, jobCancel = context.WithCancel(w.ctx)
	}

	w.jobsMu.Lock()
	w.jobs[job.JobID] = jobCancel
	w.slots--
	w.jobsMu.Unlock()

	go func() {
		defer jobCancel()

		start := time.Now()
		result := w.run(jobCtx, job)
		result.JobID = job.JobID
		if result.DurationMs == 0 {
			result.DurationMs = time.Since(start).Milliseconds()
		}

		w.jobsMu.Lock()
		delete(w.jobs, job.JobID)
		w.slots++
		w.jobsMu.Unlock()

		if err := w.send(TypeResult, result); err != nil {
			log.Printf("[worker] sending result for %s: %v", job.JobID, err)
			return
		}
		if err := w.sendReady(); err != nil {
			log.Printf("[worker] sending ready: %v", err)
		}
	}()
}

func (w *Worker) cancelJob(jobID string) {
	w.jobsMu.Lock()
	cancel, ok := w.jobs[jobID]
	w.jobsMu.Unlock()
	if ok {
		cancel()
	}
}

func (w *Worker) sendReady() error {
	w.jobsMu.Lock()
	slots := w.slots
	w.jobsMu.Unlock()
	return w.send(TypeReady, ReadyMessage{Slots: slots})
}

func (w *Worker) send(msgType string, payload interface{}) error {
	data, err := MarshalEnvelope(msgType, payload)
	if err != nil {
		return err
	}
	w.connMu.Lock()
	defer w.connMu.Unlock()
	if w.conn == nil {
		return fmt.Errorf("not connected")
	}
	return w.conn.WriteMessage(websocket.TextMessage, data)
}
