package pool

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Motphys/phys-bench/internal/domain"
)

// JobResult is delivered to the coordinator's callback when a
// distributed run finishes.
type JobResult struct {
	JobID    string
	Config   domain.RunConfig
	Status   domain.Status
	DropTime *float64
	Duration time.Duration
	Detail   string
	WorkerID string
}

// CoordinatorConfig configures the coordinator
type CoordinatorConfig struct {
	HeartbeatInterval time.Duration
	HeartbeatTimeout  time.Duration
	JobTimeoutSec     int
}

type pendingJob struct {
	id       string
	config   domain.RunConfig
	workerID string // empty until dispatched
	started  time.Time
}

// Coordinator accepts worker connections and hands out runs
type Coordinator struct {
	config   CoordinatorConfig
	registry *Registry
	upgrader websocket.Upgrader

	onResult func(JobResult)

	mu     sync.Mutex
	queue  []*pendingJob          // not yet dispatched
	active map[string]*pendingJob // dispatched, awaiting result
}

// NewCoordinator creates a new coordinator
func NewCoordinator(config CoordinatorConfig) *Coordinator {
	if config.HeartbeatInterval == 0 {
		config.HeartbeatInterval = 30 * time.Second
	}
	if config.HeartbeatTimeout == 0 {
		config.HeartbeatTimeout = 90 * time.Second // Allow missing 2 heartbeats before disconnect
	}
	return &Coordinator{
		config:   config,
		registry: NewRegistry(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		active: make(map[string]*pendingJob),
	}
}

// Registry returns the worker registry
func (c *Coordinator) Registry() *Registry {
	return c.registry
}

// OnResult sets the callback invoked for each finished run
func (c *Coordinator) OnResult(fn func(JobResult)) {
	c.onResult = fn
}

// Submit queues a run for dispatch and returns its job ID
func (c *Coordinator) Submit(cfg domain.RunConfig) string {
	job := &pendingJob{id: uuid.NewString(), config: cfg}
	c.mu.Lock()
	c.queue = append(c.queue, job)
	c.mu.Unlock()
	c.TryDispatch()
	return job.id
}

// SubmitResponse lists the job IDs created by a submit request
type SubmitResponse struct {
	JobIDs []string `json:"job_ids"`
}

// HandleSubmit accepts a POST with a JSON array of run configurations
// and queues one job per entry. Invalid configurations reject the
// whole batch before anything is queued.
func (c *Coordinator) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var configs []domain.RunConfig
	if err := json.NewDecoder(r.Body).Decode(&configs); err != nil {
		http.Error(w, fmt.Sprintf("decoding configs: %v", err), http.StatusBadRequest)
		return
	}
	if len(configs) == 0 {
		http.Error(w, "no configurations submitted", http.StatusBadRequest)
		return
	}
	for i, cfg := range configs {
		if err := cfg.Validate(); err != nil {
			http.Error(w, fmt.Sprintf("config %d: %v", i, err), http.StatusBadRequest)
			return
		}
	}

	resp := SubmitResponse{JobIDs: make([]string, 0, len(configs))}
	for _, cfg := range configs {
		resp.JobIDs = append(resp.JobIDs, c.Submit(cfg))
	}
	log.Printf("[pool] submitted %d jobs", len(resp.JobIDs))

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// Pending returns the number of queued and active jobs
func (c *Coordinator) Pending() (queued, active int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue), len(c.active)
}

// TryDispatch sends queued jobs to workers with free slots
func (c *Coordinator) TryDispatch() {
	for {
		worker := c.registry.FindReady()
		if worker == nil {
			return
		}

		c.mu.Lock()
		if len(c.queue) == 0 {
			c.mu.Unlock()
			return
		}
		job := c.queue[0]
		c.queue = c.queue[1:]
		job.workerID = worker.ID
		job.started = time.Now()
		c.active[job.id] = job
		c.mu.Unlock()

		if err := c.sendJob(worker, job); err != nil {
			log.Printf("[pool] dispatch to %s failed: %v", worker.ID, err)
			c.requeue(job)
			return
		}
		worker.DecrementSlots()
	}
}

func (c *Coordinator) sendJob(w *ConnectedWorker, job *pendingJob) error {
	cfg := job.config
	data, err := MarshalEnvelope(TypeJob, JobMessage{
		JobID:   job.id,
		Engine:  cfg.Engine,
		Object:  string(cfg.Object),
		Shake:   cfg.Shake,
		Record:  cfg.Record,
		MJX:     cfg.MJX,
		Dt:      cfg.Dt,
		Timeout: c.config.JobTimeoutSec,
	})
	if err != nil {
		return err
	}
	return w.WriteMessage(websocket.TextMessage, data)
}

func (c *Coordinator) requeue(job *pendingJob) {
	c.mu.Lock()
	delete(c.active, job.id)
	job.workerID = ""
	c.queue = append([]*pendingJob{job}, c.queue...)
	c.mu.Unlock()
}

// requeueWorkerJobs puts a disconnected worker's jobs back in line
func (c *Coordinator) requeueWorkerJobs(workerID string) {
	c.mu.Lock()
	var orphaned []*pendingJob
	for id, job := range c.active {
		if job.workerID == workerID {
			delete(c.active, id)
			job.workerID = ""
			orphaned = append(orphaned, job)
		}
	}
	c.queue = append(orphaned, c.queue...)
	c.mu.Unlock()

	if len(orphaned) > 0 {
		log.Printf("[pool] requeued %d jobs from %s", len(orphaned), workerID)
	}
}

// HandleWebSocket handles incoming WebSocket connections from workers
func (c *Coordinator) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[pool] upgrade failed: %v", err)
		return
	}
	go c.handleWorkerConnection(conn)
}

func (c *Coordinator) handleWorkerConnection(conn *websocket.Conn) {
	var workerID string
	defer func() {
		conn.Close()
		if workerID != "" {
			c.registry.Unregister(workerID)
			c.requeueWorkerJobs(workerID)
			c.TryDispatch()
			log.Printf("[pool] worker %s disconnected", workerID)
		}
	}()

	conn.SetReadDeadline(time.Now().Add(c.config.HeartbeatTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(c.config.HeartbeatTimeout))
		return nil
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[pool] read error: %v", err)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(c.config.HeartbeatTimeout))

		var env EnvelopeRaw
		if err := json.Unmarshal(message, &env); err != nil {
			log.Printf("[pool] invalid message: %v", err)
			continue
		}

		switch env.Type {
		case TypeRegister:
			var reg RegisterMessage
			if err := json.Unmarshal(env.Payload, &reg); err != nil {
				log.Printf("[pool] invalid register: %v", err)
				continue
			}
			workerID = reg.WorkerID
			c.registry.Register(&ConnectedWorker{
				ID:      reg.WorkerID,
				MaxJobs: reg.MaxJobs,
				Slots:   reg.MaxJobs,
				GPU:     reg.GPU,
				Conn:    conn,
			})
			log.Printf("[pool] worker %s registered (max_jobs=%d gpu=%q)", reg.WorkerID, reg.MaxJobs, reg.GPU)
			c.TryDispatch()

		case TypeReady:
			var ready ReadyMessage
			if err := json.Unmarshal(env.Payload, &ready); err != nil {
				log.Printf("[pool] invalid ready: %v", err)
				continue
			}
			if w := c.registry.Get(workerID); w != nil {
				w.UpdateSlots(ready.Slots)
				c.TryDispatch()
			}

		case TypeResult:
			var res ResultMessage
			if err := json.Unmarshal(env.Payload, &res); err != nil {
				log.Printf("[pool] invalid result: %v", err)
				continue
			}
			c.finish(res, workerID)

		case TypeError:
			var errMsg ErrorMessage
			if err := json.Unmarshal(env.Payload, &errMsg); err != nil {
				log.Printf("[pool] invalid error message: %v", err)
				continue
			}
			c.finish(ResultMessage{
				JobID:  errMsg.JobID,
				Status: string(domain.StatusError),
				Detail: errMsg.Message,
			}, workerID)

		case TypePong:
			if w := c.registry.Get(workerID); w != nil {
				w.SetLastHeartbeat(time.Now())
			}
		}
	}
}

func (c *Coordinator) finish(res ResultMessage, workerID string) {
	c.mu.Lock()
	job, ok := c.active[res.JobID]
	if ok {
		delete(c.active, res.JobID)
	}
	c.mu.Unlock()
	if !ok {
		log.Printf("[pool] result for unknown job %s", res.JobID)
		return
	}

	if c.onResult != nil {
		c.onResult(JobResult{
			JobID:    res.JobID,
			Config:   job.config,
			Status:   domain.Status(res.Status),
			DropTime: res.DropTime,
			Duration: time.Duration(res.DurationMs) * time.Millisecond,
			Detail:   res.Detail,
			WorkerID: workerID,
		})
	}
	c.TryDispatch()
}

// StartHeartbeat pings all workers on the configured interval until
// stop is closed.
func (c *Coordinator) StartHeartbeat(stop <-chan struct{}) {
	ticker := time.NewTicker(c.config.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			for _, w := range c.registry.All() {
				deadline := time.Now().Add(10 * time.Second)
				w.writeMu.Lock()
				err := w.Conn.WriteControl(websocket.PingMessage, nil, deadline)
				w.writeMu.Unlock()
				if err != nil {
					log.Printf("[pool] ping to %s failed: %v", w.ID, err)
				}
			}
		}
	}
}

// Status summarizes the pool for listings and the dashboard
func (c *Coordinator) Status() string {
	queued, active := c.Pending()
	return fmt.Sprintf("%d workers, %d slots free, %d active, %d queued",
		c.registry.Count(), c.registry.TotalSlots(), active, queued)
}
