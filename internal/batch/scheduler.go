package batch

import (
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler triggers sweep plans on their cron schedules
type Scheduler struct {
	plans    map[string]Plan
	parser   cron.Parser
	lastRun  map[string]time.Time
	running  map[string]bool
	mu       sync.RWMutex
	stopChan chan struct{}
}

// NewScheduler creates a scheduler for the plans that carry a cron
// expression. Plans without one are skipped.
func NewScheduler(plans []Plan) (*Scheduler, error) {
	s := &Scheduler{
		plans:    make(map[string]Plan),
		parser:   cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow),
		lastRun:  make(map[string]time.Time),
		running:  make(map[string]bool),
		stopChan: make(chan struct{}),
	}

	for _, p := range plans {
		if p.Cron == "" {
			continue
		}
		if err := p.Validate(); err != nil {
			return nil, err
		}
		s.plans[p.Name] = p
	}
	return s, nil
}

// ParseCron parses a cron expression
func ParseCron(expr string) (cron.Schedule, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	return parser.Parse(expr)
}

// NextRun returns the next scheduled run time for a plan
func (s *Scheduler) NextRun(name string) time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.plans[name]
	if !ok {
		return time.Time{}
	}
	sched, err := s.parser.Parse(p.Cron)
	if err != nil {
		return time.Time{}
	}
	return sched.Next(time.Now())
}

// ShouldRun returns true if a plan is due and not already running
func (s *Scheduler) ShouldRun(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.plans[name]
	if !ok {
		return false
	}
	if s.running[name] {
		return false
	}

	sched, err := s.parser.Parse(p.Cron)
	if err != nil {
		return false
	}

	lastRun := s.lastRun[name]
	if lastRun.IsZero() {
		lastRun = time.Now().Add(-24 * time.Hour)
	}
	return time.Now().After(sched.Next(lastRun))
}

// MarkRunning marks a plan as currently running
func (s *Scheduler) MarkRunning(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running[name] = true
}

// MarkComplete marks a plan as complete
func (s *Scheduler) MarkComplete(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running[name] = false
	s.lastRun[name] = time.Now()
}

// Plans returns all scheduled plan names
func (s *Scheduler) Plans() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.plans))
	for name := range s.plans {
		names = append(names, name)
	}
	return names
}

// Start begins the scheduler loop, calling runFunc for each due plan
func (s *Scheduler) Start(runFunc func(Plan) error) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			for name := range s.plans {
				if s.ShouldRun(name) {
					s.mu.RLock()
					p := s.plans[name]
					s.mu.RUnlock()
					s.MarkRunning(name)
					go func(p Plan) {
						if err := runFunc(p); err != nil {
							log.Printf("[batch] plan %s failed: %v", p.Name, err)
						}
						s.MarkComplete(p.Name)
					}(p)
				}
			}
		}
	}
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	close(s.stopChan)
}
