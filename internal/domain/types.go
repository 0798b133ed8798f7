package domain

import "fmt"

// ObjectKind identifies the object being grasped
type ObjectKind string

const (
	ObjectCube   ObjectKind = "cube"
	ObjectBall   ObjectKind = "ball"
	ObjectBottle ObjectKind = "bottle"
)

// Objects lists all supported object kinds in display order
var Objects = []ObjectKind{ObjectBall, ObjectCube, ObjectBottle}

// ParseObject validates an object name
func ParseObject(s string) (ObjectKind, error) {
	switch ObjectKind(s) {
	case ObjectCube, ObjectBall, ObjectBottle:
		return ObjectKind(s), nil
	}
	return "", fmt.Errorf("unknown object %q (choices: cube, ball, bottle)", s)
}

// TaskKind distinguishes the shake test from the plain slip test
type TaskKind string

const (
	TaskShake TaskKind = "shake"
	TaskSlip  TaskKind = "slip"
)

// TaskFor returns the task kind for a shake flag
func TaskFor(shake bool) TaskKind {
	if shake {
		return TaskShake
	}
	return TaskSlip
}

// Status represents the outcome of a test run.
// A single run emits success or failure; timeout and error are
// assigned by the batch runner when a subprocess misbehaves.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
	StatusTimeout Status = "timeout"
	StatusError   Status = "error"
)

// RunConfig is the immutable configuration for one task run
type RunConfig struct {
	Engine string     `json:"engine"`
	Object ObjectKind `json:"object"`
	Shake  bool       `json:"shake"`
	Record bool       `json:"record"`
	Dt     float64    `json:"dt"`
	MJX    bool       `json:"mjx"` // use the alternate (mjx) robot model asset
	Visual bool       `json:"visual,omitempty"`
}

// Validate checks the config before a run is constructed
func (c RunConfig) Validate() error {
	if c.Engine == "" {
		return fmt.Errorf("engine is required")
	}
	if _, err := ParseObject(string(c.Object)); err != nil {
		return err
	}
	if c.Dt <= 0 {
		return fmt.Errorf("dt must be positive, got %v", c.Dt)
	}
	return nil
}

// Task returns the task kind for this config
func (c RunConfig) Task() TaskKind {
	return TaskFor(c.Shake)
}
