package sim

import (
	"fmt"
	"math"
)

// Synthetic heights (m). The object rests on the table and is carried
// well above any engine's drop threshold once grasped.
const (
	RestHeight  = 0.02
	CarryHeight = 0.25
)

// graspPoint is the arm pose at which the synthetic gripper can pick
// the object up, matching the grasp waypoint of the task.
var graspPoint = [7]float64{-1.0104, 1.5623, 1.3601, -1.6840, -1.5863, 1.7810, 1.4598}

// liftPoint is the arm pose the object is carried to.
var liftPoint = [7]float64{-1.0426, 1.4028, 1.5634, -1.7114, -1.4055, 1.6015, 1.4510}

// SyntheticConfig configures the deterministic test engine
type SyntheticConfig struct {
	Dt float64

	// ReleaseAt drops the object at the given simulated time.
	// Zero means the grasp holds for the whole run.
	ReleaseAt float64
}

// Synthetic is a deterministic in-process engine used for tests and
// smoke runs. It models only what the task observes: the object rests
// on the table until the gripper closes at the grasp pose, then its
// height tracks the arm's progress toward the lift pose.
type Synthetic struct {
	cfg     SyntheticConfig
	step    int
	arm     [7]float64
	gripper float64
	grasped bool
	dropped bool
	closed  bool

	pending []Frame
}

// NewSynthetic creates a Synthetic engine
func NewSynthetic(cfg SyntheticConfig) (*Synthetic, error) {
	if cfg.Dt <= 0 {
		return nil, fmt.Errorf("dt must be positive, got %v", cfg.Dt)
	}
	return &Synthetic{cfg: cfg, gripper: 0.04}, nil
}

// SetArmTarget records the arm position target
func (s *Synthetic) SetArmTarget(target [7]float64) error {
	if s.closed {
		return fmt.Errorf("engine is closed")
	}
	s.arm = target
	return nil
}

// SetGripperTarget records the finger target
func (s *Synthetic) SetGripperTarget(target float64) error {
	if s.closed {
		return fmt.Errorf("engine is closed")
	}
	s.gripper = target
	return nil
}

// Step advances the model by one timestep
func (s *Synthetic) Step() error {
	if s.closed {
		return fmt.Errorf("engine is closed")
	}
	s.step++
	elapsed := float64(s.step) * s.cfg.Dt

	// Grasp latches once the gripper is closed at the grasp pose.
	if !s.grasped && !s.dropped && s.gripper < 0.005 && armDistance(s.arm, graspPoint) < 0.1 {
		s.grasped = true
	}
	if s.grasped && s.cfg.ReleaseAt > 0 && elapsed >= s.cfg.ReleaseAt {
		s.grasped = false
		s.dropped = true
	}
	return nil
}

// ObjectHeight returns the object's vertical position
func (s *Synthetic) ObjectHeight() (float64, error) {
	if s.closed {
		return 0, fmt.Errorf("engine is closed")
	}
	if !s.grasped {
		return RestHeight, nil
	}
	// Height follows the arm's travel from the grasp pose to the
	// lift pose, saturating at the carry height.
	span := armDistance(graspPoint, liftPoint)
	frac := 1 - armDistance(s.arm, liftPoint)/span
	if frac < 0 {
		frac = 0
	}
	if frac > 1 {
		frac = 1
	}
	return RestHeight + frac*(CarryHeight-RestHeight), nil
}

// RequestCapture queues a synthetic frame
func (s *Synthetic) RequestCapture() error {
	if s.closed {
		return fmt.Errorf("engine is closed")
	}
	s.pending = append(s.pending, Frame{Width: 8, Height: 6, Pixels: make([]byte, 8*6*3)})
	return nil
}

// Completed drains the queued frames in FIFO order
func (s *Synthetic) Completed() ([]Frame, error) {
	if s.closed {
		return nil, fmt.Errorf("engine is closed")
	}
	out := s.pending
	s.pending = nil
	return out, nil
}

// Close shuts the engine down
func (s *Synthetic) Close() error {
	s.closed = true
	return nil
}

func armDistance(a, b [7]float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}
