// Package controller implements the six-phase grasp-and-shake task as
// an explicit state machine over a sim.Engine. All state lives in
// named fields on the Controller and is advanced by Tick.
package controller

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/Motphys/phys-bench/internal/domain"
	"github.com/Motphys/phys-bench/internal/sim"
)

// NoiseSigma is the standard deviation (rad) of the per-joint shake
// noise applied around the lift pose on even-numbered ticks.
const NoiseSigma = 0.025

// Config configures one task run. It is immutable for the duration of
// the run.
type Config struct {
	Dt    float64 // simulation timestep, seconds per tick
	Shake bool    // apply shake noise during the verify window

	// DropHeight is the failure threshold: the run fails when the
	// object's vertical position is strictly below it during the
	// verify window. Engine-specific; see engine.Spec.
	DropHeight float64

	// CheckEvery is the tick interval between height checks during
	// the verify window. 1 checks every tick; GPU backends that pay
	// a device sync per readback use a larger interval.
	CheckEvery int

	// Rand is the noise source. A nil Rand disables determinism and
	// falls back to a time-seeded source.
	Rand *rand.Rand
}

// Outcome is the terminal result of a run
type Outcome struct {
	Status   domain.Status
	DropTime *float64 // simulated seconds, failure only
	Steps    int      // physics ticks executed
}

// Controller drives a sim.Engine through the task phases
type Controller struct {
	cfg     Config
	eng     sim.Engine
	step    int
	gripper float64 // current gripper target, carried across phases
	outcome *Outcome
}

// New creates a Controller for the given engine
func New(cfg Config, eng sim.Engine) (*Controller, error) {
	if cfg.Dt <= 0 {
		return nil, fmt.Errorf("dt must be positive, got %v", cfg.Dt)
	}
	if cfg.DropHeight <= 0 {
		return nil, fmt.Errorf("drop height must be positive, got %v", cfg.DropHeight)
	}
	if cfg.CheckEvery <= 0 {
		cfg.CheckEvery = 1
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewSource(rand.Int63()))
	}
	c := &Controller{
		cfg:     cfg,
		eng:     eng,
		gripper: InitPose.Gripper(),
	}
	if err := eng.SetArmTarget(InitPose.Arm()); err != nil {
		return nil, fmt.Errorf("setting initial arm target: %w", err)
	}
	if err := eng.SetGripperTarget(c.gripper); err != nil {
		return nil, fmt.Errorf("setting initial gripper target: %w", err)
	}
	return c, nil
}

// StepCount returns the number of ticks executed so far
func (c *Controller) StepCount() int {
	return c.step
}

// Elapsed returns the simulated time, step count times dt
func (c *Controller) Elapsed() float64 {
	return float64(c.step) * c.cfg.Dt
}

// Outcome returns the terminal outcome, or nil while running
func (c *Controller) Outcome() *Outcome {
	return c.outcome
}

// Tick advances the task by one simulated timestep: it resolves the
// active phase from elapsed time, writes control targets into the
// engine, runs the drop check during the verify window, and steps the
// physics. It returns the phase that was active and, once the run is
// terminal, a non-nil Outcome. Terminal ticks do not step the engine.
func (c *Controller) Tick() (Phase, *Outcome, error) {
	if c.outcome != nil {
		return PhaseDone, c.outcome, nil
	}

	c.step++
	t := float64(c.step) * c.cfg.Dt
	phase := PhaseAt(t)

	switch phase {
	case PhaseInitToLift:
		if err := c.setArm(Lerp(InitPose.Arm(), LiftPose.Arm(), t)); err != nil {
			return phase, nil, err
		}
	case PhaseLiftToGrasp:
		if err := c.setArm(Lerp(LiftPose.Arm(), GraspPose.Arm(), t-liftEnd)); err != nil {
			return phase, nil, err
		}
	case PhaseCloseGripper:
		c.gripper = lerp1(GripperOpen, GripperClosed, t-graspEnd)
		if err := c.setArm(GraspPose.Arm()); err != nil {
			return phase, nil, err
		}
	case PhaseLiftObject:
		if err := c.setArm(Lerp(GraspPose.Arm(), LiftPose.Arm(), t-closeEnd)); err != nil {
			return phase, nil, err
		}
	case PhaseShakeAndVerify:
		// The arm holds the lift pose; with shake enabled every other
		// tick perturbs it with Gaussian noise.
		target := LiftPose.Arm()
		if c.cfg.Shake && c.step%2 == 0 {
			target = c.noisyLiftTarget()
		}
		if err := c.setArm(target); err != nil {
			return phase, nil, err
		}
		if c.step%c.cfg.CheckEvery == 0 {
			h, err := c.eng.ObjectHeight()
			if err != nil {
				return phase, nil, fmt.Errorf("reading object height: %w", err)
			}
			if h < c.cfg.DropHeight {
				drop := t
				c.outcome = &Outcome{Status: domain.StatusFailure, DropTime: &drop, Steps: c.step}
				return phase, c.outcome, nil
			}
		}
	case PhaseDone:
		c.outcome = &Outcome{Status: domain.StatusSuccess, Steps: c.step}
		return phase, c.outcome, nil
	}

	if err := c.eng.SetGripperTarget(c.gripper); err != nil {
		return phase, nil, fmt.Errorf("setting gripper target: %w", err)
	}
	if err := c.eng.Step(); err != nil {
		return phase, nil, fmt.Errorf("stepping simulation: %w", err)
	}
	return phase, nil, nil
}

// Run ticks until the task is terminal or the context is cancelled
func (c *Controller) Run(ctx context.Context) (*Outcome, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		_, outcome, err := c.Tick()
		if err != nil {
			return nil, err
		}
		if outcome != nil {
			return outcome, nil
		}
	}
}

func (c *Controller) setArm(target [7]float64) error {
	if err := c.eng.SetArmTarget(target); err != nil {
		return fmt.Errorf("setting arm target: %w", err)
	}
	return nil
}

// noisyLiftTarget perturbs the lift pose with independent Gaussian
// noise per joint
func (c *Controller) noisyLiftTarget() [7]float64 {
	target := LiftPose.Arm()
	for i := range target {
		target[i] += c.cfg.Rand.NormFloat64() * NoiseSigma
	}
	return target
}
