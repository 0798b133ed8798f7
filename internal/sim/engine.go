// Package sim defines the capability interface between the phase
// controller and a physics engine backend. The controller never talks
// to a vendor API directly; each backend supplies an adapter.
package sim

// Engine is the minimal surface the grasp task needs from a simulator.
// Step advances the simulation by exactly one timestep; a step or
// control error is fatal for the run.
type Engine interface {
	// SetArmTarget writes position targets for the 7 arm actuators.
	SetArmTarget(target [7]float64) error
	// SetGripperTarget writes the shared finger actuator target.
	SetGripperTarget(target float64) error
	// ObjectHeight returns the object's current vertical position (m).
	ObjectHeight() (float64, error)
	// Step advances the simulation by one timestep.
	Step() error
	// Close releases the backend.
	Close() error
}

// Frame is one captured RGB image
type Frame struct {
	Width  int
	Height int
	Pixels []byte // RGB24, len = Width*Height*3
}

// FrameSource is implemented by engines that can capture frames.
// RequestCapture is asynchronous: it queues a capture and returns
// immediately. Completed returns finished frames in request order
// without blocking; it returns nil when none are ready.
type FrameSource interface {
	RequestCapture() error
	Completed() ([]Frame, error)
}
