package controller

// Phase is the active stage of the grasp task. Exactly one phase is
// active per simulated tick, determined purely by elapsed simulated
// time; transitions are strictly time-ordered and never revisited.
type Phase int

const (
	PhaseInitToLift Phase = iota
	PhaseLiftToGrasp
	PhaseCloseGripper
	PhaseLiftObject
	PhaseShakeAndVerify
	PhaseDone
)

// Phase window boundaries in simulated seconds. The windows are
// half-open and partition [0, inf).
const (
	liftEnd   = 1.0
	graspEnd  = 2.0
	closeEnd  = 3.0
	raiseEnd  = 4.0
	verifyEnd = 20.0
)

// PhaseAt maps elapsed simulated time to its phase
func PhaseAt(t float64) Phase {
	switch {
	case t < liftEnd:
		return PhaseInitToLift
	case t < graspEnd:
		return PhaseLiftToGrasp
	case t < closeEnd:
		return PhaseCloseGripper
	case t < raiseEnd:
		return PhaseLiftObject
	case t < verifyEnd:
		return PhaseShakeAndVerify
	default:
		return PhaseDone
	}
}

// String returns the phase name
func (p Phase) String() string {
	switch p {
	case PhaseInitToLift:
		return "init_to_lift"
	case PhaseLiftToGrasp:
		return "lift_to_grasp"
	case PhaseCloseGripper:
		return "close_gripper"
	case PhaseLiftObject:
		return "lift_object"
	case PhaseShakeAndVerify:
		return "shake_and_verify"
	case PhaseDone:
		return "done"
	default:
		return "unknown"
	}
}
