package controller

// Pose is a 9-dimensional joint target: 7 arm joint angles (rad)
// followed by the two gripper finger positions (m).
type Pose [9]float64

// Arm returns the 7 arm joint values of the pose
func (p Pose) Arm() [7]float64 {
	var arm [7]float64
	copy(arm[:], p[:7])
	return arm
}

// Gripper returns the finger position of the pose (both fingers are
// driven by one actuator, so a single value suffices)
func (p Pose) Gripper() float64 {
	return p[7]
}

// Fixed waypoints of the grasp task, taken from the MuJoCo keyframes
// of the Franka Panda pick scenes.
var (
	InitPose  = Pose{0.0, 0.0, 0.0, -1.5708, 0.0, 1.5708, -0.7853, 0.04, 0.04}
	GraspPose = Pose{-1.0104, 1.5623, 1.3601, -1.6840, -1.5863, 1.7810, 1.4598, 0.04, 0.04}
	LiftPose  = Pose{-1.0426, 1.4028, 1.5634, -1.7114, -1.4055, 1.6015, 1.4510, 0.0, 0.0}
)

// GripperOpen and GripperClosed bound the finger actuator range
const (
	GripperOpen   = 0.04
	GripperClosed = 0.0
)

// Lerp interpolates component-wise between two arm targets.
// frac is the local fraction within the current phase window.
func Lerp(a, b [7]float64, frac float64) [7]float64 {
	var out [7]float64
	for i := range a {
		out[i] = a[i] + frac*(b[i]-a[i])
	}
	return out
}

func lerp1(a, b, frac float64) float64 {
	return a + frac*(b-a)
}
