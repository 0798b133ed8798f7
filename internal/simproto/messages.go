// Package simproto defines the message types for harness-bridge
// communication. A bridge is a per-engine helper process wrapping a
// vendor simulation API; messages flow as JSON lines over its
// stdin/stdout.
package simproto

import "encoding/json"

// Request wraps all harness-to-bridge messages with an op
// discriminator. Payload can be any request struct when marshaling.
type Request struct {
	Op      string      `json:"op"`
	Payload interface{} `json:"payload,omitempty"`
}

// RequestRaw is used on the bridge side where the payload is
// unmarshaled based on the op.
type RequestRaw struct {
	Op      string          `json:"op"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response is the bridge's reply to a single request. Error is set
// when Ok is false.
type Response struct {
	Ok      bool            `json:"ok"`
	Error   string          `json:"error,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// MarshalRequest creates a request line with the given op and payload
func MarshalRequest(op string, payload interface{}) ([]byte, error) {
	return json.Marshal(Request{Op: op, Payload: payload})
}

// LoadRequest asks the bridge to load a scene and configure the
// timestep. A load failure (missing or invalid asset) is fatal.
// Width and Height set the capture render size; zero leaves the
// bridge's default.
type LoadRequest struct {
	Scene  string  `json:"scene"`
	Object string  `json:"object"`
	Dt     float64 `json:"dt"`
	Visual bool    `json:"visual,omitempty"`
	Width  int     `json:"width,omitempty"`
	Height int     `json:"height,omitempty"`
}

// CtrlRequest writes actuator targets before the next step
type CtrlRequest struct {
	Arm     []float64 `json:"arm,omitempty"`
	Gripper *float64  `json:"gripper,omitempty"`
}

// HeightResponse carries the object's vertical position
type HeightResponse struct {
	Height float64 `json:"height"`
}

// CaptureResponse acknowledges an asynchronous capture request
type CaptureResponse struct {
	CaptureID int `json:"capture_id"`
}

// FramePayload is one completed capture. Pixels are RGB24,
// base64-encoded by the bridge.
type FramePayload struct {
	CaptureID int    `json:"capture_id"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Pixels    []byte `json:"pixels"`
}

// PollResponse returns captures completed since the last poll, in
// request order
type PollResponse struct {
	Frames []FramePayload `json:"frames"`
}

// Op constants
const (
	OpLoad    = "load"
	OpCtrl    = "ctrl"
	OpStep    = "step"
	OpHeight  = "height"
	OpCapture = "capture"
	OpPoll    = "poll"
	OpQuit    = "quit"
)
