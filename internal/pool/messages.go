// Package pool distributes sweep runs across worker machines. Engine
// backends need their own GPUs and driver stacks, so workers run where
// the hardware is and connect to the coordinator over WebSocket.
package pool

import "encoding/json"

// Envelope wraps all messages with a type discriminator.
// When marshaling, Payload can be any message struct.
// When unmarshaling, use EnvelopeRaw for type-based dispatch.
type Envelope struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// EnvelopeRaw is used for receiving messages where the payload
// needs to be unmarshaled based on the message type.
type EnvelopeRaw struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// MarshalEnvelope creates an envelope with the given type and payload
func MarshalEnvelope(msgType string, payload interface{}) ([]byte, error) {
	return json.Marshal(Envelope{Type: msgType, Payload: payload})
}

// Worker -> Coordinator messages

// RegisterMessage sent when worker first connects
type RegisterMessage struct {
	WorkerID string `json:"worker_id"`
	MaxJobs  int    `json:"max_jobs"`
	GPU      string `json:"gpu,omitempty"`
}

// ReadyMessage sent when worker has available job slots
type ReadyMessage struct {
	Slots int `json:"slots"`
}

// ResultMessage sent when a run finishes on a worker
type ResultMessage struct {
	JobID      string   `json:"job_id"`
	Status     string   `json:"status"`
	DropTime   *float64 `json:"drop_time,omitempty"`
	DurationMs int64    `json:"duration_ms"`
	Detail     string   `json:"detail,omitempty"`
}

// ErrorMessage sent when a run fails before producing a result
type ErrorMessage struct {
	JobID   string `json:"job_id"`
	Message string `json:"message"`
}

// Coordinator -> Worker messages

// JobMessage assigns one run to a worker
type JobMessage struct {
	JobID   string  `json:"job_id"`
	Engine  string  `json:"engine"`
	Object  string  `json:"object"`
	Shake   bool    `json:"shake"`
	Record  bool    `json:"record"`
	MJX     bool    `json:"mjx"`
	Dt      float64 `json:"dt"`
	Timeout int     `json:"timeout_secs,omitempty"`
}

// CancelMessage requests job cancellation
type CancelMessage struct {
	JobID string `json:"job_id"`
}

// Message type constants
const (
	TypeRegister = "register"
	TypeReady    = "ready"
	TypeResult   = "result"
	TypeError    = "error"
	TypeJob      = "job"
	TypeCancel   = "cancel"
	TypePing     = "ping"
	TypePong     = "pong"
)
