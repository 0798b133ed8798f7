package domain

import "time"

// Result is the sidecar record written next to each test video.
// The JSON key set is a boundary contract shared with the report
// generator and must stay stable.
type Result struct {
	VideoPath string     `json:"video_path"`
	Status    Status     `json:"status"`
	DropTime  *float64   `json:"drop_time"`
	Engine    string     `json:"engine"`
	Object    ObjectKind `json:"object"`
	Task      TaskKind   `json:"task"`
	MJX       bool       `json:"mjx"`
	Dt        float64    `json:"dt"`
	Timestamp string     `json:"timestamp"`
}

// NewResult builds a Result for a finished run
func NewResult(cfg RunConfig, status Status, dropTime *float64, videoPath string) Result {
	return Result{
		VideoPath: videoPath,
		Status:    status,
		DropTime:  dropTime,
		Engine:    cfg.Engine,
		Object:    cfg.Object,
		Task:      cfg.Task(),
		MJX:       cfg.MJX,
		Dt:        cfg.Dt,
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

// Passed reports whether the run succeeded
func (r Result) Passed() bool {
	return r.Status == StatusSuccess
}
