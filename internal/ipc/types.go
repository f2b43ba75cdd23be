package ipc

import (
	"time"

	"hlssafe/internal/encoding"
	"hlssafe/internal/stream"
)

// ServiceName is the JSON-RPC service the daemon registers.
const ServiceName = "HLSSafe"

// EncodeRequest starts an encode on the daemon.
type EncodeRequest struct {
	Request encoding.Request `json:"request"`
}

// EncodeResponse identifies the started job. When the encode could not be
// launched, Result carries the terminal failure and JobID is empty.
type EncodeResponse struct {
	JobID      string           `json:"job_id"`
	OutputPath string           `json:"output_path"`
	Result     *encoding.Result `json:"result,omitempty"`
}

// OutputRequest long-polls a job's diagnostic output.
type OutputRequest struct {
	JobID string `json:"job_id"`
	Since uint64 `json:"since"`
	Wait  bool   `json:"wait"`
	// TimeoutMillis caps how long a waiting call blocks. Zero uses the
	// server default.
	TimeoutMillis int `json:"timeout_ms"`
}

// OutputResponse carries chunks newer than the request's Since, in order.
type OutputResponse struct {
	Chunks []stream.Chunk `json:"chunks"`
	Next   uint64         `json:"next"`
	// Missed counts chunks evicted before this reader fetched them.
	Missed uint64 `json:"missed,omitempty"`
	Done   bool   `json:"done"`
}

// ResultRequest fetches a job's terminal result.
type ResultRequest struct {
	JobID string `json:"job_id"`
	Wait  bool   `json:"wait"`
}

// ResultResponse reports the result once Done is true.
type ResultResponse struct {
	Result encoding.Result `json:"result"`
	Done   bool            `json:"done"`
}

// CancelRequest terminates a running job.
type CancelRequest struct {
	JobID string `json:"job_id"`
}

// CancelResponse acknowledges a cancel request.
type CancelResponse struct {
	Cancelled bool `json:"cancelled"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// ActiveJob describes the encode currently running.
type ActiveJob struct {
	ID             string    `json:"id"`
	PrimaryPath    string    `json:"primary_path"`
	Subtitle       bool      `json:"subtitle"`
	OutputPath     string    `json:"output_path"`
	Binary         string    `json:"binary"`
	StartedAt      time.Time `json:"started_at"`
	ElapsedSeconds float64   `json:"elapsed_seconds"`
}

// StatusResponse represents daemon status information.
type StatusResponse struct {
	Running   bool       `json:"running"`
	ActiveJob *ActiveJob `json:"active_job,omitempty"`
	LockPath  string     `json:"lock_path"`
	LogPath   string     `json:"log_path"`
	PID       int        `json:"pid"`
}

// StopRequest asks the daemon process to shut down.
type StopRequest struct{}

// StopResponse indicates stop result.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}
