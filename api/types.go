package api

import (
	"time"

	"portscanner/scanner"
)

// Task lifecycle states.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusPartial   = "partial"
	StatusFailed    = "failed"
)

// ScanTask represents a scanning job managed by the API service.
type ScanTask struct {
	// ID is the immutable identifier of the scan task (UUID v4).
	ID string `json:"id" format:"uuid" example:"a3f5c62e-1234-4f72-a84a-1c2d3e4f5678"`
	// Status reflects the asynchronous lifecycle state of the task.
	Status string `json:"status" enums:"pending,running,completed,partial,failed" example:"completed" description:"pending while queued, running while probing. partial means results are present but some ports were not probed (see incomplete and unresolved)."`
	// Address is the destination exactly as submitted.
	Address    string `json:"address" example:"scanme.example.org"`
	PortStart  uint16 `json:"port_start" example:"20"`
	PortEnd    uint16 `json:"port_end" example:"26"`
	SrcAddress string `json:"src_address,omitempty" example:"192.0.2.50"`
	Mode       string `json:"mode" enums:"connect,syn" example:"connect"`
	// Zero values fall back to the service defaults.
	Concurrency int `json:"concurrency,omitempty" example:"100"`
	TimeoutMS   int `json:"timeout_ms,omitempty" example:"2000"`
	DeadlineMS  int `json:"deadline_ms,omitempty" example:"30000"`

	// Results holds one entry per requested port in ascending order once the
	// task leaves the running state.
	Results []scanner.ScanResult `json:"results,omitempty"`
	// Incomplete is set when the session deadline expired before every port
	// was probed; those ports are reported as filtered.
	Incomplete bool `json:"incomplete,omitempty"`
	// Unresolved lists ports whose probe failed with an engine error.
	Unresolved []uint16 `json:"unresolved,omitempty"`

	CreatedAt   time.Time  `json:"created_at" format:"date-time" example:"2024-01-02T15:04:05Z"`
	StartedAt   *time.Time `json:"started_at,omitempty" format:"date-time"`
	CompletedAt *time.Time `json:"completed_at,omitempty" format:"date-time"`
	ElapsedMS   int64      `json:"elapsed_ms,omitempty" example:"1520"`

	// Error contains context when a task fails or ends partial.
	Error     string `json:"error,omitempty" example:"resolve \"nowhere.invalid\": no such host"`
	ErrorKind string `json:"error_kind,omitempty" enums:"invalid_argument,out_of_range,resolution_error,engine_failure,resource_exhausted,canceled,internal"`
}

// Terminal reports whether the task reached a final state.
func (t *ScanTask) Terminal() bool {
	switch t.Status {
	case StatusCompleted, StatusPartial, StatusFailed:
		return true
	}
	return false
}

// CreateScanRequest is the payload for creating new scan tasks. Address and
// ports are loosely typed so that wrong JSON types are reported as
// invalid_argument instead of a decoding failure.
type CreateScanRequest struct {
	Address     any    `json:"address" swaggertype:"string" example:"192.0.2.10"`
	PortStart   any    `json:"port_start" swaggertype:"integer" example:"20"`
	PortEnd     any    `json:"port_end,omitempty" swaggertype:"integer" example:"26" description:"Defaults to port_start."`
	SrcAddress  any    `json:"src_address,omitempty" swaggertype:"string" example:"192.0.2.50"`
	Mode        string `json:"mode,omitempty" binding:"omitempty,oneof=connect syn CONNECT SYN" enums:"connect,syn" example:"connect"`
	Concurrency int    `json:"concurrency,omitempty" binding:"omitempty,min=1,max=65535" example:"100"`
	TimeoutMS   int    `json:"timeout_ms,omitempty" binding:"omitempty,min=1,max=60000" example:"2000"`
	DeadlineMS  int    `json:"deadline_ms,omitempty" binding:"omitempty,min=1" example:"30000"`
}

// ScanAcceptedResponse captures the asynchronous acknowledgement returned after job submission.
type ScanAcceptedResponse struct {
	ID     string `json:"id" format:"uuid" example:"a3f5c62e-1234-4f72-a84a-1c2d3e4f5678"`
	Status string `json:"status" enums:"pending" example:"pending"`
}

// ErrorResponse provides a consistent structure for API error payloads.
type ErrorResponse struct {
	Error string `json:"error" example:"out of range: port_start=0"`
	Kind  string `json:"kind,omitempty" enums:"invalid_argument,out_of_range,not_found,unauthorized,rate_limited,internal" example:"out_of_range"`
}

// VersionResponse reports the scanning engine version.
type VersionResponse struct {
	Version string `json:"version" example:"1.0.0"`
}
