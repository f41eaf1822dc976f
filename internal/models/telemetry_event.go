package models

import "time"

// TelemetryEvent is the enriched payload handed to the remote client.
type TelemetryEvent struct {
	EventID     string            `json:"event_id"`
	Timestamp   time.Time         `json:"timestamp"`
	Level       Level             `json:"level"`
	Logger      string            `json:"logger"`
	Message     string            `json:"message"`
	Exception   *ExceptionInfo    `json:"exception,omitempty"`
	Tags        map[string]string `json:"tags,omitempty"`
	Extra       map[string]string `json:"extra,omitempty"`
	Fingerprint []string          `json:"fingerprint"`
}

// Breadcrumb is a trailing-context entry attached to the next sent event.
type Breadcrumb struct {
	Timestamp time.Time `json:"timestamp"`
	Category  string    `json:"category"`
	Message   string    `json:"message"`
	Level     Level     `json:"level"`
}

// Scope is the process-wide context configured on the client once.
type Scope struct {
	Release     string
	Environment string
	UserID      string
	Tags        map[string]string
}

// SendStatus classifies the outcome of a submission.
type SendStatus int

const (
	SendOK SendStatus = iota
	SendUnauthorized
	SendFailed
)

func (s SendStatus) String() string {
	switch s {
	case SendOK:
		return "ok"
	case SendUnauthorized:
		return "unauthorized"
	default:
		return "failed"
	}
}

// SendResult is returned by every submission to the remote service.
type SendResult struct {
	Status  SendStatus
	EventID string
	Err     error
}

// PipelineStatus is a point-in-time snapshot of a forwarder.
type PipelineStatus struct {
	State           string           `json:"state"` // active | suppressed
	DebounceEntries int              `json:"debounce_entries"`
	Outcomes        map[string]int64 `json:"outcomes"`
}
