package models

import "time"

// Exclusion kinds.
const (
	ExclusionExceptionType = "exception_type"
	ExclusionMessage       = "message"
	ExclusionLogger        = "logger"
)

// Exclusion is an operator-managed rule that keeps matching failures from being sent.
type Exclusion struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`    // exception_type | message | logger
	Pattern   string    `json:"pattern"` // exact type/logger name, or message substring
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
