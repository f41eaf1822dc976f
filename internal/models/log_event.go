package models

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/message"
)

// Level is the ordered severity of a log event.
type Level int

const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

var levelNames = [...]string{"trace", "debug", "info", "warn", "error", "fatal"}

// String returns the lowercase level name ("error", "warn", ...).
func (l Level) String() string {
	if l < LevelTrace || l > LevelFatal {
		return fmt.Sprintf("level(%d)", int(l))
	}
	return levelNames[l]
}

// ParseLevel accepts the level names above plus "warning" and "critical".
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return LevelTrace, nil
	case "debug":
		return LevelDebug, nil
	case "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	case "fatal", "critical":
		return LevelFatal, nil
	}
	return LevelInfo, fmt.Errorf("unknown level %q", s)
}

func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

func (l *Level) UnmarshalText(b []byte) error {
	parsed, err := ParseLevel(string(b))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// LogEvent is one logging call as seen by the capture pipeline.
type LogEvent struct {
	Level      Level          `json:"level"`
	Logger     string         `json:"logger"`
	Message    string         `json:"message"`
	Properties map[string]any `json:"properties,omitempty"`
	Exception  *ExceptionInfo `json:"exception,omitempty"`
	Timestamp  time.Time      `json:"timestamp,omitempty"`
}

// ExceptionInfo describes the failure attached to a log event.
type ExceptionInfo struct {
	Type       string         `json:"type"`                  // concrete short type name
	FullType   string         `json:"full_type,omitempty"`   // fully qualified; Type when empty
	Message    string         `json:"message,omitempty"`
	TargetSite string         `json:"target_site,omitempty"` // function that raised the failure
	Data       map[string]any `json:"data,omitempty"`
	Cause      *ExceptionInfo `json:"cause,omitempty"`

	// StorageCode is the storage-engine result code name (e.g. "Locked").
	// Empty for failures that did not come from the storage engine.
	StorageCode string `json:"storage_code,omitempty"`

	// Localized marks Message as rendered for a regional locale.
	Localized bool `json:"localized,omitempty"`

	// Format renders the message under the given printer.
	Format func(p *message.Printer) string `json:"-"`
}

// QualifiedType returns FullType, falling back to Type.
func (e *ExceptionInfo) QualifiedType() string {
	if e.FullType != "" {
		return e.FullType
	}
	return e.Type
}

// IsStorageEngine reports whether the failure carries a storage-engine result code.
func (e *ExceptionInfo) IsStorageEngine() bool {
	return e.StorageCode != ""
}
