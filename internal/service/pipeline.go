package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"crashgate/internal/models"
)

var (
	ErrTelemetryDisabled = errors.New("telemetry is disabled")
	ErrEmptyEvent        = errors.New("event needs a message or an exception")
)

// Forwarder is the capture pipeline as seen by the API.
type Forwarder interface {
	Handle(ctx context.Context, ev models.LogEvent)
	Status() models.PipelineStatus
	Reset()
}

// PipelineService exposes the forwarder to the HTTP layer. A nil forwarder means telemetry is off.
type PipelineService struct {
	fwd Forwarder
	now func() time.Time
}

func NewPipelineService(fwd Forwarder) *PipelineService {
	return &PipelineService{fwd: fwd, now: time.Now}
}

// Ingest runs an externally submitted log event through the pipeline.
func (s *PipelineService) Ingest(ctx context.Context, ev models.LogEvent) error {
	if s.fwd == nil {
		return ErrTelemetryDisabled
	}
	ev.Logger = strings.TrimSpace(ev.Logger)
	if strings.TrimSpace(ev.Message) == "" && ev.Exception == nil {
		return ErrEmptyEvent
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = s.now().UTC()
	}
	s.fwd.Handle(ctx, ev)
	return nil
}

func (s *PipelineService) Status() (models.PipelineStatus, error) {
	if s.fwd == nil {
		return models.PipelineStatus{}, ErrTelemetryDisabled
	}
	return s.fwd.Status(), nil
}

// Reset returns a suppressed pipeline to active.
func (s *PipelineService) Reset() error {
	if s.fwd == nil {
		return ErrTelemetryDisabled
	}
	s.fwd.Reset()
	return nil
}
