package telemetry

import (
	"context"
	"errors"
	"sync"
	"time"

	"crashgate/internal/models"
)

type fakeClient struct {
	mu          sync.Mutex
	scope       models.Scope
	breadcrumbs []models.Breadcrumb
	events      []*models.TelemetryEvent
	results     []models.SendResult // consumed in order; SendOK once empty
	closed      int
	panicOnSend bool
}

func (c *fakeClient) Configure(scope models.Scope) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scope = scope
}

func (c *fakeClient) AddBreadcrumb(b models.Breadcrumb) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.breadcrumbs = append(c.breadcrumbs, b)
}

func (c *fakeClient) CaptureEvent(_ context.Context, ev *models.TelemetryEvent) models.SendResult {
	if c.panicOnSend {
		panic("boom")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
	if len(c.results) == 0 {
		return models.SendResult{Status: models.SendOK, EventID: ev.EventID}
	}
	res := c.results[0]
	c.results = c.results[1:]
	return res
}

func (c *fakeClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed++
	return nil
}

func (c *fakeClient) captured() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func (c *fakeClient) crumbs() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.breadcrumbs)
}

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func errorEvent(logger, msg, exType string) models.LogEvent {
	return models.LogEvent{
		Level:   models.LevelError,
		Logger:  logger,
		Message: msg,
		Exception: &models.ExceptionInfo{
			Type:     exType,
			FullType: "System.IO." + exType,
			Message:  msg,
		},
	}
}

var errUnauthorized = errors.New("remote rejected credentials")
