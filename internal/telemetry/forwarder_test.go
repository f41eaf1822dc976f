package telemetry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"crashgate/internal/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestForwarder(t *testing.T, client *fakeClient, suppress bool) (*Forwarder, *fakeClock) {
	t.Helper()
	cfg := Config{
		Classifier:  DefaultClassifierConfig(),
		Gate:        GateConfig{Window: time.Minute},
		Enricher:    EnricherConfig{Culture: "en-US", Version: "1.0.0"},
		Release:     "crashgate@1.0.0",
		Environment: "test",
	}
	cfg.Classifier.SuppressNoise = suppress
	f := New(cfg, client)
	clock := newFakeClock()
	f.gate.now = clock.Now
	f.enricher.now = clock.Now
	return f, clock
}

func TestForwarderConfiguresScope(t *testing.T) {
	client := &fakeClient{}
	newTestForwarder(t, client, true)

	assert.Equal(t, "crashgate@1.0.0", client.scope.Release)
	assert.Equal(t, "test", client.scope.Environment)
	assert.Equal(t, AnonymousUserID(), client.scope.UserID)
	assert.Equal(t, "en-US", client.scope.Tags[TagCulture])
	assert.Equal(t, "1.0.0", client.scope.Tags[TagVersion])
}

func TestDiskFullScenario(t *testing.T) {
	client := &fakeClient{}
	f, clock := newTestForwarder(t, client, true)

	ev := errorEvent("X", "disk full", "IOException")
	f.Handle(context.Background(), ev)
	clock.Advance(500 * time.Millisecond)
	f.Handle(context.Background(), ev)

	assert.Equal(t, 1, client.captured())
	assert.Equal(t, 2, client.crumbs())

	status := f.Status()
	assert.Equal(t, StateActive, status.State)
	assert.Equal(t, int64(2), status.Outcomes[OutcomeReceived])
	assert.Equal(t, int64(1), status.Outcomes[OutcomeCaptured])
	assert.Equal(t, int64(1), status.Outcomes[OutcomeDebounced])
	assert.Equal(t, 1, status.DebounceEntries)
}

func TestForwarderSendsDetailedFingerprint(t *testing.T) {
	client := &fakeClient{}
	f, _ := newTestForwarder(t, client, true)

	ev := errorEvent("X", "disk full", "IOException")
	f.Handle(context.Background(), ev)

	require.Equal(t, 1, client.captured())
	sent := client.events[0]
	assert.Equal(t, []string(Detailed(ev)), sent.Fingerprint)
	assert.Equal(t, "X", sent.Logger)
	assert.Equal(t, models.LevelError, sent.Level)
}

func TestForwarderRecordsBreadcrumbForNonReportable(t *testing.T) {
	client := &fakeClient{}
	f, _ := newTestForwarder(t, client, true)

	f.Handle(context.Background(), models.LogEvent{Level: models.LevelWarn, Logger: "Api", Message: "slow"})
	f.Handle(context.Background(), lockedEvent())

	assert.Equal(t, 0, client.captured())
	require.Equal(t, 2, client.crumbs())
	assert.Equal(t, "Api", client.breadcrumbs[0].Category)
	assert.Equal(t, models.LevelWarn, client.breadcrumbs[0].Level)
	assert.Equal(t, int64(2), f.Status().Outcomes[OutcomeNotReportable])
}

func TestLockedReportedWhenSuppressionOff(t *testing.T) {
	client := &fakeClient{}
	f, _ := newTestForwarder(t, client, false)
	f.Handle(context.Background(), lockedEvent())
	assert.Equal(t, 1, client.captured())
}

func TestUnauthorizedSuppressesAndClearsGate(t *testing.T) {
	client := &fakeClient{results: []models.SendResult{{Status: models.SendUnauthorized, Err: errUnauthorized}}}
	f, _ := newTestForwarder(t, client, true)

	f.Handle(context.Background(), errorEvent("X", "first", "IOException"))
	require.Equal(t, 1, client.captured())
	assert.True(t, f.Suppressed())
	assert.Equal(t, 0, f.gate.Len())

	f.Handle(context.Background(), errorEvent("Y", "second", "TimeoutException"))
	assert.Equal(t, 1, client.captured())
	assert.Equal(t, 1, client.crumbs(), "no breadcrumbs while suppressed")

	status := f.Status()
	assert.Equal(t, StateSuppressed, status.State)
	assert.Equal(t, int64(1), status.Outcomes[OutcomeUnauthorized])
	assert.Equal(t, int64(1), status.Outcomes[OutcomeSuppressed])
}

func TestResetResumesSending(t *testing.T) {
	client := &fakeClient{results: []models.SendResult{{Status: models.SendUnauthorized}}}
	f, _ := newTestForwarder(t, client, true)

	ev := errorEvent("X", "first", "IOException")
	f.Handle(context.Background(), ev)
	require.True(t, f.Suppressed())

	f.Reset()
	assert.False(t, f.Suppressed())
	f.Handle(context.Background(), ev)
	assert.Equal(t, 2, client.captured())
}

func TestFailedSendKeepsActive(t *testing.T) {
	client := &fakeClient{results: []models.SendResult{{Status: models.SendFailed, Err: errors.New("503")}}}
	f, clock := newTestForwarder(t, client, true)

	ev := errorEvent("X", "boom", "IOException")
	f.Handle(context.Background(), ev)
	assert.False(t, f.Suppressed())
	assert.Equal(t, int64(1), f.Status().Outcomes[OutcomeFailed])

	// Retried once the window has passed.
	clock.Advance(time.Minute)
	f.Handle(context.Background(), ev)
	assert.Equal(t, 2, client.captured())
	assert.Equal(t, int64(1), f.Status().Outcomes[OutcomeCaptured])
}

func TestOverrideUsedVerbatim(t *testing.T) {
	client := &fakeClient{}
	f, _ := newTestForwarder(t, client, true)

	override := []string{"billing", "invoice-timeout"}
	first := models.LogEvent{Level: models.LevelInfo, Logger: "A", Message: "one",
		Properties: map[string]any{"fingerprint": override}}
	second := models.LogEvent{Level: models.LevelError, Logger: "B", Message: "two",
		Exception:  &models.ExceptionInfo{Type: "Other"},
		Properties: map[string]any{"fingerprint": override}}

	f.Handle(context.Background(), first)
	f.Handle(context.Background(), second)

	require.Equal(t, 1, client.captured(), "same override shares one debounce key")
	assert.Equal(t, override, client.events[0].Fingerprint)
	_, leaked := client.events[0].Extra[FingerprintProperty]
	assert.False(t, leaked)
}

func TestEmptyOverrideIsNotSent(t *testing.T) {
	client := &fakeClient{}
	f, _ := newTestForwarder(t, client, false)

	ev := errorEvent("X", "boom", "IOException")
	ev.Properties = map[string]any{"fingerprint": []string{}}
	f.Handle(context.Background(), ev)

	ev.Properties = map[string]any{"fingerprint": []string{""}}
	f.Handle(context.Background(), ev)

	assert.Equal(t, 0, client.captured())
	assert.Equal(t, 2, client.crumbs())
}

func TestHandleRecoversPanics(t *testing.T) {
	client := &fakeClient{panicOnSend: true}
	f, _ := newTestForwarder(t, client, true)

	assert.NotPanics(t, func() {
		f.Handle(context.Background(), errorEvent("X", "boom", "IOException"))
	})
	assert.Equal(t, int64(1), f.Status().Outcomes[OutcomePanicked])
}

func TestShutdownClosesOnce(t *testing.T) {
	client := &fakeClient{}
	f, _ := newTestForwarder(t, client, true)

	require.NoError(t, f.Shutdown())
	require.NoError(t, f.Shutdown())
	assert.Equal(t, 1, client.closed)
}

func TestIndependentForwarders(t *testing.T) {
	a, b := &fakeClient{}, &fakeClient{}
	fa, _ := newTestForwarder(t, a, true)
	fb, _ := newTestForwarder(t, b, true)

	ev := errorEvent("X", "disk full", "IOException")
	fa.Handle(context.Background(), ev)
	fb.Handle(context.Background(), ev)

	assert.Equal(t, 1, a.captured())
	assert.Equal(t, 1, b.captured())
}

func TestConcurrentHandle(t *testing.T) {
	client := &fakeClient{}
	f, _ := newTestForwarder(t, client, true)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.Handle(context.Background(), errorEvent("X", "disk full", "IOException"))
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, client.captured())
	assert.Equal(t, 50, client.crumbs())
}

func TestConcurrentUnauthorizedStopsSending(t *testing.T) {
	client := &fakeClient{results: []models.SendResult{{Status: models.SendUnauthorized}}}
	f, _ := newTestForwarder(t, client, true)

	f.Handle(context.Background(), errorEvent("X", "first", "IOException"))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			f.Handle(context.Background(), errorEvent("X", "later", "Type"+string(rune('A'+i))))
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 1, client.captured())
}

func TestOutcomesExportedToPrometheus(t *testing.T) {
	reg := prometheus.NewRegistry()
	client := &fakeClient{}
	f := New(Config{Classifier: DefaultClassifierConfig()}, client, WithRegisterer(reg))

	f.Handle(context.Background(), errorEvent("X", "disk full", "IOException"))

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.outcomes.WithLabelValues(OutcomeCaptured)))
	count, err := testutil.GatherAndCount(reg, "crashgate_telemetry_events_total")
	require.NoError(t, err)
	assert.Equal(t, len(allOutcomes), count)
}
