package telemetry

import (
	"context"
	"sync"
	"sync/atomic"

	"crashgate/internal/logger"
	"crashgate/internal/models"

	"github.com/prometheus/client_golang/prometheus"
)

// Forwarder states.
const (
	StateActive     = "active"
	StateSuppressed = "suppressed"
)

// Client is the remote crash-reporting service.
type Client interface {
	Configure(scope models.Scope)
	AddBreadcrumb(b models.Breadcrumb)
	CaptureEvent(ctx context.Context, ev *models.TelemetryEvent) models.SendResult
	Close() error
}

// Config wires a forwarder.
type Config struct {
	Classifier  ClassifierConfig
	Gate        GateConfig
	Enricher    EnricherConfig
	Release     string
	Environment string
}

// Option customises a Forwarder.
type Option func(*Forwarder)

// WithLogger sets the diagnostic logger. It must not feed back into this forwarder.
func WithLogger(l *logger.Logger) Option {
	return func(f *Forwarder) { f.log = l }
}

// WithRegisterer registers the outcome counters with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(f *Forwarder) { f.reg = reg }
}

// Forwarder is the capture pipeline: breadcrumb, classify, debounce, enrich, send.
// Handle is safe for concurrent use.
type Forwarder struct {
	client     Client
	classifier *Classifier
	gate       *Gate
	enricher   *Enricher
	metrics    *Metrics
	log        *logger.Logger
	reg        prometheus.Registerer

	unauthorized atomic.Bool
	closeOnce    sync.Once
	closeErr     error
}

// New builds a forwarder and configures client with the process-wide scope.
func New(cfg Config, client Client, opts ...Option) *Forwarder {
	f := &Forwarder{
		client:     client,
		classifier: NewClassifier(cfg.Classifier),
		gate:       NewGate(cfg.Gate),
		enricher:   NewEnricher(cfg.Enricher),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.metrics = NewMetrics(f.reg)

	client.Configure(models.Scope{
		Release:     cfg.Release,
		Environment: cfg.Environment,
		UserID:      AnonymousUserID(),
		Tags:        f.enricher.StaticTags(),
	})

	if f.log != nil {
		f.log.Infow("telemetry_forwarder_ready",
			"release", cfg.Release,
			"environment", cfg.Environment,
			"suppress_noise", cfg.Classifier.SuppressNoise,
			"debounce_window", f.gate.Window(),
		)
	}
	return f
}

// Classifier exposes the classifier so operator exclusions can be swapped in.
func (f *Forwarder) Classifier() *Classifier {
	return f.classifier
}

// Handle runs one log event through the pipeline. It never returns an error
// and never panics; failures end up in the diagnostic log.
func (f *Forwarder) Handle(ctx context.Context, ev models.LogEvent) {
	if f.unauthorized.Load() {
		f.metrics.Record(OutcomeSuppressed)
		return
	}
	f.metrics.Record(OutcomeReceived)

	defer func() {
		if r := recover(); r != nil {
			f.metrics.Record(OutcomePanicked)
			f.errorw("telemetry_pipeline_panic", "panic", r, "logger", ev.Logger)
		}
	}()

	ts := ev.Timestamp
	if ts.IsZero() {
		ts = f.enricher.now()
	}
	f.client.AddBreadcrumb(models.Breadcrumb{
		Timestamp: ts,
		Category:  ev.Logger,
		Message:   ev.Message,
		Level:     ev.Level,
	})

	// The override is read once and drives both classification and grouping.
	override, hasOverride := Override(ev)
	var local Fingerprint
	switch {
	case hasOverride && len(override) == 0:
		f.metrics.Record(OutcomeNotReportable)
		return
	case hasOverride:
		local = override
	case !f.classifier.reportable(ev):
		f.metrics.Record(OutcomeNotReportable)
		return
	default:
		local = Coarse(ev)
	}

	if !f.gate.Allowed(local) {
		f.metrics.Record(OutcomeDebounced)
		return
	}

	grouping := override
	if !hasOverride {
		grouping = Detailed(ev)
	}
	event := f.enricher.Build(ev, grouping)

	// Another goroutine may have been rejected while this one was enriching.
	if f.unauthorized.Load() {
		f.metrics.Record(OutcomeSuppressed)
		return
	}

	res := f.client.CaptureEvent(ctx, event)
	switch res.Status {
	case models.SendOK:
		f.metrics.Record(OutcomeCaptured)
		if f.log != nil {
			f.log.Debugw("telemetry_event_captured", "event_id", res.EventID, "logger", ev.Logger)
		}
	case models.SendUnauthorized:
		f.metrics.Record(OutcomeUnauthorized)
		f.suppress(res.Err)
	default:
		f.metrics.Record(OutcomeFailed)
		f.errorw("telemetry_capture_failed", "err", res.Err, "logger", ev.Logger, "event_id", event.EventID)
	}
}

// suppress moves to the suppressed state; only the first caller logs.
func (f *Forwarder) suppress(cause error) {
	if !f.unauthorized.CompareAndSwap(false, true) {
		return
	}
	f.gate.Clear()
	if f.log != nil {
		f.log.Warnw("telemetry_unauthorized_sending_disabled", "err", cause)
	}
}

// Reset leaves the suppressed state, e.g. after the DSN was rotated.
func (f *Forwarder) Reset() {
	f.gate.Clear()
	if f.unauthorized.CompareAndSwap(true, false) && f.log != nil {
		f.log.Infow("telemetry_sending_resumed")
	}
}

// Suppressed reports whether sending is halted.
func (f *Forwarder) Suppressed() bool {
	return f.unauthorized.Load()
}

// Status returns a snapshot of the forwarder.
func (f *Forwarder) Status() models.PipelineStatus {
	state := StateActive
	if f.unauthorized.Load() {
		state = StateSuppressed
	}
	return models.PipelineStatus{
		State:           state,
		DebounceEntries: f.gate.Len(),
		Outcomes:        f.metrics.Snapshot(),
	}
}

// Shutdown closes the client once; later calls return the first result.
func (f *Forwarder) Shutdown() error {
	f.closeOnce.Do(func() {
		f.closeErr = f.client.Close()
		if f.closeErr != nil {
			f.errorw("telemetry_client_close_failed", "err", f.closeErr)
		}
	})
	return f.closeErr
}

func (f *Forwarder) errorw(msg string, kv ...interface{}) {
	if f.log != nil {
		f.log.Errorw(msg, kv...)
	}
}
