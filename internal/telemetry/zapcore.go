package telemetry

import (
	"context"
	"strings"

	"crashgate/internal/models"

	"go.uber.org/zap/zapcore"
)

// DiagnosticLogger is the logger name the pipeline reports its own problems
// under. Entries from it are never fed back into the pipeline.
const DiagnosticLogger = "telemetry"

// EventHandler consumes log events.
type EventHandler interface {
	Handle(ctx context.Context, ev models.LogEvent)
}

type captureCore struct {
	zapcore.LevelEnabler
	handler EventHandler
	fields  []zapcore.Field
}

// NewCore adapts h into a zap core so it can be teed next to the regular output.
func NewCore(h EventHandler, enab zapcore.LevelEnabler) zapcore.Core {
	return &captureCore{LevelEnabler: enab, handler: h}
}

func (c *captureCore) With(fields []zapcore.Field) zapcore.Core {
	clone := &captureCore{
		LevelEnabler: c.LevelEnabler,
		handler:      c.handler,
		fields:       make([]zapcore.Field, 0, len(c.fields)+len(fields)),
	}
	clone.fields = append(clone.fields, c.fields...)
	clone.fields = append(clone.fields, fields...)
	return clone
}

func (c *captureCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !c.Enabled(ent.Level) || isDiagnostic(ent.LoggerName) {
		return ce
	}
	return ce.AddCore(ent, c)
}

func (c *captureCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	enc := zapcore.NewMapObjectEncoder()
	var ex *models.ExceptionInfo

	add := func(f zapcore.Field) {
		if f.Type == zapcore.ErrorType {
			if err, ok := f.Interface.(error); ok && ex == nil {
				ex = ExceptionFromError(err, ent.Caller.Function)
				return
			}
		}
		f.AddTo(enc)
	}
	for _, f := range c.fields {
		add(f)
	}
	for _, f := range fields {
		add(f)
	}

	c.handler.Handle(context.Background(), models.LogEvent{
		Level:      fromZapLevel(ent.Level),
		Logger:     loggerName(ent),
		Message:    ent.Message,
		Properties: enc.Fields,
		Exception:  ex,
		Timestamp:  ent.Time,
	})
	return nil
}

func (c *captureCore) Sync() error { return nil }

// loggerName is the zap logger name, or for unnamed loggers the calling
// function ("handlers.(*Handler).signIn"), so unrelated call sites never share a category.
func loggerName(ent zapcore.Entry) string {
	if ent.LoggerName != "" || !ent.Caller.Defined {
		return ent.LoggerName
	}
	fn := ent.Caller.Function
	if i := strings.LastIndexByte(fn, '/'); i >= 0 {
		fn = fn[i+1:]
	}
	return fn
}

func isDiagnostic(name string) bool {
	return name == DiagnosticLogger || strings.HasPrefix(name, DiagnosticLogger+".")
}

func fromZapLevel(l zapcore.Level) models.Level {
	switch {
	case l <= zapcore.DebugLevel:
		return models.LevelDebug
	case l == zapcore.InfoLevel:
		return models.LevelInfo
	case l == zapcore.WarnLevel:
		return models.LevelWarn
	case l <= zapcore.DPanicLevel:
		return models.LevelError
	default:
		return models.LevelFatal
	}
}
