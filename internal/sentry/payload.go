package sentry

import (
	"runtime"
	"time"

	"crashgate/internal/models"
)

type payload struct {
	EventID     string            `json:"event_id"`
	Timestamp   string            `json:"timestamp"`
	Level       string            `json:"level"`
	Logger      string            `json:"logger,omitempty"`
	Platform    string            `json:"platform"`
	Message     string            `json:"message,omitempty"`
	Release     string            `json:"release,omitempty"`
	Environment string            `json:"environment,omitempty"`
	ServerName  string            `json:"server_name,omitempty"`
	Exception   *exceptionList    `json:"exception,omitempty"`
	Tags        map[string]string `json:"tags,omitempty"`
	Extra       map[string]string `json:"extra,omitempty"`
	Fingerprint []string          `json:"fingerprint,omitempty"`
	Breadcrumbs *breadcrumbList   `json:"breadcrumbs,omitempty"`
	User        *user             `json:"user,omitempty"`
	Contexts    map[string]any    `json:"contexts,omitempty"`
}

type exceptionList struct {
	Values []exceptionValue `json:"values"`
}

type exceptionValue struct {
	Type   string `json:"type"`
	Value  string `json:"value,omitempty"`
	Module string `json:"module,omitempty"`
}

type breadcrumbList struct {
	Values []breadcrumb `json:"values"`
}

type breadcrumb struct {
	Timestamp string `json:"timestamp"`
	Category  string `json:"category,omitempty"`
	Message   string `json:"message,omitempty"`
	Level     string `json:"level"`
}

type user struct {
	ID string `json:"id"`
}

// levelName maps pipeline levels to the remote vocabulary.
func levelName(l models.Level) string {
	switch {
	case l <= models.LevelDebug:
		return "debug"
	case l == models.LevelInfo:
		return "info"
	case l == models.LevelWarn:
		return "warning"
	case l == models.LevelError:
		return "error"
	default:
		return "fatal"
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func buildPayload(ev *models.TelemetryEvent, scope models.Scope, crumbs []models.Breadcrumb) payload {
	p := payload{
		EventID:     ev.EventID,
		Timestamp:   formatTime(ev.Timestamp),
		Level:       levelName(ev.Level),
		Logger:      ev.Logger,
		Platform:    "go",
		Message:     ev.Message,
		Release:     scope.Release,
		Environment: scope.Environment,
		Tags:        mergeTags(scope.Tags, ev.Tags),
		Extra:       ev.Extra,
		Fingerprint: ev.Fingerprint,
		Contexts: map[string]any{
			"os":      map[string]string{"name": runtime.GOOS},
			"runtime": map[string]string{"name": "go", "version": runtime.Version()},
		},
	}
	if scope.UserID != "" {
		p.User = &user{ID: scope.UserID}
	}
	if ev.Exception != nil {
		p.Exception = &exceptionList{Values: exceptionValues(ev.Exception)}
	}
	if len(crumbs) > 0 {
		list := &breadcrumbList{Values: make([]breadcrumb, 0, len(crumbs))}
		for _, b := range crumbs {
			list.Values = append(list.Values, breadcrumb{
				Timestamp: formatTime(b.Timestamp),
				Category:  b.Category,
				Message:   b.Message,
				Level:     levelName(b.Level),
			})
		}
		p.Breadcrumbs = list
	}
	return p
}

// exceptionValues flattens the cause chain, innermost first.
func exceptionValues(ex *models.ExceptionInfo) []exceptionValue {
	var chain []exceptionValue
	for cur := ex; cur != nil; cur = cur.Cause {
		chain = append(chain, exceptionValue{
			Type:   cur.Type,
			Value:  cur.Message,
			Module: modulePath(cur),
		})
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

func modulePath(ex *models.ExceptionInfo) string {
	full := ex.QualifiedType()
	if len(full) > len(ex.Type)+1 && full[len(full)-len(ex.Type)-1] == '.' && full[len(full)-len(ex.Type):] == ex.Type {
		return full[:len(full)-len(ex.Type)-1]
	}
	return ""
}

func mergeTags(scope, event map[string]string) map[string]string {
	out := make(map[string]string, len(scope)+len(event))
	for k, v := range scope {
		out[k] = v
	}
	for k, v := range event {
		out[k] = v
	}
	return out
}
