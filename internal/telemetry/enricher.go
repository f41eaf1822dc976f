package telemetry

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"crashgate/internal/models"

	"github.com/google/uuid"
)

// Tag keys set on every outgoing event.
const (
	TagOSFamily       = "os.family"
	TagRuntime        = "runtime"
	TagCulture        = "culture"
	TagBranch         = "branch"
	TagVersion        = "version"
	TagOSName         = "os.name"
	TagOSVersion      = "os.version"
	TagRuntimeVersion = "runtime.version"
)

// EnricherConfig describes the static tags and the environment keys read at send time.
type EnricherConfig struct {
	Branch  string
	Version string
	Culture string // BCP 47; detected from the POSIX locale when empty

	OSNameEnv         string // default OS_NAME
	OSVersionEnv      string // default OS_VERSION
	RuntimeVersionEnv string // default RUNTIME_VERSION
}

// Enricher builds outbound telemetry events.
type Enricher struct {
	cfg    EnricherConfig
	getenv func(string) string
	now    func() time.Time
}

// NewEnricher creates an enricher reading the process environment.
func NewEnricher(cfg EnricherConfig) *Enricher {
	if cfg.OSNameEnv == "" {
		cfg.OSNameEnv = "OS_NAME"
	}
	if cfg.OSVersionEnv == "" {
		cfg.OSVersionEnv = "OS_VERSION"
	}
	if cfg.RuntimeVersionEnv == "" {
		cfg.RuntimeVersionEnv = "RUNTIME_VERSION"
	}
	if cfg.Culture == "" {
		cfg.Culture = DetectCulture(os.Getenv)
	}
	return &Enricher{cfg: cfg, getenv: os.Getenv, now: time.Now}
}

// StaticTags are the tags known at construction time.
func (e *Enricher) StaticTags() map[string]string {
	tags := map[string]string{
		TagOSFamily: runtime.GOOS,
		TagRuntime:  "go",
		TagCulture:  e.cfg.Culture,
	}
	if e.cfg.Branch != "" {
		tags[TagBranch] = e.cfg.Branch
	}
	if e.cfg.Version != "" {
		tags[TagVersion] = e.cfg.Version
	}
	return tags
}

// Build assembles the event sent for ev, grouped under fp.
func (e *Enricher) Build(ev models.LogEvent, fp Fingerprint) *models.TelemetryEvent {
	ts := ev.Timestamp
	if ts.IsZero() {
		ts = e.now()
	}

	out := &models.TelemetryEvent{
		EventID:     strings.ReplaceAll(uuid.NewString(), "-", ""),
		Timestamp:   ts.UTC(),
		Level:       ev.Level,
		Logger:      ev.Logger,
		Message:     ev.Message,
		Exception:   ev.Exception,
		Tags:        e.StaticTags(),
		Extra:       make(map[string]string, len(ev.Properties)),
		Fingerprint: append([]string(nil), fp...),
	}

	for k, v := range ev.Properties {
		if k == FingerprintProperty {
			continue
		}
		out.Extra[k] = stringify(v)
	}
	if ev.Exception != nil {
		for k, v := range ev.Exception.Data {
			out.Extra[k] = stringify(v)
		}
	}

	// Read late: these are exported by the host after startup completes.
	if v := normalizeName(e.getenv(e.cfg.OSNameEnv)); v != "" {
		out.Tags[TagOSName] = v
	}
	if v := strings.TrimSpace(e.getenv(e.cfg.OSVersionEnv)); v != "" {
		out.Tags[TagOSVersion] = v
	}
	rv := strings.TrimSpace(e.getenv(e.cfg.RuntimeVersionEnv))
	if rv == "" {
		rv = runtime.Version()
	}
	out.Tags[TagRuntimeVersion] = rv

	return out
}

// normalizeName lowercases and collapses whitespace: "  Ubuntu  Linux " -> "ubuntu linux".
func normalizeName(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case error:
		return x.Error()
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}
