package telemetry

import (
	"sync"
	"time"
)

const (
	defaultDebounceWindow     = 60 * time.Second
	defaultMaxDebounceEntries = 10_000
)

// GateConfig configures a debounce gate.
type GateConfig struct {
	Window     time.Duration // minimum time between admissions of one fingerprint (default 60s)
	MaxEntries int           // table cap (default 10000)
}

// Gate admits a fingerprint at most once per window.
type Gate struct {
	mu         sync.Mutex
	window     time.Duration
	maxEntries int
	now        func() time.Time
	lastSeen   map[FingerprintKey]time.Time
}

// NewGate creates a gate; zero config values fall back to defaults.
func NewGate(cfg GateConfig) *Gate {
	if cfg.Window <= 0 {
		cfg.Window = defaultDebounceWindow
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = defaultMaxDebounceEntries
	}
	return &Gate{
		window:     cfg.Window,
		maxEntries: cfg.MaxEntries,
		now:        time.Now,
		lastSeen:   make(map[FingerprintKey]time.Time),
	}
}

// Allowed reports whether fp may be sent now, and records the admission if so.
//   - first time seen: admit
//   - seen less than one window ago: deny, timestamp untouched
//   - seen a window or more ago: admit and refresh
func (g *Gate) Allowed(fp Fingerprint) bool {
	key := fp.Key()

	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if last, ok := g.lastSeen[key]; ok {
		if now.Sub(last) < g.window {
			return false
		}
		g.lastSeen[key] = now
		return true
	}

	if len(g.lastSeen) >= g.maxEntries {
		g.evictLocked(now)
	}
	g.lastSeen[key] = now
	return true
}

// evictLocked drops expired keys; if none expired, it drops the least recently admitted one.
// Caller must hold g.mu.
func (g *Gate) evictLocked(now time.Time) {
	var (
		oldestKey FingerprintKey
		oldestAt  time.Time
		found     bool
	)
	for key, at := range g.lastSeen {
		if now.Sub(at) >= g.window {
			delete(g.lastSeen, key)
			continue
		}
		if !found || at.Before(oldestAt) {
			oldestKey, oldestAt, found = key, at, true
		}
	}
	if len(g.lastSeen) >= g.maxEntries && found {
		delete(g.lastSeen, oldestKey)
	}
}

// Clear forgets every fingerprint.
func (g *Gate) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lastSeen = make(map[FingerprintKey]time.Time)
}

// Len returns the number of tracked fingerprints.
func (g *Gate) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.lastSeen)
}

// Window returns the configured debounce window.
func (g *Gate) Window() time.Duration {
	return g.window
}
