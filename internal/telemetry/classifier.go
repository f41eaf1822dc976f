package telemetry

import (
	"strings"
	"sync/atomic"

	"crashgate/internal/models"
)

// Default deny-lists applied when noise suppression is on.
var (
	// Storage-engine result codes that describe the host environment, not a bug.
	DefaultDeniedStorageCodes = []string{
		"Busy", "Locked", "Perm", "ReadOnly", "IoErr", "Corrupt", "Full", "CantOpen", "Auth",
	}

	// CorruptDatabaseException is raised on every boot against a broken
	// database; reporting it turns a reboot loop into a report loop.
	DefaultDeniedTypes = []string{
		"UnauthorizedAccessException",
		"CorruptDatabaseException",
	}

	DefaultDeniedMessages = []string{
		"Lucene.Net.Store",
		"Jackett.Common.IndexerException",
		"is misconfigured (",
	}
)

// ClassifierConfig holds the deny-lists and the suppression toggle.
type ClassifierConfig struct {
	SuppressNoise      bool
	DeniedStorageCodes []string
	DeniedTypes        []string
	DeniedMessages     []string
}

// DefaultClassifierConfig returns suppression on with the default deny-lists.
func DefaultClassifierConfig() ClassifierConfig {
	return ClassifierConfig{
		SuppressNoise:      true,
		DeniedStorageCodes: DefaultDeniedStorageCodes,
		DeniedTypes:        DefaultDeniedTypes,
		DeniedMessages:     DefaultDeniedMessages,
	}
}

// Classifier decides whether a log event is worth reporting.
type Classifier struct {
	suppressNoise bool
	storageCodes  map[string]struct{}
	types         map[string]struct{}
	messages      []string

	exclusions atomic.Pointer[exclusionSet]
}

type exclusionSet struct {
	types    map[string]struct{}
	loggers  map[string]struct{}
	messages []string
}

// NewClassifier builds a classifier from cfg. Storage codes match case-insensitively.
func NewClassifier(cfg ClassifierConfig) *Classifier {
	c := &Classifier{
		suppressNoise: cfg.SuppressNoise,
		storageCodes:  make(map[string]struct{}, len(cfg.DeniedStorageCodes)),
		types:         make(map[string]struct{}, len(cfg.DeniedTypes)),
		messages:      append([]string(nil), cfg.DeniedMessages...),
	}
	for _, code := range cfg.DeniedStorageCodes {
		c.storageCodes[strings.ToLower(code)] = struct{}{}
	}
	for _, t := range cfg.DeniedTypes {
		c.types[t] = struct{}{}
	}
	c.exclusions.Store(&exclusionSet{})
	return c
}

// SetExclusions replaces the operator exclusions. Safe to call while events flow.
func (c *Classifier) SetExclusions(list []models.Exclusion) {
	set := &exclusionSet{
		types:   make(map[string]struct{}),
		loggers: make(map[string]struct{}),
	}
	for _, ex := range list {
		switch ex.Kind {
		case models.ExclusionExceptionType:
			set.types[ex.Pattern] = struct{}{}
		case models.ExclusionLogger:
			set.loggers[ex.Pattern] = struct{}{}
		case models.ExclusionMessage:
			set.messages = append(set.messages, ex.Pattern)
		}
	}
	c.exclusions.Store(set)
}

// IsReportable applies, in order: the explicit override, the severity and
// failure requirement, the noise deny-lists (when enabled), and operator exclusions.
func (c *Classifier) IsReportable(ev models.LogEvent) bool {
	if fp, present := Override(ev); present {
		return len(fp) > 0
	}
	return c.reportable(ev)
}

// reportable is IsReportable for an event already known to carry no override.
func (c *Classifier) reportable(ev models.LogEvent) bool {
	ex := ev.Exception
	if ev.Level < models.LevelError || ex == nil {
		return false
	}
	if c.suppressNoise && c.isNoise(ex) {
		return false
	}
	return !c.isExcluded(ev)
}

func (c *Classifier) isNoise(ex *models.ExceptionInfo) bool {
	if ex.IsStorageEngine() {
		if _, denied := c.storageCodes[strings.ToLower(ex.StorageCode)]; denied {
			return true
		}
	}
	if _, denied := c.types[ex.Type]; denied {
		return true
	}
	if _, denied := c.types[ex.QualifiedType()]; denied {
		return true
	}
	return containsAny(ex.Message, c.messages)
}

func (c *Classifier) isExcluded(ev models.LogEvent) bool {
	set := c.exclusions.Load()
	if _, ok := set.loggers[ev.Logger]; ok {
		return true
	}
	ex := ev.Exception
	if _, ok := set.types[ex.Type]; ok {
		return true
	}
	if _, ok := set.types[ex.QualifiedType()]; ok {
		return true
	}
	return containsAny(ex.Message, set.messages) || containsAny(ev.Message, set.messages)
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if n != "" && strings.Contains(s, n) {
			return true
		}
	}
	return false
}
