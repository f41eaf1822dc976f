package telemetry

import (
	"testing"

	"crashgate/internal/models"

	"github.com/stretchr/testify/assert"
)

func lockedEvent() models.LogEvent {
	return models.LogEvent{
		Level:  models.LevelError,
		Logger: "Db",
		Exception: &models.ExceptionInfo{
			Type:        "Error",
			FullType:    "modernc.org/sqlite.Error",
			Message:     "database table is locked",
			StorageCode: "Locked",
		},
	}
}

func TestWarnWithoutExceptionIsNeverReportable(t *testing.T) {
	for _, suppress := range []bool{true, false} {
		cfg := DefaultClassifierConfig()
		cfg.SuppressNoise = suppress
		c := NewClassifier(cfg)
		assert.False(t, c.IsReportable(models.LogEvent{Level: models.LevelWarn, Logger: "Api", Message: "slow"}))
	}
}

func TestErrorWithoutExceptionIsNotReportable(t *testing.T) {
	c := NewClassifier(DefaultClassifierConfig())
	assert.False(t, c.IsReportable(models.LogEvent{Level: models.LevelFatal, Logger: "Api"}))
}

func TestWarnWithExceptionIsNotReportable(t *testing.T) {
	c := NewClassifier(DefaultClassifierConfig())
	ev := errorEvent("Api", "m", "IOException")
	ev.Level = models.LevelWarn
	assert.False(t, c.IsReportable(ev))
}

func TestLockedStorageFailureDependsOnSuppression(t *testing.T) {
	cfg := DefaultClassifierConfig()
	assert.False(t, NewClassifier(cfg).IsReportable(lockedEvent()))

	cfg.SuppressNoise = false
	assert.True(t, NewClassifier(cfg).IsReportable(lockedEvent()))
}

func TestStorageCodeMatchIsCaseInsensitive(t *testing.T) {
	cfg := DefaultClassifierConfig()
	cfg.DeniedStorageCodes = []string{"LOCKED"}
	assert.False(t, NewClassifier(cfg).IsReportable(lockedEvent()))
}

func TestNonDeniedStorageCodeIsReportable(t *testing.T) {
	ev := lockedEvent()
	ev.Exception.StorageCode = "Constraint"
	assert.True(t, NewClassifier(DefaultClassifierConfig()).IsReportable(ev))
}

func TestDeniedTypesAndMessages(t *testing.T) {
	c := NewClassifier(DefaultClassifierConfig())

	ev := errorEvent("Db", "boot", "CorruptDatabaseException")
	assert.False(t, c.IsReportable(ev))

	ev = errorEvent("Idx", "Indexer X is misconfigured (missing key)", "IndexerException")
	assert.False(t, c.IsReportable(ev))

	ev = errorEvent("Db", "disk full", "IOException")
	assert.True(t, c.IsReportable(ev))
}

func TestDeniedFullTypeName(t *testing.T) {
	cfg := DefaultClassifierConfig()
	cfg.DeniedTypes = []string{"System.IO.IOException"}
	assert.False(t, NewClassifier(cfg).IsReportable(errorEvent("Db", "disk full", "IOException")))
}

func TestOverrideBypassesFilters(t *testing.T) {
	c := NewClassifier(DefaultClassifierConfig())

	ev := models.LogEvent{
		Level:      models.LevelInfo,
		Logger:     "Api",
		Properties: map[string]any{"fingerprint": []string{"custom"}},
	}
	assert.True(t, c.IsReportable(ev))

	ev = lockedEvent()
	ev.Properties = map[string]any{"fingerprint": []string{}}
	cfg := DefaultClassifierConfig()
	cfg.SuppressNoise = false
	assert.False(t, NewClassifier(cfg).IsReportable(ev))

	ev.Properties = map[string]any{"fingerprint": []string{""}}
	assert.False(t, NewClassifier(cfg).IsReportable(ev))
}

func TestOperatorExclusions(t *testing.T) {
	cfg := DefaultClassifierConfig()
	cfg.SuppressNoise = false
	c := NewClassifier(cfg)

	ev := errorEvent("Db", "disk full", "IOException")
	assert.True(t, c.IsReportable(ev))

	c.SetExclusions([]models.Exclusion{{Kind: models.ExclusionExceptionType, Pattern: "System.IO.IOException"}})
	assert.False(t, c.IsReportable(ev))

	c.SetExclusions([]models.Exclusion{{Kind: models.ExclusionLogger, Pattern: "Db"}})
	assert.False(t, c.IsReportable(ev))

	c.SetExclusions([]models.Exclusion{{Kind: models.ExclusionMessage, Pattern: "disk"}})
	assert.False(t, c.IsReportable(ev))

	c.SetExclusions(nil)
	assert.True(t, c.IsReportable(ev))
}
