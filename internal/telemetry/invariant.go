package telemetry

import (
	"strings"

	"crashgate/internal/models"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// invariantPrinter renders with the root locale and untranslated catalog keys.
var invariantPrinter = message.NewPrinter(language.Und)

// InvariantMessage returns the exception message rendered without regional
// conventions. ok is false when no such rendering exists: the message was
// localized and carries no formatter, or the formatter panicked.
//
// The formatter is called synchronously on the caller's goroutine with a
// dedicated printer; no process-wide locale state is read or written.
func InvariantMessage(ex *models.ExceptionInfo) (msg string, ok bool) {
	if ex == nil {
		return "", false
	}
	if ex.Format == nil {
		if ex.Localized {
			return "", false
		}
		return ex.Message, true
	}

	defer func() {
		if r := recover(); r != nil {
			msg, ok = "", false
		}
	}()
	return ex.Format(invariantPrinter), true
}

// DetectCulture derives a BCP 47 tag from the POSIX locale variables.
// "en_US.UTF-8" becomes "en-US"; "C", "POSIX" and unset yield "und".
func DetectCulture(getenv func(string) string) string {
	for _, key := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		raw := strings.TrimSpace(getenv(key))
		if raw == "" {
			continue
		}
		if i := strings.IndexAny(raw, ".@"); i >= 0 {
			raw = raw[:i]
		}
		if raw == "C" || raw == "POSIX" {
			return language.Und.String()
		}
		tag, err := language.Parse(strings.ReplaceAll(raw, "_", "-"))
		if err != nil {
			continue
		}
		return tag.String()
	}
	return language.Und.String()
}
