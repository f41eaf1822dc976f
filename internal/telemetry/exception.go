package telemetry

import (
	"errors"
	"reflect"
	"strconv"

	"crashgate/internal/models"

	"golang.org/x/text/message"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// maxCauseDepth bounds how far an error chain is unwrapped.
const maxCauseDepth = 16

// DataError is implemented by errors that carry side-data for the report.
type DataError interface {
	ErrorData() map[string]any
}

// LocalizedError is implemented by errors whose text depends on the locale.
type LocalizedError interface {
	FormatMessage(p *message.Printer) string
}

// wrapperTypes are standard-library wrappers whose type says nothing about the failure.
var wrapperTypes = map[string]struct{}{
	"fmt.wrapError":    {},
	"fmt.wrapErrors":   {},
	"errors.joinError": {},
}

// storageCodeNames maps primary SQLite result codes to their names.
var storageCodeNames = map[int]string{
	sqlite3.SQLITE_ERROR:      "Error",
	sqlite3.SQLITE_INTERNAL:   "Internal",
	sqlite3.SQLITE_PERM:       "Perm",
	sqlite3.SQLITE_ABORT:      "Abort",
	sqlite3.SQLITE_BUSY:       "Busy",
	sqlite3.SQLITE_LOCKED:     "Locked",
	sqlite3.SQLITE_NOMEM:      "NoMem",
	sqlite3.SQLITE_READONLY:   "ReadOnly",
	sqlite3.SQLITE_INTERRUPT:  "Interrupt",
	sqlite3.SQLITE_IOERR:      "IoErr",
	sqlite3.SQLITE_CORRUPT:    "Corrupt",
	sqlite3.SQLITE_NOTFOUND:   "NotFound",
	sqlite3.SQLITE_FULL:       "Full",
	sqlite3.SQLITE_CANTOPEN:   "CantOpen",
	sqlite3.SQLITE_PROTOCOL:   "Protocol",
	sqlite3.SQLITE_SCHEMA:     "Schema",
	sqlite3.SQLITE_TOOBIG:     "TooBig",
	sqlite3.SQLITE_CONSTRAINT: "Constraint",
	sqlite3.SQLITE_MISMATCH:   "Mismatch",
	sqlite3.SQLITE_MISUSE:     "Misuse",
	sqlite3.SQLITE_AUTH:       "Auth",
	sqlite3.SQLITE_RANGE:      "Range",
	sqlite3.SQLITE_NOTADB:     "NotADb",
}

// StorageCodeName names a SQLite result code; extended codes map to their primary code.
func StorageCodeName(code int) string {
	if name, ok := storageCodeNames[code&0xff]; ok {
		return name
	}
	return "Code" + strconv.Itoa(code)
}

// ExceptionFromError describes an error chain for the pipeline.
// Each Unwrap step becomes the Cause of the previous level. Standard-library
// wrappers (fmt.Errorf with %w, errors.Join) are folded into the error they
// wrap: that level keeps the full text but takes the wrapped error's type.
func ExceptionFromError(err error, targetSite string) *models.ExceptionInfo {
	if err == nil {
		return nil
	}
	ex := exceptionFromError(err, 0)
	ex.TargetSite = targetSite
	return ex
}

func exceptionFromError(err error, depth int) *models.ExceptionInfo {
	msg := err.Error()
	for depth < maxCauseDepth && isWrapper(err) {
		inner := unwrapFirst(err)
		if inner == nil {
			break
		}
		err = inner
		depth++
	}

	t := reflect.TypeOf(err)
	ex := &models.ExceptionInfo{
		Type:     shortTypeName(t),
		FullType: qualifiedTypeName(t),
		Message:  msg,
	}

	var se *sqlite.Error
	if errors.As(err, &se) {
		ex.StorageCode = StorageCodeName(se.Code())
	}
	if de, ok := err.(DataError); ok {
		ex.Data = de.ErrorData()
	}
	if le, ok := err.(LocalizedError); ok {
		ex.Format = le.FormatMessage
	}

	if depth < maxCauseDepth {
		if inner := unwrapFirst(err); inner != nil {
			ex.Cause = exceptionFromError(inner, depth+1)
		}
	}
	return ex
}

func isWrapper(err error) bool {
	_, ok := wrapperTypes[qualifiedTypeName(reflect.TypeOf(err))]
	return ok
}

// unwrapFirst follows single and joined wraps; joined errors continue with their first member.
func unwrapFirst(err error) error {
	switch u := err.(type) {
	case interface{ Unwrap() error }:
		return u.Unwrap()
	case interface{ Unwrap() []error }:
		if errs := u.Unwrap(); len(errs) > 0 {
			return errs[0]
		}
	}
	return nil
}

func shortTypeName(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() == "" {
		return t.String()
	}
	return t.Name()
}

func qualifiedTypeName(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() == "" || t.PkgPath() == "" {
		return t.String()
	}
	return t.PkgPath() + "." + t.Name()
}
