package errors

import (
	stderrors "errors"
	"fmt"
	"os"

	"github.com/julianstephens/rehab/internal/logger"
)

// Kind classifies a failure by how it is reported to the user
type Kind int

const (
	// KindInternal covers store and unexpected failures. The operation is abandoned.
	KindInternal Kind = iota
	// KindValidation is a bad user-entered field, reported inline.
	KindValidation
	// KindNotFound is a missing document.
	KindNotFound
	// KindUnauthorized is a missing or invalid identity.
	KindUnauthorized
	// KindForbidden is an identity acting on a record it does not own.
	KindForbidden
	// KindGeneration is a failed call to the generative text service.
	KindGeneration
	// KindRateLimited is an identity that exceeded its generation budget.
	KindRateLimited
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindGeneration:
		return "generation"
	case KindRateLimited:
		return "rate_limited"
	default:
		return "internal"
	}
}

// Error is an error tagged with a Kind
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Err == nil:
		return e.Msg
	case e.Msg == "":
		return e.Err.Error()
	default:
		return e.Msg + ": " + e.Err.Error()
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by kind and message so sentinels compare by identity of meaning
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Msg == e.Msg && t.Err == nil
}

// New returns a sentinel-style error of the given kind
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap tags err with kind, prefixing msg
func Wrap(kind Kind, err error, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf returns the kind of the outermost tagged error in err's chain,
// or KindInternal if none is tagged
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Format formats an error message with a consistent "Error: " prefix
func Format(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Error: %v", err)
}

// Formatf formats an error message with a consistent "Error: " prefix using a format string
func Formatf(format string, args ...interface{}) string {
	return fmt.Sprintf("Error: "+format, args...)
}

// Fatal logs an error and exits the program with exit code 1
func Fatal(err error) {
	if err != nil {
		logger.Error("Command execution failed", "error", err, "kind", KindOf(err))
		fmt.Fprintf(os.Stderr, "%s\n", Format(err))
		os.Exit(1)
	}
}
