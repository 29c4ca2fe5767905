package errs

import (
	"errors"
	"fmt"

	pkgerr "github.com/pkg/errors"
)

// Error kinds. Every error produced by the engine matches exactly one of
// these with errors.Is.
var (
	Auth        = errors.New("auth error")
	Transfer    = errors.New("transfer error")
	Persistence = errors.New("persistence error")
	Protocol    = errors.New("protocol error")
)

var (
	SessionNotFound   = errors.New("onedrive session not found")
	NoUserLeft        = errors.New("no user left")
	UserNotFound      = errors.New("user not found")
	TaskNotFound      = errors.New("task not found")
	InvalidTransition = errors.New("invalid task status transition")
	InvalidState      = errors.New("invalid task state")
	Canceled          = errors.New("task canceled")
	NotAuthorized     = errors.New("onedrive not authorized")
)

type kindError struct {
	kind  error
	msg   string
	cause error
}

func (e *kindError) Error() string {
	if e.cause == nil {
		return fmt.Sprintf("%s: %s", e.kind, e.msg)
	}
	return fmt.Sprintf("%s: %s: %s", e.kind, e.msg, e.cause)
}

func (e *kindError) Unwrap() []error {
	if e.cause == nil {
		return []error{e.kind}
	}
	return []error{e.kind, e.cause}
}

func newKind(kind, cause error, format string, args ...any) error {
	return pkgerr.WithStack(&kindError{kind: kind, msg: fmt.Sprintf(format, args...), cause: cause})
}

func NewAuth(cause error, format string, args ...any) error {
	return newKind(Auth, cause, format, args...)
}

func NewTransfer(cause error, format string, args ...any) error {
	return newKind(Transfer, cause, format, args...)
}

func NewPersistence(cause error, format string, args ...any) error {
	return newKind(Persistence, cause, format, args...)
}

func NewProtocol(cause error, format string, args ...any) error {
	return newKind(Protocol, cause, format, args...)
}

// KindOf returns the kind sentinel matched by err, or nil.
func KindOf(err error) error {
	for _, kind := range []error{Auth, Transfer, Persistence, Protocol} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

func IsCanceled(err error) bool {
	return errors.Is(err, Canceled)
}
