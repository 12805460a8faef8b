package httpshare

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures of share operations.
type ErrorKind int

const (
	// KindInvalid means the operation targeted a destroyed or never-valid object.
	KindInvalid ErrorKind = iota + 1
	// KindInUse means destruction or reconfiguration was attempted while
	// handles remain attached.
	KindInUse
	// KindBadOption means an unrecognized store kind or option value.
	KindBadOption
	// KindNotBuiltIn means the requested store kind is not supported by the
	// running transfer engine build.
	KindNotBuiltIn
	// KindNoMemory means a store could not be constructed. The built-in
	// in-memory stores never produce it; it exists for alternative backends.
	KindNoMemory
	// KindInvalidHandle means the handle is already attached to a different share.
	KindInvalidHandle
)

// String returns the wire name of the error kind.
func (k ErrorKind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindInUse:
		return "in-use"
	case KindBadOption:
		return "bad-option"
	case KindNotBuiltIn:
		return "not-built-in"
	case KindNoMemory:
		return "no-memory"
	case KindInvalidHandle:
		return "invalid-handle"
	default:
		return "unknown"
	}
}

// ShareError is returned by every fallible share operation. A failed
// operation leaves the share in its prior state; nothing partial is visible.
type ShareError struct {
	Kind    ErrorKind
	Op      string // operation that detected the failure: "attach", "destroy", ...
	Message string
	Err     error // underlying cause, if any
}

func (e *ShareError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		return fmt.Sprintf("httpshare: %s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("httpshare: %s: %s (%s)", e.Op, msg, e.Kind)
}

func (e *ShareError) Unwrap() error {
	return e.Err
}

func newError(kind ErrorKind, op, format string, args ...any) *ShareError {
	return &ShareError{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the ErrorKind from err, or 0 if err is not a ShareError.
func KindOf(err error) ErrorKind {
	var se *ShareError
	if errors.As(err, &se) {
		return se.Kind
	}
	return 0
}

// IsInUse reports whether err is a ShareError of kind KindInUse.
func IsInUse(err error) bool { return KindOf(err) == KindInUse }

// IsInvalid reports whether err is a ShareError of kind KindInvalid.
func IsInvalid(err error) bool { return KindOf(err) == KindInvalid }

// IsBadOption reports whether err is a ShareError of kind KindBadOption.
func IsBadOption(err error) bool { return KindOf(err) == KindBadOption }

// IsNotBuiltIn reports whether err is a ShareError of kind KindNotBuiltIn.
func IsNotBuiltIn(err error) bool { return KindOf(err) == KindNotBuiltIn }

// IsInvalidHandle reports whether err is a ShareError of kind KindInvalidHandle.
func IsInvalidHandle(err error) bool { return KindOf(err) == KindInvalidHandle }
