package geolocation

import (
	"errors"
	"fmt"
)

var (
	ErrPermissionDenied  = errors.New("location permission denied")
	ErrSourceUnavailable = errors.New("geolocation source unavailable")
	ErrPositionTimeout   = errors.New("position request timed out")
	ErrNoActiveWatch     = errors.New("no active watch")
)

// ErrorCode follows the W3C GeolocationPositionError codes.
type ErrorCode int

const (
	CodePermissionDenied    ErrorCode = 1
	CodePositionUnavailable ErrorCode = 2
	CodeTimeout             ErrorCode = 3
)

// PositionError is delivered through a watch callback. Fatal errors end the
// monitoring session; non-fatal ones only skip a sample.
type PositionError struct {
	Code    ErrorCode
	Message string
	Fatal   bool
}

// NewPositionError builds the error for a platform code. Permission and
// capability failures are always fatal.
func NewPositionError(code ErrorCode, message string) *PositionError {
	return &PositionError{
		Code:    code,
		Message: message,
		Fatal:   code != CodeTimeout,
	}
}

func (e *PositionError) Error() string {
	if e.Message == "" {
		return e.Unwrap().Error()
	}
	return fmt.Sprintf("%s: %s", e.Unwrap(), e.Message)
}

func (e *PositionError) Unwrap() error {
	switch e.Code {
	case CodePermissionDenied:
		return ErrPermissionDenied
	case CodeTimeout:
		return ErrPositionTimeout
	default:
		return ErrSourceUnavailable
	}
}

// IsFatal reports whether err must stop the session.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var pe *PositionError
	if errors.As(err, &pe) {
		return pe.Fatal
	}
	return errors.Is(err, ErrPermissionDenied) || errors.Is(err, ErrSourceUnavailable)
}
