package device

import (
	"errors"
	"fmt"
)

var (
	ErrNotConnected        = errors.New("device not connected")
	ErrInvalidAddress      = errors.New("invalid device address")
	ErrUnknownCode         = errors.New("unknown code")
	ErrCalibrationNotSet   = errors.New("calibration not configured")
	ErrNegativeAcknowledge = errors.New("device returned negative acknowledge")
	ErrUnexpectedResponse  = errors.New("unexpected response")
	ErrOutOfRange          = errors.New("value out of range")
)

// ParseError reports a reply field that could not be converted.
type ParseError struct {
	Field string
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot parse %s from %q: %v", e.Field, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
