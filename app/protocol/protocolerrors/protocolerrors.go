package protocolerrors

import "github.com/pkg/errors"

// ProtocolError is an error that signifies a violation
// of the peer-to-peer protocol
type ProtocolError struct {
	// ShouldIgnore marks violations that are structural, meaning the peer
	// is the wrong counterpart altogether and should be excluded from
	// future upstream selection, not merely disconnected.
	ShouldIgnore bool
	Cause        error
}

func (e ProtocolError) Error() string {
	return e.Cause.Error()
}

// Unwrap returns the cause of the protocol error.
func (e ProtocolError) Unwrap() error {
	return e.Cause
}

// Errorf formats according to a format specifier and returns the string
// as a value that satisfies error.
// Errorf also records the stack trace at the point it was called.
func Errorf(shouldIgnore bool, format string, args ...interface{}) error {
	return ProtocolError{
		ShouldIgnore: shouldIgnore,
		Cause:        errors.Errorf(format, args...),
	}
}

// New returns an error with the supplied message.
// New also records the stack trace at the point it was called.
func New(shouldIgnore bool, message string) error {
	return ProtocolError{
		ShouldIgnore: shouldIgnore,
		Cause:        errors.New(message),
	}
}

// Wrap returns an error annotating err with a stack trace
// at the point Wrap is called, and the supplied message.
func Wrap(shouldIgnore bool, err error, message string) error {
	return ProtocolError{
		ShouldIgnore: shouldIgnore,
		Cause:        errors.Wrap(err, message),
	}
}

// Wrapf returns an error annotating err with a stack trace
// at the point Wrapf is called, and the format specifier.
func Wrapf(shouldIgnore bool, err error, format string, args ...interface{}) error {
	return ProtocolError{
		ShouldIgnore: shouldIgnore,
		Cause:        errors.Wrapf(err, format, args...),
	}
}
