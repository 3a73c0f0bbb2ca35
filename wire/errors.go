package wire

import (
	"errors"
	"fmt"
)

// ErrProtocol covers bad magic/version and truncated or malformed frames.
var ErrProtocol = errors.New("wire: protocol error")

// ErrResource covers allocation failures, such as an oversized frame length.
var ErrResource = errors.New("wire: resource error")

// protocolErrorf wraps a formatted message so errors.Is(err, ErrProtocol) holds.
func protocolErrorf(format string, args ...interface{}) error {
	return &wrappedError{kind: ErrProtocol, msg: fmt.Sprintf(format, args...)}
}

func resourceErrorf(format string, args ...interface{}) error {
	return &wrappedError{kind: ErrResource, msg: fmt.Sprintf(format, args...)}
}

type wrappedError struct {
	kind error
	msg  string
}

func (e *wrappedError) Error() string { return e.msg }
func (e *wrappedError) Unwrap() error { return e.kind }
