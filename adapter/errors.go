package adapter

import "errors"

// ErrRadio wraps any failure reported by the platform adapter: init-time
// errors abort session startup; runtime errors are logged by the engine and,
// where the event calls for it, trigger re-issue of the last command.
var ErrRadio = errors.New("adapter: radio error")
