package session

import "errors"

// ErrState covers a stale peer or group handle, a peer with no group, or a
// peer with no address yet — the StateError kind of spec §7. It is always
// returned to the caller, never panicked.
var ErrState = errors.New("session: state error")
