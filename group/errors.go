package group

import "errors"

// ErrTimeout is returned by SendControlMessage/SendPeerMessage once
// retryTimeout has exhausted every attempt; each attempt's connect used
// ConnectTimeout.
var ErrTimeout = errors.New("group: send timed out after all retries")
