package session

import (
	"fmt"

	"github.com/emilio/ngn/identity"
)

// Config is the option bag recognized by session init, per spec §6.
type Config struct {
	// InterfaceName names the interface to bind to. Session does not read
	// it and does not pass it to the radio: interface selection is left to
	// the adapter the caller constructs, and every group the engine spawns
	// learns its interface name from the radio's GroupStarted event.
	InterfaceName string

	// DeviceName is required, and is our own PeerOwnIdentifier when the
	// adapter doesn't expose a MAC. Session does not hand it to the radio;
	// the name the radio advertises is whatever the adapter was built with.
	DeviceName string

	// Identity is this session's signing key pair and nickname. Own
	// signing keys may be generated per session; persistence is an open
	// hook the caller owns (see identity.NewKeyPair's PKCS#8 export).
	Identity identity.OwnIdentity

	// GOIntent is the 0-15 Wi-Fi Direct GO intent value used on every
	// connect and auto-retried negotiation this session issues.
	GOIntent int
}

func (c Config) validate() error {
	if c.DeviceName == "" {
		return fmt.Errorf("%w: device_name is required", ErrState)
	}
	if c.Identity.Keys.Public == nil {
		return fmt.Errorf("%w: identity is required", ErrState)
	}
	if c.GOIntent < 0 || c.GOIntent > 15 {
		return fmt.Errorf("%w: go_intent must be 0-15, got %d", ErrState, c.GOIntent)
	}
	return nil
}
