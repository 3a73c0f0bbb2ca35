// Package keyexchange implements the ephemeral X25519 exchange each peer
// record carries, and the AES-256-GCM sealing/opening keys derived from it.
package keyexchange

import (
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/curve25519"
)

// state is the one-shot transition a KeyExchange goes through: it may only
// move from inProgress to completed once; further Finish calls fail.
type state int

const (
	stateInProgress state = iota
	stateCompleted
	stateErrored
)

// KeyExchange is born with every peer record: a freshly generated ephemeral
// X25519 private key, exposed by its public counterpart, until Finish
// consumes the peer's reported public key and derives the symmetric keys.
type KeyExchange struct {
	private [32]byte
	public  [32]byte
	state   state
	keys    *Keys
}

// New generates a fresh ephemeral X25519 key pair from the system CSPRNG.
func New() (*KeyExchange, error) {
	var private [32]byte
	if _, err := rand.Read(private[:]); err != nil {
		return nil, fmt.Errorf("%w: generating ephemeral private key: %v", ErrCrypto, err)
	}

	var public [32]byte
	pub, err := curve25519.X25519(private[:], curve25519.Basepoint)
	if err != nil {
		return nil, fmt.Errorf("%w: deriving ephemeral public key: %v", ErrCrypto, err)
	}
	copy(public[:], pub)

	return &KeyExchange{private: private, public: public, state: stateInProgress}, nil
}

// PublicKey returns the ephemeral public key to advertise to the peer.
func (ke *KeyExchange) PublicKey() [32]byte {
	return ke.public
}

// Finish derives the shared secret from the peer's reported public key and
// builds the sealing/opening AES-256-GCM keys from it, both using the raw
// secret as their AES key. It may only succeed once;
// a second call, or a call after a prior failure, returns ErrAlreadyFinished.
func (ke *KeyExchange) Finish(peerPublic [32]byte) (*Keys, error) {
	if ke.state != stateInProgress {
		return nil, ErrAlreadyFinished
	}

	shared, err := curve25519.X25519(ke.private[:], peerPublic[:])
	if err != nil {
		ke.state = stateErrored
		return nil, fmt.Errorf("%w: computing shared secret: %v", ErrCrypto, err)
	}

	var secret [32]byte
	copy(secret[:], shared)

	keys, err := newKeys(secret)
	if err != nil {
		ke.state = stateErrored
		return nil, err
	}

	ke.state = stateCompleted
	ke.keys = keys
	return keys, nil
}

// Keys returns the derived keys if Finish has already completed successfully.
func (ke *KeyExchange) Keys() (*Keys, bool) {
	if ke.state != stateCompleted {
		return nil, false
	}
	return ke.keys, true
}
