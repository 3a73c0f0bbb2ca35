// Package identity implements Ed25519 key generation, signing and
// verification, and the logical/physical peer identity types bound during
// Associate.
package identity

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"fmt"

	"github.com/emilio/ngn/netutil"
)

// KeyPair is an own Ed25519 signing key pair.
type KeyPair struct {
	Public  ed25519.PublicKey
	Private ed25519.PrivateKey
}

// NewKeyPair generates a fresh Ed25519 key pair from the system CSPRNG,
// returning it alongside its PKCS#8 encoding for future persistence.
func NewKeyPair() (KeyPair, []byte, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return KeyPair{}, nil, fmt.Errorf("%w: generating ed25519 key: %v", ErrKeyMaterial, err)
	}
	pkcs8, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return KeyPair{}, nil, fmt.Errorf("%w: marshaling pkcs8: %v", ErrKeyMaterial, err)
	}
	return KeyPair{Public: pub, Private: priv}, pkcs8, nil
}

// KeyPairFromPKCS8 reconstructs a key pair from a PKCS#8-encoded private key.
func KeyPairFromPKCS8(der []byte) (KeyPair, error) {
	key, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return KeyPair{}, fmt.Errorf("%w: parsing pkcs8: %v", ErrKeyMaterial, err)
	}
	priv, ok := key.(ed25519.PrivateKey)
	if !ok {
		return KeyPair{}, fmt.Errorf("%w: pkcs8 document is not an ed25519 key", ErrKeyMaterial)
	}
	pub, ok := priv.Public().(ed25519.PublicKey)
	if !ok {
		return KeyPair{}, fmt.Errorf("%w: could not derive ed25519 public key", ErrKeyMaterial)
	}
	return KeyPair{Public: pub, Private: priv}, nil
}

// Sign signs msg, returning a 64-byte Ed25519 signature.
func Sign(kp KeyPair, msg []byte) [64]byte {
	sig := ed25519.Sign(kp.Private, msg)
	var out [64]byte
	copy(out[:], sig)
	return out
}

// Verify checks a 64-byte Ed25519 signature over msg against public.
func Verify(public [32]byte, signature [64]byte, msg []byte) error {
	if !ed25519.Verify(ed25519.PublicKey(public[:]), msg, signature[:]) {
		return ErrVerify
	}
	return nil
}

// PhysicalPeerIdentity is a peer's self-reported identity at the radio layer.
type PhysicalPeerIdentity struct {
	Name    string
	DevAddr netutil.MAC
}

// PeerOwnIdentifierKind discriminates a self-reported identifier.
type PeerOwnIdentifierKind int

const (
	// ByName matches a peer by its self-reported device name.
	ByName PeerOwnIdentifierKind = iota
	// ByDevAddr matches a peer by its self-reported MAC device address.
	ByDevAddr
)

// PeerOwnIdentifier is the tagged variant a peer reports of itself in Associate.
type PeerOwnIdentifier struct {
	Kind    PeerOwnIdentifierKind
	Name    string
	DevAddr netutil.MAC
}

// Matches reports whether phys is the peer referred to by id.
func (phys PhysicalPeerIdentity) Matches(id PeerOwnIdentifier) bool {
	switch id.Kind {
	case ByName:
		return phys.Name == id.Name
	case ByDevAddr:
		return phys.DevAddr == id.DevAddr
	default:
		return false
	}
}

// LogicalPeerIdentity is bound to a peer only upon Associate.
type LogicalPeerIdentity struct {
	Nickname  string
	PublicKey [32]byte
}

// String renders "<nickname>#<hex of first 3 key bytes>".
func (l LogicalPeerIdentity) String() string {
	return fmt.Sprintf("%s#%02x%02x%02x", l.Nickname, l.PublicKey[0], l.PublicKey[1], l.PublicKey[2])
}

// OwnIdentity is the single identity a session signs messages with.
type OwnIdentity struct {
	Nickname string
	Keys     KeyPair
}

// NewOwnIdentity generates a fresh signing key pair for nickname.
func NewOwnIdentity(nickname string) (OwnIdentity, error) {
	kp, _, err := NewKeyPair()
	if err != nil {
		return OwnIdentity{}, err
	}
	return OwnIdentity{Nickname: nickname, Keys: kp}, nil
}

// ToLogical returns the public logical identity other peers bind to us as.
func (o OwnIdentity) ToLogical() LogicalPeerIdentity {
	var pub [32]byte
	copy(pub[:], o.Keys.Public)
	return LogicalPeerIdentity{Nickname: o.Nickname, PublicKey: pub}
}

// String renders the own identity the same way as a logical identity.
func (o OwnIdentity) String() string {
	return o.ToLogical().String()
}
