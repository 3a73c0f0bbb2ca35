package keyexchange

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"sync/atomic"
)

const (
	nonceSize        = 12
	nonceCounterSize = 4
)

// nonceSequence produces 12-byte nonces: a 4-byte big-endian counter
// incremented once per seal, followed by 8 random bytes from the CSPRNG.
// The counter alone guarantees no repeats across the life of a sealing key;
// the random suffix defends against a counter that somehow resets. Only the
// sealing side advances a sequence — the nonce travels with the ciphertext
// (it is not secret; GCM's security relies on the key, not nonce secrecy)
// so the opening side never needs one of its own.
type nonceSequence struct {
	counter atomic.Uint32
	ceiling uint32
}

func newNonceSequence() *nonceSequence {
	return &nonceSequence{ceiling: 0xFFFFFFFF}
}

func (n *nonceSequence) next() ([nonceSize]byte, error) {
	var c uint32
	for {
		c = n.counter.Load()
		if c >= n.ceiling {
			return [nonceSize]byte{}, ErrNonceExhausted
		}
		if n.counter.CompareAndSwap(c, c+1) {
			break
		}
	}

	var out [nonceSize]byte
	out[0] = byte(c >> 24)
	out[1] = byte(c >> 16)
	out[2] = byte(c >> 8)
	out[3] = byte(c)
	if _, err := rand.Read(out[nonceCounterSize:]); err != nil {
		return [nonceSize]byte{}, fmt.Errorf("%w: filling nonce randomness: %v", ErrCrypto, err)
	}
	return out, nil
}

// Sealer seals plaintext, prepending the nonce it chose and appending the
// 16-byte GCM tag.
type Sealer struct {
	aead  cipher.AEAD
	nonce *nonceSequence
}

// Opener verifies and opens ciphertext sealed by the peer's matching Sealer.
type Opener struct {
	aead cipher.AEAD
}

// Keys bundles the sealing and opening keys produced by a completed exchange.
type Keys struct {
	Sealer *Sealer
	Opener *Opener
}

// newKeys derives an AES-256-GCM instance from the raw X25519 shared secret,
// matching the original implementation's choice to use the shared secret
// directly as the AES key rather than running it through a separate KDF.
// Sealer and Opener share the same AEAD instance; only the nonce sequence
// differs by direction.
func newKeys(secret [32]byte) (*Keys, error) {
	block, err := aes.NewCipher(secret[:])
	if err != nil {
		return nil, fmt.Errorf("%w: creating aes cipher: %v", ErrCrypto, err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: creating gcm aead: %v", ErrCrypto, err)
	}

	return &Keys{
		Sealer: &Sealer{aead: gcm, nonce: newNonceSequence()},
		Opener: &Opener{aead: gcm},
	}, nil
}

// EncryptInPlaceAppendTag seals plaintext, returning nonce || ciphertext || tag.
func (s *Sealer) EncryptInPlaceAppendTag(plaintext []byte) ([]byte, error) {
	nonce, err := s.nonce.next()
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, nonceSize+len(plaintext)+16)
	out = append(out, nonce[:]...)
	return s.aead.Seal(out, nonce[:], plaintext, nil), nil
}

// DecryptInPlace verifies the GCM tag of a nonce || ciphertext || tag buffer
// produced by EncryptInPlaceAppendTag and returns the plaintext.
func (o *Opener) DecryptInPlace(buf []byte) ([]byte, error) {
	if len(buf) < nonceSize {
		return nil, fmt.Errorf("%w: ciphertext shorter than nonce", ErrCrypto)
	}
	nonce, ciphertext := buf[:nonceSize], buf[nonceSize:]
	plain, err := o.aead.Open(ciphertext[:0], nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: opening ciphertext: %v", ErrCrypto, err)
	}
	return plain, nil
}
