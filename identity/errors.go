package identity

import "errors"

// ErrKeyMaterial covers key generation and PKCS#8 parsing failures.
var ErrKeyMaterial = errors.New("identity: key material error")

// ErrVerify covers a signature that does not verify against the claimed key.
var ErrVerify = errors.New("identity: signature verification failed")
