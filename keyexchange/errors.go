package keyexchange

import "errors"

// ErrCrypto covers key generation, AEAD seal/open, and exchange-state misuse.
var ErrCrypto = errors.New("keyexchange: crypto error")

// ErrNonceExhausted is returned once a sealing key's 32-bit nonce counter
// would wrap around; per the spec this is fatal and is never silently reset.
var ErrNonceExhausted = errors.New("keyexchange: nonce counter exhausted")

// ErrAlreadyFinished is returned by a second call to KeyExchange.Finish.
var ErrAlreadyFinished = errors.New("keyexchange: exchange already completed or errored")
