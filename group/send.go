package group

import (
	"context"
	"fmt"
	"net"

	"github.com/emilio/ngn/wire"
)

// SendControlMessage dials addr and writes a single Associate control
// frame, retrying per DefaultRetryPeriod/DefaultRetryAttempts with a
// ConnectTimeout-bounded dial on each attempt, per spec §4.6.
func SendControlMessage(ctx context.Context, addr string, assoc wire.Associate) error {
	payload := wire.EncodeAssociate(assoc)

	err := retryTimeout(ctx, DefaultRetryPeriod, DefaultRetryAttempts, func() error {
		dialCtx, cancel := context.WithTimeout(ctx, ConnectTimeout)
		defer cancel()

		conn, err := (&net.Dialer{}).DialContext(dialCtx, "tcp", addr)
		if err != nil {
			return err
		}
		defer conn.Close()

		return wire.WriteControlFrame(conn, payload)
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return nil
}

// SendPeerMessage dials addr and writes a single signed data frame carrying
// payload, retrying with the same discipline as SendControlMessage.
func SendPeerMessage(ctx context.Context, addr string, signature [wire.SignatureSize]byte, payload []byte) error {
	err := retryTimeout(ctx, DefaultRetryPeriod, DefaultRetryAttempts, func() error {
		dialCtx, cancel := context.WithTimeout(ctx, ConnectTimeout)
		defer cancel()

		conn, err := (&net.Dialer{}).DialContext(dialCtx, "tcp", addr)
		if err != nil {
			return err
		}
		defer conn.Close()

		return wire.WriteDataFrame(conn, signature, payload)
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return nil
}
