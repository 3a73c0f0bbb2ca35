package protocol

import "errors"

// These are logged-and-dropped outcomes per spec §4.5, not decode failures:
// the control connection stays open so a later, valid Associate can still
// land. Only a wire.ErrProtocol decode error closes the connection.

// ErrUnknownPhysicalIdentity is returned when no peer record's physical
// identity matches the reported PhysicalPeerIdentity.
var ErrUnknownPhysicalIdentity = errors.New("protocol: no peer matches the reported physical identity")

// ErrIdentityImmutable is returned when an Associate reports a different
// logical identity than the one already bound to the peer.
var ErrIdentityImmutable = errors.New("protocol: peer's logical identity cannot change")

// ErrAlreadyAssociated is returned when the peer is already recorded as a
// member of the target group.
var ErrAlreadyAssociated = errors.New("protocol: peer is already associated with this group")
