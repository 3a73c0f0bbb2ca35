package protocol

import (
	"fmt"
	"net"

	"github.com/emilio/ngn/identity"
	"github.com/emilio/ngn/netutil"
	"github.com/emilio/ngn/store"
	"github.com/emilio/ngn/wire"
)

// toOwnIdentifier converts the wire representation of a self-reported
// identifier into the identity package's typed form.
func toOwnIdentifier(w wire.PeerOwnIdentifier) (identity.PeerOwnIdentifier, error) {
	switch w.Tag {
	case wire.PeerOwnIdentifierName:
		return identity.PeerOwnIdentifier{Kind: identity.ByName, Name: w.Name}, nil
	case wire.PeerOwnIdentifierDevAddr:
		mac, err := netutil.ParseMAC(w.DevAddr[:w.DevLen])
		if err != nil {
			return identity.PeerOwnIdentifier{}, fmt.Errorf("protocol: converting physical id: %w", err)
		}
		return identity.PeerOwnIdentifier{Kind: identity.ByDevAddr, DevAddr: mac}, nil
	default:
		return identity.PeerOwnIdentifier{}, fmt.Errorf("protocol: unknown physical id tag %d", w.Tag)
	}
}

func toLogicalIdentity(w wire.LogicalPeerIdentity) identity.LogicalPeerIdentity {
	return identity.LogicalPeerIdentity{Nickname: w.Nickname, PublicKey: w.PublicKey}
}

// findPeerByPhysicalIdentity scans the peer store for a record whose
// physical identity matches own. The store does not index by name, and
// DevAddr lookups may involve an 8-byte EUI-64 that disagrees with a 6-byte
// index entry, so this is a linear scan rather than the MAC index lookup —
// acceptable given peer counts in a single Wi-Fi Direct group are small.
func findPeerByPhysicalIdentity(peers *store.PeerStore, own identity.PeerOwnIdentifier) (store.PeerId, bool) {
	var (
		found store.PeerId
		ok    bool
	)
	peers.Each(func(id store.PeerId, rec *store.PeerRecord) {
		if ok {
			return
		}
		if rec.Identity.Physical.Matches(own) {
			found, ok = id, true
		}
	})
	return found, ok
}

// ApplyAssociate implements the receiving side of §4.5: it locates the peer
// the Associate refers to, enforces identity immutability and
// no-double-association, binds the logical identity and key-exchange
// material, records the peer's address/ports in the group, and notifies
// listener. peerAddr is the already-resolved address of the connection the
// Associate arrived on (used for PeerGroupInfo.Address). It returns the
// bound peer's handle so a caller (the GO's control server, echoing its own
// Associate back) can address it without a second lookup.
func ApplyAssociate(
	peers *store.PeerStore,
	groups *store.GroupStore,
	groupID store.GroupId,
	assoc wire.Associate,
	peerAddr net.IP,
	listener Listener,
) (store.PeerId, error) {
	ownID, err := toOwnIdentifier(assoc.PhysicalID)
	if err != nil {
		return store.PeerId{}, err
	}

	peerID, ok := findPeerByPhysicalIdentity(peers, ownID)
	if !ok {
		return store.PeerId{}, ErrUnknownPhysicalIdentity
	}

	peerRec, ok := peers.GetMut(peerID)
	if !ok {
		return store.PeerId{}, ErrUnknownPhysicalIdentity
	}

	reported := toLogicalIdentity(assoc.LogicalID)
	if peerRec.Identity.Logical != nil && *peerRec.Identity.Logical != reported {
		return store.PeerId{}, ErrIdentityImmutable
	}

	groupRec, ok := groups.GetMut(groupID)
	if !ok {
		return store.PeerId{}, fmt.Errorf("protocol: unknown group")
	}
	if peerRec.InGroup(groupID) {
		return store.PeerId{}, ErrAlreadyAssociated
	}

	if peerRec.KeyExchange != nil {
		if _, err := peerRec.KeyExchange.Finish(assoc.KeyExchangePublicKey); err != nil {
			// Per spec §9's resolution of the source's swallowed-error
			// question: log (left to the caller) and reject the Associate
			// rather than silently leaving the peer half-associated.
			return store.PeerId{}, fmt.Errorf("protocol: finishing key exchange: %w", err)
		}
	}

	peerRec.Identity.Logical = &reported
	peerRec.Groups = append(peerRec.Groups, groupID)

	if groupRec.Peers == nil {
		groupRec.Peers = make(map[store.PeerId]store.PeerGroupInfo)
	}
	groupRec.Peers[peerID] = store.PeerGroupInfo{
		Address: peerAddr,
		Ports:   assoc.Ports,
	}

	if listener != nil {
		listener.PeerJoinedGroup(peerID, groupID)
	}
	return peerID, nil
}
