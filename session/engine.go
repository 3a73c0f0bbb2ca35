// Package session is the top-level state holder of spec §4.7: it consumes
// a platform radio's event stream, owns the peer and group stores, spawns
// and retires per-group tasks, and fans out to the caller's
// protocol.Listener. It is the root of the engine — everything else in this
// module (wire, identity, keyexchange, store, protocol, group, netutil) is
// a leaf this package wires together, the same role gyre.go's Gyre plays
// over node.go's handler() loop in the teacher.
package session

import (
	"context"
	"fmt"
	"log"
	"net"

	"github.com/emilio/ngn/adapter"
	"github.com/emilio/ngn/group"
	"github.com/emilio/ngn/identity"
	"github.com/emilio/ngn/keyexchange"
	"github.com/emilio/ngn/netutil"
	"github.com/emilio/ngn/protocol"
	"github.com/emilio/ngn/store"
	"github.com/emilio/ngn/wire"
)

// PeerSnapshot is the read-only view peer_identity/all_peers hand back: a
// copy, not a reference into the store, so the caller never needs to
// coordinate with the store's lock.
type PeerSnapshot struct {
	Physical identity.PhysicalPeerIdentity
	Logical  *identity.LogicalPeerIdentity
	Groups   []store.GroupId
}

// peerBackendData is what Session stashes in PeerRecord.BackendData: the
// opaque platform peer path a real adapter would otherwise have to thread
// through some side channel for ConnectToPeer to use later.
type peerBackendData struct {
	Path string
}

// Session is the engine's public handle: one per running instance, created
// by New and torn down by Stop.
type Session struct {
	cfg      Config
	radio    adapter.Radio
	listener protocol.Listener

	peers  *store.PeerStore
	groups *store.GroupStore

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a session bound to radio, fanning notifications out to
// listener (which may be nil). The event loop starts immediately; it runs
// until the radio's event channel closes or Stop cancels it.
func New(cfg Config, radio adapter.Radio, listener protocol.Listener) (*Session, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if radio == nil {
		return nil, fmt.Errorf("%w: a radio adapter is required", ErrState)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		cfg:      cfg,
		radio:    radio,
		listener: listener,
		peers:    store.NewPeerStore(),
		groups:   store.NewGroupStore(),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go s.run()
	return s, nil
}

// Wait blocks until the event loop exits, either because the radio closed
// its event channel or Stop was called.
func (s *Session) Wait() error {
	<-s.done
	return nil
}

// Stop aborts the event loop and every group task (clearing the group store
// aborts each group's Task per store.GroupStore.Clear), releases the radio,
// and waits for the event loop to finish.
func (s *Session) Stop() error {
	s.cancel()

	s.peers.Lock()
	s.peers.Clear()
	s.peers.Unlock()

	s.groups.Lock()
	s.groups.Clear()
	s.groups.Unlock()

	s.radio.Stop()
	return s.Wait()
}

// DiscoverPeers starts a radio scan, blocking until the radio acknowledges.
func (s *Session) DiscoverPeers() error {
	result := make(chan error, 1)
	s.radio.DiscoverPeers(func(err error) { result <- err })
	select {
	case err := <-result:
		if err != nil {
			return fmt.Errorf("%w: %v", adapter.ErrRadio, err)
		}
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	}
}

// ConnectToPeer issues a Wi-Fi Direct connect request for id, blocking until
// the radio accepts or rejects it. Acceptance does not imply the group has
// formed; that arrives later as GroupStarted.
func (s *Session) ConnectToPeer(id store.PeerId) error {
	s.peers.RLock()
	rec, ok := s.peers.Get(id)
	s.peers.RUnlock()
	if !ok {
		return fmt.Errorf("%w: unknown peer", ErrState)
	}

	path, _ := rec.BackendData.(peerBackendData)

	result := make(chan error, 1)
	s.radio.ConnectToPeer(adapter.ConnectParams{
		PeerPath: path.Path,
		WPS:      adapter.WPSMethodPBC,
		GoIntent: s.cfg.GOIntent,
		AutoJoin: false,
	}, func(err error) { result <- err })

	select {
	case err := <-result:
		if err != nil {
			return fmt.Errorf("%w: %v", adapter.ErrRadio, err)
		}
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	}
}

// MessagePeer signs payload with our own identity and delivers it to id's
// data channel in its most recently joined group, retrying per §4.6.
func (s *Session) MessagePeer(id store.PeerId, payload []byte) error {
	s.peers.RLock()
	rec, ok := s.peers.Get(id)
	s.peers.RUnlock()
	if !ok {
		return fmt.Errorf("%w: unknown peer", ErrState)
	}
	if len(rec.Groups) == 0 {
		return fmt.Errorf("%w: peer is not a member of any group", ErrState)
	}
	gid := rec.Groups[len(rec.Groups)-1]

	s.groups.RLock()
	grec, ok := s.groups.Get(gid)
	s.groups.RUnlock()
	if !ok {
		return fmt.Errorf("%w: peer's group no longer exists", ErrState)
	}
	info, ok := grec.Peers[id]
	if !ok || info.Address == nil {
		return fmt.Errorf("%w: peer has no address yet", ErrState)
	}

	signature := identity.Sign(s.cfg.Identity.Keys, payload)
	addr := netutil.PeerToSocketAddr(info.Address, grec.ScopeID, info.Ports.Data)

	return group.SendPeerMessage(s.ctx, addr.String(), signature, payload)
}

// PeerIdentity returns a snapshot of id's identity and group memberships, if
// id still refers to a live peer record.
func (s *Session) PeerIdentity(id store.PeerId) (PeerSnapshot, bool) {
	s.peers.RLock()
	defer s.peers.RUnlock()
	rec, ok := s.peers.Get(id)
	if !ok {
		return PeerSnapshot{}, false
	}
	return PeerSnapshot{
		Physical: rec.Identity.Physical,
		Logical:  rec.Identity.Logical,
		Groups:   append([]store.GroupId(nil), rec.Groups...),
	}, true
}

// AllPeers returns every currently known peer's handle, in unspecified order.
func (s *Session) AllPeers() []store.PeerId {
	s.peers.RLock()
	defer s.peers.RUnlock()
	ids := make([]store.PeerId, 0, s.peers.Len())
	s.peers.Each(func(id store.PeerId, _ *store.PeerRecord) { ids = append(ids, id) })
	return ids
}

// OwnIdentity returns this session's own nickname and signing key pair.
func (s *Session) OwnIdentity() identity.OwnIdentity {
	return s.cfg.Identity
}

// run is the event loop: it consumes the radio's event stream strictly in
// arrival order (§5) until the channel closes or ctx is cancelled.
func (s *Session) run() {
	defer close(s.done)
	for {
		select {
		case ev, ok := <-s.radio.Events():
			if !ok {
				return
			}
			s.dispatch(ev)
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Session) dispatch(ev adapter.Event) {
	switch ev.Kind() {
	case adapter.DeviceFound:
		s.handleDeviceFound(ev.Device())
	case adapter.DevicesUpdated:
		s.handleDevicesUpdated(ev.Devices())
	case adapter.DeviceLost:
		s.handleDeviceLost(ev.Device())
	case adapter.FindStopped:
		if s.listener != nil {
			s.listener.PeerDiscoveryStopped()
		}
	case adapter.GroupStarted:
		s.handleGroupStarted(ev)
	case adapter.GroupFinished:
		s.handleGroupFinished(ev)
	case adapter.GONegotiationFailure:
		s.issueConnect(ev.PeerPath())
	case adapter.GONegotiationRequest:
		s.issueConnect(ev.PeerPath())
	case adapter.ProvisioningDiscoveryPBCRequest:
		s.handlePBCRequest(ev.Device())
	case adapter.Other:
		log.Printf("I: [session] ignoring platform signal %q", ev.SignalName())
	}
}

// handleDeviceFound upserts a peer on first sight and, if it is genuinely
// new, emits PeerDiscovered. The key exchange is generated before the store
// lock is taken: crypto calls are suspension points and must not run while
// a store lock is held (§5).
func (s *Session) handleDeviceFound(d adapter.DiscoveredDevice) {
	ke, err := keyexchange.New()
	if err != nil {
		log.Printf("W: [session] generating key exchange for %s: %v", d.Name, err)
		return
	}

	s.peers.Lock()
	_, exists := s.peers.IDByMAC(d.DevAddr)
	var id store.PeerId
	if !exists {
		id = s.peers.Insert(store.PeerRecord{
			Identity:    store.PeerIdentity{Physical: identity.PhysicalPeerIdentity{Name: d.Name, DevAddr: d.DevAddr}},
			KeyExchange: ke,
			BackendData: peerBackendData{Path: d.Path},
		})
	}
	s.peers.Unlock()

	if !exists && s.listener != nil {
		s.listener.PeerDiscovered(id)
	}
}

// handleDevicesUpdated diffs an Android-style device batch against the
// store: newly seen MACs are inserted (PeerDiscovered), MACs that
// disappeared are lost (group cleanup, then PeerLost), per §4.7.
func (s *Session) handleDevicesUpdated(devices []adapter.DiscoveredDevice) {
	seen := make(map[netutil.MAC]struct{}, len(devices))
	for _, d := range devices {
		seen[d.DevAddr] = struct{}{}
	}

	s.peers.RLock()
	var newDevices []adapter.DiscoveredDevice
	for _, d := range devices {
		if _, ok := s.peers.IDByMAC(d.DevAddr); !ok {
			newDevices = append(newDevices, d)
		}
	}
	var lost []store.PeerId
	s.peers.Each(func(id store.PeerId, rec *store.PeerRecord) {
		if _, ok := seen[rec.Identity.Physical.DevAddr]; !ok {
			lost = append(lost, id)
		}
	})
	s.peers.RUnlock()

	for _, id := range lost {
		s.removePeer(id)
	}

	// Generate key material for every genuinely new device before taking
	// the lock, same reasoning as handleDeviceFound.
	keys := make([]*keyexchange.KeyExchange, len(newDevices))
	for i := range newDevices {
		ke, err := keyexchange.New()
		if err != nil {
			log.Printf("W: [session] generating key exchange for %s: %v", newDevices[i].Name, err)
			continue
		}
		keys[i] = ke
	}

	var discovered []store.PeerId
	s.peers.Lock()
	for i, d := range newDevices {
		if keys[i] == nil {
			continue
		}
		if _, ok := s.peers.IDByMAC(d.DevAddr); ok {
			continue
		}
		id := s.peers.Insert(store.PeerRecord{
			Identity:    store.PeerIdentity{Physical: identity.PhysicalPeerIdentity{Name: d.Name, DevAddr: d.DevAddr}},
			KeyExchange: keys[i],
			BackendData: peerBackendData{Path: d.Path},
		})
		discovered = append(discovered, id)
	}
	s.peers.Unlock()

	if s.listener != nil {
		for _, id := range discovered {
			s.listener.PeerDiscovered(id)
		}
	}
}

func (s *Session) handleDeviceLost(d adapter.DiscoveredDevice) {
	s.peers.RLock()
	id, ok := s.peers.IDByMAC(d.DevAddr)
	s.peers.RUnlock()
	if !ok {
		return
	}
	s.removePeer(id)
}

// removePeer implements the shared "peer lost" sequence (§4.7/§8): remove
// the peer record, drop the peer from every group it was in, then fire
// PeerLeftGroup for each of those groups before firing PeerLost.
func (s *Session) removePeer(id store.PeerId) {
	s.peers.Lock()
	rec, ok := s.peers.Remove(id)
	s.peers.Unlock()
	if !ok {
		return
	}

	s.groups.Lock()
	for _, gid := range rec.Groups {
		if grec, ok := s.groups.GetMut(gid); ok {
			delete(grec.Peers, id)
		}
	}
	s.groups.Unlock()

	if s.listener != nil {
		for _, gid := range rec.Groups {
			s.listener.PeerLeftGroup(id, gid)
		}
		s.listener.PeerLost(id)
	}
}

// handleGroupStarted allocates a GroupId, resolves the group's scope id and
// GO address, spawns the group task, and emits JoinedGroup.
func (s *Session) handleGroupStarted(ev adapter.Event) {
	ifaceName := ev.IfaceName()

	s.groups.RLock()
	_, already := s.groups.IDByPath(ifaceName)
	s.groups.RUnlock()
	if already {
		log.Printf("W: [session] group already started on %s, ignoring duplicate GroupStarted", ifaceName)
		return
	}

	scopeID, err := netutil.ScopeID(ifaceName)
	if err != nil {
		log.Printf("W: [session] resolving scope id for %s: %v", ifaceName, err)
		return
	}

	goDevAddr := ev.GoDevAddr()
	goIP := resolveGoIP(ev)
	if goIP == nil {
		log.Printf("W: [session] could not resolve GO address for group on %s", ifaceName)
		return
	}

	var goPeerID store.PeerId
	if !ev.IsGO() {
		// Open question #3: cross-check the advertised GO dev-addr against
		// a peer record we already bound it to, rather than trusting the
		// address blind. An unknown GO means we never discovered it; log
		// and refuse rather than spawn a group task we can't bootstrap.
		s.peers.RLock()
		pid, ok := s.peers.IDByMAC(goDevAddr)
		var physical identity.PhysicalPeerIdentity
		if ok {
			rec, _ := s.peers.Get(pid)
			physical = rec.Identity.Physical
		}
		s.peers.RUnlock()
		if !ok || physical.DevAddr != goDevAddr {
			log.Printf("W: [session] group started with unknown GO %s on %s, ignoring", goDevAddr, ifaceName)
			return
		}
		goPeerID = pid
	}

	ownAssociate := s.ownAssociateTemplate()

	startParams := group.StartParams{
		IsGO:         ev.IsGO(),
		ListenIP:     net.IPv6unspecified,
		OwnAssociate: ownAssociate,
	}
	if !ev.IsGO() {
		startParams.GoAddr = netutil.PeerToSocketAddr(goIP, scopeID, group.GOControlPort).String()
		startParams.GoPeerID = goPeerID
	}

	s.groups.Lock()
	gid := s.groups.Insert(ifaceName, store.GroupRecord{
		GoIPAddress: goIP,
		IfaceName:   ifaceName,
		ScopeID:     scopeID,
		IsGO:        ev.IsGO(),
		Peers:       make(map[store.PeerId]store.PeerGroupInfo),
	})
	s.groups.Unlock()

	task, _, _, err := group.Start(s.ctx, startParams, s.peers, s.groups, gid, s.listener)
	if err != nil {
		log.Printf("W: [session] starting group task on %s: %v", ifaceName, err)
		s.groups.Lock()
		s.groups.Remove(gid)
		s.groups.Unlock()
		return
	}

	s.groups.Lock()
	if rec, ok := s.groups.GetMut(gid); ok {
		rec.Task = task
	}
	s.groups.Unlock()

	if s.listener != nil {
		s.listener.JoinedGroup(gid)
	}
}

// resolveGoIP prefers an explicit IP from the event (Android), falling back
// to deriving the link-local address from the GO's MAC (Linux).
func resolveGoIP(ev adapter.Event) net.IP {
	if ipStr := ev.GoIP(); ipStr != "" {
		return net.ParseIP(ipStr)
	}
	if mac := ev.GoDevAddr(); mac.Len > 0 {
		return netutil.LinkLocalFromMAC(mac)
	}
	return nil
}

func (s *Session) handleGroupFinished(ev adapter.Event) {
	ifaceName := ev.IfaceName()

	s.groups.Lock()
	gid, ok := s.groups.IDByPath(ifaceName)
	if !ok {
		s.groups.Unlock()
		return
	}
	rec, _ := s.groups.Remove(gid) // aborts the group's Task
	s.groups.Unlock()

	s.peers.Lock()
	for pid := range rec.Peers {
		if prec, ok := s.peers.GetMut(pid); ok {
			prec.Groups = removeGroupID(prec.Groups, gid)
		}
	}
	s.peers.Unlock()

	if s.listener != nil {
		for pid := range rec.Peers {
			s.listener.PeerLeftGroup(pid, gid)
		}
		s.listener.LeftGroup(gid)
	}
}

func removeGroupID(groups []store.GroupId, gid store.GroupId) []store.GroupId {
	out := groups[:0]
	for _, g := range groups {
		if g != gid {
			out = append(out, g)
		}
	}
	return out
}

// issueConnect re-issues a connect with the same parameters a GO
// negotiation failure or request calls for (§4.7): same peer path, PBC,
// our own GO intent, auto-join.
func (s *Session) issueConnect(peerPath string) {
	s.radio.ConnectToPeer(adapter.ConnectParams{
		PeerPath: peerPath,
		WPS:      adapter.WPSMethodPBC,
		GoIntent: s.cfg.GOIntent,
		AutoJoin: true,
	}, func(err error) {
		if err != nil {
			log.Printf("W: [session] auto-retry connect to %s failed: %v", peerPath, err)
		}
	})
}

// handlePBCRequest authorizes a provisioning-discovery PBC request via WPS
// when the radio exposes that optional capability; adapters that don't
// implement adapter.WPSAuthorizer simply get a log line instead.
func (s *Session) handlePBCRequest(d adapter.DiscoveredDevice) {
	auth, ok := s.radio.(adapter.WPSAuthorizer)
	if !ok {
		log.Printf("I: [session] PBC request from %s, adapter has no WPS authorize hook", d.DevAddr)
		return
	}
	if err := auth.AuthorizeWPS(d.DevAddr); err != nil {
		log.Printf("W: [session] authorizing WPS for %s: %v", d.DevAddr, err)
	}
}

// ownAssociateTemplate builds the Associate this session sends to announce
// itself: our own MAC if the radio exposes one, else our device name (the
// PeerOwnIdentifier fallback per §4.8), plus our logical identity. The
// key-exchange public key and ports are filled in per-send by the group
// package.
func (s *Session) ownAssociateTemplate() wire.Associate {
	var physicalID wire.PeerOwnIdentifier
	if mac, ok := s.radio.OwnMAC(); ok {
		physicalID = wire.PeerOwnIdentifier{
			Tag:     wire.PeerOwnIdentifierDevAddr,
			DevAddr: mac.Bytes,
			DevLen:  mac.Len,
		}
	} else {
		physicalID = wire.PeerOwnIdentifier{
			Tag:  wire.PeerOwnIdentifierName,
			Name: s.cfg.DeviceName,
		}
	}

	logical := s.cfg.Identity.ToLogical()
	return wire.Associate{
		PhysicalID: physicalID,
		LogicalID: wire.LogicalPeerIdentity{
			Nickname:  logical.Nickname,
			PublicKey: logical.PublicKey,
		},
	}
}
