// Command ngnsim wires two simulated sessions together over adapter/fake
// and runs one discovery/associate/message round trip to completion,
// logging every engine notification along the way. It replaces the
// teacher's interactive zmq chat demo (examples/ping, examples/chat) with a
// non-interactive run, since this module's radios are real Wi-Fi Direct
// hardware or a simulated medium, not something a terminal session can
// dial into directly.
package main

import (
	"log"
	"time"

	"github.com/emilio/ngn/adapter/fake"
	"github.com/emilio/ngn/identity"
	"github.com/emilio/ngn/netutil"
	"github.com/emilio/ngn/protocol"
	"github.com/emilio/ngn/session"
	"github.com/emilio/ngn/store"
)

// notifier logs every listener callback with the owning session's nickname,
// and reports PeerJoinedGroup/PeerMessaged on a channel so main can wait for
// the scenario to finish instead of guessing at a sleep.
type notifier struct {
	protocol.NoopListener
	who      string
	joined   chan store.PeerId
	messaged chan []byte
}

func (n *notifier) PeerDiscovered(id store.PeerId) {
	log.Printf("[%s] discovered peer %v", n.who, id)
}

func (n *notifier) JoinedGroup(id store.GroupId) {
	log.Printf("[%s] joined group %v", n.who, id)
}

func (n *notifier) PeerJoinedGroup(peer store.PeerId, group store.GroupId) {
	log.Printf("[%s] peer %v joined group %v", n.who, peer, group)
	n.joined <- peer
}

func (n *notifier) PeerMessaged(peer store.PeerId, group store.GroupId, msg []byte) {
	log.Printf("[%s] message from peer %v in group %v: %q", n.who, peer, group, msg)
	n.messaged <- msg
}

func mustMAC(b byte) netutil.MAC {
	mac, err := netutil.ParseMAC([]byte{b, 1, 2, 3, 4, 5})
	if err != nil {
		log.Fatalln(err)
	}
	return mac
}

func main() {
	medium := fake.NewVirtualRadio()
	aliceMAC, bobMAC := mustMAC(1), mustMAC(2)
	aliceRadio := medium.NewRadio("alice", aliceMAC)
	bobRadio := medium.NewRadio("bob", bobMAC)

	aliceID, err := identity.NewOwnIdentity("alice")
	if err != nil {
		log.Fatalln(err)
	}
	bobID, err := identity.NewOwnIdentity("bob")
	if err != nil {
		log.Fatalln(err)
	}

	aliceNotifier := &notifier{who: "alice", joined: make(chan store.PeerId, 1), messaged: make(chan []byte, 1)}
	bobNotifier := &notifier{who: "bob", joined: make(chan store.PeerId, 1), messaged: make(chan []byte, 1)}

	alice, err := session.New(session.Config{DeviceName: "alice-device", Identity: aliceID, GOIntent: 14}, aliceRadio, aliceNotifier)
	if err != nil {
		log.Fatalln(err)
	}
	defer alice.Stop()

	bob, err := session.New(session.Config{DeviceName: "bob-device", Identity: bobID, GOIntent: 14}, bobRadio, bobNotifier)
	if err != nil {
		log.Fatalln(err)
	}
	defer bob.Stop()

	if err := alice.DiscoverPeers(); err != nil {
		log.Fatalln(err)
	}
	if err := bob.DiscoverPeers(); err != nil {
		log.Fatalln(err)
	}

	peers := bob.AllPeers()
	if len(peers) == 0 {
		log.Fatalln("bob did not discover alice")
	}
	aliceHandle := peers[0]

	if err := bob.ConnectToPeer(aliceHandle); err != nil {
		log.Fatalln(err)
	}

	// The radio's negotiation is simulated directly, as a real backend
	// would deliver GroupStarted to each side once it finished. "lo" and
	// an explicit loopback IP stand in for a real Wi-Fi Direct interface
	// and its link-local address, so this binary runs on any machine.
	aliceRadio.StartGroup(true, "lo", aliceMAC, "::1")
	bobRadio.StartGroup(false, "lo", aliceMAC, "::1")

	select {
	case <-bobNotifier.joined:
	case <-time.After(5 * time.Second):
		log.Fatalln("timed out waiting for association")
	}

	if err := bob.MessagePeer(aliceHandle, []byte("hello from bob")); err != nil {
		log.Fatalln(err)
	}

	select {
	case <-aliceNotifier.messaged:
		log.Println("scenario complete")
	case <-time.After(5 * time.Second):
		log.Fatalln("timed out waiting for message delivery")
	}
}
