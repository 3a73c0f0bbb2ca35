// Package group implements the per-group background task of spec §4.6:
// the control and data TCP listeners, the GO's Associate echo-back, and
// (on the non-GO side) the initial client bootstrap send — run as three
// concurrent activities where any failure cancels the rest.
package group

import (
	"context"
	"log"
	"net"

	"golang.org/x/sync/errgroup"

	"github.com/emilio/ngn/protocol"
	"github.com/emilio/ngn/store"
	"github.com/emilio/ngn/wire"
)

// GOControlPort is the well-known port the Group Owner's control listener
// binds, per spec §4.5/§6.
const GOControlPort = 9001

// Task is a running group's background listeners and, for non-GO groups,
// its client bootstrap send. It satisfies store.GroupTask: removing a
// GroupRecord from the store calls Stop, aborting every activity.
type Task struct {
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// Err returns the error that ended the task's activities, if any. It is
// only meaningful after Stop returns or after the task has exited on its
// own (e.g. the client bootstrap exhausting its retries).
func (t *Task) Err() error {
	<-t.done
	return t.err
}

var _ store.GroupTask = (*Task)(nil)

// Stop cancels every activity and blocks until they have all exited.
func (t *Task) Stop() {
	t.cancel()
	<-t.done
}

// StartParams bundles everything Start needs to bind listeners and launch
// the group's concurrent activities.
type StartParams struct {
	IsGO     bool
	ListenIP net.IP

	// GoAddr and GoPeerID are required when !IsGO: GoAddr is the GO's
	// "host:port" control address to bootstrap against, GoPeerID is the
	// peer record representing the GO (already created by the engine on
	// device discovery), whose KeyExchange supplies the client's half of
	// the key-exchange public key sent in the bootstrap Associate.
	GoAddr   string
	GoPeerID store.PeerId

	// OwnAssociate carries this session's PhysicalID, LogicalID, and Ports
	// (the listener ports, once bound, are filled in by Start); its
	// KeyExchangePublicKey field is overwritten per-send with the
	// relevant peer's key-exchange public key.
	OwnAssociate wire.Associate
}

// Start binds the group's control and data listeners and launches the
// control handler, data listener, and (non-GO only) client bootstrap as
// concurrent activities under one errgroup: the failure of any cancels the
// others, per §4.6. It returns the running Task plus the bound control and
// data ports.
func Start(ctx context.Context, params StartParams, peers *store.PeerStore, groups *store.GroupStore, groupID store.GroupId, listener protocol.Listener) (task *Task, controlPort, dataPort int, err error) {
	controlBindPort := 0
	if params.IsGO {
		controlBindPort = GOControlPort
	}

	controlLn, err := net.ListenTCP("tcp", &net.TCPAddr{IP: params.ListenIP, Port: controlBindPort})
	if err != nil {
		return nil, 0, 0, err
	}
	dataLn, err := net.ListenTCP("tcp", &net.TCPAddr{IP: params.ListenIP, Port: 0})
	if err != nil {
		controlLn.Close()
		return nil, 0, 0, err
	}

	controlPort = controlLn.Addr().(*net.TCPAddr).Port
	dataPort = dataLn.Addr().(*net.TCPAddr).Port
	params.OwnAssociate.Ports = wire.Ports{Control: uint16(controlPort), Data: uint16(dataPort)}

	taskCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	cc := controlContext{
		peers:        peers,
		groups:       groups,
		groupID:      groupID,
		listener:     listener,
		isGO:         params.IsGO,
		ownAssociate: params.OwnAssociate,
	}

	g, gCtx := errgroup.WithContext(taskCtx)
	g.Go(func() error { return runControlListener(gCtx, controlLn, cc) })
	g.Go(func() error { return runDataListener(gCtx, dataLn, peers, groups, groupID, listener) })
	if !params.IsGO {
		g.Go(func() error { return bootstrapClient(gCtx, params, peers) })
	}

	task = &Task{cancel: cancel, done: done}

	go func() {
		err := g.Wait()
		if err != nil && gCtx.Err() == nil {
			log.Printf("W: [group] activity exited: %v", err)
		}
		task.err = err
		controlLn.Close()
		dataLn.Close()
		close(done)
	}()

	return task, controlPort, dataPort, nil
}

// bootstrapClient sends the initial Associate to the GO, per §4.6's
// "client bootstrap" activity. The GO omits this entirely.
func bootstrapClient(ctx context.Context, params StartParams, peers *store.PeerStore) error {
	peers.RLock()
	rec, ok := peers.Get(params.GoPeerID)
	peers.RUnlock()
	if !ok || rec.KeyExchange == nil {
		return nil
	}

	assoc := params.OwnAssociate
	assoc.KeyExchangePublicKey = rec.KeyExchange.PublicKey()

	return SendControlMessage(ctx, params.GoAddr, assoc)
}
