// Package fake is an in-memory adapter.Radio implementation: a virtual
// radio shared by a set of simulated devices in the same test or demo
// process. It is not a platform backend — it exists so engine and protocol
// tests, and cmd/ngnsim, can drive full discovery/associate/message
// scenarios without real Wi-Fi Direct hardware, the same role the teacher's
// loopback-based multi-node test harness plays for its own gossip engine.
package fake

import (
	"sync"

	"github.com/emilio/ngn/adapter"
	"github.com/emilio/ngn/netutil"
)

// VirtualRadio is the shared medium every Radio in a scenario registers
// with. Devices discover each other by simply being present on the same
// VirtualRadio; Connect/GroupStarted are driven explicitly by test code via
// StartGroup, since this package has no real negotiation to simulate.
type VirtualRadio struct {
	mu      sync.Mutex
	devices map[string]*Radio
}

// NewVirtualRadio returns an empty shared medium.
func NewVirtualRadio() *VirtualRadio {
	return &VirtualRadio{devices: make(map[string]*Radio)}
}

// Radio is one simulated device's adapter.Radio.
type Radio struct {
	medium  *VirtualRadio
	name    string
	mac     netutil.MAC
	events  chan adapter.Event
	stopped bool

	mu sync.Mutex
}

// NewRadio registers a new simulated device with name/mac on the medium and
// returns its adapter.Radio handle.
func (m *VirtualRadio) NewRadio(name string, mac netutil.MAC) *Radio {
	r := &Radio{
		medium: m,
		name:   name,
		mac:    mac,
		events: make(chan adapter.Event, 64),
	}
	m.mu.Lock()
	m.devices[name] = r
	m.mu.Unlock()
	return r
}

// DiscoverPeers reports every other registered device on the medium as
// found, then resolves onResult with a nil error.
func (r *Radio) DiscoverPeers(onResult func(error)) {
	r.medium.mu.Lock()
	others := make([]*Radio, 0, len(r.medium.devices))
	for name, dev := range r.medium.devices {
		if name != r.name {
			others = append(others, dev)
		}
	}
	r.medium.mu.Unlock()

	for _, dev := range others {
		r.emit(adapter.NewDeviceFoundEvent(adapter.DiscoveredDevice{Name: dev.name, DevAddr: dev.mac, Path: dev.name}))
	}
	if onResult != nil {
		onResult(nil)
	}
}

// ConnectToPeer acknowledges the connect request without negotiating
// anything. Which side becomes the GO is decided by the test, which forms
// the group with a later explicit StartGroup call on each radio.
func (r *Radio) ConnectToPeer(params adapter.ConnectParams, onResult func(error)) {
	if onResult != nil {
		onResult(nil)
	}
}

// StartGroup delivers a GroupStarted event to this radio, simulating the
// platform's negotiation having completed.
func (r *Radio) StartGroup(isGO bool, ifaceName string, goDevAddr netutil.MAC, goIP string) {
	r.emit(adapter.NewGroupStartedEvent(isGO, ifaceName, goDevAddr, goIP))
}

// FinishGroup delivers a GroupFinished event to this radio.
func (r *Radio) FinishGroup(ifaceName string) {
	r.emit(adapter.NewGroupFinishedEvent(ifaceName))
}

// LoseDevice delivers a DeviceLost event for the named peer.
func (r *Radio) LoseDevice(name string, mac netutil.MAC) {
	r.emit(adapter.NewDeviceLostEvent(adapter.DiscoveredDevice{Name: name, DevAddr: mac, Path: name}))
}

func (r *Radio) OwnMAC() (netutil.MAC, bool) {
	return r.mac, true
}

func (r *Radio) Events() <-chan adapter.Event {
	return r.events
}

func (r *Radio) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return
	}
	r.stopped = true
	close(r.events)
}

func (r *Radio) emit(e adapter.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return
	}
	r.events <- e
}
