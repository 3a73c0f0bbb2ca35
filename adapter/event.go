// Package adapter defines the narrow contract the session engine uses to
// talk to a platform radio backend: a command surface the engine calls into,
// and a single event stream the backend feeds the engine from. Concrete
// backends (Linux wpa_supplicant over D-Bus, Android's WifiP2pManager over a
// foreign-function bridge) live outside this module; adapter/fake is an
// in-memory implementation used by tests and the demo binary.
package adapter

import "github.com/emilio/ngn/netutil"

// EventKind discriminates the radio signals the engine's event loop reacts
// to, per spec §4.7.
type EventKind int

const (
	DeviceFound EventKind = iota + 1
	DevicesUpdated
	DeviceLost
	FindStopped
	GroupStarted
	GroupFinished
	GONegotiationFailure
	GONegotiationRequest
	ProvisioningDiscoveryPBCRequest
	// Other covers signals the engine only logs and does not act on: WPS
	// failure, persistent groups, invitation, PD display/enter pin.
	Other
)

func (k EventKind) String() string {
	switch k {
	case DeviceFound:
		return "DeviceFound"
	case DevicesUpdated:
		return "DevicesUpdated"
	case DeviceLost:
		return "DeviceLost"
	case FindStopped:
		return "FindStopped"
	case GroupStarted:
		return "GroupStarted"
	case GroupFinished:
		return "GroupFinished"
	case GONegotiationFailure:
		return "GONegotiationFailure"
	case GONegotiationRequest:
		return "GONegotiationRequest"
	case ProvisioningDiscoveryPBCRequest:
		return "ProvisioningDiscoveryPBCRequest"
	case Other:
		return "Other"
	default:
		return ""
	}
}

// DiscoveredDevice is one entry of an Android-style device-list batch, or a
// single device found/lost on Linux.
type DiscoveredDevice struct {
	Name    string
	DevAddr netutil.MAC
	// IP is set when the backend can supply it directly (Android); empty
	// means the engine must derive the link-local address itself.
	IP string
	// Path is the opaque platform peer path ConnectParams.PeerPath needs,
	// if the backend has one (e.g. a D-Bus object path). Engines that
	// track more backend-specific state than a path can stash it in
	// PeerRecord.BackendData instead.
	Path string
}

// Event is the single wire type carried on the adapter's event channel. Only
// the fields relevant to Kind are populated; see the field comments below.
type Event struct {
	kind EventKind

	// DeviceFound, DeviceLost, ProvisioningDiscoveryPBCRequest.
	device DiscoveredDevice

	// DevicesUpdated.
	devices []DiscoveredDevice

	// GroupStarted, GroupFinished.
	isGO      bool
	ifaceName string
	goDevAddr netutil.MAC
	goIP      string

	// GONegotiationFailure, GONegotiationRequest: the opaque platform peer
	// path to retry or accept a connect against.
	peerPath string

	// Other.
	signalName string
}

func (e Event) Kind() EventKind { return e.kind }

func (e Event) Device() DiscoveredDevice { return e.device }

func (e Event) Devices() []DiscoveredDevice { return e.devices }

func (e Event) IsGO() bool { return e.isGO }

func (e Event) IfaceName() string { return e.ifaceName }

func (e Event) GoDevAddr() netutil.MAC { return e.goDevAddr }

func (e Event) GoIP() string { return e.goIP }

func (e Event) PeerPath() string { return e.peerPath }

func (e Event) SignalName() string { return e.signalName }

func NewDeviceFoundEvent(d DiscoveredDevice) Event {
	return Event{kind: DeviceFound, device: d}
}

func NewDevicesUpdatedEvent(devices []DiscoveredDevice) Event {
	return Event{kind: DevicesUpdated, devices: devices}
}

func NewDeviceLostEvent(d DiscoveredDevice) Event {
	return Event{kind: DeviceLost, device: d}
}

func NewFindStoppedEvent() Event {
	return Event{kind: FindStopped}
}

func NewGroupStartedEvent(isGO bool, ifaceName string, goDevAddr netutil.MAC, goIP string) Event {
	return Event{kind: GroupStarted, isGO: isGO, ifaceName: ifaceName, goDevAddr: goDevAddr, goIP: goIP}
}

func NewGroupFinishedEvent(ifaceName string) Event {
	return Event{kind: GroupFinished, ifaceName: ifaceName}
}

func NewGONegotiationFailureEvent(peerPath string) Event {
	return Event{kind: GONegotiationFailure, peerPath: peerPath}
}

func NewGONegotiationRequestEvent(peerPath string) Event {
	return Event{kind: GONegotiationRequest, peerPath: peerPath}
}

func NewProvisioningDiscoveryPBCRequestEvent(d DiscoveredDevice) Event {
	return Event{kind: ProvisioningDiscoveryPBCRequest, device: d}
}

func NewOtherEvent(signalName string) Event {
	return Event{kind: Other, signalName: signalName}
}
