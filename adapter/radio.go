package adapter

import "github.com/emilio/ngn/netutil"

// WPSMethod names the pairing method a connect attempt uses. "pbc"
// (push-button configuration) is the only method this engine issues.
type WPSMethod string

const WPSMethodPBC WPSMethod = "pbc"

// ConnectParams is the full parameter set a connect (or auto-retried
// connect) attempt carries: the opaque platform peer path, the WPS method,
// this session's own GO intent, and whether the backend should auto-join an
// existing group rather than negotiate fresh.
type ConnectParams struct {
	PeerPath string
	WPS      WPSMethod
	GoIntent int
	AutoJoin bool
}

// Radio is the narrow contract the session engine depends on to drive a
// platform backend: a small command surface plus a single serialized event
// stream. The adapter is free to run its own background pump, but every
// event it produces must be serialized onto the channel returned by Events
// in the order the underlying radio reported it, so the engine's event loop
// sees a strictly ordered stream (§5).
type Radio interface {
	// DiscoverPeers starts a scan. onResult is invoked once, when the radio
	// acknowledges (or rejects) the find request.
	DiscoverPeers(onResult func(error))

	// ConnectToPeer initiates a Wi-Fi Direct connection per params.
	// onResult is invoked once, when the radio accepts or rejects the
	// connect request; acceptance does not imply the group has formed yet
	// — that arrives later as a GroupStarted event.
	ConnectToPeer(params ConnectParams, onResult func(error))

	// OwnMAC returns this device's MAC address, if the backend exposes one.
	// Some platforms (notably parts of Android) don't; callers fall back to
	// PeerOwnIdentifier by name in that case.
	OwnMAC() (netutil.MAC, bool)

	// Events returns the adapter's event channel. It is closed when the
	// adapter shuts down.
	Events() <-chan Event

	// Stop releases any backend resources (D-Bus subscriptions, FFI
	// handles). The Events channel is closed either by Stop itself (as
	// adapter/fake does) or, in an adapter with a background pump, once
	// that pump has drained.
	Stop()
}

// WPSAuthorizer is an optional capability a Radio may implement: a GO
// backend that can authorize a provisioning-discovery PBC request directly,
// without going through a fresh Connect. The narrow Radio contract never
// requires it; the session engine type-asserts for it and falls back to
// logging the request when a backend doesn't support it.
type WPSAuthorizer interface {
	AuthorizeWPS(mac netutil.MAC) error
}
