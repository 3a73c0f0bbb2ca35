package netutil

import "net"

// LinkLocalFromEUI64 derives the fe80::/64 address for an EUI-64 identifier,
// flipping the universal/local bit (bit 1 of the first byte) per RFC 4291
// appendix A.
func LinkLocalFromEUI64(eui64 [8]byte) net.IP {
	ip := make(net.IP, 16)
	ip[0] = 0xfe
	ip[1] = 0x80
	// bytes 2-7 are zero (the fe80::/64 prefix)
	modified := eui64
	modified[0] ^= 0x02
	copy(ip[8:16], modified[:])
	return ip
}

// LinkLocalFromMAC is the common case of deriving a link-local address
// directly from a 48- or 64-bit interface MAC.
func LinkLocalFromMAC(mac MAC) net.IP {
	return LinkLocalFromEUI64(mac.EUI64())
}

// ScopeID resolves the kernel zone index for a named interface.
func ScopeID(ifaceName string) (uint32, error) {
	iface, err := net.InterfaceByName(ifaceName)
	if err != nil {
		return 0, err
	}
	return uint32(iface.Index), nil
}

// PeerToSocketAddr builds the socket address to dial a peer at: IPv4
// addresses ignore scopeID, IPv6 addresses carry it as the zone index.
func PeerToSocketAddr(ip net.IP, scopeID uint32, port uint16) *net.TCPAddr {
	addr := &net.TCPAddr{IP: ip, Port: int(port)}
	if ip.To4() == nil {
		addr.Zone = zoneFromIndex(scopeID)
	}
	return addr
}

func zoneFromIndex(index uint32) string {
	iface, err := interfaceByIndexFunc(int(index))
	if err != nil || iface == nil {
		return ""
	}
	return iface.Name
}

// interfaceByIndexFunc is a var so tests can stub interface resolution
// without real network interfaces present.
var interfaceByIndexFunc = net.InterfaceByIndex
