// Package netutil derives the IPv6 link-local addressing the engine uses for
// every in-group socket, from a Wi-Fi Direct interface's MAC address.
package netutil

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// MAC is a 48- or 64-bit hardware address. Only the leading Len bytes of
// Bytes are significant.
type MAC struct {
	Bytes [8]byte
	Len   int
}

// ParseMAC accepts a 6- or 8-byte buffer and returns the corresponding MAC.
func ParseMAC(raw []byte) (MAC, error) {
	switch len(raw) {
	case 6, 8:
		var m MAC
		m.Len = len(raw)
		copy(m.Bytes[:], raw)
		return m, nil
	default:
		return MAC{}, fmt.Errorf("netutil: MAC must be 6 or 8 bytes, got %d", len(raw))
	}
}

// String renders the significant bytes colon-separated, lowercase hex.
func (m MAC) String() string {
	parts := make([]string, m.Len)
	for i := 0; i < m.Len; i++ {
		parts[i] = hex.EncodeToString(m.Bytes[i : i+1])
	}
	return strings.Join(parts, ":")
}

// Slice returns the significant bytes of m.
func (m MAC) Slice() []byte {
	return m.Bytes[:m.Len]
}

// EUI64 expands a 48-bit MAC into a 64-bit EUI-64 by inserting 0xFF 0xFE at
// bytes 3-4; an already-64-bit MAC is returned unchanged.
func (m MAC) EUI64() [8]byte {
	if m.Len == 8 {
		return m.Bytes
	}
	var out [8]byte
	copy(out[0:3], m.Bytes[0:3])
	out[3] = 0xFF
	out[4] = 0xFE
	copy(out[5:8], m.Bytes[3:6])
	return out
}
