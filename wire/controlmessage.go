package wire

// PeerOwnIdentifierTag discriminates the self-reported identifier variant a
// peer used when sending Associate.
type PeerOwnIdentifierTag byte

const (
	// PeerOwnIdentifierName reports a device name.
	PeerOwnIdentifierName PeerOwnIdentifierTag = iota
	// PeerOwnIdentifierDevAddr reports a MAC device address.
	PeerOwnIdentifierDevAddr
)

// PeerOwnIdentifier is the tagged variant a peer self-reports in Associate;
// exactly one of Name / DevAddr is meaningful, selected by Tag.
type PeerOwnIdentifier struct {
	Tag     PeerOwnIdentifierTag
	Name    string
	DevAddr [8]byte // 6 or 8 significant bytes, see netutil.MAC
	DevLen  int
}

// LogicalPeerIdentity is the {nickname, public key} pair bound to a peer on
// association.
type LogicalPeerIdentity struct {
	Nickname  string
	PublicKey [32]byte
}

// Ports is the (control, data) TCP port pair a peer listens on within a group.
type Ports struct {
	Control uint16
	Data    uint16
}

// ControlMessageTag discriminates ControlMessage variants. Associate is
// presently the only variant; the tag exists so the wire format can grow
// additional control messages without an incompatible change.
type ControlMessageTag byte

const (
	// ControlMessageAssociate tags the Associate variant.
	ControlMessageAssociate ControlMessageTag = iota
)

// Associate binds a radio-level peer to a logical identity, a key-exchange
// public key, and the ports it listens on within the current group.
type Associate struct {
	PhysicalID           PeerOwnIdentifier
	LogicalID            LogicalPeerIdentity
	KeyExchangePublicKey [32]byte
	Ports                Ports
}

// EncodeAssociate encodes a ControlMessage carrying an Associate payload.
func EncodeAssociate(a Associate) []byte {
	e := &encoder{}
	e.putByte(byte(ControlMessageAssociate))

	e.putByte(byte(a.PhysicalID.Tag))
	switch a.PhysicalID.Tag {
	case PeerOwnIdentifierName:
		e.putString(a.PhysicalID.Name)
	case PeerOwnIdentifierDevAddr:
		e.putByte(byte(a.PhysicalID.DevLen))
		e.putBytes(a.PhysicalID.DevAddr[:])
	}

	e.putString(a.LogicalID.Nickname)
	e.putBytes(a.LogicalID.PublicKey[:])

	e.putBytes(a.KeyExchangePublicKey[:])

	e.putUvarint(uint64(a.Ports.Control))
	e.putUvarint(uint64(a.Ports.Data))

	return e.bytes()
}

// DecodeControlMessage decodes a control frame payload. Only Associate is
// presently defined; an unknown tag is a protocol error.
func DecodeControlMessage(payload []byte) (Associate, error) {
	d := newDecoder(payload)

	tag, err := d.getByte()
	if err != nil {
		return Associate{}, protocolErrorf("reading control message tag: %v", err)
	}
	if ControlMessageTag(tag) != ControlMessageAssociate {
		return Associate{}, protocolErrorf("unknown control message tag %d", tag)
	}

	var a Associate

	idTag, err := d.getByte()
	if err != nil {
		return Associate{}, protocolErrorf("reading physical id tag: %v", err)
	}
	a.PhysicalID.Tag = PeerOwnIdentifierTag(idTag)
	switch a.PhysicalID.Tag {
	case PeerOwnIdentifierName:
		a.PhysicalID.Name, err = d.getString()
		if err != nil {
			return Associate{}, protocolErrorf("reading physical id name: %v", err)
		}
	case PeerOwnIdentifierDevAddr:
		n, err := d.getByte()
		if err != nil {
			return Associate{}, protocolErrorf("reading dev addr length: %v", err)
		}
		a.PhysicalID.DevLen = int(n)
		raw, err := d.getBytes(8)
		if err != nil {
			return Associate{}, protocolErrorf("reading dev addr: %v", err)
		}
		copy(a.PhysicalID.DevAddr[:], raw)
	default:
		return Associate{}, protocolErrorf("unknown physical id tag %d", idTag)
	}

	a.LogicalID.Nickname, err = d.getString()
	if err != nil {
		return Associate{}, protocolErrorf("reading nickname: %v", err)
	}
	raw, err := d.getBytes(32)
	if err != nil {
		return Associate{}, protocolErrorf("reading logical public key: %v", err)
	}
	copy(a.LogicalID.PublicKey[:], raw)

	raw, err = d.getBytes(32)
	if err != nil {
		return Associate{}, protocolErrorf("reading key exchange public key: %v", err)
	}
	copy(a.KeyExchangePublicKey[:], raw)

	control, err := d.getUvarint()
	if err != nil {
		return Associate{}, protocolErrorf("reading control port: %v", err)
	}
	data, err := d.getUvarint()
	if err != nil {
		return Associate{}, protocolErrorf("reading data port: %v", err)
	}
	a.Ports = Ports{Control: uint16(control), Data: uint16(data)}

	if d.remaining() != 0 {
		return Associate{}, protocolErrorf("%d trailing bytes after control message", d.remaining())
	}

	return a, nil
}
