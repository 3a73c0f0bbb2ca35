package wire

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAssociateRoundTripByName(t *testing.T) {
	a := Associate{
		PhysicalID: PeerOwnIdentifier{Tag: PeerOwnIdentifierName, Name: "phone-of-bob"},
		LogicalID:  LogicalPeerIdentity{Nickname: "bob"},
		Ports:      Ports{Control: 9001, Data: 51234},
	}
	for i := range a.LogicalID.PublicKey {
		a.LogicalID.PublicKey[i] = byte(i)
	}
	for i := range a.KeyExchangePublicKey {
		a.KeyExchangePublicKey[i] = byte(255 - i)
	}

	encoded := EncodeAssociate(a)
	decoded, err := DecodeControlMessage(encoded)
	require.NoError(t, err)
	require.Equal(t, a, decoded)
}

func TestAssociateRoundTripByDevAddr(t *testing.T) {
	a := Associate{
		PhysicalID: PeerOwnIdentifier{
			Tag:    PeerOwnIdentifierDevAddr,
			DevLen: 6,
		},
		LogicalID: LogicalPeerIdentity{Nickname: "alice"},
		Ports:     Ports{Control: 9001, Data: 4242},
	}
	copy(a.PhysicalID.DevAddr[:], []byte{0x02, 0x11, 0x22, 0x33, 0x44, 0x55})

	encoded := EncodeAssociate(a)
	decoded, err := DecodeControlMessage(encoded)
	require.NoError(t, err)
	require.Equal(t, a, decoded)
}

func TestDecodeRejectsTrailingBytes(t *testing.T) {
	a := Associate{
		PhysicalID: PeerOwnIdentifier{Tag: PeerOwnIdentifierName, Name: "x"},
		LogicalID:  LogicalPeerIdentity{Nickname: "y"},
	}
	encoded := EncodeAssociate(a)
	encoded = append(encoded, 0xFF)

	_, err := DecodeControlMessage(encoded)
	require.Error(t, err)
}

func TestDecodeRejectsUnknownTag(t *testing.T) {
	_, err := DecodeControlMessage([]byte{0xFF})
	require.Error(t, err)
}
