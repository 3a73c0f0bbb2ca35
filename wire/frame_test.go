package wire

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestControlFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	payload := []byte("hello associate")

	require.NoError(t, WriteControlFrame(&buf, payload))

	got, err := ReadControlFrame(&buf)
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestControlFrameZeroLength(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteControlFrame(&buf, nil))

	got, err := ReadControlFrame(&buf)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestDataFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	var sig [SignatureSize]byte
	for i := range sig {
		sig[i] = byte(i)
	}
	payload := []byte("whisper")

	require.NoError(t, WriteDataFrame(&buf, sig, payload))

	gotSig, gotPayload, err := ReadDataFrame(&buf)
	require.NoError(t, err)
	require.Equal(t, sig, gotSig)
	require.Equal(t, payload, gotPayload)
}

func TestDataFrameZeroLengthPayload(t *testing.T) {
	// Boundary behavior from the spec: a zero-length data payload still
	// carries the full 64-byte signature.
	var buf bytes.Buffer
	var sig [SignatureSize]byte
	require.NoError(t, WriteDataFrame(&buf, sig, nil))

	_, payload, err := ReadDataFrame(&buf)
	require.NoError(t, err)
	require.Empty(t, payload)
}

func TestReadRejectsWrongMagic(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteControlFrame(&buf, []byte("x")))

	raw := buf.Bytes()
	raw[0] = 0xBE
	raw[1] = 0xEF

	_, err := ReadControlFrame(bytes.NewReader(raw))
	require.Error(t, err)
	if !errors.Is(err, ErrProtocol) {
		t.Fatalf("expected ErrProtocol, got %v", err)
	}
}

func TestReadRejectsWrongVersion(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteControlFrame(&buf, []byte("x")))

	raw := buf.Bytes()
	raw[2] = 0
	raw[3] = 9

	_, err := ReadControlFrame(bytes.NewReader(raw))
	if !errors.Is(err, ErrProtocol) {
		t.Fatalf("expected ErrProtocol, got %v", err)
	}
}

func TestReadRejectsTruncatedFrame(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteControlFrame(&buf, []byte("hello")))

	raw := buf.Bytes()
	_, err := ReadControlFrame(bytes.NewReader(raw[:len(raw)-2]))
	if err == nil {
		t.Fatal("expected a truncated read to error")
	}
}

func TestReadRejectsOversizedLength(t *testing.T) {
	var header [8]byte
	header[0], header[1] = byte(Magic>>8), byte(Magic)
	header[2], header[3] = byte(Version>>8), byte(Version)
	header[4], header[5], header[6], header[7] = 0xFF, 0xFF, 0xFF, 0xFF

	_, err := ReadControlFrame(bytes.NewReader(header[:]))
	if !errors.Is(err, ErrResource) {
		t.Fatalf("expected ErrResource, got %v", err)
	}
}
