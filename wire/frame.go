// Package wire implements the on-wire frame format and structured message
// encoding shared by the control channel and the peer data channel.
//
// Every frame starts with a fixed header:
//
//	magic   uint16 (0xDEAD, big endian)
//	version uint16 (1, big endian)
//	length  uint32 (big endian)
//
// Control frames carry exactly length payload bytes after the header. Data
// frames carry a 64-byte Ed25519 signature before the length payload bytes.
package wire

import (
	"encoding/binary"
	"io"
)

const (
	// Magic identifies a frame belonging to this protocol.
	Magic uint16 = 0xDEAD
	// Version is the only wire version this package understands.
	Version uint16 = 1
	// SignatureSize is the length, in bytes, of an Ed25519 signature.
	SignatureSize = 64

	headerSize = 2 + 2 + 4
)

// ReadControlFrame reads an unsigned frame's payload from r.
func ReadControlFrame(r io.Reader) ([]byte, error) {
	return readFrame(r, nil)
}

// ReadDataFrame reads a signed frame, returning the signature and payload.
func ReadDataFrame(r io.Reader) (signature [SignatureSize]byte, payload []byte, err error) {
	payload, err = readFrame(r, &signature)
	return signature, payload, err
}

func readFrame(r io.Reader, signature *[SignatureSize]byte) ([]byte, error) {
	var header [headerSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if err == io.ErrUnexpectedEOF {
			return nil, protocolErrorf("truncated frame header")
		}
		return nil, err
	}

	magic := binary.BigEndian.Uint16(header[0:2])
	version := binary.BigEndian.Uint16(header[2:4])
	length := binary.BigEndian.Uint32(header[4:8])

	if magic != Magic {
		return nil, protocolErrorf("unexpected magic %#x", magic)
	}
	if version != Version {
		return nil, protocolErrorf("unexpected version %d", version)
	}

	if signature != nil {
		if _, err := io.ReadFull(r, signature[:]); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return nil, protocolErrorf("truncated frame signature")
			}
			return nil, err
		}
	}

	if length == 0 {
		return []byte{}, nil
	}

	// Reject absurd lengths before attempting to allocate; this is the
	// Go equivalent of the Rust implementation's try_reserve-and-bail.
	if length > maxFrameLength {
		return nil, resourceErrorf("frame length %d exceeds maximum", length)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, protocolErrorf("truncated frame payload")
		}
		return nil, err
	}
	return payload, nil
}

// maxFrameLength bounds allocation for a single frame payload. It is well
// below the wire format's 32-bit length ceiling and exists purely so a
// corrupt or hostile length field cannot force an enormous allocation.
const maxFrameLength = 64 << 20

// WriteControlFrame writes an unsigned frame.
func WriteControlFrame(w io.Writer, payload []byte) error {
	return writeFrame(w, payload, nil)
}

// WriteDataFrame writes a frame carrying the given signature before the payload.
func WriteDataFrame(w io.Writer, signature [SignatureSize]byte, payload []byte) error {
	return writeFrame(w, payload, &signature)
}

func writeFrame(w io.Writer, payload []byte, signature *[SignatureSize]byte) error {
	if uint64(len(payload)) > 1<<32-1 {
		return resourceErrorf("payload of %d bytes exceeds wire length limit", len(payload))
	}

	buf := make([]byte, 0, headerSize+SignatureSize+len(payload))
	buf = binary.BigEndian.AppendUint16(buf, Magic)
	buf = binary.BigEndian.AppendUint16(buf, Version)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(payload)))
	if signature != nil {
		buf = append(buf, signature[:]...)
	}
	buf = append(buf, payload...)

	// A single Write call keeps the frame atomic from the caller's point of
	// view; a short write on a stream is treated as fatal by callers.
	n, err := w.Write(buf)
	if err != nil {
		return err
	}
	if n != len(buf) {
		return io.ErrShortWrite
	}
	return nil
}
