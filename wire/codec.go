package wire

import (
	"bytes"
	"encoding/binary"
)

// encoder accumulates a deterministic byte encoding of a structured message.
// Strings and byte slices are length-prefixed with a uvarint, matching the
// "deterministic variable-integer binary encoding" the control-channel codec
// needs to be stable across builds.
type encoder struct {
	buf []byte
}

func (e *encoder) putUvarint(v uint64) {
	e.buf = binary.AppendUvarint(e.buf, v)
}

func (e *encoder) putByte(b byte) {
	e.buf = append(e.buf, b)
}

func (e *encoder) putBytes(raw []byte) {
	e.buf = append(e.buf, raw...)
}

func (e *encoder) putString(s string) {
	e.putUvarint(uint64(len(s)))
	e.buf = append(e.buf, s...)
}

func (e *encoder) putVarBytes(raw []byte) {
	e.putUvarint(uint64(len(raw)))
	e.buf = append(e.buf, raw...)
}

func (e *encoder) bytes() []byte { return e.buf }

// decoder consumes a byte encoding produced by encoder; a short or malformed
// input yields io.ErrUnexpectedEOF-class errors via bytes.Reader.
type decoder struct {
	r *bytes.Reader
}

func newDecoder(payload []byte) *decoder {
	return &decoder{r: bytes.NewReader(payload)}
}

func (d *decoder) getUvarint() (uint64, error) {
	return binary.ReadUvarint(d.r)
}

func (d *decoder) getByte() (byte, error) {
	return d.r.ReadByte()
}

func (d *decoder) getBytes(n int) ([]byte, error) {
	// n comes from a uvarint length prefix decoded off an untrusted frame;
	// reject it against what's actually left before allocating, so a
	// forged or corrupt length can't force an oversized make() panic.
	if n < 0 || n > d.remaining() {
		return nil, protocolErrorf("length prefix %d exceeds remaining payload of %d bytes", n, d.remaining())
	}
	out := make([]byte, n)
	if _, err := readFullReader(d.r, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (d *decoder) getString() (string, error) {
	n, err := d.getUvarint()
	if err != nil {
		return "", err
	}
	raw, err := d.getBytes(int(n))
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func (d *decoder) getVarBytes() ([]byte, error) {
	n, err := d.getUvarint()
	if err != nil {
		return nil, err
	}
	return d.getBytes(int(n))
}

// remaining reports unconsumed bytes; decoding must consume exactly the
// frame payload, so any remainder after a top-level decode is an error.
func (d *decoder) remaining() int {
	return d.r.Len()
}

func readFullReader(r *bytes.Reader, buf []byte) (int, error) {
	n := 0
	for n < len(buf) {
		m, err := r.Read(buf[n:])
		n += m
		if err != nil {
			return n, err
		}
		if m == 0 {
			return n, protocolErrorf("truncated read")
		}
	}
	return n, nil
}
