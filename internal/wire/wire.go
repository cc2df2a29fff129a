// Package wire frames persisted query snapshots:
//
//	magic(4) | ver(1) | gen(u64 be) | storedAt(i64 be, unix nanos) | vlen(u32 be) | payload(vlen)
//
// The generation is validated against the namespace generation on read; the
// timestamp lets the client decide whether restored data is still fresh.
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"time"
)

const (
	version byte = 1
	hdrLen       = 4 + 1 + 8 + 8 + 4
)

var (
	ErrCorrupt = errors.New("querysync: corrupt snapshot")
	magic4     = [...]byte{'Q', 'S', 'N', 'P'}
)

// Frame is one decoded snapshot. Payload aliases the input buffer.
type Frame struct {
	Gen      uint64
	StoredAt time.Time
	Payload  []byte
}

func Encode(gen uint64, storedAt time.Time, payload []byte) []byte {
	var buf bytes.Buffer
	buf.Grow(hdrLen + len(payload))

	buf.Write(magic4[:])
	buf.WriteByte(version)

	var u8 [8]byte
	var u4 [4]byte

	binary.BigEndian.PutUint64(u8[:], gen)
	buf.Write(u8[:])

	binary.BigEndian.PutUint64(u8[:], uint64(storedAt.UnixNano()))
	buf.Write(u8[:])

	binary.BigEndian.PutUint32(u4[:], uint32(len(payload)))
	buf.Write(u4[:])

	buf.Write(payload)
	return buf.Bytes()
}

// Decode parses a frame. Anything but an exact frame (short, foreign magic,
// unknown version, bad length, trailing bytes) is ErrCorrupt.
func Decode(b []byte) (Frame, error) {
	if len(b) < hdrLen || !bytes.Equal(b[:4], magic4[:]) || b[4] != version {
		return Frame{}, ErrCorrupt
	}
	off := 5

	gen := binary.BigEndian.Uint64(b[off : off+8])
	off += 8

	nanos := int64(binary.BigEndian.Uint64(b[off : off+8]))
	off += 8

	vlen := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	if vlen != len(b)-off {
		return Frame{}, ErrCorrupt
	}

	return Frame{
		Gen:      gen,
		StoredAt: time.Unix(0, nanos),
		Payload:  b[off : off+vlen],
	}, nil
}
