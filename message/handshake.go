// Package message implements the protocol handshake and the high-level
// request/response messages the session state machine drives (spec.md
// §4.5, §6). Each message is one small function per message type, taking
// the fields that vary and writing through a shared Encoder.
package message

import (
	"encoding/binary"
	"io"

	"github.com/memgraph/mgclient-sub000/mgerr"
)

// magic is the four bytes that open every connection (spec.md §4.5,
// §6.1).
var magic = [4]byte{0x60, 0x60, 0xB0, 0x17}

// OfferedVersions are the candidate protocol versions sent during the
// handshake, highest preference first. Only version 1 is exercised by
// Connect; the remaining slots are zero-filled per spec.md §6.1.
var OfferedVersions = [4]uint32{1, 0, 0, 0}

// Handshake writes the magic bytes and version offer directly to w
// (the handshake predates chunked framing, so it bypasses frame.Writer)
// and reads back the server's chosen version from r. A version the
// client did not offer is a protocol violation.
func Handshake(w io.Writer, r io.Reader) (uint32, error) {
	buf := make([]byte, 0, 4+4*4)
	buf = append(buf, magic[:]...)
	for _, v := range OfferedVersions {
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], v)
		buf = append(buf, b[:]...)
	}
	if _, err := w.Write(buf); err != nil {
		return 0, mgerr.New(mgerr.SendFailed, err.Error())
	}

	var reply [4]byte
	if _, err := io.ReadFull(r, reply[:]); err != nil {
		return 0, mgerr.New(mgerr.RecvFailed, err.Error())
	}
	version := binary.BigEndian.Uint32(reply[:])
	for _, v := range OfferedVersions {
		if v == version {
			return version, nil
		}
	}
	return 0, mgerr.New(mgerr.ProtocolViolation, "server chose a protocol version the client did not offer")
}
