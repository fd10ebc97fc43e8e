// Package frame implements the chunked message-framing layer underneath
// the value codec (spec.md §4.3). A logical message is split into one or
// more chunks, each preceded by a 2-byte big-endian length and the
// stream closed out with a zero-length chunk; chunk boundaries carry no
// meaning to the value codec above, which only ever sees the
// reassembled message bytes.
//
// The split between a small, fixed-purpose Writer and Reader follows the
// same pattern as I/S/U frame construction kept to small, single-purpose
// functions around a shared control-field shape; here the shared shape
// is the 2-byte chunk header instead of a 4-byte APCI control field.
package frame

import (
	"encoding/binary"
	"io"

	"github.com/memgraph/mgclient-sub000/mgerr"
)

// MaxChunkSize is the largest payload a single chunk may carry (spec.md
// §4.3: length field is 16 bits, so 0xFFFF is the largest legal chunk;
// a producer splits a longer message across multiple chunks).
const MaxChunkSize = 0xFFFF

// Writer buffers one logical message's chunks and flushes them to an
// underlying io.Writer, terminating with the zero-length chunk.
type Writer struct {
	w   io.Writer
	buf []byte
}

// NewWriter wraps w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// PendingLen returns the number of message bytes buffered since the
// last Flush, before chunk headers are added. Callers that track
// bytes-sent metrics read this immediately before calling Flush.
func (fw *Writer) PendingLen() int {
	return len(fw.buf)
}

// Write implements io.Writer, appending to the pending message. It
// never itself touches the network; call Flush to emit chunks and the
// closing zero-length marker.
func (fw *Writer) Write(p []byte) (int, error) {
	fw.buf = append(fw.buf, p...)
	return len(p), nil
}

// Flush splits the buffered message into MaxChunkSize chunks, writes
// each with its 2-byte length header, writes the zero-length
// terminator, and resets the buffer for the next message.
func (fw *Writer) Flush() error {
	off := 0
	for off < len(fw.buf) {
		end := off + MaxChunkSize
		if end > len(fw.buf) {
			end = len(fw.buf)
		}
		if err := fw.writeChunk(fw.buf[off:end]); err != nil {
			return err
		}
		off = end
	}
	if err := fw.writeChunk(nil); err != nil {
		return err
	}
	fw.buf = fw.buf[:0]
	return nil
}

func (fw *Writer) writeChunk(payload []byte) error {
	var hdr [2]byte
	binary.BigEndian.PutUint16(hdr[:], uint16(len(payload)))
	if _, err := fw.w.Write(hdr[:]); err != nil {
		return mgerr.New(mgerr.SendFailed, err.Error())
	}
	if len(payload) == 0 {
		return nil
	}
	if _, err := fw.w.Write(payload); err != nil {
		return mgerr.New(mgerr.SendFailed, err.Error())
	}
	return nil
}

// Reader reassembles chunks read from an underlying io.Reader into
// complete messages. A fresh Reader (or one after ReadMessage returns)
// is positioned to read the next message's first chunk.
type Reader struct {
	r   io.Reader
	buf []byte // growable scratch, reused across messages
}

// NewReader wraps r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r, buf: make([]byte, 0, 4096)}
}

// ReadMessage reads chunks until the zero-length terminator and returns
// the reassembled message bytes. The returned slice is only valid until
// the next ReadMessage call — callers that need to retain decoded
// values past that point must have already copied them out (the codec
// does this via arena.AllocString for every wire string).
func (fr *Reader) ReadMessage() ([]byte, error) {
	fr.buf = fr.buf[:0]
	var hdr [2]byte
	for {
		if _, err := io.ReadFull(fr.r, hdr[:]); err != nil {
			return nil, mgerr.New(mgerr.RecvFailed, err.Error())
		}
		n := binary.BigEndian.Uint16(hdr[:])
		if n == 0 {
			return fr.buf, nil
		}
		start := len(fr.buf)
		fr.buf = growTo(fr.buf, start+int(n))
		if _, err := io.ReadFull(fr.r, fr.buf[start:start+int(n)]); err != nil {
			return nil, mgerr.New(mgerr.RecvFailed, err.Error())
		}
	}
}

// growTo extends buf to length n, doubling capacity as needed rather
// than growing by exactly the chunk size each call.
func growTo(buf []byte, n int) []byte {
	if cap(buf) >= n {
		return buf[:n]
	}
	newCap := cap(buf) * 2
	if newCap < n {
		newCap = n
	}
	grown := make([]byte, n, newCap)
	copy(grown, buf)
	return grown
}
