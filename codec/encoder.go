package codec

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/memgraph/mgclient-sub000/mgerr"
	"github.com/memgraph/mgclient-sub000/value"
)

// Encoder writes Values to an underlying sink in minimal wire form
// (spec.md §4.2: "the encoder must always emit minimal" size markers).
// The sink is normally a frame.Writer (§4.3); tests use a plain
// bytes.Buffer.
type Encoder struct {
	w io.Writer
}

// NewEncoder wraps w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

func (e *Encoder) writeByte(b byte) error {
	_, err := e.w.Write([]byte{b})
	return err
}

func (e *Encoder) writeBytes(b []byte) error {
	_, err := e.w.Write(b)
	return err
}

func (e *Encoder) writeUint8(v uint8) error  { return e.writeByte(v) }
func (e *Encoder) writeUint16(v uint16) error {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	return e.writeBytes(b[:])
}
func (e *Encoder) writeUint32(v uint32) error {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return e.writeBytes(b[:])
}
func (e *Encoder) writeInt64(v int64) error {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(v))
	return e.writeBytes(b[:])
}

// EncodeInteger writes the minimal marker+payload for i (spec.md §4.2).
func (e *Encoder) EncodeInteger(i int64) error {
	switch {
	case i >= -16 && i <= tinyIntPosMax:
		return e.writeByte(byte(int8(i)))
	case i >= math.MinInt8 && i <= math.MaxInt8:
		if err := e.writeByte(markerInt8); err != nil {
			return err
		}
		return e.writeByte(byte(int8(i)))
	case i >= math.MinInt16 && i <= math.MaxInt16:
		if err := e.writeByte(markerInt16); err != nil {
			return err
		}
		return e.writeUint16(uint16(int16(i)))
	case i >= math.MinInt32 && i <= math.MaxInt32:
		if err := e.writeByte(markerInt32); err != nil {
			return err
		}
		return e.writeUint32(uint32(int32(i)))
	default:
		if err := e.writeByte(markerInt64); err != nil {
			return err
		}
		return e.writeInt64(i)
	}
}

func (e *Encoder) encodeSize(n int, tinyMin, tinyMax byte, m8, m16, m32 byte) error {
	switch {
	case n <= int(tinyMax-tinyMin):
		return e.writeByte(tinyMin + byte(n))
	case n <= math.MaxUint8:
		if err := e.writeByte(m8); err != nil {
			return err
		}
		return e.writeUint8(uint8(n))
	case n <= math.MaxUint16:
		if err := e.writeByte(m16); err != nil {
			return err
		}
		return e.writeUint16(uint16(n))
	case uint64(n) <= value.MaxContainerLen:
		if m32 == 0 {
			return mgerr.New(mgerr.SizeExceeded, "size exceeds largest marker for this family")
		}
		if err := e.writeByte(m32); err != nil {
			return err
		}
		return e.writeUint32(uint32(n))
	default:
		return mgerr.New(mgerr.SizeExceeded, fmt.Sprintf("size %d exceeds 2^32-1", n))
	}
}

// EncodeString writes s with the smallest string marker that fits.
func (e *Encoder) EncodeString(s string) error {
	if err := e.encodeSize(len(s), markerTinyStringMin, markerTinyStringMax, markerString8, markerString16, markerString32); err != nil {
		return err
	}
	return e.writeBytes([]byte(s))
}

func (e *Encoder) encodeListHeader(n int) error {
	return e.encodeSize(n, markerTinyListMin, markerTinyListMax, markerList8, markerList16, markerList32)
}

func (e *Encoder) encodeMapHeader(n int) error {
	return e.encodeSize(n, markerTinyMapMin, markerTinyMapMax, markerMap8, markerMap16, markerMap32)
}

func (e *Encoder) encodeStructHeader(n int, sig byte) error {
	if err := e.encodeSize(n, markerTinyStructMin, markerTinyStructMax, markerStruct8, markerStruct16, 0); err != nil {
		return err
	}
	return e.writeByte(sig)
}

// EncodeFloat writes the IEEE-754 double marker and its big-endian
// payload.
func (e *Encoder) EncodeFloat(f float64) error {
	if err := e.writeByte(markerFloat); err != nil {
		return err
	}
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], math.Float64bits(f))
	return e.writeBytes(b[:])
}

// EncodeValue dispatches on v's Kind and writes its minimal wire form.
// Kinds the server does not accept as client input (Node, Relationship,
// UnboundRelationship, Path, Time, DateTime, DateTimeZoneId, Point2D,
// Point3D — spec.md §4.2) are rejected with InvalidValue rather than
// silently accepted.
func (e *Encoder) EncodeValue(v value.Value) error {
	switch t := v.(type) {
	case nil:
		return e.writeByte(markerNull)
	case value.Null:
		return e.writeByte(markerNull)
	case value.Boolean:
		if t {
			return e.writeByte(markerTrue)
		}
		return e.writeByte(markerFalse)
	case value.Integer:
		return e.EncodeInteger(int64(t))
	case value.Float:
		return e.EncodeFloat(float64(t))
	case value.String:
		return e.EncodeString(string(t))
	case *value.List:
		if err := e.encodeListHeader(t.Len()); err != nil {
			return err
		}
		for _, item := range t.Items() {
			if err := e.EncodeValue(item); err != nil {
				return err
			}
		}
		return nil
	case *value.Map:
		if err := e.encodeMapHeader(t.Len()); err != nil {
			return err
		}
		var encErr error
		t.Range(func(key string, val value.Value) {
			if encErr != nil {
				return
			}
			if encErr = e.EncodeString(key); encErr != nil {
				return
			}
			encErr = e.EncodeValue(val)
		})
		return encErr
	case value.Date:
		return e.encodeStruct(1, sigDate, func() error { return e.EncodeInteger(t.Days) })
	case value.LocalTime:
		return e.encodeStruct(1, sigLocalTime, func() error { return e.EncodeInteger(t.Nanoseconds) })
	case value.LocalDateTime:
		return e.encodeStruct(2, sigLocalDateTime, func() error {
			if err := e.EncodeInteger(t.Seconds); err != nil {
				return err
			}
			return e.EncodeInteger(int64(t.Nanoseconds))
		})
	case value.Duration:
		return e.encodeStruct(4, sigDuration, func() error {
			for _, n := range []int64{t.Months, t.Days, t.Seconds, int64(t.Nanoseconds)} {
				if err := e.EncodeInteger(n); err != nil {
					return err
				}
			}
			return nil
		})
	case value.Time, value.DateTime, value.DateTimeZoneID, value.Point2D, value.Point3D,
		*value.Node, *value.Relationship, *value.UnboundRelationship, *value.Path:
		return mgerr.New(mgerr.InvalidValue, fmt.Sprintf("value kind %v is not accepted as client input", v.Kind()))
	case value.Unknown:
		return e.encodeStruct(len(t.Fields), t.Signature, func() error {
			for _, f := range t.Fields {
				if err := e.EncodeValue(f); err != nil {
					return err
				}
			}
			return nil
		})
	default:
		return mgerr.New(mgerr.InvalidValue, fmt.Sprintf("unrecognized value type %T", v))
	}
}

func (e *Encoder) encodeStruct(fieldCount int, sig byte, fields func() error) error {
	if err := e.encodeStructHeader(fieldCount, sig); err != nil {
		return err
	}
	return fields()
}

// EncodeStructHeader writes a struct marker/size and signature byte. The
// message package uses this directly to build protocol messages (HELLO,
// RUN, PULL_ALL, ...), each of which is itself a struct whose fields are
// ordinary Values encoded with EncodeValue.
func (e *Encoder) EncodeStructHeader(fieldCount int, signature byte) error {
	return e.encodeStructHeader(fieldCount, signature)
}
