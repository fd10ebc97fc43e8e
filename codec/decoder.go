package codec

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/memgraph/mgclient-sub000/arena"
	"github.com/memgraph/mgclient-sub000/mgerr"
	"github.com/memgraph/mgclient-sub000/value"
)

// Decoder reads Values out of one inbound message's reassembled bytes
// (spec.md §4.2, §4.3). The bytes of every decoded string are served
// from the Arena passed to NewDecoder, so a Decoder's lifetime must not
// outlive the Arena's next Reset; lists, maps and graph values are
// ordinary Go allocations. The cursor-over-a-byte-slice shape is the same
// shape as a codec walking a fixed per-info-object-type layout,
// generalized here to a full self-describing format.
type Decoder struct {
	buf   []byte
	pos   int
	arena *arena.Arena
}

// NewDecoder wraps buf, the fully reassembled payload of one inbound
// message (see frame.Reader), decoding into a.
func NewDecoder(buf []byte, a *arena.Arena) *Decoder {
	return &Decoder{buf: buf, arena: a}
}

func errEOM() *mgerr.Error {
	return mgerr.New(mgerr.ProtocolViolation, "unexpected end of message")
}

func (d *Decoder) readByte() (byte, error) {
	if d.pos >= len(d.buf) {
		return 0, errEOM()
	}
	b := d.buf[d.pos]
	d.pos++
	return b, nil
}

func (d *Decoder) readBytes(n int) ([]byte, error) {
	if n < 0 || d.pos+n > len(d.buf) {
		return nil, errEOM()
	}
	b := d.buf[d.pos : d.pos+n]
	d.pos += n
	return b, nil
}

func (d *Decoder) readUint8() (uint8, error) {
	return d.readByte()
}

func (d *Decoder) readUint16() (uint16, error) {
	b, err := d.readBytes(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (d *Decoder) readUint32() (uint32, error) {
	b, err := d.readBytes(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (d *Decoder) readInt64() (int64, error) {
	b, err := d.readBytes(8)
	if err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint64(b)), nil
}

// Remaining reports how many bytes are left to decode. The message layer
// uses this to detect struct fields left unconsumed.
func (d *Decoder) Remaining() int { return len(d.buf) - d.pos }

// peekMarker looks at, but does not consume, the next marker byte.
func (d *Decoder) peekMarker() (byte, error) {
	if d.pos >= len(d.buf) {
		return 0, errEOM()
	}
	return d.buf[d.pos], nil
}

// DecodeInteger reads a marker-tagged integer. It accepts any legal
// encoding, including a non-minimal one (spec.md §4.2: "Decoder must
// accept any legal encoding including non-minimal ones on input").
func (d *Decoder) DecodeInteger() (int64, error) {
	m, err := d.readByte()
	if err != nil {
		return 0, err
	}
	switch {
	case m <= tinyIntPosMax || m >= tinyIntNegMin:
		return int64(int8(m)), nil
	case m == markerInt8:
		b, err := d.readByte()
		if err != nil {
			return 0, err
		}
		return int64(int8(b)), nil
	case m == markerInt16:
		v, err := d.readUint16()
		if err != nil {
			return 0, err
		}
		return int64(int16(v)), nil
	case m == markerInt32:
		v, err := d.readUint32()
		if err != nil {
			return 0, err
		}
		return int64(int32(v)), nil
	case m == markerInt64:
		return d.readInt64()
	default:
		return 0, mgerr.New(mgerr.ProtocolViolation, fmt.Sprintf("invalid integer marker 0x%02X", m))
	}
}

func (d *Decoder) decodeSize(m byte, tinyMin, tinyMax, m8, m16, m32 byte) (int, bool, error) {
	switch {
	case m >= tinyMin && m <= tinyMax:
		return int(m - tinyMin), true, nil
	case m == m8:
		n, err := d.readUint8()
		return int(n), true, err
	case m == m16:
		n, err := d.readUint16()
		return int(n), true, err
	case m32 != 0 && m == m32:
		n, err := d.readUint32()
		return int(n), true, err
	default:
		return 0, false, nil
	}
}

// DecodeString reads a marker-tagged string, copying its bytes into the
// arena.
func (d *Decoder) DecodeString() (string, error) {
	m, err := d.readByte()
	if err != nil {
		return "", err
	}
	n, ok, err := d.decodeSize(m, markerTinyStringMin, markerTinyStringMax, markerString8, markerString16, markerString32)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", mgerr.New(mgerr.ProtocolViolation, fmt.Sprintf("invalid string marker 0x%02X", m))
	}
	raw, err := d.readBytes(n)
	if err != nil {
		return "", err
	}
	return arena.AllocString(d.arena, raw), nil
}

func (d *Decoder) decodeListHeader(m byte) (int, bool, error) {
	return d.decodeSize(m, markerTinyListMin, markerTinyListMax, markerList8, markerList16, markerList32)
}

func (d *Decoder) decodeMapHeader(m byte) (int, bool, error) {
	return d.decodeSize(m, markerTinyMapMin, markerTinyMapMax, markerMap8, markerMap16, markerMap32)
}

func (d *Decoder) decodeStructHeader(m byte) (fieldCount int, sig byte, ok bool, err error) {
	n, ok, err := d.decodeSize(m, markerTinyStructMin, markerTinyStructMax, markerStruct8, markerStruct16, 0)
	if err != nil || !ok {
		return 0, 0, ok, err
	}
	sig, err = d.readByte()
	return n, sig, true, err
}

// DecodeValue reads one complete Value, dispatching on its marker.
func (d *Decoder) DecodeValue() (value.Value, error) {
	m, err := d.readByte()
	if err != nil {
		return nil, err
	}
	return d.decodeValueWithMarker(m)
}

func (d *Decoder) decodeValueWithMarker(m byte) (value.Value, error) {
	switch {
	case m == markerNull:
		return value.Null{}, nil
	case m == markerFalse:
		return value.Boolean(false), nil
	case m == markerTrue:
		return value.Boolean(true), nil
	case m == markerFloat:
		b, err := d.readBytes(8)
		if err != nil {
			return nil, err
		}
		return value.Float(math.Float64frombits(binary.BigEndian.Uint64(b))), nil
	case m <= tinyIntPosMax || m >= tinyIntNegMin || m == markerInt8 || m == markerInt16 || m == markerInt32 || m == markerInt64:
		d.pos--
		i, err := d.DecodeInteger()
		if err != nil {
			return nil, err
		}
		return value.Integer(i), nil
	case isStringMarker(m):
		d.pos--
		s, err := d.DecodeString()
		if err != nil {
			return nil, err
		}
		return value.String(s), nil
	case isListMarker(m):
		n, _, err := d.decodeListHeader(m)
		if err != nil {
			return nil, err
		}
		return d.decodeListBody(n)
	case isMapMarker(m):
		n, _, err := d.decodeMapHeader(m)
		if err != nil {
			return nil, err
		}
		return d.decodeMapBody(n)
	case isStructMarker(m):
		n, sig, _, err := d.decodeStructHeader(m)
		if err != nil {
			return nil, err
		}
		return d.decodeStructBody(n, sig)
	default:
		return nil, mgerr.New(mgerr.ProtocolViolation, fmt.Sprintf("invalid marker 0x%02X", m))
	}
}

func isStringMarker(m byte) bool {
	return (m >= markerTinyStringMin && m <= markerTinyStringMax) ||
		m == markerString8 || m == markerString16 || m == markerString32
}
func isListMarker(m byte) bool {
	return (m >= markerTinyListMin && m <= markerTinyListMax) ||
		m == markerList8 || m == markerList16 || m == markerList32
}
func isMapMarker(m byte) bool {
	return (m >= markerTinyMapMin && m <= markerTinyMapMax) ||
		m == markerMap8 || m == markerMap16 || m == markerMap32
}
func isStructMarker(m byte) bool {
	return (m >= markerTinyStructMin && m <= markerTinyStructMax) ||
		m == markerStruct8 || m == markerStruct16
}

func (d *Decoder) decodeListBody(n int) (value.Value, error) {
	l := value.NewList(n)
	for i := 0; i < n; i++ {
		v, err := d.DecodeValue()
		if err != nil {
			return nil, err
		}
		if err := l.Append(v); err != nil {
			return nil, err
		}
	}
	return l, nil
}

func (d *Decoder) decodeMapBody(n int) (value.Value, error) {
	m := value.NewMap(n)
	for i := 0; i < n; i++ {
		k, err := d.DecodeString()
		if err != nil {
			return nil, err
		}
		v, err := d.DecodeValue()
		if err != nil {
			return nil, err
		}
		// the decoder trusts the server's uniqueness guarantee
		// (spec.md §3: "a precondition ... used only by the decoder").
		if err := m.InsertUnsafe(k, v); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// DecodeStructFields reads exactly n further Values, used by the message
// layer once it has already consumed a struct header and signature
// itself (RUN/RECORD/SUCCESS/FAILURE bodies).
func (d *Decoder) DecodeStructFields(n int) ([]value.Value, error) {
	fields := make([]value.Value, n)
	for i := 0; i < n; i++ {
		v, err := d.DecodeValue()
		if err != nil {
			return nil, err
		}
		fields[i] = v
	}
	return fields, nil
}

// PeekStructHeader reports the field count and signature of the next
// value without consuming anything but the header, letting the message
// layer decide how to parse the body based on the signature.
func (d *Decoder) PeekStructHeader() (fieldCount int, sig byte, err error) {
	save := d.pos
	m, err := d.readByte()
	if err != nil {
		return 0, 0, err
	}
	if !isStructMarker(m) {
		d.pos = save
		return 0, 0, mgerr.New(mgerr.ProtocolViolation, fmt.Sprintf("expected struct marker, got 0x%02X", m))
	}
	n, sig, _, err := d.decodeStructHeader(m)
	return n, sig, err
}

func (d *Decoder) decodeStructBody(n int, sig byte) (value.Value, error) {
	switch sig {
	case sigNode:
		if n != 3 {
			return nil, wrongArity("Node", 3, n)
		}
		id, err := d.DecodeValue()
		if err != nil {
			return nil, err
		}
		labelsV, err := d.DecodeValue()
		if err != nil {
			return nil, err
		}
		propsV, err := d.DecodeValue()
		if err != nil {
			return nil, err
		}
		return buildNode(id, labelsV, propsV)
	case sigRelationship:
		if n != 5 {
			return nil, wrongArity("Relationship", 5, n)
		}
		vals, err := d.decodeNValues(5)
		if err != nil {
			return nil, err
		}
		return buildRelationship(vals)
	case sigUnboundRelationship:
		if n != 3 {
			return nil, wrongArity("UnboundRelationship", 3, n)
		}
		vals, err := d.decodeNValues(3)
		if err != nil {
			return nil, err
		}
		return buildUnboundRelationship(vals)
	case sigPath:
		if n != 3 {
			return nil, wrongArity("Path", 3, n)
		}
		return d.decodePathBody()
	case sigDate:
		return d.decodeScalarStruct1(sigDate, n)
	case sigLocalTime:
		return d.decodeScalarStruct1(sigLocalTime, n)
	case sigTime:
		return d.decodeTime(n)
	case sigLocalDateTime:
		return d.decodeLocalDateTime(n)
	case sigDateTime:
		return d.decodeDateTime(n)
	case sigDateTimeZoneID:
		return d.decodeDateTimeZoneID(n)
	case sigDuration:
		return d.decodeDuration(n)
	case sigPoint2D:
		return d.decodePoint2D(n)
	case sigPoint3D:
		return d.decodePoint3D(n)
	default:
		// Unknown signatures are consumed, never rejected (spec.md §4.2).
		fields, err := d.DecodeStructFields(n)
		if err != nil {
			return nil, err
		}
		return value.Unknown{Signature: sig, Fields: fields}, nil
	}
}

func (d *Decoder) decodeNValues(n int) ([]value.Value, error) {
	return d.DecodeStructFields(n)
}

func wrongArity(name string, want, got int) error {
	return mgerr.New(mgerr.ProtocolViolation, fmt.Sprintf("%s struct expects %d fields, got %d", name, want, got))
}

func asInt(v value.Value, field string) (int64, error) {
	i, ok := v.(value.Integer)
	if !ok {
		return 0, mgerr.New(mgerr.ProtocolViolation, fmt.Sprintf("field %q: expected Integer, got %v", field, v.Kind()))
	}
	return int64(i), nil
}

func asString(v value.Value, field string) (string, error) {
	s, ok := v.(value.String)
	if !ok {
		return "", mgerr.New(mgerr.ProtocolViolation, fmt.Sprintf("field %q: expected String, got %v", field, v.Kind()))
	}
	return string(s), nil
}

func asMap(v value.Value, field string) (*value.Map, error) {
	m, ok := v.(*value.Map)
	if !ok {
		return nil, mgerr.New(mgerr.ProtocolViolation, fmt.Sprintf("field %q: expected Map, got %v", field, v.Kind()))
	}
	return m, nil
}

func asList(v value.Value, field string) (*value.List, error) {
	l, ok := v.(*value.List)
	if !ok {
		return nil, mgerr.New(mgerr.ProtocolViolation, fmt.Sprintf("field %q: expected List, got %v", field, v.Kind()))
	}
	return l, nil
}

func buildNode(idV, labelsV, propsV value.Value) (value.Value, error) {
	id, err := asInt(idV, "id")
	if err != nil {
		return nil, err
	}
	labelsList, err := asList(labelsV, "labels")
	if err != nil {
		return nil, err
	}
	labels := make([]string, labelsList.Len())
	for i, lv := range labelsList.Items() {
		s, err := asString(lv, "labels[]")
		if err != nil {
			return nil, err
		}
		labels[i] = s
	}
	props, err := asMap(propsV, "properties")
	if err != nil {
		return nil, err
	}
	return &value.Node{ID: id, Labels: labels, Properties: props}, nil
}

func buildRelationship(vals []value.Value) (value.Value, error) {
	id, err := asInt(vals[0], "id")
	if err != nil {
		return nil, err
	}
	start, err := asInt(vals[1], "start")
	if err != nil {
		return nil, err
	}
	end, err := asInt(vals[2], "end")
	if err != nil {
		return nil, err
	}
	typ, err := asString(vals[3], "type")
	if err != nil {
		return nil, err
	}
	props, err := asMap(vals[4], "properties")
	if err != nil {
		return nil, err
	}
	return &value.Relationship{ID: id, Start: start, End: end, Type: typ, Properties: props}, nil
}

func buildUnboundRelationship(vals []value.Value) (value.Value, error) {
	id, err := asInt(vals[0], "id")
	if err != nil {
		return nil, err
	}
	typ, err := asString(vals[1], "type")
	if err != nil {
		return nil, err
	}
	props, err := asMap(vals[2], "properties")
	if err != nil {
		return nil, err
	}
	return &value.UnboundRelationship{ID: id, Type: typ, Properties: props}, nil
}

func (d *Decoder) decodePathBody() (value.Value, error) {
	nodesV, err := d.DecodeValue()
	if err != nil {
		return nil, err
	}
	relsV, err := d.DecodeValue()
	if err != nil {
		return nil, err
	}
	seqV, err := d.DecodeValue()
	if err != nil {
		return nil, err
	}
	nodesList, err := asList(nodesV, "nodes")
	if err != nil {
		return nil, err
	}
	nodes := make([]*value.Node, nodesList.Len())
	for i, nv := range nodesList.Items() {
		n, ok := nv.(*value.Node)
		if !ok {
			return nil, wrongArity("Path.nodes[]", 0, 0)
		}
		nodes[i] = n
	}
	relsList, err := asList(relsV, "relationships")
	if err != nil {
		return nil, err
	}
	rels := make([]*value.UnboundRelationship, relsList.Len())
	for i, rv := range relsList.Items() {
		r, ok := rv.(*value.UnboundRelationship)
		if !ok {
			return nil, wrongArity("Path.relationships[]", 0, 0)
		}
		rels[i] = r
	}
	seqList, err := asList(seqV, "sequence")
	if err != nil {
		return nil, err
	}
	seq := make([]int64, seqList.Len())
	for i, sv := range seqList.Items() {
		n, err := asInt(sv, "sequence[]")
		if err != nil {
			return nil, err
		}
		seq[i] = n
	}
	p := &value.Path{Nodes: nodes, Relationships: rels, Sequence: seq}
	if err := p.Validate(); err != nil {
		return nil, mgerr.New(mgerr.ProtocolViolation, err.Error())
	}
	return p, nil
}

func (d *Decoder) decodeScalarStruct1(sig byte, n int) (value.Value, error) {
	if n != 1 {
		return nil, wrongArity(fmt.Sprintf("sig 0x%02X", sig), 1, n)
	}
	i, err := d.DecodeInteger()
	if err != nil {
		return nil, err
	}
	switch sig {
	case sigDate:
		return value.Date{Days: i}, nil
	case sigLocalTime:
		return value.LocalTime{Nanoseconds: i}, nil
	default:
		return nil, wrongArity("scalar struct", 1, n)
	}
}

func (d *Decoder) decodeTime(n int) (value.Value, error) {
	if n != 2 {
		return nil, wrongArity("Time", 2, n)
	}
	nanos, err := d.DecodeInteger()
	if err != nil {
		return nil, err
	}
	off, err := d.DecodeInteger()
	if err != nil {
		return nil, err
	}
	return value.Time{Nanoseconds: nanos, TZOffsetSeconds: int32(off)}, nil
}

func (d *Decoder) decodeLocalDateTime(n int) (value.Value, error) {
	if n != 2 {
		return nil, wrongArity("LocalDateTime", 2, n)
	}
	sec, err := d.DecodeInteger()
	if err != nil {
		return nil, err
	}
	nanos, err := d.DecodeInteger()
	if err != nil {
		return nil, err
	}
	return value.LocalDateTime{Seconds: sec, Nanoseconds: int32(nanos)}, nil
}

func (d *Decoder) decodeDateTime(n int) (value.Value, error) {
	if n != 3 {
		return nil, wrongArity("DateTime", 3, n)
	}
	sec, err := d.DecodeInteger()
	if err != nil {
		return nil, err
	}
	nanos, err := d.DecodeInteger()
	if err != nil {
		return nil, err
	}
	off, err := d.DecodeInteger()
	if err != nil {
		return nil, err
	}
	return value.DateTime{Seconds: sec, Nanoseconds: int32(nanos), TZOffsetMinutes: int32(off)}, nil
}

func (d *Decoder) decodeDateTimeZoneID(n int) (value.Value, error) {
	if n != 3 {
		return nil, wrongArity("DateTimeZoneId", 3, n)
	}
	sec, err := d.DecodeInteger()
	if err != nil {
		return nil, err
	}
	nanos, err := d.DecodeInteger()
	if err != nil {
		return nil, err
	}
	tzid, err := d.DecodeInteger()
	if err != nil {
		return nil, err
	}
	return value.DateTimeZoneID{Seconds: sec, Nanoseconds: int32(nanos), TZID: tzid}, nil
}

func (d *Decoder) decodeDuration(n int) (value.Value, error) {
	if n != 4 {
		return nil, wrongArity("Duration", 4, n)
	}
	months, err := d.DecodeInteger()
	if err != nil {
		return nil, err
	}
	days, err := d.DecodeInteger()
	if err != nil {
		return nil, err
	}
	sec, err := d.DecodeInteger()
	if err != nil {
		return nil, err
	}
	nanos, err := d.DecodeInteger()
	if err != nil {
		return nil, err
	}
	return value.Duration{Months: months, Days: days, Seconds: sec, Nanoseconds: int32(nanos)}, nil
}

func (d *Decoder) decodePoint2D(n int) (value.Value, error) {
	if n != 3 {
		return nil, wrongArity("Point2D", 3, n)
	}
	srid, err := d.DecodeInteger()
	if err != nil {
		return nil, err
	}
	x, err := d.decodeFloatField()
	if err != nil {
		return nil, err
	}
	y, err := d.decodeFloatField()
	if err != nil {
		return nil, err
	}
	return value.Point2D{SRID: uint32(srid), X: x, Y: y}, nil
}

func (d *Decoder) decodePoint3D(n int) (value.Value, error) {
	if n != 4 {
		return nil, wrongArity("Point3D", 4, n)
	}
	srid, err := d.DecodeInteger()
	if err != nil {
		return nil, err
	}
	x, err := d.decodeFloatField()
	if err != nil {
		return nil, err
	}
	y, err := d.decodeFloatField()
	if err != nil {
		return nil, err
	}
	z, err := d.decodeFloatField()
	if err != nil {
		return nil, err
	}
	return value.Point3D{SRID: uint32(srid), X: x, Y: y, Z: z}, nil
}

func (d *Decoder) decodeFloatField() (float64, error) {
	v, err := d.DecodeValue()
	if err != nil {
		return 0, err
	}
	f, ok := v.(value.Float)
	if !ok {
		return 0, mgerr.New(mgerr.ProtocolViolation, fmt.Sprintf("expected Float, got %v", v.Kind()))
	}
	return float64(f), nil
}
