package message

import (
	"github.com/memgraph/mgclient-sub000/codec"
	"github.com/memgraph/mgclient-sub000/mgerr"
	"github.com/memgraph/mgclient-sub000/value"
)

// Credentials carries the username/password pair INIT authenticates
// with. A zero-value Credentials (both fields empty) sends
// `"scheme" = "none"` instead of basic auth (spec.md §4.5).
type Credentials struct {
	Username string
	Password string
}

// Init writes the 2-field INIT/HELLO struct (signature 0x01): the
// client name and an authentication map.
func Init(enc *codec.Encoder, clientName string, creds Credentials) error {
	if err := enc.EncodeStructHeader(2, codec.SigHello); err != nil {
		return err
	}
	if err := enc.EncodeString(clientName); err != nil {
		return err
	}
	return enc.EncodeValue(authMap(creds))
}

func authMap(creds Credentials) *value.Map {
	if creds.Username == "" && creds.Password == "" {
		m := value.NewMap(1)
		_ = m.Insert("scheme", value.String("none"))
		return m
	}
	m := value.NewMap(3)
	_ = m.Insert("scheme", value.String("basic"))
	_ = m.Insert("principal", value.String(creds.Username))
	_ = m.Insert("credentials", value.String(creds.Password))
	return m
}

// Run writes the RUN struct: query text and a parameter map.
func Run(enc *codec.Encoder, query string, params *value.Map) error {
	if params == nil {
		params = value.NewMap(0)
	}
	if err := enc.EncodeStructHeader(2, codec.SigRun); err != nil {
		return err
	}
	if err := enc.EncodeString(query); err != nil {
		return err
	}
	return enc.EncodeValue(params)
}

// PullAll writes the zero-field PULL_ALL struct that requests every
// remaining row of the current result.
func PullAll(enc *codec.Encoder) error {
	return enc.EncodeStructHeader(0, codec.SigPullAll)
}

// AckFailure writes the zero-field ACK_FAILURE struct a session sends
// to recover from a server FAILURE back to READY.
func AckFailure(enc *codec.Encoder) error {
	return enc.EncodeStructHeader(0, codec.SigAckFailure)
}

// Reset writes the zero-field RESET struct (SPEC_FULL.md §4 item 1:
// exposed as Session.Reset, supplementing the distilled connect/run/pull
// surface with an explicit reset call).
func Reset(enc *codec.Encoder) error {
	return enc.EncodeStructHeader(0, codec.SigReset)
}

// Kind distinguishes the three reply message shapes a Decoder produces.
type Kind int

const (
	KindSuccess Kind = iota
	KindFailure
	KindRecord
)

// Reply is one decoded server response: either a RECORD's row (Fields),
// a SUCCESS's summary metadata (Metadata), or a FAILURE's classified
// error.
type Reply struct {
	Kind     Kind
	Fields   []value.Value
	Metadata *value.Map
	Err      *mgerr.Error
}

// Decode reads one struct-tagged reply from dec, dispatching on its
// signature. RECORD/SUCCESS/FAILURE are the only signatures a session
// ever reads directly (spec.md §6); anything else is a protocol
// violation since the server only ever sends one of those three here.
func Decode(dec *codec.Decoder) (Reply, error) {
	n, sig, err := dec.PeekStructHeader()
	if err != nil {
		return Reply{}, err
	}
	switch sig {
	case codec.SigRecord:
		if n != 1 {
			return Reply{}, mgerr.New(mgerr.ProtocolViolation, "RECORD must carry exactly one field")
		}
		fieldsV, err := dec.DecodeValue()
		if err != nil {
			return Reply{}, err
		}
		list, ok := fieldsV.(*value.List)
		if !ok {
			return Reply{}, mgerr.New(mgerr.ProtocolViolation, "RECORD field must be a List")
		}
		return Reply{Kind: KindRecord, Fields: list.Items()}, nil
	case codec.SigSuccess:
		if n != 1 {
			return Reply{}, mgerr.New(mgerr.ProtocolViolation, "SUCCESS must carry exactly one field")
		}
		metaV, err := dec.DecodeValue()
		if err != nil {
			return Reply{}, err
		}
		meta, ok := metaV.(*value.Map)
		if !ok {
			return Reply{}, mgerr.New(mgerr.ProtocolViolation, "SUCCESS field must be a Map")
		}
		return Reply{Kind: KindSuccess, Metadata: meta}, nil
	case codec.SigFailure:
		if n != 1 {
			return Reply{}, mgerr.New(mgerr.ProtocolViolation, "FAILURE must carry exactly one field")
		}
		metaV, err := dec.DecodeValue()
		if err != nil {
			return Reply{}, err
		}
		meta, ok := metaV.(*value.Map)
		if !ok {
			return Reply{}, mgerr.New(mgerr.ProtocolViolation, "FAILURE field must be a Map")
		}
		return Reply{Kind: KindFailure, Metadata: meta, Err: classifyFailure(meta)}, nil
	default:
		return Reply{}, mgerr.New(mgerr.ProtocolViolation, "unexpected top-level message signature")
	}
}

// classifyFailure extracts `code`/`message` from a FAILURE's metadata
// map and classifies it per spec.md §4.5's "Failure classification".
func classifyFailure(meta *value.Map) *mgerr.Error {
	code := ""
	if v, ok := meta.Get("code"); ok {
		if s, ok := v.(value.String); ok {
			code = string(s)
		}
	}
	msg := ""
	if v, ok := meta.Get("message"); ok {
		if s, ok := v.(value.String); ok {
			msg = string(s)
		}
	}
	return mgerr.New(mgerr.Classify(code), msg)
}

// ColumnNames extracts the "fields" entry a RUN SUCCESS carries
// (spec.md §4.5: "copy column names out").
func ColumnNames(meta *value.Map) ([]string, error) {
	v, ok := meta.Get("fields")
	if !ok {
		return nil, mgerr.New(mgerr.ProtocolViolation, "RUN SUCCESS metadata missing \"fields\"")
	}
	list, ok := v.(*value.List)
	if !ok {
		return nil, mgerr.New(mgerr.ProtocolViolation, "\"fields\" must be a List")
	}
	out := make([]string, list.Len())
	for i, item := range list.Items() {
		s, ok := item.(value.String)
		if !ok {
			return nil, mgerr.New(mgerr.ProtocolViolation, "\"fields\" entries must be Strings")
		}
		out[i] = string(s)
	}
	return out, nil
}
