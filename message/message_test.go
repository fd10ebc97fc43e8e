package message

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/memgraph/mgclient-sub000/arena"
	"github.com/memgraph/mgclient-sub000/codec"
	"github.com/memgraph/mgclient-sub000/mgerr"
	"github.com/memgraph/mgclient-sub000/value"
)

func TestHandshakeSelectsOfferedVersion(t *testing.T) {
	var wireOut bytes.Buffer
	reply := bytes.NewBuffer([]byte{0, 0, 0, 1})

	v, err := Handshake(&wireOut, reply)
	require.NoError(t, err)
	require.EqualValues(t, 1, v)

	sent := wireOut.Bytes()
	require.Equal(t, []byte{0x60, 0x60, 0xB0, 0x17}, sent[:4])
	require.Equal(t, []byte{0, 0, 0, 1}, sent[4:8])
}

func TestHandshakeRejectsUnofferedVersion(t *testing.T) {
	var wireOut bytes.Buffer
	reply := bytes.NewBuffer([]byte{0, 0, 0, 99})
	_, err := Handshake(&wireOut, reply)
	require.Error(t, err)
}

func TestInitBasicAuthEncoding(t *testing.T) {
	var buf bytes.Buffer
	enc := codec.NewEncoder(&buf)
	require.NoError(t, Init(enc, "mgclient/1.0", Credentials{Username: "u", Password: "p"}))

	a := arena.New()
	dec := codec.NewDecoder(buf.Bytes(), a)
	n, sig, err := dec.PeekStructHeader()
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Equal(t, codec.SigHello, sig)

	name, err := dec.DecodeValue()
	require.NoError(t, err)
	require.Equal(t, value.String("mgclient/1.0"), name)

	authV, err := dec.DecodeValue()
	require.NoError(t, err)
	auth := authV.(*value.Map)
	scheme, _ := auth.Get("scheme")
	require.Equal(t, value.String("basic"), scheme)
	principal, _ := auth.Get("principal")
	require.Equal(t, value.String("u"), principal)
}

func TestInitNoAuthEncoding(t *testing.T) {
	var buf bytes.Buffer
	enc := codec.NewEncoder(&buf)
	require.NoError(t, Init(enc, "mgclient/1.0", Credentials{}))

	a := arena.New()
	dec := codec.NewDecoder(buf.Bytes(), a)
	_, _, err := dec.PeekStructHeader()
	require.NoError(t, err)
	_, err = dec.DecodeValue() // client name
	require.NoError(t, err)
	authV, err := dec.DecodeValue()
	require.NoError(t, err)
	scheme, _ := authV.(*value.Map).Get("scheme")
	require.Equal(t, value.String("none"), scheme)
}

func TestDecodeRecord(t *testing.T) {
	var buf bytes.Buffer
	enc := codec.NewEncoder(&buf)

	// RECORD [Integer(1)]
	require.NoError(t, enc.EncodeStructHeader(1, codec.SigRecord))
	fields := value.NewList(1)
	require.NoError(t, fields.Append(value.Integer(1)))
	require.NoError(t, enc.EncodeValue(fields))

	a := arena.New()
	dec := codec.NewDecoder(buf.Bytes(), a)
	reply, err := Decode(dec)
	require.NoError(t, err)
	require.Equal(t, KindRecord, reply.Kind)
	require.Equal(t, []value.Value{value.Integer(1)}, reply.Fields)
}

func TestDecodeFailureClassification(t *testing.T) {
	var buf bytes.Buffer
	enc := codec.NewEncoder(&buf)
	require.NoError(t, enc.EncodeStructHeader(1, codec.SigFailure))
	meta := value.NewMap(2)
	require.NoError(t, meta.Insert("code", value.String("Memgraph.ClientError.SyntaxError")))
	require.NoError(t, meta.Insert("message", value.String("bad query")))
	require.NoError(t, enc.EncodeValue(meta))

	a := arena.New()
	dec := codec.NewDecoder(buf.Bytes(), a)
	reply, err := Decode(dec)
	require.NoError(t, err)
	require.Equal(t, KindFailure, reply.Kind)
	require.NotNil(t, reply.Err)
	require.Equal(t, mgerr.ClientError, reply.Err.Kind)
	require.Equal(t, "bad query", reply.Err.Message)
}

func TestColumnNamesExtractsFieldsList(t *testing.T) {
	meta := value.NewMap(1)
	cols := value.NewList(2)
	require.NoError(t, cols.Append(value.String("a")))
	require.NoError(t, cols.Append(value.String("b")))
	require.NoError(t, meta.Insert("fields", cols))

	names, err := ColumnNames(meta)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, names)
}
