package message

import (
	"github.com/memgraph/mgclient-sub000/codec"
	"github.com/memgraph/mgclient-sub000/value"
)

// The encoders in this file target the version-4 message dialect: HELLO
// carries an `extra` map, RUN carries a third field, and PULL replaces
// PULL_ALL with an explicit `extra` map (e.g. {"n": -1} for "all rows").
// Handshake only ever offers version 1 (see OfferedVersions), so these
// are never reached from Connect. SPEC_FULL.md §4 keeps them anyway:
// whether the original client's v4 path was dead code or a future
// dialect the handshake simply never got updated to offer is
// unresolved, so both encoders are preserved rather than one being
// deleted on a guess.

// HelloV4 writes the version-4 HELLO: client name, auth map, and an
// extra metadata map (e.g. routing/bookmark hints).
func HelloV4(enc *codec.Encoder, clientName string, creds Credentials, extra *value.Map) error {
	if extra == nil {
		extra = value.NewMap(0)
	}
	if err := enc.EncodeStructHeader(3, codec.SigHello); err != nil {
		return err
	}
	if err := enc.EncodeString(clientName); err != nil {
		return err
	}
	if err := enc.EncodeValue(authMap(creds)); err != nil {
		return err
	}
	return enc.EncodeValue(extra)
}

// RunV4 writes the version-4 RUN: query, parameters, and an extra map.
func RunV4(enc *codec.Encoder, query string, params, extra *value.Map) error {
	if params == nil {
		params = value.NewMap(0)
	}
	if extra == nil {
		extra = value.NewMap(0)
	}
	if err := enc.EncodeStructHeader(3, codec.SigRun); err != nil {
		return err
	}
	if err := enc.EncodeString(query); err != nil {
		return err
	}
	if err := enc.EncodeValue(params); err != nil {
		return err
	}
	return enc.EncodeValue(extra)
}

// PullV4 writes the version-4 PULL: an extra map carrying the requested
// row count under "n" (-1 meaning "all remaining rows", matching
// PULL_ALL's semantics in version 1).
func PullV4(enc *codec.Encoder, n int64) error {
	if err := enc.EncodeStructHeader(1, codec.SigPullAll); err != nil {
		return err
	}
	extra := value.NewMap(1)
	_ = extra.Insert("n", value.Integer(n))
	return enc.EncodeValue(extra)
}
