package transport

import (
	"io"
	"net"
)

// Pipe returns two connected, in-memory Transports, letting session and
// message tests exercise a full round trip without a real socket. It is
// the test-tooling fake SPEC_FULL.md's ambient stack section calls for,
// modeled on net.Pipe rather than a hand-rolled channel pair.
func Pipe() (client, server Transport) {
	a, b := net.Pipe()
	return connTransport{a}, connTransport{b}
}

type connTransport struct {
	net.Conn
}

// SuspendUntilReadyToRead is a no-op; the in-memory pipe never runs on a
// cooperative scheduler.
func (connTransport) SuspendUntilReadyToRead() {}

// SuspendUntilReadyToWrite is a no-op; the in-memory pipe never runs on
// a cooperative scheduler.
func (connTransport) SuspendUntilReadyToWrite() {}

var _ Transport = connTransport{}
var _ io.ReadWriteCloser = connTransport{}
