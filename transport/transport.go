// Package transport implements the byte-stream layer the frame package
// sits on top of: a plain TCP socket tuned the way a long-lived database
// connection wants, and an optional TLS wrapper around it (spec.md
// §4.4). It generalizes cs104's raw net.Conn handling (net.DialTimeout
// plus socket options) to this protocol's TLS trust-callback model,
// borrowing the certificate-loading shape ClusterCockpit-cc-backend's
// server.go uses for tls.LoadX509KeyPair.
package transport

import (
	"io"
	"net"
	"time"

	"github.com/memgraph/mgclient-sub000/mgerr"
)

// Transport is the byte-stream abstraction the frame layer reads and
// writes through. TCPTransport and TLSTransport are the two concrete
// implementations; tests use an in-memory fake (see Pipe).
//
// SuspendUntilReadyToRead/SuspendUntilReadyToWrite are the cooperative-
// scheduler yield points spec.md §9 describes: hooks invoked
// immediately before each blocking Read/Write, letting a host built
// around a single-threaded event loop yield instead of blocking the
// whole process. Every implementation in this package is a no-op here
// (spec.md's non-goal: "no cooperative-scheduler host integration
// beyond the optional hook points") — a cooperative build supplies its
// own Transport implementation that overrides them.
type Transport interface {
	io.ReadWriteCloser
	SuspendUntilReadyToRead()
	SuspendUntilReadyToWrite()
}

// keepaliveIdle, keepaliveInterval, and keepaliveCount match spec.md
// §4.4's recommended TCP keepalive tuning for a connection that may sit
// idle between queries.
const (
	keepaliveIdle     = 20 * time.Second
	keepaliveInterval = 15 * time.Second
	keepaliveCount    = 4
)

// DialTCP opens a plain TCP connection to addr and applies the
// keepalive/no-delay tuning a long-lived database connection wants.
// Socket options that the platform or its standard library version
// does not expose are skipped rather than treated as fatal — the
// connection still works, just without that tuning.
func DialTCP(addr string, timeout time.Duration) (*TCPTransport, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, mgerr.New(mgerr.NetworkFailure, err.Error())
	}
	t := &TCPTransport{conn: conn}
	t.tune()
	return t, nil
}

// TCPTransport is a plain (non-TLS) connection.
type TCPTransport struct {
	conn net.Conn
}

func (t *TCPTransport) tune() {
	tc, ok := t.conn.(*net.TCPConn)
	if !ok {
		return
	}
	_ = tc.SetNoDelay(true)
	_ = tc.SetKeepAlive(true)
	_ = tc.SetKeepAlivePeriod(keepaliveIdle)
	tuneKeepaliveKernelKnobs(tc, keepaliveInterval, keepaliveCount)
}

func (t *TCPTransport) Read(p []byte) (int, error) {
	t.SuspendUntilReadyToRead()
	return t.conn.Read(p)
}

func (t *TCPTransport) Write(p []byte) (int, error) {
	t.SuspendUntilReadyToWrite()
	return t.conn.Write(p)
}

func (t *TCPTransport) Close() error { return t.conn.Close() }

// SuspendUntilReadyToRead is a no-op on the default blocking transport.
func (t *TCPTransport) SuspendUntilReadyToRead() {}

// SuspendUntilReadyToWrite is a no-op on the default blocking transport.
func (t *TCPTransport) SuspendUntilReadyToWrite() {}

// Conn exposes the underlying net.Conn, e.g. so TLSTransport can wrap
// it with a tls.Conn.
func (t *TCPTransport) Conn() net.Conn { return t.conn }
