// Package mgclient is the public surface: configuration, Connect, and
// the Result accessors a host application uses (spec.md §4.6). Config's
// Valid/DefaultConfig split is the same shape as cs104.Config — defaults
// applied for each unspecified field, validated once before use.
package mgclient

import (
	"net"
	"strconv"

	"github.com/memgraph/mgclient-sub000/message"
	"github.com/memgraph/mgclient-sub000/mgerr"
	"github.com/memgraph/mgclient-sub000/transport"
)

// DefaultPort is the convention port; the caller must still set Port
// explicitly (spec.md §4.6: "default 7687 by convention but the caller
// must set it").
const DefaultPort = 7687

// DefaultClientName identifies this library to the server absent an
// application-supplied name.
const DefaultClientName = "MemgraphBolt/0.1"

// SSLMode selects whether Connect upgrades the TCP socket to TLS.
type SSLMode int

const (
	SSLModeDisable SSLMode = iota
	SSLModeRequire
)

// Config is the builder-style container of recognized connection
// options (spec.md §4.6).
type Config struct {
	Host    string // DNS name; exactly one of Host/Address required
	Address string // numeric address; exactly one of Host/Address required
	Port    int

	Username string
	Password string

	ClientName string

	SSLMode SSLMode
	// SSLCert/SSLKey configure optional mutual TLS; both or neither.
	SSLCert string
	SSLKey  string
	// TrustCallback, if set, is invoked after the TLS handshake instead
	// of system CA verification (spec.md §4.4).
	TrustCallback transport.TrustCallbackFunc
}

// DefaultConfig returns a Config with every optional field at its
// documented default. Host/Address/Port are left unset — they are the
// fields a caller must always supply.
func DefaultConfig() Config {
	return Config{
		ClientName: DefaultClientName,
		SSLMode:    SSLModeDisable,
	}
}

// Valid checks the required-field combinations spec.md §4.6 names and
// fills in defaults for anything left zero. Every failure is a
// *mgerr.Error of kind BadParameter, matching the rest of the library's
// exported entry points (SPEC_FULL.md §2.2: never a bare error wrapping
// an opaque cause).
func (c *Config) Valid() *mgerr.Error {
	if c == nil {
		return mgerr.New(mgerr.BadParameter, "nil config")
	}
	if (c.Host == "") == (c.Address == "") {
		return mgerr.New(mgerr.BadParameter, "exactly one of Host or Address is required")
	}
	if c.Port == 0 {
		return mgerr.New(mgerr.BadParameter, "Port is required")
	}
	if (c.Username == "") != (c.Password == "") {
		return mgerr.New(mgerr.BadParameter, "Username and Password must both be set or both be empty")
	}
	if (c.SSLCert == "") != (c.SSLKey == "") {
		return mgerr.New(mgerr.BadParameter, "SSLCert and SSLKey must both be set or both be empty")
	}
	if c.ClientName == "" {
		c.ClientName = DefaultClientName
	}
	return nil
}

// endpoint returns the host-or-address:port string DialTCP/DialTLS
// expect.
func (c *Config) endpoint() string {
	host := c.Host
	if host == "" {
		host = c.Address
	}
	return net.JoinHostPort(host, strconv.Itoa(c.Port))
}

func (c *Config) credentials() message.Credentials {
	return message.Credentials{Username: c.Username, Password: c.Password}
}
