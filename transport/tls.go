package transport

import (
	"crypto/sha512"
	"crypto/tls"
	"crypto/x509"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/memgraph/mgclient-sub000/mgerr"
)

// TrustMode selects how a TLSTransport decides whether to trust the
// server's certificate (spec.md §4.4).
type TrustMode int

const (
	// TrustSystemCAs verifies the certificate chain against the system
	// trust store, as crypto/tls does by default.
	TrustSystemCAs TrustMode = iota
	// TrustCallback hands the peer's fingerprint to a caller-supplied
	// function instead of verifying a chain (spec.md's "sslmode
	// require_encryption, with an optional application-supplied trust
	// callback keyed on certificate fingerprint").
	TrustCallback
)

// TrustCallbackFunc decides whether to trust a server certificate seen
// during the handshake, given the server hostname or address, its
// public-key algorithm name, and the SHA-512 hex fingerprint of the
// certificate (spec.md §4.4).
type TrustCallbackFunc func(hostOrAddr, pubKeyAlgorithm, fingerprint string) bool

// TLSConfig carries everything a TLSTransport needs to establish and
// validate a connection.
type TLSConfig struct {
	ServerName string
	Mode       TrustMode
	Callback   TrustCallbackFunc

	// ClientCertFile/ClientKeyFile configure optional mutual TLS.
	ClientCertFile string
	ClientKeyFile  string
}

// TLSTransport is a TCPTransport wrapped in a TLS session. SSLv3 is
// disabled unconditionally (MinVersion is never below TLS 1.0) since
// spec.md §4.4 lists it among protocols the client must refuse.
type TLSTransport struct {
	conn        *tls.Conn
	fingerprint string
	pubKeyAlgo  string
}

// DialTLS dials addr over TCP, tunes the socket the same way DialTCP
// does, then performs the TLS handshake per cfg.
func DialTLS(addr string, timeout time.Duration, cfg TLSConfig) (*TLSTransport, error) {
	tcp, err := DialTCP(addr, timeout)
	if err != nil {
		return nil, err
	}
	return WrapTLS(tcp, cfg)
}

// WrapTLS upgrades an already-open TCPTransport to TLS. It is exported
// separately from DialTLS so a caller can apply its own dial/proxy
// logic and still get the handshake and trust-callback behavior.
func WrapTLS(tcp *TCPTransport, cfg TLSConfig) (*TLSTransport, error) {
	tlsCfg := &tls.Config{
		ServerName:         cfg.ServerName,
		MinVersion:         tls.VersionTLS10,
		InsecureSkipVerify: cfg.Mode == TrustCallback,
	}
	if cfg.ClientCertFile != "" && cfg.ClientKeyFile != "" {
		cert, err := tls.LoadX509KeyPair(cfg.ClientCertFile, cfg.ClientKeyFile)
		if err != nil {
			return nil, mgerr.New(mgerr.SSLError, err.Error())
		}
		tlsCfg.Certificates = []tls.Certificate{cert}
	}

	conn := tls.Client(tcp.Conn(), tlsCfg)
	if err := conn.Handshake(); err != nil {
		return nil, mgerr.New(mgerr.SSLError, err.Error())
	}

	t := &TLSTransport{conn: conn}
	state := conn.ConnectionState()
	if len(state.PeerCertificates) > 0 {
		leaf := state.PeerCertificates[0]
		t.fingerprint = fingerprintHex(leaf)
		t.pubKeyAlgo = publicKeyAlgorithmName(leaf)
	}

	if cfg.Mode == TrustCallback {
		if cfg.Callback == nil {
			return nil, mgerr.New(mgerr.BadParameter, "sslmode requires a trust callback but none was supplied")
		}
		host := cfg.ServerName
		if host == "" {
			host = addr(tcp)
		}
		if !cfg.Callback(host, t.pubKeyAlgo, t.fingerprint) {
			_ = conn.Close()
			return nil, mgerr.New(mgerr.TrustCallbackRejected, "trust callback rejected server certificate")
		}
	}
	return t, nil
}

func addr(tcp *TCPTransport) string {
	if tcp.Conn() == nil {
		return ""
	}
	return tcp.Conn().RemoteAddr().String()
}

func (t *TLSTransport) Read(p []byte) (int, error) {
	t.SuspendUntilReadyToRead()
	return t.conn.Read(p)
}

func (t *TLSTransport) Write(p []byte) (int, error) {
	t.SuspendUntilReadyToWrite()
	return t.conn.Write(p)
}

func (t *TLSTransport) Close() error { return t.conn.Close() }

// SuspendUntilReadyToRead is a no-op on the default blocking transport.
func (t *TLSTransport) SuspendUntilReadyToRead() {}

// SuspendUntilReadyToWrite is a no-op on the default blocking transport.
func (t *TLSTransport) SuspendUntilReadyToWrite() {}

// PeerFingerprint returns the SHA-512 hex fingerprint of the server's
// leaf certificate. It is always available regardless of TrustMode, not
// just when a trust callback is in use, since a caller may want to log
// or compare it after the fact (SPEC_FULL.md §4 item 4).
func (t *TLSTransport) PeerFingerprint() string { return t.fingerprint }

// PeerPublicKeyAlgorithm returns the textual name of the leaf
// certificate's public-key algorithm ("RSA", "ECDSA", "Ed25519", ...).
func (t *TLSTransport) PeerPublicKeyAlgorithm() string { return t.pubKeyAlgo }

func fingerprintHex(cert *x509.Certificate) string {
	sum := sha512.Sum512(cert.Raw)
	return hex.EncodeToString(sum[:])
}

func publicKeyAlgorithmName(cert *x509.Certificate) string {
	switch cert.PublicKeyAlgorithm {
	case x509.RSA:
		return "RSA"
	case x509.DSA:
		return "DSA"
	case x509.ECDSA:
		return "ECDSA"
	case x509.Ed25519:
		return "Ed25519"
	default:
		return fmt.Sprintf("unknown(%d)", int(cert.PublicKeyAlgorithm))
	}
}
