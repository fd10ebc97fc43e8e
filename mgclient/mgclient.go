package mgclient

import (
	"time"

	"github.com/memgraph/mgclient-sub000/clog"
	"github.com/memgraph/mgclient-sub000/metrics"
	"github.com/memgraph/mgclient-sub000/mgerr"
	"github.com/memgraph/mgclient-sub000/session"
	"github.com/memgraph/mgclient-sub000/transport"
	"github.com/memgraph/mgclient-sub000/value"
)

// dialTimeout bounds the TCP connect step only; spec.md §5 reserves
// all other timeout policy to the transport/caller.
const dialTimeout = 10 * time.Second

// Connect opens a TCP socket to config's endpoint, optionally upgrades
// it to TLS, performs the magic/version handshake, and runs INIT,
// returning a ready-to-use Session (spec.md §4.6's `connect` entry
// point).
func Connect(config Config, log clog.Clog, mx *metrics.Recorder) (*session.Session, error) {
	if err := config.Valid(); err != nil {
		return nil, err
	}

	tr, err := dial(config)
	if err != nil {
		return nil, err
	}

	s, err := session.New(tr, session.Options{
		ClientName:  config.ClientName,
		Credentials: config.credentials(),
	}, log, mx)
	if err != nil {
		_ = tr.Close()
		return nil, err
	}
	return s, nil
}

func dial(config Config) (transport.Transport, error) {
	addr := config.endpoint()
	if config.SSLMode == SSLModeDisable {
		return transport.DialTCP(addr, dialTimeout)
	}

	mode := transport.TrustSystemCAs
	if config.TrustCallback != nil {
		mode = transport.TrustCallback
	}
	return transport.DialTLS(addr, dialTimeout, transport.TLSConfig{
		ServerName:     config.Host,
		Mode:           mode,
		Callback:       config.TrustCallback,
		ClientCertFile: config.SSLCert,
		ClientKeyFile:  config.SSLKey,
	})
}

// Run submits query with params against s, returning the column names
// on success or the classified error on failure (spec.md §4.6).
func Run(s *session.Session, query string, params *value.Map) ([]string, error) {
	if err := s.Run(query, params); err != nil {
		return nil, err
	}
	return s.LastColumns(), nil
}

// Status is the three-way outcome of one Pull call.
type Status int

const (
	StatusRow Status = iota
	StatusDone
	StatusFailure
)

// Pull advances the active result stream by one step (spec.md §4.6).
func Pull(s *session.Session, out *session.Result) (Status, error) {
	status, result, err := s.Pull()
	if result != nil {
		*out = *result
	}
	switch status {
	case session.PullRow:
		return StatusRow, err
	case session.PullDone:
		return StatusDone, err
	default:
		return StatusFailure, err
	}
}

// Destroy closes s. After Destroy, s must not be used again (spec.md
// §4.6's `session.destroy`).
func Destroy(s *session.Session) error {
	return s.Close()
}

// Reset sends RESET, returning s to READY regardless of its prior
// state — including BAD — and clearing its error buffer (SPEC_FULL.md
// §4 item 1).
func Reset(s *session.Session) error {
	return s.Reset()
}

// IsRecoverable reports whether err left the session usable, i.e. it
// was a classified server FAILURE rather than an I/O or protocol
// failure.
func IsRecoverable(err error) bool {
	mgErr, ok := err.(*mgerr.Error)
	return ok && mgErr.Kind.IsRecoverable()
}
