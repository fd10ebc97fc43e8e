// Package session implements the connection lifecycle and query
// lifecycle state machine (spec.md §4.5). It is the layer the public
// surface drives directly; everything below it (message, codec, frame,
// transport) only ever sees one Session at a time, matching spec.md
// §5's single-threaded-per-session model.
//
// The READY/EXECUTING/BAD shape is grounded on cs104's connection
// states (StateStopped/StateOpen with its own I/S/U-frame exchange
// rules in cs104/...); here the rules are RUN/PULL_ALL/ACK_FAILURE
// instead of I/S/U frames, and BAD replaces a reconnect loop with a
// terminal failure, matching spec.md's "no automatic reconnection"
// non-goal.
package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/memgraph/mgclient-sub000/arena"
	"github.com/memgraph/mgclient-sub000/clog"
	"github.com/memgraph/mgclient-sub000/codec"
	"github.com/memgraph/mgclient-sub000/frame"
	"github.com/memgraph/mgclient-sub000/message"
	"github.com/memgraph/mgclient-sub000/metrics"
	"github.com/memgraph/mgclient-sub000/mgerr"
	"github.com/memgraph/mgclient-sub000/transport"
	"github.com/memgraph/mgclient-sub000/value"
)

// State is one of the three states a Session occupies (spec.md §4.5).
type State int

const (
	Ready State = iota
	Executing
	Bad
)

func (s State) String() string {
	switch s {
	case Ready:
		return "READY"
	case Executing:
		return "EXECUTING"
	default:
		return "BAD"
	}
}

// PullStatus is the outcome of one Pull call.
type PullStatus int

const (
	PullRow PullStatus = iota
	PullDone
	PullFailure
)

// Result is the tuple spec.md §3 describes: the last RUN's column
// names (application-allocator memory, surviving across pulls) plus
// the most recently published row/summary (arena memory, invalidated
// the moment the next inbound message is read).
type Result struct {
	Columns []string
	Row     []value.Value
	Summary *value.Map
}

// ColumnNames returns the result's column list.
func (r Result) ColumnNames() []string { return r.Columns }

// RowValues returns the fields of the most recently pulled RECORD, or
// nil if the last Pull produced a summary instead.
func (r Result) RowValues() []value.Value { return r.Row }

// SummaryMetadata returns the SUCCESS metadata that ended the result
// stream, or nil while rows are still being pulled.
func (r Result) SummaryMetadata() *value.Map { return r.Summary }

// Session drives one connection's handshake, INIT, RUN/PULL/RESET
// cycle, and FAILURE recovery. It is not safe for concurrent use; the
// caller serializes all calls on one Session (spec.md §5).
type Session struct {
	id    string
	state State
	tr    transport.Transport
	fw    *frame.Writer
	fr    *frame.Reader
	a     *arena.Arena
	log   clog.Clog
	mx    *metrics.Recorder

	lastResult Result
	lastErr    *mgerr.Error
}

// ID returns the session's connection identifier, generated once at
// connect time and used only to correlate log lines and errors across
// a session's lifetime — it has no meaning to the server.
func (s *Session) ID() string { return s.id }

// Options configures how the handshake/INIT sequence authenticates and
// what name the client identifies itself with.
type Options struct {
	ClientName  string
	Credentials message.Credentials
}

// New performs the handshake and INIT over tr and returns a Session in
// READY, or an error with the session left unusable (spec.md §4.5:
// "connect ... any failure → BAD" — since no Session escapes a failed
// New, there is nothing for the caller to hold onto in that state).
func New(tr transport.Transport, opts Options, log clog.Clog, mx *metrics.Recorder) (*Session, error) {
	if mx == nil {
		mx = metrics.NoOp()
	}
	s := &Session{
		id:    uuid.New().String(),
		state: Ready,
		tr:    tr,
		fw:    frame.NewWriter(tr),
		fr:    frame.NewReader(tr),
		a:     arena.New(),
		log:   log,
		mx:    mx,
	}

	handshakeStart := time.Now()
	if _, err := message.Handshake(tr, tr); err != nil {
		s.fail(err)
		return nil, err
	}
	mx.HandshakeObserved(handshakeStart)

	enc := codec.NewEncoder(s.fw)
	clientName := opts.ClientName
	if clientName == "" {
		clientName = "mgclient/0.1"
	}
	if err := message.Init(enc, clientName, opts.Credentials); err != nil {
		s.fail(err)
		return nil, err
	}
	if err := s.flush(); err != nil {
		s.fail(err)
		return nil, err
	}

	reply, err := s.readReply()
	if err != nil {
		s.fail(err)
		return nil, err
	}
	switch reply.Kind {
	case message.KindSuccess:
		mx.SessionOpened()
		return s, nil
	case message.KindFailure:
		s.fail(reply.Err)
		return nil, reply.Err
	default:
		err := mgerr.New(mgerr.ProtocolViolation, "expected SUCCESS or FAILURE after INIT")
		s.fail(err)
		return nil, err
	}
}

// State reports the session's current state.
func (s *Session) State() State { return s.state }

// LastError returns the most recently recorded error, or nil.
func (s *Session) LastError() *mgerr.Error { return s.lastErr }

func (s *Session) fail(err *mgerr.Error) {
	s.state = Bad
	s.lastErr = err
	s.log.Error("session %s: %s", s.id, err)
}

// flush hands the pending message to the frame writer and records the
// bytes-sent metric, so every outbound message is counted at the one
// place all of them pass through (SPEC_FULL.md §3.1).
func (s *Session) flush() error {
	n := s.fw.PendingLen()
	if err := s.fw.Flush(); err != nil {
		return err
	}
	s.mx.BytesSent(n)
	return nil
}

func (s *Session) readReply() (message.Reply, error) {
	buf, err := s.fr.ReadMessage()
	if err != nil {
		return message.Reply{}, err
	}
	s.mx.BytesReceived(len(buf))
	s.a.Reset()
	dec := codec.NewDecoder(buf, s.a)
	return message.Decode(dec)
}

// Run sends RUN, reads one reply, and drives the transition spec.md
// §4.5 describes: SUCCESS installs the new column list and sends
// PULL_ALL without waiting for its reply, moving to EXECUTING; FAILURE
// recovers back to READY via ACK_FAILURE and returns the
// classification; anything else is a protocol violation and moves to
// BAD.
func (s *Session) Run(query string, params *value.Map) error {
	if s.state == Bad {
		return mgerr.New(mgerr.BadCall, "session is BAD")
	}
	if s.state != Ready {
		err := mgerr.New(mgerr.BadCall, "run called while not READY")
		s.fail(err)
		return err
	}

	enc := codec.NewEncoder(s.fw)
	if err := message.Run(enc, query, params); err != nil {
		s.fail(err)
		return err
	}
	if err := s.flush(); err != nil {
		s.fail(err)
		return err
	}

	reply, err := s.readReply()
	if err != nil {
		s.fail(err)
		return err
	}

	switch reply.Kind {
	case message.KindSuccess:
		cols, err := message.ColumnNames(reply.Metadata)
		if err != nil {
			s.fail(err.(*mgerr.Error))
			return err
		}
		s.lastResult = Result{Columns: cols}

		pullEnc := codec.NewEncoder(s.fw)
		if err := message.PullAll(pullEnc); err != nil {
			s.fail(err)
			return err
		}
		if err := s.flush(); err != nil {
			s.fail(err)
			return err
		}
		s.state = Executing
		s.mx.QueryRun("ok")
		return nil
	case message.KindFailure:
		s.mx.QueryRun("failure")
		return s.recoverFromFailure(reply.Err)
	default:
		err := mgerr.New(mgerr.ProtocolViolation, "expected SUCCESS or FAILURE after RUN")
		s.fail(err)
		return err
	}
}

// Pull reads one reply from the active result stream (spec.md §4.5).
func (s *Session) Pull() (PullStatus, *Result, error) {
	if s.state == Bad {
		return PullFailure, nil, mgerr.New(mgerr.BadCall, "session is BAD")
	}
	if s.state != Executing {
		err := mgerr.New(mgerr.BadCall, "pull called while not EXECUTING")
		s.fail(err)
		return PullFailure, nil, err
	}

	reply, err := s.readReply()
	if err != nil {
		s.fail(err)
		return PullFailure, nil, err
	}

	switch reply.Kind {
	case message.KindRecord:
		s.lastResult.Row = reply.Fields
		s.lastResult.Summary = nil
		s.mx.RecordPulled()
		return PullRow, &s.lastResult, nil
	case message.KindSuccess:
		s.lastResult.Row = nil
		s.lastResult.Summary = reply.Metadata
		s.state = Ready
		return PullDone, &s.lastResult, nil
	case message.KindFailure:
		if err := s.recoverFromFailure(reply.Err); err != nil {
			return PullFailure, nil, err
		}
		return PullFailure, nil, reply.Err
	default:
		err := mgerr.New(mgerr.ProtocolViolation, "expected RECORD, SUCCESS, or FAILURE during PULL")
		s.fail(err)
		return PullFailure, nil, err
	}
}

// recoverFromFailure performs the ACK_FAILURE/await-SUCCESS recovery
// both Run and Pull use on a server FAILURE, returning the session to
// READY (spec.md §4.5, §7: "Server FAILUREs are recoverable").
func (s *Session) recoverFromFailure(failErr *mgerr.Error) error {
	s.lastErr = failErr
	enc := codec.NewEncoder(s.fw)
	if err := message.AckFailure(enc); err != nil {
		s.fail(err)
		return err
	}
	if err := s.flush(); err != nil {
		s.fail(err)
		return err
	}
	reply, err := s.readReply()
	if err != nil {
		s.fail(err)
		return err
	}
	if reply.Kind != message.KindSuccess {
		err := mgerr.New(mgerr.ProtocolViolation, "expected SUCCESS after ACK_FAILURE")
		s.fail(err)
		return err
	}
	s.state = Ready
	return failErr
}

// Reset sends the RESET message, returning the session to READY
// regardless of its prior state — including BAD — and clearing the
// error buffer (SPEC_FULL.md §4 item 1: a public reset operation added
// alongside the connect/run/pull surface). Only an
// I/O or protocol failure during the RESET exchange itself leaves the
// session BAD again.
func (s *Session) Reset() error {
	enc := codec.NewEncoder(s.fw)
	if err := message.Reset(enc); err != nil {
		s.fail(err)
		return err
	}
	if err := s.flush(); err != nil {
		s.fail(err)
		return err
	}
	reply, err := s.readReply()
	if err != nil {
		s.fail(err)
		return err
	}
	if reply.Kind != message.KindSuccess {
		err := mgerr.New(mgerr.ProtocolViolation, "expected SUCCESS after RESET")
		s.fail(err)
		return err
	}
	s.state = Ready
	s.lastResult = Result{}
	s.lastErr = nil
	return nil
}

// Close releases the transport. The Session must not be used again
// afterward.
func (s *Session) Close() error {
	return s.tr.Close()
}

// LastColumns returns the column names installed by the most recent
// successful Run, surviving across Pull calls until the next Run
// (spec.md §3's Result lifecycle).
func (s *Session) LastColumns() []string {
	return s.lastResult.Columns
}

// SetLogLevel raises or lowers the severity threshold this session's
// log lines are filtered at (SPEC_FULL.md §2.1; default NOTICE).
func (s *Session) SetLogLevel(level clog.Level) {
	s.log.SetLogLevel(level)
}

// SetLogProvider redirects this session's log output to p, forwarding
// to the underlying Clog (SPEC_FULL.md §2.1).
func (s *Session) SetLogProvider(p clog.LogProvider) {
	s.log.SetLogProvider(p)
}

// LastResult returns the session's current Result tuple.
func (s *Session) LastResult() Result {
	return s.lastResult
}
