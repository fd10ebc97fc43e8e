package session

import (
	"encoding/binary"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"

	"github.com/memgraph/mgclient-sub000/clog"
	"github.com/memgraph/mgclient-sub000/codec"
	"github.com/memgraph/mgclient-sub000/frame"
	"github.com/memgraph/mgclient-sub000/message"
	"github.com/memgraph/mgclient-sub000/metrics"
	"github.com/memgraph/mgclient-sub000/mgerr"
	"github.com/memgraph/mgclient-sub000/transport"
	"github.com/memgraph/mgclient-sub000/value"
)

// fakeServer drives the other end of a transport.Pipe the way a real
// server would, letting tests script exact reply sequences without a
// real socket.
type fakeServer struct {
	t  *testing.T
	tr transport.Transport
	fw *frame.Writer
	fr *frame.Reader
}

func newFakeServer(t *testing.T, tr transport.Transport) *fakeServer {
	return &fakeServer{t: t, tr: tr, fw: frame.NewWriter(tr), fr: frame.NewReader(tr)}
}

func (f *fakeServer) replyHandshake(version uint32) {
	var hdr [4]byte
	_, err := readAll(f.tr, hdr[:])
	require.NoError(f.t, err)
	var versions [16]byte
	_, err = readAll(f.tr, versions[:])
	require.NoError(f.t, err)

	var reply [4]byte
	binary.BigEndian.PutUint32(reply[:], version)
	_, err = f.tr.Write(reply[:])
	require.NoError(f.t, err)
}

func readAll(r interface{ Read([]byte) (int, error) }, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := r.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func (f *fakeServer) recvMessage() []byte {
	buf, err := f.fr.ReadMessage()
	require.NoError(f.t, err)
	return buf
}

func (f *fakeServer) sendSuccess(meta *value.Map) {
	enc := codec.NewEncoder(f.fw)
	require.NoError(f.t, enc.EncodeStructHeader(1, codec.SigSuccess))
	require.NoError(f.t, enc.EncodeValue(meta))
	require.NoError(f.t, f.fw.Flush())
}

func (f *fakeServer) sendFailure(code, msg string) {
	meta := value.NewMap(2)
	require.NoError(f.t, meta.Insert("code", value.String(code)))
	require.NoError(f.t, meta.Insert("message", value.String(msg)))
	enc := codec.NewEncoder(f.fw)
	require.NoError(f.t, enc.EncodeStructHeader(1, codec.SigFailure))
	require.NoError(f.t, enc.EncodeValue(meta))
	require.NoError(f.t, f.fw.Flush())
}

func (f *fakeServer) sendRecord(fields ...value.Value) {
	l := value.NewList(len(fields))
	for _, v := range fields {
		require.NoError(f.t, l.Append(v))
	}
	enc := codec.NewEncoder(f.fw)
	require.NoError(f.t, enc.EncodeStructHeader(1, codec.SigRecord))
	require.NoError(f.t, enc.EncodeValue(l))
	require.NoError(f.t, f.fw.Flush())
}

func newConnectedSession(t *testing.T) (*Session, *fakeServer) {
	client, server := transport.Pipe()
	srv := newFakeServer(t, server)

	done := make(chan *Session, 1)
	errCh := make(chan error, 1)
	go func() {
		s, err := New(client, Options{ClientName: "test"}, clog.NewLogger("test"), nil)
		if err != nil {
			errCh <- err
			return
		}
		done <- s
	}()

	srv.replyHandshake(1)
	meta := value.NewMap(0)
	srv.sendSuccess(meta)

	select {
	case s := <-done:
		return s, srv
	case err := <-errCh:
		t.Fatalf("connect failed: %v", err)
		return nil, nil
	}
}

func TestConnectReachesReady(t *testing.T) {
	s, _ := newConnectedSession(t)
	require.Equal(t, Ready, s.State())
}

func TestRunSuccessReachesExecuting(t *testing.T) {
	s, srv := newConnectedSession(t)

	resultCh := make(chan error, 1)
	go func() {
		resultCh <- s.Run("RETURN 1", nil)
	}()

	srv.recvMessage() // RUN
	fields := value.NewList(1)
	require.NoError(t, fields.Append(value.String("1")))
	runMeta := value.NewMap(1)
	require.NoError(t, runMeta.Insert("fields", fields))
	srv.sendSuccess(runMeta)

	srv.recvMessage() // PULL_ALL

	require.NoError(t, <-resultCh)
	require.Equal(t, Executing, s.State())
	require.Equal(t, []string{"1"}, s.lastResult.Columns)
}

func TestRunFailureRecoversToReady(t *testing.T) {
	s, srv := newConnectedSession(t)

	resultCh := make(chan error, 1)
	go func() {
		resultCh <- s.Run("bad syntax", nil)
	}()

	srv.recvMessage() // RUN
	srv.sendFailure("Memgraph.ClientError.SyntaxError", "syntax error")

	srv.recvMessage() // ACK_FAILURE
	srv.sendSuccess(value.NewMap(0))

	err := <-resultCh
	require.Error(t, err)
	var mgErr *mgerr.Error
	require.ErrorAs(t, err, &mgErr)
	require.Equal(t, mgerr.ClientError, mgErr.Kind)
	require.Equal(t, Ready, s.State())
}

func TestPullLoopRowsThenDone(t *testing.T) {
	s, srv := newConnectedSession(t)

	runDone := make(chan error, 1)
	go func() { runDone <- s.Run("RETURN 1", nil) }()
	srv.recvMessage()
	fields := value.NewList(1)
	require.NoError(t, fields.Append(value.String("1")))
	runMeta := value.NewMap(1)
	require.NoError(t, runMeta.Insert("fields", fields))
	srv.sendSuccess(runMeta)
	srv.recvMessage()
	require.NoError(t, <-runDone)

	pullCh := make(chan struct {
		status PullStatus
		err    error
	}, 1)
	go func() {
		status, _, err := s.Pull()
		pullCh <- struct {
			status PullStatus
			err    error
		}{status, err}
	}()
	srv.sendRecord(value.Integer(1))
	got := <-pullCh
	require.NoError(t, got.err)
	require.Equal(t, PullRow, got.status)

	go func() {
		status, _, err := s.Pull()
		pullCh <- struct {
			status PullStatus
			err    error
		}{status, err}
	}()
	srv.sendSuccess(value.NewMap(0))
	got = <-pullCh
	require.NoError(t, got.err)
	require.Equal(t, PullDone, got.status)
	require.Equal(t, Ready, s.State())
}

func TestPullCalledFromReadyIsBadCall(t *testing.T) {
	s, _ := newConnectedSession(t)
	status, _, err := s.Pull()
	require.Error(t, err)
	require.Equal(t, PullFailure, status)
	require.Equal(t, Bad, s.State())
}

func TestProtocolViolationTransitionsToBad(t *testing.T) {
	client, server := transport.Pipe()
	srv := newFakeServer(t, server)

	errCh := make(chan error, 1)
	go func() {
		_, err := New(client, Options{}, clog.NewLogger("test"), nil)
		errCh <- err
	}()

	srv.replyHandshake(99) // not offered
	err := <-errCh
	require.Error(t, err)
}

func TestResetRecoversFromBadToReady(t *testing.T) {
	s, srv := newConnectedSession(t)

	// Pull while READY is a BadCall, driving the session to BAD.
	_, _, err := s.Pull()
	require.Error(t, err)
	require.Equal(t, Bad, s.State())
	require.NotNil(t, s.LastError())

	resetCh := make(chan error, 1)
	go func() { resetCh <- s.Reset() }()
	srv.recvMessage() // RESET
	srv.sendSuccess(value.NewMap(0))

	require.NoError(t, <-resetCh)
	require.Equal(t, Ready, s.State())
	require.Nil(t, s.LastError())
}

type recordingProvider struct {
	criticals, errors, warns, debugs []string
}

func (r *recordingProvider) Critical(format string, v ...interface{}) {
	r.criticals = append(r.criticals, format)
}
func (r *recordingProvider) Error(format string, v ...interface{}) {
	r.errors = append(r.errors, format)
}
func (r *recordingProvider) Warn(format string, v ...interface{}) {
	r.warns = append(r.warns, format)
}
func (r *recordingProvider) Debug(format string, v ...interface{}) {
	r.debugs = append(r.debugs, format)
}

func TestSetLogProviderAndLevelForwardToClog(t *testing.T) {
	s, _ := newConnectedSession(t)

	rec := &recordingProvider{}
	s.SetLogProvider(rec)
	s.SetLogLevel(clog.LevelDebug)

	s.fail(mgerr.New(mgerr.ProtocolViolation, "boom"))
	require.Len(t, rec.errors, 1)
}

func counterValue(t *testing.T, families []*dto.MetricFamily, name string) float64 {
	t.Helper()
	for _, f := range families {
		if f.GetName() == name {
			require.NotEmpty(t, f.GetMetric())
			return f.GetMetric()[0].GetCounter().GetValue()
		}
	}
	t.Fatalf("metric family %s not found", name)
	return 0
}

func TestRunAndPullRecordByteMetrics(t *testing.T) {
	client, server := transport.Pipe()
	srv := newFakeServer(t, server)
	reg := prometheus.NewRegistry()
	mx := metrics.NewRecorder(reg)

	done := make(chan *Session, 1)
	go func() {
		s, err := New(client, Options{ClientName: "test"}, clog.NewLogger("test"), mx)
		require.NoError(t, err)
		done <- s
	}()
	srv.replyHandshake(1)
	srv.sendSuccess(value.NewMap(0))
	s := <-done

	runCh := make(chan error, 1)
	go func() { runCh <- s.Run("RETURN 1", nil) }()
	srv.recvMessage()
	fields := value.NewList(1)
	require.NoError(t, fields.Append(value.String("1")))
	runMeta := value.NewMap(1)
	require.NoError(t, runMeta.Insert("fields", fields))
	srv.sendSuccess(runMeta)
	srv.recvMessage()
	require.NoError(t, <-runCh)

	families, err := reg.Gather()
	require.NoError(t, err)
	require.Greater(t, counterValue(t, families, "mgclient_bytes_sent_total"), 0.0)
	require.Greater(t, counterValue(t, families, "mgclient_bytes_received_total"), 0.0)
}
