package engine

import (
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ftplab/ftpd/internal/ftp/data"
	"github.com/ftplab/ftpd/internal/ftp/reply"
	"github.com/ftplab/ftpd/internal/ftp/session"
	"github.com/ftplab/ftpd/pkg/vfs"
)

// replyRecorder captures replies in the order they were sent.
type replyRecorder struct {
	replies []reply.Reply
}

func (r *replyRecorder) Send(rp reply.Reply) {
	r.replies = append(r.replies, rp)
}

func (r *replyRecorder) codes() []int {
	codes := make([]int, len(r.replies))
	for i, rp := range r.replies {
		codes[i] = rp.Code
	}
	return codes
}

// fakeTransport lets each test decide how (or whether) the data connection
// comes up.
type fakeTransport struct {
	open  func(ctx context.Context, d *data.Descriptor) (net.Conn, error)
	calls int
}

func (t *fakeTransport) Open(ctx context.Context, d *data.Descriptor) (net.Conn, error) {
	t.calls++
	return t.open(ctx, d)
}

// recordingStats verifies the engine's statistics hooks fire.
type recordingStats struct {
	uploads   []string
	transfers []string
	replies   []int
}

func (s *recordingStats) RecordUpload(user string, resource string, bytes int64) {
	s.uploads = append(s.uploads, user+":"+resource)
}

func (s *recordingStats) RecordTransfer(command string, duration time.Duration, outcome string) {
	s.transfers = append(s.transfers, command+":"+outcome)
}

func (s *recordingStats) RecordReply(command string, code int) {
	s.replies = append(s.replies, code)
}

func (s *recordingStats) SetActiveSessions(count int32) {}
func (s *recordingStats) RecordSessionOpened()          {}
func (s *recordingStats) RecordSessionClosed()          {}

func activeDescriptor() *data.Descriptor {
	return &data.Descriptor{
		Mode:     data.ModeActive,
		PeerAddr: &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 30000},
	}
}

// sendingTransport serves an upload: it writes payload to the engine's end
// and closes, as a client would after STOR/STOU.
func sendingTransport(payload string) *fakeTransport {
	return &fakeTransport{open: func(ctx context.Context, d *data.Descriptor) (net.Conn, error) {
		server, client := net.Pipe()
		go func() {
			client.Write([]byte(payload))
			client.Close()
		}()
		return server, nil
	}}
}

// receivingTransport serves a download: it drains the engine's end and
// delivers the bytes on received once its side sees EOF.
func receivingTransport(received chan<- []byte) *fakeTransport {
	return &fakeTransport{open: func(ctx context.Context, d *data.Descriptor) (net.Conn, error) {
		server, client := net.Pipe()
		go func() {
			b, _ := io.ReadAll(client)
			client.Close()
			received <- b
		}()
		return server, nil
	}}
}

func newTestSession(t *testing.T, view vfs.View, transport data.Transport) (*session.Session, *replyRecorder, *data.Manager) {
	t.Helper()
	rec := &replyRecorder{}
	mgr := data.NewManager(transport)
	s := session.New(session.Identity{Username: "anna"}, view, mgr, rec, "203.0.113.9")
	return s, rec, mgr
}

func TestListSendsListingAndReleases(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/hello.txt", []byte("hi"), 0644))
	require.NoError(t, afero.WriteFile(fs, "/world.txt", []byte("there"), 0644))

	received := make(chan []byte, 1)
	s, rec, mgr := newTestSession(t, vfs.NewAferoView(fs, false), receivingTransport(received))
	mgr.SetDescriptor(activeDescriptor())

	New(nil).List(context.Background(), s, "")

	require.Equal(t, []int{150, 226}, rec.codes())
	listing := string(<-received)
	assert.Contains(t, listing, "hello.txt")
	assert.Contains(t, listing, "world.txt")

	// Released on exit: descriptor consumed, connection closed.
	assert.False(t, mgr.HasDescriptor())
	assert.False(t, mgr.HasOpenConnection())
}

func TestTransferWithoutNegotiationRepliesBadSequence(t *testing.T) {
	tr := &fakeTransport{open: func(ctx context.Context, d *data.Descriptor) (net.Conn, error) {
		t.Fatal("transport must not be touched without a descriptor")
		return nil, nil
	}}
	s, rec, _ := newTestSession(t, vfs.NewAferoView(afero.NewMemMapFs(), false), tr)

	New(nil).List(context.Background(), s, "")

	require.Equal(t, []int{503}, rec.codes())
	assert.Equal(t, 0, tr.calls)
	assert.Contains(t, rec.replies[0].Message, "PORT or PASV")
}

func TestEstablishFailureRepliesCantOpen(t *testing.T) {
	tr := &fakeTransport{open: func(ctx context.Context, d *data.Descriptor) (net.Conn, error) {
		return nil, errors.New("connection refused")
	}}
	s, rec, mgr := newTestSession(t, vfs.NewAferoView(afero.NewMemMapFs(), false), tr)
	mgr.SetDescriptor(activeDescriptor())

	New(nil).List(context.Background(), s, "")

	// 150 was already on the wire; the failure reply follows it.
	require.Equal(t, []int{150, 425}, rec.codes())
	assert.False(t, mgr.HasDescriptor())
}

// abortConn fails every read the way a reset TCP connection does.
type abortConn struct {
	net.Conn
}

func (c abortConn) Read(p []byte) (int, error) {
	return 0, &net.OpError{Op: "read", Net: "tcp", Err: errors.New("connection reset by peer")}
}

func TestUploadAbortRepliesTransferAborted(t *testing.T) {
	tr := &fakeTransport{open: func(ctx context.Context, d *data.Descriptor) (net.Conn, error) {
		server, client := net.Pipe()
		go io.Copy(io.Discard, client)
		return abortConn{server}, nil
	}}
	fs := afero.NewMemMapFs()
	s, rec, mgr := newTestSession(t, vfs.NewAferoView(fs, false), tr)
	mgr.SetDescriptor(activeDescriptor())

	New(nil).Stor(context.Background(), s, "upload.bin")

	require.Equal(t, []int{150, 426}, rec.codes())
	assert.False(t, mgr.HasOpenConnection())
}

func TestStouAnnouncesNameAndStores(t *testing.T) {
	fs := afero.NewMemMapFs()
	stats := &recordingStats{}
	s, rec, mgr := newTestSession(t, vfs.NewAferoView(fs, false), sendingTransport("payload bytes"))
	mgr.SetDescriptor(activeDescriptor())

	New(stats).Stou(context.Background(), s, "")

	require.Equal(t, []int{150, 226}, rec.codes())
	assert.Equal(t, "FILE: /ftp.dat", rec.replies[0].Message)
	assert.Contains(t, rec.replies[1].Message, "/ftp.dat")

	content, err := afero.ReadFile(fs, "/ftp.dat")
	require.NoError(t, err)
	assert.Equal(t, "payload bytes", string(content))

	require.Len(t, stats.uploads, 1)
	assert.Equal(t, "anna:/ftp.dat", stats.uploads[0])
	assert.Contains(t, stats.transfers, "STOU:success")
}

func TestStouAvoidsExistingFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/ftp.dat", []byte("keep me"), 0644))

	s, rec, mgr := newTestSession(t, vfs.NewAferoView(fs, false), sendingTransport("fresh"))
	mgr.SetDescriptor(activeDescriptor())

	New(nil).Stou(context.Background(), s, "")

	require.Equal(t, []int{150, 226}, rec.codes())
	name := rec.replies[0].Message
	require.Greater(t, len(name), len("FILE: /ftp.dat."))
	assert.Contains(t, name, "FILE: /ftp.dat.")

	original, err := afero.ReadFile(fs, "/ftp.dat")
	require.NoError(t, err)
	assert.Equal(t, "keep me", string(original))

	stored, err := afero.ReadFile(fs, name[len("FILE: "):])
	require.NoError(t, err)
	assert.Equal(t, "fresh", string(stored))
}

func TestStouReadOnlyViewRepliesNotTaken(t *testing.T) {
	tr := &fakeTransport{open: func(ctx context.Context, d *data.Descriptor) (net.Conn, error) {
		t.Fatal("no data connection may be opened when the target is unwritable")
		return nil, nil
	}}
	s, rec, mgr := newTestSession(t, vfs.NewAferoView(afero.NewMemMapFs(), true), tr)
	mgr.SetDescriptor(activeDescriptor())

	New(nil).Stou(context.Background(), s, "")

	require.Equal(t, []int{550}, rec.codes())
	assert.Equal(t, 0, tr.calls)
}

func TestStorEmptyArgumentRepliesSyntaxError(t *testing.T) {
	s, rec, mgr := newTestSession(t, vfs.NewAferoView(afero.NewMemMapFs(), false), sendingTransport(""))
	mgr.SetDescriptor(activeDescriptor())

	New(nil).Stor(context.Background(), s, "")

	require.Equal(t, []int{501}, rec.codes())
}

func TestStorDirectoryTargetRepliesNotTaken(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/incoming", 0755))

	s, rec, mgr := newTestSession(t, vfs.NewAferoView(fs, false), sendingTransport(""))
	mgr.SetDescriptor(activeDescriptor())

	New(nil).Stor(context.Background(), s, "/incoming")

	require.Equal(t, []int{550}, rec.codes())
	assert.Contains(t, rec.replies[0].Message, "/incoming")
}

func TestStorStoresPayload(t *testing.T) {
	fs := afero.NewMemMapFs()
	s, rec, mgr := newTestSession(t, vfs.NewAferoView(fs, false), sendingTransport("stored data"))
	mgr.SetDescriptor(activeDescriptor())

	New(nil).Stor(context.Background(), s, "/report.txt")

	require.Equal(t, []int{150, 226}, rec.codes())
	assert.Contains(t, rec.replies[1].Message, "11 bytes")
	assert.Contains(t, rec.replies[1].Message, "/report.txt")

	content, err := afero.ReadFile(fs, "/report.txt")
	require.NoError(t, err)
	assert.Equal(t, "stored data", string(content))
}

func TestStorHonorsRestartOffset(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/data.bin", []byte("0123456789"), 0644))

	s, rec, mgr := newTestSession(t, vfs.NewAferoView(fs, false), sendingTransport("ABCD"))
	mgr.SetDescriptor(activeDescriptor())
	s.SetRestartOffset(4)

	New(nil).Stor(context.Background(), s, "/data.bin")

	require.Equal(t, []int{150, 226}, rec.codes())
	content, err := afero.ReadFile(fs, "/data.bin")
	require.NoError(t, err)
	assert.Equal(t, "0123ABCD89", string(content))

	// The offset applies to one transfer only.
	assert.Zero(t, s.RestartOffset())
}

func TestListIllegalFlagRepliesSyntaxError(t *testing.T) {
	received := make(chan []byte, 1)
	s, rec, mgr := newTestSession(t, vfs.NewAferoView(afero.NewMemMapFs(), false), receivingTransport(received))
	mgr.SetDescriptor(activeDescriptor())

	New(nil).List(context.Background(), s, "-q")

	require.Equal(t, []int{150, 501}, rec.codes())
	assert.Empty(t, <-received)
}

func TestNLSTSendsNamesOnly(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/a.txt", []byte("x"), 0644))

	received := make(chan []byte, 1)
	s, rec, mgr := newTestSession(t, vfs.NewAferoView(fs, false), receivingTransport(received))
	mgr.SetDescriptor(activeDescriptor())

	New(nil).NLST(context.Background(), s, "")

	require.Equal(t, []int{150, 226}, rec.codes())
	assert.Equal(t, "a.txt\r\n", string(<-received))
}

func TestDescriptorIsSingleUse(t *testing.T) {
	received := make(chan []byte, 2)
	s, rec, mgr := newTestSession(t, vfs.NewAferoView(afero.NewMemMapFs(), false), receivingTransport(received))
	mgr.SetDescriptor(activeDescriptor())

	e := New(nil)
	e.List(context.Background(), s, "")
	<-received
	e.List(context.Background(), s, "")

	// Second command finds no descriptor: a fresh PORT or PASV is required.
	require.Equal(t, []int{150, 226, 503}, rec.codes())
}

func TestReplyStatsRecordEveryReply(t *testing.T) {
	stats := &recordingStats{}
	received := make(chan []byte, 1)
	s, _, mgr := newTestSession(t, vfs.NewAferoView(afero.NewMemMapFs(), false), receivingTransport(received))
	mgr.SetDescriptor(activeDescriptor())

	New(stats).List(context.Background(), s, "")

	assert.Equal(t, []int{150, 226}, stats.replies)
	assert.Equal(t, []string{"LIST:success"}, stats.transfers)
}
