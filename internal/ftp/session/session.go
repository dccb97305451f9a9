// Package session holds the per-client state consulted and mutated by every
// FTP command: the negotiated data-connection state, transfer flags, the
// user-scoped hierarchy view and the ordered reply channel.
package session

import (
	"github.com/google/uuid"

	"github.com/ftplab/ftpd/internal/ftp/data"
	"github.com/ftplab/ftpd/internal/ftp/reply"
	"github.com/ftplab/ftpd/internal/logger"
	"github.com/ftplab/ftpd/pkg/vfs"
)

// TransferType is the FTP representation type negotiated by TYPE.
type TransferType byte

const (
	TypeASCII TransferType = 'A'
	TypeImage TransferType = 'I'
)

// Identity names the authenticated principal behind a session.
// Authentication itself happens before the session reaches this core.
type Identity struct {
	Username string
}

// Session is the per-client state. It lives from client connect to
// disconnect or logout. A session executes one command at a time by
// protocol design, so its fields need no locking; the data.Manager guards
// its own state for teardown races.
type Session struct {
	id       string
	clientIP string
	identity Identity
	view     vfs.View
	dataMgr  *data.Manager
	replyW   reply.Writer

	transferType TransferType

	// Transient command state, cleared by ResetTransientState.
	restartOffset int64
	renameFrom    string
}

// New creates a session for an authenticated client.
func New(identity Identity, view vfs.View, dataMgr *data.Manager, replyW reply.Writer, clientIP string) *Session {
	return &Session{
		id:           uuid.NewString(),
		clientIP:     clientIP,
		identity:     identity,
		view:         view,
		dataMgr:      dataMgr,
		replyW:       replyW,
		transferType: TypeASCII,
	}
}

// ID returns the session's unique identifier.
func (s *Session) ID() string { return s.id }

// ClientIP returns the client's address for logging.
func (s *Session) ClientIP() string { return s.clientIP }

// Identity returns the authenticated principal.
func (s *Session) Identity() Identity { return s.identity }

// View returns the user-scoped hierarchy view.
func (s *Session) View() vfs.View { return s.view }

// Data returns the data-connection lifecycle manager owned by this session.
func (s *Session) Data() *data.Manager { return s.dataMgr }

// Reply returns the ordered reply channel for the control connection.
func (s *Session) Reply() reply.Writer { return s.replyW }

// TransferType returns the negotiated representation type.
func (s *Session) TransferType() TransferType { return s.transferType }

// SetTransferType records the representation type negotiated by TYPE.
func (s *Session) SetTransferType(t TransferType) { s.transferType = t }

// RestartOffset returns the offset set by a prior REST command.
func (s *Session) RestartOffset() int64 { return s.restartOffset }

// SetRestartOffset records a restart offset for the next transfer.
func (s *Session) SetRestartOffset(off int64) { s.restartOffset = off }

// RenameFrom returns the source path recorded by a prior RNFR command.
func (s *Session) RenameFrom() string { return s.renameFrom }

// SetRenameFrom records the rename source path.
func (s *Session) SetRenameFrom(path string) { s.renameFrom = path }

// ResetTransientState clears transient transfer flags (rename targets,
// restart offsets) while preserving the negotiated data-connection mode.
// Reset-state commands call this first.
func (s *Session) ResetTransientState() {
	s.restartOffset = 0
	s.renameFrom = ""
}

// LogContext builds the logging context for this session.
func (s *Session) LogContext() *logger.LogContext {
	lc := logger.NewLogContext(s.id, s.clientIP)
	return lc.WithUser(s.identity.Username)
}
