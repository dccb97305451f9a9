// Package engine implements the FTP transfer command engine: the state
// machine that validates command preconditions, drives a byte transfer over
// the session's data connection, interprets failures, emits ordered replies
// and always releases the data connection.
//
// Every command execution follows the same strictly sequential states:
// precondition check (503), announce (150), acquire (425), execute
// (426/551/501), finalize (226), release. Each state either advances or
// terminates with exactly one terminal reply; the release step runs on
// every exit path.
package engine

import (
	"context"
	"time"

	"github.com/ftplab/ftpd/internal/ftp/data"
	"github.com/ftplab/ftpd/internal/ftp/reply"
	"github.com/ftplab/ftpd/internal/ftp/session"
	"github.com/ftplab/ftpd/internal/logger"
	"github.com/ftplab/ftpd/pkg/metrics"
)

// Engine orchestrates transfer command execution. It is stateless across
// invocations; all per-client state lives in the session. One Engine
// serves all sessions concurrently.
type Engine struct {
	stats metrics.FTPMetrics // nil disables statistics
}

// New creates an Engine reporting to stats. Pass nil to disable statistics.
func New(stats metrics.FTPMetrics) *Engine {
	return &Engine{stats: stats}
}

// send emits one reply on the session's control channel, in order.
func (e *Engine) send(ctx context.Context, s *session.Session, command string, r reply.Reply) {
	s.Reply().Send(r)
	if e.stats != nil {
		e.stats.RecordReply(command, r.Code)
	}
	logger.DebugCtx(ctx, "reply sent", logger.KeyReply, r.Code)
}

// finalize consumes the transfer outcome exactly once: it sends the
// terminal reply selected by the translator and records the transfer.
func (e *Engine) finalize(ctx context.Context, s *session.Session, command, resource string, start time.Time, o reply.Outcome) {
	e.send(ctx, s, command, reply.ForOutcome(o, resource))
	if e.stats != nil {
		e.stats.RecordTransfer(command, time.Since(start), o.Kind.String())
	}
	if o.Kind != reply.OutcomeSuccess {
		logger.WarnCtx(ctx, "transfer failed",
			logger.KeyPath, resource,
			"outcome", o.Kind.String())
	}
}

// checkDescriptor is the protocol-sequencing precondition shared by all
// transfer commands: a data-connection mode must have been negotiated via
// PORT or PASV. On failure it sends 503 and reports false; no data
// connection is touched.
func (e *Engine) checkDescriptor(ctx context.Context, s *session.Session, command string) bool {
	if s.Data().HasDescriptor() {
		return true
	}
	logger.DebugCtx(ctx, "transfer command without negotiated data connection")
	e.send(ctx, s, command, reply.New(reply.CodeBadSequence, "PORT or PASV must be issued first"))
	return false
}

// acquire opens the data connection from the session's descriptor. On
// failure it sends 425 and reports nil; the caller terminates.
func (e *Engine) acquire(ctx context.Context, s *session.Session, command string) *data.Conn {
	conn, err := s.Data().Open(ctx)
	if err != nil {
		logger.DebugCtx(ctx, "failed to open data connection", logger.KeyError, err.Error())
		e.send(ctx, s, command, reply.Localized(reply.CodeCantOpenDataConnection))
		return nil
	}
	logger.DebugCtx(ctx, "data connection open", logger.KeyDataAddr, conn.RemoteAddr())
	return conn
}

// classifyTransferErr maps a mid-transfer error to its outcome kind:
// transport-level disconnects are first-class aborts (426), anything else
// is an I/O failure (551).
func classifyTransferErr(err error) reply.Outcome {
	if data.IsAbort(err) {
		return reply.Outcome{Kind: reply.OutcomeConnectionAborted}
	}
	return reply.Outcome{Kind: reply.OutcomeIOFailure}
}

// commandContext derives the logging context for one command invocation.
func commandContext(ctx context.Context, s *session.Session, command string) context.Context {
	return logger.WithContext(ctx, s.LogContext().WithCommand(command))
}
