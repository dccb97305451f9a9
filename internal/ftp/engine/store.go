package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/ftplab/ftpd/internal/ftp/data"
	"github.com/ftplab/ftpd/internal/ftp/reply"
	"github.com/ftplab/ftpd/internal/ftp/session"
	"github.com/ftplab/ftpd/internal/logger"
	"github.com/ftplab/ftpd/pkg/vfs"
)

// Stor executes the STOR command: receive the client's data stream into the
// named resource, honoring a restart offset from a prior REST.
func (e *Engine) Stor(ctx context.Context, s *session.Session, rawArg string) {
	ctx = commandContext(ctx, s, "STOR")
	start := time.Now()

	defer s.Data().Close(ctx)

	// Capture the restart offset before reset clears it.
	offset := s.RestartOffset()
	s.ResetTransientState()

	if rawArg == "" {
		e.send(ctx, s, "STOR", reply.Localized(reply.CodeSyntaxError))
		return
	}

	if !e.checkDescriptor(ctx, s, "STOR") {
		return
	}

	target, err := s.View().Resolve(rawArg)
	if err != nil {
		e.send(ctx, s, "STOR", reply.New(reply.CodeRequestedActionNotTaken,
			fmt.Sprintf("%s: not a valid file name.", rawArg)))
		return
	}
	if target.IsDir() {
		e.send(ctx, s, "STOR", reply.New(reply.CodeRequestedActionNotTaken,
			fmt.Sprintf("%s: is a directory.", target.FullName())))
		return
	}
	if !target.HasWritePermission() {
		e.send(ctx, s, "STOR", reply.New(reply.CodeRequestedActionNotTaken,
			fmt.Sprintf("%s: no write permission.", target.FullName())))
		return
	}

	e.send(ctx, s, "STOR", reply.Localized(reply.CodeFileStatusOkay))

	conn := e.acquire(ctx, s, "STOR")
	if conn == nil {
		return
	}

	outcome := e.transferUpload(ctx, s, conn, target, offset)
	e.finalize(ctx, s, "STOR", target.FullName(), start, outcome)
}

// Stou executes the STOU command: like STOR, but the resultant file is
// created under a name unique to the target directory, and the 150 reply
// announces the generated name (RFC 1123 section 4.1.2.9).
func (e *Engine) Stou(ctx context.Context, s *session.Session, rawArg string) {
	ctx = commandContext(ctx, s, "STOU")
	start := time.Now()

	defer s.Data().Close(ctx)

	s.ResetTransientState()

	if !e.checkDescriptor(ctx, s, "STOU") {
		return
	}

	// Resolve the unique target before announcing; resolution or
	// permission failures terminate without opening a data connection.
	target, err := UniqueIn(s.View(), rawArg)
	if err != nil {
		logger.DebugCtx(ctx, "unique name derivation failed", logger.KeyError, err.Error())
		e.send(ctx, s, "STOU", reply.Localized(reply.CodeRequestedActionNotTaken))
		return
	}
	if !target.HasWritePermission() {
		e.send(ctx, s, "STOU", reply.New(reply.CodeRequestedActionNotTaken,
			fmt.Sprintf("%s: no write permission.", target.FullName())))
		return
	}

	e.send(ctx, s, "STOU", reply.New(reply.CodeFileStatusOkay, "FILE: "+target.FullName()))

	conn := e.acquire(ctx, s, "STOU")
	if conn == nil {
		return
	}

	outcome := e.transferUpload(ctx, s, conn, target, 0)
	e.finalize(ctx, s, "STOU", target.FullName(), start, outcome)
}

// transferUpload streams the client's data into the target resource. On
// success it notifies the statistics collaborator and records the upload in
// the operational log; failures are classified into the outcome taxonomy.
// No rollback is performed on failure: the partially-written resource is
// left in whatever state the hierarchy view leaves it.
func (e *Engine) transferUpload(ctx context.Context, s *session.Session, conn *data.Conn, target vfs.Handle, offset int64) reply.Outcome {
	sink, err := target.OpenWrite(offset)
	if err != nil {
		logger.DebugCtx(ctx, "failed to open upload sink",
			logger.KeyPath, target.FullName(),
			logger.KeyError, err.Error())
		return reply.Outcome{Kind: reply.OutcomeIOFailure}
	}

	n, err := conn.ReceiveAll(sink)
	if closeErr := sink.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	if err != nil {
		logger.DebugCtx(ctx, "error during upload transfer",
			logger.KeyPath, target.FullName(),
			logger.KeyBytes, n,
			logger.KeyError, err.Error())
		return classifyTransferErr(err)
	}

	logger.InfoCtx(ctx, "file upload",
		logger.KeyPath, target.FullName(),
		logger.KeyBytes, n)
	if e.stats != nil {
		e.stats.RecordUpload(s.Identity().Username, target.FullName(), n)
	}

	return reply.Success(n)
}
