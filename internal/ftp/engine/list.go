package engine

import (
	"context"
	"errors"
	"time"

	"github.com/ftplab/ftpd/internal/ftp/data"
	"github.com/ftplab/ftpd/internal/ftp/listing"
	"github.com/ftplab/ftpd/internal/ftp/reply"
	"github.com/ftplab/ftpd/internal/ftp/session"
	"github.com/ftplab/ftpd/internal/logger"
)

// List executes the LIST command: send a long-format listing of the
// argument's target (or the current directory) over the data connection.
func (e *Engine) List(ctx context.Context, s *session.Session, rawArg string) {
	e.runListing(ctx, s, "LIST", rawArg, listing.LongFormatter)
}

// NLST executes the NLST command: names only, unless -l asks for long
// format.
func (e *Engine) NLST(ctx context.Context, s *session.Session, rawArg string) {
	e.runListing(ctx, s, "NLST", rawArg, listing.NameOnlyFormatter)
}

// runListing drives the shared listing state machine for LIST and NLST.
func (e *Engine) runListing(ctx context.Context, s *session.Session, command, rawArg string, formatter listing.Formatter) {
	ctx = commandContext(ctx, s, command)
	start := time.Now()

	// Release on every exit path, including ones before acquire (no-op
	// there).
	defer s.Data().Close(ctx)

	s.ResetTransientState()

	if !e.checkDescriptor(ctx, s, command) {
		return
	}

	e.send(ctx, s, command, reply.Localized(reply.CodeFileStatusOkay))

	conn := e.acquire(ctx, s, command)
	if conn == nil {
		return
	}

	outcome := e.transferListing(ctx, s, conn, rawArg, formatter)
	// Listing replies carry no resource context, matching RFC 959 usage.
	e.finalize(ctx, s, command, "", start, outcome)
}

// transferListing parses the argument, assembles the listing and streams it
// to the client, mapping every failure mode to its outcome kind.
func (e *Engine) transferListing(ctx context.Context, s *session.Session, conn *data.Conn, rawArg string, formatter listing.Formatter) reply.Outcome {
	parsed, err := listing.Parse(rawArg)
	if err != nil {
		// Pure input-validation failure: the already-open connection is
		// torn down by release, but no connection-level error reply is
		// layered on top of the 501.
		logger.DebugCtx(ctx, "illegal listing argument",
			logger.KeyArgument, rawArg,
			logger.KeyError, err.Error())
		return reply.Outcome{Kind: reply.OutcomeSyntaxError}
	}

	// NLST -l upgrades to long format.
	if parsed.LongFormat {
		formatter = listing.LongFormatter
	}

	stream, err := listing.List(parsed, s.View(), formatter)
	if err != nil {
		if errors.Is(err, listing.ErrIllegalArgument) {
			return reply.Outcome{Kind: reply.OutcomeSyntaxError}
		}
		logger.DebugCtx(ctx, "listing assembly failed",
			logger.KeyPath, parsed.Path,
			logger.KeyError, err.Error())
		return reply.Outcome{Kind: reply.OutcomeIOFailure}
	}

	n, err := conn.SendAll(stream)
	if err != nil {
		logger.DebugCtx(ctx, "error while sending listing", logger.KeyError, err.Error())
		return classifyTransferErr(err)
	}

	logger.InfoCtx(ctx, "listing sent", logger.KeyBytes, n)
	return reply.Success(n)
}
