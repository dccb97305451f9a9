// Package reply defines FTP reply codes (RFC 959), the Reply value sent on
// the control connection, and the pure translation from a transfer outcome
// to its terminal reply. The translator performs no I/O; emitting replies is
// the Writer's job.
package reply

import "fmt"

// Reply codes used by the transfer command core. The numeric values and
// their triggering conditions are wire-relevant and must match RFC 959.
const (
	CodeFileStatusOkay          = 150
	CodeClosingDataConnection   = 226
	CodeCantOpenDataConnection  = 425
	CodeTransferAborted         = 426
	CodeSyntaxError             = 501
	CodeBadSequence             = 503
	CodeRequestedActionNotTaken = 550
	CodeRequestedActionAborted  = 551
)

// Reply codes used by the control-connection front end.
const (
	CodeCommandOkay             = 200
	CodeSystemType              = 215
	CodeServiceReady            = 220
	CodeServiceClosing          = 221
	CodeEnteringPassive         = 227
	CodeEnteringExtendedPassive = 229
	CodeUserLoggedIn            = 230
	CodeFileActionCompleted     = 250
	CodePathnameCreated         = 257
	CodeFileActionPending       = 350
	CodeCommandUnrecognized     = 500
	CodeCommandNotImplemented   = 502
	CodeParameterNotImplemented = 504
)

// defaultText carries the RFC 959 wording for each code, used when no
// command-specific context is supplied.
var defaultText = map[int]string{
	CodeFileStatusOkay:          "File status okay; about to open data connection.",
	CodeClosingDataConnection:   "Closing data connection.",
	CodeCantOpenDataConnection:  "Can't open data connection.",
	CodeTransferAborted:         "Connection closed; transfer aborted.",
	CodeSyntaxError:             "Syntax error in parameters or arguments.",
	CodeBadSequence:             "Bad sequence of commands.",
	CodeRequestedActionNotTaken: "Requested action not taken.",
	CodeRequestedActionAborted:  "Requested action aborted: page type unknown.",
}

// Reply is a single control-connection reply: a three-digit code plus a
// human-readable line.
type Reply struct {
	Code    int
	Message string
}

// New builds a Reply with an explicit message.
func New(code int, message string) Reply {
	return Reply{Code: code, Message: message}
}

// Localized builds a Reply carrying the default RFC 959 wording for code.
func Localized(code int) Reply {
	msg, ok := defaultText[code]
	if !ok {
		msg = "Unknown reply."
	}
	return Reply{Code: code, Message: msg}
}

// String renders the reply as it appears on the wire, without the
// terminating CRLF.
func (r Reply) String() string {
	return fmt.Sprintf("%d %s", r.Code, r.Message)
}

// Writer is the session's ordered reply channel. Send is fire-and-forget;
// replies are delivered FIFO per the issuing command flow.
type Writer interface {
	Send(r Reply)
}

// OutcomeKind is the closed set of transfer outcomes, one per error class
// that can occur once the transfer step has started.
type OutcomeKind int

const (
	// OutcomeSuccess means the transfer completed; Bytes is valid.
	OutcomeSuccess OutcomeKind = iota

	// OutcomeConnectionAborted is a transport-level disconnect mid-transfer.
	OutcomeConnectionAborted

	// OutcomeIOFailure is any other I/O error mid-transfer.
	OutcomeIOFailure

	// OutcomeSyntaxError is an argument parsing failure (listing only).
	OutcomeSyntaxError

	// OutcomePreconditionFailed means the command never reached the
	// transfer step: missing descriptor, unresolvable target, or denied
	// permission. Reason carries the human-readable context.
	OutcomePreconditionFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeConnectionAborted:
		return "connection_aborted"
	case OutcomeIOFailure:
		return "io_failure"
	case OutcomeSyntaxError:
		return "syntax_error"
	case OutcomePreconditionFailed:
		return "precondition_failed"
	default:
		return "unknown"
	}
}

// Outcome is the result of the transfer step. Produced exactly once per
// command execution, consumed exactly once by ForOutcome.
type Outcome struct {
	Kind   OutcomeKind
	Bytes  int64  // valid when Kind == OutcomeSuccess
	Reason string // valid when Kind == OutcomePreconditionFailed
}

// Success builds a successful Outcome with the transferred byte count.
func Success(bytes int64) Outcome {
	return Outcome{Kind: OutcomeSuccess, Bytes: bytes}
}

// PreconditionFailed builds an Outcome for a command that never reached the
// transfer step.
func PreconditionFailed(reason string) Outcome {
	return Outcome{Kind: OutcomePreconditionFailed, Reason: reason}
}

// ForOutcome is the single decision point mapping a transfer outcome to its
// terminal reply. Pure function: (outcome, resource) -> reply.
//
// The resource name, when non-empty, is appended for success so clients see
// which file the transfer affected.
func ForOutcome(o Outcome, resource string) Reply {
	switch o.Kind {
	case OutcomeSuccess:
		if resource != "" {
			return New(CodeClosingDataConnection,
				fmt.Sprintf("Closing data connection; transferred %d bytes for %s.", o.Bytes, resource))
		}
		return Localized(CodeClosingDataConnection)
	case OutcomeConnectionAborted:
		return Localized(CodeTransferAborted)
	case OutcomeIOFailure:
		return Localized(CodeRequestedActionAborted)
	case OutcomeSyntaxError:
		return Localized(CodeSyntaxError)
	case OutcomePreconditionFailed:
		if o.Reason != "" {
			return New(CodeRequestedActionNotTaken, o.Reason)
		}
		return Localized(CodeRequestedActionNotTaken)
	default:
		return Localized(CodeRequestedActionAborted)
	}
}
