package logger

import "log/slog"

// Standard field keys for structured logging.
// Use these keys consistently across all log statements so that a session's
// control and data channel activity can be correlated in log aggregation.
const (
	// Session & client identification
	KeySessionID = "session_id" // Control-connection session identifier
	KeyClientIP  = "client_ip"  // Client IP address
	KeyUser      = "user"       // Authenticated username

	// Protocol & operation
	KeyCommand  = "command"  // FTP verb: LIST, NLST, STOR, STOU, PASV, ...
	KeyReply    = "reply"    // Numeric FTP reply code sent to the client
	KeyArgument = "argument" // Raw command argument

	// File system
	KeyPath  = "path"  // Resolved path within the share
	KeyShare = "share" // Share/root name

	// Data channel
	KeyDataMode = "data_mode"  // active or passive
	KeyDataAddr = "data_addr"  // Peer or listening address of the data channel
	KeyBytes    = "bytes"      // Bytes transferred over the data channel

	// Operation metadata
	KeyDurationMs = "duration_ms" // Operation duration in milliseconds
	KeyError      = "error"       // Error message
)

// Field constructors for type safety.

// SessionID returns a slog.Attr for the session identifier
func SessionID(id string) slog.Attr {
	return slog.String(KeySessionID, id)
}

// ClientIP returns a slog.Attr for the client IP address
func ClientIP(addr string) slog.Attr {
	return slog.String(KeyClientIP, addr)
}

// User returns a slog.Attr for the authenticated username
func User(name string) slog.Attr {
	return slog.String(KeyUser, name)
}

// Command returns a slog.Attr for the FTP verb
func Command(verb string) slog.Attr {
	return slog.String(KeyCommand, verb)
}

// ReplyCode returns a slog.Attr for the numeric reply code
func ReplyCode(code int) slog.Attr {
	return slog.Int(KeyReply, code)
}

// Path returns a slog.Attr for a resolved path
func Path(p string) slog.Attr {
	return slog.String(KeyPath, p)
}

// Share returns a slog.Attr for a share name
func Share(name string) slog.Attr {
	return slog.String(KeyShare, name)
}

// Bytes returns a slog.Attr for a transferred byte count
func Bytes(n int64) slog.Attr {
	return slog.Int64(KeyBytes, n)
}

// DurationMs returns a slog.Attr for duration in milliseconds
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err returns a slog.Attr for an error
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}
