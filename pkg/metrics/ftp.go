package metrics

import "time"

// FTPMetrics provides observability for the FTP transfer command core.
//
// This is the statistics collaborator of the transfer engine: RecordUpload
// is called once per successful upload with the byte count and the affected
// resource. The remaining methods cover reply and session accounting.
//
// Implementations must tolerate concurrent calls from many sessions.
// This interface is optional - pass nil to disable metrics collection.
type FTPMetrics interface {
	// RecordUpload records a completed upload: the acting user, the
	// resource written, and the bytes transferred. Called only on
	// success.
	RecordUpload(user string, resource string, bytes int64)

	// RecordTransfer records a completed transfer command with its verb,
	// duration and outcome label (success, connection_aborted, ...).
	RecordTransfer(command string, duration time.Duration, outcome string)

	// RecordReply counts a reply code sent on a control connection.
	RecordReply(command string, code int)

	// SetActiveSessions updates the current session count.
	SetActiveSessions(count int32)

	// RecordSessionOpened increments the total accepted sessions counter.
	RecordSessionOpened()

	// RecordSessionClosed increments the total closed sessions counter.
	RecordSessionClosed()
}

// NewFTPMetrics creates a Prometheus-backed FTPMetrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called), in
// which case callers pass nil through and collection is skipped entirely.
func NewFTPMetrics() FTPMetrics {
	if !IsEnabled() {
		return nil
	}
	return newPrometheusFTPMetrics()
}

// newPrometheusFTPMetrics is implemented in pkg/metrics/prometheus.
// The indirection avoids an import cycle while keeping the API clean.
var newPrometheusFTPMetrics func() FTPMetrics

// RegisterFTPMetricsConstructor registers the Prometheus FTP metrics
// constructor. Called by pkg/metrics/prometheus during package init.
func RegisterFTPMetricsConstructor(constructor func() FTPMetrics) {
	newPrometheusFTPMetrics = constructor
}
