// Package prometheus provides the Prometheus implementation of the metrics
// interfaces. Importing it (for side effects) registers the constructors
// with pkg/metrics.
package prometheus

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ftplab/ftpd/pkg/metrics"
)

func init() {
	metrics.RegisterFTPMetricsConstructor(NewFTPMetrics)
}

// ftpMetrics is the Prometheus implementation of metrics.FTPMetrics.
type ftpMetrics struct {
	uploadBytes      *prometheus.CounterVec
	uploadsTotal     *prometheus.CounterVec
	transferDuration *prometheus.HistogramVec
	transfersTotal   *prometheus.CounterVec
	repliesTotal     *prometheus.CounterVec
	activeSessions   prometheus.Gauge
	sessionsOpened   prometheus.Counter
	sessionsClosed   prometheus.Counter
}

// NewFTPMetrics creates a new Prometheus-backed FTPMetrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewFTPMetrics() metrics.FTPMetrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &ftpMetrics{
		uploadBytes: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "ftpd_upload_bytes_total",
				Help: "Total bytes received in successful uploads by user",
			},
			[]string{"user"},
		),
		uploadsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "ftpd_uploads_total",
				Help: "Total successful uploads by user",
			},
			[]string{"user"},
		),
		transferDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "ftpd_transfer_duration_seconds",
				Help: "Duration of transfer commands by verb and outcome",
				Buckets: []float64{
					0.001, // 1ms - empty listings
					0.01,  // 10ms
					0.1,   // 100ms
					0.5,   // 500ms
					1,     // 1s
					5,     // 5s
					30,    // 30s - large uploads
					120,   // 2m
				},
			},
			[]string{"command", "outcome"},
		),
		transfersTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "ftpd_transfers_total",
				Help: "Total transfer commands by verb and outcome",
			},
			[]string{"command", "outcome"},
		),
		repliesTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "ftpd_replies_total",
				Help: "Total control-connection replies by verb and code",
			},
			[]string{"command", "code"},
		),
		activeSessions: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "ftpd_active_sessions",
				Help: "Current number of active control-connection sessions",
			},
		),
		sessionsOpened: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "ftpd_sessions_opened_total",
				Help: "Total control-connection sessions accepted",
			},
		),
		sessionsClosed: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "ftpd_sessions_closed_total",
				Help: "Total control-connection sessions closed",
			},
		),
	}
}

func (m *ftpMetrics) RecordUpload(user string, resource string, bytes int64) {
	m.uploadBytes.WithLabelValues(user).Add(float64(bytes))
	m.uploadsTotal.WithLabelValues(user).Inc()
}

func (m *ftpMetrics) RecordTransfer(command string, duration time.Duration, outcome string) {
	m.transferDuration.WithLabelValues(command, outcome).Observe(duration.Seconds())
	m.transfersTotal.WithLabelValues(command, outcome).Inc()
}

func (m *ftpMetrics) RecordReply(command string, code int) {
	m.repliesTotal.WithLabelValues(command, strconv.Itoa(code)).Inc()
}

func (m *ftpMetrics) SetActiveSessions(count int32) {
	m.activeSessions.Set(float64(count))
}

func (m *ftpMetrics) RecordSessionOpened() {
	m.sessionsOpened.Inc()
}

func (m *ftpMetrics) RecordSessionClosed() {
	m.sessionsClosed.Inc()
}
