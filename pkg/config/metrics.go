package config

import (
	"fmt"
	"net/http"
	"time"

	"github.com/ftplab/ftpd/internal/logger"
	"github.com/ftplab/ftpd/pkg/metrics"
)

// MetricsResult carries the outcome of metrics initialization.
type MetricsResult struct {
	// Server is the HTTP server exposing /metrics, nil when disabled.
	Server *http.Server

	// FTPMetrics is the statistics collaborator for the FTP core, nil when
	// disabled.
	FTPMetrics metrics.FTPMetrics
}

// InitializeMetrics initializes the metrics registry and builds the metrics
// HTTP server when enabled. With metrics disabled it returns an empty result
// and every consumer receives nil collaborators.
//
// Must run before the components that record metrics are constructed, so
// that metrics.IsEnabled reports the right state.
func InitializeMetrics(cfg *Config) MetricsResult {
	if !cfg.Metrics.Enabled {
		return MetricsResult{}
	}

	metrics.InitRegistry()

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Metrics.Port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Debug("Metrics registry initialized", "port", cfg.Metrics.Port)

	return MetricsResult{
		Server:     server,
		FTPMetrics: metrics.NewFTPMetrics(),
	}
}
