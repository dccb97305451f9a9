// Package ftp implements the FTP control-connection front end: it accepts
// control connections, negotiates data-connection modes (PORT, PASV, EPSV)
// and hands transfer commands to the engine. Authentication happens before a
// session reaches the transfer core; the USER command here only binds the
// session to a share and an identity.
package ftp

import (
	"context"
	"net"
	"time"

	"github.com/ftplab/ftpd/internal/ftp/engine"
	"github.com/ftplab/ftpd/pkg/adapter"
	"github.com/ftplab/ftpd/pkg/config"
	"github.com/ftplab/ftpd/pkg/metrics"
	"github.com/ftplab/ftpd/pkg/registry"
)

// Adapter is the FTP protocol adapter. It embeds the shared TCP lifecycle
// and adds FTP-specific connection handling.
type Adapter struct {
	*adapter.BaseAdapter

	cfg      config.ServerConfig
	registry *registry.Registry
	engine   *engine.Engine
}

// NewAdapter creates an FTP adapter serving the registry's shares.
func NewAdapter(
	cfg config.ServerConfig,
	shutdownTimeout time.Duration,
	reg *registry.Registry,
	eng *engine.Engine,
	stats metrics.FTPMetrics,
) *Adapter {
	base := adapter.NewBaseAdapter(adapter.BaseConfig{
		ListenAddr:      cfg.ListenAddr,
		ShutdownTimeout: shutdownTimeout,
	}, "FTP")
	if stats != nil {
		base.Stats = stats
	}

	return &Adapter{
		BaseAdapter: base,
		cfg:         cfg,
		registry:    reg,
		engine:      eng,
	}
}

// Serve runs the accept loop until ctx is cancelled.
func (a *Adapter) Serve(ctx context.Context) error {
	return a.ServeWithFactory(ctx, a)
}

// NewConnection implements adapter.ConnectionFactory.
func (a *Adapter) NewConnection(conn net.Conn) adapter.ConnectionHandler {
	return newConnection(conn, a)
}

// defaultShare returns the share a session starts in: the first share in
// name order. The registry guarantees at least one share at startup.
func (a *Adapter) defaultShare() (*registry.Share, error) {
	names := a.registry.ListShares()
	if len(names) == 0 {
		return nil, errNoShares
	}
	return a.registry.GetShare(names[0])
}
