package data

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ftplab/ftpd/internal/logger"
)

var (
	// ErrNoDescriptor means no PORT or PASV preceded the transfer
	// command. A protocol-sequencing error: the caller replies 503 and
	// never touches the transport.
	ErrNoDescriptor = errors.New("data: no data connection descriptor negotiated")

	// ErrConnectionUnavailable means the descriptor was valid but the
	// transport could not establish the connection. The caller replies 425.
	ErrConnectionUnavailable = errors.New("data: can't open data connection")

	// ErrDescriptorConsumed means the descriptor already produced its one
	// connection. Reuse across two commands without a fresh PORT/PASV is
	// forbidden.
	ErrDescriptorConsumed = errors.New("data: descriptor already consumed")
)

// Manager owns establishment, single-use semantics and guaranteed teardown
// of the data connection for one session. It is the only entry/exit point
// for data connections, which prevents leaked sockets and enforces
// at-most-one-use.
//
// A Manager is used by a single session flow at a time; the mutex guards
// against Close racing a concurrent session shutdown.
type Manager struct {
	mu        sync.Mutex
	transport Transport
	desc      *Descriptor
	conn      *Conn
	consumed  bool
}

// NewManager creates a Manager establishing connections through transport.
func NewManager(transport Transport) *Manager {
	return &Manager{transport: transport}
}

// SetDescriptor installs the descriptor negotiated by PORT or PASV,
// invalidating and releasing the previous one.
func (m *Manager) SetDescriptor(d *Descriptor) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.teardownLocked(context.Background())
	m.desc = d
	m.consumed = false
}

// HasDescriptor reports whether a valid, unconsumed descriptor is present.
// This is the transfer-command precondition check.
func (m *Manager) HasDescriptor() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.desc.Ready() && !m.consumed
}

// Descriptor returns the current descriptor, or nil.
func (m *Manager) Descriptor() *Descriptor {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.desc
}

// Open establishes the data connection from the current descriptor and
// marks it consumed. Fails with ErrNoDescriptor when no valid descriptor
// exists, ErrDescriptorConsumed on reuse, and ErrConnectionUnavailable
// (wrapping the transport error) when establishment fails.
func (m *Manager) Open(ctx context.Context) (*Conn, error) {
	m.mu.Lock()
	if !m.desc.Ready() {
		m.mu.Unlock()
		return nil, ErrNoDescriptor
	}
	if m.consumed {
		m.mu.Unlock()
		return nil, ErrDescriptorConsumed
	}
	m.consumed = true
	desc := m.desc
	m.mu.Unlock()

	// Establish outside the lock: accept/dial may block and Close must
	// stay callable to abort it.
	nc, err := m.transport.Open(ctx, desc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionUnavailable, err)
	}

	conn := newConn(nc)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.conn = conn
	return conn, nil
}

// HasOpenConnection reports whether a data connection is currently open.
func (m *Manager) HasOpenConnection() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conn != nil
}

// Close unconditionally tears down any open or half-open data connection
// and invalidates the descriptor. Idempotent: calling it when nothing is
// open is a no-op. It must run on every command-execution exit path; a
// teardown failure is logged but never alters the reply already sent.
func (m *Manager) Close(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.teardownLocked(ctx)
}

func (m *Manager) teardownLocked(ctx context.Context) {
	if m.conn != nil {
		if err := m.conn.Close(); err != nil {
			logger.WarnCtx(ctx, "failed to close data connection", logger.KeyError, err.Error())
		}
		m.conn = nil
	}
	if m.desc != nil {
		m.desc.release()
		m.desc = nil
	}
	m.consumed = false
}
