// Package registry manages the server's named resources: the shares exported
// over FTP and the ephemeral set of live sessions. It provides thread-safe
// registration and lookup for both.
package registry

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/spf13/afero"
)

// Registry manages all named shares and tracks live sessions.
//
// Session information is ephemeral and kept in-memory only.
//
// Example usage:
//
//	reg := NewRegistry()
//	reg.AddShare(&ShareConfig{Name: "pub", Path: "/srv/ftp", ReadOnly: true})
//
//	share, _ := reg.GetShare("pub")
//	view := share.NewView()
type Registry struct {
	mu       sync.RWMutex
	base     afero.Fs
	shares   map[string]*Share
	sessions map[string]*SessionInfo // key: session ID
}

// SessionInfo represents one live control-connection session.
type SessionInfo struct {
	ID          string
	ClientAddr  string
	User        string
	Share       string
	ConnectedAt time.Time
}

// NewRegistry creates an empty registry backed by the host filesystem.
func NewRegistry() *Registry {
	return NewRegistryWithFs(afero.NewOsFs())
}

// NewRegistryWithFs creates an empty registry whose shares are rooted in fs.
// Tests pass an in-memory filesystem here.
func NewRegistryWithFs(fs afero.Fs) *Registry {
	return &Registry{
		base:     fs,
		shares:   make(map[string]*Share),
		sessions: make(map[string]*SessionInfo),
	}
}

// AddShare registers a new share. The backing directory must exist.
// Returns an error if a share with the same name already exists.
func (r *Registry) AddShare(config *ShareConfig) error {
	if config.Name == "" {
		return fmt.Errorf("cannot add share with empty name")
	}
	if config.Path == "" {
		return fmt.Errorf("cannot add share %q with empty path", config.Name)
	}

	info, err := r.base.Stat(config.Path)
	if err != nil {
		return fmt.Errorf("share %q: %w", config.Name, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("share %q: %s is not a directory", config.Name, config.Path)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.shares[config.Name]; exists {
		return fmt.Errorf("share %q already exists", config.Name)
	}

	r.shares[config.Name] = &Share{
		Name:     config.Name,
		Path:     config.Path,
		ReadOnly: config.ReadOnly,
		fs:       afero.NewBasePathFs(r.base, config.Path),
	}
	return nil
}

// GetShare returns the share with the given name.
func (r *Registry) GetShare(name string) (*Share, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	share, exists := r.shares[name]
	if !exists {
		return nil, fmt.Errorf("share %q not found", name)
	}
	return share, nil
}

// ListShares returns the names of all registered shares, sorted.
func (r *Registry) ListShares() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.shares))
	for name := range r.shares {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CountShares returns the number of registered shares.
func (r *Registry) CountShares() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.shares)
}

// RegisterSession records a live session.
func (r *Registry) RegisterSession(info *SessionInfo) error {
	if info == nil || info.ID == "" {
		return fmt.Errorf("cannot register session without an ID")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[info.ID]; exists {
		return fmt.Errorf("session %q already registered", info.ID)
	}
	r.sessions[info.ID] = info
	return nil
}

// UnregisterSession removes a session record. Unknown IDs are a no-op so the
// disconnect path never fails.
func (r *Registry) UnregisterSession(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// ListSessions returns a snapshot of all live sessions.
func (r *Registry) ListSessions() []SessionInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]SessionInfo, 0, len(r.sessions))
	for _, info := range r.sessions {
		out = append(out, *info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ConnectedAt.Before(out[j].ConnectedAt) })
	return out
}

// CountSessions returns the number of live sessions.
func (r *Registry) CountSessions() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
