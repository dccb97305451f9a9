package registry

import (
	"github.com/spf13/afero"

	"github.com/ftplab/ftpd/pkg/vfs"
)

// Share represents a configured share: a named directory tree exported over
// FTP. Each session gets its own view of the share so per-session state
// (working directory) never leaks between clients.
type Share struct {
	Name     string
	Path     string
	ReadOnly bool

	fs afero.Fs
}

// NewView creates a fresh session-scoped view rooted at the share.
func (s *Share) NewView() vfs.View {
	return vfs.NewAferoView(s.fs, s.ReadOnly)
}

// ShareConfig contains all configuration needed to create a share.
type ShareConfig struct {
	Name     string
	Path     string
	ReadOnly bool
}
