// Package vfs provides the user-scoped file-hierarchy view consumed by the
// FTP transfer engine. A View resolves client-supplied paths into Handles;
// a Handle answers existence, type and permission queries and opens streams.
//
// Views are backed by afero, so a share can be rooted anywhere on the real
// filesystem (afero.NewBasePathFs) or live entirely in memory for tests
// (afero.NewMemMapFs). The engine never touches the filesystem directly.
package vfs

import (
	"errors"
	"io"
	"os"
	"time"
)

// ErrNotResolvable is returned by View.Resolve when the argument cannot be
// mapped to a location inside the view, for example because it escapes the
// share root. It is distinct from "resolves to a non-existing file", which is
// a valid Handle with Exists() == false.
var ErrNotResolvable = errors.New("vfs: path cannot be resolved in this view")

// EntryInfo describes a single file or directory for listing output.
type EntryInfo struct {
	Name      string      // Base name
	FullName  string      // Absolute path within the view
	IsDir     bool        //
	Size      int64       // Size in bytes; 0 for directories
	Mode      os.FileMode //
	ModTime   time.Time   //
	Owner     string      // Display owner for long listings
	Group     string      // Display group for long listings
	LinkCount int         // Display link count for long listings
}

// View is a read-mostly file-hierarchy view scoped to one authenticated
// user's root. Many sessions may read a view concurrently; the view supplies
// its own consistency guarantees.
type View interface {
	// Resolve maps a client path (absolute or relative to the working
	// directory) to a Handle. The returned Handle may refer to a
	// non-existing file; that is not an error. Resolve fails with
	// ErrNotResolvable when the path is malformed or escapes the view.
	Resolve(path string) (Handle, error)

	// WorkingDir returns the current working directory of the view,
	// always absolute and slash-separated.
	WorkingDir() string
}

// Handle is an abstract reference to a file or directory within a View.
// Handles are cheap values; they hold no open file descriptors.
type Handle interface {
	// FullName is the absolute, slash-separated path within the view.
	FullName() string

	// Name is the base name of the resource.
	Name() string

	// Exists reports whether the resource currently exists.
	Exists() bool

	// IsDir reports whether the resource exists and is a directory.
	IsDir() bool

	// HasWritePermission reports whether the resource may be written.
	// For a non-existing resource this answers for its creation.
	HasWritePermission() bool

	// Info returns listing metadata for the resource.
	// Fails if the resource does not exist.
	Info() (EntryInfo, error)

	// ListDir enumerates the immediate entries of a directory,
	// sorted by name. Fails if the resource is not a directory.
	ListDir() ([]EntryInfo, error)

	// OpenRead opens the resource for reading starting at offset.
	OpenRead(offset int64) (io.ReadCloser, error)

	// OpenWrite opens the resource for writing starting at offset,
	// creating it if necessary. Offset 0 truncates.
	OpenWrite(offset int64) (io.WriteCloser, error)
}
