package vfs

import (
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// Display owner/group for long listings. The view does not map real system
// identities; listings always show the share owner.
const (
	defaultOwner = "ftp"
	defaultGroup = "ftp"
)

// AferoView implements View on top of an afero filesystem.
//
// The filesystem passed in is treated as the user's root: "/" in client
// paths means the root of that filesystem. Wrap an OsFs with
// afero.NewBasePathFs to scope a view to a directory on disk.
type AferoView struct {
	fs       afero.Fs
	cwd      string
	readOnly bool
	owner    string
	group    string
}

// NewAferoView creates a view over fs with the working directory at "/".
func NewAferoView(fs afero.Fs, readOnly bool) *AferoView {
	return &AferoView{
		fs:       fs,
		cwd:      "/",
		readOnly: readOnly,
		owner:    defaultOwner,
		group:    defaultGroup,
	}
}

// NewOsView creates a view rooted at dir on the host filesystem.
func NewOsView(dir string, readOnly bool) *AferoView {
	return NewAferoView(afero.NewBasePathFs(afero.NewOsFs(), dir), readOnly)
}

// WorkingDir returns the current working directory.
func (v *AferoView) WorkingDir() string {
	return v.cwd
}

// ChangeDir moves the working directory. The target must exist and be a
// directory.
func (v *AferoView) ChangeDir(p string) error {
	abs, err := v.normalize(p)
	if err != nil {
		return err
	}
	info, err := v.fs.Stat(abs)
	if err != nil {
		return fmt.Errorf("vfs: stat %s: %w", abs, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("vfs: %s is not a directory", abs)
	}
	v.cwd = abs
	return nil
}

// Rename moves a resource from oldPath to newPath within the view.
func (v *AferoView) Rename(oldPath, newPath string) error {
	if v.readOnly {
		return fmt.Errorf("vfs: rename %s: read-only view", oldPath)
	}
	oldAbs, err := v.normalize(oldPath)
	if err != nil {
		return err
	}
	newAbs, err := v.normalize(newPath)
	if err != nil {
		return err
	}
	if err := v.fs.Rename(oldAbs, newAbs); err != nil {
		return fmt.Errorf("vfs: rename %s to %s: %w", oldAbs, newAbs, err)
	}
	return nil
}

// Remove deletes a file within the view. Directories are refused.
func (v *AferoView) Remove(p string) error {
	if v.readOnly {
		return fmt.Errorf("vfs: remove %s: read-only view", p)
	}
	abs, err := v.normalize(p)
	if err != nil {
		return err
	}
	info, err := v.fs.Stat(abs)
	if err != nil {
		return fmt.Errorf("vfs: stat %s: %w", abs, err)
	}
	if info.IsDir() {
		return fmt.Errorf("vfs: %s is a directory", abs)
	}
	if err := v.fs.Remove(abs); err != nil {
		return fmt.Errorf("vfs: remove %s: %w", abs, err)
	}
	return nil
}

// Resolve maps a client path to a Handle.
func (v *AferoView) Resolve(p string) (Handle, error) {
	abs, err := v.normalize(p)
	if err != nil {
		return nil, err
	}
	return &aferoHandle{view: v, path: abs}, nil
}

// normalize turns a client path into an absolute, cleaned path within the
// view. Relative paths are resolved against the working directory. ".."
// components are collapsed by path.Clean, so a path can never climb above
// the view root; it is contained instead.
func (v *AferoView) normalize(p string) (string, error) {
	if strings.ContainsRune(p, 0) {
		return "", ErrNotResolvable
	}
	if p == "" {
		return v.cwd, nil
	}
	if !strings.HasPrefix(p, "/") {
		p = path.Join(v.cwd, p)
	}
	abs := path.Clean(p)
	if abs == "." {
		abs = "/"
	}
	return abs, nil
}

// aferoHandle implements Handle. It holds no open descriptors; every query
// stats the backing filesystem so that Exists answers at the moment of the
// check.
type aferoHandle struct {
	view *AferoView
	path string
}

func (h *aferoHandle) FullName() string {
	return h.path
}

func (h *aferoHandle) Name() string {
	return path.Base(h.path)
}

func (h *aferoHandle) Exists() bool {
	_, err := h.view.fs.Stat(h.path)
	return err == nil
}

func (h *aferoHandle) IsDir() bool {
	info, err := h.view.fs.Stat(h.path)
	return err == nil && info.IsDir()
}

func (h *aferoHandle) HasWritePermission() bool {
	if h.view.readOnly {
		return false
	}
	info, err := h.view.fs.Stat(h.path)
	if err != nil {
		// Creation of a new file: writable unless the share is read-only.
		return true
	}
	return info.Mode().Perm()&0200 != 0
}

func (h *aferoHandle) Info() (EntryInfo, error) {
	info, err := h.view.fs.Stat(h.path)
	if err != nil {
		return EntryInfo{}, fmt.Errorf("vfs: stat %s: %w", h.path, err)
	}
	return h.view.entryInfo(h.path, info), nil
}

func (h *aferoHandle) ListDir() ([]EntryInfo, error) {
	info, err := h.view.fs.Stat(h.path)
	if err != nil {
		return nil, fmt.Errorf("vfs: stat %s: %w", h.path, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("vfs: %s is not a directory", h.path)
	}

	infos, err := afero.ReadDir(h.view.fs, h.path)
	if err != nil {
		return nil, fmt.Errorf("vfs: read dir %s: %w", h.path, err)
	}

	entries := make([]EntryInfo, 0, len(infos))
	for _, fi := range infos {
		entries = append(entries, h.view.entryInfo(path.Join(h.path, fi.Name()), fi))
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

func (h *aferoHandle) OpenRead(offset int64) (io.ReadCloser, error) {
	f, err := h.view.fs.Open(h.path)
	if err != nil {
		return nil, fmt.Errorf("vfs: open %s: %w", h.path, err)
	}
	if offset > 0 {
		if _, err := f.Seek(offset, io.SeekStart); err != nil {
			f.Close()
			return nil, fmt.Errorf("vfs: seek %s to %d: %w", h.path, offset, err)
		}
	}
	return f, nil
}

func (h *aferoHandle) OpenWrite(offset int64) (io.WriteCloser, error) {
	if h.view.readOnly {
		return nil, fmt.Errorf("vfs: %s: read-only view", h.path)
	}

	flags := os.O_WRONLY | os.O_CREATE
	if offset == 0 {
		flags |= os.O_TRUNC
	}
	f, err := h.view.fs.OpenFile(h.path, flags, 0644)
	if err != nil {
		return nil, fmt.Errorf("vfs: open %s for write: %w", h.path, err)
	}
	if offset > 0 {
		if _, err := f.Seek(offset, io.SeekStart); err != nil {
			f.Close()
			return nil, fmt.Errorf("vfs: seek %s to %d: %w", h.path, offset, err)
		}
	}
	return f, nil
}

func (v *AferoView) entryInfo(fullName string, fi os.FileInfo) EntryInfo {
	size := fi.Size()
	if fi.IsDir() {
		size = 0
	}
	links := 1
	if fi.IsDir() {
		links = 3
	}
	return EntryInfo{
		Name:      fi.Name(),
		FullName:  fullName,
		IsDir:     fi.IsDir(),
		Size:      size,
		Mode:      fi.Mode(),
		ModTime:   fi.ModTime(),
		Owner:     v.owner,
		Group:     v.group,
		LinkCount: links,
	}
}
