package listing

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/ftplab/ftpd/pkg/vfs"
)

// List resolves the parsed argument in the hierarchy view and renders the
// listing through the formatter, returning a finite byte stream ready to be
// sent over the data connection.
//
// A directory target enumerates its immediate entries (non-recursive); a
// file target renders that single entry. Nothing is cached across calls;
// each invocation produces a fresh stream.
func List(arg ListArgument, view vfs.View, formatter Formatter) (io.Reader, error) {
	handle, err := view.Resolve(arg.Path)
	if err != nil {
		return nil, fmt.Errorf("listing: resolve %q: %w", arg.Path, err)
	}
	if !handle.Exists() {
		return nil, fmt.Errorf("listing: %s does not exist", handle.FullName())
	}

	var entries []vfs.EntryInfo
	if handle.IsDir() {
		entries, err = handle.ListDir()
		if err != nil {
			return nil, fmt.Errorf("listing: enumerate %s: %w", handle.FullName(), err)
		}
	} else {
		info, err := handle.Info()
		if err != nil {
			return nil, fmt.Errorf("listing: stat %s: %w", handle.FullName(), err)
		}
		entries = []vfs.EntryInfo{info}
	}

	var buf bytes.Buffer
	for _, e := range entries {
		if !arg.ShowHidden && isHidden(e.Name) {
			continue
		}
		buf.WriteString(formatter.Format(e))
	}
	return &buf, nil
}

// isHidden follows Unix convention: dot-prefixed names are hidden.
func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
