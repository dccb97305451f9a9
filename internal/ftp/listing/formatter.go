package listing

import (
	"fmt"
	"time"

	"github.com/ftplab/ftpd/pkg/vfs"
)

// Formatter renders one directory entry as one output line, including the
// line terminator. Implementations must be stateless: they are shared as
// process-wide singletons across all sessions.
type Formatter interface {
	Format(e vfs.EntryInfo) string
}

// Process-wide formatter singletons. Pure functions of their inputs; no
// shared mutable buffers.
var (
	// LongFormatter renders ls-style long lines for LIST.
	LongFormatter Formatter = longFormatter{}

	// NameOnlyFormatter renders bare names for NLST.
	NameOnlyFormatter Formatter = nameOnlyFormatter{}
)

type longFormatter struct{}

// Format renders an entry as a Unix long-listing line:
//
//	drwxr-xr-x   3 ftp      ftp             0 Jan 02 15:04 docs
func (longFormatter) Format(e vfs.EntryInfo) string {
	return fmt.Sprintf("%s %3d %-8s %-8s %12d %s %s\r\n",
		e.Mode.String(),
		e.LinkCount,
		e.Owner,
		e.Group,
		e.Size,
		formatModTime(e.ModTime),
		e.Name,
	)
}

// formatModTime follows ls convention: entries modified within the last six
// months show the time of day, older ones show the year.
func formatModTime(t time.Time) string {
	if time.Since(t) > 182*24*time.Hour {
		return t.Format("Jan 02  2006")
	}
	return t.Format("Jan 02 15:04")
}

type nameOnlyFormatter struct{}

func (nameOnlyFormatter) Format(e vfs.EntryInfo) string {
	return e.Name + "\r\n"
}
