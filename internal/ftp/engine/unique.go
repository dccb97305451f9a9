package engine

import (
	"fmt"
	"path"
	"time"

	"github.com/ftplab/ftpd/pkg/vfs"
)

// defaultUniqueName is the base file name used when STOU is issued without
// an argument or targets a directory.
const defaultUniqueName = "ftp.dat"

// maxUniqueAttempts bounds the collision-retry loop. The nanosecond suffix
// makes consecutive collisions all but impossible, so hitting the bound
// means the view is misbehaving, not that we should keep trying.
const maxUniqueAttempts = 100

// UniqueIn derives a collision-free target name for commands that must not
// overwrite. If desiredPath denotes an existing directory, the effective
// base is defaultUniqueName joined under it; otherwise the base is
// desiredPath itself (or defaultUniqueName in the working directory when
// empty). While the proposed name exists, a nanosecond suffix is appended
// and the name rechecked.
//
// UniqueIn never mutates the hierarchy; it only proposes a name that did
// not exist at the moment of the check.
func UniqueIn(view vfs.View, desiredPath string) (vfs.Handle, error) {
	base := desiredPath
	if base == "" {
		base = defaultUniqueName
	} else {
		h, err := view.Resolve(desiredPath)
		if err != nil {
			return nil, fmt.Errorf("engine: resolve %q: %w", desiredPath, err)
		}
		if h.IsDir() {
			base = path.Join(desiredPath, defaultUniqueName)
		}
	}

	handle, err := view.Resolve(base)
	if err != nil {
		return nil, fmt.Errorf("engine: resolve %q: %w", base, err)
	}

	for attempt := 0; handle.Exists(); attempt++ {
		if attempt >= maxUniqueAttempts {
			return nil, fmt.Errorf("engine: could not derive a unique name from %q", base)
		}
		candidate := fmt.Sprintf("%s.%d", base, time.Now().UnixNano())
		handle, err = view.Resolve(candidate)
		if err != nil {
			return nil, fmt.Errorf("engine: resolve %q: %w", candidate, err)
		}
	}

	return handle, nil
}
