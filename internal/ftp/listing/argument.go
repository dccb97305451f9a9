// Package listing assembles directory-listing output for the LIST and NLST
// transfer commands: argument parsing, entry selection and line formatting.
// Everything in this package is a pure function of its inputs; nothing is
// cached across invocations, so the package-level formatters are safe under
// concurrent use from many sessions.
package listing

import (
	"errors"
	"fmt"
	"strings"
)

// ErrIllegalArgument is returned by Parse for malformed listing arguments.
// The engine answers it with reply 501.
var ErrIllegalArgument = errors.New("listing: illegal listing argument")

// ListArgument is the parsed form of a listing command's argument: an
// optional path plus recognized option flags. Pure value, recomputed per
// invocation, never persisted.
type ListArgument struct {
	// Path is the listing target. Empty means the current directory.
	Path string

	// ShowHidden includes dot-entries in directory output (-a).
	ShowHidden bool

	// LongFormat requests long-format lines (-l). LIST output is long
	// regardless; the flag is accepted for client compatibility.
	LongFormat bool
}

// Parse splits the optional leading option flags from the trailing path
// token. Recognized flags are 'a' and 'l'; any other flag character fails
// with ErrIllegalArgument (rejection is this implementation's documented
// policy, chosen over silent ignoring so malformed input is surfaced).
//
// An empty argument yields the current directory with default options.
func Parse(raw string) (ListArgument, error) {
	arg := ListArgument{}
	rest := strings.TrimSpace(raw)

	for strings.HasPrefix(rest, "-") {
		token := rest
		if idx := strings.IndexByte(rest, ' '); idx >= 0 {
			token, rest = rest[:idx], strings.TrimSpace(rest[idx+1:])
		} else {
			rest = ""
		}

		flags := token[1:]
		if flags == "" {
			return ListArgument{}, fmt.Errorf("%w: empty option token", ErrIllegalArgument)
		}
		for _, f := range flags {
			switch f {
			case 'a':
				arg.ShowHidden = true
			case 'l':
				arg.LongFormat = true
			default:
				return ListArgument{}, fmt.Errorf("%w: unknown option %q", ErrIllegalArgument, string(f))
			}
		}
	}

	arg.Path = rest
	return arg, nil
}
