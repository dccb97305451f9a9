// Package data owns the data-connection lifecycle for an FTP session:
// descriptor negotiation state, connection establishment (active dial-back
// or passive accept), single-use semantics, and guaranteed teardown.
//
// The Manager is the only entry and exit point for data connections. A
// transfer command must find a valid Descriptor before opening; once the
// connection has carried one transfer it cannot be reused, and Close tears
// everything down on every command exit path.
package data

import (
	"net"
)

// Mode is the negotiated data-connection mode for a session.
type Mode int

const (
	// ModeNone means no PORT or PASV has been issued yet.
	ModeNone Mode = iota

	// ModeActive means the client issued PORT: the server connects back
	// to the client's listening address.
	ModeActive

	// ModePassive means the client issued PASV: the server listens and
	// the client connects in.
	ModePassive
)

func (m Mode) String() string {
	switch m {
	case ModeActive:
		return "active"
	case ModePassive:
		return "passive"
	default:
		return "none"
	}
}

// Descriptor represents the negotiated but not-yet-open data channel.
// Exactly one descriptor is valid per session at a time; a new PORT or PASV
// replaces (and invalidates) the previous one.
type Descriptor struct {
	// Mode selects active or passive establishment.
	Mode Mode

	// PeerAddr is the client's listening address. Set in active mode.
	PeerAddr *net.TCPAddr

	// Listener is the server's pre-bound listening endpoint. Set in
	// passive mode; the PASV reply advertised its address.
	Listener net.Listener

	// Secure requires the data connection to be TLS-wrapped.
	Secure bool
}

// Ready is the capability query used by the precondition check: does this
// descriptor carry enough negotiated state to open a connection? Alternative
// transports satisfy the same contract without type assertions.
func (d *Descriptor) Ready() bool {
	if d == nil {
		return false
	}
	switch d.Mode {
	case ModeActive:
		return d.PeerAddr != nil
	case ModePassive:
		return d.Listener != nil
	default:
		return false
	}
}

// Addr returns the address this descriptor will connect to or accept on,
// for logging. Empty when not ready.
func (d *Descriptor) Addr() string {
	if d == nil {
		return ""
	}
	switch d.Mode {
	case ModeActive:
		if d.PeerAddr != nil {
			return d.PeerAddr.String()
		}
	case ModePassive:
		if d.Listener != nil {
			return d.Listener.Addr().String()
		}
	}
	return ""
}

// release frees any resource held by the descriptor (the passive listener).
func (d *Descriptor) release() {
	if d == nil {
		return
	}
	if d.Listener != nil {
		d.Listener.Close()
		d.Listener = nil
	}
}
