package ftp

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/ftplab/ftpd/internal/ftp/data"
	"github.com/ftplab/ftpd/internal/ftp/reply"
	"github.com/ftplab/ftpd/internal/ftp/session"
	"github.com/ftplab/ftpd/internal/logger"
	"github.com/ftplab/ftpd/pkg/registry"
	"github.com/ftplab/ftpd/pkg/vfs"
)

var errNoShares = errors.New("ftp: no shares registered")

// Connection serves one FTP control connection: a read loop over CRLF
// command lines, dispatching to the transfer engine for LIST, NLST, STOR and
// STOU and handling the surrounding protocol (login, mode negotiation,
// directory navigation) itself.
type Connection struct {
	adapter *Adapter
	conn    net.Conn
	reader  *bufio.Reader
	writer  *bufio.Writer

	session *session.Session
	view    *vfs.AferoView
	share   *registry.Share
}

func newConnection(conn net.Conn, a *Adapter) *Connection {
	return &Connection{
		adapter: a,
		conn:    conn,
		reader:  bufio.NewReader(conn),
		writer:  bufio.NewWriter(conn),
	}
}

// Send implements reply.Writer: one reply line per call, flushed
// immediately so ordering on the wire matches issue order.
func (c *Connection) Send(r reply.Reply) {
	if _, err := fmt.Fprintf(c.writer, "%d %s\r\n", r.Code, r.Message); err != nil {
		logger.Debug("Failed to write reply", "error", err)
		return
	}
	if err := c.writer.Flush(); err != nil {
		logger.Debug("Failed to flush reply", "error", err)
	}
}

// Serve implements adapter.ConnectionHandler. It blocks until the client
// disconnects, QUIT is received, or the context is cancelled.
func (c *Connection) Serve(ctx context.Context) {
	defer c.conn.Close()

	clientIP := remoteIP(c.conn)

	share, err := c.adapter.defaultShare()
	if err != nil {
		logger.Error("No shares available for FTP session", "client", clientIP)
		c.Send(reply.New(reply.CodeRequestedActionNotTaken, "No shares available."))
		return
	}
	c.bindShare(share, "anonymous", clientIP)
	defer func() {
		c.session.Data().Close(ctx)
		c.adapter.registry.UnregisterSession(c.session.ID())
	}()

	c.Send(reply.New(reply.CodeServiceReady, "Service ready for new user."))

	for {
		select {
		case <-ctx.Done():
			c.Send(reply.New(reply.CodeServiceClosing, "Service closing control connection."))
			return
		default:
		}

		if c.adapter.cfg.IdleTimeout > 0 {
			if err := c.conn.SetReadDeadline(time.Now().Add(c.adapter.cfg.IdleTimeout)); err != nil {
				logger.Debug("Failed to set idle deadline", "error", err)
			}
		}

		line, err := c.readLine()
		if err != nil {
			logger.DebugCtx(logger.WithContext(ctx, c.session.LogContext()),
				"control connection read ended", logger.KeyError, err.Error())
			return
		}

		verb, arg := splitCommand(line)
		if verb == "" {
			continue
		}

		if quit := c.dispatch(ctx, verb, arg); quit {
			return
		}
	}
}

// readLine reads one CRLF-terminated command line.
func (c *Connection) readLine() (string, error) {
	line, err := c.reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// splitCommand splits a command line into its uppercase verb and raw
// argument.
func splitCommand(line string) (string, string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return "", ""
	}
	verb, arg, _ := strings.Cut(line, " ")
	return strings.ToUpper(verb), strings.TrimSpace(arg)
}

// dispatch executes one command. Reports true when the connection must
// close.
func (c *Connection) dispatch(ctx context.Context, verb, arg string) bool {
	ctx = logger.WithContext(ctx, c.session.LogContext().WithCommand(verb))
	logger.DebugCtx(ctx, "command received", logger.KeyArgument, arg)

	switch verb {
	case "USER":
		c.handleUser(arg)
	case "PASS":
		c.Send(reply.New(reply.CodeUserLoggedIn, "User logged in, proceed."))
	case "QUIT":
		c.Send(reply.New(reply.CodeServiceClosing, "Service closing control connection."))
		return true
	case "NOOP":
		c.Send(reply.New(reply.CodeCommandOkay, "Command okay."))
	case "SYST":
		c.Send(reply.New(reply.CodeSystemType, "UNIX Type: L8"))
	case "TYPE":
		c.handleType(arg)
	case "PWD":
		c.Send(reply.New(reply.CodePathnameCreated, fmt.Sprintf("%q is the current directory.", c.view.WorkingDir())))
	case "CWD":
		c.handleCwd(arg)
	case "CDUP":
		c.handleCwd("..")
	case "REST":
		c.handleRest(arg)
	case "RNFR":
		c.handleRenameFrom(arg)
	case "RNTO":
		c.handleRenameTo(arg)
	case "DELE":
		c.handleDelete(arg)
	case "PORT":
		c.handlePort(arg)
	case "PASV":
		c.handlePasv()
	case "EPSV":
		c.handleEpsv()
	case "LIST":
		c.adapter.engine.List(ctx, c.session, arg)
	case "NLST":
		c.adapter.engine.NLST(ctx, c.session, arg)
	case "STOR":
		c.adapter.engine.Stor(ctx, c.session, arg)
	case "STOU":
		c.adapter.engine.Stou(ctx, c.session, arg)
	default:
		c.Send(reply.New(reply.CodeCommandUnrecognized, "Syntax error, command unrecognized."))
	}
	return false
}

// bindShare binds this connection to a share: a fresh view, a fresh data
// connection manager and a fresh session record. Any previously negotiated
// data connection is torn down with the old session.
func (c *Connection) bindShare(share *registry.Share, username, clientIP string) {
	if c.session != nil {
		c.session.Data().Close(context.Background())
		c.adapter.registry.UnregisterSession(c.session.ID())
	}

	c.share = share
	c.view = share.NewView().(*vfs.AferoView)

	mgr := data.NewManager(&data.NetTransport{Timeout: c.adapter.cfg.DataTimeout})
	c.session = session.New(session.Identity{Username: username}, c.view, mgr, c, clientIP)

	if err := c.adapter.registry.RegisterSession(&registry.SessionInfo{
		ID:          c.session.ID(),
		ClientAddr:  c.conn.RemoteAddr().String(),
		User:        username,
		Share:       share.Name,
		ConnectedAt: time.Now(),
	}); err != nil {
		logger.Warn("Failed to register session", "error", err)
	}
}

// handleUser binds the session identity. A username matching a share name
// logs into that share; anything else stays on the default share.
func (c *Connection) handleUser(arg string) {
	if arg == "" {
		c.Send(reply.Localized(reply.CodeSyntaxError))
		return
	}

	share := c.share
	if named, err := c.adapter.registry.GetShare(arg); err == nil {
		share = named
	}
	c.bindShare(share, arg, remoteIP(c.conn))

	c.Send(reply.New(reply.CodeUserLoggedIn, "User logged in, proceed."))
}

func (c *Connection) handleType(arg string) {
	switch strings.ToUpper(arg) {
	case "A", "A N":
		c.session.SetTransferType(session.TypeASCII)
		c.Send(reply.New(reply.CodeCommandOkay, "Type set to A."))
	case "I", "L 8":
		c.session.SetTransferType(session.TypeImage)
		c.Send(reply.New(reply.CodeCommandOkay, "Type set to I."))
	default:
		c.Send(reply.New(reply.CodeParameterNotImplemented, fmt.Sprintf("Type %q not implemented.", arg)))
	}
}

func (c *Connection) handleCwd(arg string) {
	if err := c.view.ChangeDir(arg); err != nil {
		c.Send(reply.New(reply.CodeRequestedActionNotTaken, fmt.Sprintf("%s: no such directory.", arg)))
		return
	}
	c.Send(reply.New(reply.CodeFileActionCompleted, "Directory changed."))
}

func (c *Connection) handleRest(arg string) {
	offset, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || offset < 0 {
		c.Send(reply.Localized(reply.CodeSyntaxError))
		return
	}
	c.session.SetRestartOffset(offset)
	c.Send(reply.New(reply.CodeFileActionPending, fmt.Sprintf("Restarting at %d. Send STORE or RETRIEVE.", offset)))
}

// handleRenameFrom records the rename source. The resource must exist; the
// pending source is consumed by the next RNTO.
func (c *Connection) handleRenameFrom(arg string) {
	if arg == "" {
		c.Send(reply.Localized(reply.CodeSyntaxError))
		return
	}

	h, err := c.view.Resolve(arg)
	if err != nil || !h.Exists() {
		c.Send(reply.New(reply.CodeRequestedActionNotTaken, fmt.Sprintf("%s: no such file or directory.", arg)))
		return
	}

	c.session.SetRenameFrom(h.FullName())
	c.Send(reply.New(reply.CodeFileActionPending, "Requested file action pending further information."))
}

// handleRenameTo completes a rename started by RNFR.
func (c *Connection) handleRenameTo(arg string) {
	if arg == "" {
		c.Send(reply.Localized(reply.CodeSyntaxError))
		return
	}

	from := c.session.RenameFrom()
	if from == "" {
		c.Send(reply.New(reply.CodeBadSequence, "RNFR must be issued first."))
		return
	}
	c.session.SetRenameFrom("")

	if err := c.view.Rename(from, arg); err != nil {
		c.Send(reply.New(reply.CodeRequestedActionNotTaken, fmt.Sprintf("%s: rename failed.", arg)))
		return
	}
	c.Send(reply.New(reply.CodeFileActionCompleted, "Rename successful."))
}

func (c *Connection) handleDelete(arg string) {
	if arg == "" {
		c.Send(reply.Localized(reply.CodeSyntaxError))
		return
	}

	if err := c.view.Remove(arg); err != nil {
		c.Send(reply.New(reply.CodeRequestedActionNotTaken, fmt.Sprintf("%s: delete failed.", arg)))
		return
	}
	c.Send(reply.New(reply.CodeFileActionCompleted, "File deleted."))
}

// handlePort installs an active-mode descriptor from the client's
// advertised address.
func (c *Connection) handlePort(arg string) {
	addr, err := parsePortArgument(arg)
	if err != nil {
		c.Send(reply.Localized(reply.CodeSyntaxError))
		return
	}

	c.session.Data().SetDescriptor(&data.Descriptor{
		Mode:     data.ModeActive,
		PeerAddr: addr,
	})
	c.Send(reply.New(reply.CodeCommandOkay, "PORT command successful."))
}

// handlePasv binds a passive listener and advertises its address.
func (c *Connection) handlePasv() {
	l, err := bindPassiveListener(c.adapter.cfg.PassivePortMin, c.adapter.cfg.PassivePortMax)
	if err != nil {
		logger.Warn("Failed to bind passive listener", "error", err)
		c.Send(reply.Localized(reply.CodeCantOpenDataConnection))
		return
	}

	port := l.Addr().(*net.TCPAddr).Port
	ip := c.advertisedIP()

	c.session.Data().SetDescriptor(&data.Descriptor{
		Mode:     data.ModePassive,
		Listener: l,
	})
	c.Send(reply.New(reply.CodeEnteringPassive,
		fmt.Sprintf("Entering Passive Mode (%s).", formatPassiveAddress(ip, port))))
}

// handleEpsv is the address-family-agnostic variant of PASV (RFC 2428).
func (c *Connection) handleEpsv() {
	l, err := bindPassiveListener(c.adapter.cfg.PassivePortMin, c.adapter.cfg.PassivePortMax)
	if err != nil {
		logger.Warn("Failed to bind passive listener", "error", err)
		c.Send(reply.Localized(reply.CodeCantOpenDataConnection))
		return
	}

	port := l.Addr().(*net.TCPAddr).Port

	c.session.Data().SetDescriptor(&data.Descriptor{
		Mode:     data.ModePassive,
		Listener: l,
	})
	c.Send(reply.New(reply.CodeEnteringExtendedPassive,
		fmt.Sprintf("Entering Extended Passive Mode (|||%d|)", port)))
}

// advertisedIP is the address placed in PASV replies: the configured
// external IP when set, the control connection's local address otherwise.
func (c *Connection) advertisedIP() net.IP {
	if c.adapter.cfg.ExternalIP != "" {
		if ip := net.ParseIP(c.adapter.cfg.ExternalIP); ip != nil {
			return ip
		}
	}
	if addr, ok := c.conn.LocalAddr().(*net.TCPAddr); ok {
		return addr.IP
	}
	return net.IPv4(127, 0, 0, 1)
}

func remoteIP(conn net.Conn) string {
	host, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		return conn.RemoteAddr().String()
	}
	return host
}
