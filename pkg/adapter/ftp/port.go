package ftp

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// parsePortArgument parses the PORT argument h1,h2,h3,h4,p1,p2 into the
// client's listening address.
func parsePortArgument(arg string) (*net.TCPAddr, error) {
	parts := strings.Split(arg, ",")
	if len(parts) != 6 {
		return nil, fmt.Errorf("expected 6 comma-separated values, got %d", len(parts))
	}

	nums := make([]int, 6)
	for i, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 0 || n > 255 {
			return nil, fmt.Errorf("value %q out of range", part)
		}
		nums[i] = n
	}

	port := nums[4]*256 + nums[5]
	if port == 0 {
		return nil, fmt.Errorf("port must be non-zero")
	}

	ip := net.IPv4(byte(nums[0]), byte(nums[1]), byte(nums[2]), byte(nums[3]))
	return &net.TCPAddr{IP: ip, Port: port}, nil
}

// formatPassiveAddress renders an address as the h1,h2,h3,h4,p1,p2 form used
// in the 227 reply.
func formatPassiveAddress(ip net.IP, port int) string {
	v4 := ip.To4()
	if v4 == nil {
		// PASV cannot carry IPv6; clients on IPv6 use EPSV instead.
		v4 = net.IPv4(127, 0, 0, 1).To4()
	}
	return fmt.Sprintf("%d,%d,%d,%d,%d,%d", v4[0], v4[1], v4[2], v4[3], port/256, port%256)
}

// bindPassiveListener binds a listener for a PASV/EPSV descriptor, trying
// each port in the configured range in order. With no range configured the
// kernel picks a port.
func bindPassiveListener(minPort, maxPort int) (net.Listener, error) {
	if minPort == 0 {
		return net.Listen("tcp", ":0")
	}

	var lastErr error
	for port := minPort; port <= maxPort; port++ {
		l, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
		if err == nil {
			return l, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("no free port in passive range %d-%d: %w", minPort, maxPort, lastErr)
}
