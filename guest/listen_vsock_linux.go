//go:build linux

package guest

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// parseVsockPort accepts ":port" or "cid:port". The CID half is ignored for
// listening, which always binds VMADDR_CID_ANY.
func parseVsockPort(addr string) (uint32, error) {
	portStr := addr
	if i := strings.LastIndex(addr, ":"); i >= 0 {
		portStr = addr[i+1:]
	}
	port, err := strconv.ParseUint(portStr, 10, 32)
	if err != nil || port == 0 {
		return 0, fmt.Errorf("vsock address %q: invalid port", addr)
	}
	return uint32(port), nil
}

type vsockAddr struct {
	port uint32
}

func (a vsockAddr) Network() string { return "vsock" }
func (a vsockAddr) String() string  { return fmt.Sprintf("vsock:%d", a.port) }

type vsockListener struct {
	fd   int
	port uint32
}

func listenVsock(addr string) (net.Listener, error) {
	port, err := parseVsockPort(addr)
	if err != nil {
		return nil, err
	}

	fd, err := unix.Socket(unix.AF_VSOCK, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, fmt.Errorf("vsock socket: %w", err)
	}
	if err := unix.Bind(fd, &unix.SockaddrVM{CID: unix.VMADDR_CID_ANY, Port: port}); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("vsock bind port %d: %w", port, err)
	}
	if err := unix.Listen(fd, 128); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("vsock listen: %w", err)
	}
	return &vsockListener{fd: fd, port: port}, nil
}

func (l *vsockListener) Accept() (net.Conn, error) {
	nfd, _, err := unix.Accept(l.fd)
	if err != nil {
		return nil, err
	}
	// Non-blocking mode hands the descriptor to the runtime poller, so
	// closing the connection unblocks a pending read.
	if err := unix.SetNonblock(nfd, true); err != nil {
		_ = unix.Close(nfd)
		return nil, err
	}
	f := os.NewFile(uintptr(nfd), "vsock")
	return &vsockConn{File: f, addr: vsockAddr{port: l.port}}, nil
}

func (l *vsockListener) Close() error {
	// Shutdown unblocks a pending accept before the descriptor goes away.
	_ = unix.Shutdown(l.fd, unix.SHUT_RDWR)
	return unix.Close(l.fd)
}

func (l *vsockListener) Addr() net.Addr {
	return vsockAddr{port: l.port}
}

// vsockConn adapts an accepted vsock descriptor to net.Conn. os.File supplies
// Read, Write, Close, and deadline support for pollable descriptors.
type vsockConn struct {
	*os.File
	addr vsockAddr
}

func (c *vsockConn) LocalAddr() net.Addr  { return c.addr }
func (c *vsockConn) RemoteAddr() net.Addr { return c.addr }
