//go:build linux

package remote

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// dialVsock connects to "cid:port" over AF_VSOCK.
func dialVsock(addr string) (net.Conn, error) {
	cidStr, portStr, ok := strings.Cut(addr, ":")
	if !ok {
		return nil, fmt.Errorf("vsock address %q: want cid:port", addr)
	}
	cid, err := strconv.ParseUint(cidStr, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("vsock address %q: invalid cid", addr)
	}
	port, err := strconv.ParseUint(portStr, 10, 32)
	if err != nil || port == 0 {
		return nil, fmt.Errorf("vsock address %q: invalid port", addr)
	}

	fd, err := unix.Socket(unix.AF_VSOCK, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, fmt.Errorf("vsock socket: %w", err)
	}
	sa := &unix.SockaddrVM{CID: uint32(cid), Port: uint32(port)}
	if err := unix.Connect(fd, sa); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("vsock connect %s: %w", addr, err)
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		_ = unix.Close(fd)
		return nil, err
	}
	f := os.NewFile(uintptr(fd), "vsock")
	return &dialedVsockConn{File: f, addr: addr}, nil
}

type vsockPeerAddr struct{ addr string }

func (a vsockPeerAddr) Network() string { return "vsock" }
func (a vsockPeerAddr) String() string  { return a.addr }

type dialedVsockConn struct {
	*os.File
	addr string
}

func (c *dialedVsockConn) LocalAddr() net.Addr  { return vsockPeerAddr{addr: "local"} }
func (c *dialedVsockConn) RemoteAddr() net.Addr { return vsockPeerAddr{addr: c.addr} }
