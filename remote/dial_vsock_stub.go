//go:build !linux

package remote

import (
	"errors"
	"net"
)

func dialVsock(addr string) (net.Conn, error) {
	return nil, errors.New("vsock dialing requires linux")
}
