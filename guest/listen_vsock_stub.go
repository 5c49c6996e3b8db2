//go:build !linux

package guest

import (
	"errors"
	"net"
)

func listenVsock(addr string) (net.Listener, error) {
	return nil, errors.New("vsock listening requires linux")
}
