package wire

import (
	"fmt"
	"strings"
)

// ParseEndpoint splits an endpoint of the form tcp://host:port, unix:///path,
// or vsock://:port into a network and address. The vsock network is only
// listenable on Linux; the caller decides what to do with it.
func ParseEndpoint(endpoint string) (network, addr string, err error) {
	scheme, rest, ok := strings.Cut(endpoint, "://")
	if !ok {
		return "", "", fmt.Errorf("endpoint %q: missing scheme", endpoint)
	}
	if rest == "" {
		return "", "", fmt.Errorf("endpoint %q: missing address", endpoint)
	}
	switch strings.ToLower(scheme) {
	case "tcp":
		return "tcp", rest, nil
	case "unix":
		return "unix", rest, nil
	case "vsock":
		return "vsock", rest, nil
	default:
		return "", "", fmt.Errorf("endpoint %q: unsupported scheme %q", endpoint, scheme)
	}
}
