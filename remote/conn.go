// Package remote is the host-side client for the guest command protocol. A
// Conn multiplexes concurrent callers over one stream socket, matching each
// response to its caller by request id.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"

	"github.com/voocel/pilot/metrics"
	"github.com/voocel/pilot/schema"
	"github.com/voocel/pilot/wire"
)

// Conn is one live connection to a guest. Safe for concurrent use; requests
// may complete in any order.
type Conn struct {
	nc  net.Conn
	enc *wire.Encoder

	mu      sync.Mutex
	nextID  int64
	pending map[int64]chan wire.Response
	failed  bool
	cause   error

	// done closes when the read loop exits; after that every in-flight and
	// future call fails with ErrGuestUnavailable.
	done chan struct{}
}

// Dial connects to a guest endpoint (tcp://host:port, unix:///path, or
// vsock://cid:port) and starts the read loop.
func Dial(ctx context.Context, endpoint string) (*Conn, error) {
	network, addr, err := wire.ParseEndpoint(endpoint)
	if err != nil {
		return nil, err
	}

	var nc net.Conn
	if network == "vsock" {
		nc, err = dialVsock(addr)
	} else {
		var d net.Dialer
		nc, err = d.DialContext(ctx, network, addr)
	}
	if err != nil {
		return nil, fmt.Errorf("dial guest: %w", err)
	}
	return NewConn(nc), nil
}

// NewConn wraps an established connection and starts its read loop.
func NewConn(nc net.Conn) *Conn {
	c := &Conn{
		nc:      nc,
		enc:     wire.NewEncoder(nc),
		pending: make(map[int64]chan wire.Response),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c
}

// Call sends one request and blocks until its response arrives, ctx is done,
// or the connection fails. Params may be nil. A cancelled call abandons its
// id; a late response for it is dropped by the read loop.
func (c *Conn) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	var raw json.RawMessage
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("marshal %s params: %w", method, err)
		}
		raw = data
	}

	id, ch, err := c.register()
	if err != nil {
		return nil, err
	}

	if err := c.enc.Encode(wire.Request{ID: id, Method: method, Params: raw}); err != nil {
		c.forget(id)
		return nil, fmt.Errorf("%w: %v", schema.ErrGuestUnavailable, err)
	}
	metrics.RecordWireMessage("sent")

	select {
	case resp := <-ch:
		return c.unpack(method, resp)
	case <-ctx.Done():
		c.forget(id)
		return nil, ctx.Err()
	case <-c.done:
		// The response may have been delivered just before the loop died.
		select {
		case resp := <-ch:
			return c.unpack(method, resp)
		default:
		}
		return nil, fmt.Errorf("%w: %v", schema.ErrGuestUnavailable, c.failure())
	}
}

// Close tears the connection down. In-flight calls fail with
// ErrGuestUnavailable.
func (c *Conn) Close() error {
	err := c.nc.Close()
	c.fail(net.ErrClosed)
	return err
}

// Done returns a channel that closes once the connection has failed and no
// further calls can succeed. Reconnect loops block on it.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

func (c *Conn) register() (int64, chan wire.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failed {
		return 0, nil, fmt.Errorf("%w: %v", schema.ErrGuestUnavailable, c.cause)
	}
	c.nextID++
	id := c.nextID
	ch := make(chan wire.Response, 1)
	c.pending[id] = ch
	return id, ch, nil
}

func (c *Conn) forget(id int64) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

func (c *Conn) failure() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cause
}

func (c *Conn) fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failed {
		return
	}
	c.failed = true
	c.cause = err
	c.pending = nil
	close(c.done)
}

func (c *Conn) readLoop() {
	dec := wire.NewDecoder(c.nc)
	for {
		var resp wire.Response
		if err := dec.Decode(&resp); err != nil {
			c.fail(err)
			_ = c.nc.Close()
			return
		}
		metrics.RecordWireMessage("received")

		c.mu.Lock()
		ch, ok := c.pending[resp.ID]
		if ok {
			delete(c.pending, resp.ID)
		}
		c.mu.Unlock()
		if ok {
			ch <- resp
		}
		// A response with no waiter belongs to a cancelled call; drop it.
	}
}

func (c *Conn) unpack(method string, resp wire.Response) (json.RawMessage, error) {
	if resp.Error == nil {
		return resp.Result, nil
	}
	switch resp.Error.Code {
	case wire.CodeMethodNotFound:
		return nil, fmt.Errorf("%w: %s", schema.ErrMethodNotFound, method)
	case wire.CodeHostOnlyTool:
		return nil, fmt.Errorf("%w: %s", schema.ErrHostOnlyTool, method)
	default:
		return nil, &schema.ProtocolError{Code: resp.Error.Code, Message: resp.Error.Message}
	}
}
