package guest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"github.com/voocel/pilot/logx"
	"github.com/voocel/pilot/wire"
)

// Defaults for the bind retry budget.
const (
	DefaultBindAttempts = 5
	DefaultBindBackoff  = 2 * time.Second
)

// Config controls the server's listen behavior.
type Config struct {
	// Endpoint is where the server listens: tcp://host:port, unix:///path,
	// or vsock://:port.
	Endpoint string

	// BindAttempts and BindBackoff bound the startup retry loop. Exhausting
	// the budget is fatal: a guest that cannot listen has no useful degraded
	// mode.
	BindAttempts int
	BindBackoff  time.Duration

	// MaxFrame caps a single inbound frame.
	MaxFrame int
}

func (c *Config) setDefaults() {
	if c.BindAttempts <= 0 {
		c.BindAttempts = DefaultBindAttempts
	}
	if c.BindBackoff <= 0 {
		c.BindBackoff = DefaultBindBackoff
	}
	if c.MaxFrame <= 0 {
		c.MaxFrame = wire.DefaultMaxFrame
	}
}

// Server owns the listening socket and serves one framed connection at a
// time. A newer connection supersedes the current one; the environment is
// single-tenant and never serves two peers concurrently.
type Server struct {
	cfg        Config
	dispatcher *Dispatcher

	mu   sync.Mutex
	ln   net.Listener
	conn net.Conn
}

// NewServer creates a Server around a dispatcher.
func NewServer(cfg Config, d *Dispatcher) *Server {
	cfg.setDefaults()
	return &Server{cfg: cfg, dispatcher: d}
}

// ListenAndServe binds the endpoint within the retry budget, then accepts
// connections until ctx ends. Requests on the live connection are dispatched
// one at a time to completion, so responses leave in request order.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := s.listen(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()
	defer ln.Close()

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	logx.Log.Info().Str("endpoint", s.cfg.Endpoint).Msg("guest agent listening")

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			logx.Log.Warn().Err(err).Msg("accept failed")
			continue
		}
		s.attach(conn)
		go s.serve(ctx, conn)
	}
}

// Addr returns the bound address once listening, nil before that.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Close shuts the listener and the live connection.
func (s *Server) Close() error {
	s.mu.Lock()
	ln, conn := s.ln, s.conn
	s.ln, s.conn = nil, nil
	s.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	if ln != nil {
		return ln.Close()
	}
	return nil
}

// attach makes conn the live connection, displacing any previous one.
// Closing the old connection unblocks its read loop, which then exits.
func (s *Server) attach(conn net.Conn) {
	s.mu.Lock()
	old := s.conn
	s.conn = conn
	s.mu.Unlock()

	if old != nil {
		logx.Log.Info().Msg("new connection supersedes the current one")
		_ = old.Close()
	}
}

// detach clears conn if it is still the live connection.
func (s *Server) detach(conn net.Conn) {
	s.mu.Lock()
	if s.conn == conn {
		s.conn = nil
	}
	s.mu.Unlock()
	_ = conn.Close()
}

// serve runs the blocking read loop for one connection.
func (s *Server) serve(ctx context.Context, conn net.Conn) {
	defer s.detach(conn)

	dec := wire.NewDecoderSize(conn, s.cfg.MaxFrame)
	enc := wire.NewEncoder(conn)

	for {
		var req wire.Request
		err := dec.Decode(&req)
		switch {
		case err == nil:
		case errors.Is(err, io.EOF):
			logx.Log.Info().Msg("host disconnected")
			return
		case wire.IsMalformed(err):
			// Framing is intact, so the connection stays usable.
			if encErr := enc.Encode(wire.ErrorResponse(0, wire.CodeParse, "malformed request: %v", err)); encErr != nil {
				return
			}
			continue
		default:
			logx.Log.Warn().Err(err).Msg("connection unusable")
			return
		}

		resp := s.dispatcher.Handle(ctx, req)
		if err := enc.Encode(resp); err != nil {
			logx.Log.Warn().Err(err).Int64("id", req.ID).Msg("write response failed")
			return
		}
	}
}

// listen binds with a fixed attempt budget and fixed backoff.
func (s *Server) listen(ctx context.Context) (net.Listener, error) {
	network, addr, err := wire.ParseEndpoint(s.cfg.Endpoint)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 1; attempt <= s.cfg.BindAttempts; attempt++ {
		var ln net.Listener
		switch network {
		case "vsock":
			ln, lastErr = listenVsock(addr)
		case "unix":
			// A stale socket file from a previous run blocks the bind.
			_ = os.Remove(addr)
			ln, lastErr = net.Listen(network, addr)
		default:
			ln, lastErr = net.Listen(network, addr)
		}
		if lastErr == nil {
			return ln, nil
		}

		logx.Log.Warn().Err(lastErr).Int("attempt", attempt).Int("budget", s.cfg.BindAttempts).
			Str("endpoint", s.cfg.Endpoint).Msg("bind failed")

		if attempt < s.cfg.BindAttempts {
			select {
			case <-time.After(s.cfg.BindBackoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	return nil, fmt.Errorf("bind %s failed after %d attempts: %w", s.cfg.Endpoint, s.cfg.BindAttempts, lastErr)
}
