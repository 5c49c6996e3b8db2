package remote

import (
	"sync"

	"github.com/voocel/pilot/metrics"
	"github.com/voocel/pilot/schema"
)

// Slot holds at most one live guest connection. A new attachment replaces and
// closes the previous one: last writer wins, and stale holders fail over on
// their next call.
type Slot struct {
	mu   sync.Mutex
	conn *Conn
}

// Swap installs c as the live connection, closing any previous one.
func (s *Slot) Swap(c *Conn) {
	s.mu.Lock()
	old := s.conn
	s.conn = c
	s.mu.Unlock()

	if old != nil {
		_ = old.Close()
	}
	metrics.SetGuestConnected(c != nil)
}

// Get returns the live connection, or ErrGuestUnavailable when none is
// attached.
func (s *Slot) Get() (*Conn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil, schema.ErrGuestUnavailable
	}
	return s.conn, nil
}

// Clear detaches c if it is still the live connection. A connection replaced
// by a newer Swap is left alone so the newcomer survives a slow failure
// report from its predecessor's callers.
func (s *Slot) Clear(c *Conn) {
	s.mu.Lock()
	cleared := s.conn == c
	if cleared {
		s.conn = nil
	}
	s.mu.Unlock()

	if cleared {
		if c != nil {
			_ = c.Close()
		}
		metrics.SetGuestConnected(false)
	}
}

// Connected reports whether a connection is attached.
func (s *Slot) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil
}
