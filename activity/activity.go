// Package activity records what the host executor is doing as a bounded,
// subscribable feed. The API layer serves it to operators both as a snapshot
// and as a live stream.
package activity

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Kind classifies an activity entry.
type Kind string

const (
	KindToolStart Kind = "tool.start"
	KindToolEnd   Kind = "tool.end"
	KindToolError Kind = "tool.error"

	KindPolicyDecision Kind = "policy.decision"

	KindQuestionAsked    Kind = "question.asked"
	KindQuestionAnswered Kind = "question.answered"

	KindPermissionRequested Kind = "permission.requested"
	KindPermissionDecided   Kind = "permission.decided"

	KindGuestAttached Kind = "guest.attached"
	KindGuestDetached Kind = "guest.detached"

	KindRunStart Kind = "run.start"
	KindRunEnd   Kind = "run.end"
	KindRunError Kind = "run.error"
)

// Entry is one observable step. Data carries small kind-specific fields;
// anything secret is masked before it gets here.
type Entry struct {
	ID        string         `json:"id"`
	Kind      Kind           `json:"kind"`
	Tool      string         `json:"tool,omitempty"`
	Summary   string         `json:"summary"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Log keeps the most recent entries in a ring and fans new ones out to
// subscribers. Slow subscribers lose entries rather than stall the executor.
type Log struct {
	mu      sync.Mutex
	ring    []Entry
	next    int
	filled  bool
	streams map[string]chan Entry
	closed  bool
}

// NewLog creates a log retaining up to capacity entries.
func NewLog(capacity int) *Log {
	if capacity <= 0 {
		capacity = 256
	}
	return &Log{
		ring:    make([]Entry, capacity),
		streams: make(map[string]chan Entry),
	}
}

// Append records an entry, stamping ID and Timestamp when absent.
func (l *Log) Append(e Entry) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	if e.ID == "" {
		e.ID = fmt.Sprintf("act_%d", e.Timestamp.UnixNano())
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}

	l.ring[l.next] = e
	l.next++
	if l.next == len(l.ring) {
		l.next = 0
		l.filled = true
	}

	for _, stream := range l.streams {
		select {
		case stream <- e:
		default:
			// Drop for this subscriber rather than block the writer.
		}
	}
}

// Recent returns up to n entries, oldest first.
func (l *Log) Recent(n int) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	size := l.next
	if l.filled {
		size = len(l.ring)
	}
	if n <= 0 || n > size {
		n = size
	}

	out := make([]Entry, 0, n)
	start := l.next - n
	if start < 0 {
		start += len(l.ring)
	}
	for i := 0; i < n; i++ {
		out = append(out, l.ring[(start+i)%len(l.ring)])
	}
	return out
}

// Subscribe returns a channel of entries appended after this call. The
// subscription ends when ctx is done or the log closes.
func (l *Log) Subscribe(ctx context.Context) (<-chan Entry, error) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil, fmt.Errorf("activity log is closed")
	}
	stream := make(chan Entry, 100)
	id := fmt.Sprintf("stream_%d", time.Now().UnixNano())
	for {
		if _, taken := l.streams[id]; !taken {
			break
		}
		id += "x"
	}
	l.streams[id] = stream
	l.mu.Unlock()

	out := make(chan Entry, 100)
	go func() {
		defer func() {
			l.mu.Lock()
			if _, ok := l.streams[id]; ok {
				delete(l.streams, id)
				close(stream)
			}
			l.mu.Unlock()
			close(out)
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case e, ok := <-stream:
				if !ok {
					return
				}
				select {
				case out <- e:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// Close stops the log. Subscribers' channels are closed; further appends are
// dropped.
func (l *Log) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.closed = true
	for id, stream := range l.streams {
		delete(l.streams, id)
		close(stream)
	}
}
