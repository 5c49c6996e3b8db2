package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/voocel/pilot/schema"
)

// Transcript is a point-in-time copy of one session's conversation, enough
// to resume it after a host restart.
type Transcript struct {
	SessionID string           `json:"session_id"`
	Messages  []schema.Message `json:"messages"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// TranscriptStore persists transcripts between host runs.
type TranscriptStore interface {
	Save(ctx context.Context, t Transcript) error
	Load(ctx context.Context, sessionID string) (*Transcript, error)
}

// ErrTranscriptNotFound reports that a session has no saved transcript.
var ErrTranscriptNotFound = errors.New("transcript: not found")

// MemoryTranscripts keeps transcripts in memory, mostly for tests and
// single-process setups.
type MemoryTranscripts struct {
	mu    sync.RWMutex
	store map[string]*Transcript
}

func NewMemoryTranscripts() *MemoryTranscripts {
	return &MemoryTranscripts{store: make(map[string]*Transcript)}
}

func (m *MemoryTranscripts) Save(_ context.Context, t Transcript) error {
	if t.SessionID == "" {
		return fmt.Errorf("transcript: session id is empty")
	}
	cp := t.Clone()
	m.mu.Lock()
	m.store[t.SessionID] = cp
	m.mu.Unlock()
	return nil
}

func (m *MemoryTranscripts) Load(_ context.Context, sessionID string) (*Transcript, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("transcript: session id is empty")
	}
	m.mu.RLock()
	t, ok := m.store[sessionID]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrTranscriptNotFound
	}
	return t.Clone(), nil
}

// Snapshot captures the runner's current conversation under sessionID.
func (r *Runner) Snapshot(sessionID string) Transcript {
	return Transcript{
		SessionID: sessionID,
		Messages:  r.History(),
		UpdatedAt: time.Now(),
	}
}

func (t *Transcript) Clone() *Transcript {
	if t == nil {
		return nil
	}
	return &Transcript{
		SessionID: t.SessionID,
		Messages:  cloneMessages(t.Messages),
		UpdatedAt: t.UpdatedAt,
	}
}

func cloneMessages(messages []schema.Message) []schema.Message {
	if len(messages) == 0 {
		return nil
	}
	out := make([]schema.Message, len(messages))
	for i, msg := range messages {
		out[i] = msg
		if len(msg.ToolCalls) > 0 {
			calls := make([]schema.ToolCall, len(msg.ToolCalls))
			for j, call := range msg.ToolCalls {
				calls[j] = call
				if len(call.Args) > 0 {
					calls[j].Args = append([]byte(nil), call.Args...)
				}
			}
			out[i].ToolCalls = calls
		}
	}
	return out
}
