package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FileTranscripts persists transcripts as one JSON file per session under a
// base directory. Writes go through a temp file and rename, so a crash never
// leaves a half-written transcript behind.
type FileTranscripts struct {
	mu   sync.Mutex
	base string
}

// NewFileTranscripts creates the base directory if needed.
func NewFileTranscripts(base string) (*FileTranscripts, error) {
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, fmt.Errorf("transcript: create %s: %w", base, err)
	}
	return &FileTranscripts{base: base}, nil
}

func (f *FileTranscripts) Save(_ context.Context, t Transcript) error {
	if t.SessionID == "" {
		return fmt.Errorf("transcript: session id is empty")
	}
	data, err := json.MarshalIndent(&t, "", "  ")
	if err != nil {
		return fmt.Errorf("transcript: encode %s: %w", t.SessionID, err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	path := f.path(t.SessionID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("transcript: write %s: %w", t.SessionID, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("transcript: commit %s: %w", t.SessionID, err)
	}
	return nil
}

func (f *FileTranscripts) Load(_ context.Context, sessionID string) (*Transcript, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("transcript: session id is empty")
	}
	f.mu.Lock()
	data, err := os.ReadFile(f.path(sessionID))
	f.mu.Unlock()
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrTranscriptNotFound
		}
		return nil, fmt.Errorf("transcript: read %s: %w", sessionID, err)
	}
	var t Transcript
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("transcript: decode %s: %w", sessionID, err)
	}
	return &t, nil
}

// path flattens the session id into a safe file name; ids are caller-chosen
// and must not traverse out of the base directory.
func (f *FileTranscripts) path(sessionID string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, sessionID)
	return filepath.Join(f.base, name+".json")
}
