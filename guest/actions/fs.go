package actions

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"syscall"
	"unicode/utf8"

	"github.com/voocel/pilot/schema"
)

type fileActions struct {
	maxTextBytes  int64
	maxImageBytes int64
}

// readFile returns a file's content: text inline, recognized images as a
// base64 payload for vision-capable consumers.
func (a *fileActions) readFile(ctx context.Context, params json.RawMessage) (any, error) {
	var p schema.ReadFileParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("read_file params: %w", err)
	}
	if p.Path == "" {
		return nil, errors.New("path is required")
	}

	info, err := os.Stat(p.Path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", p.Path)
	}
	if info.Size() > a.maxImageBytes {
		return nil, fmt.Errorf("%s is too large (%d bytes)", p.Path, info.Size())
	}

	data, err := os.ReadFile(p.Path)
	if err != nil {
		return nil, err
	}

	content := schema.FileContent{Path: p.Path, Size: info.Size()}

	sniff := data
	if len(sniff) > 512 {
		sniff = sniff[:512]
	}
	ctype := http.DetectContentType(sniff)

	switch {
	case strings.HasPrefix(ctype, "image/"):
		content.Image = &schema.ImagePayload{
			Base64:   base64.StdEncoding.EncodeToString(data),
			MIMEType: ctype,
		}
	case utf8.Valid(data):
		text := data
		if int64(len(text)) > a.maxTextBytes {
			text = text[:a.maxTextBytes]
			content.Text = string(text) + "\n[truncated]"
		} else {
			content.Text = string(text)
		}
	default:
		content.Text = fmt.Sprintf("binary file, %d bytes, %s", info.Size(), ctype)
	}
	return content, nil
}

// moveFile renames a file, copying across filesystems when rename cannot.
func (a *fileActions) moveFile(ctx context.Context, params json.RawMessage) (any, error) {
	var p schema.MoveFileParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("move_file params: %w", err)
	}
	if p.Source == "" {
		return nil, errors.New("source is required")
	}
	if p.Destination == "" {
		return nil, errors.New("destination is required")
	}

	err := os.Rename(p.Source, p.Destination)
	if err != nil && isCrossDevice(err) {
		err = copyThenRemove(p.Source, p.Destination)
	}
	if err != nil {
		return nil, err
	}
	return okResult(), nil
}

func isCrossDevice(err error) bool {
	var linkErr *os.LinkError
	return errors.As(err, &linkErr) && errors.Is(linkErr.Err, syscall.EXDEV)
}

func copyThenRemove(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}
