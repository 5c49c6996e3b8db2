package wire

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"sync"
)

// DefaultMaxFrame bounds a single frame. Image payloads travel base64-encoded
// inside the frame, so the cap is generous.
const DefaultMaxFrame = 16 << 20

// ErrFrameTooLarge reports a frame exceeding the decoder's limit. The stream
// position is unrecoverable after this error; the connection must be dropped.
var ErrFrameTooLarge = errors.New("wire: frame exceeds size limit")

// Encoder writes newline-terminated JSON frames. JSON string escaping
// guarantees the payload itself never contains an unescaped newline.
type Encoder struct {
	mu sync.Mutex
	w  io.Writer
}

// NewEncoder creates an Encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// Encode writes v as one frame. The frame goes out in a single Write call so
// concurrent encoders never interleave and a cancelled caller never leaves a
// half-written frame behind.
func (e *Encoder) Encode(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	buf := make([]byte, 0, len(data)+1)
	buf = append(buf, data...)
	buf = append(buf, '\n')

	e.mu.Lock()
	defer e.mu.Unlock()
	_, err = e.w.Write(buf)
	return err
}

// Decoder reads newline-delimited JSON frames, buffering partial reads until
// a full line is available.
type Decoder struct {
	sc *bufio.Scanner
}

// NewDecoder creates a Decoder with the default frame limit.
func NewDecoder(r io.Reader) *Decoder {
	return NewDecoderSize(r, DefaultMaxFrame)
}

// NewDecoderSize creates a Decoder with an explicit frame limit.
func NewDecoderSize(r io.Reader, maxFrame int) *Decoder {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxFrame)
	return &Decoder{sc: sc}
}

// Decode reads the next frame into v. It returns io.EOF when the peer closes
// the stream cleanly, ErrFrameTooLarge when a frame exceeds the limit, and a
// *json.SyntaxError when a complete line is not valid JSON. Blank lines are
// skipped.
func (d *Decoder) Decode(v any) error {
	for d.sc.Scan() {
		line := bytes.TrimSpace(d.sc.Bytes())
		if len(line) == 0 {
			continue
		}
		return json.Unmarshal(line, v)
	}
	if err := d.sc.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return ErrFrameTooLarge
		}
		return err
	}
	return io.EOF
}

// IsMalformed reports whether err means the frame arrived intact but did not
// parse as the expected JSON shape. Such errors leave the stream usable.
func IsMalformed(err error) bool {
	var syn *json.SyntaxError
	var typ *json.UnmarshalTypeError
	return errors.As(err, &syn) || errors.As(err, &typ)
}
