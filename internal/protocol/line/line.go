// Package line splits the amplifier byte stream into `\r`-terminated lines.
package line

import (
	"bytes"
	"errors"
	"io"
)

const Delimiter byte = '\r'

var ErrLineTooLong = errors.New("line: line exceeds max length")

// Limits constrains how much of one unterminated line is buffered.
type Limits struct {
	MaxLineBytes int
}

func DefaultLimits() Limits {
	return Limits{MaxLineBytes: 256}
}

// Reader yields complete lines from r. Partial lines persist across reads.
// An overlong line is reported once as ErrLineTooLong, its bytes are dropped
// up to the next delimiter, and reading resumes with the following line.
type Reader struct {
	r      io.Reader
	limits Limits

	buf        []byte
	pending    []byte
	discarding bool
	err        error
	chunk      [128]byte
}

func NewReader(r io.Reader, limits Limits) *Reader {
	if limits.MaxLineBytes <= 0 {
		limits = DefaultLimits()
	}
	return &Reader{r: r, limits: limits}
}

// ReadLine blocks until a complete non-empty line is available. The returned
// line excludes the delimiter and any leading '\n'. Once the underlying reader
// fails, buffered complete lines are still returned before the error.
func (lr *Reader) ReadLine() (string, error) {
	for {
		if len(lr.pending) > 0 {
			out, ok, err := lr.consume()
			if err != nil {
				return "", err
			}
			if ok {
				return out, nil
			}
			continue
		}
		if lr.err != nil {
			return "", lr.err
		}
		n, err := lr.r.Read(lr.chunk[:])
		if n > 0 {
			lr.pending = append(lr.pending[:0], lr.chunk[:n]...)
		}
		if err != nil {
			lr.err = err
		}
	}
}

// consume advances through pending. ok reports a completed line.
func (lr *Reader) consume() (string, bool, error) {
	i := bytes.IndexByte(lr.pending, Delimiter)
	if i < 0 {
		if lr.discarding {
			lr.pending = lr.pending[:0]
			return "", false, nil
		}
		lr.buf = append(lr.buf, lr.pending...)
		lr.pending = lr.pending[:0]
		if len(lr.buf) > lr.limits.MaxLineBytes {
			lr.buf = lr.buf[:0]
			lr.discarding = true
			return "", false, ErrLineTooLong
		}
		return "", false, nil
	}

	part := lr.pending[:i]
	lr.pending = lr.pending[i+1:]
	if lr.discarding {
		lr.discarding = false
		return "", false, nil
	}
	if len(lr.buf)+len(part) > lr.limits.MaxLineBytes {
		lr.buf = lr.buf[:0]
		return "", false, ErrLineTooLong
	}
	lr.buf = append(lr.buf, part...)
	out := string(bytes.TrimLeft(lr.buf, "\n"))
	lr.buf = lr.buf[:0]
	if out == "" {
		return "", false, nil
	}
	return out, true, nil
}
