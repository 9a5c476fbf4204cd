package line

import (
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"
)

// chunkReader returns each chunk from one Read call.
type chunkReader struct {
	chunks []string
}

func (c *chunkReader) Read(p []byte) (int, error) {
	if len(c.chunks) == 0 {
		return 0, io.EOF
	}
	n := copy(p, c.chunks[0])
	c.chunks[0] = c.chunks[0][n:]
	if c.chunks[0] == "" {
		c.chunks = c.chunks[1:]
	}
	return n, nil
}

func readAll(t *testing.T, lr *Reader) ([]string, []error) {
	t.Helper()
	var lines []string
	var errs []error
	for {
		l, err := lr.ReadLine()
		if errors.Is(err, io.EOF) {
			return lines, errs
		}
		if err != nil {
			errs = append(errs, err)
			continue
		}
		lines = append(lines, l)
	}
}

func TestReadLineSplitsOnCarriageReturn(t *testing.T) {
	lr := NewReader(strings.NewReader("#Z01PWRON,SRC1,GRP1,VOL-45\r#Z02PWROFF,SRC1,GRP0,VOL-00\r"), DefaultLimits())
	lines, errs := readAll(t, lr)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	want := []string{"#Z01PWRON,SRC1,GRP1,VOL-45", "#Z02PWROFF,SRC1,GRP0,VOL-00"}
	if strings.Join(lines, "|") != strings.Join(want, "|") {
		t.Fatalf("lines=%q want %q", lines, want)
	}
}

func TestReadLinePartialAcrossReads(t *testing.T) {
	src := &chunkReader{chunks: []string{"#Z01PW", "RON,SRC1", ",GRP1,VOL-45\r#Z0", "2PWROFF\r"}}
	lines, errs := readAll(t, NewReader(src, DefaultLimits()))
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(lines) != 2 || lines[0] != "#Z01PWRON,SRC1,GRP1,VOL-45" || lines[1] != "#Z02PWROFF" {
		t.Fatalf("unexpected lines: %q", lines)
	}
}

func TestReadLineOneByteAtATime(t *testing.T) {
	lr := NewReader(iotest.OneByteReader(strings.NewReader("abc\r\ndef\r")), DefaultLimits())
	lines, errs := readAll(t, lr)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(lines) != 2 || lines[0] != "abc" || lines[1] != "def" {
		t.Fatalf("unexpected lines: %q", lines)
	}
}

func TestReadLineSkipsEmptyLines(t *testing.T) {
	lines, _ := readAll(t, NewReader(strings.NewReader("\r\r\n\rok\r"), DefaultLimits()))
	if len(lines) != 1 || lines[0] != "ok" {
		t.Fatalf("unexpected lines: %q", lines)
	}
}

func TestReadLineTooLongThenRecovers(t *testing.T) {
	long := strings.Repeat("x", 40)
	src := &chunkReader{chunks: []string{long[:20], long[20:], "tail\rnext\r"}}
	lines, errs := readAll(t, NewReader(src, Limits{MaxLineBytes: 16}))
	if len(errs) != 1 || !errors.Is(errs[0], ErrLineTooLong) {
		t.Fatalf("expected one ErrLineTooLong, got %v", errs)
	}
	if len(lines) != 1 || lines[0] != "next" {
		t.Fatalf("overlong line must be dropped through its delimiter, got %q", lines)
	}
}

func TestReadLineTooLongWithinOneChunk(t *testing.T) {
	src := strings.NewReader(strings.Repeat("y", 20) + "\rshort\r")
	lines, errs := readAll(t, NewReader(src, Limits{MaxLineBytes: 8}))
	if len(errs) != 1 || !errors.Is(errs[0], ErrLineTooLong) {
		t.Fatalf("expected one ErrLineTooLong, got %v", errs)
	}
	if len(lines) != 1 || lines[0] != "short" {
		t.Fatalf("unexpected lines: %q", lines)
	}
}

func TestReadLineDrainsBeforeError(t *testing.T) {
	src := iotest.DataErrReader(strings.NewReader("one\rtwo\r"))
	lr := NewReader(src, DefaultLimits())
	first, err := lr.ReadLine()
	if err != nil || first != "one" {
		t.Fatalf("first=%q err=%v", first, err)
	}
	second, err := lr.ReadLine()
	if err != nil || second != "two" {
		t.Fatalf("second=%q err=%v", second, err)
	}
	if _, err := lr.ReadLine(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF, got %v", err)
	}
}
