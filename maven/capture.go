package maven

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/acarl005/stripansi"
)

// OutputCapture tees command output to console writers and to a single capture file.
// The file copy has ANSI escape sequences stripped so it reads cleanly as an artifact.
// Stdout and stderr are buffered per line separately, so lines of one stream never
// interleave with partial lines of the other.
type OutputCapture struct {
	Stdout io.Writer
	Stderr io.Writer

	path   string
	file   *os.File
	stdout *lineStripWriter
	stderr *lineStripWriter
}

// CaptureOutput creates (or truncates) the capture file at path
func CaptureOutput(path string, console, consoleErr io.Writer) (*OutputCapture, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file %s: %w", path, err)
	}

	shared := &lockedWriter{w: file}
	c := &OutputCapture{
		path:   path,
		file:   file,
		stdout: &lineStripWriter{w: shared},
		stderr: &lineStripWriter{w: shared},
	}
	c.Stdout = teeWriter(console, c.stdout)
	c.Stderr = teeWriter(consoleErr, c.stderr)
	return c, nil
}

func teeWriter(console io.Writer, sink io.Writer) io.Writer {
	if console == nil {
		return sink
	}
	return io.MultiWriter(console, sink)
}

// Path returns the capture file path
func (c *OutputCapture) Path() string {
	return c.path
}

// Close flushes any partial lines and closes the capture file
func (c *OutputCapture) Close() error {
	flushErr := errors.Join(c.stdout.Flush(), c.stderr.Flush())
	closeErr := c.file.Close()
	if flushErr != nil {
		return flushErr
	}
	return closeErr
}

// lockedWriter serializes whole-line writes from both streams into the file
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// lineStripWriter buffers one stream until a full line is available, so escape sequences
// split across writes are still removed.
type lineStripWriter struct {
	mu  sync.Mutex
	w   io.Writer
	buf []byte
}

func (l *lineStripWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.buf = append(l.buf, p...)
	idx := bytes.LastIndexByte(l.buf, '\n')
	if idx < 0 {
		return len(p), nil
	}

	complete := l.buf[:idx+1]
	if _, err := io.WriteString(l.w, stripansi.Strip(string(complete))); err != nil {
		return 0, err
	}
	l.buf = append(l.buf[:0], l.buf[idx+1:]...)
	return len(p), nil
}

// Flush writes out any buffered partial line
func (l *lineStripWriter) Flush() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.buf) == 0 {
		return nil
	}
	_, err := io.WriteString(l.w, stripansi.Strip(string(l.buf)))
	l.buf = l.buf[:0]
	return err
}
