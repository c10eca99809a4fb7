package journal

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"
)

var hdrPrefix = []byte("--- ")

// MarshalLine frames d as:
// "--- ${len} ${unix_ms} ${name}\n${d}\n"
// Timestamp is omitted if t is zero, name if empty.
func MarshalLine(name string, t time.Time, d []byte) []byte {
	var wb bytes.Buffer
	wb.Grow(len(hdrPrefix) + len(name) + len(d) + 32)
	wb.Write(hdrPrefix)
	wb.WriteString(strconv.Itoa(len(d)))
	if !t.IsZero() {
		wb.WriteByte(' ')
		wb.WriteString(strconv.FormatInt(t.UnixMilli(), 10))
	}
	if name != "" {
		wb.WriteByte(' ')
		wb.WriteString(name)
	}
	wb.WriteByte('\n')
	// for readability, if the data doesn't end with newline,
	// we add one at the end
	n := len(d)
	if n > 0 {
		wb.Write(d)
		if d[n-1] != '\n' {
			wb.WriteByte('\n')
		}
	}
	return wb.Bytes()
}

// Writer appends entries to io.Writer
type Writer struct {
	w  io.Writer
	mu sync.Mutex
	// for tests
	now func() time.Time
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{
		w:   w,
		now: time.Now,
	}
}

// WriteEntry writes e. If e.Time is zero, current time is used.
func (w *Writer) WriteEntry(e *Entry) error {
	if e.Op == "" || bytes.ContainsAny([]byte(e.Op), "\n") {
		return fmt.Errorf("invalid op '%s'", e.Op)
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	if e.Time.IsZero() {
		e.Time = w.now()
	}
	d := MarshalLine(e.Op, e.Time, e.MarshalBody())
	_, err := w.w.Write(d)
	return err
}

// Write writes an entry for op with key/value pairs
func (w *Writer) Write(op string, kv ...any) error {
	e, err := NewEntry(op, kv...)
	if err != nil {
		return err
	}
	return w.WriteEntry(e)
}

// File is a journal stored in a file
type File struct {
	*Writer
	Path string
	f    *os.File
}

// Open opens journal file for appending, creating it if needed
func Open(path string) (*File, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	return &File{
		Writer: NewWriter(f),
		Path:   path,
		f:      f,
	}, nil
}

// Close syncs and closes the file. It's safe to call on nil receiver.
func (f *File) Close() error {
	if f == nil || f.f == nil {
		return nil
	}
	errSync := f.f.Sync()
	err := f.f.Close()
	f.f = nil
	if errSync != nil {
		return errSync
	}
	return err
}
