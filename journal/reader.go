package journal

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"
)

// Reader reads entries written by Writer
type Reader struct {
	r *bufio.Reader

	// Entry is available after Next(). It's over-written by next Next().
	Entry *Entry

	err  error
	done bool
}

func NewReader(r io.Reader) *Reader {
	return &Reader{
		r: bufio.NewReader(r),
	}
}

// Err returns error from last Next(). io.EOF is not an error.
func (r *Reader) Err() error {
	return r.err
}

func (r *Reader) fail(hdr []byte) bool {
	r.err = fmt.Errorf("unexpected header '%s'", bytes.TrimSpace(hdr))
	return false
}

// Next reads next entry. Returns false when there are no more
// entries. Check Err() to see if there were errors.
func (r *Reader) Next() bool {
	if r.err != nil || r.done {
		return false
	}
	// "--- ${size} ${timestamp_in_unix_epoch_ms} ${op}\n"
	hdr, err := r.r.ReadBytes('\n')
	if err != nil {
		if err == io.EOF && len(hdr) == 0 {
			r.done = true
		} else {
			r.err = err
		}
		return false
	}
	if !bytes.HasPrefix(hdr, hdrPrefix) {
		return r.fail(hdr)
	}
	parts := bytes.SplitN(bytes.TrimSuffix(hdr[len(hdrPrefix):], []byte{'\n'}), []byte{' '}, 3)
	if len(parts) < 3 {
		return r.fail(hdr)
	}
	size, err := strconv.Atoi(string(parts[0]))
	if err != nil || size < 0 {
		return r.fail(hdr)
	}
	ms, err := strconv.ParseInt(string(parts[1]), 10, 64)
	if err != nil {
		return r.fail(hdr)
	}

	d := make([]byte, size)
	if _, err = io.ReadFull(r.r, d); err != nil {
		r.err = err
		return false
	}
	// same as padding logic in MarshalLine
	if size > 0 && d[size-1] != '\n' {
		if _, err = r.r.Discard(1); err != nil {
			r.err = err
			return false
		}
	}
	fields, err := UnmarshalBody(d)
	if err != nil {
		r.err = err
		return false
	}
	r.Entry = &Entry{
		Op:     string(parts[2]),
		Time:   time.UnixMilli(ms),
		Fields: fields,
	}
	return true
}

// ReadFile reads all entries from a journal file
func ReadFile(path string) ([]*Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var res []*Entry
	r := NewReader(f)
	for r.Next() {
		res = append(res, r.Entry)
	}
	return res, r.Err()
}
