package eeprom

import (
	"fmt"
	"os"

	"github.com/kjk/flashstor/atomicfile"
)

var _ Device = &File{}

// File is EEPROM backed by an image file on disk.
// The whole image is kept in memory. Writes are buffered and
// written to disk (atomically) by Commit().
type File struct {
	*Mem
	Path string
}

// OpenFile opens existing image file
func OpenFile(path string) (*File, error) {
	d, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(d) == 0 {
		return nil, fmt.Errorf("image '%s' is empty", path)
	}
	m := NewMemFromData(d)
	m.Buffered = true
	return &File{
		Mem:  m,
		Path: path,
	}, nil
}

// CreateFile creates an erased image file of a given size.
// Over-writes path if it exists.
func CreateFile(path string, size int) (*File, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid image size %d", size)
	}
	m := NewMem(size)
	m.Buffered = true
	if err := atomicfile.WriteFile(path, m.Durable()); err != nil {
		return nil, err
	}
	return &File{
		Mem:  m,
		Path: path,
	}, nil
}

// Commit writes pending changes to disk. It's a no-op if there are none.
func (f *File) Commit() error {
	if !f.Dirty() {
		f.Commits++
		return nil
	}
	pending := f.Bytes()
	if err := atomicfile.WriteFile(f.Path, pending); err != nil {
		// keep changes pending so that Commit() can be retried
		f.Commits++
		return err
	}
	return f.Mem.Commit()
}

// Load replaces content of the image and writes it to disk
func (f *File) Load(d []byte) error {
	if len(d) != f.Len() {
		return ErrLenMismatch
	}
	if err := atomicfile.WriteFile(f.Path, d); err != nil {
		return err
	}
	return f.Mem.Load(d)
}

// Close commits pending changes
func (f *File) Close() error {
	return f.Commit()
}
