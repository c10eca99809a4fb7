package eeprom

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/assert"
)

func TestCreateAndOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dev.bin")
	f, err := CreateFile(path, 512)
	assert.NoError(t, err)
	assert.Equal(t, 512, f.Len())

	d, err := os.ReadFile(path)
	assert.NoError(t, err)
	assert.Equal(t, 512, len(d))
	assert.Equal(t, byte(Erased), d[100])

	f.WriteByteAt(100, 42)
	// not committed, not visible after reopen
	f2, err := OpenFile(path)
	assert.NoError(t, err)
	assert.Equal(t, byte(Erased), f2.ReadByteAt(100))

	err = f.Commit()
	assert.NoError(t, err)
	f2, err = OpenFile(path)
	assert.NoError(t, err)
	assert.Equal(t, byte(42), f2.ReadByteAt(100))

	// Close() commits
	f2.WriteByteAt(101, 43)
	assert.NoError(t, f2.Close())
	f3, err := OpenFile(path)
	assert.NoError(t, err)
	assert.Equal(t, byte(43), f3.ReadByteAt(101))
}

func TestFileLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dev.bin")
	f, err := CreateFile(path, 128)
	assert.NoError(t, err)

	err = f.Load(make([]byte, 64))
	assert.Equal(t, ErrLenMismatch, err)

	d := make([]byte, 128)
	d[0] = 'F'
	err = f.Load(d)
	assert.NoError(t, err)
	d2, err := os.ReadFile(path)
	assert.NoError(t, err)
	assert.Equal(t, d, d2)
}

func TestFileErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := OpenFile(filepath.Join(dir, "missing.bin"))
	assert.Error(t, err)

	_, err = CreateFile(filepath.Join(dir, "zero.bin"), 0)
	assert.Error(t, err)

	empty := filepath.Join(dir, "empty.bin")
	assert.NoError(t, os.WriteFile(empty, nil, 0644))
	_, err = OpenFile(empty)
	assert.Error(t, err)
}
