package snapshot

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/kjk/flashstor/atomicfile"
	"github.com/klauspost/compress/zstd"
)

// Device is the subset of a device needed to take and restore a snapshot
type Device interface {
	Len() int
	ReadByteAt(addr int) byte
	WriteByteAt(addr int, b byte)
}

type Kind int

const (
	Raw Kind = iota
	Zstd
	Brotli
)

func (k Kind) String() string {
	switch k {
	case Raw:
		return "raw"
	case Zstd:
		return "zstd"
	case Brotli:
		return "brotli"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Ext returns file extension for a kind, including '.'
func (k Kind) Ext() string {
	switch k {
	case Zstd:
		return ".zst"
	case Brotli:
		return ".br"
	}
	return ".bin"
}

// KindFromPath picks the kind based on file extension.
// Anything not .zst or .br is raw.
func KindFromPath(path string) Kind {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".zst":
		return Zstd
	case ".br":
		return Brotli
	}
	return Raw
}

// Read returns the whole content of a device
func Read(dev Device) []byte {
	n := dev.Len()
	d := make([]byte, n)
	for i := 0; i < n; i++ {
		d[i] = dev.ReadByteAt(i)
	}
	return d
}

// Write writes d to a device, byte by byte, skipping bytes that
// already have the right value (EEPROM has limited write cycles).
// Returns number of bytes written.
func Write(dev Device, d []byte) (int, error) {
	if len(d) != dev.Len() {
		return 0, fmt.Errorf("image is %d bytes, device is %d bytes", len(d), dev.Len())
	}
	nWritten := 0
	for i, b := range d {
		if dev.ReadByteAt(i) == b {
			continue
		}
		dev.WriteByteAt(i, b)
		nWritten++
	}
	return nWritten, nil
}

func getErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func brCompress(d []byte) ([]byte, error) {
	var dst bytes.Buffer
	w := brotli.NewWriterLevel(&dst, brotli.BestCompression)
	_, err := w.Write(d)
	err2 := w.Close()
	if err = getErr(err, err2); err != nil {
		return nil, err
	}
	return dst.Bytes(), nil
}

func zstdCompress(d []byte) ([]byte, error) {
	var dst bytes.Buffer
	// images are tiny, concurrency buys nothing
	w, err := zstd.NewWriter(&dst, zstd.WithEncoderLevel(zstd.SpeedBestCompression), zstd.WithEncoderConcurrency(1))
	if err != nil {
		return nil, err
	}
	_, err = w.Write(d)
	err2 := w.Close()
	if err = getErr(err, err2); err != nil {
		return nil, err
	}
	return dst.Bytes(), nil
}

func zstdDecompress(d []byte) ([]byte, error) {
	zr, err := zstd.NewReader(bytes.NewReader(d))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}

// Encode compresses d
func Encode(d []byte, kind Kind) ([]byte, error) {
	switch kind {
	case Raw:
		return d, nil
	case Zstd:
		return zstdCompress(d)
	case Brotli:
		return brCompress(d)
	}
	return nil, fmt.Errorf("unknown snapshot kind %s", kind)
}

// Decode decompresses d
func Decode(d []byte, kind Kind) ([]byte, error) {
	switch kind {
	case Raw:
		return d, nil
	case Zstd:
		return zstdDecompress(d)
	case Brotli:
		return io.ReadAll(brotli.NewReader(bytes.NewReader(d)))
	}
	return nil, fmt.Errorf("unknown snapshot kind %s", kind)
}

// WriteFile saves a snapshot to path, compressed based on extension
func WriteFile(path string, d []byte) error {
	enc, err := Encode(d, KindFromPath(path))
	if err != nil {
		return err
	}
	return atomicfile.WriteFile(path, enc)
}

// ReadFile reads a snapshot saved with WriteFile
func ReadFile(path string) ([]byte, error) {
	d, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	d, err = Decode(d, KindFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("decode '%s': %w", path, err)
	}
	return d, nil
}
