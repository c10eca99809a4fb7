package eeprom

import "errors"

// Erased is the value of a byte in erased EEPROM / flash
const Erased = 0xff

var _ Device = &Mem{}

// Device is what flashstor.Device and flashstor.Committer need
type Device interface {
	Len() int
	ReadByteAt(addr int) byte
	WriteByteAt(addr int, b byte)
	Commit() error
}

// Mem is EEPROM kept in memory.
// If Buffered is true, writes only become durable after Commit(),
// like EEPROM emulation on ESP8266. Otherwise every write is durable.
type Mem struct {
	Buffered bool

	// counters, for tests
	Reads   int
	Writes  int
	Commits int

	// if set, returned by Commit() instead of committing
	CommitErr error

	data    []byte
	pending []byte
}

// NewMem creates an erased (all 0xff) device of a given size
func NewMem(size int) *Mem {
	d := make([]byte, size)
	for i := range d {
		d[i] = Erased
	}
	return NewMemFromData(d)
}

// NewMemFromData creates a device with d as its contents. d is not copied.
func NewMemFromData(d []byte) *Mem {
	return &Mem{
		data: d,
	}
}

// NewBufferedMem is like NewMem but writes must be committed
func NewBufferedMem(size int) *Mem {
	m := NewMem(size)
	m.Buffered = true
	return m
}

func (m *Mem) Len() int {
	return len(m.data)
}

func (m *Mem) current() []byte {
	if m.pending != nil {
		return m.pending
	}
	return m.data
}

func (m *Mem) ReadByteAt(addr int) byte {
	m.Reads++
	return m.current()[addr]
}

func (m *Mem) WriteByteAt(addr int, b byte) {
	m.Writes++
	if m.Buffered && m.pending == nil {
		m.pending = append([]byte(nil), m.data...)
	}
	m.current()[addr] = b
}

// Dirty returns true if there are uncommitted writes
func (m *Mem) Dirty() bool {
	return m.pending != nil
}

func (m *Mem) Commit() error {
	m.Commits++
	if m.CommitErr != nil {
		return m.CommitErr
	}
	if m.pending != nil {
		m.data, m.pending = m.pending, nil
	}
	return nil
}

// Durable returns committed contents of the device. Don't modify it.
func (m *Mem) Durable() []byte {
	return m.data
}

// Bytes returns contents as seen by reads, including uncommitted writes.
// Don't modify it.
func (m *Mem) Bytes() []byte {
	return m.current()
}

// ResetCounters zeroes Reads, Writes and Commits
func (m *Mem) ResetCounters() {
	m.Reads, m.Writes, m.Commits = 0, 0, 0
}

// ErrLenMismatch is returned when an image doesn't match device length
var ErrLenMismatch = errors.New("data length doesn't match device length")

// Load replaces contents of the device with d, which must be of the same length
func (m *Mem) Load(d []byte) error {
	if len(d) != len(m.data) {
		return ErrLenMismatch
	}
	copy(m.data, d)
	m.pending = nil
	return nil
}
