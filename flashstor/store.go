package flashstor

import "fmt"

// Store gives access to values and strings stored on a Device.
// Call LoadHeader() once before any other method.
type Store struct {
	dev Device

	// size in bytes of the whole device, as reported by the device
	lenStorage int
	hdr        HeaderInfo
	loaded     bool

	// last error returned by Commit()
	err error
}

// New creates a Store for dev. There should be only one Store per device.
func New(dev Device) *Store {
	return &Store{
		dev: dev,
	}
}

// Device returns the underlying device
func (s *Store) Device() Device {
	return s.dev
}

// LoadHeader reads and validates the header. On success it increments
// the boot count on the device. Any other Status means the device is
// not usable and accessors will fail.
func (s *Store) LoadHeader() Status {
	status, _ := s.load()
	return status
}

// Load is like LoadHeader but returns an error, which also covers
// failure to commit the boot count
func (s *Store) Load() error {
	status, err := s.load()
	if err != nil {
		return err
	}
	return status.Err()
}

// ReadHeader reads the header from dev and validates it against
// the device length. It doesn't modify the device.
func ReadHeader(dev Device) (HeaderInfo, Status) {
	var hdr HeaderInfo
	lenStorage := dev.Len()
	if lenStorage < MinStorageLen {
		return hdr, BadStorLength
	}

	lenHeader := dev.ReadByteAt(offHeaderLen)
	if lenHeader != HeaderSize {
		return hdr, BadHeaderLen
	}

	var d [HeaderSize]byte
	for i := range d {
		d[i] = dev.ReadByteAt(i)
	}
	_ = hdr.UnmarshalBinary(d[:])
	if !hdr.fitsStorage(lenStorage) {
		return hdr, CorruptData
	}
	return hdr, Success
}

// Inspect is like LoadHeader but doesn't increment the boot count.
// Meant for tools that examine a device image.
func (s *Store) Inspect() Status {
	s.loaded = false
	s.hdr = HeaderInfo{}
	s.lenStorage = s.dev.Len()
	hdr, status := ReadHeader(s.dev)
	if status != Success {
		return status
	}
	s.hdr = hdr
	s.loaded = true
	return Success
}

func (s *Store) load() (Status, error) {
	if status := s.Inspect(); status != Success {
		return status, nil
	}
	s.hdr.BootCount++
	s.dev.WriteByteAt(offBootCount, byte(s.hdr.BootCount))
	s.dev.WriteByteAt(offBootCount+1, byte(s.hdr.BootCount>>8))
	if !s.commit() {
		return Success, fmt.Errorf("commit boot count: %w", s.err)
	}
	return Success, nil
}

func (s *Store) commit() bool {
	s.err = commit(s.dev)
	return s.err == nil
}

// Err returns the error from the last commit, if any.
// Mutating accessors return false when commit fails.
func (s *Store) Err() error {
	return s.err
}

// Header returns a copy of the header read by LoadHeader.
// BootCount already includes the increment done by LoadHeader.
// It's zero value when the header is not loaded.
func (s *Store) Header() HeaderInfo {
	return s.hdr
}

// Loaded returns true after a successful LoadHeader
func (s *Store) Loaded() bool {
	return s.loaded
}

// Len returns the length of the device as seen by LoadHeader
func (s *Store) Len() int {
	return s.lenStorage
}

// Regions returns boundaries of value region and string table
func (s *Store) Regions() Regions {
	return s.hdr.regions()
}

// valueInRange checks 0 <= offset && offset+length <= savedBytes.
// Zero length is rejected.
func (s *Store) valueInRange(offset int, length int) bool {
	if !s.loaded || length <= 0 || offset < 0 {
		return false
	}
	return offset <= int(s.hdr.SavedBytes)-length
}

// SetValue writes data at offset within the value region.
// Returns false if the range is outside of value region, in which
// case nothing is written.
func (s *Store) SetValue(offset int, data []byte) bool {
	if !s.valueInRange(offset, len(data)) {
		return false
	}
	addr := s.Regions().ValueStart + offset
	for _, b := range data {
		s.dev.WriteByteAt(addr, b)
		addr++
	}
	return s.commit()
}

// GetValue reads len(buf) bytes at offset within the value region
func (s *Store) GetValue(offset int, buf []byte) bool {
	if !s.valueInRange(offset, len(buf)) {
		return false
	}
	addr := s.Regions().ValueStart + offset
	for i := range buf {
		buf[i] = s.dev.ReadByteAt(addr)
		addr++
	}
	return true
}

func (s *Store) stringAddr(index int) (int, bool) {
	if !s.loaded || index < 0 || index >= int(s.hdr.NumStrings) {
		return 0, false
	}
	return s.Regions().StringStart + index*int(s.hdr.LenStrings), true
}

// SetString writes str into slot index of the string table.
// At most lenStrings bytes are written, the string is cut at first
// zero byte and the rest of the slot is zero-filled, so that
// a shorter string fully replaces a longer one.
// A string of lenStrings bytes or more fills the slot without
// a terminator and reads back truncated to lenStrings-1 bytes.
func (s *Store) SetString(index int, str string) bool {
	addr, ok := s.stringAddr(index)
	if !ok {
		return false
	}
	done := false
	for i := 0; i < int(s.hdr.LenStrings); i++ {
		var b byte
		if !done && i < len(str) {
			b = str[i]
		}
		if b == 0 {
			done = true
		}
		s.dev.WriteByteAt(addr, b)
		addr++
	}
	return s.commit()
}

// GetString reads slot index into buf, which must be at least
// lenStrings bytes long. buf is always zero-terminated, even if
// data on the device is not.
func (s *Store) GetString(index int, buf []byte) bool {
	_, ok := s.getString(index, buf)
	return ok
}

func (s *Store) getString(index int, buf []byte) (int, bool) {
	addr, ok := s.stringAddr(index)
	if !ok {
		return 0, false
	}
	lenStrings := int(s.hdr.LenStrings)
	if len(buf) < max(lenStrings, 1) {
		return 0, false
	}
	n := 0
	for ; n < lenStrings-1; n++ {
		b := s.dev.ReadByteAt(addr)
		buf[n] = b
		if b == 0 {
			break
		}
		addr++
	}
	// ensure string termination
	buf[n] = 0
	return n, true
}

// String returns the string in slot index
func (s *Store) String(index int) (string, bool) {
	buf := make([]byte, max(int(s.hdr.LenStrings), 1))
	n, ok := s.getString(index, buf)
	if !ok {
		return "", false
	}
	return string(buf[:n]), true
}
