package flashstor

// Device is byte-addressable non-volatile storage.
// Reads and writes are assumed to always succeed.
type Device interface {
	Len() int
	ReadByteAt(addr int) byte
	WriteByteAt(addr int, b byte)
}

// Committer is implemented by devices that buffer writes in RAM
// (e.g. EEPROM emulated in flash) and must be told to persist them
type Committer interface {
	Commit() error
}

func commit(dev Device) error {
	if c, ok := dev.(Committer); ok {
		return c.Commit()
	}
	return nil
}
