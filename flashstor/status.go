package flashstor

import "errors"

// Status is the result of LoadHeader
type Status int

const (
	Success Status = iota
	// device is shorter than MinStorageLen
	BadStorLength
	// headerLen stored on the device is not HeaderSize
	BadHeaderLen
	// headerLen + savedBytes + numStrings*lenStrings != device length
	CorruptData
)

var (
	ErrBadStorLength = errors.New("storage smaller than minimum length")
	ErrBadHeaderLen  = errors.New("header length doesn't match")
	ErrCorruptData   = errors.New("region lengths don't match storage length")
)

func (s Status) String() string {
	switch s {
	case Success:
		return "Success"
	case BadStorLength:
		return "BadStorLength"
	case BadHeaderLen:
		return "BadHeaderLen"
	case CorruptData:
		return "CorruptData"
	}
	return "Status(unknown)"
}

// Err returns nil for Success and a sentinel error otherwise
func (s Status) Err() error {
	switch s {
	case Success:
		return nil
	case BadStorLength:
		return ErrBadStorLength
	case BadHeaderLen:
		return ErrBadHeaderLen
	case CorruptData:
		return ErrCorruptData
	}
	return errors.New(s.String())
}
