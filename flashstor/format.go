package flashstor

import (
	"errors"
	"fmt"
	"math"
)

var ErrBadLayout = errors.New("bad layout")

// Layout describes how to provision a blank device.
// Size of value region is whatever is left after the header
// and the string table.
type Layout struct {
	Name       string // at most 4 chars
	LenStrings int
	NumStrings int
	VersionNum int
	ProductID  int
}

func badLayout(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrBadLayout, fmt.Sprintf(format, args...))
}

func checkByte(name string, v int) error {
	if v < 0 || v > math.MaxUint8 {
		return badLayout("%s is %d, must be 0...%d", name, v, math.MaxUint8)
	}
	return nil
}

// HeaderFor builds the header that Format would write to a device
// of devLen bytes
func (l *Layout) HeaderFor(devLen int) (*HeaderInfo, error) {
	if devLen < MinStorageLen {
		return nil, fmt.Errorf("%w: length is %d", ErrBadStorLength, devLen)
	}
	if devLen > math.MaxUint16 {
		return nil, badLayout("device length %d doesn't fit in 16 bits", devLen)
	}
	if len(l.Name) > 4 {
		return nil, badLayout("name '%s' is longer than 4 chars", l.Name)
	}
	if l.LenStrings < 1 && l.NumStrings > 0 {
		return nil, badLayout("lenStrings must be at least 1")
	}
	for _, f := range []struct {
		name string
		v    int
	}{{"lenStrings", l.LenStrings}, {"numStrings", l.NumStrings}, {"versionNum", l.VersionNum}} {
		if err := checkByte(f.name, f.v); err != nil {
			return nil, err
		}
	}
	if l.ProductID < 0 || l.ProductID > math.MaxUint16 {
		return nil, badLayout("productID is %d, must be 0...%d", l.ProductID, math.MaxUint16)
	}
	savedBytes := devLen - HeaderSize - l.NumStrings*l.LenStrings
	if savedBytes < 0 {
		return nil, badLayout("string table of %d x %d bytes doesn't fit in %d bytes", l.NumStrings, l.LenStrings, devLen)
	}

	h := &HeaderInfo{
		HeaderLen:  HeaderSize,
		LenStrings: uint8(l.LenStrings),
		NumStrings: uint8(l.NumStrings),
		VersionNum: uint8(l.VersionNum),
		ProductID:  uint16(l.ProductID),
		FlashLen:   uint16(devLen),
		SavedBytes: uint16(savedBytes),
	}
	copy(h.Name[:], l.Name)
	return h, nil
}

// Format writes a fresh header with boot count 0 and zeroes the value
// region and string table. All data on the device is lost.
func Format(dev Device, l *Layout) (*HeaderInfo, error) {
	h, err := l.HeaderFor(dev.Len())
	if err != nil {
		return nil, err
	}
	d, _ := h.MarshalBinary()
	for addr, b := range d {
		dev.WriteByteAt(addr, b)
	}
	for addr := HeaderSize; addr < dev.Len(); addr++ {
		dev.WriteByteAt(addr, 0)
	}
	if err = commit(dev); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return h, nil
}
