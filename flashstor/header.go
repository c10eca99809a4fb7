package flashstor

import (
	"encoding/binary"
	"fmt"
	"strings"
)

const (
	// HeaderSize is the size of serialized HeaderInfo
	HeaderSize = 16
	// MinStorageLen is the smallest device we accept
	MinStorageLen = 128

	offName       = 0
	offHeaderLen  = 4
	offLenStrings = 5
	offNumStrings = 6
	offVersionNum = 7
	offProductID  = 8
	offFlashLen   = 10
	offSavedBytes = 12
	offBootCount  = 14
)

// HeaderInfo is stored at address 0 of the device.
// Multi-byte fields are little-endian.
type HeaderInfo struct {
	Name       [4]byte // 4 ASCII chars, not terminated
	HeaderLen  uint8   // length of the header (HeaderSize)
	LenStrings uint8   // length of each slot in string table
	NumStrings uint8   // number of slots in string table
	VersionNum uint8   // string table / software version
	ProductID  uint16  // product ID or serial number
	FlashLen   uint16  // length of the device, informational
	SavedBytes uint16  // length of value region
	BootCount  uint16  // number of successful LoadHeader() calls
}

// NameString returns Name without trailing zero bytes
func (h *HeaderInfo) NameString() string {
	return strings.TrimRight(string(h.Name[:]), "\x00")
}

func (h *HeaderInfo) String() string {
	return fmt.Sprintf("name: %q headerLen: %d lenStrings: %d numStrings: %d version: %d productID: %d flashLen: %d savedBytes: %d bootCount: %d",
		h.NameString(), h.HeaderLen, h.LenStrings, h.NumStrings, h.VersionNum, h.ProductID, h.FlashLen, h.SavedBytes, h.BootCount)
}

// AppendBinary appends serialized header to d
func (h *HeaderInfo) AppendBinary(d []byte) ([]byte, error) {
	d = append(d, h.Name[:]...)
	d = append(d, h.HeaderLen, h.LenStrings, h.NumStrings, h.VersionNum)
	d = binary.LittleEndian.AppendUint16(d, h.ProductID)
	d = binary.LittleEndian.AppendUint16(d, h.FlashLen)
	d = binary.LittleEndian.AppendUint16(d, h.SavedBytes)
	d = binary.LittleEndian.AppendUint16(d, h.BootCount)
	return d, nil
}

func (h *HeaderInfo) MarshalBinary() ([]byte, error) {
	return h.AppendBinary(make([]byte, 0, HeaderSize))
}

func (h *HeaderInfo) UnmarshalBinary(d []byte) error {
	if len(d) < HeaderSize {
		return fmt.Errorf("header: need %d bytes, got %d", HeaderSize, len(d))
	}
	copy(h.Name[:], d[offName:offName+4])
	h.HeaderLen = d[offHeaderLen]
	h.LenStrings = d[offLenStrings]
	h.NumStrings = d[offNumStrings]
	h.VersionNum = d[offVersionNum]
	h.ProductID = binary.LittleEndian.Uint16(d[offProductID:])
	h.FlashLen = binary.LittleEndian.Uint16(d[offFlashLen:])
	h.SavedBytes = binary.LittleEndian.Uint16(d[offSavedBytes:])
	h.BootCount = binary.LittleEndian.Uint16(d[offBootCount:])
	return nil
}

// stringTableLen is numStrings * lenStrings
func (h *HeaderInfo) stringTableLen() int {
	return int(h.NumStrings) * int(h.LenStrings)
}

// fitsStorage checks that the 3 regions add up to exactly storLen
func (h *HeaderInfo) fitsStorage(storLen int) bool {
	return int(h.SavedBytes) == storLen-int(h.HeaderLen)-h.stringTableLen()
}

// Regions describes where value region and string table live.
// End offsets are exclusive.
type Regions struct {
	ValueStart  int
	ValueEnd    int
	StringStart int
	StringEnd   int
}

func (h *HeaderInfo) regions() Regions {
	valStart := int(h.HeaderLen)
	valEnd := valStart + int(h.SavedBytes)
	return Regions{
		ValueStart:  valStart,
		ValueEnd:    valEnd,
		StringStart: valEnd,
		StringEnd:   valEnd + h.stringTableLen(),
	}
}
