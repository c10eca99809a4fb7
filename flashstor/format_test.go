package flashstor

import (
	"errors"
	"testing"

	"github.com/alecthomas/assert"
	"github.com/kjk/flashstor/eeprom"
)

func TestFormatThenLoad(t *testing.T) {
	m := eeprom.NewBufferedMem(4096)
	l := &Layout{
		Name:       "WTHR",
		LenStrings: 24,
		NumStrings: 10,
		VersionNum: 2,
		ProductID:  771,
	}
	h, err := Format(m, l)
	assert.NoError(t, err)
	assert.False(t, m.Dirty())
	assert.Equal(t, uint16(4096-16-240), h.SavedBytes)
	assert.Equal(t, uint16(4096), h.FlashLen)
	assert.Equal(t, uint16(0), h.BootCount)

	st := New(m)
	assert.Equal(t, Success, st.LoadHeader())
	got := st.Header()
	assert.Equal(t, "WTHR", got.NameString())
	assert.Equal(t, uint8(2), got.VersionNum)
	assert.Equal(t, uint16(771), got.ProductID)
	assert.Equal(t, uint16(1), got.BootCount)

	// regions are zeroed
	s, ok := st.String(9)
	assert.True(t, ok)
	assert.Equal(t, "", s)
	buf := []byte{1, 2}
	assert.True(t, st.GetValue(0, buf))
	assert.Equal(t, []byte{0, 0}, buf)
}

func TestFormatReference(t *testing.T) {
	m := eeprom.NewMem(128)
	_, err := Format(m, &Layout{Name: "AB", LenStrings: 8, NumStrings: 4})
	assert.NoError(t, err)
	exp := []byte{'A', 'B', 0, 0, 16, 8, 4, 0, 0, 0, 128, 0, 80, 0, 0, 0}
	assert.Equal(t, exp, m.Durable()[:HeaderSize])
}

func TestFormatBadLayout(t *testing.T) {
	tests := []struct {
		devLen int
		l      Layout
	}{
		{128, Layout{Name: "TOOLONG", LenStrings: 8, NumStrings: 1}},
		{128, Layout{LenStrings: 0, NumStrings: 1}},
		{128, Layout{LenStrings: 256, NumStrings: 1}},
		{128, Layout{LenStrings: 8, NumStrings: 300}},
		{128, Layout{LenStrings: 8, NumStrings: 1, VersionNum: -1}},
		{128, Layout{LenStrings: 8, NumStrings: 1, ProductID: 70000}},
		{128, Layout{LenStrings: 100, NumStrings: 2}},
		{70000, Layout{LenStrings: 8, NumStrings: 1}},
	}
	for _, test := range tests {
		m := eeprom.NewMem(test.devLen)
		_, err := Format(m, &test.l)
		assert.True(t, errors.Is(err, ErrBadLayout), "%#v: %v", test.l, err)
		assert.Equal(t, 0, m.Writes)
	}

	_, err := Format(eeprom.NewMem(64), &Layout{LenStrings: 8, NumStrings: 1})
	assert.True(t, errors.Is(err, ErrBadStorLength))
}

func TestFormatCommitError(t *testing.T) {
	m := eeprom.NewBufferedMem(256)
	m.CommitErr = errors.New("simulated")
	_, err := Format(m, &Layout{LenStrings: 8, NumStrings: 1})
	assert.Error(t, err)
	assert.True(t, m.Dirty())
}
