package journal

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alecthomas/assert"
)

var testTime = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestMarshalLine(t *testing.T) {
	tests := []struct {
		name string
		t    time.Time
		d    string
		exp  string
	}{
		{"boot", testTime, "count: 2\n", "--- 9 1704067200000 boot\ncount: 2\n"},
		{"boot", testTime, "x", "--- 1 1704067200000 boot\nx\n"},
		{"", time.Time{}, "", "--- 0\n"},
		{"ev", time.Time{}, "", "--- 0 ev\n"},
	}
	for _, test := range tests {
		got := MarshalLine(test.name, test.t, []byte(test.d))
		assert.Equal(t, test.exp, string(got))
	}
}

func TestBodyRoundTrip(t *testing.T) {
	long := strings.Repeat("a", 200)
	e, err := NewEntry(OpSetString, "index", 3, "text", "hello world", "empty", "", "nl", "a\nb", "long", long, "data", []byte{0xde, 0xad})
	assert.NoError(t, err)
	d := e.MarshalBody()
	fields, err := UnmarshalBody(d)
	assert.NoError(t, err)
	assert.Equal(t, e.Fields, fields)

	v, ok := e.Get("data")
	assert.True(t, ok)
	assert.Equal(t, "dead", v)
	v, _ = e.Get("index")
	assert.Equal(t, "3", v)
	_, ok = e.Get("missing")
	assert.False(t, ok)
}

func TestNewEntryErrors(t *testing.T) {
	_, err := NewEntry("op", "key")
	assert.Error(t, err)
	_, err = NewEntry("op", "", "v")
	assert.Error(t, err)
}

func TestUnmarshalBodyErrors(t *testing.T) {
	bad := []string{
		"no colon\n",
		"key:\n",
		"key:-x\n",
		"key:+abc\n",
		"key:+10\nabc\n",
		"key: no newline",
	}
	for _, s := range bad {
		_, err := UnmarshalBody([]byte(s))
		assert.Error(t, err, s)
	}
}

func TestWriteRead(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.now = func() time.Time { return testTime }

	assert.NoError(t, w.Write(OpBoot, "bootCount", 7))
	assert.NoError(t, w.Write(OpSetValue, "offset", 0, "data", []byte{1, 2, 3}))
	assert.NoError(t, w.Write(OpSetString, "index", 1, "text", ""))
	assert.Error(t, w.Write("", "a", "b"))
	assert.Error(t, w.Write("bad\nop"))

	r := NewReader(&buf)
	var entries []*Entry
	for r.Next() {
		entries = append(entries, r.Entry)
	}
	assert.NoError(t, r.Err())
	assert.Equal(t, 3, len(entries))
	assert.Equal(t, OpBoot, entries[0].Op)
	assert.Equal(t, testTime.UnixMilli(), entries[0].Time.UnixMilli())
	v, _ := entries[1].Get("data")
	assert.Equal(t, "010203", v)
	v, ok := entries[2].Get("text")
	assert.True(t, ok)
	assert.Equal(t, "", v)
}

func TestReaderErrors(t *testing.T) {
	bad := []string{
		"garbage\n",
		"--- x 123 op\n",
		"--- 5 123\n",
		"--- 5 abc op\nbody\n",
		"--- 50 123 op\nshort\n",
	}
	for _, s := range bad {
		r := NewReader(strings.NewReader(s))
		assert.False(t, r.Next(), s)
		assert.Error(t, r.Err(), s)
	}

	r := NewReader(strings.NewReader(""))
	assert.False(t, r.Next())
	assert.NoError(t, r.Err())
}

func TestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "journal.txt")
	f, err := Open(path)
	assert.NoError(t, err)
	assert.NoError(t, f.Write(OpFormat, "name", "TEST"))
	assert.NoError(t, f.Close())
	// second Close() is a no-op
	assert.NoError(t, f.Close())

	// appends
	f, err = Open(path)
	assert.NoError(t, err)
	assert.NoError(t, f.Write(OpBoot, "bootCount", 1))
	assert.NoError(t, f.Close())

	entries, err := ReadFile(path)
	assert.NoError(t, err)
	assert.Equal(t, 2, len(entries))
	assert.Equal(t, OpFormat, entries[0].Op)
	assert.Equal(t, OpBoot, entries[1].Op)

	var nilFile *File
	assert.NoError(t, nilFile.Close())
}
