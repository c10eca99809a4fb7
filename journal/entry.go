package journal

import (
	"bytes"
	"fmt"
	"strconv"
	"time"
)

/*
Body of an entry is a list of "key: value\n" lines.

When value is long (> 120 chars) or has characters that are not
printable ASCII, we serialize it as:
key:+$len\n
value\n
*/

// Operations recorded by flashtool
const (
	OpFormat    = "format"
	OpBoot      = "boot"
	OpSetValue  = "set-value"
	OpSetString = "set-string"
	OpRestore   = "restore"
)

type Field struct {
	Key   string
	Value string
}

// Entry is a single journal record
type Entry struct {
	Op     string
	Time   time.Time
	Fields []Field
}

// Get returns value for a given key
func (e *Entry) Get(key string) (string, bool) {
	for _, f := range e.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return "", false
}

func toStr(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case []byte:
		return fmt.Sprintf("%x", v)
	}
	return fmt.Sprintf("%v", v)
}

// NewEntry creates an entry from key/value pairs.
// []byte values are hex-encoded.
func NewEntry(op string, kv ...any) (*Entry, error) {
	n := len(kv)
	if n%2 != 0 {
		return nil, fmt.Errorf("invalid number of args: %d. Should be multiple of 2", n)
	}
	e := &Entry{Op: op}
	for i := 0; i < n; i += 2 {
		k := toStr(kv[i])
		if k == "" {
			return nil, fmt.Errorf("empty key")
		}
		e.Fields = append(e.Fields, Field{Key: k, Value: toStr(kv[i+1])})
	}
	return e, nil
}

func serializableOnLine(s string) bool {
	for i := 0; i < len(s); i++ {
		b := s[i]
		if b < 32 || b > 127 {
			return false
		}
	}
	return true
}

// return true if value needs to be serialized in long,
// size-prefixed format
func needsLongFormat(s string) bool {
	return len(s) == 0 || len(s) > 120 || !serializableOnLine(s)
}

// MarshalBody serializes fields of the entry
func (e *Entry) MarshalBody() []byte {
	var buf bytes.Buffer
	for _, f := range e.Fields {
		buf.WriteString(f.Key)
		if needsLongFormat(f.Value) {
			buf.WriteString(":+")
			buf.WriteString(strconv.Itoa(len(f.Value)))
			buf.WriteByte('\n')
			buf.WriteString(f.Value)
			// for readability next key always starts on a new line
			buf.WriteByte('\n')
			continue
		}
		buf.WriteString(": ")
		buf.WriteString(f.Value)
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

func badLine(line []byte) error {
	return fmt.Errorf("line in unrecognized format: '%s'", line)
}

// UnmarshalBody parses data created with MarshalBody
func UnmarshalBody(d []byte) ([]Field, error) {
	var res []Field
	for len(d) > 0 {
		idx := bytes.IndexByte(d, '\n')
		if idx == -1 {
			return nil, fmt.Errorf("missing '\\n' at end of '%s'", d)
		}
		line := d[:idx]
		d = d[idx+1:]
		idx = bytes.IndexByte(line, ':')
		if idx == -1 || idx+1 >= len(line) {
			return nil, badLine(line)
		}
		key := string(line[:idx])
		kind := line[idx+1]
		val := line[idx+2:]
		if kind == ' ' {
			res = append(res, Field{Key: key, Value: string(val)})
			continue
		}
		if kind != '+' {
			return nil, badLine(line)
		}
		n, err := strconv.Atoi(string(val))
		if err != nil || n < 0 {
			return nil, badLine(line)
		}
		if n > len(d) {
			return nil, fmt.Errorf("length of value %d greater than remaining data of size %d", n, len(d))
		}
		res = append(res, Field{Key: key, Value: string(d[:n])})
		d = d[n:]
		if len(d) > 0 && d[0] == '\n' {
			d = d[1:]
		}
	}
	return res, nil
}
