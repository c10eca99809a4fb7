package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/kjk/flashstor/journal"

	"github.com/toon-format/toon-go"
)

var (
	log       *Daily
	eventsLog *Daily

	// Output is where Logf() prints, in addition to the log file
	Output io.Writer = os.Stdout

	// if true, Verbosef() will log messages
	Verbose bool
)

// Daily appends to one file per UTC day, named YYYY-MM-DD.txt.
// Methods are safe to call on nil receiver, which discards writes.
type Daily struct {
	Dir string

	mu   sync.Mutex
	day  string
	file *os.File
	now  func() time.Time
}

func NewDaily(dir string) *Daily {
	return &Daily{
		Dir: dir,
		now: time.Now,
	}
}

// fileFor returns the file for the day of t, switching files at midnight
func (w *Daily) fileFor(t time.Time) (*os.File, error) {
	day := t.UTC().Format("2006-01-02")
	if w.file != nil && w.day == day {
		return w.file, nil
	}
	if err := w.close(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(w.Dir, 0755); err != nil {
		return nil, err
	}
	path := filepath.Join(w.Dir, day+".txt")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	w.file, w.day = f, day
	return f, nil
}

func (w *Daily) Write(d []byte) (int, error) {
	if w == nil {
		return len(d), nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	f, err := w.fileFor(w.now())
	if err != nil {
		return 0, err
	}
	return f.Write(d)
}

func (w *Daily) WriteString(s string) error {
	_, err := w.Write([]byte(s))
	return err
}

func (w *Daily) close() error {
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file, w.day = nil, ""
	return err
}

// Close syncs and closes the current file
func (w *Daily) Close() error {
	if w == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file != nil {
		_ = w.file.Sync()
	}
	return w.close()
}

type Config struct {
	// directory where log files are stored
	// regular logs go to "log" sub-directory, events to "events"
	// if empty, we only log to Output
	Dir string
}

// Init initializes the logging system.
// Files are only created on first write.
func Init(config *Config) {
	if config == nil || config.Dir == "" {
		return
	}
	log = NewDaily(filepath.Join(config.Dir, "log"))
	eventsLog = NewDaily(filepath.Join(config.Dir, "events"))
}

func Close() {
	_ = log.Close()
	_ = eventsLog.Close()
	log, eventsLog = nil, nil
}

func Logf(s string, args ...any) {
	if len(args) > 0 {
		s = fmt.Sprintf(s, args...)
	}
	if Output != nil {
		_, _ = io.WriteString(Output, s)
	}
	_ = log.WriteString(s)
}

func Verbosef(format string, args ...any) {
	if Verbose {
		Logf(format, args...)
	}
}

// callstack returns file:line of callers, one per line
func callstack(skip int) string {
	var pcs [32]uintptr
	n := runtime.Callers(skip+2, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])
	var sb strings.Builder
	for {
		frame, more := frames.Next()
		if !more {
			break
		}
		sb.WriteString(frame.File + ":" + strconv.Itoa(frame.Line) + "\n")
	}
	return sb.String()
}

// Errorf logs an error message, with callstack if Verbose
func Errorf(s string, args ...any) {
	if len(args) > 0 {
		s = fmt.Sprintf(s, args...)
	}
	if !strings.HasSuffix(s, "\n") {
		s += "\n"
	}
	if Verbose {
		s += callstack(1)
	}
	Logf("%s", s)
}

// IfErrf logs and returns true if err is not nil.
// IfErrf(err) logs err.Error(), IfErrf(err, format, args...)
// logs the formatted message.
func IfErrf(err error, a ...any) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	if len(a) > 0 {
		msg = fmt.Sprintf(fmt.Sprint(a[0]), a[1:]...)
	}
	Errorf("%s", msg)
	return true
}

// keyStr converts an event key to string, panics if it's not a simple type
func keyStr(v any) string {
	switch rt := reflect.TypeOf(v); rt.Kind() {
	case reflect.String:
		return v.(string)
	case reflect.Array, reflect.Slice, reflect.Struct, reflect.Map, reflect.Chan, reflect.Interface, reflect.Pointer, reflect.Func:
		panic(fmt.Sprintf("event key is of kind %v", rt.Kind()))
	}
	return fmt.Sprint(v)
}

// MarshalEvent encodes event values in toon format,
// framed like a journal entry
func MarshalEvent(name string, t time.Time, vals ...any) []byte {
	if len(vals)%2 != 0 {
		panic("vals must be key / value pairs")
	}
	var d []byte
	if len(vals) > 0 {
		m := make(map[string]any, len(vals)/2)
		for i := 0; i < len(vals); i += 2 {
			m[keyStr(vals[i])] = vals[i+1]
		}
		d, _ = toon.Marshal(m)
	}
	return journal.MarshalLine(name, t, d)
}

// Event logs a named event with key / value pairs to events log
func Event(name string, vals ...any) {
	d := MarshalEvent(name, time.Now().UTC(), vals...)
	_, _ = eventsLog.Write(d)
	Verbosef("event: %s", d)
}
