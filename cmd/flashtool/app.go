package main

import (
	"fmt"
	"io"
	"os"

	"github.com/kjk/flashstor/eeprom"
	"github.com/kjk/flashstor/flashstor"
	"github.com/kjk/flashstor/journal"
	"github.com/kjk/flashstor/log"
)

// stdin is read by the shell command, over-written in tests
var stdin io.Reader = os.Stdin

// app is the state shared by commands: one device image, opened
// once per process (or per shell session)
type app struct {
	out  io.Writer
	boot bool

	dev    *eeprom.File
	st     *flashstor.Store
	status flashstor.Status

	jr      *journal.File
	inShell bool
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

func usageErr(c *command) error {
	return fmt.Errorf("%w: usage: %s %s", errUsage, c.name, c.args)
}

func (a *app) exec(name string, args []string) error {
	c := findCommand(name)
	if c == nil {
		return fmt.Errorf("unknown command '%s'", name)
	}
	if c.image && a.dev == nil {
		if len(args) == 0 {
			return usageErr(c)
		}
		if err := a.openImage(args[0]); err != nil {
			return err
		}
		args = args[1:]
	}
	log.Verbosef("exec: %s %v\n", name, args)
	err := c.run(a, args)
	if err == errUsage {
		return usageErr(c)
	}
	return err
}

func (a *app) openImage(path string) error {
	dev, err := eeprom.OpenFile(path)
	if err != nil {
		return err
	}
	a.dev = dev
	a.st = flashstor.New(dev)
	if a.boot {
		return a.loadHeader()
	}
	a.inspect()
	return nil
}

// inspect validates the header without modifying the image
func (a *app) inspect() {
	a.status = a.st.Inspect()
	log.Verbosef("%s: %s\n", a.dev.Path, a.status)
}

// loadHeader loads the header like firmware does on boot
func (a *app) loadHeader() error {
	a.status = a.st.LoadHeader()
	if a.status != flashstor.Success {
		return nil
	}
	h := a.st.Header()
	a.record(journal.OpBoot, "bootCount", int(h.BootCount))
	if err := a.st.Err(); err != nil {
		return fmt.Errorf("commit boot count: %w", err)
	}
	return nil
}

// store returns the store if header is valid
func (a *app) store() (*flashstor.Store, error) {
	if a.st == nil || !a.st.Loaded() {
		return nil, fmt.Errorf("'%s': %w", a.dev.Path, a.status.Err())
	}
	return a.st, nil
}

func (a *app) openJournal(path string) error {
	jr, err := journal.Open(path)
	if err != nil {
		return err
	}
	a.jr = jr
	return nil
}

// record writes mutation to the journal and to events log.
// Values must be strings or ints.
func (a *app) record(op string, kv ...any) {
	if a.dev != nil {
		kv = append([]any{"image", a.dev.Path}, kv...)
	}
	log.Event(op, kv...)
	if a.jr == nil {
		return
	}
	err := a.jr.Write(op, kv...)
	log.IfErrf(err, "journal write failed with '%s'", err)
}

func (a *app) close() {
	if a.dev != nil {
		err := a.dev.Close()
		log.IfErrf(err, "closing '%s' failed with '%s'", a.dev.Path, err)
		a.dev = nil
	}
	if a.jr != nil {
		_ = a.jr.Close()
		a.jr = nil
	}
}
