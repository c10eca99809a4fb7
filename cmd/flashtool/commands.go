package main

import (
	"bufio"
	"context"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/kballard/go-shellquote"
	"github.com/kjk/flashstor/atomicfile"
	"github.com/kjk/flashstor/eeprom"
	"github.com/kjk/flashstor/flashstor"
	"github.com/kjk/flashstor/journal"
	"github.com/kjk/flashstor/log"
	"github.com/kjk/flashstor/remote"
	"github.com/kjk/flashstor/snapshot"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/tidwall/pretty"
	"github.com/toon-format/toon-go"
)

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func parseInt(s string, what string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s '%s'", what, s)
	}
	return n, nil
}

func cmdCreate(a *app, args []string) error {
	if len(args) != 2 {
		return errUsage
	}
	size, err := parseInt(args[1], "size")
	if err != nil {
		return err
	}
	f, err := eeprom.CreateFile(args[0], size)
	if err != nil {
		return err
	}
	a.printf("created '%s', %d bytes\n", f.Path, f.Len())
	return nil
}

func cmdFormat(a *app, args []string) error {
	l := &flashstor.Layout{}
	fs := newFlagSet("format")
	fs.StringVar(&l.Name, "name", "FDS", "4 char name")
	fs.IntVar(&l.LenStrings, "lenstr", 16, "length of string slot")
	fs.IntVar(&l.NumStrings, "numstr", 8, "number of string slots")
	fs.IntVar(&l.VersionNum, "version", 1, "version number")
	fs.IntVar(&l.ProductID, "product", 0, "product id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 0 {
		return errUsage
	}
	h, err := flashstor.Format(a.dev, l)
	if err != nil {
		return err
	}
	a.record(journal.OpFormat, "name", l.Name, "lenStrings", l.LenStrings, "numStrings", l.NumStrings, "savedBytes", int(h.SavedBytes))
	a.inspect()
	a.printf("%s\n", h)
	return nil
}

func cmdBoot(a *app, args []string) error {
	if len(args) != 0 {
		return errUsage
	}
	if !a.boot {
		if err := a.loadHeader(); err != nil {
			return err
		}
	}
	st, err := a.store()
	if err != nil {
		return err
	}
	a.printf("boot count: %d\n", st.Header().BootCount)
	return nil
}

// headerMap is header info for json and toon output
func headerMap(h *flashstor.HeaderInfo, status flashstor.Status, r flashstor.Regions) map[string]any {
	return map[string]any{
		"status":      status.String(),
		"name":        h.NameString(),
		"headerLen":   int(h.HeaderLen),
		"lenStrings":  int(h.LenStrings),
		"numStrings":  int(h.NumStrings),
		"versionNum":  int(h.VersionNum),
		"productID":   int(h.ProductID),
		"flashLen":    int(h.FlashLen),
		"savedBytes":  int(h.SavedBytes),
		"bootCount":   int(h.BootCount),
		"valueStart":  r.ValueStart,
		"stringStart": r.StringStart,
	}
}

func cmdInfo(a *app, args []string) error {
	fs := newFlagSet("info")
	format := fs.String("format", "text", "output format: text, json or toon")
	if err := fs.Parse(args); err != nil {
		return err
	}
	// show what's on the device even if it doesn't validate
	h, status := flashstor.ReadHeader(a.dev)
	if a.st.Loaded() {
		h = a.st.Header()
	}
	r := a.st.Regions()
	switch *format {
	case "text":
		a.printf("image:   %s (%d bytes)\n", a.dev.Path, a.dev.Len())
		a.printf("status:  %s\n", status)
		a.printf("header:  %s\n", &h)
		if status == flashstor.Success {
			a.printf("values:  [%d, %d)\n", r.ValueStart, r.ValueEnd)
			a.printf("strings: [%d, %d)\n", r.StringStart, r.StringEnd)
		}
	case "json":
		d, err := json.Marshal(headerMap(&h, status, r))
		if err != nil {
			return err
		}
		a.printf("%s", pretty.Pretty(d))
	case "toon":
		d, err := toon.Marshal(headerMap(&h, status, r))
		if err != nil {
			return err
		}
		a.printf("%s\n", d)
	default:
		return fmt.Errorf("unknown format '%s'", *format)
	}
	return nil
}

func cmdGetValue(a *app, args []string) error {
	if len(args) != 2 {
		return errUsage
	}
	st, err := a.store()
	if err != nil {
		return err
	}
	offset, err := parseInt(args[0], "offset")
	if err != nil {
		return err
	}
	length, err := parseInt(args[1], "length")
	if err != nil {
		return err
	}
	if length <= 0 {
		return fmt.Errorf("invalid length %d", length)
	}
	buf := make([]byte, length)
	if !st.GetValue(offset, buf) {
		return fmt.Errorf("offset %d length %d is outside of value region of %d bytes", offset, length, st.Header().SavedBytes)
	}
	a.printf("%s\n", hex.EncodeToString(buf))
	return nil
}

func cmdSetValue(a *app, args []string) error {
	if len(args) != 2 {
		return errUsage
	}
	st, err := a.store()
	if err != nil {
		return err
	}
	offset, err := parseInt(args[0], "offset")
	if err != nil {
		return err
	}
	data, err := hex.DecodeString(args[1])
	if err != nil || len(data) == 0 {
		return fmt.Errorf("invalid hex value '%s'", args[1])
	}
	if !st.SetValue(offset, data) {
		if err = st.Err(); err != nil {
			return err
		}
		return fmt.Errorf("offset %d length %d is outside of value region of %d bytes", offset, len(data), st.Header().SavedBytes)
	}
	a.record(journal.OpSetValue, "offset", offset, "data", hex.EncodeToString(data))
	return nil
}

func cmdGetString(a *app, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	st, err := a.store()
	if err != nil {
		return err
	}
	idx, err := parseInt(args[0], "index")
	if err != nil {
		return err
	}
	s, ok := st.String(idx)
	if !ok {
		return fmt.Errorf("index %d is outside of string table of %d slots", idx, st.Header().NumStrings)
	}
	a.printf("%s\n", s)
	return nil
}

func cmdSetString(a *app, args []string) error {
	if len(args) != 2 {
		return errUsage
	}
	st, err := a.store()
	if err != nil {
		return err
	}
	idx, err := parseInt(args[0], "index")
	if err != nil {
		return err
	}
	text := args[1]
	if !st.SetString(idx, text) {
		if err = st.Err(); err != nil {
			return err
		}
		return fmt.Errorf("index %d is outside of string table of %d slots", idx, st.Header().NumStrings)
	}
	if n := int(st.Header().LenStrings) - 1; len(text) > n {
		log.Logf("warning: '%s' truncated to %d bytes\n", text, n)
	}
	a.record(journal.OpSetString, "index", idx, "text", text)
	return nil
}

func cmdStrings(a *app, args []string) error {
	if len(args) != 0 {
		return errUsage
	}
	st, err := a.store()
	if err != nil {
		return err
	}
	n := int(st.Header().NumStrings)
	for i := 0; i < n; i++ {
		s, _ := st.String(i)
		a.printf("%3d: %q\n", i, s)
	}
	return nil
}

func cmdDump(a *app, args []string) error {
	fs := newFlagSet("dump")
	useSpew := fs.Bool("spew", false, "dump with go-spew")
	if err := fs.Parse(args); err != nil {
		return err
	}
	d := snapshot.Read(a.dev)
	if !a.st.Loaded() {
		a.printf("%s: %s, dumping whole image\n", a.dev.Path, a.status)
		a.printf("%s", hex.Dump(d))
		return nil
	}
	h := a.st.Header()
	r := a.st.Regions()
	if *useSpew {
		values := d[r.ValueStart:r.ValueEnd]
		var slots [][]byte
		for i := r.StringStart; i < r.StringEnd; i += int(h.LenStrings) {
			slots = append(slots, d[i:i+int(h.LenStrings)])
		}
		cfg := spew.ConfigState{Indent: "  ", SortKeys: true, DisableMethods: true}
		cfg.Fdump(a.out, h, r, values, slots)
		return nil
	}
	a.printf("header [0, %d):\n%s", h.HeaderLen, hex.Dump(d[:h.HeaderLen]))
	a.printf("values [%d, %d):\n%s", r.ValueStart, r.ValueEnd, hex.Dump(d[r.ValueStart:r.ValueEnd]))
	a.printf("strings [%d, %d):\n%s", r.StringStart, r.StringEnd, hex.Dump(d[r.StringStart:r.StringEnd]))
	return nil
}

// diffImages returns unified diff of hex dumps of 2 images
// or empty string if they are identical
func diffImages(name1 string, d1 []byte, name2 string, d2 []byte) (string, error) {
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(hex.Dump(d1)),
		B:        difflib.SplitLines(hex.Dump(d2)),
		FromFile: name1,
		ToFile:   name2,
		Context:  1,
	}
	return difflib.GetUnifiedDiffString(diff)
}

func cmdDiff(a *app, args []string) error {
	if len(args) != 2 {
		return errUsage
	}
	d1, err := snapshot.ReadFile(args[0])
	if err != nil {
		return err
	}
	d2, err := snapshot.ReadFile(args[1])
	if err != nil {
		return err
	}
	s, err := diffImages(args[0], d1, args[1], d2)
	if err != nil {
		return err
	}
	if s == "" {
		a.printf("images are identical\n")
		return nil
	}
	a.printf("%s", s)
	return nil
}

func cmdSnapshot(a *app, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	d := snapshot.Read(a.dev)
	if err := snapshot.WriteFile(args[0], d); err != nil {
		return err
	}
	a.printf("saved %d bytes to '%s' (%s)\n", len(d), args[0], snapshot.KindFromPath(args[0]))
	return nil
}

func (a *app) restore(d []byte, from string) error {
	n, err := snapshot.Write(a.dev, d)
	if err != nil {
		return err
	}
	if err = a.dev.Commit(); err != nil {
		return err
	}
	a.record(journal.OpRestore, "from", from, "changed", n)
	a.inspect()
	a.printf("restored from '%s', %d bytes changed, header: %s\n", from, n, a.status)
	return nil
}

func cmdRestore(a *app, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	d, err := snapshot.ReadFile(args[0])
	if err != nil {
		return err
	}
	return a.restore(d, args[0])
}

func newRemote(ctx context.Context) (*remote.Client, error) {
	config := remote.ConfigFromEnv()
	if log.Verbose {
		config.RequestTrace = log.Output
	}
	return remote.New(ctx, config)
}

func cmdPush(a *app, args []string) error {
	fs := newFlagSet("push")
	prefix := fs.String("prefix", "flashstor", "key prefix")
	ext := fs.String("ext", ".zst", "compression: .bin, .zst or .br")
	if err := fs.Parse(args); err != nil {
		return err
	}
	st, err := a.store()
	if err != nil {
		return err
	}
	ctx := context.Background()
	c, err := newRemote(ctx)
	if err != nil {
		return err
	}
	h := st.Header()
	key := remote.KeyFor(*prefix, &h, snapshot.KindFromPath(*ext))
	info, err := c.Push(ctx, key, snapshot.Read(a.dev))
	if err != nil {
		return fmt.Errorf("upload '%s': %w", key, err)
	}
	a.printf("uploaded '%s', %d bytes\n", info.Key, info.Size)
	return nil
}

func cmdPull(a *app, args []string) error {
	if len(args) != 2 {
		return errUsage
	}
	ctx := context.Background()
	c, err := newRemote(ctx)
	if err != nil {
		return err
	}
	key, path := args[0], args[1]
	d, err := c.Pull(ctx, key)
	if err != nil {
		return err
	}
	if err = atomicfile.WriteFile(path, d); err != nil {
		return err
	}
	a.printf("downloaded '%s' to '%s', %d bytes\n", key, path, len(d))
	return nil
}

func cmdList(a *app, args []string) error {
	fs := newFlagSet("ls")
	prefix := fs.String("prefix", "", "key prefix")
	if err := fs.Parse(args); err != nil {
		return err
	}
	ctx := context.Background()
	c, err := newRemote(ctx)
	if err != nil {
		return err
	}
	keys, err := c.List(ctx, *prefix)
	if err != nil {
		return err
	}
	for _, k := range keys {
		a.printf("%s\n", k)
	}
	return nil
}

func formatEntry(e *journal.Entry) string {
	parts := []string{e.Time.UTC().Format("2006-01-02 15:04:05"), e.Op}
	for _, f := range e.Fields {
		parts = append(parts, f.Key+"="+strconv.Quote(f.Value))
	}
	return strings.Join(parts, " ")
}

func cmdJournal(a *app, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	entries, err := journal.ReadFile(args[0])
	if err != nil {
		return err
	}
	for _, e := range entries {
		a.printf("%s\n", formatEntry(e))
	}
	return nil
}

func cmdShell(a *app, args []string) error {
	if len(args) != 0 || a.inShell {
		return errUsage
	}
	a.inShell = true
	defer func() { a.inShell = false }()

	a.printf("%s: %s. Type 'help' for commands, 'exit' to quit.\n", a.dev.Path, a.status)
	r := bufio.NewScanner(stdin)
	for {
		a.printf("> ")
		if !r.Scan() {
			a.printf("\n")
			return r.Err()
		}
		line := strings.TrimSpace(r.Text())
		if line == "" {
			continue
		}
		words, err := shellquote.Split(line)
		if err != nil {
			a.printf("parse error: %s\n", err)
			continue
		}
		switch words[0] {
		case "exit", "quit":
			return nil
		case "help":
			printUsage(a.out)
			continue
		}
		if err = a.exec(words[0], words[1:]); err != nil {
			a.printf("error: %s\n", err)
		}
	}
}
