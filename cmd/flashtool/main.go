package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/kjk/flashstor/log"
)

var errUsage = errors.New("invalid arguments")

type command struct {
	name  string
	args  string
	help  string
	run   func(a *app, args []string) error
	image bool // first argument is path of device image, opened before run
}

var commands []*command

func init() {
	commands = []*command{
		{name: "create", args: "<image> <size>", help: "create erased image file", run: cmdCreate},
		{name: "format", args: "<image> [-name N] [-lenstr L] [-numstr N] [-version V] [-product P]", help: "write fresh layout", run: cmdFormat, image: true},
		{name: "boot", args: "<image>", help: "load header like firmware does, increments boot count", run: cmdBoot, image: true},
		{name: "info", args: "<image> [-format text|json|toon]", help: "show header", run: cmdInfo, image: true},
		{name: "get-value", args: "<image> <offset> <length>", help: "read bytes from value region", run: cmdGetValue, image: true},
		{name: "set-value", args: "<image> <offset> <hex>", help: "write bytes to value region", run: cmdSetValue, image: true},
		{name: "get-string", args: "<image> <index>", help: "read string slot", run: cmdGetString, image: true},
		{name: "set-string", args: "<image> <index> <text>", help: "write string slot", run: cmdSetString, image: true},
		{name: "strings", args: "<image>", help: "list all string slots", run: cmdStrings, image: true},
		{name: "dump", args: "<image> [-spew]", help: "hex dump of all regions", run: cmdDump, image: true},
		{name: "diff", args: "<image1> <image2>", help: "show differences between images", run: cmdDiff},
		{name: "snapshot", args: "<image> <out.bin|out.zst|out.br>", help: "save snapshot of image", run: cmdSnapshot, image: true},
		{name: "restore", args: "<image> <in.bin|in.zst|in.br>", help: "restore image from snapshot", run: cmdRestore, image: true},
		{name: "push", args: "<image> [-prefix P] [-ext .zst]", help: "upload snapshot to S3 bucket", run: cmdPush, image: true},
		{name: "pull", args: "<key> <image>", help: "download snapshot from S3 bucket", run: cmdPull},
		{name: "ls", args: "[-prefix P]", help: "list snapshots in S3 bucket", run: cmdList},
		{name: "journal", args: "<journal>", help: "show journal entries", run: cmdJournal},
		{name: "shell", args: "<image>", help: "interactive shell", run: cmdShell, image: true},
	}
	sort.Slice(commands, func(i, j int) bool {
		return commands[i].name < commands[j].name
	})
}

func findCommand(name string) *command {
	for _, c := range commands {
		if c.name == name {
			return c
		}
	}
	return nil
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, "usage: flashtool [-v] [-logdir dir] [-journal path] [-boot] <command> [args]\n\ncommands:\n")
	for _, c := range commands {
		fmt.Fprintf(w, "  %-11s %s\n", c.name, c.args)
		fmt.Fprintf(w, "  %-11s   %s\n", "", c.help)
	}
}

type options struct {
	verbose     bool
	logDir      string
	journalPath string
	boot        bool
}

func parseOptions(args []string) (*options, []string, error) {
	opts := &options{}
	fs := flag.NewFlagSet("flashtool", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.BoolVar(&opts.verbose, "v", false, "verbose logging")
	fs.StringVar(&opts.logDir, "logdir", "", "directory for log files")
	fs.StringVar(&opts.journalPath, "journal", "", "append mutations to this journal file")
	fs.BoolVar(&opts.boot, "boot", false, "open image with LoadHeader (increments boot count) instead of read-only inspect")
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	return opts, fs.Args(), nil
}

// run executes one command line, without the program name
func run(stdout io.Writer, args []string) error {
	opts, args, err := parseOptions(args)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		printUsage(stdout)
		return errUsage
	}
	log.Verbose = opts.verbose
	if opts.logDir != "" {
		log.Init(&log.Config{Dir: opts.logDir})
		defer log.Close()
	}

	a := &app{
		out:  stdout,
		boot: opts.boot,
	}
	if opts.journalPath != "" {
		if err = a.openJournal(opts.journalPath); err != nil {
			return err
		}
	}
	defer a.close()
	return a.exec(args[0], args[1:])
}

func main() {
	err := run(os.Stdout, os.Args[1:])
	if err == nil {
		return
	}
	if errors.Is(err, flag.ErrHelp) {
		printUsage(os.Stdout)
		return
	}
	msg := err.Error()
	if !strings.HasPrefix(msg, "flashtool") {
		msg = "flashtool: " + msg
	}
	log.Errorf("%s", msg)
	os.Exit(1)
}
