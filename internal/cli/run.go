package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	flag "github.com/spf13/pflag"
)

// globalFlags are the options given before the memory file.
type globalFlags struct {
	configPath   string
	reset        bool
	maxPages     uint64
	cacheItems   uint32
	ringCapacity uint64
	exec         string
	verbose      bool
	wait         time.Duration
}

func newGlobalFlagSet(gf *globalFlags) *flag.FlagSet {
	fs := flag.NewFlagSet("stablectl", flag.ContinueOnError)
	fs.SetInterspersed(false)

	fs.StringVarP(&gf.configPath, "config", "c", "", "read options from JSONC `file`")
	fs.BoolVar(&gf.reset, "reset", false, "discard existing contents and start empty")
	fs.Uint64Var(&gf.maxPages, "max-pages", 0, "cap the memory file at `n` pages (0 = unlimited)")
	fs.Uint32Var(&gf.cacheItems, "cache-items", 0, "map read cache size in entries")
	fs.Uint64Var(&gf.ringCapacity, "ring-capacity", 0, "ring buffer capacity when the ring is created")
	fs.StringVarP(&gf.exec, "exec", "e", "", "run `commands` separated by ';' and exit")
	fs.BoolVarP(&gf.verbose, "verbose", "v", false, "log debug events to stderr")
	fs.DurationVar(&gf.wait, "wait", 0, "wait up to `duration` for another owner to release the file")

	return fs
}

// Run is the main entry point. Returns exit code.
//
// A signal on sigCh stops the session after the running command; sigCh may
// be nil.
func Run(in io.Reader, out io.Writer, errOut io.Writer, args []string, sigCh <-chan os.Signal) int {
	var gf globalFlags

	fs := newGlobalFlagSet(&gf)
	fs.SetOutput(&strings.Builder{}) // discard pflag output

	if err := fs.Parse(args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			printUsage(out, fs)
			return 0
		}

		fprintln(errOut, "error:", err)
		printUsage(errOut, fs)

		return 1
	}

	if fs.NArg() != 1 {
		fprintln(errOut, "error: expected exactly one memory file")
		printUsage(errOut, fs)

		return 1
	}

	path := fs.Arg(0)

	cfg, err := LoadConfig(gf.configPath)
	if err != nil {
		fprintln(errOut, "error:", err)
		return 1
	}

	cfg = applyFlags(cfg, fs, gf)

	level := slog.LevelWarn
	if gf.verbose {
		level = slog.LevelDebug
	}

	logger := slog.New(slog.NewTextHandler(errOut, &slog.HandlerOptions{Level: level}))

	s, err := openSession(path, cfg, sessionOptions{reset: gf.reset, wait: gf.wait}, logger)
	if err != nil {
		fprintln(errOut, "error:", err)
		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		select {
		case sig := <-sigCh:
			logger.Debug("signal received", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	o := NewIO(out, errOut)
	sh := newShell(s, o)

	var runErr error
	if fs.Changed("exec") {
		runErr = sh.execScript(ctx, gf.exec)
	} else {
		runErr = sh.repl(ctx, in)
	}

	if err := s.close(); err != nil {
		runErr = errors.Join(runErr, fmt.Errorf("close: %w", err))
	}

	if runErr != nil {
		fprintln(errOut, "error:", runErr)
		return 1
	}

	return o.Finish()
}

// applyFlags overlays explicitly set flags on cfg.
func applyFlags(cfg Config, fs *flag.FlagSet, gf globalFlags) Config {
	if fs.Changed("max-pages") {
		cfg.MaxPages = gf.maxPages
	}

	if fs.Changed("cache-items") && gf.cacheItems > 0 {
		cfg.CacheItems = gf.cacheItems
	}

	if fs.Changed("ring-capacity") && gf.ringCapacity > 0 {
		cfg.RingCapacity = gf.ringCapacity
	}

	return cfg
}

func fprintln(w io.Writer, a ...any) {
	_, _ = fmt.Fprintln(w, a...)
}

func printUsage(w io.Writer, fs *flag.FlagSet) {
	fprintln(w, `stablectl - inspect and edit a stable memory file

Usage: stablectl [flags] <memory-file>

Without --exec, commands are read interactively (type 'help').

Flags:`)
	fprintln(w, strings.TrimRight(fs.FlagUsages(), "\n"))
}
