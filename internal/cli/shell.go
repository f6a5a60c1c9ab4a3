package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
)

var errExit = errors.New("exit")

// shell dispatches command lines to a session.
type shell struct {
	s      *session
	o      *IO
	cmds   []*Command
	byName map[string]*Command
}

func newShell(s *session, o *IO) *shell {
	sh := &shell{s: s, o: o, cmds: s.commands(), byName: map[string]*Command{}}

	for _, c := range sh.cmds {
		sh.byName[c.Name()] = c
		for _, a := range c.Aliases {
			sh.byName[a] = c
		}
	}

	return sh
}

// execLine runs one command line. A panic inside a command, such as a value
// exceeding its bound or a memory that cannot grow, is returned as an error.
func (sh *shell) execLine(ctx context.Context, line string) (err error) {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return nil
	}

	name := strings.ToLower(parts[0])

	switch name {
	case "exit", "quit", "q":
		return errExit
	case "help", "?":
		sh.printHelp(parts[1:])
		return nil
	}

	c, ok := sh.byName[name]
	if !ok {
		return fmt.Errorf("unknown command: %s (type 'help' for commands)", name)
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: %v", name, r)
		}
	}()

	return c.Run(ctx, sh.o, parts[1:])
}

// execScript runs ';'-separated commands and stops at the first error.
// Pages are flushed once at the end.
func (sh *shell) execScript(ctx context.Context, script string) error {
	for line := range strings.SplitSeq(script, ";") {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := sh.execLine(ctx, line)
		if errors.Is(err, errExit) {
			break
		}

		if err != nil {
			return err
		}
	}

	return sh.s.flush()
}

// repl reads commands until exit, EOF or cancellation. Errors are printed
// and the loop continues. When in is the terminal, input goes through liner
// with history and completion.
func (sh *shell) repl(ctx context.Context, in io.Reader) error {
	if f, ok := in.(*os.File); ok && f == os.Stdin && liner.TerminalSupported() {
		return sh.replTerminal(ctx)
	}

	if in == nil {
		return nil
	}

	scanner := bufio.NewScanner(in)

	for scanner.Scan() {
		if ctx.Err() != nil {
			break
		}

		if sh.runInteractive(ctx, scanner.Text()) {
			break
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	return sh.s.flush()
}

// runInteractive runs line, printing any error. Reports whether the session
// should end.
func (sh *shell) runInteractive(ctx context.Context, line string) bool {
	err := sh.execLine(ctx, line)
	if errors.Is(err, errExit) {
		return true
	}

	if err != nil {
		sh.o.ErrPrintln("error:", err)
	}

	return false
}

func (sh *shell) replTerminal(ctx context.Context) error {
	ln := liner.NewLiner()
	defer ln.Close()

	ln.SetCtrlCAborts(true)
	ln.SetCompleter(sh.complete)

	history := sh.historyFile()
	if history != "" {
		if f, err := os.Open(history); err == nil {
			_, _ = ln.ReadHistory(f)
			_ = f.Close()
		}
	}

	sh.o.Printf("stablectl - %s (%d pages). Type 'help' for commands.\n", sh.s.file.Path(), sh.s.file.Size())

	for ctx.Err() == nil {
		line, err := ln.Prompt("stable> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				break
			}

			return fmt.Errorf("reading input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		ln.AppendHistory(line)

		if sh.runInteractive(ctx, line) {
			break
		}

		if err := sh.s.flush(); err != nil {
			sh.o.ErrPrintln("error: flush:", err)
		}
	}

	if history != "" {
		if err := sh.saveHistory(ln, history); err != nil {
			sh.o.Warn("history not saved", err.Error())
		}
	}

	return nil
}

func (sh *shell) historyFile() string {
	if sh.s.cfg.HistoryFile != "" {
		return sh.s.cfg.HistoryFile
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return filepath.Join(home, ".stablectl_history")
}

func (sh *shell) saveHistory(ln *liner.State, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	_, werr := ln.WriteHistory(f)

	return errors.Join(werr, f.Close())
}

// complete provides tab completion for command names.
func (sh *shell) complete(line string) []string {
	var completions []string

	lower := strings.ToLower(line)

	for _, name := range sh.names() {
		if strings.HasPrefix(name, lower) {
			completions = append(completions, name)
		}
	}

	return completions
}

func (sh *shell) names() []string {
	names := make([]string, 0, len(sh.cmds)+2)
	for _, c := range sh.cmds {
		names = append(names, c.Name())
	}

	return append(names, "help", "exit")
}

func (sh *shell) printHelp(args []string) {
	if len(args) == 1 {
		if c, ok := sh.byName[strings.ToLower(args[0])]; ok {
			c.PrintHelp(sh.o)
			return
		}
	}

	sh.o.Println("Commands:")

	for _, c := range sh.cmds {
		sh.o.Println(c.HelpLine())
	}

	sh.o.Printf("  %-28s %s\n", "help [command]", "Show this help or command help")
	sh.o.Printf("  %-28s %s\n", "exit / quit / q", "Exit")
}
