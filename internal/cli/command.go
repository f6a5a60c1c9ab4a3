package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	flag "github.com/spf13/pflag"
)

// Command defines a session command with unified help generation.
type Command struct {
	// Flags defines command-specific flags. nil means the command takes none.
	Flags *flag.FlagSet

	// Usage is the freeform usage string shown in help.
	// Includes the command name and arguments/flags.
	// Examples: "get <key>", "range [flags]"
	Usage string

	// Short is a one-line description for the help listing.
	Short string

	// Aliases are alternative names.
	Aliases []string

	// Exec runs the command after flags are parsed.
	Exec func(ctx context.Context, o *IO, args []string) error
}

// Name returns the command name (first word of Usage).
func (c *Command) Name() string {
	name, _, _ := strings.Cut(c.Usage, " ")
	return name
}

// HelpLine returns the short help line for the command listing.
func (c *Command) HelpLine() string {
	return fmt.Sprintf("  %-28s %s", c.Usage, c.Short)
}

// PrintHelp prints the usage and flags of the command.
func (c *Command) PrintHelp(o *IO) {
	o.Println("Usage:", c.Usage)
	o.Println()
	o.Println(c.Short)

	if c.Flags != nil && c.Flags.HasFlags() {
		o.Println()
		o.Println("Flags:")
		o.Printf("%s", c.Flags.FlagUsages())
	}
}

// Run parses flags and executes the command.
//
// Flag values are reset to their defaults first, since a FlagSet is reused
// for every invocation within a session.
func (c *Command) Run(ctx context.Context, o *IO, args []string) error {
	if c.Flags == nil {
		return c.Exec(ctx, o, args)
	}

	c.Flags.VisitAll(func(f *flag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	})

	c.Flags.SetOutput(&strings.Builder{}) // discard pflag output

	if err := c.Flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			c.PrintHelp(o)
			return nil
		}

		return fmt.Errorf("%s: %w", c.Name(), err)
	}

	return c.Exec(ctx, o, c.Flags.Args())
}
