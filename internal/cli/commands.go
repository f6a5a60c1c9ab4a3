package cli

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strconv"
	"strings"
	"time"

	flag "github.com/spf13/pflag"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/calvinalkan/stable-structures/pkg/btreemap"
	"github.com/calvinalkan/stable-structures/pkg/memory"
	"github.com/calvinalkan/stable-structures/pkg/store"
)

var (
	errUsage    = errors.New("usage")
	errNotFound = errors.New("not found")
	errEmpty    = errors.New("empty")
)

// commands returns the session command table in help order.
func (s *session) commands() []*Command {
	return []*Command{
		s.cmdPut(),
		s.cmdGet(),
		s.cmdDel(),
		s.cmdRange(),
		s.cmdSeek(),
		s.cmdFirst(),
		s.cmdLast(),
		s.cmdPopFirst(),
		s.cmdPopLast(),
		s.cmdLen(),
		s.cmdPush(),
		s.cmdPop(),
		s.cmdRing(),
		s.cmdNth(),
		s.cmdTruncate(),
		s.cmdResize(),
		s.cmdClearRing(),
		s.cmdAppend(),
		s.cmdLog(),
		s.cmdNote(),
		s.cmdSnapshot(),
		s.cmdInfo(),
	}
}

func usageErr(c *Command) error {
	return fmt.Errorf("%w: %s", errUsage, c.Usage)
}

func parseUint(what, s string) (uint64, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", what, s, err)
	}

	return n, nil
}

func printEntries(o *IO, seq iter.Seq2[string, string], limit int) {
	n := 0

	for k, v := range seq {
		if limit > 0 && n == limit {
			break
		}

		o.Printf("%s\t%s\n", k, v)
		n++
	}
}

func (s *session) cmdPut() *Command {
	c := &Command{Usage: "put <key> <value...>", Short: "Insert or replace a map entry"}
	c.Exec = func(_ context.Context, o *IO, args []string) error {
		if len(args) < 2 {
			return usageErr(c)
		}

		key, value := args[0], strings.Join(args[1:], " ")

		prev, had := store.Update(s.data, func(cs *collections) replaced {
			p, ok := cs.kv.Insert(key, value)
			return replaced{p, ok}
		}).unpack()

		if had {
			o.Printf("replaced %s (was %s)\n", key, prev)
		} else {
			o.Printf("inserted %s\n", key)
		}

		return nil
	}

	return c
}

// replaced carries a (value, ok) pair out of a borrow.
type replaced struct {
	value string
	ok    bool
}

func (r replaced) unpack() (string, bool) {
	return r.value, r.ok
}

func (s *session) cmdGet() *Command {
	c := &Command{Usage: "get <key>", Short: "Print the value of a map entry"}
	c.Exec = func(_ context.Context, o *IO, args []string) error {
		if len(args) != 1 {
			return usageErr(c)
		}

		v, ok := store.Update(s.data, func(cs *collections) replaced {
			v, ok := cs.kv.Get(args[0])
			return replaced{v, ok}
		}).unpack()

		if !ok {
			return fmt.Errorf("%s: %w", args[0], errNotFound)
		}

		o.Println(v)

		return nil
	}

	return c
}

func (s *session) cmdDel() *Command {
	c := &Command{Usage: "del <key>", Short: "Remove a map entry", Aliases: []string{"delete"}}
	c.Exec = func(_ context.Context, o *IO, args []string) error {
		if len(args) != 1 {
			return usageErr(c)
		}

		v, ok := store.Update(s.data, func(cs *collections) replaced {
			v, ok := cs.kv.Remove(args[0])
			return replaced{v, ok}
		}).unpack()

		if !ok {
			return fmt.Errorf("%s: %w", args[0], errNotFound)
		}

		o.Printf("deleted %s (was %s)\n", args[0], v)

		return nil
	}

	return c
}

func (s *session) cmdRange() *Command {
	fs := flag.NewFlagSet("range", flag.ContinueOnError)
	from := fs.String("from", "", "first key, inclusive")
	after := fs.String("after", "", "first key, exclusive")
	to := fs.String("to", "", "last key, inclusive")
	before := fs.String("before", "", "last key, exclusive")
	limit := fs.IntP("limit", "n", 0, "print at most `n` entries (0 = all)")

	c := &Command{Flags: fs, Usage: "range [flags]", Short: "List map entries in key order", Aliases: []string{"ls", "scan"}}
	c.Exec = func(_ context.Context, o *IO, args []string) error {
		if len(args) != 0 {
			return usageErr(c)
		}

		if fs.Changed("from") && fs.Changed("after") {
			return errors.New("range: --from and --after are mutually exclusive")
		}

		if fs.Changed("to") && fs.Changed("before") {
			return errors.New("range: --to and --before are mutually exclusive")
		}

		start := btreemap.Unbounded[string]()

		switch {
		case fs.Changed("from"):
			start = btreemap.Included(*from)
		case fs.Changed("after"):
			start = btreemap.Excluded(*after)
		}

		end := btreemap.Unbounded[string]()

		switch {
		case fs.Changed("to"):
			end = btreemap.Included(*to)
		case fs.Changed("before"):
			end = btreemap.Excluded(*before)
		}

		s.data.WithBorrow(func(cs *collections) {
			printEntries(o, cs.kv.Range(start, end), *limit)
		})

		return nil
	}

	return c
}

func (s *session) cmdSeek() *Command {
	fs := flag.NewFlagSet("seek", flag.ContinueOnError)
	limit := fs.IntP("limit", "n", 0, "print at most `n` entries (0 = all)")

	c := &Command{
		Flags: fs,
		Usage: "seek <key> [flags]",
		Short: "List entries from the greatest key below <key> onwards",
	}
	c.Exec = func(_ context.Context, o *IO, args []string) error {
		if len(args) != 1 {
			return usageErr(c)
		}

		s.data.WithBorrow(func(cs *collections) {
			printEntries(o, cs.kv.IterFromPrevKey(args[0]), *limit)
		})

		return nil
	}

	return c
}

// entryCommand builds a command that prints one map entry chosen by pick.
func (s *session) entryCommand(usage, short string, pick func(cs *collections) (string, string, bool)) *Command {
	c := &Command{Usage: usage, Short: short}
	c.Exec = func(_ context.Context, o *IO, args []string) error {
		if len(args) != 0 {
			return usageErr(c)
		}

		var (
			k, v string
			ok   bool
		)

		s.data.WithBorrowMut(func(cs *collections) {
			k, v, ok = pick(cs)
		})

		if !ok {
			return fmt.Errorf("map: %w", errEmpty)
		}

		o.Printf("%s\t%s\n", k, v)

		return nil
	}

	return c
}

func (s *session) cmdFirst() *Command {
	return s.entryCommand("first", "Print the smallest map entry", func(cs *collections) (string, string, bool) {
		return cs.kv.FirstKeyValue()
	})
}

func (s *session) cmdLast() *Command {
	return s.entryCommand("last", "Print the largest map entry", func(cs *collections) (string, string, bool) {
		return cs.kv.LastKeyValue()
	})
}

func (s *session) cmdPopFirst() *Command {
	return s.entryCommand("popfirst", "Remove and print the smallest map entry", func(cs *collections) (string, string, bool) {
		return cs.kv.PopFirst()
	})
}

func (s *session) cmdPopLast() *Command {
	return s.entryCommand("poplast", "Remove and print the largest map entry", func(cs *collections) (string, string, bool) {
		return cs.kv.PopLast()
	})
}

func (s *session) cmdLen() *Command {
	c := &Command{Usage: "len", Short: "Print the number of map entries", Aliases: []string{"count"}}
	c.Exec = func(_ context.Context, o *IO, _ []string) error {
		o.Println(store.Read(s.data, func(cs *collections) uint64 { return cs.kv.Len() }))
		return nil
	}

	return c
}

func (s *session) cmdPush() *Command {
	c := &Command{Usage: "push <value...>", Short: "Push onto the ring buffer, evicting the oldest when full"}
	c.Exec = func(_ context.Context, o *IO, args []string) error {
		if len(args) == 0 {
			return usageErr(c)
		}

		value := strings.Join(args, " ")
		if len(value) > ringValueMax {
			return fmt.Errorf("push: value is %d bytes, limit %d", len(value), ringValueMax)
		}

		old, evicted := store.Update(s.data, func(cs *collections) replaced {
			v, ok := cs.ring.Push(value)
			return replaced{v, ok}
		}).unpack()

		if evicted {
			o.Printf("pushed (evicted %s)\n", old)
		} else {
			o.Println("pushed")
		}

		return nil
	}

	return c
}

func (s *session) cmdPop() *Command {
	c := &Command{Usage: "pop", Short: "Remove and print the newest ring element"}
	c.Exec = func(_ context.Context, o *IO, _ []string) error {
		v, ok := store.Update(s.data, func(cs *collections) replaced {
			v, ok := cs.ring.Pop()
			return replaced{v, ok}
		}).unpack()

		if !ok {
			return fmt.Errorf("ring: %w", errEmpty)
		}

		o.Println(v)

		return nil
	}

	return c
}

func (s *session) cmdRing() *Command {
	c := &Command{Usage: "ring", Short: "List ring elements from oldest to newest"}
	c.Exec = func(_ context.Context, o *IO, _ []string) error {
		s.data.WithBorrow(func(cs *collections) {
			i := 0
			for v := range cs.ring.All() {
				o.Printf("%d\t%s\n", i, v)
				i++
			}
		})

		return nil
	}

	return c
}

func (s *session) cmdNth() *Command {
	fs := flag.NewFlagSet("nth", flag.ContinueOnError)
	fromEnd := fs.BoolP("from-end", "e", false, "count from the newest element")

	c := &Command{Flags: fs, Usage: "nth <n> [flags]", Short: "Print the n-th ring element, 0 is the oldest"}
	c.Exec = func(_ context.Context, o *IO, args []string) error {
		if len(args) != 1 {
			return usageErr(c)
		}

		n, err := parseUint("position", args[0])
		if err != nil {
			return err
		}

		v, ok := store.Read(s.data, func(cs *collections) replaced {
			if *fromEnd {
				v, ok := cs.ring.NthElementFromEnd(n)
				return replaced{v, ok}
			}

			v, ok := cs.ring.NthElement(n)

			return replaced{v, ok}
		}).unpack()

		if !ok {
			return fmt.Errorf("ring position %d: %w", n, errNotFound)
		}

		o.Println(v)

		return nil
	}

	return c
}

func (s *session) cmdTruncate() *Command {
	c := &Command{Usage: "truncate <n>", Short: "Drop the n newest ring elements"}
	c.Exec = func(_ context.Context, o *IO, args []string) error {
		if len(args) != 1 {
			return usageErr(c)
		}

		n, err := parseUint("count", args[0])
		if err != nil {
			return err
		}

		left := store.Update(s.data, func(cs *collections) uint64 {
			cs.ring.Truncate(n)
			return cs.ring.Len()
		})

		o.Printf("ring holds %d\n", left)

		return nil
	}

	return c
}

func (s *session) cmdResize() *Command {
	c := &Command{Usage: "resize <capacity>", Short: "Change the ring capacity, dropping the oldest surplus"}
	c.Exec = func(_ context.Context, o *IO, args []string) error {
		if len(args) != 1 {
			return usageErr(c)
		}

		capacity, err := parseUint("capacity", args[0])
		if err != nil {
			return err
		}

		if capacity == 0 {
			return errors.New("resize: capacity must be > 0")
		}

		s.data.WithBorrowMut(func(cs *collections) {
			cs.ring.Resize(capacity)
		})

		s.log.Debug("ring resized", "capacity", capacity)
		o.Printf("ring capacity %d\n", capacity)

		return nil
	}

	return c
}

func (s *session) cmdClearRing() *Command {
	c := &Command{Usage: "clearring", Short: "Remove every ring element"}
	c.Exec = func(_ context.Context, o *IO, _ []string) error {
		s.data.WithBorrowMut(func(cs *collections) {
			cs.ring.Clear()
		})

		o.Println("ring cleared")

		return nil
	}

	return c
}

func (s *session) cmdAppend() *Command {
	c := &Command{Usage: "append <text...>", Short: "Append a record to the log"}
	c.Exec = func(_ context.Context, o *IO, args []string) error {
		if len(args) == 0 {
			return usageErr(c)
		}

		var (
			idx uint64
			err error
		)

		s.data.WithBorrowMut(func(cs *collections) {
			idx, err = cs.log.Append(wrapperspb.String(strings.Join(args, " ")))
		})

		if err != nil {
			if errors.Is(err, memory.ErrGrowFailed) {
				s.log.Warn("log append failed", "max_pages", s.cfg.MaxPages, "error", err)
			}

			return fmt.Errorf("append: %w", err)
		}

		o.Printf("appended #%d\n", idx)

		return nil
	}

	return c
}

func (s *session) cmdLog() *Command {
	fs := flag.NewFlagSet("log", flag.ContinueOnError)
	tail := fs.IntP("tail", "n", 0, "print only the last `n` records (0 = all)")

	c := &Command{Flags: fs, Usage: "log [flags]", Short: "List log records"}
	c.Exec = func(_ context.Context, o *IO, args []string) error {
		if len(args) != 0 {
			return usageErr(c)
		}

		s.data.WithBorrow(func(cs *collections) {
			skip := uint64(0)
			if n := uint64(max(*tail, 0)); n > 0 && cs.log.Len() > n {
				skip = cs.log.Len() - n
			}

			for i, rec := range cs.log.Iter() {
				if i < skip {
					continue
				}

				o.Printf("#%d\t%s\n", i, rec.GetValue())
			}
		})

		return nil
	}

	return c
}

func (s *session) cmdNote() *Command {
	c := &Command{Usage: "note [text...]", Short: "Print the note, or replace it with text"}
	c.Exec = func(_ context.Context, o *IO, args []string) error {
		if len(args) == 0 {
			n := store.Read(s.data, func(cs *collections) note { return cs.note.Get() })
			if n.Updated.IsZero() {
				o.Println("(no note)")
				return nil
			}

			o.Printf("%s\t(updated %s)\n", n.Text, n.Updated.Format(time.RFC3339))

			return nil
		}

		n := note{Text: strings.Join(args, " "), Updated: time.Now().UTC()}

		s.data.WithBorrowMut(func(cs *collections) {
			cs.note.Set(n)
		})

		o.Println("note saved")

		return nil
	}

	return c
}

func (s *session) cmdSnapshot() *Command {
	fs := flag.NewFlagSet("snapshot", flag.ContinueOnError)
	force := fs.BoolP("force", "f", false, "overwrite an existing file")

	c := &Command{Flags: fs, Usage: "snapshot <path> [flags]", Short: "Write a checksummed image of the memory file"}
	c.Exec = func(_ context.Context, o *IO, args []string) error {
		if len(args) != 1 {
			return usageErr(c)
		}

		path := args[0]

		if !*force {
			exists, err := s.fsys.Exists(path)
			if err != nil {
				return fmt.Errorf("snapshot: %w", err)
			}

			if exists {
				return fmt.Errorf("snapshot: %s already exists (use --force to overwrite)", path)
			}
		}

		if err := s.flush(); err != nil {
			return fmt.Errorf("snapshot: %w", err)
		}

		if err := memory.WriteSnapshot(path, s.file); err != nil {
			return err
		}

		s.log.Info("snapshot written", "path", path, "pages", s.file.Size())
		o.Printf("snapshot %s (%d pages)\n", path, s.file.Size())

		return nil
	}

	return c
}

func (s *session) cmdInfo() *Command {
	c := &Command{Usage: "info", Short: "Show memory and collection statistics"}
	c.Exec = func(_ context.Context, o *IO, _ []string) error {
		o.Printf("file:          %s\n", s.file.Path())
		o.Printf("pages:         %d (%d bytes)\n", s.file.Size(), memory.Bytes(s.file))
		o.Printf("bucket size:   %d pages\n", s.mgr.BucketSize())
		o.Printf("buckets:       %d\n", s.mgr.AllocatedBuckets())

		s.data.WithBorrow(func(cs *collections) {
			o.Printf("map entries:   %d (%d cached)\n", cs.kv.Len(), cs.kv.CachedLen())
			o.Printf("ring:          %d/%d\n", cs.ring.Len(), cs.ring.Capacity())
			o.Printf("log records:   %d\n", cs.log.Len())
		})

		return nil
	}

	return c
}
