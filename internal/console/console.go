// Package console implements the device-local command console: a
// byte-at-a-time line editor and a whitespace tokenizer feeding named
// command handlers. It is not part of the wire protocol; it drives local
// transport bring-up and diagnostics.
package console

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
)

const DefaultLineSize = 256

var ErrLineTooLong = errors.New("console: line buffer full")

// Editor assembles one command line. Backspace erases the previous byte;
// carriage return and newline both complete the line.
type Editor struct {
	buf   []byte
	max   int
	ready bool
}

func NewEditor(max int) *Editor {
	if max <= 0 {
		max = DefaultLineSize
	}
	return &Editor{buf: make([]byte, 0, max), max: max}
}

// Put feeds one input byte. It reports true once a full line is ready;
// further input is rejected until Reset.
func (e *Editor) Put(c byte) (bool, error) {
	if e.ready {
		return true, nil
	}
	switch c {
	case '\r', '\n':
		e.ready = true
		return true, nil
	case '\b', 0x7F:
		if len(e.buf) > 0 {
			e.buf = e.buf[:len(e.buf)-1]
		}
		return false, nil
	default:
		if len(e.buf) >= e.max-1 {
			return false, ErrLineTooLong
		}
		e.buf = append(e.buf, c)
		return false, nil
	}
}

// Args tokenizes the completed line into whitespace-separated arguments.
func (e *Editor) Args() []string {
	return strings.Fields(string(e.buf))
}

// Reset clears the buffer for the next line.
func (e *Editor) Reset() {
	e.buf = e.buf[:0]
	e.ready = false
}

// Command is one console command. Run receives the arguments after the
// command name.
type Command struct {
	Name string
	Help string
	Run  func(args []string, out io.Writer) error
}

// Console dispatches edited lines to registered commands. A built-in help
// command lists everything registered.
type Console struct {
	editor   *Editor
	commands map[string]Command
	out      io.Writer
}

func New(out io.Writer) *Console {
	c := &Console{
		editor:   NewEditor(DefaultLineSize),
		commands: make(map[string]Command),
		out:      out,
	}
	c.Register(Command{
		Name: "help",
		Help: "list available commands",
		Run: func(_ []string, out io.Writer) error {
			names := make([]string, 0, len(c.commands))
			for name := range c.commands {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Fprintf(out, "%-12s %s\n", name, c.commands[name].Help)
			}
			return nil
		},
	})
	return c
}

func (c *Console) Register(cmd Command) {
	c.commands[cmd.Name] = cmd
}

// Feed consumes raw input bytes, executing each completed line. Command
// errors are printed, not returned; only editor failures propagate.
func (c *Console) Feed(data []byte) error {
	for _, b := range data {
		ready, err := c.editor.Put(b)
		if err != nil {
			c.editor.Reset()
			return err
		}
		if !ready {
			continue
		}
		args := c.editor.Args()
		c.editor.Reset()
		if len(args) == 0 {
			continue
		}
		cmd, ok := c.commands[args[0]]
		if !ok {
			fmt.Fprintf(c.out, "unknown command %q; try help\n", args[0])
			continue
		}
		if err := cmd.Run(args[1:], c.out); err != nil {
			fmt.Fprintf(c.out, "%s: %v\n", args[0], err)
		}
	}
	return nil
}
