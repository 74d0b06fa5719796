package console

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
)

func feedLine(t *testing.T, e *Editor, line string) []string {
	t.Helper()
	for i := 0; i < len(line); i++ {
		ready, err := e.Put(line[i])
		if err != nil {
			t.Fatalf("put %q: %v", line[i], err)
		}
		if ready && i < len(line)-1 {
			t.Fatalf("line completed early at byte %d", i)
		}
	}
	return e.Args()
}

func TestEditorBasicLine(t *testing.T) {
	e := NewEditor(0)
	args := feedLine(t, e, "nvs read system boots\n")
	want := []string{"nvs", "read", "system", "boots"}
	if len(args) != len(want) {
		t.Fatalf("got %v", args)
	}
	for i := range want {
		if args[i] != want[i] {
			t.Fatalf("arg %d: got %q want %q", i, args[i], want[i])
		}
	}
}

func TestEditorBackspace(t *testing.T) {
	e := NewEditor(0)
	args := feedLine(t, e, "stars\b\btts\r")
	if len(args) != 1 || args[0] != "statts" {
		t.Fatalf("got %v", args)
	}
}

func TestEditorBackspaceOnEmpty(t *testing.T) {
	e := NewEditor(0)
	if _, err := e.Put('\b'); err != nil {
		t.Fatalf("backspace on empty buffer: %v", err)
	}
	args := feedLine(t, e, "ok\n")
	if len(args) != 1 || args[0] != "ok" {
		t.Fatalf("got %v", args)
	}
}

func TestEditorReset(t *testing.T) {
	e := NewEditor(0)
	feedLine(t, e, "first\n")
	e.Reset()
	args := feedLine(t, e, "second\n")
	if len(args) != 1 || args[0] != "second" {
		t.Fatalf("got %v", args)
	}
}

func TestEditorLineTooLong(t *testing.T) {
	e := NewEditor(8)
	var lastErr error
	for i := 0; i < 16; i++ {
		_, lastErr = e.Put('x')
		if lastErr != nil {
			break
		}
	}
	if !errors.Is(lastErr, ErrLineTooLong) {
		t.Fatalf("got %v, want ErrLineTooLong", lastErr)
	}
}

func TestConsoleDispatch(t *testing.T) {
	var out bytes.Buffer
	c := New(&out)
	var got []string
	c.Register(Command{
		Name: "echo",
		Help: "repeat arguments",
		Run: func(args []string, w io.Writer) error {
			got = args
			fmt.Fprintln(w, strings.Join(args, " "))
			return nil
		},
	})

	if err := c.Feed([]byte("echo a b\n")); err != nil {
		t.Fatalf("feed: %v", err)
	}
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("handler got %v", got)
	}
	if !strings.Contains(out.String(), "a b") {
		t.Fatalf("output: %q", out.String())
	}
}

func TestConsoleUnknownCommand(t *testing.T) {
	var out bytes.Buffer
	c := New(&out)
	if err := c.Feed([]byte("bogus\n")); err != nil {
		t.Fatalf("feed: %v", err)
	}
	if !strings.Contains(out.String(), "unknown command") {
		t.Fatalf("output: %q", out.String())
	}
}

func TestConsoleCommandErrorPrinted(t *testing.T) {
	var out bytes.Buffer
	c := New(&out)
	c.Register(Command{
		Name: "fail",
		Run: func(_ []string, _ io.Writer) error {
			return errors.New("boom")
		},
	})
	if err := c.Feed([]byte("fail\n")); err != nil {
		t.Fatalf("feed should not propagate command errors: %v", err)
	}
	if !strings.Contains(out.String(), "boom") {
		t.Fatalf("output: %q", out.String())
	}
}

func TestConsoleBlankLinesIgnored(t *testing.T) {
	var out bytes.Buffer
	c := New(&out)
	if err := c.Feed([]byte("\n\r\n   \n")); err != nil {
		t.Fatalf("feed: %v", err)
	}
	if out.Len() != 0 {
		t.Fatalf("output: %q", out.String())
	}
}

func TestConsoleHelpListsCommands(t *testing.T) {
	var out bytes.Buffer
	c := New(&out)
	c.Register(Command{Name: "stats", Help: "show counters"})
	if err := c.Feed([]byte("help\n")); err != nil {
		t.Fatalf("feed: %v", err)
	}
	if !strings.Contains(out.String(), "stats") || !strings.Contains(out.String(), "show counters") {
		t.Fatalf("output: %q", out.String())
	}
}
