package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"quicknote/internal/history"
)

// maxConsoleLineBytes bounds a single input line.
const maxConsoleLineBytes = 1 << 20

const consoleHelp = `commands:
  :undo, :u        step back
  :redo, :r        step forward
  :clear           clear the history (text stays)
  :show, :s        print the current text
  :set TEXT        replace the text
  :cursor N        move the cursor to N
  :quit, :q        exit
  ::TEXT           append a line starting with ':'
any other line is appended to the text`

// consoleFrontend renders snapshots to a terminal and turns input lines into
// requests. Writes are serialized because the reader goroutine prints
// parse errors while the event loop prints snapshots.
type consoleFrontend struct {
	mu  sync.Mutex
	out io.Writer
}

func newConsoleFrontend(out io.Writer) *consoleFrontend {
	return &consoleFrontend{out: out}
}

func (c *consoleFrontend) ShowSnapshot(s history.Snapshot) {
	c.printf("----- cursor %d -----\n%s\n", s.Cursor, renderWithCursor(s))
}

func (c *consoleFrontend) Activate() {
	c.printf("[quicknote] another launch asked for this window\n")
}

func (c *consoleFrontend) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := fmt.Fprintf(c.out, format, args...); err != nil {
		slog.Debug("[console] write failed", "error", err)
	}
}

// renderWithCursor inserts a '|' marker at the cursor rune offset.
func renderWithCursor(s history.Snapshot) string {
	runes := []rune(s.Text)
	pos := min(max(s.Cursor, 0), len(runes))
	return string(runes[:pos]) + "|" + string(runes[pos:])
}

// Requests reads lines from in until EOF or ctx is done. The returned channel
// is closed when reading stops.
func (c *consoleFrontend) Requests(ctx context.Context, in io.Reader) <-chan Request {
	requests := make(chan Request)
	go func() {
		defer close(requests)
		scanner := bufio.NewScanner(in)
		scanner.Buffer(make([]byte, 0, 4096), maxConsoleLineBytes)
		for scanner.Scan() {
			req, ok, err := parseConsoleLine(scanner.Text())
			if err != nil {
				c.printf("%v\n", err)
				continue
			}
			if !ok {
				c.printf("%s\n", consoleHelp)
				continue
			}
			select {
			case requests <- req:
			case <-ctx.Done():
				return
			}
			if req.Kind == RequestQuit {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			slog.Warn("[console] input read failed", "error", err)
		}
	}()
	return requests
}

// parseConsoleLine maps one input line to a request. ok is false for :help.
func parseConsoleLine(line string) (req Request, ok bool, err error) {
	line = strings.TrimRight(line, "\r")
	if strings.HasPrefix(line, "::") {
		return Request{Kind: RequestAppend, Text: line[1:] + "\n"}, true, nil
	}
	if !strings.HasPrefix(line, ":") {
		return Request{Kind: RequestAppend, Text: line + "\n"}, true, nil
	}

	command, arg, _ := strings.Cut(line[1:], " ")
	switch strings.ToLower(command) {
	case "undo", "u":
		return Request{Kind: RequestUndo}, true, nil
	case "redo", "r":
		return Request{Kind: RequestRedo}, true, nil
	case "clear":
		return Request{Kind: RequestClearHistory}, true, nil
	case "show", "s":
		return Request{Kind: RequestShow}, true, nil
	case "set":
		return Request{Kind: RequestSetText, Text: arg, Cursor: len([]rune(arg))}, true, nil
	case "cursor":
		n, convErr := strconv.Atoi(strings.TrimSpace(arg))
		if convErr != nil || n < 0 {
			return Request{}, false, fmt.Errorf("cursor: want a non-negative number, got %q", arg)
		}
		return Request{Kind: RequestMoveCursor, Cursor: n}, true, nil
	case "quit", "q":
		return Request{Kind: RequestQuit}, true, nil
	case "help", "h", "?":
		return Request{}, false, nil
	default:
		return Request{}, false, fmt.Errorf("unknown command %q, type :help", command)
	}
}
