package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
)

// ErrNotInteractive is returned when a question needs an answer but stdin is
// not a terminal.
var ErrNotInteractive = errors.New("stdin is not a terminal")

// Console talks to the operator: warnings, progress and questions. Output
// goes to stderr so stdout carries only log records.
type Console struct {
	mu          sync.Mutex
	in          *bufio.Reader
	out         io.Writer
	interactive bool

	// lines is fed by one reader goroutine, started on the first question,
	// so a question can be abandoned while stdin is blocked.
	startReader sync.Once
	lines       chan answerLine
}

type answerLine struct {
	text string
	eof  bool
	err  error
}

// NewConsole reads answers from in and writes to out. When interactive is
// false every question fails with ErrNotInteractive.
func NewConsole(in io.Reader, out io.Writer, interactive bool) *Console {
	return &Console{in: bufio.NewReader(in), out: out, interactive: interactive}
}

func (c *Console) Warn(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = fmt.Fprintf(c.out, " ›   Warning: %s\n", msg)
}

func (c *Console) Status(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = fmt.Fprintf(c.out, "%s...\n", msg)
}

// Confirm asks a yes/no question. An empty answer or end of input picks def.
// It returns ctx.Err() if ctx is done first.
func (c *Console) Confirm(ctx context.Context, question string, def bool) (bool, error) {
	if !c.interactive {
		return false, fmt.Errorf("%s: %w", question, ErrNotInteractive)
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	hint := "y/N"
	if def {
		hint = "Y/n"
	}
	for {
		_, _ = fmt.Fprintf(c.out, "? %s (%s) ", question, hint)
		line, eof, err := c.readLine(ctx)
		if err != nil {
			return false, err
		}
		switch strings.ToLower(line) {
		case "":
			return def, nil
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
		if eof {
			return def, nil
		}
		_, _ = fmt.Fprintln(c.out, ">> Please answer y or n.")
	}
}

// Input asks for a line of text, re-asking while validate rejects it. An
// empty answer picks def. It returns ctx.Err() if ctx is done first.
func (c *Console) Input(ctx context.Context, question, def string, validate func(string) error) (string, error) {
	if !c.interactive {
		return "", fmt.Errorf("%s: %w", question, ErrNotInteractive)
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	for {
		if def != "" {
			_, _ = fmt.Fprintf(c.out, "? %s (%s) ", question, def)
		} else {
			_, _ = fmt.Fprintf(c.out, "? %s ", question)
		}
		line, eof, err := c.readLine(ctx)
		if err != nil {
			return "", err
		}
		if line == "" {
			line = def
		}
		verr := validate(line)
		if verr == nil {
			return line, nil
		}
		if eof {
			return "", verr
		}
		_, _ = fmt.Fprintf(c.out, ">> %v\n", verr)
	}
}

// readLine returns the next trimmed line and whether input has ended.
func (c *Console) readLine(ctx context.Context) (string, bool, error) {
	c.startReader.Do(func() {
		c.lines = make(chan answerLine)
		go c.readLines()
	})
	select {
	case <-ctx.Done():
		_, _ = fmt.Fprintln(c.out)
		return "", false, ctx.Err()
	case l := <-c.lines:
		return l.text, l.eof, l.err
	}
}

// readLines forwards lines from stdin. After end of input every further
// read reports it again, like the underlying reader.
func (c *Console) readLines() {
	for {
		line, err := c.in.ReadString('\n')
		l := answerLine{text: strings.TrimSpace(line)}
		switch {
		case errors.Is(err, io.EOF):
			l.eof = true
		case err != nil:
			l.err = fmt.Errorf("read answer: %w", err)
		}
		c.lines <- l
	}
}
