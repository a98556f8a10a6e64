package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/peterh/liner"
	"golang.org/x/term"
)

// lineReader yields one line of user input per call. It returns io.EOF when
// the user ends the session.
type lineReader interface {
	ReadLine(prompt string) (string, error)
	Close() error
}

// newLineReader returns a line editor with history recall when the command
// talks to a terminal, and a plain scanner over in otherwise.
func newLineReader(in io.Reader, out io.Writer, historyFile string) lineReader {
	if isTerminal(in) && isTerminal(out) {
		return newLinerReader(historyFile)
	}
	return &scanReader{sc: bufio.NewScanner(in), out: out}
}

func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// scanReader serves piped input.
type scanReader struct {
	sc  *bufio.Scanner
	out io.Writer
}

func (r *scanReader) ReadLine(prompt string) (string, error) {
	fmt.Fprint(r.out, prompt)
	if !r.sc.Scan() {
		if err := r.sc.Err(); err != nil {
			return "", err
		}
		fmt.Fprintln(r.out)
		return "", io.EOF
	}
	return r.sc.Text(), nil
}

func (r *scanReader) Close() error { return nil }

// linerReader edits lines in place and recalls earlier input with the arrow
// keys. Ctrl-C at the prompt ends the session.
type linerReader struct {
	line        *liner.State
	historyFile string
}

func newLinerReader(historyFile string) *linerReader {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	r := &linerReader{line: line, historyFile: historyFile}
	if f, err := os.Open(historyFile); err == nil {
		_, _ = line.ReadHistory(f)
		f.Close()
	}
	return r
}

func (r *linerReader) ReadLine(prompt string) (string, error) {
	s, err := r.line.Prompt(prompt)
	if errors.Is(err, liner.ErrPromptAborted) {
		return "", io.EOF
	}
	if err != nil {
		return "", err
	}
	if s != "" {
		r.line.AppendHistory(s)
	}
	return s, nil
}

// Close saves the input history (owner-only) and restores the terminal.
func (r *linerReader) Close() error {
	if r.historyFile != "" {
		if f, err := os.OpenFile(r.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600); err == nil {
			_, _ = r.line.WriteHistory(f)
			f.Close()
		}
	}
	return r.line.Close()
}
