// Package terminal provides prompts and line clearing for interactive commands.
package terminal

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"golang.org/x/term"
)

// ErrNoInput is returned when stdin closed before a line was read.
var ErrNoInput = errors.New("no input")

// Stdin is shared by every prompt so piped answers are not lost to buffering.
var Stdin = bufio.NewReader(os.Stdin)

// ClearPreviousLines clears text previously printed to the terminal.
// textLength is the number of characters of the prompt plus the user's input;
// the line count is derived from the current terminal width (80 if unknown),
// plus one for the line the cursor moved to after Enter.
func ClearPreviousLines(textLength int) {
	termWidth := 80
	if width, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && width > 0 {
		termWidth = width
	}

	totalLines := int(math.Ceil(float64(textLength) / float64(termWidth)))
	if totalLines < 1 {
		totalLines = 1
	}
	linesToClear := totalLines + 1

	for i := 0; i < linesToClear; i++ {
		fmt.Print("\r\x1b[2K") // start of line, clear it
		if i < linesToClear-1 {
			fmt.Print("\x1b[1A") // up one line
		}
	}
}

// Prompt prints label and reads one trimmed line from in.
func Prompt(in io.Reader, out io.Writer, label string) (string, error) {
	fmt.Fprint(out, label)
	r, ok := in.(*bufio.Reader)
	if !ok {
		r = bufio.NewReader(in)
	}
	line, err := r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		if errors.Is(err, io.EOF) {
			return "", ErrNoInput
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// ReadSecret prompts for a value without echoing it when stdin is a terminal.
// Piped input is read as a plain line, so scripts can feed passwords.
func ReadSecret(label string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return Prompt(Stdin, os.Stderr, label)
	}
	fmt.Fprint(os.Stderr, label)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

// ReadDSN prompts for a connection string and wipes it from the screen
// afterwards, since it usually embeds a password.
func ReadDSN(label string) (string, error) {
	value, err := Prompt(Stdin, os.Stdout, label)
	if err != nil {
		return "", err
	}
	if term.IsTerminal(int(os.Stdout.Fd())) {
		ClearPreviousLines(len(label) + len(value))
	}
	return value, nil
}
