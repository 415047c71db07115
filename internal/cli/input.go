package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

var readPassword = term.ReadPassword

// Hints printed under prompts that read until an empty line.
const (
	multilineHint = "(press Enter on an empty line to finish)"
	listHint      = "(one per line, empty line to finish)"
)

func ask(w io.Writer, prompt, tail string) error {
	_, err := fmt.Fprint(w, prompt, tail)
	return err
}

// GetSimpleText asks for one line, e.g. a date or a photo id. The answer is
// trimmed; a last line without a newline still counts.
func GetSimpleText(reader *bufio.Reader, prompt string, w io.Writer) (string, error) {
	if err := ask(w, prompt, "\n> "); err != nil {
		return "", err
	}
	line, err := reader.ReadString('\n')
	switch {
	case err == nil:
	case errors.Is(err, io.EOF) && line != "":
	default:
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// GetPassword reads a password from the terminal with echo turned off.
func GetPassword(prompt string, w io.Writer) (string, error) {
	if err := ask(w, prompt, ": "); err != nil {
		return "", err
	}
	pw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return "", err
	}
	return string(pw), nil
}

// GetMultiline reads a note body.
func GetMultiline(reader *bufio.Reader, prompt string, w io.Writer) (string, error) {
	if err := ask(w, prompt, "\n"+multilineHint+"\n"); err != nil {
		return "", err
	}
	lines, err := readLines(reader)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(strings.Join(lines, "\n")), nil
}

// GetList reads file paths or photo ids, one per line. Blank-looking lines
// are dropped.
func GetList(reader *bufio.Reader, prompt string, w io.Writer) ([]string, error) {
	if err := ask(w, prompt, "\n"+listHint+"\n"); err != nil {
		return nil, err
	}
	lines, err := readLines(reader)
	if err != nil {
		return nil, err
	}
	items := make([]string, 0, len(lines))
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			items = append(items, l)
		}
	}
	return items, nil
}

// readLines stops at the first empty line or at EOF.
func readLines(reader *bufio.Reader) ([]string, error) {
	var lines []string
	for {
		line, err := reader.ReadString('\n')
		if line = strings.TrimRight(line, "\r\n"); line != "" {
			lines = append(lines, line)
		}
		switch {
		case errors.Is(err, io.EOF):
			return lines, nil
		case err != nil:
			return nil, err
		case line == "":
			return lines, nil
		}
	}
}

