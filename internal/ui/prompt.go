package ui

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// ErrNotInteractive is returned when a prompt is needed but stdin is not a
// terminal.
var ErrNotInteractive = errors.New("stdin is not a terminal; pass --yes to confirm")

// Confirm asks a y/N question on out and reads the answer from in.
// assumeYes skips the question.
func Confirm(in *os.File, out io.Writer, question string, assumeYes bool) (bool, error) {
	if assumeYes {
		return true, nil
	}
	if !IsTerminal(in) {
		return false, ErrNotInteractive
	}
	return confirm(in, out, question)
}

func confirm(r io.Reader, out io.Writer, question string) (bool, error) {
	fmt.Fprintf(out, "%s [y/N] ", question)
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("reading answer: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// ReadPassphrase reads a passphrase without echo. SC_PASSPHRASE is used when
// set, which lets scripts fetch encrypted archives.
func ReadPassphrase(in *os.File, out io.Writer, prompt string) (string, error) {
	if p := os.Getenv("SC_PASSPHRASE"); p != "" {
		return p, nil
	}
	if !IsTerminal(in) {
		return "", fmt.Errorf("passphrase required: %w", ErrNotInteractive)
	}
	fmt.Fprint(out, prompt)
	b, err := term.ReadPassword(int(in.Fd()))
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return string(b), nil
}

// ReadNewPassphrase reads a passphrase twice and checks that both match.
func ReadNewPassphrase(in *os.File, out io.Writer) (string, error) {
	if p := os.Getenv("SC_PASSPHRASE"); p != "" {
		return p, nil
	}
	first, err := ReadPassphrase(in, out, "New passphrase: ")
	if err != nil {
		return "", err
	}
	second, err := ReadPassphrase(in, out, "Repeat passphrase: ")
	if err != nil {
		return "", err
	}
	if first != second {
		return "", errors.New("passphrases do not match")
	}
	if first == "" {
		return "", errors.New("passphrase must not be empty")
	}
	return first, nil
}
