package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"

	"fire/internal/codec"
)

// printMarkdown renders md for the terminal, or prints it as is with -plain or when
// stdout is not a terminal.
func printMarkdown(md string) error {
	if *plain || !term.IsTerminal(int(os.Stdout.Fd())) {
		_, err := fmt.Print(md)
		return err
	}

	width := 100
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 20 {
		width = w
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return fmt.Errorf("create markdown renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return fmt.Errorf("render markdown: %w", err)
	}
	_, err = fmt.Print(out)
	return err
}

// promptSecret asks for the passphrase of sealed links on the terminal. An empty answer
// or an interrupted prompt cancels.
func promptSecret(ctx context.Context) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("stdin is not a terminal")
	}

	type answer struct {
		secret []byte
		err    error
	}
	done := make(chan answer, 1)
	fmt.Fprint(os.Stderr, "passphrase: ")
	go func() {
		b, err := term.ReadPassword(fd)
		done <- answer{b, err}
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr)
		return "", ctx.Err()
	case a := <-done:
		fmt.Fprintln(os.Stderr)
		if a.err != nil {
			return "", a.err
		}
		secret := strings.TrimSpace(string(a.secret))
		if secret == "" {
			return "", codec.ErrPromptCancelled
		}
		return secret, nil
	}
}
