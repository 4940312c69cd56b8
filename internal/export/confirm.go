package export

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"golang.org/x/term"
)

// Confirmer asks the operator to approve an export before any work is done.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) (bool, error)

// Confirm implements Confirmer.
func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) (bool, error) { return f(ctx, prompt) }

// AlwaysConfirm approves every export. Used by non-interactive callers that
// were given an explicit --yes.
var AlwaysConfirm Confirmer = ConfirmFunc(func(context.Context, string) (bool, error) { return true, nil })

// PromptConfirmer asks on a terminal. When In is not a terminal it refuses
// rather than blocking on input nobody will type.
type PromptConfirmer struct {
	In  io.Reader
	Out io.Writer
	// Interactive overrides terminal detection.
	Interactive func() bool
}

type fder interface{ Fd() uintptr }

func (p PromptConfirmer) interactive() bool {
	if p.Interactive != nil {
		return p.Interactive()
	}
	f, ok := p.In.(fder)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Confirm implements Confirmer. Only "y" and "yes" approve.
func (p PromptConfirmer) Confirm(ctx context.Context, prompt string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if p.In == nil || !p.interactive() {
		return false, ErrNotInteractive
	}
	if p.Out != nil {
		fmt.Fprintf(p.Out, "%s [y/N] ", prompt)
	}
	line, err := bufio.NewReader(p.In).ReadString('\n')
	if err != nil && line == "" {
		if err == io.EOF {
			return false, nil
		}
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
