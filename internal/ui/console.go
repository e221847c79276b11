// Package ui is the terminal surface: markdown rendering for assistant
// messages, status lines, and the approval prompt.
package ui

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"

	"github.com/Cyclone1070/aegis/internal/gate"
)

// Console writes to a terminal and reads user decisions. It implements the
// agent's UserInterface and the gate's Confirmer.
type Console struct {
	out         io.Writer
	renderer    *glamour.TermRenderer
	interactive bool

	// readLine is swapped out in tests.
	readLine func(ctx context.Context, prompt, placeholder string) (string, error)
}

// NewConsole builds a console for the current process. Rendering degrades to
// raw text when glamour cannot initialize.
func NewConsole() *Console {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		renderer = nil
	}

	return &Console{
		out:         os.Stdout,
		renderer:    renderer,
		interactive: term.IsTerminal(int(os.Stdin.Fd())),
		readLine:    readLine,
	}
}

// IsInteractive reports whether stdin is a terminal. Non-interactive sessions
// never prompt; every approval request is rejected.
func (c *Console) IsInteractive() bool {
	return c.interactive
}

// WriteMessage renders an assistant message as markdown.
func (c *Console) WriteMessage(text string) {
	if c.renderer != nil {
		if rendered, err := c.renderer.Render(text); err == nil {
			fmt.Fprint(c.out, rendered)
			return
		}
	}
	fmt.Fprintln(c.out, text)
}

// WriteStatus prints a transient progress line.
func (c *Console) WriteStatus(stage, message string) {
	fmt.Fprintln(c.out, StatusStyle.Render(fmt.Sprintf("[%s] %s", stage, message)))
}

// WriteError prints an error line.
func (c *Console) WriteError(message string) {
	fmt.Fprintln(c.out, ErrorStyle.Render("error: ")+message)
}

// ReadInput blocks for the user's next message.
func (c *Console) ReadInput(ctx context.Context, prompt string) (string, error) {
	if !c.interactive {
		return "", fmt.Errorf("cannot read input: %w", ErrInputAborted)
	}
	return c.readLine(ctx, prompt, "")
}

// Confirm shows the pending action and reads the user's decision. Anything
// other than an explicit approval rejects.
func (c *Console) Confirm(ctx context.Context, action gate.Action, verdict string) (gate.Answer, error) {
	if !c.interactive {
		return gate.AnswerReject, nil
	}

	fmt.Fprintln(c.out, PermissionBoxStyle.Render(renderAction(action, verdict)))

	answer, err := c.readLine(ctx, "Approve? [y]es / [n]o / [a]lways: ", "")
	if err != nil {
		return gate.AnswerReject, err
	}

	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return gate.AnswerApprove, nil
	case "a", "always":
		return gate.AnswerApproveAlways, nil
	default:
		return gate.AnswerReject, nil
	}
}

// renderAction formats the approval request body.
func renderAction(action gate.Action, verdict string) string {
	var b strings.Builder

	b.WriteString(PromptStyle.Render("Approval required"))
	b.WriteString("\n")
	b.WriteString(action.Describe())
	if verdict != "" {
		b.WriteString("\n")
		b.WriteString(HintStyle.Render(verdict))
	}

	if action.Kind == gate.ActionFileEdit && action.Edit != nil && action.Edit.Diff != "" {
		b.WriteString("\n\n")
		b.WriteString(renderDiff(action.Edit.Diff))
	}

	return b.String()
}

// renderDiff colors added and removed lines.
func renderDiff(diff string) string {
	lines := strings.Split(strings.TrimRight(diff, "\n"), "\n")
	for i, line := range lines {
		switch {
		case strings.HasPrefix(line, "+"):
			lines[i] = DiffAddStyle.Render(line)
		case strings.HasPrefix(line, "-"):
			lines[i] = DiffDelStyle.Render(line)
		}
	}
	return strings.Join(lines, "\n")
}
