package ui

import (
	"context"
	"errors"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// ErrInputAborted is returned when the user cancels a prompt (Esc/Ctrl+C).
var ErrInputAborted = errors.New("input aborted")

// lineModel is a one-line text prompt. It runs as its own Bubble Tea program
// per question; the surrounding session stays plain terminal output.
type lineModel struct {
	prompt   string
	input    textinput.Model
	done     bool
	canceled bool
}

func newLineModel(prompt, placeholder string) lineModel {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.Prompt = PromptStyle.Render(prompt)
	ti.Focus()
	return lineModel{prompt: prompt, input: ti}
}

func (m lineModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m lineModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyEnter:
			m.done = true
			return m, tea.Quit
		case tea.KeyEsc, tea.KeyCtrlC:
			m.canceled = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m lineModel) View() string {
	if m.done || m.canceled {
		return ""
	}
	return m.input.View() + "\n" + HintStyle.Render("enter: submit  esc: cancel")
}

// readLine runs the prompt until the user submits or cancels. Context
// cancellation aborts the prompt.
func readLine(ctx context.Context, prompt, placeholder string) (string, error) {
	program := tea.NewProgram(newLineModel(prompt, placeholder), tea.WithContext(ctx))
	final, err := program.Run()
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", err
	}

	m, ok := final.(lineModel)
	if !ok || m.canceled {
		return "", ErrInputAborted
	}
	return m.input.Value(), nil
}
