// Package prompt asks the user for the assistant character's name before an
// extraction run.
package prompt

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Source supplies the assistant label for a run. ok is false when the user
// cancelled or gave nothing, in which case the default label applies.
type Source interface {
	AssistantName(ctx context.Context) (name string, ok bool)
}

// Static is a Source with a fixed answer, used for --ai-name and for
// non-interactive sessions.
type Static string

// AssistantName implements Source.
func (s Static) AssistantName(context.Context) (string, bool) {
	name := strings.TrimSpace(string(s))
	return name, name != ""
}

// Label wraps a name in brackets, the way message labels are rendered.
func Label(name string) string {
	return "[" + strings.TrimSpace(name) + "]"
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	hintStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// Terminal asks interactively with a Bubble Tea text input.
type Terminal struct {
	in  io.Reader
	out io.Writer
}

// NewTerminal creates an interactive prompt reading from in and drawing to out.
func NewTerminal(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{in: in, out: out}
}

// AssistantName implements Source. Any failure to run the prompt counts as
// a cancel.
func (t *Terminal) AssistantName(ctx context.Context) (string, bool) {
	p := tea.NewProgram(newModel(),
		tea.WithInput(t.in),
		tea.WithOutput(t.out),
		tea.WithContext(ctx),
	)
	final, err := p.Run()
	if err != nil {
		return "", false
	}
	m, ok := final.(model)
	if !ok || m.cancelled {
		return "", false
	}
	name := strings.TrimSpace(m.input.Value())
	return name, name != ""
}

// model is the Bubble Tea model behind Terminal.
type model struct {
	input     textinput.Model
	cancelled bool
	done      bool
}

func newModel() model {
	ti := textinput.New()
	ti.Placeholder = "e.g. Maddie, Susan"
	ti.CharLimit = 64
	ti.Width = 32
	ti.Focus()
	return model{input: ti}
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyEnter:
			m.done = true
			return m, tea.Quit
		case tea.KeyEsc, tea.KeyCtrlC:
			m.cancelled = true
			m.done = true
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m model) View() string {
	if m.done {
		return ""
	}
	return fmt.Sprintf("%s\n%s\n%s\n",
		titleStyle.Render("Enter the AI character name"),
		m.input.View(),
		hintStyle.Render("enter to confirm, blank or esc keeps the default label"),
	)
}

// Choose picks the Source for a run: a fixed name wins, then the interactive
// prompt when enabled and a terminal is attached, else a blank Static.
func Choose(fixed string, enabled, interactive bool, in io.Reader, out io.Writer) Source {
	if strings.TrimSpace(fixed) != "" {
		return Static(fixed)
	}
	if enabled && interactive {
		return NewTerminal(in, out)
	}
	return Static("")
}
