package screens

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/kerbaras/skypack/pkg/app/styles"
)

// NameScreen asks for the output folder name.
type NameScreen struct {
	title     string
	input     textinput.Model
	done      bool
	cancelled bool
}

func NewNameScreen(title string) *NameScreen {
	ti := textinput.New()
	ti.Placeholder = "MyPack"
	ti.Focus()
	ti.CharLimit = 100
	ti.Width = 50

	return &NameScreen{title: title, input: ti}
}

func (s *NameScreen) Init() tea.Cmd {
	return textinput.Blink
}

func (s *NameScreen) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.Type {
		case tea.KeyEnter:
			s.done = true
			return s, tea.Quit
		case tea.KeyEsc, tea.KeyCtrlC:
			s.cancelled = true
			return s, tea.Quit
		}
	}

	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)
	return s, cmd
}

func (s *NameScreen) View() string {
	if s.done || s.cancelled {
		return ""
	}
	var b strings.Builder
	b.WriteString(styles.TitleStyle.Render(s.title))
	b.WriteString("\n")
	b.WriteString(styles.FocusedInputStyle.Render(s.input.View()))
	b.WriteString("\n")
	b.WriteString(styles.HelpStyle.Render("enter: confirm • esc: cancel"))
	return b.String()
}

// Value is the trimmed name, empty when the prompt was cancelled.
func (s *NameScreen) Value() string {
	if s.cancelled {
		return ""
	}
	return strings.TrimSpace(s.input.Value())
}
