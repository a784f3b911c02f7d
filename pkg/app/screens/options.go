package screens

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kerbaras/skypack/pkg/app/components"
	"github.com/kerbaras/skypack/pkg/app/styles"
	"github.com/kerbaras/skypack/pkg/config"
)

// OptionsScreen is the run options form.
type OptionsScreen struct {
	defaults  config.Toggles
	list      *components.Checklist
	done      bool
	cancelled bool
}

func NewOptionsScreen(defaults config.Toggles) *OptionsScreen {
	return &OptionsScreen{
		defaults: defaults,
		list:     components.NewToggleChecklist(defaults),
	}
}

func (s *OptionsScreen) Init() tea.Cmd {
	return nil
}

func (s *OptionsScreen) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	msgKey, ok := msg.(tea.KeyMsg)
	if !ok {
		return s, nil
	}

	switch msgKey.Type {
	case tea.KeyUp:
		s.list.Prev()
	case tea.KeyDown, tea.KeyTab:
		s.list.Next()
	case tea.KeySpace:
		s.list.Toggle()
	case tea.KeyEnter:
		s.done = true
		return s, tea.Quit
	case tea.KeyEsc, tea.KeyCtrlC:
		s.cancelled = true
		return s, tea.Quit
	case tea.KeyRunes:
		switch string(msgKey.Runes) {
		case "k":
			s.list.Prev()
		case "j":
			s.list.Next()
		case "x":
			s.list.Toggle()
		case "q":
			s.cancelled = true
			return s, tea.Quit
		}
	}
	return s, nil
}

func (s *OptionsScreen) View() string {
	if s.done || s.cancelled {
		return ""
	}
	var b strings.Builder
	b.WriteString(styles.TitleStyle.Render("Options"))
	b.WriteString("\n")
	b.WriteString(s.list.View())
	b.WriteString(styles.HelpStyle.Render("↑/↓: move • space: toggle • enter: confirm • esc: keep defaults"))
	return b.String()
}

// Toggles is the form result, or the defaults when cancelled.
func (s *OptionsScreen) Toggles() config.Toggles {
	if s.cancelled {
		return s.defaults
	}
	return s.list.Toggles()
}
