package screens

import (
	"strings"

	"github.com/charmbracelet/bubbles/filepicker"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/kerbaras/skypack/pkg/app/styles"
)

// PickerScreen selects a source folder.
type PickerScreen struct {
	picker    filepicker.Model
	selected  string
	cancelled bool
}

func NewPickerScreen(start string) *PickerScreen {
	fp := filepicker.New()
	fp.CurrentDirectory = start
	fp.DirAllowed = true
	fp.FileAllowed = false
	fp.ShowHidden = false

	return &PickerScreen{picker: fp}
}

func (s *PickerScreen) Init() tea.Cmd {
	return s.picker.Init()
}

func (s *PickerScreen) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.Type {
		case tea.KeyEsc, tea.KeyCtrlC:
			s.cancelled = true
			return s, tea.Quit
		case tea.KeyRunes:
			// "." takes the folder being browsed
			if string(msg.Runes) == "." {
				s.selected = s.picker.CurrentDirectory
				return s, tea.Quit
			}
		}
	}

	var cmd tea.Cmd
	s.picker, cmd = s.picker.Update(msg)

	if ok, path := s.picker.DidSelectFile(msg); ok {
		s.selected = path
		return s, tea.Quit
	}
	return s, cmd
}

func (s *PickerScreen) View() string {
	if s.selected != "" || s.cancelled {
		return ""
	}
	var b strings.Builder
	b.WriteString(styles.TitleStyle.Render("Select the texture folder"))
	b.WriteString("\n")
	b.WriteString(styles.MutedStyle.Render(s.picker.CurrentDirectory))
	b.WriteString("\n\n")
	b.WriteString(s.picker.View())
	b.WriteString("\n")
	b.WriteString(styles.HelpStyle.Render("enter: select folder • .: use current folder • esc: cancel"))
	return b.String()
}

// Selected is the chosen folder, empty when cancelled.
func (s *PickerScreen) Selected() string {
	if s.cancelled {
		return ""
	}
	return s.selected
}
