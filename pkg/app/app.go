package app

import (
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kerbaras/skypack/pkg/app/screens"
	"github.com/kerbaras/skypack/pkg/config"
)

// App runs the interactive prompts used when the command line leaves an
// input out.
type App struct {
	options []tea.ProgramOption
}

func NewApp(opts ...tea.ProgramOption) *App {
	return &App{options: opts}
}

// NewAppWithIO runs the prompts over the given streams.
func NewAppWithIO(in io.Reader, out io.Writer) *App {
	return NewApp(tea.WithInput(in), tea.WithOutput(out))
}

func (a *App) run(model tea.Model) (tea.Model, error) {
	p := tea.NewProgram(model, a.options...)
	final, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("prompt failed: %w", err)
	}
	return final, nil
}

// PickFolder returns the chosen folder, or "" when the user cancels.
func (a *App) PickFolder(start string) (string, error) {
	final, err := a.run(screens.NewPickerScreen(start))
	if err != nil {
		return "", err
	}
	return final.(*screens.PickerScreen).Selected(), nil
}

// PromptName returns the entered name, or "" when the user cancels.
func (a *App) PromptName(title string) (string, error) {
	final, err := a.run(screens.NewNameScreen(title))
	if err != nil {
		return "", err
	}
	return final.(*screens.NameScreen).Value(), nil
}

// ConfigureToggles shows the options form seeded with defaults.
func (a *App) ConfigureToggles(defaults config.Toggles) (config.Toggles, error) {
	final, err := a.run(screens.NewOptionsScreen(defaults))
	if err != nil {
		return defaults, err
	}
	return final.(*screens.OptionsScreen).Toggles(), nil
}
