package config

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("51"))
	labelStyle = lipgloss.NewStyle().PaddingLeft(2).Width(24).Foreground(lipgloss.Color("245"))
	valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
)

type viewKeys struct {
	Quit key.Binding
	Help key.Binding
}

func (k viewKeys) ShortHelp() []key.Binding  { return []key.Binding{k.Help, k.Quit} }
func (k viewKeys) FullHelp() [][]key.Binding { return [][]key.Binding{{k.Help, k.Quit}} }

var defaultViewKeys = viewKeys{
	Quit: key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit")),
	Help: key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help")),
}

// ViewModel renders the resolved configuration read-only.
type ViewModel struct {
	cfg  *Config
	path string
	keys viewKeys
	help help.Model
}

func NewViewModel(cfg *Config, path string) *ViewModel {
	return &ViewModel{cfg: cfg, path: path, keys: defaultViewKeys, help: help.New()}
}

func (m *ViewModel) Init() tea.Cmd {
	return nil
}

func (m *ViewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		}
	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
	}
	return m, nil
}

func (m *ViewModel) rows() [][2]string {
	c := m.cfg
	dir := c.Watch.Directory
	if dir == "" {
		dir = "(set with --directory)"
	}
	return [][2]string{
		{"Config file", m.path},
		{"Directory", dir},
		{"Ignore", strings.Join(c.Watch.Ignore, ", ")},
		{"Extensions", strings.Join(c.Watch.Extensions, ", ")},
		{"Debounce", fmt.Sprintf("%dms (%s)", c.Watch.DebounceMS, c.Watch.DebounceMode)},
		{"Overlap", string(c.Watch.Overlap)},
		{"Write settle", fmt.Sprintf("%dms, polled every %dms", c.Watch.StabilityThresholdMS, c.Watch.PollIntervalMS)},
		{"Provider", c.Model.Provider},
		{"Model", c.Model.ID},
		{"System prompt", c.Model.SystemPrompt},
		{"Redact secrets", fmt.Sprintf("%t", c.Feedback.RedactSecrets)},
	}
}

func (m *ViewModel) View() string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Hedgehog configuration"))
	sb.WriteString("\n\n")
	for _, row := range m.rows() {
		sb.WriteString(labelStyle.Render(row[0]))
		sb.WriteString(valueStyle.Render(row[1]))
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
	sb.WriteString(m.help.View(m.keys))
	return lipgloss.NewStyle().Padding(1, 2).Render(sb.String())
}

func RunView(cfg *Config) error {
	p := tea.NewProgram(NewViewModel(cfg, GetConfigPath()))
	_, err := p.Run()
	return err
}
