package header

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/deemkeen/stegogram/domain"
	"github.com/deemkeen/stegogram/nav"
	"github.com/deemkeen/stegogram/ui/common"
	"github.com/deemkeen/stegogram/util"
)

type Model struct {
	Width  int
	Acc    *domain.Account
	Active nav.Screen
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(common.SelectTabMsg); ok {
		m.Active = msg.Screen
	}
	return m, nil
}

func (m Model) View() string {
	return GetHeaderStyle(m.Acc, m.Active, m.Width)
}

func GetHeaderStyle(acc *domain.Account, active nav.Screen, width int) string {
	// four bordered boxes with padding(1): 4 chars overhead each
	overhead := 16
	availableWidth := width - overhead
	if availableWidth < 40 {
		availableWidth = 40
	}

	usernameWidth := availableWidth / 6
	atWidth := 1
	tabsWidth := availableWidth / 2
	versionWidth := availableWidth - usernameWidth - atWidth - tabsWidth

	name := "?"
	if acc != nil {
		name = acc.Username
	}

	box := func(s string, w int) lipgloss.Style {
		return lipgloss.NewStyle().
			SetString(s).
			Padding(1).
			Height(2).
			Width(w).
			Border(lipgloss.NormalBorder(), true, false, true, false).
			BorderForeground(lipgloss.Color(common.COLOR_MAGENTA))
	}

	username := box(name, usernameWidth).
		Align(lipgloss.Left).
		Background(lipgloss.Color(common.COLOR_PURPLE)).
		String()

	at := box("@", atWidth).
		Foreground(lipgloss.Color(common.COLOR_MAGENTA)).
		String()

	tabs := box(tabLine(active), tabsWidth).
		Background(lipgloss.Color(common.COLOR_GREY)).
		String()

	version := box(util.GetNameAndVersion(), versionWidth).
		Align(lipgloss.Left).
		Background(lipgloss.Color(common.COLOR_MAGENTA)).
		String()

	return lipgloss.JoinHorizontal(lipgloss.Left, username, at, tabs, version)
}

func tabLine(active nav.Screen) string {
	selected := lipgloss.NewStyle().Bold(true).Underline(true)
	var line string
	for i, s := range nav.TabScreens {
		if i > 0 {
			line += "  "
		}
		if s == active {
			line += selected.Render(string(s))
		} else {
			line += string(s)
		}
	}
	return line
}
