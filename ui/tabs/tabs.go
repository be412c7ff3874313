// Package tabs is the authenticated root screen hosting the Feed, Profile
// and Setting tabs.
package tabs

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/deemkeen/stegogram/domain"
	"github.com/deemkeen/stegogram/nav"
	store "github.com/deemkeen/stegogram/profile"
	"github.com/deemkeen/stegogram/ui/common"
	"github.com/deemkeen/stegogram/ui/feed"
	"github.com/deemkeen/stegogram/ui/header"
	"github.com/deemkeen/stegogram/ui/profile"
	"github.com/deemkeen/stegogram/ui/setting"
	"go.uber.org/zap"
)

var panelStyle = lipgloss.NewStyle().
	Align(lipgloss.Top, lipgloss.Top).
	BorderStyle(lipgloss.NormalBorder()).
	BorderForeground(lipgloss.Color(common.COLOR_LIGHTBLUE)).
	MarginLeft(1)

// Services are the collaborators of the tab screens.
type Services struct {
	Account  setting.Account
	Profiles store.Gateway
	Feed     feed.Store
	Logger   *zap.Logger
}

type Model struct {
	Active  nav.Screen
	header  header.Model
	feed    feed.Model
	profile profile.Model
	setting setting.Model
	width   int
	height  int
}

func InitialModel(session domain.Session, acc *domain.Account, svc Services, width, height int) Model {
	author := ""
	if acc != nil {
		author = acc.Username
	}
	return Model{
		Active:  nav.Feed,
		header:  header.Model{Width: width, Acc: acc, Active: nav.Feed},
		feed:    feed.InitialModel(svc.Feed, session, author, svc.Logger, width, height),
		profile: profile.InitialModel(svc.Profiles, session, svc.Logger, width, height),
		setting: setting.InitialModel(svc.Account, acc),
		width:   width,
		height:  height,
	}
}

func (m Model) Init() tea.Cmd {
	return m.feed.Init()
}

// Profile exposes the profile tab, mainly for tests.
func (m Model) Profile() profile.Model {
	return m.profile
}

// Select switches to tab s and activates it.
func (m Model) Select(s nav.Screen) (Model, tea.Cmd) {
	if s == m.Active || !isTab(s) {
		return m, nil
	}
	if m.Active == nav.Profile {
		m.profile = m.profile.Deactivate()
	}
	m.Active = s
	m.header.Active = s

	var cmd tea.Cmd
	switch s {
	case nav.Feed:
		cmd = m.feed.Init()
	case nav.Profile:
		m.profile, cmd = m.profile.Activate()
	}
	return m, cmd
}

func isTab(s nav.Screen) bool {
	for _, t := range nav.TabScreens {
		if t == s {
			return true
		}
	}
	return false
}

func (m Model) cycle(step int) nav.Screen {
	n := len(nav.TabScreens)
	for i, t := range nav.TabScreens {
		if t == m.Active {
			return nav.TabScreens[(i+step+n)%n]
		}
	}
	return nav.TabScreens[0]
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.header.Width = msg.Width
		m.feed.Width, m.feed.Height = msg.Width, msg.Height
		m.profile.Width, m.profile.Height = msg.Width, msg.Height
		return m, nil

	case common.SelectTabMsg:
		return m.Select(msg.Screen)

	case tea.KeyMsg:
		// a screen in the middle of a form keeps every key
		captured := (m.Active == nav.Feed && m.feed.Composing) ||
			(m.Active == nav.Setting && m.setting.Deleting())
		if !captured {
			switch msg.String() {
			case "tab":
				return m.Select(m.cycle(1))
			case "shift+tab":
				return m.Select(m.cycle(-1))
			}
		}
		switch m.Active {
		case nav.Feed:
			m.feed, cmd = m.feed.Update(msg)
		case nav.Profile:
			m.profile, cmd = m.profile.Update(msg)
		case nav.Setting:
			m.setting, cmd = m.setting.Update(msg)
		}
		return m, cmd
	}

	// results of asynchronous work go to every tab, each drops what is not its own
	m.feed, cmd = m.feed.Update(msg)
	cmds = append(cmds, cmd)
	m.profile, cmd = m.profile.Update(msg)
	cmds = append(cmds, cmd)
	m.setting, cmd = m.setting.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m Model) View() string {
	var s strings.Builder
	s.WriteString(m.header.View())
	s.WriteString("\n")

	var body string
	switch m.Active {
	case nav.Feed:
		body = m.feed.View()
	case nav.Profile:
		body = m.profile.View()
	case nav.Setting:
		body = m.setting.View()
	}

	width := common.DefaultWindowWidth(m.width)
	height := common.DefaultWindowHeight(m.height)
	s.WriteString(panelStyle.Width(width).Height(height).MaxHeight(height + 2).Render(body))
	return s.String()
}
