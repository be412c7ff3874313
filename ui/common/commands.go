package common

import (
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/deemkeen/stegogram/nav"
)

// AlertMsg is a user visible, non-blocking notice.
type AlertMsg struct {
	Title string
	Text  string
}

// NavigateMsg asks the root to push a screen of the mounted screen set.
type NavigateMsg struct {
	Screen nav.Screen
}

// BackMsg asks the root to pop the current screen.
type BackMsg struct{}

// SelectTabMsg switches the Tabs screen to one of its tabs.
type SelectTabMsg struct {
	Screen nav.Screen
}

func AlertCmd(title, text string) tea.Cmd {
	return func() tea.Msg { return AlertMsg{Title: title, Text: text} }
}

func NavigateCmd(screen nav.Screen) tea.Cmd {
	return func() tea.Msg { return NavigateMsg{Screen: screen} }
}

func BackCmd() tea.Msg {
	return BackMsg{}
}

func SelectTabCmd(screen nav.Screen) tea.Cmd {
	return func() tea.Msg { return SelectTabMsg{Screen: screen} }
}

// Activation identifies one mounting of a screen. Results of asynchronous
// work carry the activation that started them and are dropped by any other.
type Activation uint64

var activations atomic.Uint64

func NextActivation() Activation {
	return Activation(activations.Add(1))
}
