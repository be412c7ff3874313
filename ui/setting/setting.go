package setting

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/deemkeen/stegogram/domain"
	"github.com/deemkeen/stegogram/ui/common"
	"github.com/deemkeen/stegogram/ui/deleteaccount"
	"github.com/deemkeen/stegogram/util"
)

var labelStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color(common.COLOR_GREY)).
	Width(12)

type Account interface {
	deleteaccount.Deleter
	SignOut()
	Refresh(ctx context.Context) error
}

type Model struct {
	auth       Account
	Acc        *domain.Account
	activation common.Activation
	signingOut bool
	deleting   bool
	delete     deleteaccount.Model
}

type refreshedMsg struct {
	activation common.Activation
	err        error
}

func InitialModel(a Account, acc *domain.Account) Model {
	return Model{auth: a, Acc: acc, activation: common.NextActivation()}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case deleteaccount.CancelledMsg:
		m.deleting = false
		return m, nil

	case refreshedMsg:
		if msg.activation == m.activation && msg.err != nil {
			return m, common.AlertCmd("Error", "Failed to refresh the account.")
		}
		return m, nil

	case tea.KeyMsg:
		if m.deleting {
			var cmd tea.Cmd
			m.delete, cmd = m.delete.Update(msg)
			return m, cmd
		}
		switch msg.String() {
		case "d":
			m.deleting = true
			m.delete = deleteaccount.InitialModel(m.auth, m.Acc)
			return m, nil
		case "enter":
			if m.signingOut {
				return m, nil
			}
			m.signingOut = true
			a := m.auth
			return m, func() tea.Msg {
				a.SignOut()
				return nil
			}
		case "r":
			a, activation := m.auth, m.activation
			return m, func() tea.Msg {
				return refreshedMsg{activation: activation, err: a.Refresh(context.Background())}
			}
		}
		return m, nil
	}

	if m.deleting {
		var cmd tea.Cmd
		m.delete, cmd = m.delete.Update(msg)
		return m, cmd
	}
	return m, nil
}

// Deleting reports whether the delete account confirmation is shown.
func (m Model) Deleting() bool {
	return m.deleting
}

func (m Model) View() string {
	if m.deleting {
		return m.delete.View()
	}

	var s strings.Builder
	s.WriteString(common.CaptionStyle.Render("settings"))
	s.WriteString("\n")

	if m.Acc != nil {
		row := func(label, value string) {
			s.WriteString(labelStyle.Render(label))
			s.WriteString(value)
			s.WriteString("\n")
		}
		row("username", m.Acc.Username)
		row("email", m.Acc.Email)
		row("registered", m.Acc.CreatedAt.Local().Format(util.DateTimeFormat()))
	}
	s.WriteString(fmt.Sprintf("\n%s\n\n", common.MutedStyle.Render(util.GetNameAndVersion())))

	if m.signingOut {
		s.WriteString(common.MutedStyle.Render("signing out..."))
	} else {
		s.WriteString(common.HelpStyle.Render("(enter to sign out, r to refresh, d to delete account, tab switch)"))
	}
	return s.String()
}
