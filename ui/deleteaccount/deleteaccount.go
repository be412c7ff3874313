package deleteaccount

import (
	"context"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/deemkeen/stegogram/domain"
	"github.com/deemkeen/stegogram/ui/common"
)

var (
	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(common.COLOR_RED)).
			Bold(true)

	instructionStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color(common.COLOR_GREY))
)

type Deleter interface {
	DeleteAccount(ctx context.Context) error
}

// CancelledMsg is sent when the user backs out of deletion.
type CancelledMsg struct{}

type Model struct {
	deleter     Deleter
	Account     *domain.Account
	ConfirmStep int // 0 = initial, 1 = final confirmation
	Deleting    bool
	Error       string
}

type deleteAccountResultMsg struct {
	err error
}

func InitialModel(d Deleter, account *domain.Account) Model {
	return Model{deleter: d, Account: account}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case deleteAccountResultMsg:
		m.Deleting = false
		if msg.err != nil {
			m.Error = "Failed to delete account, please try again."
			m.ConfirmStep = 0
			return m, nil
		}
		// the session ends and the navigator remounts the sign in screens
		return m, nil

	case tea.KeyMsg:
		if m.Deleting {
			return m, nil
		}
		switch msg.String() {
		case "y", "Y":
			if m.ConfirmStep == 0 {
				m.ConfirmStep = 1
				m.Error = ""
				return m, nil
			}
			m.Deleting = true
			return m, deleteAccountCmd(m.deleter)
		case "n", "N", "esc":
			m.ConfirmStep = 0
			m.Error = ""
			return m, func() tea.Msg { return CancelledMsg{} }
		}
	}
	return m, nil
}

func deleteAccountCmd(d Deleter) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return deleteAccountResultMsg{err: d.DeleteAccount(ctx)}
	}
}

func (m Model) View() string {
	var s strings.Builder

	s.WriteString(common.CaptionStyle.Render("delete account"))
	s.WriteString("\n")

	username := "?"
	if m.Account != nil {
		username = m.Account.Username
	}

	switch {
	case m.Deleting:
		s.WriteString(instructionStyle.Render("Deleting account..."))
	case m.ConfirmStep == 0:
		s.WriteString(warningStyle.Render("⚠ WARNING: This will permanently delete your account!"))
		s.WriteString("\n\n")
		s.WriteString("The following data will be deleted:\n")
		s.WriteString("  • Your account (@" + username + ")\n")
		s.WriteString("  • Your profile and the list of your posts\n")
		s.WriteString("\n")
		s.WriteString(warningStyle.Render("This action CANNOT be undone!"))
		s.WriteString("\n\n")
		s.WriteString(instructionStyle.Render("Press 'y' to continue or 'n'/'esc' to cancel"))
	default:
		s.WriteString(warningStyle.Render("⚠ FINAL WARNING!"))
		s.WriteString("\n\n")
		s.WriteString("You are about to permanently delete account: ")
		s.WriteString(warningStyle.Render("@" + username))
		s.WriteString("\n\n")
		s.WriteString(instructionStyle.Render("Press 'y' to DELETE PERMANENTLY or 'n'/'esc' to cancel"))
	}

	if m.Error != "" {
		s.WriteString("\n\n")
		s.WriteString(common.ErrorStyle.Render(m.Error))
	}
	return s.String()
}
