package login

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/deemkeen/stegogram/domain"
	"github.com/deemkeen/stegogram/nav"
	"github.com/deemkeen/stegogram/ui/common"
	"github.com/deemkeen/stegogram/util"
)

const (
	fieldEmail = iota
	fieldPassword
)

type Authenticator interface {
	SignIn(ctx context.Context, email, password string) (domain.Session, error)
}

type Model struct {
	auth       Authenticator
	form       common.Form
	activation common.Activation
	busy       bool
	Err        string
}

type signInResultMsg struct {
	activation common.Activation
	err        error
}

func InitialModel(a Authenticator) Model {
	return Model{
		auth: a,
		form: common.NewForm(
			common.Field{Label: "Email", Placeholder: "you@example.com", CharLimit: 254},
			common.Field{Label: "Password", Placeholder: "password", CharLimit: 72, Secret: true},
		),
		activation: common.NextActivation(),
	}
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case signInResultMsg:
		if msg.activation != m.activation {
			return m, nil
		}
		m.busy = false
		m.Err = common.Describe(msg.err)
		// on success the session change remounts the navigator
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+n":
			return m, common.NavigateCmd(nav.Signup)
		case "ctrl+r":
			return m, common.NavigateCmd(nav.ForgetPassword)
		case "tab", "down":
			m.form, _ = m.form.Next()
			return m, nil
		case "shift+tab", "up":
			m.form = m.form.Prev()
			return m, nil
		case "enter":
			var last bool
			if m.form, last = m.form.Next(); !last {
				return m, nil
			}
			if m.busy {
				return m, nil
			}
			m.busy = true
			m.Err = ""
			return m, m.submit()
		}
	}

	var cmd tea.Cmd
	m.form, cmd = m.form.Update(msg)
	return m, cmd
}

func (m Model) submit() tea.Cmd {
	a, activation := m.auth, m.activation
	email := util.NormalizeEmail(m.form.Value(fieldEmail))
	password := m.form.Value(fieldPassword)
	return func() tea.Msg {
		_, err := a.SignIn(context.Background(), email, password)
		return signInResultMsg{activation: activation, err: err}
	}
}

func (m Model) View() string {
	status := ""
	switch {
	case m.busy:
		status = common.MutedStyle.Render("signing in...")
	case m.Err != "":
		status = common.ErrorStyle.Render(m.Err)
	}

	return fmt.Sprintf(
		"%s\n\n%s%s\n\n%s",
		common.CaptionStyle.Render(fmt.Sprintf("Sign in to %s", util.GetNameAndVersion())),
		m.form.View(),
		status,
		common.HelpStyle.Render("(enter to sign in, ctrl-n to sign up, ctrl-r to reset password, ctrl-c to quit)"),
	) + "\n"
}
