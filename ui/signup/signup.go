package signup

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/deemkeen/stegogram/domain"
	"github.com/deemkeen/stegogram/ui/common"
	"github.com/deemkeen/stegogram/util"
)

const (
	fieldEmail = iota
	fieldUsername
	fieldPassword
)

type Registrar interface {
	SignUp(ctx context.Context, email, username, password string) (domain.Session, error)
}

type Model struct {
	auth       Registrar
	form       common.Form
	activation common.Activation
	busy       bool
	Err        string
}

type signUpResultMsg struct {
	activation common.Activation
	err        error
}

func InitialModel(r Registrar) Model {
	return Model{
		auth: r,
		form: common.NewForm(
			common.Field{Label: "Email", Placeholder: "you@example.com", CharLimit: 254},
			common.Field{Label: "Username", Placeholder: "shutterbug", CharLimit: 30},
			common.Field{Label: "Password", Placeholder: "at least 6 characters", CharLimit: 72, Secret: true},
		),
		activation: common.NextActivation(),
	}
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case signUpResultMsg:
		if msg.activation != m.activation {
			return m, nil
		}
		m.busy = false
		m.Err = common.Describe(msg.err)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return m, common.BackCmd
		case "tab", "down":
			m.form, _ = m.form.Next()
			return m, nil
		case "shift+tab", "up":
			m.form = m.form.Prev()
			return m, nil
		case "enter":
			var last bool
			if m.form, last = m.form.Next(); !last || m.busy {
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
	r, activation := m.auth, m.activation
	email := util.NormalizeEmail(m.form.Value(fieldEmail))
	username := util.NormalizeInput(m.form.Value(fieldUsername))
	password := m.form.Value(fieldPassword)
	return func() tea.Msg {
		_, err := r.SignUp(context.Background(), email, username, password)
		return signUpResultMsg{activation: activation, err: err}
	}
}

func (m Model) View() string {
	status := ""
	switch {
	case m.busy:
		status = common.MutedStyle.Render("creating account...")
	case m.Err != "":
		status = common.ErrorStyle.Render(m.Err)
	}

	return fmt.Sprintf(
		"%s\n\n%s%s\n\n%s",
		common.CaptionStyle.Render("Create your account"),
		m.form.View(),
		status,
		common.HelpStyle.Render("(enter to sign up, esc to go back, ctrl-c to quit)"),
	) + "\n"
}
