package forgetpassword

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/deemkeen/stegogram/ui/common"
	"github.com/deemkeen/stegogram/util"
)

type Step int

const (
	StepEmail Step = iota
	StepConfirm
)

type Resetter interface {
	SendPasswordResetEmail(ctx context.Context, email string) error
	ConfirmPasswordReset(ctx context.Context, token, newPassword string) error
}

type Model struct {
	auth       Resetter
	Step       Step
	email      common.Form
	confirm    common.Form
	activation common.Activation
	busy       bool
	Err        string
}

type resetSentMsg struct {
	activation common.Activation
	err        error
}

type resetConfirmedMsg struct {
	activation common.Activation
	err        error
}

func InitialModel(r Resetter) Model {
	return Model{
		auth: r,
		email: common.NewForm(
			common.Field{Label: "Email", Placeholder: "you@example.com", CharLimit: 254},
		),
		confirm: common.NewForm(
			common.Field{Label: "Reset code", Placeholder: "code from the reset message", CharLimit: 128},
			common.Field{Label: "New password", Placeholder: "at least 6 characters", CharLimit: 72, Secret: true},
		),
		activation: common.NextActivation(),
	}
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case resetSentMsg:
		if msg.activation != m.activation {
			return m, nil
		}
		m.busy = false
		if msg.err != nil {
			m.Err = common.Describe(msg.err)
			return m, nil
		}
		m.Err = ""
		m.Step = StepConfirm
		return m, common.AlertCmd("Check your inbox", "If the email is registered, a reset code is on its way.")

	case resetConfirmedMsg:
		if msg.activation != m.activation {
			return m, nil
		}
		m.busy = false
		if msg.err != nil {
			m.Err = common.Describe(msg.err)
			return m, nil
		}
		return m, tea.Batch(
			common.AlertCmd("Password updated", "You can sign in with your new password."),
			common.BackCmd,
		)

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return m, common.BackCmd
		case "tab", "down":
			m.setForm(func(f common.Form) common.Form { f, _ = f.Next(); return f })
			return m, nil
		case "shift+tab", "up":
			m.setForm(common.Form.Prev)
			return m, nil
		case "enter":
			if m.busy {
				return m, nil
			}
			return m.submit()
		}
	}

	var cmd tea.Cmd
	if m.Step == StepEmail {
		m.email, cmd = m.email.Update(msg)
	} else {
		m.confirm, cmd = m.confirm.Update(msg)
	}
	return m, cmd
}

func (m *Model) setForm(f func(common.Form) common.Form) {
	if m.Step == StepEmail {
		m.email = f(m.email)
	} else {
		m.confirm = f(m.confirm)
	}
}

func (m Model) submit() (Model, tea.Cmd) {
	r, activation := m.auth, m.activation

	if m.Step == StepEmail {
		email := util.NormalizeEmail(m.email.Value(0))
		m.busy = true
		m.Err = ""
		return m, func() tea.Msg {
			err := r.SendPasswordResetEmail(context.Background(), email)
			return resetSentMsg{activation: activation, err: err}
		}
	}

	var last bool
	if m.confirm, last = m.confirm.Next(); !last {
		return m, nil
	}
	token := util.NormalizeInput(m.confirm.Value(0))
	password := m.confirm.Value(1)
	m.busy = true
	m.Err = ""
	return m, func() tea.Msg {
		err := r.ConfirmPasswordReset(context.Background(), token, password)
		return resetConfirmedMsg{activation: activation, err: err}
	}
}

func (m Model) View() string {
	var prompt, form, help string
	switch m.Step {
	case StepEmail:
		prompt = "Forgot your password? Enter your account email."
		form = m.email.View()
		help = "(enter to send a reset code, esc to go back)"
	case StepConfirm:
		prompt = fmt.Sprintf("Enter the code sent to %s and choose a new password.", m.email.Value(0))
		form = m.confirm.View()
		help = "(enter to set the new password, esc to go back)"
	}

	status := ""
	switch {
	case m.busy:
		status = common.MutedStyle.Render("please wait...")
	case m.Err != "":
		status = common.ErrorStyle.Render(m.Err)
	}

	return fmt.Sprintf(
		"%s\n\n%s\n\n%s%s\n\n%s",
		common.CaptionStyle.Render("Reset password"),
		prompt,
		form,
		status,
		common.HelpStyle.Render(help),
	) + "\n"
}
