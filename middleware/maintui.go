package middleware

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	bm "github.com/charmbracelet/wish/bubbletea"
	"github.com/deemkeen/stegogram/auth"
	"github.com/deemkeen/stegogram/profile"
	"github.com/deemkeen/stegogram/ui"
	"github.com/muesli/termenv"
	"go.uber.org/zap"
)

// Services are shared by every ssh session.
type Services struct {
	Accounts auth.Store
	Profiles *profile.RedisStore
	Logger   *zap.Logger
	AuthOpts []auth.Option
}

// NewSessionModel builds the root model for one terminal together with the
// auth client it owns. The returned stop func releases both and is safe to
// call more than once.
func NewSessionModel(svc Services, logger *zap.Logger, width, height int) (ui.MainModel, func()) {
	opts := append([]auth.Option{
		auth.WithProvisioner(svc.Profiles.Provision),
		auth.WithDeprovisioner(svc.Profiles.Delete),
	}, svc.AuthOpts...)
	client := auth.NewClient(svc.Accounts, logger, opts...)
	m := ui.NewModel(ui.Services{Auth: client, Profiles: svc.Profiles, Logger: logger}, width, height)

	stop := func() {
		m.Close()
		client.Close()
	}
	return m, stop
}

func MainTui(svc Services) wish.Middleware {
	teaHandler := func(s ssh.Session) *tea.Program {

		pty, _, active := s.Pty()
		if !active {
			wish.Println(s, "no active terminal, skipping")
			return nil
		}

		logger := svc.Logger.With(zap.String("remote", s.RemoteAddr().String()))
		m, stop := NewSessionModel(svc, logger, pty.Window.Width, pty.Window.Height)
		go func() {
			<-s.Context().Done()
			stop()
			logger.Debug("ssh session closed")
		}()

		return tea.NewProgram(m, tea.WithInput(s), tea.WithOutput(s), tea.WithAltScreen())
	}
	return bm.MiddlewareWithProgramHandler(teaHandler, termenv.ANSI256)
}
