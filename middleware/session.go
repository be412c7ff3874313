package middleware

import (
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/deemkeen/stegogram/util"
	"go.uber.org/zap"
)

// SessionLogger records who opened a session. Accounts are not tied to ssh
// keys; users sign in inside the terminal UI.
func SessionLogger(logger *zap.Logger) wish.Middleware {
	return func(h ssh.Handler) ssh.Handler {
		return func(s ssh.Session) {
			util.LogSession(logger, s)
			h(s)
		}
	}
}
