// Package nav derives which screens are reachable from the current
// authentication session and keeps the mounted screen stack in step with it.
package nav

import "github.com/deemkeen/stegogram/domain"

// Mode is the navigation mode of the UI.
type Mode uint

const (
	Unauthenticated Mode = iota
	Authenticated
)

// Modes lists every Mode, for exhaustive checks.
var Modes = []Mode{Unauthenticated, Authenticated}

func (m Mode) String() string {
	switch m {
	case Unauthenticated:
		return "unauthenticated"
	case Authenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Resolve maps a session to its navigation mode. Any identity, even one with
// an empty id, is Authenticated.
func Resolve(s domain.Session) Mode {
	if s.IsNone() {
		return Unauthenticated
	}
	return Authenticated
}
