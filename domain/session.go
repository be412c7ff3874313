package domain

// Identity is a signed-in user as issued by the authentication provider.
// The ID is opaque; validating it is the provider's job.
type Identity struct {
	ID string
}

// Session is the current authentication state: either no user or exactly one
// Identity. The zero value is the signed-out session. Sessions are values and
// are replaced wholesale on every change, never mutated.
type Session struct {
	identity *Identity
}

// NoSession is the signed-out session.
var NoSession = Session{}

// SignedIn returns a session bound to the given identity id.
func SignedIn(id string) Session {
	return Session{identity: &Identity{ID: id}}
}

// IsNone reports whether no user is signed in.
func (s Session) IsNone() bool {
	return s.identity == nil
}

// Identity returns the signed-in identity and true, or false for NoSession.
func (s Session) Identity() (Identity, bool) {
	if s.identity == nil {
		return Identity{}, false
	}
	return *s.identity, true
}

// UserID returns the identity id, or "" when signed out.
func (s Session) UserID() string {
	if s.identity == nil {
		return ""
	}
	return s.identity.ID
}

// Equal reports whether both sessions are signed out or bound to the same id.
func (s Session) Equal(o Session) bool {
	if s.IsNone() || o.IsNone() {
		return s.IsNone() == o.IsNone()
	}
	return s.identity.ID == o.identity.ID
}

func (s Session) String() string {
	if s.identity == nil {
		return "none"
	}
	return "identity(" + s.identity.ID + ")"
}
