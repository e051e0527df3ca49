package storefront

import (
	"time"

	"github.com/jmcleod/storefront/cart"
)

// SessionStore abstracts session CRUD so that the session backend can be
// swapped without touching the handlers.
type SessionStore interface {
	// Get retrieves a session by token. Returns false if the session
	// does not exist, has expired, or has exceeded the idle timeout.
	Get(token string) (Session, bool)
	// Put creates or updates a session for the given token.
	Put(token string, session Session)
	// Delete removes a session by token.
	Delete(token string)
}

// Session holds the server-side state referenced by the session cookie.
// Anonymous sessions have an empty Username.
type Session struct {
	Username       string
	Cart           *cart.Cart
	Notices        []string
	CSRFToken      string
	ExpiresAt      time.Time
	LastAccessedAt time.Time
}

func newSession() Session {
	return Session{Cart: cart.New()}
}

// clone returns a copy that shares no mutable state with s.
func (s Session) clone() Session {
	cp := s
	cp.Cart = s.Cart.Clone()
	cp.Notices = append([]string(nil), s.Notices...)
	return cp
}

// LoggedIn reports whether a user is attached to the session.
func (s Session) LoggedIn() bool {
	return s.Username != ""
}
