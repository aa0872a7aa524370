package session

import (
	"github.com/angelmondragon/salessavvy-storefront/internal/backend"
)

// Event names the transition that produced a Snapshot.
type Event string

const (
	EventInitialized    Event = "initialized"
	EventLogin          Event = "login"
	EventRegister       Event = "register"
	EventLogout         Event = "logout"
	EventAuthRequired   Event = "auth_required"
	EventProfileUpdated Event = "profile_updated"
	EventLoading        Event = "loading"
	EventError          Event = "error"
)

// ResetsIdentity reports whether the event may have changed who is signed in.
func (e Event) ResetsIdentity() bool {
	switch e {
	case EventLogin, EventRegister, EventLogout, EventAuthRequired:
		return true
	}
	return false
}

// Snapshot is a consistent read of session state.
type Snapshot struct {
	Event         Event
	Identity      *backend.Identity
	Authenticated bool
	Initialized   bool
	Loading       bool
	Error         string
}
