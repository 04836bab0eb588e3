package domain

import "time"

// TokenLifetime is the fixed validity window of a bearer token, measured
// from the instant the login response was received.
const TokenLifetime = 60 * time.Minute

// SessionState is the derived view of the persisted session fields.
type SessionState struct {
	Valid            bool
	Username         string
	MinutesRemaining int
}

// Credentials is the persisted session record: the three fields are always
// written and cleared as one atomic group.
type Credentials struct {
	Token    string
	IssuedAt time.Time
	Username string
}

// SessionListener is notified after the session store has been updated.
// Listeners run synchronously in registration order, so a listener observes
// the new store contents and any listener registered before it has already
// run.
type SessionListener interface {
	OnLogin(creds Credentials)
	OnLogout()
}
