package session

import "time"

// Descriptor is the persisted record of a live browser session: where to
// reconnect, and how far the booking flow has progressed. It is the only
// state that survives a process restart.
type Descriptor struct {
	// CDPEndpoint is the remote debugging endpoint of the launched
	// browser, used by later processes to reconnect.
	CDPEndpoint string `json:"cdpEndpoint"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// LoggedIn is set after a successful login.
	LoggedIn bool `json:"loggedIn"`

	// FormFilled is set after a successful form fill and cleared the
	// moment a submission starts, so a retry can never resubmit.
	FormFilled bool `json:"formFilled"`
}

// Update is a partial descriptor change. Nil fields are left untouched,
// which makes repeated applications of the same update idempotent.
type Update struct {
	LoggedIn   *bool
	FormFilled *bool
}

// Bool returns a pointer to v, for building Update values.
func Bool(v bool) *bool {
	return &v
}
