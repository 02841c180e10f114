package domain

import "time"

// Profile is the single local user of the app. There is no real auth model:
// Authenticated is a local flag and the passcode hash only gates the setup
// wizard on shared machines.
type Profile struct {
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	PasscodeHash  string    `json:"passcode_hash,omitempty"`
	JoinDate      time.Time `json:"join_date"`
	Authenticated bool      `json:"authenticated"`
}
