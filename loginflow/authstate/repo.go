// Package authstate stores the short-lived state of a started
// authorization flow: the PKCE verifier, the nonce, and where to land
// after the callback.
package authstate

import "time"

type State struct {
	CodeVerifier string
	Nonce        string
	ReturnURL    string
	CreatedAt    time.Time
}

type Repo interface {
	Upsert(state string, flowState *State) error
	Get(state string) (*State, error)
	Delete(state string) error
}
