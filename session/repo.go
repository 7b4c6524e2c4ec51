package session

import "errors"

// ErrNotFound is returned when a session ID is unknown or expired out of
// storage.
var ErrNotFound = errors.New("session not found")

type Repo interface {
	Upsert(sessionID string, session Session) error
	Get(sessionID string) (Session, error)
	Delete(sessionID string) error
}
