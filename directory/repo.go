package directory

import "errors"

var ErrUserNotFound = errors.New("user not found")

type Repo interface {
	GetByEmail(email string) (*User, error)
	Upsert(user *User) error
}
