// Package directory is the in-process identity directory backing the
// mock login variant. It holds a handful of seeded accounts with bcrypt
// password hashes and never talks to the network.
package directory

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// User is one mock directory account.
type User struct {
	ID                string    `json:"id"`
	Email             string    `json:"email"`
	PasswordHash      string    `json:"-"` // never serialize
	FirstName         string    `json:"first_name,omitempty"`
	LastName          string    `json:"last_name,omitempty"`
	Roles             []string  `json:"roles"`
	PrimaryTenantID   int64     `json:"primary_tenant_id"`
	TenantMemberships []int64   `json:"tenant_memberships"`
	Blocked           bool      `json:"blocked,omitempty"`
	DateJoined        time.Time `json:"date_joined,omitempty"`
}

// HasTenant reports whether the user holds membership in tenantID.
func (u *User) HasTenant(tenantID int64) bool {
	for _, id := range u.TenantMemberships {
		if id == tenantID {
			return true
		}
	}
	return false
}

// HashPassword creates a bcrypt hash of the password.
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPasswordHash compares a plaintext password with a bcrypt hash.
func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
