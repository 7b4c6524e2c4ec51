package directory

import (
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var _ Repo = (*InMemoryRepo)(nil)

// InMemoryRepo is a thread-safe in-memory user directory.
type InMemoryRepo struct {
	mu    sync.RWMutex
	users map[string]*User // lowercase email -> user
}

func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{users: make(map[string]*User)}
}

func (r *InMemoryRepo) GetByEmail(email string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[strings.ToLower(email)]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *user
	return &cp, nil
}

func (r *InMemoryRepo) Upsert(user *User) error {
	if user == nil || user.Email == "" {
		return errors.New("[InMemoryRepo.Upsert] user email is required")
	}
	if user.ID == "" {
		user.ID = uuid.New().String()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *user
	r.users[strings.ToLower(user.Email)] = &cp
	return nil
}

// Seed populates the repo with the development accounts. The well-known
// account user@spearfish.io/UserPass123! belongs to tenants 1 and 2 with
// tenant 1 primary.
func Seed(repo Repo) error {
	hash, err := HashPassword("UserPass123!")
	if err != nil {
		return errors.Wrap(err, "[directory.Seed] HashPassword")
	}

	seeded := []*User{
		{
			Email:             "user@spearfish.io",
			PasswordHash:      hash,
			FirstName:         "Sam",
			LastName:          "Spearfish",
			Roles:             []string{"TenantUserRole"},
			PrimaryTenantID:   1,
			TenantMemberships: []int64{1, 2},
		},
		{
			Email:             "admin@spearfish.io",
			PasswordHash:      hash,
			FirstName:         "Alex",
			LastName:          "Admin",
			Roles:             []string{"TenantAdminRole", "TenantUserRole"},
			PrimaryTenantID:   1,
			TenantMemberships: []int64{1},
		},
	}

	for _, u := range seeded {
		if err := repo.Upsert(u); err != nil {
			return errors.Wrap(err, "[directory.Seed] Upsert")
		}
	}
	return nil
}
