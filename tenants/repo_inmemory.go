package tenants

import (
	"sort"
	"sync"
)

var _ Repo = (*InMemoryRepo)(nil)

// InMemoryRepo is a thread-safe in-memory tenant catalogue, used by the
// mock backend and in tests.
type InMemoryRepo struct {
	mu      sync.RWMutex
	tenants map[int64]*Tenant
}

func NewInMemoryRepo(seed ...*Tenant) *InMemoryRepo {
	r := &InMemoryRepo{tenants: make(map[int64]*Tenant)}
	for _, t := range seed {
		r.tenants[t.ID] = t
	}
	return r
}

func (r *InMemoryRepo) Get(tenantID int64) (*Tenant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tenants[tenantID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *InMemoryRepo) List() ([]*Tenant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Tenant, 0, len(r.tenants))
	for _, t := range r.tenants {
		cp := *t
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
