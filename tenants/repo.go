package tenants

import "errors"

// ErrNotFound is returned when a tenant ID is unknown.
var ErrNotFound = errors.New("tenant not found")

type Repo interface {
	Get(tenantID int64) (*Tenant, error)
	List() ([]*Tenant, error)
}
