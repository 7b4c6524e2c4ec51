package tenants

// Tenant is an isolated customer workspace. The gateway only reads
// tenants; provisioning and mutation belong to the upstream identity
// servers.
type Tenant struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}
