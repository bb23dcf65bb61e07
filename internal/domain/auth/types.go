package auth

// Package auth contains domain-level types for actors and authorization roles.
// It is pure and free of framework/adapter concerns; session issuance and
// identity providers live outside the core and hand it an Actor.

// Role represents an application authorization role.
// Keep string form for easy persistence and cookies.
type Role string

const (
	RoleAdmin          Role = "admin"
	RoleVendorOwner    Role = "vendor_owner"
	RoleInternalWorker Role = "internal_worker"
	RoleVendorWorker   Role = "vendor_worker"
	RoleClient         Role = "client"
)

// Valid returns true if the role is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleVendorOwner, RoleInternalWorker, RoleVendorWorker, RoleClient:
		return true
	}
	return false
}

// Worker returns true for roles that perform jobs in the field.
func (r Role) Worker() bool {
	return r == RoleInternalWorker || r == RoleVendorWorker
}

// Actor is the authenticated principal attached to every core operation.
// Adapters map provider-specific claims into this shape.
type Actor struct {
	UserID   string
	Role     Role
	VendorID string // set for vendor owners/workers
}

// IsAdmin returns true if the actor holds the admin role.
func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

// System returns an actor representing internal automation. Automation writes
// audit entries under this identity when no human actor initiated the change.
func System() Actor {
	return Actor{UserID: "system", Role: RoleAdmin}
}
