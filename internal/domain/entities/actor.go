package entities

// Role is the marketplace role of a user
type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
	RoleAgent  Role = "agent"
	RoleAdmin  Role = "admin"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	switch r {
	case RoleBuyer, RoleSeller, RoleAgent, RoleAdmin:
		return true
	}
	return false
}

// Actor is the caller of an engine operation: who they are and which role they act in.
// It is passed explicitly into every call instead of being read from ambient session state.
type Actor struct {
	UserID string `json:"user_id"`
	Role   Role   `json:"role"`
}

// IsAdmin reports whether the actor may use the admin and audit paths
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// Valid reports whether the actor is usable
func (a Actor) Valid() bool {
	return a.UserID != "" && a.Role.Valid()
}
