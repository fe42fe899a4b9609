package models

// Role is a member's role within a group.
type Role string

const (
	RoleMember Role = "member"
	RoleAdmin  Role = "admin"
)

// GroupMembership links a user to a group. The roster is supplied by an
// external group collaborator and is read-only input to this core: the
// allocator validates participants against it and the netting engine scopes
// balances by it.
type GroupMembership struct {
	GroupID string
	UserID  string
	Role    Role
}
