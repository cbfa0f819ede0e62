package model

// Role describes a user's membership level within an organization.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// Organization is the client-side view of an organization the authenticated
// user belongs to. Records are immutable once constructed; two organizations
// are the same organization when their IDs match.
type Organization struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role Role   `json:"role"`
}
