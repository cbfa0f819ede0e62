package model

import "time"

// OrganizationType differentiates between personal (implicit) and team organizations.
type OrganizationType string

const (
	OrganizationTypePersonal OrganizationType = "personal"
	OrganizationTypeTeam     OrganizationType = "team"
)

// Role describes a member's standing within an organization.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// Organization is a directory record. Members maps a user id to the role
// that user holds in the organization; the owner is always a member.
type Organization struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	OwnerUserID string           `json:"owner_user_id"`
	Type        OrganizationType `json:"type"`
	Members     map[string]Role  `json:"members"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// RoleOf returns the role the given user holds, or "" when not a member.
func (o *Organization) RoleOf(userID string) Role {
	if o.Members == nil {
		return ""
	}
	return o.Members[userID]
}
