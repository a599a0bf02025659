package domain

import "time"

// Membership links a user to a team with a role.
type Membership struct {
	ID        int64
	UserID    int64
	TeamID    int64
	Role      Role
	CreatedAt time.Time
}

// Role is the membership role within a team.
type Role string

const (
	RoleOwner  Role = "OWNER"
	RoleAdmin  Role = "ADMIN"
	RoleMember Role = "MEMBER"
)
