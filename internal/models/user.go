package models

import "time"

// Role controls what a team member may do.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleManager  Role = "manager"
	RoleEmployee Role = "employee"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleEmployee:
		return true
	}
	return false
}

// CanApprove reports whether the role may approve or reject expenses.
func (r Role) CanApprove() bool {
	return r == RoleAdmin || r == RoleManager
}

// CanManageTeam reports whether the role may invite members and manage budgets.
func (r Role) CanManageTeam() bool {
	return r == RoleAdmin || r == RoleManager
}

// User represents a team member account.
type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	TeamID       int64     `json:"team_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// Team groups users, expenses and budgets.
type Team struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedBy int64     `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

// Session represents a logged-in user session.
type Session struct {
	Token     string    `json:"token"`
	UserID    int64     `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// InvitationStatus is the lifecycle state of a team invitation.
type InvitationStatus string

const (
	InvitePending  InvitationStatus = "pending"
	InviteAccepted InvitationStatus = "accepted"
	InviteExpired  InvitationStatus = "expired"
)

// Invitation lets a new member join a team with a preset role.
type Invitation struct {
	ID        int64            `json:"id"`
	TeamID    int64            `json:"team_id"`
	Email     string           `json:"email"`
	Role      Role             `json:"role"`
	Token     string           `json:"token"`
	Status    InvitationStatus `json:"status"`
	InvitedBy int64            `json:"invited_by"`
	ExpiresAt time.Time        `json:"expires_at"`
	CreatedAt time.Time        `json:"created_at"`
}
