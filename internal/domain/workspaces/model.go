package workspaces

import (
	"time"

	"workspace-app/internal/domain/users"
)

// Member status values. A suspended member keeps its row for billing and
// audit history and is treated like a non-member by authorization.
const (
	MemberStatusActive    = "active"
	MemberStatusSuspended = "suspended"
	MemberStatusInvited   = "invited"
)

const (
	RoleOwner  = "owner"
	RoleAdmin  = "admin"
	RoleMember = "member"
)

type Workspace struct {
	ID      string  `gorm:"type:varchar(36);primaryKey"`
	OwnerID string  `gorm:"type:varchar(36)"`
	Slug    string  `gorm:"type:varchar(255);not null;uniqueIndex:idx_workspaces_slug"`
	Name    string  `gorm:"type:varchar(255);not null"`
	Logo    *string `gorm:"type:varchar(255)"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

type Member struct {
	UserID      string     `gorm:"type:varchar(36);primaryKey"`
	WorkspaceID string     `gorm:"type:varchar(36);primaryKey"`
	Role        string     `gorm:"type:varchar(20);not null"`
	Status      string     `gorm:"type:varchar(20);not null;default:'active'"`
	InvitedAt   *time.Time

	User      users.User `gorm:"foreignKey:UserID"`
	Workspace Workspace  `gorm:"foreignKey:WorkspaceID"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Member) TableName() string { return "workspace_members" }

// Invitation is a pending membership offer. Its ID doubles as the
// acceptance token. Invitations without an ExpiresAt never expire.
type Invitation struct {
	ID          string  `gorm:"type:varchar(36);primaryKey"`
	WorkspaceID string  `gorm:"type:varchar(36);not null;uniqueIndex:idx_invitations_workspace_email"`
	Email       string  `gorm:"type:varchar(255);not null;uniqueIndex:idx_invitations_workspace_email"`
	UserID      *string `gorm:"type:varchar(36)"`
	Role        string  `gorm:"type:varchar(20);not null"`
	InvitedBy   *string `gorm:"type:varchar(36)"`
	Accepted    bool    `gorm:"default:false"`
	ExpiresAt   *time.Time

	Workspace Workspace `gorm:"foreignKey:WorkspaceID"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Invitation) TableName() string { return "workspace_invitations" }
