package models

import "github.com/google/uuid"

type Workspace struct {
	BaseModel
	Name string `json:"name" gorm:"type:varchar(255);not null"`
}

type WorkspaceMemberRole string

const (
	WorkspaceRoleOwner  WorkspaceMemberRole = "owner"
	WorkspaceRoleMember WorkspaceMemberRole = "member"
)

type WorkspaceMember struct {
	BaseModel
	WorkspaceID uuid.UUID           `json:"workspace_id" gorm:"type:uuid;index;not null"`
	UserID      uuid.UUID           `json:"user_id" gorm:"type:uuid;index;not null"`
	Role        WorkspaceMemberRole `json:"role" gorm:"type:varchar(20);not null;default:'member'"`
	Workspace   Workspace           `json:"-" gorm:"foreignKey:WorkspaceID"`
	User        User                `json:"-" gorm:"foreignKey:UserID"`
}
