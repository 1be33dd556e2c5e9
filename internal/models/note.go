package models

import "github.com/google/uuid"

type Note struct {
	BaseModel
	WorkspaceID uuid.UUID  `json:"workspace_id" gorm:"type:uuid;index;not null"`
	Title       string     `json:"title" gorm:"type:varchar(512);not null;default:'Untitled'"`
	ParentID    *uuid.UUID `json:"parent_id" gorm:"type:uuid;index"`
	Pinned      bool       `json:"pinned" gorm:"default:false"`
	Metadata    JSONMap    `json:"metadata" gorm:"type:text"`
	CreatedBy   uuid.UUID  `json:"created_by" gorm:"type:uuid;not null"`
}
