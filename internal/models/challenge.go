package models

import "github.com/google/uuid"

// Challenge is a single-use WebAuthn ceremony challenge. Registration
// challenges are owned by a user (at most one live per user); authentication
// challenges are ownerless, one per attempt. Rows are deleted at consumption
// whether or not verification succeeds.
type Challenge struct {
	BaseModel
	UserID *uuid.UUID `json:"-" gorm:"type:uuid;index"`
	Value  string     `json:"-" gorm:"type:text;not null"`
	// SessionData carries the marshaled ceremony session the verification
	// step replays against.
	SessionData string `json:"-" gorm:"type:text;not null"`
}
