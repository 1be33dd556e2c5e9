package models

// User is the persisted account a passkey credential or demo session belongs
// to. The authenticated identity at request time is auth.Principal, which is
// built from token claims and never stored.
type User struct {
	BaseModel
	Email       string       `json:"email" gorm:"type:varchar(255);uniqueIndex;not null"`
	DisplayName *string      `json:"display_name,omitempty" gorm:"type:varchar(255)"`
	Credentials []Credential `json:"-" gorm:"foreignKey:UserID"`
}
