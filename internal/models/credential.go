package models

import (
	"time"

	"github.com/google/uuid"
)

type CredentialDeviceType string

const (
	DeviceTypeSingle CredentialDeviceType = "single_device"
	DeviceTypeMulti  CredentialDeviceType = "multi_device"
)

type CredentialBackupState string

const (
	BackupStateBackedUp    CredentialBackupState = "backed_up"
	BackupStateNotBackedUp CredentialBackupState = "not_backed_up"
)

type CredentialVerificationStatus string

const (
	VerificationStatusVerified   CredentialVerificationStatus = "verified"
	VerificationStatusUnverified CredentialVerificationStatus = "unverified"
)

// Credential is a registered passkey. CredentialID is the authenticator's
// public, stable identifier (base64url); PublicKey is stored base64-encoded
// and never serialized to clients.
type Credential struct {
	BaseModel
	UserID           uuid.UUID                    `json:"user_id" gorm:"type:uuid;index;not null"`
	FriendlyName     string                       `json:"friendly_name" gorm:"type:varchar(255);not null"`
	CredentialType   string                       `json:"credential_type" gorm:"type:varchar(32);not null;default:'public-key'"`
	CredentialID     string                       `json:"credential_id" gorm:"type:text;uniqueIndex;not null"`
	PublicKey        string                       `json:"-" gorm:"type:text;not null"`
	AAGUID           string                       `json:"-" gorm:"type:varchar(64)"`
	SignCount        uint32                       `json:"-" gorm:"default:0"`
	Transports       string                       `json:"-" gorm:"type:text"`
	UserVerification CredentialVerificationStatus `json:"user_verification_status" gorm:"type:varchar(20)"`
	DeviceType       CredentialDeviceType         `json:"device_type" gorm:"type:varchar(20)"`
	BackupState      CredentialBackupState        `json:"backup_state" gorm:"type:varchar(20)"`
	LastUsedAt       *time.Time                   `json:"last_used_at,omitempty"`
	User             User                         `json:"-" gorm:"foreignKey:UserID"`
}
