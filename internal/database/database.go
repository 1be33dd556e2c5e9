package database

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/quillnotes/backend/internal/auth"
	"github.com/quillnotes/backend/internal/config"
	"github.com/quillnotes/backend/internal/models"
)

func Connect(cfg config.DBConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.Name,
		cfg.SSLMode,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	if err := SeedSandbox(db); err != nil {
		return nil, err
	}

	return db, nil
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Workspace{},
		&models.WorkspaceMember{},
		&models.Note{},
		&models.Block{},
		&models.Credential{},
		&models.Challenge{},
	)
}

// SeedSandbox ensures the fixed sandbox user and workspace rows exist, so
// sandbox-mode requests have valid foreign keys to write against. The rows
// are well-known IDs, never real accounts.
func SeedSandbox(db *gorm.DB) error {
	userID := uuid.MustParse(auth.SandboxUserID)
	workspaceID := uuid.MustParse(auth.SandboxWorkspaceID)

	displayName := "Sandbox User"
	user := models.User{
		BaseModel:   models.BaseModel{ID: userID},
		Email:       "sandbox@testing.local",
		DisplayName: &displayName,
	}
	if err := db.Where("id = ?", userID).FirstOrCreate(&user).Error; err != nil {
		return err
	}

	workspace := models.Workspace{
		BaseModel: models.BaseModel{ID: workspaceID},
		Name:      "Sandbox",
	}
	if err := db.Where("id = ?", workspaceID).FirstOrCreate(&workspace).Error; err != nil {
		return err
	}

	member := models.WorkspaceMember{
		WorkspaceID: workspaceID,
		UserID:      userID,
		Role:        models.WorkspaceRoleOwner,
	}
	return db.Where("workspace_id = ? AND user_id = ?", workspaceID, userID).
		FirstOrCreate(&member).Error
}
