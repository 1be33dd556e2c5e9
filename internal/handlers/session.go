package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/quillnotes/backend/internal/auth"
	"github.com/quillnotes/backend/internal/config"
	"github.com/quillnotes/backend/internal/models"
	"github.com/quillnotes/backend/pkg/logger"
	"github.com/quillnotes/backend/pkg/utils"
)

type SessionHandler struct {
	DB     *gorm.DB
	Issuer *auth.Issuer
	Cfg    *config.Config
}

func NewSessionHandler(db *gorm.DB, issuer *auth.Issuer, cfg *config.Config) *SessionHandler {
	return &SessionHandler{DB: db, Issuer: issuer, Cfg: cfg}
}

// Create mints a session token for a principal-shaped payload, typically
// right after a successful passkey authentication.
func (h *SessionHandler) Create(c *fiber.Ctx) error {
	var payload auth.SessionPayload
	if err := c.BodyParser(&payload); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "User data required")
	}

	token, err := h.Issuer.Issue(payload)
	if err != nil {
		if errors.Is(err, auth.ErrMissingSubject) {
			return utils.Error(c, fiber.StatusBadRequest, "User data required")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "Failed to create session")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"access_token": token,
		"token_type":   "bearer",
		"expires_in":   auth.SessionTTLSeconds,
	})
}

type demoUserRequest struct {
	Email string `json:"email"`
}

// DemoUser creates (or looks up) a user by email and hands back a session
// token without any authentication. Development convenience only; the route
// disappears wherever sandbox mode is not allowed.
func (h *SessionHandler) DemoUser(c *fiber.Ctx) error {
	if !h.Cfg.SandboxAllowed() {
		return utils.Error(c, fiber.StatusNotFound, "Not found")
	}

	var req demoUserRequest
	if err := c.BodyParser(&req); err != nil || req.Email == "" {
		return utils.Error(c, fiber.StatusBadRequest, "Email is required")
	}

	var user models.User
	if err := h.DB.First(&user, "email = ?", req.Email).Error; err != nil {
		displayName := "Demo User"
		user = models.User{Email: req.Email, DisplayName: &displayName}
		if err := h.DB.Create(&user).Error; err != nil {
			return utils.Error(c, fiber.StatusInternalServerError, "Failed to create user")
		}

		workspace := models.Workspace{Name: "Personal"}
		if err := h.DB.Create(&workspace).Error; err != nil {
			return utils.Error(c, fiber.StatusInternalServerError, "Failed to create workspace")
		}

		member := models.WorkspaceMember{
			WorkspaceID: workspace.ID,
			UserID:      user.ID,
			Role:        models.WorkspaceRoleOwner,
		}
		if err := h.DB.Create(&member).Error; err != nil {
			return utils.Error(c, fiber.StatusInternalServerError, "Failed to create workspace")
		}

		logger.Info("demo_user_created", map[string]interface{}{
			"user_id": user.ID.String(),
		})
	}

	payload := auth.SessionPayload{
		ID:    user.ID.String(),
		Email: user.Email,
	}
	if user.DisplayName != nil {
		payload.UserMetadata = map[string]interface{}{"display_name": *user.DisplayName}
	}

	token, err := h.Issuer.Issue(payload)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "Failed to create session")
	}

	return utils.Success(c, fiber.StatusCreated, fiber.Map{
		"user":         user,
		"access_token": token,
		"token_type":   "bearer",
		"expires_in":   auth.SessionTTLSeconds,
	})
}
