package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/quillnotes/backend/internal/auth"
	"github.com/quillnotes/backend/internal/config"
	"github.com/quillnotes/backend/internal/models"
	"github.com/quillnotes/backend/pkg/logger"
	"github.com/quillnotes/backend/pkg/utils"
)

type SandboxHandler struct {
	DB  *gorm.DB
	Cfg *config.Config
}

func NewSandboxHandler(db *gorm.DB, cfg *config.Config) *SandboxHandler {
	return &SandboxHandler{DB: db, Cfg: cfg}
}

// Reset wipes the sandbox workspace and reseeds the sample notes. Only data
// in the fixed sandbox workspace is ever touched.
func (h *SandboxHandler) Reset(c *fiber.Ctx) error {
	if !h.Cfg.SandboxAllowed() {
		return utils.Error(c, fiber.StatusNotFound, "Not found")
	}

	workspaceID := uuid.MustParse(auth.SandboxWorkspaceID)
	userID := uuid.MustParse(auth.SandboxUserID)

	var noteIDs []uuid.UUID
	h.DB.Model(&models.Note{}).Where("workspace_id = ?", workspaceID).Pluck("id", &noteIDs)
	if len(noteIDs) > 0 {
		if err := h.DB.Where("note_id IN ?", noteIDs).Delete(&models.Block{}).Error; err != nil {
			return utils.Error(c, fiber.StatusInternalServerError, "Internal server error")
		}
	}
	if err := h.DB.Where("workspace_id = ?", workspaceID).Delete(&models.Note{}).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "Internal server error")
	}

	welcome, err := h.seedNote(workspaceID, userID, "Welcome to Sandbox", []models.Block{
		{Type: models.BlockHeading, Content: models.JSONMap{"text": "Welcome to the Testing Sandbox"}, Position: "1"},
		{Type: models.BlockParagraph, Content: models.JSONMap{"text": "This is a safe space to test all features without affecting real data."}, Position: "2"},
		{Type: models.BlockCode, Content: models.JSONMap{"code": "console.log('Hello from sandbox!');", "language": "javascript"}, Position: "3"},
	})
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "Failed to create notes")
	}

	todos, err := h.seedNote(workspaceID, userID, "Sample Todo List", []models.Block{
		{Type: models.BlockHeading, Content: models.JSONMap{"text": "My Tasks"}, Position: "1"},
		{Type: models.BlockTodo, Content: models.JSONMap{"text": "Try creating a new note", "checked": false}, Position: "2"},
		{Type: models.BlockTodo, Content: models.JSONMap{"text": "Edit this todo item", "checked": false}, Position: "3"},
		{Type: models.BlockTodo, Content: models.JSONMap{"text": "Delete a block", "checked": false}, Position: "4"},
	})
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "Failed to create notes")
	}

	logger.Info("sandbox_reset", map[string]interface{}{
		"workspace_id": workspaceID.String(),
	})

	return utils.Success(c, fiber.StatusOK, []noteWithBlocks{*welcome, *todos})
}

func (h *SandboxHandler) seedNote(workspaceID, userID uuid.UUID, title string, blocks []models.Block) (*noteWithBlocks, error) {
	note := models.Note{
		WorkspaceID: workspaceID,
		Title:       title,
		Metadata:    models.JSONMap{},
		CreatedBy:   userID,
	}
	if err := h.DB.Create(&note).Error; err != nil {
		return nil, err
	}

	for i := range blocks {
		blocks[i].NoteID = note.ID
		if err := h.DB.Create(&blocks[i]).Error; err != nil {
			return nil, err
		}
	}

	return &noteWithBlocks{Note: note, Blocks: blocks}, nil
}
