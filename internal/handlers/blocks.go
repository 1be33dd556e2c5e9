package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/quillnotes/backend/internal/models"
	"github.com/quillnotes/backend/pkg/utils"
)

type BlocksHandler struct {
	DB *gorm.DB
}

func NewBlocksHandler(db *gorm.DB) *BlocksHandler {
	return &BlocksHandler{DB: db}
}

type createBlockRequest struct {
	Type     models.BlockType `json:"type"`
	Content  models.JSONMap   `json:"content"`
	ParentID *uuid.UUID       `json:"parent_id"`
	Position string           `json:"position"`
}

// Create adds a block to a note at the caller-chosen position.
func (h *BlocksHandler) Create(c *fiber.Ctx) error {
	noteID, err := parseUUID(c.Params("noteId"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "Invalid note id")
	}

	var req createBlockRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "Invalid request body")
	}

	if req.Type == "" {
		req.Type = models.BlockParagraph
	}
	if !models.ValidBlockType(req.Type) {
		return utils.Error(c, fiber.StatusBadRequest, "Invalid block type")
	}
	if req.Position == "" {
		return utils.Error(c, fiber.StatusBadRequest, "Position is required")
	}
	if req.Content == nil {
		req.Content = models.JSONMap{}
	}

	block := models.Block{
		NoteID:   noteID,
		ParentID: req.ParentID,
		Type:     req.Type,
		Content:  req.Content,
		Position: req.Position,
	}
	if err := h.DB.Create(&block).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "Failed to create block")
	}

	return utils.Success(c, fiber.StatusCreated, block)
}

type reorderRequest struct {
	Updates []struct {
		ID       uuid.UUID `json:"id"`
		Position string    `json:"position"`
	} `json:"updates"`
}

// Reorder applies a batch of position moves. Each move is an independent
// single-row update; a partial failure reports an error but does not roll
// back the moves that landed.
func (h *BlocksHandler) Reorder(c *fiber.Ctx) error {
	var req reorderRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "Invalid request body")
	}

	for _, update := range req.Updates {
		if err := h.DB.Model(&models.Block{}).
			Where("id = ?", update.ID).
			Update("position", update.Position).Error; err != nil {
			return utils.Error(c, fiber.StatusInternalServerError, "Some updates failed")
		}
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"success": true})
}

type updateBlockRequest struct {
	Type     *models.BlockType `json:"type"`
	Content  *models.JSONMap   `json:"content"`
	ParentID *uuid.UUID        `json:"parent_id"`
	Position *string           `json:"position"`
}

func (h *BlocksHandler) Update(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "Invalid block id")
	}

	var req updateBlockRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "Invalid request body")
	}

	if req.Type != nil && !models.ValidBlockType(*req.Type) {
		return utils.Error(c, fiber.StatusBadRequest, "Invalid block type")
	}

	var block models.Block
	if err := h.DB.First(&block, "id = ?", id).Error; err != nil {
		return utils.Error(c, fiber.StatusNotFound, "Block not found")
	}

	updates := map[string]interface{}{}
	if req.Type != nil {
		updates["type"] = *req.Type
	}
	if req.Content != nil {
		updates["content"] = *req.Content
	}
	if req.ParentID != nil {
		updates["parent_id"] = *req.ParentID
	}
	if req.Position != nil {
		updates["position"] = *req.Position
	}

	if len(updates) > 0 {
		if err := h.DB.Model(&block).Updates(updates).Error; err != nil {
			return utils.Error(c, fiber.StatusInternalServerError, "Failed to update block")
		}
	}

	return utils.Success(c, fiber.StatusOK, block)
}

func (h *BlocksHandler) Delete(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "Invalid block id")
	}

	if err := h.DB.Delete(&models.Block{}, "id = ?", id).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "Failed to delete block")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"success": true})
}
