package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/quillnotes/backend/internal/auth"
	"github.com/quillnotes/backend/internal/middleware"
	"github.com/quillnotes/backend/internal/models"
	"github.com/quillnotes/backend/pkg/utils"
)

type NotesHandler struct {
	DB *gorm.DB
}

func NewNotesHandler(db *gorm.DB) *NotesHandler {
	return &NotesHandler{DB: db}
}

var errNoWorkspace = fiber.NewError(fiber.StatusNotFound, "No workspace found")

// resolveWorkspace picks the workspace the request operates on: the fixed
// sandbox workspace under sandbox bypass, otherwise the principal's
// membership.
func (h *NotesHandler) resolveWorkspace(c *fiber.Ctx) (uuid.UUID, error) {
	state := middleware.GetAuth(c)
	if state == nil || state.Principal == nil {
		return uuid.Nil, errNoWorkspace
	}

	if state.IsSandbox {
		return uuid.MustParse(auth.SandboxWorkspaceID), nil
	}

	userID, err := uuid.Parse(state.Principal.ID)
	if err != nil {
		return uuid.Nil, errNoWorkspace
	}

	var member models.WorkspaceMember
	if err := h.DB.First(&member, "user_id = ?", userID).Error; err != nil {
		return uuid.Nil, errNoWorkspace
	}
	return member.WorkspaceID, nil
}

func (h *NotesHandler) List(c *fiber.Ctx) error {
	workspaceID, err := h.resolveWorkspace(c)
	if err != nil {
		return utils.Error(c, fiber.StatusNotFound, "No workspace found")
	}

	var notes []models.Note
	if err := h.DB.Where("workspace_id = ?", workspaceID).
		Order("updated_at DESC").Find(&notes).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "Failed to list notes")
	}

	return utils.Success(c, fiber.StatusOK, notes)
}

type noteWithBlocks struct {
	models.Note
	Blocks []models.Block `json:"blocks"`
}

func (h *NotesHandler) Get(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "Invalid note id")
	}

	var note models.Note
	if err := h.DB.First(&note, "id = ?", id).Error; err != nil {
		return utils.Error(c, fiber.StatusNotFound, "Note not found")
	}

	var blocks []models.Block
	if err := h.DB.Where("note_id = ?", id).Order("position").Find(&blocks).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "Failed to load blocks")
	}

	return utils.Success(c, fiber.StatusOK, noteWithBlocks{Note: note, Blocks: blocks})
}

type createNoteRequest struct {
	Title    string     `json:"title"`
	ParentID *uuid.UUID `json:"parent_id"`
}

func (h *NotesHandler) Create(c *fiber.Ctx) error {
	workspaceID, err := h.resolveWorkspace(c)
	if err != nil {
		return utils.Error(c, fiber.StatusNotFound, "No workspace found")
	}

	var req createNoteRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if req.Title == "" {
		req.Title = "Untitled"
	}

	principal := middleware.GetPrincipal(c)
	createdBy, err := uuid.Parse(principal.ID)
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "Invalid user id")
	}

	note := models.Note{
		WorkspaceID: workspaceID,
		Title:       req.Title,
		ParentID:    req.ParentID,
		Metadata:    models.JSONMap{},
		CreatedBy:   createdBy,
	}
	if err := h.DB.Create(&note).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "Failed to create note")
	}

	// Every new note starts with one empty paragraph so the editor has a
	// caret target.
	block := models.Block{
		NoteID:   note.ID,
		Type:     models.BlockParagraph,
		Content:  models.JSONMap{"text": ""},
		Position: "a0",
	}
	h.DB.Create(&block)

	return utils.Success(c, fiber.StatusCreated, note)
}

type updateNoteRequest struct {
	Title    *string    `json:"title"`
	Pinned   *bool      `json:"pinned"`
	ParentID *uuid.UUID `json:"parent_id"`
}

func (h *NotesHandler) Update(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "Invalid note id")
	}

	var req updateNoteRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "Invalid request body")
	}

	var note models.Note
	if err := h.DB.First(&note, "id = ?", id).Error; err != nil {
		return utils.Error(c, fiber.StatusNotFound, "Note not found")
	}

	updates := map[string]interface{}{}
	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.Pinned != nil {
		updates["pinned"] = *req.Pinned
	}
	if req.ParentID != nil {
		updates["parent_id"] = *req.ParentID
	}

	if len(updates) > 0 {
		if err := h.DB.Model(&note).Updates(updates).Error; err != nil {
			return utils.Error(c, fiber.StatusInternalServerError, "Failed to update note")
		}
	}

	return utils.Success(c, fiber.StatusOK, note)
}

func (h *NotesHandler) Delete(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "Invalid note id")
	}

	if err := h.DB.Where("note_id = ?", id).Delete(&models.Block{}).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "Failed to delete note")
	}
	if err := h.DB.Delete(&models.Note{}, "id = ?", id).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "Failed to delete note")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"success": true})
}
