package handlers

import (
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/quillnotes/backend/internal/auth"
	"github.com/quillnotes/backend/internal/models"
)

func TestNotesCRUD(t *testing.T) {
	db := setupTestDB(t)
	cfg := handlersTestConfig()
	app := newTestApp(t, db, cfg)
	_, token := createTestUser(t, db, cfg, "notes@test.com")

	var noteID string

	t.Run("create applies the default title and seeds a paragraph", func(t *testing.T) {
		req := jsonRequest(t, http.MethodPost, "/api/notes/", map[string]any{})
		req.Header.Set("Authorization", "Bearer "+token)
		resp, _ := app.Test(req, 5000)
		body := decodeBody(t, resp)
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("expected 201, got %d", resp.StatusCode)
		}
		if body["title"] != "Untitled" {
			t.Errorf("expected default title, got %v", body["title"])
		}
		noteID = body["id"].(string)

		var blocks []models.Block
		db.Where("note_id = ?", noteID).Find(&blocks)
		if len(blocks) != 1 {
			t.Fatalf("expected one seeded block, got %d", len(blocks))
		}
		if blocks[0].Type != models.BlockParagraph {
			t.Errorf("expected paragraph block, got %s", blocks[0].Type)
		}
		if blocks[0].Position != "a0" {
			t.Errorf("expected position 'a0', got %s", blocks[0].Position)
		}
	})

	t.Run("get returns the note with ordered blocks", func(t *testing.T) {
		req := jsonRequest(t, http.MethodGet, "/api/notes/"+noteID, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, _ := app.Test(req, 5000)
		body := decodeBody(t, resp)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
		blocks, ok := body["blocks"].([]any)
		if !ok || len(blocks) != 1 {
			t.Fatalf("expected one block, got %v", body["blocks"])
		}
	})

	t.Run("list orders by most recently updated", func(t *testing.T) {
		req := jsonRequest(t, http.MethodPost, "/api/notes/", map[string]any{"title": "Second"})
		req.Header.Set("Authorization", "Bearer "+token)
		resp, _ := app.Test(req, 5000)
		second := decodeBody(t, resp)
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("expected 201, got %d", resp.StatusCode)
		}

		// Push the first note ahead of the second without tripping hooks.
		db.Model(&models.Note{}).Where("id = ?", noteID).
			UpdateColumn("updated_at", time.Now().Add(time.Hour))

		listReq := jsonRequest(t, http.MethodGet, "/api/notes/", nil)
		listReq.Header.Set("Authorization", "Bearer "+token)
		listResp, _ := app.Test(listReq, 5000)
		if listResp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", listResp.StatusCode)
		}
		list := decodeList(t, listResp)
		if len(list) != 2 {
			t.Fatalf("expected two notes, got %d", len(list))
		}
		if list[0]["id"] != noteID {
			t.Errorf("expected the touched note first, got %v", list[0]["id"])
		}
		if list[1]["id"] != second["id"] {
			t.Errorf("expected the second note last, got %v", list[1]["id"])
		}
	})

	t.Run("partial update touches only the sent fields", func(t *testing.T) {
		req := jsonRequest(t, http.MethodPatch, "/api/notes/"+noteID, map[string]any{
			"pinned": true,
		})
		req.Header.Set("Authorization", "Bearer "+token)
		resp, _ := app.Test(req, 5000)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}

		var note models.Note
		if err := db.First(&note, "id = ?", noteID).Error; err != nil {
			t.Fatalf("failed reloading note: %v", err)
		}
		if !note.Pinned {
			t.Error("expected the note to be pinned")
		}
		if note.Title != "Untitled" {
			t.Errorf("expected the title untouched, got %s", note.Title)
		}
	})

	t.Run("delete removes the note and its blocks", func(t *testing.T) {
		req := jsonRequest(t, http.MethodDelete, "/api/notes/"+noteID, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, _ := app.Test(req, 5000)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}

		var noteCount, blockCount int64
		db.Model(&models.Note{}).Where("id = ?", noteID).Count(&noteCount)
		db.Model(&models.Block{}).Where("note_id = ?", noteID).Count(&blockCount)
		if noteCount != 0 || blockCount != 0 {
			t.Errorf("expected note and blocks gone, got %d/%d", noteCount, blockCount)
		}
	})

	t.Run("unknown note is a 404", func(t *testing.T) {
		req := jsonRequest(t, http.MethodGet, "/api/notes/"+uuid.NewString(), nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, _ := app.Test(req, 5000)
		body := decodeBody(t, resp)
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", resp.StatusCode)
		}
		if body["error"] != "Note not found" {
			t.Fatalf("expected note not found, got %v", body["error"])
		}
	})
}

func TestNotesWorkspaceResolution(t *testing.T) {
	db := setupTestDB(t)
	cfg := handlersTestConfig()
	app := newTestApp(t, db, cfg)

	t.Run("principal without a membership has no workspace", func(t *testing.T) {
		orphan := &models.User{Email: "orphan@test.com"}
		if err := db.Create(orphan).Error; err != nil {
			t.Fatalf("failed creating user: %v", err)
		}
		token := issueTokenFor(t, cfg, orphan.ID.String())

		req := jsonRequest(t, http.MethodGet, "/api/notes/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, _ := app.Test(req, 5000)
		body := decodeBody(t, resp)
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", resp.StatusCode)
		}
		if body["error"] != "No workspace found" {
			t.Fatalf("expected no workspace error, got %v", body["error"])
		}
	})

	t.Run("sandbox requests resolve to the sandbox workspace", func(t *testing.T) {
		req := jsonRequest(t, http.MethodPost, "/api/notes/", map[string]any{"title": "Sandbox Note"})
		req.Header.Set("X-Sandbox-Mode", "true")
		resp, _ := app.Test(req, 5000)
		body := decodeBody(t, resp)
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("expected 201, got %d", resp.StatusCode)
		}

		var note models.Note
		if err := db.First(&note, "id = ?", body["id"]).Error; err != nil {
			t.Fatalf("failed loading note: %v", err)
		}
		if note.WorkspaceID.String() != auth.SandboxWorkspaceID {
			t.Errorf("expected the sandbox workspace, got %s", note.WorkspaceID)
		}
	})
}
