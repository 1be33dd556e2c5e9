package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/quillnotes/backend/internal/auth"
	"github.com/quillnotes/backend/internal/config"
	"github.com/quillnotes/backend/internal/database"
	"github.com/quillnotes/backend/internal/middleware"
	"github.com/quillnotes/backend/internal/models"
	"github.com/quillnotes/backend/pkg/logger"
)

const handlersTestSecret = "handlers-test-secret"

func handlersTestConfig() *config.Config {
	return &config.Config{
		JWT: config.JWTConfig{Secret: handlersTestSecret, Issuer: "quillnotes-test"},
		WebAuthn: config.WebAuthnConfig{
			RPID:     "localhost",
			RPName:   "Quillnotes Test",
			RPOrigin: "http://localhost:3000",
		},
		Env: config.EnvConfig{Production: false},
	}
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	logger.Init()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed opening in-memory sqlite: %v", err)
	}

	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("failed automigrating: %v", err)
	}
	if err := database.SeedSandbox(db); err != nil {
		t.Fatalf("failed seeding sandbox rows: %v", err)
	}

	return db
}

func newTestWebAuthn(t *testing.T, cfg *config.Config) *webauthn.WebAuthn {
	t.Helper()
	wa, err := webauthn.New(&webauthn.Config{
		RPDisplayName: cfg.WebAuthn.RPName,
		RPID:          cfg.WebAuthn.RPID,
		RPOrigins:     []string{cfg.WebAuthn.RPOrigin},
	})
	if err != nil {
		t.Fatalf("failed building webauthn: %v", err)
	}
	return wa
}

// newTestApp wires the full route surface the way the server binary does,
// against an in-memory database.
func newTestApp(t *testing.T, db *gorm.DB, cfg *config.Config) *fiber.App {
	t.Helper()

	wa := newTestWebAuthn(t, cfg)
	issuer := auth.NewIssuer(cfg.JWT.Secret, cfg.JWT.Issuer)
	verifier := auth.NewChain(auth.NewLocalVerifier(cfg.JWT.Secret))

	passkeysHandler := NewPasskeysHandler(db, wa)
	sessionHandler := NewSessionHandler(db, issuer, cfg)
	notesHandler := NewNotesHandler(db)
	blocksHandler := NewBlocksHandler(db)
	sandboxHandler := NewSandboxHandler(db, cfg)

	authMiddleware := middleware.NewAuthMiddleware(verifier)

	app := fiber.New()
	app.Use(middleware.Sandbox(cfg))

	api := app.Group("/api")

	authRoutes := api.Group("/auth")
	authRoutes.Post("/session", sessionHandler.Create)
	authRoutes.Post("/demo-user", sessionHandler.DemoUser)
	authRoutes.Post("/passkey", passkeysHandler.LoginChallenge)
	authRoutes.Post("/passkey/verify", passkeysHandler.LoginVerify)

	passkeyRoutes := api.Group("/passkeys", authMiddleware.RequireAuth)
	passkeyRoutes.Post("/challenge", passkeysHandler.RegisterChallenge)
	passkeyRoutes.Post("/verify", passkeysHandler.RegisterVerify)
	passkeyRoutes.Get("/", passkeysHandler.List)

	noteRoutes := api.Group("/notes", authMiddleware.RequireAuth)
	noteRoutes.Get("/", notesHandler.List)
	noteRoutes.Post("/", notesHandler.Create)
	noteRoutes.Get("/:id", notesHandler.Get)
	noteRoutes.Patch("/:id", notesHandler.Update)
	noteRoutes.Delete("/:id", notesHandler.Delete)
	noteRoutes.Post("/:noteId/blocks", blocksHandler.Create)

	blockRoutes := api.Group("/blocks", authMiddleware.RequireAuth)
	blockRoutes.Patch("/reorder", blocksHandler.Reorder)
	blockRoutes.Patch("/:id", blocksHandler.Update)
	blockRoutes.Delete("/:id", blocksHandler.Delete)

	api.Post("/sandbox/reset", sandboxHandler.Reset)

	return app
}

// createTestUser persists a user with a personal workspace and returns the
// user plus a session token for it.
func createTestUser(t *testing.T, db *gorm.DB, cfg *config.Config, email string) (*models.User, string) {
	t.Helper()

	displayName := "Test User"
	user := &models.User{Email: email, DisplayName: &displayName}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed creating user: %v", err)
	}

	workspace := &models.Workspace{Name: "Personal"}
	if err := db.Create(workspace).Error; err != nil {
		t.Fatalf("failed creating workspace: %v", err)
	}
	member := &models.WorkspaceMember{
		WorkspaceID: workspace.ID,
		UserID:      user.ID,
		Role:        models.WorkspaceRoleOwner,
	}
	if err := db.Create(member).Error; err != nil {
		t.Fatalf("failed creating membership: %v", err)
	}

	token, err := auth.NewIssuer(cfg.JWT.Secret, cfg.JWT.Issuer).Issue(auth.SessionPayload{
		ID:    user.ID.String(),
		Email: user.Email,
	})
	if err != nil {
		t.Fatalf("failed issuing token: %v", err)
	}
	return user, token
}

func issueTokenFor(t *testing.T, cfg *config.Config, id string) string {
	t.Helper()
	token, err := auth.NewIssuer(cfg.JWT.Secret, cfg.JWT.Issuer).Issue(auth.SessionPayload{ID: id})
	if err != nil {
		t.Fatalf("failed issuing token: %v", err)
	}
	return token
}

func jsonRequest(t *testing.T, method, target string, payload any) *http.Request {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("failed marshaling request body: %v", err)
		}
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("failed decoding body: %v body=%q", err, string(raw))
	}
	return body
}

func decodeList(t *testing.T, resp *http.Response) []map[string]any {
	t.Helper()
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	var body []map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("failed decoding list body: %v body=%q", err, string(raw))
	}
	return body
}
