package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"github.com/quillnotes/backend/internal/auth"
	"github.com/quillnotes/backend/internal/config"
	"github.com/quillnotes/backend/internal/database"
	"github.com/quillnotes/backend/internal/handlers"
	"github.com/quillnotes/backend/internal/middleware"
	"github.com/quillnotes/backend/pkg/logger"
)

func main() {
	_ = godotenv.Load()
	logger.Init()

	cfg := config.Load()

	db, err := database.Connect(cfg.DB)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}

	wa, err := webauthn.New(&webauthn.Config{
		RPDisplayName: cfg.WebAuthn.RPName,
		RPID:          cfg.WebAuthn.RPID,
		RPOrigins:     []string{cfg.WebAuthn.RPOrigin},
	})
	if err != nil {
		log.Fatalf("webauthn initialization failed: %v", err)
	}

	issuer := auth.NewIssuer(cfg.JWT.Secret, cfg.JWT.Issuer)
	verifier := buildVerifier(cfg)

	passkeysHandler := handlers.NewPasskeysHandler(db, wa)
	sessionHandler := handlers.NewSessionHandler(db, issuer, cfg)
	notesHandler := handlers.NewNotesHandler(db)
	blocksHandler := handlers.NewBlocksHandler(db)
	sandboxHandler := handlers.NewSandboxHandler(db, cfg)

	authMiddleware := middleware.NewAuthMiddleware(verifier)

	app := fiber.New()
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(middleware.CORS(cfg.Server.CORSOrigins))
	app.Use(middleware.RequestLogger())
	app.Use(middleware.Sandbox(cfg))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
	})

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

	listenAddr := fmt.Sprintf(":%s", cfg.Server.Port)

	logger.Info("server_starting", map[string]interface{}{
		"address":         listenAddr,
		"sandbox_allowed": cfg.SandboxAllowed(),
		"delegated_auth":  cfg.OIDC.IssuerURL != "",
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(listenAddr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Printf("shutting down server due to signal: %s", sig)
		shutdownDone := make(chan struct{})
		go func() {
			_ = app.Shutdown()
			close(shutdownDone)
		}()
		select {
		case <-shutdownDone:
		case <-time.After(10 * time.Second):
			log.Print("forced shutdown timeout reached")
		}
	case err := <-errCh:
		if err != nil {
			log.Fatalf("server error: %v", err)
		}
	}
}

// buildVerifier resolves the verification strategy once from configuration:
// delegated-then-local when an identity provider is configured, local-only
// otherwise.
func buildVerifier(cfg *config.Config) auth.Verifier {
	local := auth.NewLocalVerifier(cfg.JWT.Secret)

	if cfg.OIDC.IssuerURL == "" {
		return auth.NewChain(local)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	delegated, err := auth.NewDelegatedVerifier(ctx, cfg.OIDC.IssuerURL, cfg.OIDC.Audience)
	if err != nil {
		logger.Warn("delegated_verifier_unavailable", map[string]interface{}{
			"issuer": cfg.OIDC.IssuerURL,
			"error":  err.Error(),
		})
		return auth.NewChain(local)
	}

	return auth.NewChain(delegated, local)
}
