package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"github.com/quillnotes/backend/internal/auth"
	"github.com/quillnotes/backend/internal/config"
	"github.com/quillnotes/backend/pkg/logger"
	"github.com/quillnotes/backend/pkg/utils"
)

const requestAuthKey = "requestAuth"

// RequestAuth is the typed per-request auth state. One value under one
// Locals key; handlers never poke loose keys into the context.
type RequestAuth struct {
	Principal *auth.Principal
	IsSandbox bool
}

func CORS(origins string) fiber.Handler {
	return cors.New(cors.Config{
		AllowOrigins: origins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Sandbox-Mode",
		AllowMethods: "GET,POST,PUT,PATCH,DELETE,OPTIONS",
	})
}

// Sandbox substitutes the fixed sandbox principal when the request asks for
// it and the environment allows it. Activation requires the header or query
// value to be exactly "true"; anything else, including "false", is a
// pass-through. Ordered before RequireAuth, which honors the pre-set state.
func Sandbox(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !cfg.SandboxAllowed() {
			return c.Next()
		}

		if c.Get("X-Sandbox-Mode") != "true" && c.Query("sandbox") != "true" {
			return c.Next()
		}

		c.Locals(requestAuthKey, &RequestAuth{
			Principal: auth.SandboxPrincipal(),
			IsSandbox: true,
		})

		logger.Info("sandbox_mode_active", map[string]interface{}{
			"path": c.Path(),
			"ip":   c.IP(),
		})
		return c.Next()
	}
}

type AuthMiddleware struct {
	Verifier auth.Verifier
}

func NewAuthMiddleware(verifier auth.Verifier) *AuthMiddleware {
	return &AuthMiddleware{Verifier: verifier}
}

// RequireAuth admits a request with a sandbox principal already attached, or
// resolves one from the Authorization header. A single verification attempt;
// failure is terminal for the request.
func (a *AuthMiddleware) RequireAuth(c *fiber.Ctx) error {
	if state := GetAuth(c); state != nil && state.IsSandbox && state.Principal != nil {
		return c.Next()
	}

	authHeader := c.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		logger.Warn("auth_missing_header", map[string]interface{}{
			"ip":   c.IP(),
			"path": c.Path(),
		})
		return utils.Error(c, fiber.StatusUnauthorized, "Missing authorization header")
	}

	token := strings.TrimPrefix(authHeader, "Bearer ")

	principal, err := a.Verifier.Verify(c.Context(), token)
	if err != nil {
		logger.Warn("auth_token_rejected", map[string]interface{}{
			"ip":   c.IP(),
			"path": c.Path(),
		})
		return utils.Error(c, fiber.StatusUnauthorized, "Invalid or expired token")
	}

	c.Locals(requestAuthKey, &RequestAuth{Principal: principal})
	return c.Next()
}

func GetAuth(c *fiber.Ctx) *RequestAuth {
	value := c.Locals(requestAuthKey)
	if value == nil {
		return nil
	}
	state, ok := value.(*RequestAuth)
	if !ok {
		return nil
	}
	return state
}

func GetPrincipal(c *fiber.Ctx) *auth.Principal {
	if state := GetAuth(c); state != nil {
		return state.Principal
	}
	return nil
}
