package config

import (
	"os"
	"strconv"
)

// Config is built once in main and passed by reference into everything that
// needs it. Nothing reads the environment during request handling.
type Config struct {
	Server   ServerConfig
	DB       DBConfig
	JWT      JWTConfig
	WebAuthn WebAuthnConfig
	OIDC     OIDCConfig
	Env      EnvConfig
}

type ServerConfig struct {
	Port        string
	CORSOrigins string
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

type JWTConfig struct {
	Secret string
	Issuer string
}

type WebAuthnConfig struct {
	RPID     string
	RPName   string
	RPOrigin string
}

// OIDC configures delegated token verification. Leaving IssuerURL empty
// resolves the verifier chain to local-only.
type OIDCConfig struct {
	IssuerURL string
	Audience  string
}

type EnvConfig struct {
	Production    bool
	EnableSandbox bool
}

// SandboxAllowed reports whether the sandbox bypass, the demo-user endpoint
// and sandbox reset are reachable: any non-production environment, or an
// explicit override in production.
func (c *Config) SandboxAllowed() bool {
	return !c.Env.Production || c.Env.EnableSandbox
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        getEnv("SERVER_PORT", "3000"),
			CORSOrigins: getEnv("CORS_ORIGINS", "http://localhost:5173,http://127.0.0.1:5173"),
		},
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "quillnotes"),
			Password: getEnv("DB_PASSWORD", "quillnotes_secret"),
			Name:     getEnv("DB_NAME", "quillnotes"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", "change-me-in-production"),
			Issuer: getEnv("JWT_ISSUER", "quillnotes"),
		},
		WebAuthn: WebAuthnConfig{
			RPID:     getEnv("WEBAUTHN_RP_ID", "localhost"),
			RPName:   getEnv("WEBAUTHN_RP_NAME", "Quillnotes"),
			RPOrigin: getEnv("WEBAUTHN_RP_ORIGIN", "http://localhost:3000"),
		},
		OIDC: OIDCConfig{
			IssuerURL: getEnv("OIDC_ISSUER_URL", ""),
			Audience:  getEnv("OIDC_AUDIENCE", ""),
		},
		Env: EnvConfig{
			Production:    getEnv("APP_ENV", "development") == "production",
			EnableSandbox: getEnvAsBool("ENABLE_SANDBOX", false),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.ParseBool(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}
