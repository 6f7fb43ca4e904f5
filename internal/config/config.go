package config

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Port           string
	Environment    string // ENV: production, development, etc.
	DatabaseURL    string // Postgres connection string; empty = embedded SQLite fallback
	SQLitePath     string // File used when DatabaseURL is unset
	RedisURI       string // Optional; enables Redis-backed rate limiting when set
	TokenSecret    string // JWT signing secret; generated at startup when unset
	FrontendURL    string
	AllowedOrigins []string // CORS: from CORS_ORIGINS, else dev + production frontend defaults
	ModelDir       string   // Directory holding classifier artifacts

	// Mail relay (SMTP)
	MailServer   string
	MailPort     int
	MailUsername string
	MailPassword string
	MailUseTLS   bool // STARTTLS
	MailUseSSL   bool // implicit TLS
	MailSender   string
}

func Load() *Config {
	env := strings.ToLower(strings.TrimSpace(getEnv("ENV", "development")))

	// CORS: CORS_ORIGINS overrides the defaults (comma separated).
	// Defaults cover the local Vite dev frontend and the hosted frontend.
	allowedOrigins := parseOrigins(getEnv("CORS_ORIGINS", ""))
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{
			"http://localhost:5173",
			"http://127.0.0.1:5173",
			"https://water-pollution-prediction.onrender.com",
		}
	}

	mailPort, err := strconv.Atoi(getEnv("MAIL_PORT", "587"))
	if err != nil {
		mailPort = 587
	}

	return &Config{
		Port:           getEnv("PORT", "8080"),
		Environment:    env,
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		SQLitePath:     getEnv("SQLITE_PATH", "aquasense.db"),
		RedisURI:       getEnv("REDIS_URI", ""),
		TokenSecret:    getEnv("JWT_SECRET", ""),
		FrontendURL:    getEnv("FRONTEND_URL", "http://localhost:5173"),
		AllowedOrigins: allowedOrigins,
		ModelDir:       getEnv("MODEL_DIR", "ml_models"),
		MailServer:     getEnv("MAIL_SERVER", "smtp.gmail.com"),
		MailPort:       mailPort,
		MailUsername:   getEnv("MAIL_USERNAME", ""),
		MailPassword:   getEnv("MAIL_PASSWORD", ""),
		MailUseTLS:     parseBool(getEnv("MAIL_USE_TLS", "true")),
		MailUseSSL:     parseBool(getEnv("MAIL_USE_SSL", "false")),
		MailSender:     getEnv("MAIL_DEFAULT_SENDER", getEnv("MAIL_USERNAME", "")),
	}
}

func parseOrigins(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseBool(s string) bool {
	return strings.ToLower(strings.TrimSpace(s)) == "true"
}

// IsProduction returns true when ENV is set to "production".
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// MailConfigured reports whether enough SMTP settings are present to send mail.
func (c *Config) MailConfigured() bool {
	return c.MailServer != "" && c.MailUsername != "" && c.MailPassword != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
