package config

import (
	"os"
	"strconv"
)

type Config struct {
	DB     DBConfig
	JWT    JWTConfig
	Server ServerConfig
	Google GoogleConfig
	Audit  AuditConfig
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
	Secret          string
	ExpirationHours int
}

type ServerConfig struct {
	Port string
	// FrontendURL is where the OAuth callback redirects after setting the
	// drive-token cookie, and the allowed CORS origin.
	FrontendURL string
	// SecureCookies controls the Secure flag on session cookies; disable
	// only for plain-http local development.
	SecureCookies bool
}

type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

type AuditConfig struct {
	QueueSize int
}

func Load() *Config {
	return &Config{
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "dms"),
			Password: getEnv("DB_PASSWORD", "dms_secret"),
			Name:     getEnv("DB_NAME", "dms"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		JWT: JWTConfig{
			Secret:          getEnv("AUTH_SECRET", "change-me-in-production"),
			ExpirationHours: getEnvAsInt("JWT_EXPIRATION_HOURS", 24),
		},
		Server: ServerConfig{
			Port:          getEnv("SERVER_PORT", "3001"),
			FrontendURL:   getEnv("FRONTEND_URL", "http://localhost:3000"),
			SecureCookies: getEnvAsBool("SECURE_COOKIES", true),
		},
		Google: GoogleConfig{
			ClientID:     getEnv("WEB_CLIENT_ID", ""),
			ClientSecret: getEnv("WEB_CLIENT_SECRET", ""),
			RedirectURL:  getEnv("WEB_REDIRECT_URI", "http://localhost:3001/gapi/callback"),
		},
		Audit: AuditConfig{
			QueueSize: getEnvAsInt("AUDIT_QUEUE_SIZE", 1000),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
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
