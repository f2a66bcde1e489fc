// internal/config/config.go
package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Database struct {
		Host       string `json:"host"`
		Port       string `json:"port"`
		User       string `json:"user"`
		Password   string `json:"password"`
		Name       string `json:"name"`
		SSLMode    string `json:"sslmode"`
		SearchPath string `json:"schema"`
	} `json:"database"`
	Directory struct {
		BaseURL           string `json:"base_url"`
		APIKey            string `json:"api_key"`
		InviteRedirectURL string `json:"invite_redirect_url"`
		ResetRedirectURL  string `json:"reset_redirect_url"`
	} `json:"directory"`
	Invitation struct {
		ExpiryWindow    time.Duration `json:"expiry_window"`
		ResendThreshold time.Duration `json:"resend_threshold"`
	} `json:"invitation"`
	JWT struct {
		Secret       string        `json:"secret"`
		ExpiryPeriod time.Duration `json:"expiry_period"`
	} `json:"jwt"`
	Server struct {
		Port         string        `json:"port"`
		ReadTimeout  time.Duration `json:"read_timeout"`
		WriteTimeout time.Duration `json:"write_timeout"`
		RateLimit    float64       `json:"rate_limit"`
		RateBurst    int           `json:"rate_burst"`
	}
	Email struct {
		Provider string `json:"provider"`
	} `json:"email"`
	Sendgrid struct {
		APIKey string `json:"api_key"`
		From   string `json:"from"`
	} `json:"sendgrid"`
	SMTP    map[string]SMTPConfig `json:"smtp"`
	BaseURL string                `json:"base_url"`
}

type SMTPConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	From     string `json:"from"`
}

func Load() *Config {
	cfg := &Config{}

	// Database configuration
	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = getEnv("DB_PORT", "5432")
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "")
	cfg.Database.Name = getEnv("DB_NAME", "refera")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.SearchPath = getEnv("DB_SCHEMA", "public")

	// Identity directory configuration
	cfg.Directory.BaseURL = getEnv("DIRECTORY_HOST", "http://localhost:9999")
	cfg.Directory.APIKey = getEnv("DIRECTORY_API_KEY", "")
	cfg.Directory.InviteRedirectURL = getEnv("DIRECTORY_INVITE_REDIRECT_URL", "https://app.refera.io/onboarding")
	cfg.Directory.ResetRedirectURL = getEnv("DIRECTORY_RESET_REDIRECT_URL", "https://app.refera.io/reset-password")

	// Invitation lifecycle windows
	cfg.Invitation.ExpiryWindow = getEnvDuration("INVITATION_EXPIRY_WINDOW", 7*24*time.Hour)
	cfg.Invitation.ResendThreshold = getEnvDuration("INVITATION_RESEND_THRESHOLD", 24*time.Hour)

	// JWT configuration (tokens are minted by the directory; we only validate)
	cfg.JWT.Secret = getEnv("JWT_SECRET", "your-secret-key")
	cfg.JWT.ExpiryPeriod = time.Hour * 24

	// Email provider selection and per-provider settings
	cfg.Email.Provider = getEnv("EMAIL_PROVIDER", "sendgrid")
	cfg.Sendgrid.APIKey = getEnv("SENDGRID_API_KEY", "")
	cfg.Sendgrid.From = getEnv("SENDGRID_FROM", "")
	cfg.SMTP = map[string]SMTPConfig{
		"smtp": {
			Host:     getEnv("SMTP_HOST", "localhost"),
			Port:     getEnvInt("SMTP_PORT", 587),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", ""),
		},
	}

	// Server configuration
	cfg.Server.Port = getEnv("SERVER_PORT", "8080")
	cfg.Server.ReadTimeout = time.Second * 15
	cfg.Server.WriteTimeout = time.Second * 15
	cfg.Server.RateLimit = getEnvFloat("SERVER_RATE_LIMIT", 25)
	cfg.Server.RateBurst = 50

	cfg.BaseURL = getEnv("BASE_URL", "https://app.refera.io")

	return cfg
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
