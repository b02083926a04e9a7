package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	Clerk        ClerkConfig
	Firebase     FirebaseConfig
	Verification VerificationConfig
	Analysis     AnalysisConfig
}

type ServerConfig struct {
	Port string
}

type DatabaseConfig struct {
	URL string
}

type ClerkConfig struct {
	SecretKey     string
	WebhookSecret string
}

type FirebaseConfig struct {
	// Path to a local service account key; FIREBASE_SERVICE_ACCOUNT_JSON
	// (base64) takes precedence when set.
	KeyPath       string
	StorageBucket string
}

type VerificationConfig struct {
	// Quorum is the number of distinct approving verifiers required to
	// resolve a completed submission as verified.
	Quorum int
}

type AnalysisConfig struct {
	// BaseURL of the trash detection service; empty disables analysis.
	BaseURL string
}

// Load reads configuration from the environment, loading .env first when
// present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
		},
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		Clerk: ClerkConfig{
			SecretKey:     os.Getenv("CLERK_SECRET_KEY"),
			WebhookSecret: os.Getenv("CLERK_WEBHOOK_SECRET"),
		},
		Firebase: FirebaseConfig{
			KeyPath:       getEnv("FIREBASE_KEY_PATH", "./serviceAccountKey.json"),
			StorageBucket: os.Getenv("FIREBASE_STORAGE_BUCKET"),
		},
		Verification: VerificationConfig{
			Quorum: getEnvInt("VERIFICATION_QUORUM", 3),
		},
		Analysis: AnalysisConfig{
			BaseURL: os.Getenv("ANALYSIS_SERVICE_URL"),
		},
	}

	if cfg.Database.URL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}
	if cfg.Clerk.SecretKey == "" {
		return nil, fmt.Errorf("CLERK_SECRET_KEY environment variable is not set")
	}
	if cfg.Verification.Quorum < 1 {
		return nil, fmt.Errorf("VERIFICATION_QUORUM must be at least 1")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
