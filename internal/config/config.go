// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir             string // Base directory for the databases (always absolute)
	Port                int
	DevMode             bool
	LogLevel            string
	CargoFlowAPIURL     string // Cargoes Flow REST base URL
	CargoFlowAPIKey     string
	CargoFlowWSURL      string // Optional websocket endpoint for push tracking events
	SyncIntervalMinutes int    // Periodic sync + assessment cadence
	Backup              *BackupConfig
}

// BackupConfig holds off-site backup configuration (S3-compatible storage).
// Backups are disabled when the bucket is empty.
type BackupConfig struct {
	Bucket        string
	Endpoint      string // Custom endpoint for R2/MinIO; empty = AWS default
	Region        string
	AccessKey     string
	SecretKey     string
	RetainedCount int // How many daily backups to keep remotely
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("HARBORWATCH_DATA_DIR", "")
	if dataDir == "" {
		dataDir = "./data"
	}

	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:             absDataDir,
		Port:                getEnvAsInt("PORT", 8080),
		DevMode:             getEnvAsBool("DEV_MODE", false),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		CargoFlowAPIURL:     getEnv("CARGOFLOW_API_URL", "https://api.cargoes-flow.example.com/v1"),
		CargoFlowAPIKey:     getEnv("CARGOFLOW_API_KEY", ""),
		CargoFlowWSURL:      getEnv("CARGOFLOW_WS_URL", ""),
		SyncIntervalMinutes: getEnvAsInt("SYNC_INTERVAL_MINUTES", 15),
		Backup:              loadBackupConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.SyncIntervalMinutes < 1 {
		return fmt.Errorf("SYNC_INTERVAL_MINUTES must be at least 1, got %d", c.SyncIntervalMinutes)
	}

	// Cargoes Flow credentials are optional: without them the sync job is a
	// no-op and the dashboard runs on manually entered data.

	return nil
}

// loadBackupConfig loads S3-compatible backup settings
func loadBackupConfig() *BackupConfig {
	return &BackupConfig{
		Bucket:        getEnv("BACKUP_S3_BUCKET", ""),
		Endpoint:      getEnv("BACKUP_S3_ENDPOINT", ""),
		Region:        getEnv("BACKUP_S3_REGION", "auto"),
		AccessKey:     getEnv("BACKUP_S3_ACCESS_KEY", ""),
		SecretKey:     getEnv("BACKUP_S3_SECRET_KEY", ""),
		RetainedCount: getEnvAsInt("BACKUP_RETAINED_COUNT", 14),
	}
}

// Enabled reports whether off-site backups are configured
func (b *BackupConfig) Enabled() bool {
	return b != nil && b.Bucket != ""
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
