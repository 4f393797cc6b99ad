package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DBPath string

	ImportChunkSize  int
	ClassifyScanRows int
	ClassifyMinScore int
	HTMLMinSignature int

	CloudURL          string
	CloudAnonKey      string
	CloudTimeoutMs    int
	CloudRateLimitRPS int
	CloudPushBatch    int
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		DBPath: getEnv("DB_PATH", filepath.Join(cwd, "data", "fleet.db")),

		ImportChunkSize:  getEnvInt("IMPORT_CHUNK_SIZE", 2000),
		ClassifyScanRows: getEnvInt("CLASSIFY_SCAN_ROWS", 10),
		ClassifyMinScore: getEnvInt("CLASSIFY_MIN_SCORE", 2),
		HTMLMinSignature: getEnvInt("HTML_MIN_SIGNATURE", 2),

		CloudURL:          getEnv("CLOUD_URL", ""),
		CloudAnonKey:      getEnv("CLOUD_ANON_KEY", ""),
		CloudTimeoutMs:    getEnvInt("CLOUD_TIMEOUT_MS", 30000),
		CloudRateLimitRPS: getEnvInt("CLOUD_RATE_LIMIT_RPS", 5),
		CloudPushBatch:    getEnvInt("CLOUD_PUSH_BATCH", 500),
	}

	return cfg, nil
}

func (c Config) Require(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("missing required env var: %s", name)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
