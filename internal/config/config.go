package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Dataset sources.
const (
	SourceFile     = "file"
	SourceMinio    = "minio"
	SourcePostgres = "postgres"
	SourceSQLite   = "sqlite"
)

type Config struct {
	DatasetSource   string
	DataDir         string
	PostalCodesFile string
	PharmaciesFile  string
	InventoryFile   string
	LoadLogFile     string

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioUseSSL    bool
	MinioBucket    string
	MinioRegion    string

	DatabaseURL string
	SQLitePath  string

	KafkaBroker  string
	KafkaTopic   string
	KafkaGroupID string

	SearchRadiusKm   float64
	MatchStockPolicy string

	ServerPort      int
	ShutdownTimeout int
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}
	dataDir := getEnv("DATA_DIR", filepath.Join(cwd, "data"))

	cfg := Config{
		DatasetSource:   strings.ToLower(getEnv("DATASET_SOURCE", SourceFile)),
		DataDir:         dataDir,
		PostalCodesFile: getEnv("ZIPCODES_FILE", filepath.Join(dataDir, "zipcodes.csv")),
		PharmaciesFile:  getEnv("PHARMACIES_FILE", filepath.Join(dataDir, "pharmacies.json")),
		InventoryFile:   getEnv("INVENTORY_FILE", filepath.Join(dataDir, "inventory.csv")),
		LoadLogFile:     getEnv("LOAD_LOG_FILE", filepath.Join(cwd, "load.log")),

		MinioEndpoint:  getEnv("MINIO_ENDPOINT", ""),
		MinioAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: getEnv("MINIO_SECRET_KEY", ""),
		MinioUseSSL:    getEnvBool("MINIO_USE_SSL", false),
		MinioBucket:    getEnv("MINIO_BUCKET", "pharmacy-data"),
		MinioRegion:    getEnv("MINIO_REGION", "us-east-1"),

		DatabaseURL: getEnv("DATABASE_URL", ""),
		SQLitePath:  getEnv("SQLITE_PATH", filepath.Join(dataDir, "pharmacy.db")),

		KafkaBroker:  getEnv("KAFKA_BROKER", ""),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "pharmacy-data-events"),
		KafkaGroupID: getEnv("KAFKA_GROUP_ID", "pharmacyd"),

		SearchRadiusKm:   getEnvFloat("SEARCH_RADIUS_KM", 25),
		MatchStockPolicy: getEnv("MATCH_STOCK_POLICY", "any"),

		ServerPort:      getEnvInt("SERVER_PORT", 8080),
		ShutdownTimeout: getEnvInt("SHUTDOWN_TIMEOUT_SEC", 10),
	}

	return cfg, cfg.Validate()
}

// Validate checks the settings the selected dataset source depends on.
func (c Config) Validate() error {
	if c.SearchRadiusKm <= 0 {
		return fmt.Errorf("SEARCH_RADIUS_KM must be positive, got %g", c.SearchRadiusKm)
	}
	switch c.DatasetSource {
	case SourceFile, SourceSQLite:
		return nil
	case SourceMinio:
		for name, value := range map[string]string{
			"MINIO_ENDPOINT":   c.MinioEndpoint,
			"MINIO_ACCESS_KEY": c.MinioAccessKey,
			"MINIO_SECRET_KEY": c.MinioSecretKey,
		} {
			if err := c.Require(name, value); err != nil {
				return err
			}
		}
		return nil
	case SourcePostgres:
		return c.Require("DATABASE_URL", c.DatabaseURL)
	default:
		return fmt.Errorf("unknown DATASET_SOURCE %q", c.DatasetSource)
	}
}

// RefreshEnabled reports whether bucket change events should be consumed. Only the
// minio source is backed by the bucket those events describe.
func (c Config) RefreshEnabled() bool {
	return c.DatasetSource == SourceMinio && c.KafkaBroker != "" && c.KafkaTopic != ""
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

func getEnvFloat(key string, fallback float64) float64 {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(key, "")))
	if value == "" {
		return fallback
	}
	if value == "1" || value == "true" || value == "yes" || value == "on" {
		return true
	}
	if value == "0" || value == "false" || value == "no" || value == "off" {
		return false
	}
	return fallback
}
