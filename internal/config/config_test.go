package config

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATASET_SOURCE", "")
	t.Setenv("DATA_DIR", "/srv/pharmacy")
	t.Setenv("SEARCH_RADIUS_KM", "")
	t.Setenv("SERVER_PORT", "")

	// An empty DATASET_SOURCE is set, so it is used as-is and fails validation.
	if _, err := Load(); err == nil {
		t.Fatal("expected error for empty DATASET_SOURCE")
	}

	t.Setenv("DATASET_SOURCE", "FILE")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DatasetSource != SourceFile {
		t.Fatalf("DatasetSource = %q; want file", cfg.DatasetSource)
	}
	if cfg.SearchRadiusKm != 25 || cfg.ServerPort != 8080 || cfg.MatchStockPolicy != "any" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if want := filepath.Join("/srv/pharmacy", "zipcodes.csv"); cfg.PostalCodesFile != want {
		t.Fatalf("PostalCodesFile = %q; want %q", cfg.PostalCodesFile, want)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DATASET_SOURCE", "postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/pharmacy")
	t.Setenv("SEARCH_RADIUS_KM", "12.5")
	t.Setenv("SERVER_PORT", "not-a-port")
	t.Setenv("MINIO_USE_SSL", "yes")
	t.Setenv("KAFKA_BROKER", "localhost:9092")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.SearchRadiusKm != 12.5 {
		t.Fatalf("SearchRadiusKm = %v; want 12.5", cfg.SearchRadiusKm)
	}
	if cfg.ServerPort != 8080 {
		t.Fatalf("ServerPort = %d; invalid value should fall back to 8080", cfg.ServerPort)
	}
	if !cfg.MinioUseSSL {
		t.Fatal("MinioUseSSL = false; want true")
	}
	if cfg.RefreshEnabled() {
		t.Fatal("RefreshEnabled() = true for a postgres source")
	}
}

func TestRefreshEnabled(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want bool
	}{
		{"minio with broker", Config{DatasetSource: SourceMinio, KafkaBroker: "localhost:9092", KafkaTopic: "events"}, true},
		{"minio without broker", Config{DatasetSource: SourceMinio, KafkaTopic: "events"}, false},
		{"file with broker", Config{DatasetSource: SourceFile, KafkaBroker: "localhost:9092", KafkaTopic: "events"}, false},
		{"sqlite with broker", Config{DatasetSource: SourceSQLite, KafkaBroker: "localhost:9092", KafkaTopic: "events"}, false},
		{"postgres with broker", Config{DatasetSource: SourcePostgres, KafkaBroker: "localhost:9092", KafkaTopic: "events"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.RefreshEnabled(); got != tt.want {
				t.Fatalf("RefreshEnabled() = %v; want %v", got, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"file", Config{DatasetSource: SourceFile, SearchRadiusKm: 25}, ""},
		{"sqlite", Config{DatasetSource: SourceSQLite, SearchRadiusKm: 25}, ""},
		{"postgres without url", Config{DatasetSource: SourcePostgres, SearchRadiusKm: 25}, "DATABASE_URL"},
		{"minio without credentials", Config{DatasetSource: SourceMinio, SearchRadiusKm: 25, MinioEndpoint: "localhost:9000"}, "MINIO_"},
		{"minio", Config{DatasetSource: SourceMinio, SearchRadiusKm: 25, MinioEndpoint: "e", MinioAccessKey: "a", MinioSecretKey: "s"}, ""},
		{"unknown source", Config{DatasetSource: "ftp", SearchRadiusKm: 25}, "unknown DATASET_SOURCE"},
		{"zero radius", Config{DatasetSource: SourceFile}, "SEARCH_RADIUS_KM"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() error = %v; want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestGetEnvBool(t *testing.T) {
	tests := []struct {
		value    string
		fallback bool
		want     bool
	}{
		{"", true, true},
		{"on", false, true},
		{"0", true, false},
		{"maybe", true, true},
	}
	for _, tt := range tests {
		t.Setenv("PHARMACY_TEST_BOOL", tt.value)
		if got := getEnvBool("PHARMACY_TEST_BOOL", tt.fallback); got != tt.want {
			t.Errorf("getEnvBool(%q, %v) = %v; want %v", tt.value, tt.fallback, got, tt.want)
		}
	}
}
