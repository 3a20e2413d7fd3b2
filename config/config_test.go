package config

import (
	"errors"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"DATABASE_DRIVER", "DATABASE_PATH", "DATABASE_URL", "GALLERY_PATH",
		"MATCH_TOLERANCE", "MATCH_METRIC", "CAPTURE_STORAGE_PATH", "ALLOWED_ORIGINS",
		"ADMIN_PASSWORD_HASH", "TIMEZONE", "MAX_IMAGE_DIMENSION",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.DatabaseDriver != DriverSQLite {
		t.Errorf("expected sqlite driver, got %s", cfg.DatabaseDriver)
	}
	if cfg.DatabaseDSN != "attendance.db" {
		t.Errorf("expected default DSN attendance.db, got %s", cfg.DatabaseDSN)
	}
	if cfg.MatchTolerance != 0.5 {
		t.Errorf("expected default tolerance 0.5, got %f", cfg.MatchTolerance)
	}
	if cfg.MatchMetric != MetricEuclidean {
		t.Errorf("expected euclidean metric, got %s", cfg.MatchMetric)
	}
	if cfg.MaxImageDimension != 1600 {
		t.Errorf("expected max image dimension 1600, got %d", cfg.MaxImageDimension)
	}
	if cfg.CaptureEnabled() {
		t.Error("expected capture archive to be disabled by default")
	}
	if cfg.AuthEnabled() {
		t.Error("expected admin auth to be disabled by default")
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "http://localhost:5173" {
		t.Errorf("unexpected allowed origins: %v", cfg.AllowedOrigins)
	}
}

func TestLoadConfig_InvalidToleranceFallsBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("MATCH_TOLERANCE", "not-a-number")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.MatchTolerance != 0.5 {
		t.Errorf("expected fallback tolerance 0.5, got %f", cfg.MatchTolerance)
	}
}

func TestLoadConfig_UnknownMetric(t *testing.T) {
	clearEnv(t)
	t.Setenv("MATCH_METRIC", "manhattan")

	_, err := LoadConfig()
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestLoadConfig_PostgresRequiresURL(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_DRIVER", "postgres")

	_, err := LoadConfig()
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig for missing DATABASE_URL, got %v", err)
	}

	t.Setenv("DATABASE_URL", "postgres://localhost/attendance")
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DatabaseDSN != "postgres://localhost/attendance" {
		t.Errorf("expected DATABASE_URL as DSN, got %s", cfg.DatabaseDSN)
	}
}

func TestLoadConfig_AllowedOriginsList(t *testing.T) {
	clearEnv(t)
	t.Setenv("ALLOWED_ORIGINS", "http://a.example, ,http://b.example")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.AllowedOrigins) != 2 {
		t.Fatalf("expected 2 origins, got %v", cfg.AllowedOrigins)
	}
	if cfg.AllowedOrigins[1] != "http://b.example" {
		t.Errorf("expected second origin http://b.example, got %s", cfg.AllowedOrigins[1])
	}
}

func TestToday_UsesLocation(t *testing.T) {
	loc := time.FixedZone("test", 0)
	cfg := Config{Location: loc}

	expected := time.Now().In(loc).Format("2006-01-02")
	if got := cfg.Today(); got != expected {
		t.Errorf("expected %s, got %s", expected, got)
	}
}
