package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.Port != 7042 {
		t.Errorf("expected default port 7042, got %d", cfg.App.Port)
	}
	if cfg.Solver.MaxTimeLimit != 60*time.Second {
		t.Errorf("expected 60s solver cap, got %v", cfg.Solver.MaxTimeLimit)
	}
	if !cfg.Solver.Improve {
		t.Error("improvement phase enabled by default")
	}
	if cfg.Cache.Enabled {
		t.Error("cache disabled by default")
	}
	if cfg.Database.MaxOpenConns != 25 {
		t.Errorf("expected 25 max open conns, got %d", cfg.Database.MaxOpenConns)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("APP_PORT", "9000")
	t.Setenv("SOLVER_WORKERS", "8")
	t.Setenv("SOLVER_MAX_TIME_LIMIT", "90s")
	t.Setenv("SOLVER_IMPROVE", "false")
	t.Setenv("CACHE_ENABLED", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.App.Port)
	}
	if cfg.Solver.Workers != 8 {
		t.Errorf("expected 8 workers, got %d", cfg.Solver.Workers)
	}
	if cfg.Solver.MaxTimeLimit != 90*time.Second {
		t.Errorf("expected 90s cap, got %v", cfg.Solver.MaxTimeLimit)
	}
	if cfg.Solver.Improve {
		t.Error("expected improvement disabled")
	}
	if !cfg.Cache.Enabled {
		t.Error("expected cache enabled")
	}
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := "app:\n  port: 8100\nsolver:\n  workers: 2\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.Port != 8100 {
		t.Errorf("expected port 8100 from file, got %d", cfg.App.Port)
	}
	if cfg.Solver.Workers != 2 {
		t.Errorf("expected 2 workers from file, got %d", cfg.Solver.Workers)
	}
}

// 环境变量覆盖 YAML 文件
func TestLoad_EnvBeatsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("app:\n  port: 8100\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("APP_PORT", "9200")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.Port != 9200 {
		t.Errorf("expected env to win over file, got %d", cfg.App.Port)
	}
}

func TestDSN(t *testing.T) {
	db := DatabaseConfig{
		Host: "db", Port: 5432, Name: "tourplan", User: "svc", Password: "pw", SSLMode: "disable",
	}
	want := "host=db port=5432 user=svc password=pw dbname=tourplan sslmode=disable"
	if got := db.DSN(); got != want {
		t.Errorf("DSN mismatch:\n got %s\nwant %s", got, want)
	}
}

func TestEnvHelpers(t *testing.T) {
	cfg, _ := Load()
	if !cfg.IsDevelopment() || cfg.IsProduction() {
		t.Error("default env is development")
	}
	t.Setenv("APP_ENV", "production")
	cfg, _ = Load()
	if !cfg.IsProduction() {
		t.Error("expected production env")
	}
}
