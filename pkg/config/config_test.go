package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	if cfg.Backend.BaseURL != "http://localhost:8080/api" {
		t.Fatalf("unexpected base url %q", cfg.Backend.BaseURL)
	}
	if cfg.Backend.Timeout != 15*time.Second {
		t.Fatalf("unexpected timeout %v", cfg.Backend.Timeout)
	}
	if cfg.Storage.Driver != StorageDriverFile {
		t.Fatalf("expected file driver, got %q", cfg.Storage.Driver)
	}
	if cfg.DevServer.TokenTTL() != 24*time.Hour {
		t.Fatalf("unexpected dev token ttl %v", cfg.DevServer.TokenTTL())
	}
	if len(cfg.DevServer.CORSOrigins) != 3 || cfg.DevServer.AuthRateWindow != time.Minute {
		t.Fatalf("unexpected dev server defaults %+v", cfg.DevServer)
	}
}

func TestLoad_TrimsBaseURL(t *testing.T) {
	t.Setenv(EnvAPIBaseURL, "https://shop.example.com/api/ ")
	t.Setenv(EnvAPITimeout, "3s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}
	if cfg.Backend.BaseURL != "https://shop.example.com/api" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.Backend.BaseURL)
	}
	if cfg.Backend.Timeout != 3*time.Second {
		t.Fatalf("unexpected timeout %v", cfg.Backend.Timeout)
	}
}

func TestLoad_RejectsRelativeBaseURL(t *testing.T) {
	t.Setenv(EnvAPIBaseURL, "/api")
	if _, err := Load(); err == nil {
		t.Fatal("expected relative base url to be rejected")
	}
}

func TestLoad_RejectsUnknownStorageDriver(t *testing.T) {
	t.Setenv(EnvStorageDriver, "etcd")
	if _, err := Load(); err == nil {
		t.Fatal("expected unknown storage driver to be rejected")
	}
}

func TestLoad_NormalizesStorageDriver(t *testing.T) {
	t.Setenv(EnvStorageDriver, " Redis ")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}
	if cfg.Storage.Driver != StorageDriverRedis {
		t.Fatalf("expected redis driver, got %q", cfg.Storage.Driver)
	}
}

func TestAppConfigEnvHelpers(t *testing.T) {
	devConfig := AppConfig{Env: "DEV"}
	if !devConfig.IsDev() {
		t.Fatalf("expected IsDev true for %q", devConfig.Env)
	}
	if devConfig.IsProd() {
		t.Fatalf("expected IsProd false for %q", devConfig.Env)
	}

	prodConfig := AppConfig{Env: "prod"}
	if !prodConfig.IsProd() {
		t.Fatalf("expected IsProd true for %q", prodConfig.Env)
	}
}
