package migrate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/angelmondragon/salessavvy-storefront/pkg/config"
	"github.com/angelmondragon/salessavvy-storefront/pkg/db"
)

func TestEmbeddedMigrationsAreValid(t *testing.T) {
	if err := ValidateEmbedded(); err != nil {
		t.Fatalf("embedded migrations invalid: %v", err)
	}
}

func TestValidateFSRejectsMissingDown(t *testing.T) {
	fsys := fstest.MapFS{
		"m/20260101000000_broken.sql": {Data: []byte("-- +goose Up\nSELECT 1;\n")},
	}
	err := ValidateFS(fsys, "m")
	if err == nil || !strings.Contains(err.Error(), "+goose Down") {
		t.Fatalf("expected missing Down marker error, got %v", err)
	}
}

func TestValidateFSRejectsDuplicateVersion(t *testing.T) {
	body := []byte("-- +goose Up\n-- +goose Down\n")
	fsys := fstest.MapFS{
		"m/20260101000000_a.sql": {Data: body},
		"m/20260101000000_b.sql": {Data: body},
	}
	if err := ValidateFS(fsys, "m"); err == nil {
		t.Fatalf("expected duplicate version error")
	}
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)

	path, err := CreateSQLMigration(dir, "Add Profile Cache!", now)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if filepath.Base(path) != "20260301123000_add_profile_cache.sql" {
		t.Fatalf("unexpected filename %s", filepath.Base(path))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), "-- +goose Down") {
		t.Fatalf("template missing Down section")
	}
	if _, err := CreateSQLMigration(dir, "add profile cache", now); err == nil {
		t.Fatalf("expected error for existing migration")
	}
	if err := ValidateFS(os.DirFS(dir), "."); err != nil {
		t.Fatalf("created migration does not validate: %v", err)
	}
}

func TestEnsureAppliesSchemaOnSQLite(t *testing.T) {
	ctx := context.Background()
	client, err := db.New(ctx, config.StorageDriverSQLite, config.DBConfig{
		DSN: fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()),
	}, nil)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	for i := 0; i < 2; i++ {
		if err := Ensure(ctx, client, config.StorageDriverSQLite, nil); err != nil {
			t.Fatalf("ensure run %d: %v", i+1, err)
		}
	}
	if !client.DB().Migrator().HasTable("storefront_session_entries") {
		t.Fatalf("expected session table after migration")
	}

	sqlDB, _ := client.DB().DB()
	version, err := Version(ctx, sqlDB, config.StorageDriverSQLite)
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if version != 20260301120000 {
		t.Fatalf("unexpected schema version %d", version)
	}
}

func TestDialectForUnknownDriver(t *testing.T) {
	if _, err := dialectFor("file"); err == nil {
		t.Fatalf("expected error for non-sql driver")
	}
}
