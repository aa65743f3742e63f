package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"justanote/pkg/crypto"
	"justanote/pkg/errors"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DriverFile, cfg.Storage.Driver)
	assert.Equal(t, 400, cfg.Images.MaxSide)
	assert.Equal(t, 20, cfg.Images.Quality)
	assert.Equal(t, int64(50_000_000), cfg.Images.MaxPixels)
	assert.Equal(t, 2*time.Hour, cfg.Wizard.SessionTTL)
}

func TestLoadFileThenEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeFile(t, path, `
server:
  addr: ":9090"
  baseUrl: https://notes.example
storage:
  driver: sqlite
  sqlitePath: /var/lib/justanote/notes.db
images:
  quality: 35
`)
	t.Setenv("JUSTANOTE_ADDR", ":7070")
	t.Setenv("JUSTANOTE_ADMIN_EMAILS", "a@example.com, b@example.com ,")
	t.Setenv("DB_HOST", "db.internal")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Server.Addr)
	assert.Equal(t, "https://notes.example", cfg.Server.BaseURL)
	assert.Equal(t, DriverSQLite, cfg.Storage.Driver)
	assert.Equal(t, 35, cfg.Images.Quality)
	assert.Equal(t, 400, cfg.Images.MaxSide, "unset values keep their default")
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, cfg.Admin.Emails)
	assert.Equal(t, "db.internal", cfg.Storage.MySQL.Host)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name  string
		yaml  string
		field string
	}{
		{"unknown driver", "storage:\n  driver: postgres\n", "storage.driver"},
		{"quality out of range", "images:\n  quality: 0\n", "images.quality"},
		{"negative pixel cap", "images:\n  maxPixels: -1\n", "images.maxPixels"},
		{"bad hash", "admin:\n  passwordHash: nonsense\n", "admin.passwordHash"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			writeFile(t, path, tt.yaml)

			_, err := Load(path)
			require.Error(t, err)
			appErr, ok := errors.As(err)
			require.True(t, ok)
			assert.Equal(t, errors.ErrTypeConfig, appErr.Type)
			assert.Equal(t, tt.field, appErr.Context["field"])
		})
	}
}

func TestLoadReportsUnparsableFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "server: [unclosed")

	_, err := Load(path)
	appErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, "CONFIG_PARSE_FAILED", appErr.Code)
}

func TestPasswordHashFile(t *testing.T) {
	dir := t.TempDir()
	hash, err := crypto.HashPassword("s3cret-pass")
	require.NoError(t, err)

	cfg := Default()
	cfg.Admin.PasswordHashPath = filepath.Join(dir, "nested", "password_hash")
	require.NoError(t, cfg.SavePasswordHash(hash))

	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, hash, loaded.Admin.PasswordHash)
}

func TestLoadEnvFiles(t *testing.T) {
	dir := t.TempDir()
	env := filepath.Join(dir, ".env")
	writeFile(t, env, "JUSTANOTE_TEST_ONLY_VALUE=from-dotenv\n")
	t.Setenv("JUSTANOTE_TEST_ONLY_VALUE", "")
	os.Unsetenv("JUSTANOTE_TEST_ONLY_VALUE")

	require.NoError(t, LoadEnvFiles(env, filepath.Join(dir, "missing.env")))
	assert.Equal(t, "from-dotenv", os.Getenv("JUSTANOTE_TEST_ONLY_VALUE"))
}

func TestMySQLDSN(t *testing.T) {
	cfg := Default()
	cfg.Storage.MySQL = MySQLConfig{Host: "db", Port: "3307", User: "app", Password: "pw", Database: "notes"}
	assert.Equal(t, "app:pw@tcp(db:3307)/notes?charset=utf8mb4&parseTime=True&loc=UTC", cfg.MySQLDSN())
}
