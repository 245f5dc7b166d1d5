package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, "/api", cfg.Server.BasePath)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "__OVERALL__", cfg.Comments.OverallKey)
	assert.Equal(t, "progman:rooms", cfg.Redis.Channel)
	assert.False(t, cfg.Redis.Enabled())
	assert.False(t, cfg.S3.Enabled())
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := `
server:
  port: "9000"
  shutdown_timeout: 3s
database:
  driver: sqlite
  sqlite_path: /tmp/from-file.db
schedule:
  hidden_categories: [Internal]
  milestone_category: MS
  template:
    - category: Design
      items: [Wireframes, Mockups]
comments:
  left_sections: [Design, Build]
  right_sections: [QA]
  autosave_delay: 1s
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))

	t.Setenv("SQLITE_PATH", "/tmp/from-env.db")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.example, http://b.example,")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, 3*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "/tmp/from-env.db", cfg.Database.GetDSN())
	assert.Equal(t, []string{"Internal"}, cfg.Schedule.HiddenCategories)
	assert.Equal(t, "MS", cfg.Schedule.MilestoneCategory)
	require.Len(t, cfg.Schedule.Template, 1)
	assert.Equal(t, []string{"Wireframes", "Mockups"}, cfg.Schedule.Template[0].Items)
	assert.Equal(t, []string{"QA"}, cfg.Comments.RightSections)
	assert.Equal(t, time.Second, cfg.Comments.AutosaveDelay)
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.CORS.AllowedOrigins)
	// untouched defaults survive a partial file
	assert.Equal(t, "__OVERALL__", cfg.Comments.OverallKey)
}

func TestLoad_InvalidDriver(t *testing.T) {
	t.Setenv("DB_DRIVER", "mysql")
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestDatabaseConfig_GetDSN(t *testing.T) {
	d := DatabaseConfig{Driver: "postgres", Host: "db", Port: 5432, User: "u", Password: "p", DBName: "n", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=n sslmode=disable TimeZone=UTC", d.GetDSN())

	d.URL = "postgres://u:p@db/n"
	assert.Equal(t, "postgres://u:p@db/n", d.GetDSN())
}
