package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoadConfig_DefaultValues проверяет загрузку значений по умолчанию
func TestLoadConfig_DefaultValues(t *testing.T) {
	config, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", config.Server.Host)
	assert.Equal(t, 8080, config.Server.Port)
	assert.Equal(t, "localhost", config.Database.Host)
	assert.Equal(t, 5432, config.Database.Port)
	assert.Equal(t, "info", config.Logger.Level)
	assert.Equal(t, "dev", config.Environment)
	assert.Equal(t, "public", config.Tenancy.SharedSchema)
	assert.Equal(t, "X-Tenant-ID", config.Tenancy.TenantHeader)
	assert.Equal(t, "X-Admin-Key", config.Tenancy.AdminHeader)
	assert.Equal(t, DefaultAdminAPIKey, config.Tenancy.AdminAPIKey)
	assert.Contains(t, config.Tenancy.ExemptPrefixes, "/api/v1/admin/tenants")
	assert.Contains(t, config.Tenancy.ExemptPaths, "/openapi.json")
	assert.False(t, config.Redis.Enabled)
	assert.False(t, config.RabbitMQ.Enabled)
	assert.Equal(t, 1, config.Migrations.Workers)
}

// TestLoadConfig_FileOverride проверяет переопределение значений из файла
func TestLoadConfig_FileOverride(t *testing.T) {
	tempFile := filepath.Join(t.TempDir(), "config.yaml")
	configContent := `server:
  host: "127.0.0.1"
  port: 9090
database:
  host: "prod-db"
  port: 5433
  name: "tenants"
  user: "svc"
  password: "secret"
logger:
  level: "debug"
environment: "staging"
tenancy:
  shared_schema: "shared"
  admin_api_key: "file-key"
  tenant_header: "X-Tenant-ID"
  admin_header: "X-Admin-Key"
  provision_lock_ttl: 45s
migrations:
  workers: 8
  timeout: 2m
`
	require.NoError(t, os.WriteFile(tempFile, []byte(configContent), 0644))

	config, err := LoadConfig(tempFile)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", config.Server.Host)
	assert.Equal(t, 9090, config.Server.Port)
	assert.Equal(t, "prod-db", config.Database.Host)
	assert.Equal(t, 5433, config.Database.Port)
	assert.Equal(t, "debug", config.Logger.Level)
	assert.Equal(t, "staging", config.Environment)
	assert.Equal(t, "shared", config.Tenancy.SharedSchema)
	assert.Equal(t, "file-key", config.Tenancy.AdminAPIKey)
	assert.Equal(t, 45*time.Second, config.Tenancy.ProvisionLockTTL)
	assert.Equal(t, 8, config.Migrations.Workers)
	assert.Equal(t, 2*time.Minute, config.Migrations.Timeout)
}

// TestLoadConfig_EnvOverride проверяет приоритет переменных окружения
func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("SERVER_PORT", "7070")
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/x?sslmode=disable")
	t.Setenv("ADMIN_API_KEY", "env-key")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("RABBITMQ_URL", "amqp://guest:guest@mq:5672/")

	config, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, 7070, config.Server.Port)
	assert.Equal(t, "postgres://u:p@db:5432/x?sslmode=disable", config.Database.URL)
	assert.Equal(t, "env-key", config.Tenancy.AdminAPIKey)
	assert.True(t, config.Redis.Enabled)
	assert.Equal(t, "redis:6379", config.Redis.Addr)
	assert.True(t, config.RabbitMQ.Enabled)
}

func TestLoadConfig_InvalidPortEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", "eighty")

	_, err := LoadConfig("")
	assert.Error(t, err)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

// TestValidate проверяет правила валидации
func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"bad environment", func(c *Config) { c.Environment = "qa" }},
		{"bad server port", func(c *Config) { c.Server.Port = 70000 }},
		{"shared schema not an identifier", func(c *Config) { c.Tenancy.SharedSchema = "public; drop" }},
		{"empty admin key", func(c *Config) { c.Tenancy.AdminAPIKey = "" }},
		{"default admin key in prod", func(c *Config) { c.Environment = "prod" }},
		{"no migration workers", func(c *Config) { c.Migrations.Workers = 0 }},
		{"reconcile without schedule", func(c *Config) { c.Reconcile.Enabled = true; c.Reconcile.Schedule = "" }},
		{"missing database host", func(c *Config) { c.Database.Host = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			assert.Error(t, c.Validate())
		})
	}

	t.Run("database url replaces discrete fields", func(t *testing.T) {
		c := Default()
		c.Database.Host = ""
		c.Database.URL = "postgres://localhost/tenancy"
		assert.NoError(t, c.Validate())
	})
}

// TestSave проверяет сохранение и повторную загрузку
func TestSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	c := Default()
	c.Server.Port = 9191
	c.Tenancy.AdminAPIKey = "saved-key"
	require.NoError(t, c.Save(path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 9191, loaded.Server.Port)
	assert.Equal(t, "saved-key", loaded.Tenancy.AdminAPIKey)
	assert.Equal(t, c.Tenancy.ProvisionLockTTL, loaded.Tenancy.ProvisionLockTTL)
}
