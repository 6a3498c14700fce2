package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chTempDir(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(origDir) })
}

func TestLoadDefaults(t *testing.T) {
	chTempDir(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, int32(10), cfg.Store.Pool.MaxConns)
	assert.Equal(t, "case-documents", cfg.Blobstore.Bucket)
	assert.Equal(t, "claude-sonnet-4-5-20250929", cfg.Anthropic.Model)
	assert.Equal(t, int64(4096), cfg.Anthropic.MaxTokens)
	assert.Equal(t, "pixtral-large-latest", cfg.Mistral.Model)
	assert.Equal(t, "auto", cfg.Router.Mode)
	assert.InDelta(t, 2.0, cfg.Router.RequestsPerSecond, 0.001)
	assert.Equal(t, 5, cfg.Router.FailureThreshold)
	assert.Equal(t, 60, cfg.Fetch.TimeoutSecs)
	assert.Equal(t, 3, cfg.Autofill.MinMatchLen)
	assert.InDelta(t, 0.4, cfg.Autofill.MinLengthRatio, 0.001)
	assert.True(t, cfg.Autofill.UseModelMapper)
	assert.Equal(t, 3, cfg.Batch.ChunkSize)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	chTempDir(t)

	yaml := `
store:
  driver: sqlite
  sqlite_path: /tmp/cases.db
router:
  mode: anthropic
batch:
  chunk_size: 5
log:
  level: debug
  format: console
`
	dir, _ := os.Getwd()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "/tmp/cases.db", cfg.Store.SQLitePath)
	assert.Equal(t, "anthropic", cfg.Router.Mode)
	assert.Equal(t, 5, cfg.Batch.ChunkSize)
	assert.Equal(t, "debug", cfg.Log.Level)
	// Defaults still apply for unset values
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	chTempDir(t)

	yaml := `
router:
  mode: mistral
log:
  level: debug
`
	dir, _ := os.Getwd()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("DOCINTEL_ROUTER_MODE", "auto")
	t.Setenv("DOCINTEL_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "auto", cfg.Router.Mode)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chTempDir(t)

	t.Setenv("DOCINTEL_SERVER_PORT", "3000")
	t.Setenv("DOCINTEL_ANTHROPIC_KEY", "sk-ant-test")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "sk-ant-test", cfg.Anthropic.Key)
}

// Secrets have no config-file default, so they must still arrive from the
// environment alone.
func TestLoadSecretsFromEnvWithoutFile(t *testing.T) {
	chTempDir(t)

	t.Setenv("DOCINTEL_MISTRAL_KEY", "mistral-test")
	t.Setenv("DOCINTEL_STORE_DATABASE_URL", "postgres://db.internal/docintel")
	t.Setenv("DOCINTEL_BLOBSTORE_BASE_URL", "https://storage.example.com/storage/v1")
	t.Setenv("DOCINTEL_BLOBSTORE_SERVICE_KEY", "service-key")
	t.Setenv("DOCINTEL_PDFFILL_BASE_URL", "https://forms.example.com")
	t.Setenv("DOCINTEL_PDFFILL_SERVICE_SECRET", "fill-secret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "mistral-test", cfg.Mistral.Key)
	assert.Equal(t, "postgres://db.internal/docintel", cfg.Store.DatabaseURL)
	assert.Equal(t, "https://storage.example.com/storage/v1", cfg.Blobstore.BaseURL)
	assert.Equal(t, "service-key", cfg.Blobstore.ServiceKey)
	assert.Equal(t, "https://forms.example.com", cfg.PDFFill.BaseURL)
	assert.Equal(t, "fill-secret", cfg.PDFFill.ServiceSecret)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Store.Driver = "postgres"
	cfg.Router.Mode = "auto"
	cfg.Batch.ChunkSize = 3
	cfg.Autofill.MinLengthRatio = 0.4
	cfg.Server.Port = 8080
	return cfg
}

func TestValidateAnalyze_AllPresent(t *testing.T) {
	cfg := validDefaults()
	cfg.Anthropic.Key = "sk-ant-key"
	cfg.Blobstore.BaseURL = "https://storage.example.com/storage/v1"
	cfg.Blobstore.ServiceKey = "service-key"

	assert.NoError(t, cfg.Validate("analyze"))
}

func TestValidateAnalyze_MissingFields(t *testing.T) {
	cfg := validDefaults()

	err := cfg.Validate("analyze")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic.key or mistral.key is required")
	assert.Contains(t, err.Error(), "blobstore.base_url is required")
	assert.Contains(t, err.Error(), "blobstore.service_key is required")
}

func TestValidateAnalyze_ForcedModeNeedsItsKey(t *testing.T) {
	cfg := validDefaults()
	cfg.Router.Mode = "mistral"
	cfg.Anthropic.Key = "sk-ant-key" // wrong provider for the forced mode
	cfg.Blobstore.BaseURL = "https://storage.example.com"
	cfg.Blobstore.ServiceKey = "service-key"

	err := cfg.Validate("analyze")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mistral.key is required")
}

func TestValidateChecklist_StoreDrivers(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("checklist")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url is required")

	cfg.Store.DatabaseURL = "postgres://localhost/docintel"
	assert.NoError(t, cfg.Validate("checklist"))

	cfg.Store.Driver = "sqlite"
	cfg.Store.SQLitePath = ""
	err = cfg.Validate("checklist")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.sqlite_path is required")

	cfg.Store.Driver = "mysql"
	err = cfg.Validate("checklist")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver must be postgres or sqlite")
}

func TestValidateFill(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("fill")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pdffill.base_url is required")

	cfg.PDFFill.BaseURL = "https://forms.example.com"
	assert.NoError(t, cfg.Validate("fill"))
}

func TestValidateServe(t *testing.T) {
	cfg := validDefaults()
	cfg.Anthropic.Key = "sk-ant-key"
	cfg.Blobstore.BaseURL = "https://storage.example.com"
	cfg.Blobstore.ServiceKey = "service-key"
	cfg.Store.DatabaseURL = "postgres://localhost/docintel"

	assert.NoError(t, cfg.Validate("serve"))

	cfg.Server.Port = 0
	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("unknown")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestValidateBounds(t *testing.T) {
	cfg := validDefaults()
	cfg.PDFFill.BaseURL = "https://forms.example.com"

	cfg.Router.Mode = "openai"
	err := cfg.Validate("fill")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "router.mode must be auto, anthropic or mistral")

	cfg.Router.Mode = "auto"
	cfg.Batch.ChunkSize = 0
	err = cfg.Validate("fill")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "batch.chunk_size must be between 1 and 20")

	cfg.Batch.ChunkSize = 3
	cfg.Autofill.MinLengthRatio = 1.5
	err = cfg.Validate("fill")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "autofill.min_length_ratio must be between 0 and 1")
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}
