package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/casebridge/docintel/internal/store"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Blobstore BlobstoreConfig `yaml:"blobstore" mapstructure:"blobstore"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Mistral   MistralConfig   `yaml:"mistral" mapstructure:"mistral"`
	Router    RouterConfig    `yaml:"router" mapstructure:"router"`
	Fetch     FetchConfig     `yaml:"fetch" mapstructure:"fetch"`
	Autofill  AutofillConfig  `yaml:"autofill" mapstructure:"autofill"`
	PDFFill   PDFFillConfig   `yaml:"pdffill" mapstructure:"pdffill"`
	Batch     BatchConfig     `yaml:"batch" mapstructure:"batch"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the case data backend.
type StoreConfig struct {
	Driver      string           `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string           `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string           `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	Pool        store.PoolConfig `yaml:"pool" mapstructure:"pool"`
}

// BlobstoreConfig holds signed-URL storage API settings.
type BlobstoreConfig struct {
	BaseURL    string `yaml:"base_url" mapstructure:"base_url"`
	ServiceKey string `yaml:"service_key" mapstructure:"service_key"`
	Bucket     string `yaml:"bucket" mapstructure:"bucket"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// MistralConfig holds Mistral API settings.
type MistralConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// RouterConfig configures provider selection and failover.
type RouterConfig struct {
	Mode              string  `yaml:"mode" mapstructure:"mode"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int     `yaml:"burst" mapstructure:"burst"`
	FailureThreshold  int     `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs  int     `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
}

// FetchConfig configures signed-URL downloads.
type FetchConfig struct {
	TimeoutSecs int `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// AutofillConfig configures form autofill behavior.
type AutofillConfig struct {
	MinMatchLen    int     `yaml:"min_match_len" mapstructure:"min_match_len"`
	MinLengthRatio float64 `yaml:"min_length_ratio" mapstructure:"min_length_ratio"`
	MapperModel    string  `yaml:"mapper_model" mapstructure:"mapper_model"`
	UseModelMapper bool    `yaml:"use_model_mapper" mapstructure:"use_model_mapper"`
}

// PDFFillConfig holds the PDF form-fill service settings.
type PDFFillConfig struct {
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
	ServiceSecret string `yaml:"service_secret" mapstructure:"service_secret"`
}

// BatchConfig configures batch document analysis.
type BatchConfig struct {
	ChunkSize int `yaml:"chunk_size" mapstructure:"chunk_size"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port                int      `yaml:"port" mapstructure:"port"`
	CORSOrigins         []string `yaml:"cors_origins" mapstructure:"cors_origins"`
	ShutdownTimeoutSecs int      `yaml:"shutdown_timeout_secs" mapstructure:"shutdown_timeout_secs"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("DOCINTEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. Keys with no meaningful default still get an empty one:
	// AutomaticEnv only surfaces keys viper already knows about through
	// Unmarshal, so without these a DOCINTEL_ANTHROPIC_KEY set in the
	// environment alone would be dropped.
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.sqlite_path", "docintel.db")
	v.SetDefault("store.pool.max_conns", 10)
	v.SetDefault("store.pool.min_conns", 2)
	v.SetDefault("blobstore.base_url", "")
	v.SetDefault("blobstore.service_key", "")
	v.SetDefault("blobstore.bucket", "case-documents")
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 4096)
	v.SetDefault("mistral.key", "")
	v.SetDefault("mistral.model", "pixtral-large-latest")
	v.SetDefault("router.mode", "auto")
	v.SetDefault("router.requests_per_second", 2.0)
	v.SetDefault("router.burst", 4)
	v.SetDefault("router.failure_threshold", 5)
	v.SetDefault("router.reset_timeout_secs", 30)
	v.SetDefault("fetch.timeout_secs", 60)
	v.SetDefault("autofill.min_match_len", 3)
	v.SetDefault("autofill.min_length_ratio", 0.4)
	v.SetDefault("autofill.mapper_model", "claude-sonnet-4-5-20250929")
	v.SetDefault("autofill.use_model_mapper", true)
	v.SetDefault("pdffill.base_url", "")
	v.SetDefault("pdffill.service_secret", "")
	v.SetDefault("batch.chunk_size", 3)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.shutdown_timeout_secs", 15)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that the configuration is usable for the given mode.
// Modes: "analyze" (document analysis and autofill), "checklist" (case
// completeness), "fill" (PDF form fill), "serve" (HTTP API).
func (c *Config) Validate(mode string) error {
	var problems []string

	requireProviders := func() {
		switch c.Router.Mode {
		case "anthropic":
			if c.Anthropic.Key == "" {
				problems = append(problems, "anthropic.key is required")
			}
		case "mistral":
			if c.Mistral.Key == "" {
				problems = append(problems, "mistral.key is required")
			}
		default:
			if c.Anthropic.Key == "" && c.Mistral.Key == "" {
				problems = append(problems, "anthropic.key or mistral.key is required")
			}
		}
		if c.Blobstore.BaseURL == "" {
			problems = append(problems, "blobstore.base_url is required")
		}
		if c.Blobstore.ServiceKey == "" {
			problems = append(problems, "blobstore.service_key is required")
		}
	}
	requireStore := func() {
		switch c.Store.Driver {
		case "postgres":
			if c.Store.DatabaseURL == "" {
				problems = append(problems, "store.database_url is required")
			}
		case "sqlite":
			if c.Store.SQLitePath == "" {
				problems = append(problems, "store.sqlite_path is required")
			}
		default:
			problems = append(problems, "store.driver must be postgres or sqlite")
		}
	}

	switch mode {
	case "analyze":
		requireProviders()
	case "checklist":
		requireStore()
	case "fill":
		if c.PDFFill.BaseURL == "" {
			problems = append(problems, "pdffill.base_url is required")
		}
	case "serve":
		requireProviders()
		requireStore()
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	switch c.Router.Mode {
	case "auto", "anthropic", "mistral":
	default:
		problems = append(problems, "router.mode must be auto, anthropic or mistral")
	}
	if c.Batch.ChunkSize < 1 || c.Batch.ChunkSize > 20 {
		problems = append(problems, "batch.chunk_size must be between 1 and 20")
	}
	if c.Autofill.MinLengthRatio < 0 || c.Autofill.MinLengthRatio > 1 {
		problems = append(problems, "autofill.min_length_ratio must be between 0 and 1")
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
