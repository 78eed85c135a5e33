package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"buyerwatch/internal/entities"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	EnvPrefix = "BUYERWATCH"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	AI        AIConfig        `mapstructure:"ai"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
	WhatsApp  WhatsAppConfig  `mapstructure:"whatsapp"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	AskRate         float64       `mapstructure:"ask_rate"`
	AskBurst        int           `mapstructure:"ask_burst"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
	Path   string `mapstructure:"path"`
}

type AIConfig struct {
	Provider           string        `mapstructure:"provider"`
	APIKey             string        `mapstructure:"api_key"`
	Model              string        `mapstructure:"model"`
	BaseURL            string        `mapstructure:"base_url"`
	Temperature        float32       `mapstructure:"temperature"`
	TopK               int           `mapstructure:"top_k"`
	TopP               float32       `mapstructure:"top_p"`
	MaxOutputTokens    int           `mapstructure:"max_output_tokens"`
	Timeout            time.Duration `mapstructure:"timeout"`
	MaxContextMessages int           `mapstructure:"max_context_messages"`
}

type AuthConfig struct {
	JWTSecret     string `mapstructure:"jwt_secret"`
	AdminUsername string `mapstructure:"admin_username"`
	AdminPassword string `mapstructure:"admin_password"`
}

type DashboardConfig struct {
	DataPath string `mapstructure:"data_path"`
}

type WhatsAppConfig struct {
	Enabled    bool     `mapstructure:"enabled"`
	DevicePath string   `mapstructure:"device_path"`
	Groups     []string `mapstructure:"groups"`
}

type TelegramConfig struct {
	Token         string  `mapstructure:"token"`
	RatePerSecond float64 `mapstructure:"rate_per_second"`
	Burst         int     `mapstructure:"burst"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.ask_rate", 1.0)
	v.SetDefault("server.ask_burst", 5)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("database.driver", DriverSQLite)
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.path", "data/buyerwatch.db")

	v.SetDefault("ai.provider", entities.ProviderGemini)
	v.SetDefault("ai.api_key", "")
	v.SetDefault("ai.model", "")
	v.SetDefault("ai.base_url", "")
	v.SetDefault("ai.temperature", 0.7)
	v.SetDefault("ai.top_k", 40)
	v.SetDefault("ai.top_p", 0.95)
	v.SetDefault("ai.max_output_tokens", 1024)
	v.SetDefault("ai.timeout", 30*time.Second)
	v.SetDefault("ai.max_context_messages", 100)

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.admin_username", "admin")
	v.SetDefault("auth.admin_password", "")

	v.SetDefault("dashboard.data_path", "")

	v.SetDefault("whatsapp.enabled", false)
	v.SetDefault("whatsapp.device_path", "data/whatsapp.db")
	v.SetDefault("whatsapp.groups", []string{})

	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.rate_per_second", 0.2)
	v.SetDefault("telegram.burst", 3)

	v.SetDefault("log.level", "info")
}

// bindEnv maps the conventional unprefixed variables onto config keys.
// The prefixed name is listed first so it wins when both are set.
// OPENAI_API_KEY is not bound here; normalize applies it for the openai provider only.
func bindEnv(v *viper.Viper) error {
	bindings := map[string][]string{
		"ai.api_key":          {EnvPrefix + "_AI_API_KEY", "GEMINI_API_KEY"},
		"telegram.token":      {EnvPrefix + "_TELEGRAM_TOKEN", "TELEGRAM_BOT_TOKEN"},
		"auth.jwt_secret":     {EnvPrefix + "_AUTH_JWT_SECRET", "JWT_SECRET"},
		"auth.admin_password": {EnvPrefix + "_AUTH_ADMIN_PASSWORD", "ADMIN_PASSWORD"},
		"database.dsn":        {EnvPrefix + "_DATABASE_DSN", "DATABASE_URL"},
	}
	for key, names := range bindings {
		args := append([]string{key}, names...)
		if err := v.BindEnv(args...); err != nil {
			return fmt.Errorf("bind %s: %w", key, err)
		}
	}
	return nil
}

// Load reads .env (optional), then the config file (optional unless path is
// given explicitly), then environment variables.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := bindEnv(v); err != nil {
		return nil, err
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() {
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	c.AI.Provider = strings.ToLower(strings.TrimSpace(c.AI.Provider))
	c.AI.APIKey = strings.TrimSpace(c.AI.APIKey)

	// OPENAI_API_KEY only applies to the openai provider
	if c.AI.Provider == entities.ProviderOpenAI && os.Getenv(EnvPrefix+"_AI_API_KEY") == "" {
		if key := strings.TrimSpace(os.Getenv("OPENAI_API_KEY")); key != "" {
			c.AI.APIKey = key
		}
	}

	groups := c.WhatsApp.Groups[:0]
	for _, g := range c.WhatsApp.Groups {
		if g = strings.TrimSpace(g); g != "" {
			groups = append(groups, g)
		}
	}
	c.WhatsApp.Groups = groups
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.DSN == "" {
			return errors.New("database.dsn is required for the postgres driver")
		}
	case DriverSQLite:
		if c.Database.Path == "" {
			return errors.New("database.path is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}

	switch c.AI.Provider {
	case entities.ProviderGemini, entities.ProviderOpenAI:
	default:
		return fmt.Errorf("unknown ai provider %q", c.AI.Provider)
	}
	if c.AI.TopP < 0 || c.AI.TopP > 1 {
		return fmt.Errorf("ai.top_p must be within [0, 1], got %v", c.AI.TopP)
	}
	if c.Server.AskRate <= 0 {
		return fmt.Errorf("server.ask_rate must be positive, got %v", c.Server.AskRate)
	}
	if c.Server.AskBurst < 1 {
		return errors.New("server.ask_burst must be at least 1")
	}
	if c.Telegram.RatePerSecond <= 0 {
		return fmt.Errorf("telegram.rate_per_second must be positive, got %v", c.Telegram.RatePerSecond)
	}
	if c.Telegram.Burst < 1 {
		return errors.New("telegram.burst must be at least 1")
	}
	return nil
}

// AnswerConfig is the base answer configuration; a stored key may override APIKey
func (c *Config) AnswerConfig() entities.AnswerConfig {
	return entities.AnswerConfig{
		APIKey:             c.AI.APIKey,
		Provider:           c.AI.Provider,
		Model:              c.AI.Model,
		BaseURL:            c.AI.BaseURL,
		Temperature:        c.AI.Temperature,
		TopK:               c.AI.TopK,
		TopP:               c.AI.TopP,
		MaxOutputTokens:    c.AI.MaxOutputTokens,
		MaxContextMessages: c.AI.MaxContextMessages,
		Timeout:            c.AI.Timeout,
	}
}

// NewLogger builds a production zap logger, or a development one at debug level
func NewLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	zcfg := zap.NewProductionConfig()
	if lvl.Level() == zap.DebugLevel {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = lvl
	return zcfg.Build()
}
