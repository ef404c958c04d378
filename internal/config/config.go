package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/vladimiradmaev/diabetbot/internal/logger"
)

type Config struct {
	TelegramToken  string        `koanf:"telegram_bot_token"`
	GeminiAPIKey   string        `koanf:"gemini_api_key"`
	OpenAIAPIKey   string        `koanf:"openai_api_key"`
	Timezone       string        `koanf:"timezone"`
	RequestTimeout time.Duration `koanf:"request_timeout"`
	DB             DBConfig      `koanf:",squash"`
	Session        SessionConfig `koanf:",squash"`
	Redis          RedisConfig   `koanf:",squash"`
	Logger         LoggerConfig  `koanf:",squash"`
}

type DBConfig struct {
	Driver   string `koanf:"db_driver"`
	Host     string `koanf:"db_host"`
	Port     string `koanf:"db_port"`
	User     string `koanf:"db_user"`
	Password string `koanf:"db_password"`
	DBName   string `koanf:"db_name"`
	SSLMode  string `koanf:"db_sslmode"`
	Path     string `koanf:"db_path"`
}

type SessionConfig struct {
	Store string        `koanf:"session_store"`
	TTL   time.Duration `koanf:"session_ttl"`
}

type RedisConfig struct {
	Host     string `koanf:"redis_host"`
	Port     string `koanf:"redis_port"`
	Password string `koanf:"redis_password"`
	DB       int    `koanf:"redis_db"`
}

type LoggerConfig struct {
	Level      string `koanf:"log_level"`
	OutputPath string `koanf:"log_output"`
	Format     string `koanf:"log_format"`
}

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// knownKeys limits which environment variables reach koanf.
var knownKeys = map[string]bool{
	"telegram_bot_token": true, "gemini_api_key": true, "openai_api_key": true,
	"timezone": true, "request_timeout": true,
	"db_driver": true, "db_host": true, "db_port": true, "db_user": true,
	"db_password": true, "db_name": true, "db_sslmode": true, "db_path": true,
	"session_store": true, "session_ttl": true,
	"redis_host": true, "redis_port": true, "redis_password": true, "redis_db": true,
	"log_level": true, "log_output": true, "log_format": true,
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Timezone:       "Europe/Moscow",
		RequestTimeout: 30 * time.Second,
		DB: DBConfig{
			Driver:   DriverPostgres,
			Host:     "localhost",
			Port:     "5432",
			User:     "postgres",
			Password: "postgres",
			DBName:   "diabetbot",
			SSLMode:  "disable",
			Path:     "data/diabetbot.db",
		},
		Session: SessionConfig{
			Store: StoreMemory,
			TTL:   24 * time.Hour,
		},
		Redis: RedisConfig{
			Host: "localhost",
			Port: "6379",
		},
		Logger: LoggerConfig{
			Level:      "info",
			OutputPath: "logs/app.log",
			Format:     "json",
		},
	}
}

// Load builds the configuration from defaults, the optional YAML file named
// by CONFIG_FILE and then environment variables, in increasing priority.
func Load() (*Config, error) {
	return LoadFile(os.Getenv("CONFIG_FILE"))
}

// LoadFile is Load with an explicit YAML path; an empty path skips the file.
func LoadFile(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := Default()

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", func(s string) string {
		key := strings.ToLower(s)
		if !knownKeys[key] {
			return ""
		}
		return key
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks enum values and required settings.
func (c *Config) Validate() error {
	var problems []string

	if c.TelegramToken == "" {
		problems = append(problems, "TELEGRAM_BOT_TOKEN is required")
	}
	switch c.DB.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		problems = append(problems, fmt.Sprintf("DB_DRIVER %q: must be postgres or sqlite", c.DB.Driver))
	}
	switch c.Session.Store {
	case StoreMemory, StoreRedis:
	default:
		problems = append(problems, fmt.Sprintf("SESSION_STORE %q: must be memory or redis", c.Session.Store))
	}
	if c.Session.TTL <= 0 {
		problems = append(problems, "SESSION_TTL must be positive")
	}
	if c.RequestTimeout <= 0 {
		problems = append(problems, "REQUEST_TIMEOUT must be positive")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		problems = append(problems, fmt.Sprintf("TIMEZONE %q: %v", c.Timezone, err))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
}

// Location returns the time zone used to compute calendar days.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// LoggerSettings converts the textual settings into a logger.Config.
func (c *Config) LoggerSettings() logger.Config {
	return logger.Config{
		Level:      logger.ParseLevel(c.Logger.Level),
		OutputPath: c.Logger.OutputPath,
		Format:     c.Logger.Format,
	}
}

// RedisAddr returns host:port of the session redis.
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Redis.Host, c.Redis.Port)
}
