package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Upstream   UpstreamConfig   `mapstructure:"upstream"`
	Fetch      FetchConfig      `mapstructure:"fetch"`
	Cache      CacheConfig      `mapstructure:"cache"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Snapshots  SnapshotConfig   `mapstructure:"snapshots"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	I18n       I18nConfig       `mapstructure:"i18n"`
	Notify     NotifyConfig     `mapstructure:"notify"`
}

type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// UpstreamConfig points at the direct-cast conversation endpoint. When set,
// API clients may omit their own URL/token and the server keeps the upstream
// hidden behind its own hostname.
type UpstreamConfig struct {
	URL     string        `mapstructure:"url"`
	Token   string        `mapstructure:"token"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type FetchConfig struct {
	Mode        string `mapstructure:"mode"`
	MaxPages    int    `mapstructure:"max_pages"`
	TargetHours int    `mapstructure:"target_hours"`
	TodayOnly   bool   `mapstructure:"today_only"`
}

type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	TTL     time.Duration `mapstructure:"ttl"`
	MaxSize int           `mapstructure:"max_size"`
}

type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute"`
	Burst             int  `mapstructure:"burst"`
}

type SnapshotConfig struct {
	Backend    string      `mapstructure:"backend"`
	MaxHistory int         `mapstructure:"max_history"`
	Redis      RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type LoggingConfig struct {
	Level  string     `mapstructure:"level"`
	Format string     `mapstructure:"format"`
	Output string     `mapstructure:"output"`
	File   FileConfig `mapstructure:"file"`
}

type FileConfig struct {
	Path       string `mapstructure:"path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
}

type MonitoringConfig struct {
	Metrics MetricsConfig `mapstructure:"metrics"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port"`
	Path    string `mapstructure:"path"`
}

type I18nConfig struct {
	DefaultLanguage string   `mapstructure:"default_language"`
	Languages       []string `mapstructure:"languages"`
	Directory       string   `mapstructure:"directory"`
}

type NotifyConfig struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
}

type TelegramConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Token   string `mapstructure:"token"`
	ChatID  int64  `mapstructure:"chat_id"`
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	viper.BindEnv("upstream.url", "WEN_API_URL")
	viper.BindEnv("upstream.token", "WEN_API_TOKEN")
	viper.BindEnv("snapshots.redis.addr", "REDIS_HOST", "REDIS_PORT")
	viper.BindEnv("snapshots.redis.password", "REDIS_PASSWORD")
	viper.BindEnv("snapshots.redis.db", "REDIS_DB")
	viper.BindEnv("notify.telegram.token", "TELEGRAM_BOT_TOKEN")
	viper.BindEnv("notify.telegram.chat_id", "TELEGRAM_CHAT_ID")

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Handle Redis address special case
	if redisHost := viper.GetString("REDIS_HOST"); redisHost != "" {
		redisPort := viper.GetString("REDIS_PORT")
		if redisPort == "" {
			redisPort = "6379"
		}
		config.Snapshots.Redis.Addr = fmt.Sprintf("%s:%s", redisHost, redisPort)
	}

	applyDefaults(&config)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 60 * time.Second
	}
	if cfg.Upstream.Timeout == 0 {
		cfg.Upstream.Timeout = 30 * time.Second
	}
	if cfg.Fetch.Mode == "" {
		cfg.Fetch.Mode = "recent"
	}
	if cfg.Fetch.MaxPages == 0 {
		cfg.Fetch.MaxPages = 5
	}
	if cfg.Fetch.TargetHours == 0 {
		cfg.Fetch.TargetHours = 24
	}
	if cfg.Snapshots.Backend == "" {
		cfg.Snapshots.Backend = "memory"
	}
	if cfg.Snapshots.MaxHistory == 0 {
		cfg.Snapshots.MaxHistory = 100
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.I18n.DefaultLanguage == "" {
		cfg.I18n.DefaultLanguage = "en"
	}
}

func validateConfig(cfg *Config) error {
	switch cfg.Fetch.Mode {
	case "single", "recent", "all":
	default:
		return fmt.Errorf("unsupported fetch mode: %s", cfg.Fetch.Mode)
	}
	switch cfg.Snapshots.Backend {
	case "memory":
	case "redis":
		if cfg.Snapshots.Redis.Addr == "" {
			return fmt.Errorf("redis snapshot backend requires an address")
		}
	default:
		return fmt.Errorf("unsupported snapshot backend: %s", cfg.Snapshots.Backend)
	}
	if cfg.RateLimit.Enabled && cfg.RateLimit.RequestsPerMinute <= 0 {
		return fmt.Errorf("rate limit requires requests_per_minute > 0")
	}
	if cfg.Notify.Telegram.Enabled && cfg.Notify.Telegram.Token == "" {
		return fmt.Errorf("telegram notifications require a bot token")
	}
	return nil
}
