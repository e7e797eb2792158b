package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	App         AppConfig         `mapstructure:"app"`
	Server      ServerConfig      `mapstructure:"server"`
	Bot         BotConfig         `mapstructure:"bot"`
	Retrieval   RetrievalConfig   `mapstructure:"retrieval"`
	Mailbox     MailboxConfig     `mapstructure:"mailbox"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Maintenance MaintenanceConfig `mapstructure:"maintenance"`
}

type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type BotConfig struct {
	AdminID      int64  `mapstructure:"admin_id"`
	WebhookToken string `mapstructure:"webhook_token"`
	ReplyURL     string `mapstructure:"reply_url"`
	ChunkSize    int    `mapstructure:"chunk_size"`
}

type RetrievalConfig struct {
	CodeLength   int           `mapstructure:"code_length"`
	SearchDepth  int           `mapstructure:"search_depth"`
	Timeout      time.Duration `mapstructure:"timeout"`
	Workers      int           `mapstructure:"workers"`
	ProductNames []string      `mapstructure:"product_names"`
}

type MailboxConfig struct {
	DialTimeout    time.Duration `mapstructure:"dial_timeout"`
	CommandTimeout time.Duration `mapstructure:"command_timeout"`
}

type StorageConfig struct {
	Backend   string `mapstructure:"backend"`
	SecretKey string `mapstructure:"secret_key"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type MaintenanceConfig struct {
	PurgeSchedule string `mapstructure:"purge_schedule"`
}

// Storage backends.
const (
	BackendSQL    = "sql"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

var defaults = map[string]any{
	"app.name": "otp-bot",
	"app.env":  "production",

	"server.host":             "0.0.0.0",
	"server.port":             8080,
	"server.read_timeout":     15 * time.Second,
	"server.write_timeout":    15 * time.Second,
	"server.shutdown_timeout": 20 * time.Second,

	"bot.admin_id":      0,
	"bot.webhook_token": "",
	"bot.reply_url":     "",
	"bot.chunk_size":    3800,

	"retrieval.code_length":   6,
	"retrieval.search_depth":  3,
	"retrieval.timeout":       60 * time.Second,
	"retrieval.workers":       8,
	"retrieval.product_names": []string{},

	"mailbox.dial_timeout":    10 * time.Second,
	"mailbox.command_timeout": 15 * time.Second,

	"storage.backend":    BackendSQL,
	"storage.secret_key": "",

	"database.driver":            "postgres",
	"database.dsn":               "",
	"database.max_open_conns":    10,
	"database.max_idle_conns":    5,
	"database.conn_max_lifetime": 30 * time.Minute,
	"database.auto_migrate":      true,

	"redis.addr":     "localhost:6379",
	"redis.password": "",
	"redis.db":       0,
	"redis.prefix":   "otpbot:",

	"logging.level":  "info",
	"logging.format": "json",

	"maintenance.purge_schedule": "",
}

// Variable names used by earlier deployments of the bot.
var legacyEnv = map[string]string{
	"bot.webhook_token": "BOT_TOKEN",
	"bot.admin_id":      "ADMIN_ID",
	"database.dsn":      "DATABASE_URL",
	"server.port":       "PORT",
}

// Loader reads configuration from defaults, an optional YAML file and the
// environment, and keeps the latest valid result.
type Loader struct {
	v    *viper.Viper
	path string

	mu       sync.RWMutex
	cfg      *Config
	fileUsed bool
}

// NewLoader prepares a loader. An empty path searches for config.yaml in the
// working directory and /etc/otpbot; a missing file is not an error then.
func NewLoader(path string) *Loader {
	v := viper.New()
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/otpbot")
	}

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	// Environment variable overrides
	v.SetEnvPrefix("OTPBOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, legacy := range legacyEnv {
		_ = v.BindEnv(key, "OTPBOT_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), legacy)
	}

	return &Loader{v: v, path: path}
}

// Load reads and validates the configuration.
func (l *Loader) Load() (*Config, error) {
	fileUsed := true
	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if l.path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		fileUsed = false
	}

	cfg, err := l.decode()
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.cfg = cfg
	l.fileUsed = fileUsed
	l.mu.Unlock()
	return cfg, nil
}

func (l *Loader) decode() (*Config, error) {
	cfg := &Config{}
	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Current returns the most recently loaded configuration (thread-safe)
func (l *Loader) Current() *Config {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cfg
}

// ConfigFile is the file that was read, or "" when only defaults and the
// environment were used.
func (l *Loader) ConfigFile() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if !l.fileUsed {
		return ""
	}
	return l.v.ConfigFileUsed()
}

// Watch reloads on file changes and calls onChange with each new valid
// configuration; onError receives reload failures and the previous
// configuration stays in effect. It returns false when no file is in use.
func (l *Loader) Watch(onChange func(*Config), onError func(error)) bool {
	if l.ConfigFile() == "" {
		return false
	}
	l.v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := l.decode()
		if err != nil {
			if onError != nil {
				onError(fmt.Errorf("reload %s: %w", e.Name, err))
			}
			return
		}

		// Atomic swap
		l.mu.Lock()
		l.cfg = cfg
		l.mu.Unlock()
		if onChange != nil {
			onChange(cfg)
		}
	})
	l.v.WatchConfig()
	return true
}

// GetServerAddr returns the server listen address
func (c *ServerConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsProduction returns true if running in production mode
func (c *AppConfig) IsProduction() bool {
	return c.Env == "production"
}

// IsDevelopment returns true if running in development mode
func (c *AppConfig) IsDevelopment() bool {
	return c.Env == "development"
}
