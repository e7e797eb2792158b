package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Aaryanpadhaikarega/otp-bot/internal/database"
)

// Validate rejects configurations the service cannot start with. Every
// problem is reported, not just the first.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if c.Bot.AdminID == 0 {
		add("bot.admin_id is required")
	}
	if c.Bot.ChunkSize <= 0 {
		add("bot.chunk_size must be positive")
	}
	if c.Retrieval.CodeLength < 4 || c.Retrieval.CodeLength > 10 {
		add("retrieval.code_length must be between 4 and 10, got %d", c.Retrieval.CodeLength)
	}
	if c.Retrieval.SearchDepth < 1 || c.Retrieval.SearchDepth > 50 {
		add("retrieval.search_depth must be between 1 and 50, got %d", c.Retrieval.SearchDepth)
	}
	if c.Retrieval.Workers <= 0 {
		add("retrieval.workers must be positive")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		add("server.port %d out of range", c.Server.Port)
	}

	for _, t := range []struct {
		name string
		d    time.Duration
	}{
		{"server.read_timeout", c.Server.ReadTimeout},
		{"server.write_timeout", c.Server.WriteTimeout},
		{"server.shutdown_timeout", c.Server.ShutdownTimeout},
		{"retrieval.timeout", c.Retrieval.Timeout},
		{"mailbox.dial_timeout", c.Mailbox.DialTimeout},
		{"mailbox.command_timeout", c.Mailbox.CommandTimeout},
	} {
		if t.d <= 0 {
			add("%s must be positive", t.name)
		}
	}

	switch c.Storage.Backend {
	case BackendSQL:
		if _, err := database.NormalizeDriver(c.Database.Driver); err != nil {
			add("database.driver: %w", err)
		}
		if strings.TrimSpace(c.Database.DSN) == "" {
			add("database.dsn is required for the sql backend")
		}
	case BackendRedis:
		if c.Redis.Addr == "" {
			add("redis.addr is required for the redis backend")
		}
	case BackendMemory:
	default:
		add("storage.backend %q is not one of sql, redis, memory", c.Storage.Backend)
	}

	switch strings.ToLower(c.Logging.Format) {
	case "json", "console":
	default:
		add("logging.format %q is not one of json, console", c.Logging.Format)
	}

	return errors.Join(errs...)
}
