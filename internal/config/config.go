// Package config loads runtime configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

func loadEnvString(key string, result *string) {
	s, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	*result = s
}

func loadEnvUint(key string, result *uint) {
	s, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return
	}
	*result = uint(n)
}

func loadEnvList(key string, result *[]string) {
	s, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	*result = out
}

/* Listen Configuration */

type listenConfig struct {
	Host string `json:"host"`
	Port uint   `json:"port"`
}

func (l listenConfig) Addr() string {
	return fmt.Sprintf("%s:%d", l.Host, l.Port)
}

func defaultListenConfig() listenConfig {
	return listenConfig{
		Host: "127.0.0.1",
		Port: 8080,
	}
}

func (l *listenConfig) loadFromEnv() {
	loadEnvString("LISTEN_HOST", &l.Host)
	loadEnvUint("LISTEN_PORT", &l.Port)
}

/* Database Configuration */

// Database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type databaseConfig struct {
	Driver string `json:"driver"`
	// Path is the SQLite file.
	Path string `json:"path"`
	// URL is the PostgreSQL connection string.
	URL string `json:"-"`
}

func defaultDatabaseConfig() databaseConfig {
	return databaseConfig{
		Driver: DriverSQLite,
		Path:   "openverse.db",
	}
}

func (d *databaseConfig) loadFromEnv() {
	loadEnvString("DATABASE_DRIVER", &d.Driver)
	loadEnvString("DATABASE_PATH", &d.Path)
	loadEnvString("DATABASE_URL", &d.URL)
	// A bare DATABASE_URL implies postgres.
	if _, ok := os.LookupEnv("DATABASE_DRIVER"); !ok && d.URL != "" {
		d.Driver = DriverPostgres
	}
}

/* Redis Configuration */

type redisConfig struct {
	Host     string        `json:"host"`
	Port     uint          `json:"port"`
	Password string        `json:"-"`
	DB       uint          `json:"db"`
	TTL      time.Duration `json:"ttl"`
}

// Enabled reports whether a Redis host was configured.
func (r redisConfig) Enabled() bool {
	return r.Host != ""
}

func (r redisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

func defaultRedisConfig() redisConfig {
	return redisConfig{
		Port: 6379,
		TTL:  time.Minute,
	}
}

func (r *redisConfig) loadFromEnv() {
	loadEnvString("REDIS_HOST", &r.Host)
	loadEnvUint("REDIS_PORT", &r.Port)
	loadEnvString("REDIS_PASSWORD", &r.Password)
	loadEnvUint("REDIS_DB", &r.DB)
	var seconds uint
	loadEnvUint("REDIS_TTL_SECONDS", &seconds)
	if seconds > 0 {
		r.TTL = time.Duration(seconds) * time.Second
	}
}

/* Feed Configuration */

type feedConfig struct {
	URLs            []string `json:"urls"`
	IntervalMinutes uint     `json:"interval_minutes"`
}

func defaultFeedConfig() feedConfig {
	return feedConfig{IntervalMinutes: 60}
}

func (f *feedConfig) loadFromEnv() {
	loadEnvList("ARAL_FEEDS", &f.URLs)
	loadEnvUint("ARAL_FEED_INTERVAL_MINUTES", &f.IntervalMinutes)
}

/* Log Configuration */

type logConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

func defaultLogConfig() logConfig {
	return logConfig{Level: "info", Format: "json"}
}

func (l *logConfig) loadFromEnv() {
	loadEnvString("LOG_LEVEL", &l.Level)
	loadEnvString("LOG_FORMAT", &l.Format)
}

type Config struct {
	Listen   listenConfig
	Database databaseConfig
	Redis    redisConfig
	Feeds    feedConfig
	Log      logConfig
}

func (c *Config) LoadFromEnv() {
	c.Listen.loadFromEnv()
	c.Database.loadFromEnv()
	c.Redis.loadFromEnv()
	c.Feeds.loadFromEnv()
	c.Log.loadFromEnv()
}

func DefaultConfig() Config {
	return Config{
		Listen:   defaultListenConfig(),
		Database: defaultDatabaseConfig(),
		Redis:    defaultRedisConfig(),
		Feeds:    defaultFeedConfig(),
		Log:      defaultLogConfig(),
	}
}
