package utils

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	DriverFile     = "file"
	DriverRedis    = "redis"
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

type StorageConfig struct {
	Driver     string `yaml:"driver"`
	DSN        string `yaml:"dsn"`
	RedisAddr  string `yaml:"redis_addr"`
	Key        string `yaml:"key"`
	StrictLoad bool   `yaml:"strict_load"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json | console
}

type TracingConfig struct {
	Endpoint    string  `yaml:"endpoint"`
	SampleRatio float64 `yaml:"sample_ratio"`
	Insecure    bool    `yaml:"insecure"`
}

type SyncConfig struct {
	TCPAddr string `yaml:"tcp_addr"` // empty disables the TCP feed
}

// Config is everything the service needs at startup. It is built once in
// main and handed to the components that need it.
type Config struct {
	Port        int           `yaml:"port"`
	StoragePath string        `yaml:"storage_path"`
	Storage     StorageConfig `yaml:"storage"`
	Log         LogConfig     `yaml:"log"`
	Tracing     TracingConfig `yaml:"tracing"`
	Sync        SyncConfig    `yaml:"sync"`
}

func DefaultConfig() Config {
	return Config{
		Port:        3000,
		StoragePath: "resenas.json",
		Storage: StorageConfig{
			Driver:    DriverFile,
			RedisAddr: "localhost:6379",
			Key:       "resenas",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			SampleRatio: 1.0,
			Insecure:    true,
		},
	}
}

// LoadConfig layers defaults, the optional YAML file at path and the
// environment, in that order.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := firstEnv("RESENAS_PORT", "PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse port %q: %w", v, err)
		}
		cfg.Port = port
	}
	if v := os.Getenv("RESENAS_STORAGE_PATH"); v != "" {
		cfg.StoragePath = v
	}
	if v := os.Getenv("RESENAS_STORAGE_DRIVER"); v != "" {
		cfg.Storage.Driver = strings.ToLower(v)
	}
	if v := firstEnv("RESENAS_STORAGE_DSN", "DATABASE_URL"); v != "" {
		cfg.Storage.DSN = v
	}
	if v := firstEnv("RESENAS_REDIS_ADDR", "REDIS_ADDR"); v != "" {
		cfg.Storage.RedisAddr = v
	}
	if v := os.Getenv("RESENAS_STORAGE_KEY"); v != "" {
		cfg.Storage.Key = v
	}
	if v := os.Getenv("RESENAS_STRICT_LOAD"); v != "" {
		strict, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parse RESENAS_STRICT_LOAD %q: %w", v, err)
		}
		cfg.Storage.StrictLoad = strict
	}
	if v := os.Getenv("RESENAS_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("RESENAS_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		cfg.Tracing.Endpoint = v
	}
	if v := os.Getenv("RESENAS_SYNC_ADDR"); v != "" {
		cfg.Sync.TCPAddr = v
	}
	return nil
}

func (c Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	switch c.Storage.Driver {
	case DriverFile:
		if strings.TrimSpace(c.StoragePath) == "" {
			return errors.New("storage_path required for file driver")
		}
	case DriverRedis:
		if c.Storage.RedisAddr == "" {
			return errors.New("storage.redis_addr required for redis driver")
		}
	case DriverSQLite, DriverPostgres:
		if c.Storage.DSN == "" {
			return fmt.Errorf("storage.dsn required for %s driver", c.Storage.Driver)
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		return fmt.Errorf("tracing.sample_ratio %v out of [0,1]", c.Tracing.SampleRatio)
	}
	return nil
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}
