// Package config содержит логику чтения конфигурации клиента сервиса грузоперевозок.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

// Режимы исполнения клиента.
const (
	ModeWeb     = "web"
	ModeDesktop = "desktop"
)

// Бэкенды долговременного хранилища сессии.
const (
	StorageMemory   = "memory"
	StorageFile     = "file"
	StorageRedis    = "redis"
	StoragePostgres = "postgres"
)

const (
	defaultOrigin         = "http://localhost:8080"
	defaultDesktopHost    = "https://localhost:8083"
	defaultServicesPath   = "/api/services"
	defaultAssetHost      = "http://localhost:9003"
	defaultPollInterval   = 5 * time.Second
	defaultMinRefresh     = time.Second
	defaultRequestTimeout = 10 * time.Second
)

// Config содержит параметры конфигурации клиента.
type Config struct {
	// Origin задаёт адрес, через который веб-клиент видит API (обратный прокси).
	Origin string `env:"SERVER_ORIGIN"`
	// Mode: web или desktop. В desktop-режиме запросы идут напрямую на RemoteHost.
	Mode         string `env:"CLIENT_MODE"`
	RemoteHost   string `env:"REMOTE_HOST"`
	ServicesPath string `env:"SERVICES_PATH"`
	AssetHost    string `env:"ASSET_HOST"`

	Storage     string `env:"STORAGE"`
	StoragePath string `env:"STORAGE_PATH"`
	RedisAddr   string `env:"REDIS_ADDR"`
	DatabaseURI string `env:"DATABASE_URI"`
	// Namespace разделяет сессии нескольких клиентов в общем redis/postgres.
	Namespace string `env:"STORAGE_NAMESPACE"`

	PollInterval       time.Duration `env:"CART_POLL_INTERVAL"`
	MinRefreshInterval time.Duration `env:"CART_MIN_REFRESH"`
	RequestTimeout     time.Duration `env:"REQUEST_TIMEOUT"`

	Debug bool `env:"DEBUG"`
}

// RegisterFlags регистрирует флаги командной строки и их значения по умолчанию.
func (c *Config) RegisterFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&c.Origin, "origin", "o", defaultOrigin, "API origin (reverse proxy address)")
	fs.StringVarP(&c.Mode, "mode", "m", ModeWeb, "execution mode: web or desktop")
	fs.StringVarP(&c.RemoteHost, "remote", "r", "", "remote API host for desktop mode")
	fs.StringVar(&c.ServicesPath, "services-path", defaultServicesPath, "catalog listing path")
	fs.StringVar(&c.AssetHost, "asset-host", defaultAssetHost, "internal asset host rewritten to relative paths")
	fs.StringVarP(&c.Storage, "storage", "s", StorageFile, "session storage: memory, file, redis or postgres")
	fs.StringVar(&c.StoragePath, "storage-path", "", "session file for file storage")
	fs.StringVar(&c.RedisAddr, "redis", "localhost:6379", "redis address for redis storage")
	fs.StringVarP(&c.DatabaseURI, "database", "d", "", "database URI for postgres storage")
	fs.StringVar(&c.Namespace, "namespace", "", "session namespace in shared redis or postgres storage")
	fs.DurationVar(&c.PollInterval, "poll", defaultPollInterval, "cart badge polling interval")
	fs.DurationVar(&c.MinRefreshInterval, "min-refresh", defaultMinRefresh, "minimum interval between cart badge refreshes")
	fs.DurationVar(&c.RequestTimeout, "timeout", defaultRequestTimeout, "HTTP request timeout")
	fs.BoolVar(&c.Debug, "debug", false, "enable debug logging")
}

// ApplyEnv перекрывает значения флагов переменными окружения и дополняет пустые поля.
func (c *Config) ApplyEnv() error {
	var fromEnv Config
	if err := env.Parse(&fromEnv); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	overrideString(&c.Origin, fromEnv.Origin)
	overrideString(&c.Mode, fromEnv.Mode)
	overrideString(&c.RemoteHost, fromEnv.RemoteHost)
	overrideString(&c.ServicesPath, fromEnv.ServicesPath)
	overrideString(&c.AssetHost, fromEnv.AssetHost)
	overrideString(&c.Storage, fromEnv.Storage)
	overrideString(&c.StoragePath, fromEnv.StoragePath)
	overrideString(&c.RedisAddr, fromEnv.RedisAddr)
	overrideString(&c.DatabaseURI, fromEnv.DatabaseURI)
	overrideString(&c.Namespace, fromEnv.Namespace)
	overrideDuration(&c.PollInterval, fromEnv.PollInterval)
	overrideDuration(&c.MinRefreshInterval, fromEnv.MinRefreshInterval)
	overrideDuration(&c.RequestTimeout, fromEnv.RequestTimeout)
	if fromEnv.Debug {
		c.Debug = true
	}

	return c.finalize()
}

func (c *Config) finalize() error {
	if c.Origin == "" {
		c.Origin = defaultOrigin
	}
	if c.Mode == "" {
		c.Mode = ModeWeb
	}
	if c.Mode != ModeWeb && c.Mode != ModeDesktop {
		return fmt.Errorf("unknown mode %q", c.Mode)
	}
	if c.Mode == ModeDesktop && c.RemoteHost == "" {
		c.RemoteHost = defaultDesktopHost
	}
	if c.ServicesPath == "" {
		c.ServicesPath = defaultServicesPath
	}
	if c.PollInterval <= 0 {
		c.PollInterval = defaultPollInterval
	}
	if c.MinRefreshInterval <= 0 {
		c.MinRefreshInterval = defaultMinRefresh
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = defaultRequestTimeout
	}

	switch c.Storage {
	case "":
		c.Storage = StorageFile
	case StorageMemory, StorageFile, StorageRedis, StoragePostgres:
	default:
		return fmt.Errorf("unknown storage %q", c.Storage)
	}
	if c.Storage == StorageFile && c.StoragePath == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			dir = os.TempDir()
		}
		c.StoragePath = filepath.Join(dir, "freightctl", "session.json")
	}
	if c.Storage == StoragePostgres && c.DatabaseURI == "" {
		return errors.New("postgres storage requires database URI")
	}

	return nil
}

// Parse считывает конфигурацию из аргументов командной строки и переменных окружения.
func Parse(args []string) (*Config, error) {
	cfg := &Config{}
	fs := pflag.NewFlagSet("freightctl", pflag.ContinueOnError)
	cfg.RegisterFlags(fs)

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDotEnv загружает переменные из .env-файла, если он существует.
// Уже заданные переменные окружения не перезаписываются.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func overrideString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func overrideDuration(dst *time.Duration, v time.Duration) {
	if v != 0 {
		*dst = v
	}
}
