// Package config — конфигурация ndo-runner.
//
// Источники (в порядке приоритета):
//  1. Переменные окружения (NDO_HTTP_ADDR, DATABASE_URL, RABBITMQ_URL, ...)
//  2. YAML файл (--config / NDO_CONFIG)
//  3. Значения по умолчанию
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/shaiso/ndo/internal/domain"
)

// ErrInvalidConfig — конфигурация не прошла проверку.
var ErrInvalidConfig = errors.New("invalid config")

// Config — конфигурация ndo-runner.
type Config struct {
	// HTTPAddr — адрес HTTP API (":8080").
	HTTPAddr string `yaml:"http_addr"`

	// DatabaseURL — строка подключения к PostgreSQL с каталогом процедур.
	// Пусто — каталог не используется.
	DatabaseURL string `yaml:"database_url"`

	// RabbitMQURL — адрес RabbitMQ для run.requested / run.finished.
	// Пусто — очередь не используется.
	RabbitMQURL string `yaml:"rabbitmq_url"`

	// DefinitionsDir — каталог с .json/.hcl определениями процедур.
	DefinitionsDir string `yaml:"definitions_dir"`

	// HistorySize — сколько завершённых run держать в памяти.
	HistorySize int `yaml:"history_size"`

	// ShutdownTimeout — время на graceful shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// Triggers — cron триггеры.
	Triggers []domain.Trigger `yaml:"triggers"`
}

// Default возвращает конфигурацию по умолчанию.
func Default() Config {
	return Config{
		HTTPAddr:        ":8080",
		DefinitionsDir:  "procedures",
		HistorySize:     1000,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Load читает YAML файл (если path не пуст) и применяет переменные окружения.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
		}
	}

	cfg.HTTPAddr = getenv("NDO_HTTP_ADDR", cfg.HTTPAddr)
	cfg.DatabaseURL = getenv("DATABASE_URL", cfg.DatabaseURL)
	cfg.RabbitMQURL = getenv("RABBITMQ_URL", cfg.RabbitMQURL)
	cfg.DefinitionsDir = getenv("NDO_DEFINITIONS_DIR", cfg.DefinitionsDir)

	if v := os.Getenv("NDO_HISTORY_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("%w: NDO_HISTORY_SIZE: %v", ErrInvalidConfig, err)
		}
		cfg.HistorySize = n
	}
	if v := os.Getenv("NDO_SHUTDOWN_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("%w: NDO_SHUTDOWN_TIMEOUT: %v", ErrInvalidConfig, err)
		}
		cfg.ShutdownTimeout = d
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate проверяет конфигурацию.
func (c Config) Validate() error {
	if c.HTTPAddr == "" {
		return fmt.Errorf("%w: http_addr is empty", ErrInvalidConfig)
	}
	if c.HistorySize < 0 {
		return fmt.Errorf("%w: history_size must not be negative", ErrInvalidConfig)
	}
	for i, t := range c.Triggers {
		if t.CronExpr == "" || t.Procedure == "" {
			return fmt.Errorf("%w: trigger %d (%s): cron and procedure are required",
				ErrInvalidConfig, i, t.Name)
		}
	}
	return nil
}

func getenv(key, defaultValue string) string {
	v := os.Getenv(key)
	if v != "" {
		return v
	}
	return defaultValue
}
