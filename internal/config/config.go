// Package config loads application configuration from file and environment.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"readTimeout"`
	WriteTimeout    time.Duration `mapstructure:"writeTimeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdownTimeout"`
}

// DatabaseConfig holds PostgreSQL settings.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxConns        int32         `mapstructure:"maxConns"`
	MinConns        int32         `mapstructure:"minConns"`
	MaxConnLifetime time.Duration `mapstructure:"maxConnLifetime"`
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// Config is the root application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Logger   LoggerConfig   `mapstructure:"logger"`
}

// Load reads config.yaml from the given path and overlays environment
// variables. A missing file is not an error: environment variables and
// defaults alone are enough to run.
func Load(path string) (Config, error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetDefault("server.addr", ":8080")
	viper.SetDefault("server.readTimeout", 15*time.Second)
	viper.SetDefault("server.writeTimeout", 30*time.Second)
	viper.SetDefault("server.shutdownTimeout", 10*time.Second)
	viper.SetDefault("database.maxConns", 25)
	viper.SetDefault("database.minConns", 5)
	viper.SetDefault("database.maxConnLifetime", time.Hour)
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.development", false)

	viper.AutomaticEnv()
	viper.BindEnv("server.addr", "SERVER_ADDR")
	viper.BindEnv("database.dsn", "DATABASE_URL")
	viper.BindEnv("logger.level", "LOG_LEVEL")
	viper.BindEnv("logger.development", "LOG_DEVELOPMENT")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.Database.DSN == "" {
		return Config{}, fmt.Errorf("database.dsn is required (set DATABASE_URL)")
	}

	return cfg, nil
}
