//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Copyright (C) 2025 The Ingest Authors
//
// This file is part of Ingest.
//
// Ingest is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Ingest is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Ingest. If not, see https://www.gnu.org/licenses/.

// Package config loads the process configuration from environment variables
// (with .env support) into an explicit struct. There is no ambient global
// configuration: Load is called once at process start and the result is
// passed to whatever needs it.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config is the full process configuration.
type Config struct {
	Postgres PostgresConfig
	Redis    RedisConfig
	Files    FilesConfig

	// Generator settings.
	Seed           int64
	DefaultRecords int

	// Connector settings.
	ChunkSize      int
	ConnectTimeout time.Duration
	Encoding       string

	// Logging.
	LogLevel  string
	LogFormat string
}

// PostgresConfig holds the PostgreSQL connection target. The platform runs
// Postgres on a non-standard port, hence the 5440 default.
type PostgresConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string
	Mode     string
}

// RedisConfig holds the Redis connection target used by the connectivity
// probe. Port 5540 is the platform's non-standard mapping.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns the host:port address for the Redis client.
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// FilesConfig holds the data directory layout used by the seeding tooling.
type FilesConfig struct {
	DataDir    string
	SamplesDir string
	OutputDir  string
}

// Load reads the environment into a Config. A .env file in the working
// directory is honored when present but never required; real environment
// variables win over .env entries.
func Load() (*Config, error) {
	godotenv.Load()

	dataDir := getEnv("DATA_DIR", filepath.Join(".", "data"))
	cfg := &Config{
		Postgres: PostgresConfig{
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     getEnvAsInt("POSTGRES_PORT", 5440),
			Database: getEnv("POSTGRES_DB", "pipeline_db"),
			User:     getEnv("POSTGRES_USER", "admin"),
			Password: getEnv("POSTGRES_PASSWORD", ""),
			SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
			Mode:     getEnv("POSTGRES_MODE", "pooled"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 5540),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Files: FilesConfig{
			DataDir:    dataDir,
			SamplesDir: getEnv("SAMPLES_DIR", filepath.Join(dataDir, "samples")),
			OutputDir:  getEnv("OUTPUT_DIR", filepath.Join(dataDir, "output")),
		},

		Seed:           int64(getEnvAsInt("RANDOM_SEED", 42)),
		DefaultRecords: getEnvAsInt("DEFAULT_SYNTHETIC_RECORDS", 1000),

		ChunkSize:      getEnvAsInt("DEFAULT_CHUNK_SIZE", 10000),
		ConnectTimeout: time.Duration(getEnvAsInt("DEFAULT_TIMEOUT_SECONDS", 30)) * time.Second,
		Encoding:       getEnv("DEFAULT_ENCODING", "utf-8"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the cross-field constraints Load cannot express.
func (c *Config) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("config: chunk size must be positive, got %d", c.ChunkSize)
	}
	if c.ConnectTimeout <= 0 {
		return fmt.Errorf("config: connect timeout must be positive, got %s", c.ConnectTimeout)
	}
	if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
		return fmt.Errorf("config: invalid postgres port %d", c.Postgres.Port)
	}
	if c.Redis.Port <= 0 || c.Redis.Port > 65535 {
		return fmt.Errorf("config: invalid redis port %d", c.Redis.Port)
	}
	return nil
}

// EnsureDirs creates the data directory layout when missing.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.Files.DataDir, c.Files.SamplesDir, c.Files.OutputDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("config: creating %s: %w", dir, err)
		}
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
