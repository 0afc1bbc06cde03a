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

// checkconn verifies connectivity to the platform's PostgreSQL (in both
// access modes) and Redis instances and exits non-zero when any target is
// unreachable.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/pipeline-lab/ingest/config"
	"github.com/pipeline-lab/ingest/connectors"
	"github.com/pipeline-lab/ingest/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "[ERROR] loading configuration: %v\n", err)
		os.Exit(1)
	}

	logger, undo, err := logging.Setup(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[ERROR] setting up logging: %v\n", err)
		os.Exit(1)
	}
	defer undo()
	defer logger.Sync()

	ctx := context.Background()

	ok := checkPostgres(ctx, cfg, connectors.ModeDirect)
	ok = checkPostgres(ctx, cfg, connectors.ModePooled) && ok
	ok = checkRedis(ctx, cfg) && ok

	if !ok {
		fmt.Println("\n[ERROR] one or more connectivity checks failed")
		os.Exit(1)
	}
	fmt.Println("\n[OK] all connectivity checks passed")
}

func checkPostgres(ctx context.Context, cfg *config.Config, mode connectors.Mode) bool {
	fmt.Printf("[*] postgres (%s): %s@%s:%d/%s\n",
		mode, cfg.Postgres.User, cfg.Postgres.Host, cfg.Postgres.Port, cfg.Postgres.Database)

	c := connectors.NewPostgresConnector(connectors.PostgresConfig{
		Host:           cfg.Postgres.Host,
		Port:           cfg.Postgres.Port,
		Database:       cfg.Postgres.Database,
		User:           cfg.Postgres.User,
		Password:       cfg.Postgres.Password,
		SSLMode:        cfg.Postgres.SSLMode,
		Mode:           mode,
		ConnectTimeout: cfg.ConnectTimeout,
	})

	if !c.Connect(ctx) {
		fmt.Printf("[ERROR] postgres (%s): connect failed\n", mode)
		return false
	}
	defer c.Close()

	if !c.ValidateConnection(ctx) {
		fmt.Printf("[ERROR] postgres (%s): validation query failed\n", mode)
		return false
	}

	tables, err := c.ExtractTablesList(ctx, "public")
	if err != nil {
		fmt.Printf("[ERROR] postgres (%s): listing tables: %v\n", mode, err)
		return false
	}

	fmt.Printf("[OK] postgres (%s): reachable, %d tables in schema public\n", mode, len(tables))
	for _, t := range tables {
		fmt.Printf("    - %s\n", t)
	}
	return true
}

func checkRedis(ctx context.Context, cfg *config.Config) bool {
	fmt.Printf("[*] redis: %s (db %d)\n", cfg.Redis.Addr(), cfg.Redis.DB)

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	pong, err := rdb.Ping(ctx).Result()
	if err != nil {
		fmt.Printf("[ERROR] redis: %v\n", err)
		return false
	}
	fmt.Printf("[OK] redis: %s\n", pong)
	return true
}
