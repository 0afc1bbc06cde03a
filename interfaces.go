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

package ingest

import (
	"context"
	"strings"
	"time"
)

// ExtractOptions carries the variant-specific arguments to Extract.
//
// Database connectors require exactly one of Query or Table. File connectors
// ignore both and honor Columns (an allow-list applied after parsing) and
// MaxRows (a row cap, 0 meaning unlimited).
type ExtractOptions struct {
	Query   string
	Table   string
	Columns []string
	MaxRows int
}

// Connector is the uniform extraction contract implemented by every data
// source variant (CSV, JSON, PostgreSQL).
//
// Lifecycle: unconnected -> Connect -> connected -> Extract (zero or more
// times) -> Close -> unconnected. Extract before a successful Connect is a
// usage error. A connector instance owns a single connection handle and is
// not safe for concurrent use; construct one instance per caller.
type Connector interface {
	// Connect acquires the underlying resource. Connectivity failures are
	// logged and reported as false, never as a panic or error.
	Connect(ctx context.Context) bool

	// Extract materializes data from the source as a Table. It fails with a
	// usage error when the connector is not connected, and with an ordinary
	// error when the connected source cannot be read.
	Extract(ctx context.Context, opts ExtractOptions) (*Table, error)

	// ValidateConnection is a cheap liveness check. It never mutates state
	// and reports failures as false rather than errors.
	ValidateConnection(ctx context.Context) bool

	// Close releases the underlying resource. Idempotent.
	Close() error

	// Metadata describes the connector for observability. Credential-shaped
	// configuration values are redacted.
	Metadata() Metadata
}

// Metadata is the descriptive snapshot returned by Connector.Metadata.
type Metadata struct {
	ConnectorType  string            `json:"connector_type"`
	Connected      bool              `json:"connected"`
	LastExtraction time.Time         `json:"last_extraction"`
	Extractions    int64             `json:"extractions"`
	Failures       int64             `json:"failures"`
	Config         map[string]string `json:"config"`
}

// WithConnector runs fn inside a connect/close scope: Connect on entry,
// Close on every exit path. A failed Connect is not an error here; the
// first Extract inside fn will report it as ErrNotConnected.
func WithConnector(ctx context.Context, c Connector, fn func(Connector) error) error {
	c.Connect(ctx)
	defer c.Close()
	return fn(c)
}

// RedactConfig copies a configuration map, replacing the value of any key
// that looks credential-shaped. Logged or exported configuration must always
// pass through this.
func RedactConfig(config map[string]string) map[string]string {
	out := make(map[string]string, len(config))
	for k, v := range config {
		if isSensitiveKey(k) {
			out[k] = "[redacted]"
		} else {
			out[k] = v
		}
	}
	return out
}

func isSensitiveKey(key string) bool {
	k := strings.ToLower(key)
	for _, marker := range []string{"password", "secret", "credential", "token"} {
		if strings.Contains(k, marker) {
			return true
		}
	}
	return false
}
