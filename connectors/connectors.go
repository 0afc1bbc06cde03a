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

// Package connectors implements the ingest.Connector contract for CSV and
// JSON files and for PostgreSQL.
package connectors

import (
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/transform"
)

// state holds the lifecycle fields every connector variant shares: the
// connected flag and the extraction counters surfaced through Metadata.
type state struct {
	connected      bool
	lastExtraction time.Time
	extractions    int64
	failures       int64
}

// logExtraction records the outcome of one Extract call and emits the
// structured extraction log line. fields carry the connector-specific
// context (path, query) so failures are traceable back to their source.
func (s *state) logExtraction(logger *zap.Logger, records int, success bool, fields ...zap.Field) {
	s.lastExtraction = time.Now()
	if success {
		s.extractions++
		logger.Info("extraction successful",
			append([]zap.Field{
				zap.Int("records", records),
				zap.Time("timestamp", s.lastExtraction),
			}, fields...)...)
		return
	}
	s.failures++
	logger.Error("extraction failed", fields...)
}

// lookupEncoding resolves an IANA character set name. An empty name means
// UTF-8.
func lookupEncoding(name string) (encoding.Encoding, error) {
	if name == "" {
		name = "utf-8"
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return nil, fmt.Errorf("unknown encoding %q: %w", name, err)
	}
	if enc == nil {
		// The IANA index maps some registered names to nil.
		return nil, fmt.Errorf("unsupported encoding %q", name)
	}
	return enc, nil
}

// decodeReader wraps r so that reads yield UTF-8 regardless of the file's
// configured encoding.
func decodeReader(r io.Reader, enc encoding.Encoding) io.Reader {
	return transform.NewReader(r, enc.NewDecoder())
}
