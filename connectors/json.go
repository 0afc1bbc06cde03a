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

package connectors

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/pipeline-lab/ingest"
)

// JSONFormat selects one of the three supported file layouts.
type JSONFormat string

const (
	// FormatLines is line-delimited JSON: one object per line.
	FormatLines JSONFormat = "lines"
	// FormatArray is a single top-level array of objects.
	FormatArray JSONFormat = "array"
	// FormatObject is a single object whose values are records, keyed by an
	// identifier.
	FormatObject JSONFormat = "object"
)

// maxRecordBytes bounds a single line-delimited record. The default
// bufio.Scanner token limit of 64 KiB is far too small for real-world
// JSONL rows.
const maxRecordBytes = 16 << 20

// JSONError wraps structured error information for the JSON connector.
type JSONError struct {
	Op  string
	Err error
}

func (e *JSONError) Error() string {
	return fmt.Sprintf("json connector %s: %v", e.Op, e.Err)
}

func (e *JSONError) Unwrap() error {
	return e.Err
}

// JSONConfig configures a JSONConnector. Format defaults to FormatLines and
// Encoding to utf-8.
type JSONConfig struct {
	Path     string
	Encoding string
	Format   JSONFormat
}

// JSONConnector reads a JSON file in one of three layouts into a Table.
// Column order is the sorted union of the record keys; rows of the object
// layout are ordered by their identifier key.
type JSONConnector struct {
	state
	cfg    JSONConfig
	logger *zap.Logger
}

// NewJSONConnector builds a JSON connector.
func NewJSONConnector(cfg JSONConfig) *JSONConnector {
	if cfg.Encoding == "" {
		cfg.Encoding = "utf-8"
	}
	if cfg.Format == "" {
		cfg.Format = FormatLines
	}
	return &JSONConnector{
		cfg:    cfg,
		logger: zap.L().Named("json-connector"),
	}
}

// Connect verifies the configured path exists and is a regular file.
// Failures are logged and reported as false.
func (c *JSONConnector) Connect(ctx context.Context) bool {
	info, err := os.Stat(c.cfg.Path)
	if err != nil {
		c.logger.Error("json file not found", zap.String("path", c.cfg.Path), zap.Error(err))
		c.connected = false
		return false
	}
	if !info.Mode().IsRegular() {
		c.logger.Error("path is not a regular file", zap.String("path", c.cfg.Path))
		c.connected = false
		return false
	}
	if _, err := lookupEncoding(c.cfg.Encoding); err != nil {
		c.logger.Error("unusable encoding", zap.String("encoding", c.cfg.Encoding), zap.Error(err))
		c.connected = false
		return false
	}

	c.connected = true
	c.logger.Info("json file accessible",
		zap.String("path", c.cfg.Path),
		zap.Float64("size_mb", float64(info.Size())/(1024*1024)))
	return true
}

// Extract parses the whole file according to the configured layout. An
// unrecognized layout is a configuration error, distinct from a read
// failure. opts.Query and opts.Table are ignored.
func (c *JSONConnector) Extract(ctx context.Context, opts ingest.ExtractOptions) (*ingest.Table, error) {
	if !c.connected {
		return nil, &JSONError{Op: "extract", Err: ingest.ErrNotConnected}
	}

	select {
	case <-ctx.Done():
		return nil, &JSONError{Op: "extract", Err: ctx.Err()}
	default:
	}

	var (
		records []map[string]interface{}
		err     error
	)
	switch c.cfg.Format {
	case FormatLines:
		records, err = c.readLines()
	case FormatArray:
		records, err = c.readArray()
	case FormatObject:
		records, err = c.readObject()
	default:
		return nil, &JSONError{Op: "extract",
			Err: fmt.Errorf("%w: unsupported json format %q, use %q, %q or %q",
				ingest.ErrInvalidConfig, c.cfg.Format, FormatLines, FormatArray, FormatObject)}
	}
	if err != nil {
		c.logExtraction(c.logger, 0, false,
			zap.String("path", c.cfg.Path), zap.String("format", string(c.cfg.Format)))
		return nil, &JSONError{Op: "read", Err: err}
	}

	if opts.MaxRows > 0 && len(records) > opts.MaxRows {
		records = records[:opts.MaxRows]
	}

	tbl := recordsToTable(records)
	if len(opts.Columns) > 0 {
		tbl = tbl.Select(opts.Columns)
	}

	c.logExtraction(c.logger, tbl.NumRows(), true,
		zap.String("path", c.cfg.Path), zap.String("format", string(c.cfg.Format)))
	c.logger.Info("read json file",
		zap.String("path", c.cfg.Path),
		zap.String("format", string(c.cfg.Format)),
		zap.Int("records", tbl.NumRows()),
		zap.Int("columns", tbl.NumCols()))
	return tbl, nil
}

// ExtractChunked returns a lazy iterator over sub-tables of at most size
// rows. Only the lines layout supports chunked reads; the other layouts
// require the whole document in memory anyway.
func (c *JSONConnector) ExtractChunked(ctx context.Context, size int) (*JSONChunks, error) {
	if !c.connected {
		return nil, &JSONError{Op: "extract_chunked", Err: ingest.ErrNotConnected}
	}
	if size <= 0 {
		return nil, &JSONError{Op: "extract_chunked",
			Err: fmt.Errorf("%w: chunk size must be positive, got %d", ingest.ErrInvalidConfig, size)}
	}
	if c.cfg.Format != FormatLines {
		return nil, &JSONError{Op: "extract_chunked",
			Err: fmt.Errorf("%w: chunked extraction requires the %q format", ingest.ErrInvalidConfig, FormatLines)}
	}

	f, dec, err := c.open()
	if err != nil {
		return nil, &JSONError{Op: "open", Err: err}
	}
	scanner := bufio.NewScanner(dec)
	scanner.Buffer(make([]byte, 0, 64*1024), maxRecordBytes)
	return &JSONChunks{scanner: scanner, file: f, size: size}, nil
}

// FileInfo returns size, modification time and the configured parsing
// options. It fails if the file no longer exists.
func (c *JSONConnector) FileInfo() (FileInfo, error) {
	info, err := os.Stat(c.cfg.Path)
	if err != nil {
		return FileInfo{}, &JSONError{Op: "file_info", Err: err}
	}
	return FileInfo{
		Path:      c.cfg.Path,
		SizeBytes: info.Size(),
		SizeMB:    float64(info.Size()) / (1024 * 1024),
		Modified:  info.ModTime(),
		Encoding:  c.cfg.Encoding,
		Format:    string(c.cfg.Format),
	}, nil
}

// ValidateConnection reports whether the file still exists and is regular.
func (c *JSONConnector) ValidateConnection(ctx context.Context) bool {
	info, err := os.Stat(c.cfg.Path)
	return err == nil && info.Mode().IsRegular()
}

// Close clears the connected flag.
func (c *JSONConnector) Close() error {
	c.connected = false
	c.logger.Debug("json connector closed")
	return nil
}

// Metadata implements ingest.Connector.
func (c *JSONConnector) Metadata() ingest.Metadata {
	return ingest.Metadata{
		ConnectorType:  "json",
		Connected:      c.connected,
		LastExtraction: c.lastExtraction,
		Extractions:    c.extractions,
		Failures:       c.failures,
		Config: ingest.RedactConfig(map[string]string{
			"path":     c.cfg.Path,
			"encoding": c.cfg.Encoding,
			"format":   string(c.cfg.Format),
		}),
	}
}

func (c *JSONConnector) open() (*os.File, io.Reader, error) {
	enc, err := lookupEncoding(c.cfg.Encoding)
	if err != nil {
		return nil, nil, err
	}
	f, err := os.Open(c.cfg.Path)
	if err != nil {
		return nil, nil, err
	}
	return f, decodeReader(f, enc), nil
}

func (c *JSONConnector) readLines() ([]map[string]interface{}, error) {
	f, dec, err := c.open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var records []map[string]interface{}
	scanner := bufio.NewScanner(dec)
	scanner.Buffer(make([]byte, 0, 64*1024), maxRecordBytes)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var record map[string]interface{}
		if err := json.Unmarshal([]byte(text), &record); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func (c *JSONConnector) readArray() ([]map[string]interface{}, error) {
	f, dec, err := c.open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var records []map[string]interface{}
	if err := json.NewDecoder(dec).Decode(&records); err != nil {
		return nil, err
	}
	return records, nil
}

func (c *JSONConnector) readObject() ([]map[string]interface{}, error) {
	f, dec, err := c.open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var doc map[string]map[string]interface{}
	if err := json.NewDecoder(dec).Decode(&doc); err != nil {
		return nil, err
	}

	// Go maps carry no order, so rows are sorted by their identifier key to
	// keep repeated extractions stable.
	keys := make([]string, 0, len(doc))
	for k := range doc {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	records := make([]map[string]interface{}, 0, len(doc))
	for _, k := range keys {
		records = append(records, doc[k])
	}
	return records, nil
}

// recordsToTable builds a Table whose columns are the sorted union of all
// record keys. Keys absent from a record yield nil cells.
func recordsToTable(records []map[string]interface{}) *ingest.Table {
	seen := make(map[string]bool)
	var columns []string
	for _, r := range records {
		for k := range r {
			if !seen[k] {
				seen[k] = true
				columns = append(columns, k)
			}
		}
	}
	sort.Strings(columns)

	tbl := ingest.NewTable()
	for _, col := range columns {
		values := make([]interface{}, len(records))
		for i, r := range records {
			values[i] = normalizeJSONValue(r[col])
		}
		tbl.AddColumn(col, values)
	}
	return tbl
}

// normalizeJSONValue narrows whole-valued JSON numbers back to int so that
// numeric column detection treats them the way the CSV reader does.
func normalizeJSONValue(v interface{}) interface{} {
	f, ok := v.(float64)
	if !ok {
		return v
	}
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return int(f)
	}
	return f
}

// JSONChunks iterates over a line-delimited JSON file one fixed-size
// sub-table at a time.
type JSONChunks struct {
	scanner *bufio.Scanner
	file    *os.File
	size    int
	done    bool
}

// Next returns the next chunk, or io.EOF after the last one.
func (c *JSONChunks) Next() (*ingest.Table, error) {
	if c.done {
		return nil, io.EOF
	}

	records := make([]map[string]interface{}, 0, c.size)
	for len(records) < c.size {
		if !c.scanner.Scan() {
			c.done = true
			c.file.Close()
			if err := c.scanner.Err(); err != nil {
				return nil, &JSONError{Op: "read_chunk", Err: err}
			}
			break
		}
		text := strings.TrimSpace(c.scanner.Text())
		if text == "" {
			continue
		}
		var record map[string]interface{}
		if err := json.Unmarshal([]byte(text), &record); err != nil {
			c.done = true
			c.file.Close()
			return nil, &JSONError{Op: "read_chunk", Err: err}
		}
		records = append(records, record)
	}

	if len(records) == 0 {
		return nil, io.EOF
	}
	return recordsToTable(records), nil
}

// Close releases the underlying file. Safe to call at any point.
func (c *JSONChunks) Close() error {
	if c.done {
		return nil
	}
	c.done = true
	return c.file.Close()
}
