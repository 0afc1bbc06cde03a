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
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pipeline-lab/ingest"
)

// CSVError wraps structured error information for the CSV connector.
type CSVError struct {
	Op  string
	Err error
}

func (e *CSVError) Error() string {
	return fmt.Sprintf("csv connector %s: %v", e.Op, e.Err)
}

func (e *CSVError) Unwrap() error {
	return e.Err
}

// CSVConfig configures a CSVConnector. Encoding is an IANA character set
// name and defaults to utf-8; Delimiter defaults to a comma.
type CSVConfig struct {
	Path      string
	Encoding  string
	Delimiter rune
}

// CSVConnector reads a delimited text file into a Table. It implements
// ingest.Connector; Connect only verifies the file is present and decodable,
// the file itself is opened per extraction.
type CSVConnector struct {
	state
	cfg    CSVConfig
	logger *zap.Logger
}

// NewCSVConnector builds a CSV connector. The configuration is not touched
// after construction.
func NewCSVConnector(cfg CSVConfig) *CSVConnector {
	if cfg.Encoding == "" {
		cfg.Encoding = "utf-8"
	}
	if cfg.Delimiter == 0 {
		cfg.Delimiter = ','
	}
	return &CSVConnector{
		cfg:    cfg,
		logger: zap.L().Named("csv-connector"),
	}
}

// Connect verifies the configured path exists, is a regular file, and that
// at least one byte decodes with the configured encoding. All failures are
// logged and reported as false.
func (c *CSVConnector) Connect(ctx context.Context) bool {
	info, err := os.Stat(c.cfg.Path)
	if err != nil {
		c.logger.Error("csv file not found", zap.String("path", c.cfg.Path), zap.Error(err))
		c.connected = false
		return false
	}
	if !info.Mode().IsRegular() {
		c.logger.Error("path is not a regular file", zap.String("path", c.cfg.Path))
		c.connected = false
		return false
	}

	f, dec, err := c.open()
	if err != nil {
		c.logger.Error("csv file not readable", zap.String("path", c.cfg.Path), zap.Error(err))
		c.connected = false
		return false
	}
	defer f.Close()

	buf := make([]byte, 1)
	if _, err := dec.Read(buf); err != nil && err != io.EOF {
		c.logger.Error("csv file not decodable",
			zap.String("path", c.cfg.Path),
			zap.String("encoding", c.cfg.Encoding),
			zap.Error(err))
		c.connected = false
		return false
	}

	c.connected = true
	c.logger.Info("csv file accessible", zap.String("path", c.cfg.Path))
	return true
}

// Extract parses the whole file into a Table. The header row supplies the
// column names; cell values go through the same inference the platform's
// other delimited readers use (int, float, bool, then string), with empty
// fields becoming nil. opts.Query and opts.Table are ignored.
func (c *CSVConnector) Extract(ctx context.Context, opts ingest.ExtractOptions) (*ingest.Table, error) {
	if !c.connected {
		return nil, &CSVError{Op: "extract", Err: ingest.ErrNotConnected}
	}

	select {
	case <-ctx.Done():
		return nil, &CSVError{Op: "extract", Err: ctx.Err()}
	default:
	}

	f, dec, err := c.open()
	if err != nil {
		c.logExtraction(c.logger, 0, false, zap.String("path", c.cfg.Path))
		return nil, &CSVError{Op: "open", Err: err}
	}
	defer f.Close()

	header, rows, err := c.readAll(dec)
	if err != nil {
		c.logExtraction(c.logger, 0, false, zap.String("path", c.cfg.Path))
		return nil, &CSVError{Op: "read", Err: err}
	}

	tbl, err := rowsToTable(header, rows)
	if err != nil {
		c.logExtraction(c.logger, 0, false, zap.String("path", c.cfg.Path))
		return nil, &CSVError{Op: "build", Err: err}
	}

	if len(opts.Columns) > 0 {
		tbl = tbl.Select(opts.Columns)
	}
	if opts.MaxRows > 0 {
		tbl = tbl.Head(opts.MaxRows)
	}

	c.logExtraction(c.logger, tbl.NumRows(), true, zap.String("path", c.cfg.Path))
	c.logger.Info("read csv file",
		zap.String("path", c.cfg.Path),
		zap.Int("records", tbl.NumRows()),
		zap.Int("columns", tbl.NumCols()))
	return tbl, nil
}

// ExtractChunked returns a lazy iterator over sub-tables of at most size
// rows each, in file order. Each call re-opens the file, so the sequence is
// restartable.
func (c *CSVConnector) ExtractChunked(ctx context.Context, size int) (*CSVChunks, error) {
	if !c.connected {
		return nil, &CSVError{Op: "extract_chunked", Err: ingest.ErrNotConnected}
	}
	if size <= 0 {
		return nil, &CSVError{Op: "extract_chunked",
			Err: fmt.Errorf("%w: chunk size must be positive, got %d", ingest.ErrInvalidConfig, size)}
	}

	f, dec, err := c.open()
	if err != nil {
		return nil, &CSVError{Op: "open", Err: err}
	}

	r := csv.NewReader(dec)
	r.Comma = c.cfg.Delimiter
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		f.Close()
		return nil, &CSVError{Op: "read_header", Err: err}
	}

	c.logger.Info("reading csv in chunks",
		zap.String("path", c.cfg.Path), zap.Int("chunk_size", size))
	return &CSVChunks{reader: r, file: f, header: header, size: size}, nil
}

// FileInfo describes the file behind a file-based connector.
type FileInfo struct {
	Path      string
	SizeBytes int64
	SizeMB    float64
	Modified  time.Time
	Encoding  string
	Delimiter string
	Format    string
}

// FileInfo returns size, modification time and the configured parsing
// options. It fails if the file no longer exists.
func (c *CSVConnector) FileInfo() (FileInfo, error) {
	info, err := os.Stat(c.cfg.Path)
	if err != nil {
		return FileInfo{}, &CSVError{Op: "file_info", Err: err}
	}
	return FileInfo{
		Path:      c.cfg.Path,
		SizeBytes: info.Size(),
		SizeMB:    float64(info.Size()) / (1024 * 1024),
		Modified:  info.ModTime(),
		Encoding:  c.cfg.Encoding,
		Delimiter: string(c.cfg.Delimiter),
	}, nil
}

// ValidateConnection reports whether the file still exists and is regular.
func (c *CSVConnector) ValidateConnection(ctx context.Context) bool {
	info, err := os.Stat(c.cfg.Path)
	return err == nil && info.Mode().IsRegular()
}

// Close clears the connected flag. The connector holds no open handle
// between extractions, so there is nothing else to release.
func (c *CSVConnector) Close() error {
	c.connected = false
	c.logger.Debug("csv connector closed")
	return nil
}

// Metadata implements ingest.Connector.
func (c *CSVConnector) Metadata() ingest.Metadata {
	return ingest.Metadata{
		ConnectorType:  "csv",
		Connected:      c.connected,
		LastExtraction: c.lastExtraction,
		Extractions:    c.extractions,
		Failures:       c.failures,
		Config: ingest.RedactConfig(map[string]string{
			"path":      c.cfg.Path,
			"encoding":  c.cfg.Encoding,
			"delimiter": string(c.cfg.Delimiter),
		}),
	}
}

func (c *CSVConnector) open() (*os.File, io.Reader, error) {
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

func (c *CSVConnector) readAll(r io.Reader) ([]string, [][]string, error) {
	reader := csv.NewReader(r)
	reader.Comma = c.cfg.Delimiter
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, nil, fmt.Errorf("empty file")
		}
		return nil, nil, err
	}

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	return header, rows, nil
}

// rowsToTable converts parsed CSV rows into a column-major Table.
func rowsToTable(header []string, rows [][]string) (*ingest.Table, error) {
	tbl := ingest.NewTable()
	for i, name := range header {
		values := make([]interface{}, len(rows))
		for j, row := range rows {
			if i >= len(row) || strings.TrimSpace(row[i]) == "" {
				values[j] = nil
				continue
			}
			values[j] = parseValue(row[i])
		}
		if err := tbl.AddColumn(name, values); err != nil {
			return nil, err
		}
	}
	return tbl, nil
}

// parseValue attempts to infer int, float, bool, or falls back to string.
func parseValue(value string) interface{} {
	value = strings.TrimSpace(value)

	if i, err := strconv.Atoi(value); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}
	return value
}

// CSVChunks iterates over a CSV file one fixed-size sub-table at a time.
type CSVChunks struct {
	reader *csv.Reader
	file   *os.File
	header []string
	size   int
	done   bool
}

// Next returns the next chunk, or io.EOF after the last one. The final chunk
// may hold fewer rows than the configured size.
func (c *CSVChunks) Next() (*ingest.Table, error) {
	if c.done {
		return nil, io.EOF
	}

	rows := make([][]string, 0, c.size)
	for len(rows) < c.size {
		row, err := c.reader.Read()
		if err == io.EOF {
			c.done = true
			c.file.Close()
			break
		}
		if err != nil {
			c.done = true
			c.file.Close()
			return nil, &CSVError{Op: "read_chunk", Err: err}
		}
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return nil, io.EOF
	}
	tbl, err := rowsToTable(c.header, rows)
	if err != nil {
		return nil, &CSVError{Op: "build_chunk", Err: err}
	}
	return tbl, nil
}

// Close releases the underlying file. Safe to call at any point.
func (c *CSVChunks) Close() error {
	if c.done {
		return nil
	}
	c.done = true
	return c.file.Close()
}
