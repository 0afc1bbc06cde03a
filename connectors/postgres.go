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
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
	"go.uber.org/zap"

	"github.com/pipeline-lab/ingest"
)

// Mode selects how the Postgres connector talks to the server.
type Mode string

const (
	// ModeDirect opens a plain database/sql handle over the lib/pq driver.
	ModeDirect Mode = "direct"
	// ModePooled opens an sqlx handle and confirms liveness with a round
	// trip before Connect reports success.
	ModePooled Mode = "pooled"
)

// PostgresError wraps structured error information for the Postgres
// connector.
type PostgresError struct {
	Op  string
	Err error
}

func (e *PostgresError) Error() string {
	return fmt.Sprintf("postgres connector %s: %v", e.Op, e.Err)
}

func (e *PostgresError) Unwrap() error {
	return e.Err
}

// PostgresConfig configures a PostgresConnector. Zero values fall back to
// the usual defaults (port 5432, sslmode disable, pooled mode, 10s connect
// timeout).
type PostgresConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string
	Mode     Mode

	ConnectTimeout  time.Duration
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

func (c PostgresConfig) withDefaults() PostgresConfig {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 5432
	}
	if c.SSLMode == "" {
		c.SSLMode = "disable"
	}
	if c.Mode == "" {
		c.Mode = ModePooled
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 10 * time.Second
	}
	if c.MaxOpenConns <= 0 {
		c.MaxOpenConns = 10
	}
	if c.MaxIdleConns <= 0 {
		c.MaxIdleConns = 5
	}
	if c.ConnMaxLifetime <= 0 {
		c.ConnMaxLifetime = 5 * time.Minute
	}
	if c.ConnMaxIdleTime <= 0 {
		c.ConnMaxIdleTime = 1 * time.Minute
	}
	return c
}

// DSN returns the lib/pq keyword/value connection string.
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s connect_timeout=%d",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
		int(c.ConnectTimeout.Seconds()))
}

// PostgresConnector extracts query results and whole tables from a
// PostgreSQL database. It implements ingest.Connector and additionally
// offers catalog introspection, limit/offset pagination, and a bulk write
// path used by the seeding tooling.
type PostgresConnector struct {
	state
	cfg    PostgresConfig
	db     *sql.DB  // direct mode handle
	pool   *sqlx.DB // pooled mode handle
	logger *zap.Logger
}

// NewPostgresConnector builds a Postgres connector. No connection is opened
// until Connect.
func NewPostgresConnector(cfg PostgresConfig) *PostgresConnector {
	return &PostgresConnector{
		cfg:    cfg.withDefaults(),
		logger: zap.L().Named("postgres-connector"),
	}
}

// Connect opens a session in the configured access mode. Any prior handle is
// released first, so repeated calls re-establish rather than leak. All
// failures are logged and reported as false.
func (c *PostgresConnector) Connect(ctx context.Context) bool {
	c.closeHandles()

	c.logger.Info("connecting to postgres",
		zap.String("host", c.cfg.Host),
		zap.Int("port", c.cfg.Port),
		zap.String("database", c.cfg.Database),
		zap.String("user", c.cfg.User),
		zap.String("mode", string(c.cfg.Mode)))

	pingCtx, cancel := context.WithTimeout(ctx, c.cfg.ConnectTimeout)
	defer cancel()

	switch c.cfg.Mode {
	case ModeDirect:
		db, err := sql.Open("postgres", c.cfg.DSN())
		if err != nil {
			c.logger.Error("failed to open postgres handle", zap.Error(err))
			return false
		}
		c.applyPoolSettings(db)
		if err := db.PingContext(pingCtx); err != nil {
			c.logger.Error("failed to connect to postgres", zap.Error(err))
			db.Close()
			return false
		}
		c.db = db

	case ModePooled:
		pool, err := sqlx.ConnectContext(pingCtx, "postgres", c.cfg.DSN())
		if err != nil {
			c.logger.Error("failed to connect to postgres", zap.Error(err))
			return false
		}
		c.applyPoolSettings(pool.DB)

		// One trivial round trip before declaring the pool live.
		var one int
		if err := pool.GetContext(pingCtx, &one, "SELECT 1"); err != nil {
			c.logger.Error("postgres liveness check failed", zap.Error(err))
			pool.Close()
			return false
		}
		c.pool = pool

	default:
		c.logger.Error("unknown access mode", zap.String("mode", string(c.cfg.Mode)))
		return false
	}

	c.connected = true
	c.logger.Info("connected to postgres",
		zap.String("host", c.cfg.Host), zap.Int("port", c.cfg.Port))
	return true
}

// Extract runs a query, or an unfiltered full-table read when a table name
// is given, and materializes the result as a Table. Exactly one of
// opts.Query and opts.Table must be set; anything else is a usage error,
// distinct from connectivity failures. Supplying both is rejected rather
// than silently preferring the query.
func (c *PostgresConnector) Extract(ctx context.Context, opts ingest.ExtractOptions) (*ingest.Table, error) {
	if !c.connected {
		return nil, &PostgresError{Op: "extract", Err: ingest.ErrNotConnected}
	}
	if (opts.Query == "") == (opts.Table == "") {
		return nil, &PostgresError{Op: "extract", Err: ingest.ErrNoExtractTarget}
	}

	query := opts.Query
	if query == "" {
		if !validIdentifier(opts.Table) {
			return nil, &PostgresError{Op: "extract",
				Err: fmt.Errorf("%w: invalid table name %q", ingest.ErrInvalidConfig, opts.Table)}
		}
		query = "SELECT * FROM " + opts.Table
	}

	c.logger.Info("extracting data", zap.String("query", truncateQuery(query)))

	tbl, err := c.queryTable(ctx, query)
	if err != nil {
		c.logExtraction(c.logger, 0, false, zap.String("query", truncateQuery(query)))
		return nil, &PostgresError{Op: "query", Err: err}
	}

	c.logExtraction(c.logger, tbl.NumRows(), true, zap.String("query", truncateQuery(query)))
	c.logger.Info("extracted data",
		zap.Int("records", tbl.NumRows()), zap.Int("columns", tbl.NumCols()))
	return tbl, nil
}

// ExtractTablesList returns the table names of a schema in catalog order.
func (c *PostgresConnector) ExtractTablesList(ctx context.Context, schema string) ([]string, error) {
	if !c.connected {
		return nil, &PostgresError{Op: "extract_tables_list", Err: ingest.ErrNotConnected}
	}
	if schema == "" {
		schema = "public"
	}

	const query = `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = $1
		ORDER BY table_name`

	if c.pool != nil {
		var names []string
		if err := c.pool.SelectContext(ctx, &names, query, schema); err != nil {
			return nil, &PostgresError{Op: "extract_tables_list", Err: err}
		}
		return names, nil
	}

	rows, err := c.db.QueryContext(ctx, query, schema)
	if err != nil {
		return nil, &PostgresError{Op: "extract_tables_list", Err: err}
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, &PostgresError{Op: "extract_tables_list", Err: err}
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, &PostgresError{Op: "extract_tables_list", Err: err}
	}
	return names, nil
}

// ExtractWithPagination appends LIMIT/OFFSET clauses to the base query and
// issues sequential page reads until a page comes back empty, returning the
// concatenation of all pages. This is a continuation mechanism for large
// result sets, not a retry mechanism: the first failing page aborts the
// whole read.
func (c *PostgresConnector) ExtractWithPagination(ctx context.Context, baseQuery string, pageSize int) (*ingest.Table, error) {
	if !c.connected {
		return nil, &PostgresError{Op: "extract_with_pagination", Err: ingest.ErrNotConnected}
	}
	if baseQuery == "" {
		return nil, &PostgresError{Op: "extract_with_pagination", Err: ingest.ErrNoExtractTarget}
	}
	if pageSize <= 0 {
		return nil, &PostgresError{Op: "extract_with_pagination",
			Err: fmt.Errorf("%w: page size must be positive, got %d", ingest.ErrInvalidConfig, pageSize)}
	}

	var result *ingest.Table
	offset := 0
	for {
		paginated := fmt.Sprintf("%s LIMIT %d OFFSET %d", baseQuery, pageSize, offset)
		page, err := c.Extract(ctx, ingest.ExtractOptions{Query: paginated})
		if err != nil {
			return nil, err
		}
		if page.NumRows() == 0 {
			break
		}

		if result == nil {
			result = page
		} else if err := result.Append(page); err != nil {
			return nil, &PostgresError{Op: "extract_with_pagination", Err: err}
		}

		offset += pageSize
		c.logger.Info("fetched page",
			zap.Int("offset", offset), zap.Int("records", page.NumRows()))
	}

	if result == nil {
		return ingest.NewTable(), nil
	}
	return result, nil
}

// ValidateConnection issues a trivial round-trip query on the active
// session. Failures of any kind are reported as false, never returned.
func (c *PostgresConnector) ValidateConnection(ctx context.Context) bool {
	if !c.connected {
		return false
	}

	var one int
	var err error
	if c.pool != nil {
		err = c.pool.GetContext(ctx, &one, "SELECT 1")
	} else if c.db != nil {
		err = c.db.QueryRowContext(ctx, "SELECT 1").Scan(&one)
	} else {
		return false
	}
	if err != nil {
		c.logger.Warn("connection validation failed", zap.Error(err))
		return false
	}
	return true
}

// Close releases the session or pool. Idempotent.
func (c *PostgresConnector) Close() error {
	c.closeHandles()
	c.connected = false
	c.logger.Info("postgres connection closed")
	return nil
}

// Metadata implements ingest.Connector. The password never appears in the
// returned configuration.
func (c *PostgresConnector) Metadata() ingest.Metadata {
	return ingest.Metadata{
		ConnectorType:  "postgres",
		Connected:      c.connected,
		LastExtraction: c.lastExtraction,
		Extractions:    c.extractions,
		Failures:       c.failures,
		Config: ingest.RedactConfig(map[string]string{
			"host":     c.cfg.Host,
			"port":     strconv.Itoa(c.cfg.Port),
			"database": c.cfg.Database,
			"user":     c.cfg.User,
			"password": c.cfg.Password,
			"sslmode":  c.cfg.SSLMode,
			"mode":     string(c.cfg.Mode),
		}),
	}
}

// EnsureTable creates a table from raw column definitions when it does not
// exist yet. Used by the seeding tooling before a bulk load.
func (c *PostgresConnector) EnsureTable(ctx context.Context, table string, columnDefs []string) error {
	if !c.connected {
		return &PostgresError{Op: "ensure_table", Err: ingest.ErrNotConnected}
	}
	if !validIdentifier(table) {
		return &PostgresError{Op: "ensure_table",
			Err: fmt.Errorf("%w: invalid table name %q", ingest.ErrInvalidConfig, table)}
	}

	stmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)",
		table, strings.Join(columnDefs, ",\n\t"))
	if _, err := c.execContext(ctx, stmt); err != nil {
		return &PostgresError{Op: "ensure_table", Err: err}
	}
	c.logger.Info("ensured table", zap.String("table", table))
	return nil
}

// LoadTable bulk-inserts a Table into the named database table with
// batched multi-row INSERT statements. Returns the number of rows written.
func (c *PostgresConnector) LoadTable(ctx context.Context, table string, tbl *ingest.Table, batchSize int) (int64, error) {
	if !c.connected {
		return 0, &PostgresError{Op: "load_table", Err: ingest.ErrNotConnected}
	}
	if !validIdentifier(table) {
		return 0, &PostgresError{Op: "load_table",
			Err: fmt.Errorf("%w: invalid table name %q", ingest.ErrInvalidConfig, table)}
	}
	if batchSize <= 0 {
		batchSize = 1000
	}

	columns := tbl.Columns()
	if len(columns) == 0 || tbl.NumRows() == 0 {
		return 0, nil
	}

	var written int64
	for start := 0; start < tbl.NumRows(); start += batchSize {
		end := start + batchSize
		if end > tbl.NumRows() {
			end = tbl.NumRows()
		}

		placeholders := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*len(columns))
		for row := start; row < end; row++ {
			ph := make([]string, len(columns))
			for i, col := range columns {
				v, _ := tbl.Value(row, col)
				args = append(args, v)
				ph[i] = "$" + strconv.Itoa(len(args))
			}
			placeholders = append(placeholders, "("+strings.Join(ph, ", ")+")")
		}

		stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
			table, strings.Join(columns, ", "), strings.Join(placeholders, ", "))
		res, err := c.execContext(ctx, stmt, args...)
		if err != nil {
			return written, &PostgresError{Op: "load_table", Err: err}
		}
		if n, err := res.RowsAffected(); err == nil {
			written += n
		} else {
			written += int64(end - start)
		}
	}

	c.logger.Info("loaded table",
		zap.String("table", table), zap.Int64("records", written))
	return written, nil
}

func (c *PostgresConnector) applyPoolSettings(db *sql.DB) {
	db.SetMaxOpenConns(c.cfg.MaxOpenConns)
	db.SetMaxIdleConns(c.cfg.MaxIdleConns)
	db.SetConnMaxLifetime(c.cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(c.cfg.ConnMaxIdleTime)
}

func (c *PostgresConnector) closeHandles() {
	if c.db != nil {
		c.db.Close()
		c.db = nil
	}
	if c.pool != nil {
		c.pool.Close()
		c.pool = nil
	}
}

func (c *PostgresConnector) execContext(ctx context.Context, stmt string, args ...interface{}) (sql.Result, error) {
	if c.pool != nil {
		return c.pool.ExecContext(ctx, stmt, args...)
	}
	return c.db.ExecContext(ctx, stmt, args...)
}

// queryTable runs a query on the active handle and materializes every row.
func (c *PostgresConnector) queryTable(ctx context.Context, query string, args ...interface{}) (*ingest.Table, error) {
	if c.pool != nil {
		return c.queryTablePooled(ctx, query, args...)
	}
	return c.queryTableDirect(ctx, query, args...)
}

func (c *PostgresConnector) queryTableDirect(ctx context.Context, query string, args ...interface{}) (*ingest.Table, error) {
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}

	var data [][]interface{}
	values := make([]interface{}, len(columns))
	scanBuffer := make([]interface{}, len(columns))
	for i := range scanBuffer {
		scanBuffer[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(scanBuffer...); err != nil {
			return nil, err
		}
		row := make([]interface{}, len(columns))
		for i, v := range values {
			row[i] = convertSQLValue(v, colTypes[i])
		}
		data = append(data, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return rowMajorToTable(columns, data)
}

func (c *PostgresConnector) queryTablePooled(ctx context.Context, query string, args ...interface{}) (*ingest.Table, error) {
	rows, err := c.pool.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}

	var data [][]interface{}
	for rows.Next() {
		values, err := rows.SliceScan()
		if err != nil {
			return nil, err
		}
		row := make([]interface{}, len(columns))
		for i, v := range values {
			row[i] = convertSQLValue(v, colTypes[i])
		}
		data = append(data, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return rowMajorToTable(columns, data)
}

// rowMajorToTable pivots scanned rows into the column-major Table layout.
func rowMajorToTable(columns []string, data [][]interface{}) (*ingest.Table, error) {
	tbl := ingest.NewTable()
	for i, name := range columns {
		values := make([]interface{}, len(data))
		for j, row := range data {
			values[j] = row[i]
		}
		if err := tbl.AddColumn(name, values); err != nil {
			return nil, err
		}
	}
	return tbl, nil
}

// convertSQLValue narrows driver values to the types a Table holds. Text
// columns arrive from lib/pq as byte slices and become strings; binary
// columns stay raw.
func convertSQLValue(value interface{}, colType *sql.ColumnType) interface{} {
	if b, ok := value.([]byte); ok {
		switch colType.DatabaseTypeName() {
		case "TEXT", "VARCHAR", "CHAR", "BPCHAR", "NAME", "UUID", "JSON", "JSONB", "NUMERIC":
			return string(b)
		default:
			return b
		}
	}

	switch v := value.(type) {
	case nil, bool, int64, float64, string, time.Time:
		return v
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case float32:
		return float64(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// validIdentifier accepts plain or schema-qualified SQL identifiers built
// from word characters. Everything else must go through a real query.
func validIdentifier(name string) bool {
	if name == "" || len(name) > 128 {
		return false
	}
	for _, part := range strings.Split(name, ".") {
		if part == "" {
			return false
		}
		for _, r := range part {
			if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
				(r >= '0' && r <= '9') || r == '_') {
				return false
			}
		}
	}
	return true
}

func truncateQuery(q string) string {
	q = strings.Join(strings.Fields(q), " ")
	if len(q) > 100 {
		return q[:100] + "..."
	}
	return q
}
