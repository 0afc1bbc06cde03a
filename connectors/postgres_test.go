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
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pipeline-lab/ingest"
)

// newDirectConnector wires a mock database into a connector in direct mode,
// skipping Connect.
func newDirectConnector(t *testing.T) (*PostgresConnector, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	c := NewPostgresConnector(PostgresConfig{
		Host: "localhost", Database: "testdb", User: "admin",
		Password: "hunter2", Mode: ModeDirect,
	})
	c.db = db
	c.connected = true
	t.Cleanup(func() { db.Close() })
	return c, mock
}

func newPooledConnector(t *testing.T) (*PostgresConnector, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	c := NewPostgresConnector(PostgresConfig{
		Host: "localhost", Database: "testdb", User: "admin",
		Password: "hunter2", Mode: ModePooled,
	})
	c.pool = sqlx.NewDb(db, "sqlmock")
	c.connected = true
	t.Cleanup(func() { db.Close() })
	return c, mock
}

func TestPostgresConfig_Defaults(t *testing.T) {
	cfg := PostgresConfig{}.withDefaults()

	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, 5432, cfg.Port)
	assert.Equal(t, "disable", cfg.SSLMode)
	assert.Equal(t, ModePooled, cfg.Mode)
	assert.Contains(t, cfg.DSN(), "connect_timeout=10")
}

func TestPostgresConnector_ExtractUsageErrors(t *testing.T) {
	c, _ := newDirectConnector(t)
	ctx := context.Background()

	_, err := c.Extract(ctx, ingest.ExtractOptions{})
	assert.ErrorIs(t, err, ingest.ErrNoExtractTarget)

	_, err = c.Extract(ctx, ingest.ExtractOptions{Query: "SELECT 1", Table: "users"})
	assert.ErrorIs(t, err, ingest.ErrNoExtractTarget)

	_, err = c.Extract(ctx, ingest.ExtractOptions{Table: "users; DROP TABLE users"})
	assert.ErrorIs(t, err, ingest.ErrInvalidConfig)
}

func TestPostgresConnector_ExtractBeforeConnect(t *testing.T) {
	c := NewPostgresConnector(PostgresConfig{})

	_, err := c.Extract(context.Background(), ingest.ExtractOptions{Query: "SELECT 1"})
	assert.ErrorIs(t, err, ingest.ErrNotConnected)
}

func TestPostgresConnector_ExtractByQueryDirect(t *testing.T) {
	c, mock := newDirectConnector(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name FROM users")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).
			AddRow(int64(1), "Alice").
			AddRow(int64(2), "Bob"))

	tbl, err := c.Extract(context.Background(), ingest.ExtractOptions{Query: "SELECT id, name FROM users"})
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "name"}, tbl.Columns())
	assert.Equal(t, 2, tbl.NumRows())
	names, _ := tbl.Column("name")
	assert.Equal(t, []interface{}{"Alice", "Bob"}, names)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresConnector_ExtractByTablePooled(t *testing.T) {
	c, mock := newPooledConnector(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM users")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

	tbl, err := c.Extract(context.Background(), ingest.ExtractOptions{Table: "users"})
	require.NoError(t, err)

	assert.Equal(t, 1, tbl.NumRows())
	ids, _ := tbl.Column("id")
	assert.Equal(t, []interface{}{int64(7)}, ids)

	meta := c.Metadata()
	assert.EqualValues(t, 1, meta.Extractions)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresConnector_ExtractQueryFailure(t *testing.T) {
	c, mock := newDirectConnector(t)

	mock.ExpectQuery("SELECT broken").WillReturnError(errors.New("syntax error"))

	_, err := c.Extract(context.Background(), ingest.ExtractOptions{Query: "SELECT broken"})
	require.Error(t, err)

	var pgErr *PostgresError
	require.ErrorAs(t, err, &pgErr)
	assert.Equal(t, "query", pgErr.Op)
	assert.EqualValues(t, 1, c.Metadata().Failures)
}

func TestPostgresConnector_TextColumnsBecomeStrings(t *testing.T) {
	c, mock := newDirectConnector(t)

	cols := []*sqlmock.Column{
		sqlmock.NewColumn("name").OfType("TEXT", ""),
		sqlmock.NewColumn("payload").OfType("BYTEA", []byte{}),
	}
	mock.ExpectQuery(regexp.QuoteMeta("SELECT name, payload FROM blobs")).
		WillReturnRows(sqlmock.NewRowsWithColumnDefinition(cols...).
			AddRow([]byte("Alice"), []byte{0x01, 0x02}))

	tbl, err := c.Extract(context.Background(), ingest.ExtractOptions{Query: "SELECT name, payload FROM blobs"})
	require.NoError(t, err)

	name, _ := tbl.Value(0, "name")
	assert.Equal(t, "Alice", name)
	payload, _ := tbl.Value(0, "payload")
	assert.Equal(t, []byte{0x01, 0x02}, payload)
}

func TestPostgresConnector_ExtractTablesList(t *testing.T) {
	for _, mode := range []string{"direct", "pooled"} {
		t.Run(mode, func(t *testing.T) {
			var c *PostgresConnector
			var mock sqlmock.Sqlmock
			if mode == "direct" {
				c, mock = newDirectConnector(t)
			} else {
				c, mock = newPooledConnector(t)
			}

			mock.ExpectQuery("SELECT table_name").
				WithArgs("public").
				WillReturnRows(sqlmock.NewRows([]string{"table_name"}).
					AddRow("customers").
					AddRow("transactions"))

			names, err := c.ExtractTablesList(context.Background(), "")
			require.NoError(t, err)
			assert.Equal(t, []string{"customers", "transactions"}, names)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPostgresConnector_ExtractWithPagination(t *testing.T) {
	c, mock := newDirectConnector(t)
	base := "SELECT id FROM events"

	mock.ExpectQuery(regexp.QuoteMeta(base + " LIMIT 2 OFFSET 0")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)).AddRow(int64(2)))
	mock.ExpectQuery(regexp.QuoteMeta(base + " LIMIT 2 OFFSET 2")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(3)))
	mock.ExpectQuery(regexp.QuoteMeta(base + " LIMIT 2 OFFSET 4")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	tbl, err := c.ExtractWithPagination(context.Background(), base, 2)
	require.NoError(t, err)

	assert.Equal(t, 3, tbl.NumRows())
	ids, _ := tbl.Column("id")
	assert.Equal(t, []interface{}{int64(1), int64(2), int64(3)}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresConnector_ExtractWithPaginationEmptyFirstPage(t *testing.T) {
	c, mock := newDirectConnector(t)

	mock.ExpectQuery("SELECT id FROM empty").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	tbl, err := c.ExtractWithPagination(context.Background(), "SELECT id FROM empty", 10)
	require.NoError(t, err)
	require.NotNil(t, tbl)
	assert.Equal(t, 0, tbl.NumRows())
}

func TestPostgresConnector_ExtractWithPaginationFailureAborts(t *testing.T) {
	c, mock := newDirectConnector(t)
	base := "SELECT id FROM events"

	mock.ExpectQuery(regexp.QuoteMeta(base + " LIMIT 1 OFFSET 0")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))
	mock.ExpectQuery(regexp.QuoteMeta(base + " LIMIT 1 OFFSET 1")).
		WillReturnError(errors.New("connection reset"))

	_, err := c.ExtractWithPagination(context.Background(), base, 1)
	assert.Error(t, err)
}

func TestPostgresConnector_ExtractWithPaginationUsageErrors(t *testing.T) {
	c, _ := newDirectConnector(t)
	ctx := context.Background()

	_, err := c.ExtractWithPagination(ctx, "", 10)
	assert.ErrorIs(t, err, ingest.ErrNoExtractTarget)

	_, err = c.ExtractWithPagination(ctx, "SELECT 1", 0)
	assert.ErrorIs(t, err, ingest.ErrInvalidConfig)
}

func TestPostgresConnector_ValidateConnection(t *testing.T) {
	c, mock := newPooledConnector(t)
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1")).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	assert.True(t, c.ValidateConnection(ctx))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1")).
		WillReturnError(errors.New("server closed the connection"))
	assert.False(t, c.ValidateConnection(ctx))
}

func TestPostgresConnector_ValidateConnectionNotConnected(t *testing.T) {
	c := NewPostgresConnector(PostgresConfig{})
	assert.False(t, c.ValidateConnection(context.Background()))
}

func TestPostgresConnector_EnsureTable(t *testing.T) {
	c, mock := newDirectConnector(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS sample_customers").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := c.EnsureTable(context.Background(), "sample_customers",
		[]string{"id TEXT", "name TEXT"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())

	err = c.EnsureTable(context.Background(), "bad name", []string{"id TEXT"})
	assert.ErrorIs(t, err, ingest.ErrInvalidConfig)
}

func TestPostgresConnector_LoadTable(t *testing.T) {
	c, mock := newDirectConnector(t)

	tbl := ingest.NewTable()
	require.NoError(t, tbl.AddColumn("id", []interface{}{1, 2, 3}))
	require.NoError(t, tbl.AddColumn("name", []interface{}{"Alice", "Bob", "Charlie"}))

	// Batch size 2 splits three rows into a 2-row and a 1-row INSERT.
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO people (id, name) VALUES ($1, $2), ($3, $4)")).
		WithArgs(1, "Alice", 2, "Bob").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO people (id, name) VALUES ($1, $2)")).
		WithArgs(3, "Charlie").
		WillReturnResult(sqlmock.NewResult(0, 1))

	n, err := c.LoadTable(context.Background(), "people", tbl, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresConnector_LoadTableEmpty(t *testing.T) {
	c, _ := newDirectConnector(t)

	n, err := c.LoadTable(context.Background(), "people", ingest.NewTable(), 100)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestPostgresConnector_MetadataRedactsPassword(t *testing.T) {
	c, _ := newDirectConnector(t)

	meta := c.Metadata()
	assert.Equal(t, "postgres", meta.ConnectorType)
	assert.Equal(t, "[redacted]", meta.Config["password"])
	assert.Equal(t, "testdb", meta.Config["database"])

	for _, v := range meta.Config {
		assert.NotEqual(t, "hunter2", v)
	}
}

func TestPostgresConnector_CloseIdempotent(t *testing.T) {
	c, mock := newDirectConnector(t)
	mock.ExpectClose()

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	assert.False(t, c.Metadata().Connected)

	_, err := c.Extract(context.Background(), ingest.ExtractOptions{Query: "SELECT 1"})
	assert.ErrorIs(t, err, ingest.ErrNotConnected)
}

func TestValidIdentifier(t *testing.T) {
	valid := []string{"users", "public.users", "Sample_Table_1"}
	for _, name := range valid {
		assert.True(t, validIdentifier(name), name)
	}

	invalid := []string{"", "users; DROP", "a b", "schema..table", ".users",
		strings.Repeat("a", 200)}
	for _, name := range invalid {
		assert.False(t, validIdentifier(name), name)
	}
}

func TestTruncateQuery(t *testing.T) {
	assert.Equal(t, "SELECT 1", truncateQuery("SELECT\n\t1"))

	long := "SELECT " + strings.Repeat("column_name, ", 30)
	got := truncateQuery(long)
	assert.LessOrEqual(t, len(got), 103)
	assert.Contains(t, got, "...")
}
