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

package synthetic

import (
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var fixedClock = time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC)

// seededGenerator pins both the random source and the clock so output is
// fully reproducible.
func seededGenerator(seed int64) *Generator {
	g := NewGenerator(WithSeed(seed))
	g.now = func() time.Time { return fixedClock }
	return g
}

func TestGenerator_AllColumnTypes(t *testing.T) {
	schema := Schema{
		{Name: "c_int", Type: TypeInt},
		{Name: "c_float", Type: TypeFloat},
		{Name: "c_bool", Type: TypeBool},
		{Name: "c_string", Type: TypeString},
		{Name: "c_name", Type: TypeName},
		{Name: "c_email", Type: TypeEmail},
		{Name: "c_phone", Type: TypePhone},
		{Name: "c_address", Type: TypeAddress},
		{Name: "c_company", Type: TypeCompany},
		{Name: "c_date", Type: TypeDate},
		{Name: "c_datetime", Type: TypeDateTime},
		{Name: "c_timestamp", Type: TypeTimestamp},
		{Name: "c_uuid", Type: TypeUUID},
		{Name: "c_category", Type: TypeCategory},
		{Name: "c_amount", Type: TypeAmount},
		{Name: "c_price", Type: TypePrice},
	}

	g := seededGenerator(42)
	tbl, err := g.Generate(schema, 25)
	require.NoError(t, err)

	assert.Equal(t, 25, tbl.NumRows())
	assert.Equal(t, len(schema), tbl.NumCols())
	assert.Equal(t, 0, tbl.MissingCount())

	// Column order follows schema order.
	assert.Equal(t, "c_int", tbl.Columns()[0])
	assert.Equal(t, "c_price", tbl.Columns()[15])
}

func TestGenerator_Deterministic(t *testing.T) {
	schema := Schema{
		{Name: "id", Type: TypeUUID},
		{Name: "name", Type: TypeName},
		{Name: "amount", Type: TypeAmount},
		{Name: "when", Type: TypeTimestamp},
	}

	first, err := seededGenerator(42).Generate(schema, 50)
	require.NoError(t, err)
	second, err := seededGenerator(42).Generate(schema, 50)
	require.NoError(t, err)

	for _, col := range first.Columns() {
		a, _ := first.Column(col)
		b, _ := second.Column(col)
		assert.Equal(t, a, b, col)
	}
}

func TestGenerator_DifferentSeedsDiffer(t *testing.T) {
	schema := Schema{{Name: "v", Type: TypeFloat}}

	first, err := seededGenerator(1).Generate(schema, 20)
	require.NoError(t, err)
	second, err := seededGenerator(2).Generate(schema, 20)
	require.NoError(t, err)

	a, _ := first.Column("v")
	b, _ := second.Column("v")
	assert.NotEqual(t, a, b)
}

func TestGenerator_NegativeCount(t *testing.T) {
	g := seededGenerator(42)
	_, err := g.Generate(Schema{{Name: "v", Type: TypeInt}}, -1)
	assert.Error(t, err)
}

func TestGenerator_ZeroCount(t *testing.T) {
	g := seededGenerator(42)
	tbl, err := g.Generate(Schema{{Name: "v", Type: TypeInt}}, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, tbl.NumRows())
	assert.Equal(t, 1, tbl.NumCols())
}

func TestGenerator_UnknownTypeFallback(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	defer restore()

	g := seededGenerator(42)
	tbl, err := g.Generate(Schema{{Name: "v", Type: ColumnType("quaternion")}}, 10)
	require.NoError(t, err)

	values, _ := tbl.Column("v")
	for _, v := range values {
		n, ok := v.(int)
		require.True(t, ok)
		assert.GreaterOrEqual(t, n, 0)
		assert.Less(t, n, 100)
	}

	entries := logs.FilterMessageSnippet("unknown column type").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "quaternion", entries[0].ContextMap()["type"])
}

func TestGenerator_DateColumnsUseClock(t *testing.T) {
	g := seededGenerator(42)
	tbl, err := g.Generate(Schema{
		{Name: "d", Type: TypeDate},
		{Name: "ts", Type: TypeTimestamp},
	}, 30)
	require.NoError(t, err)

	yearAgo := fixedClock.AddDate(-1, 0, 0)

	dates, _ := tbl.Column("d")
	for _, v := range dates {
		d, ok := v.(time.Time)
		require.True(t, ok)
		// Dates are truncated to midnight and fall within the last year.
		assert.Zero(t, d.Hour())
		assert.Zero(t, d.Minute())
		assert.True(t, !d.After(fixedClock))
		assert.True(t, d.After(yearAgo.AddDate(0, 0, -1)))
	}

	stamps, _ := tbl.Column("ts")
	for _, v := range stamps {
		ts := v.(time.Time)
		assert.True(t, !ts.After(fixedClock))
		assert.True(t, !ts.Before(yearAgo))
	}
}

func TestGenerator_AmountBounds(t *testing.T) {
	g := seededGenerator(42)
	tbl, err := g.Generate(Schema{{Name: "amount", Type: TypeAmount}}, 200)
	require.NoError(t, err)

	values, _ := tbl.Column("amount")
	for _, v := range values {
		amount, ok := v.(float64)
		require.True(t, ok)
		assert.GreaterOrEqual(t, amount, 10.0)
		assert.LessOrEqual(t, amount, 10000.0)
		// Rounded to cents.
		assert.InDelta(t, amount, math.Round(amount*100)/100, 1e-9)
	}
}

func TestGenerator_CustomerData(t *testing.T) {
	g := seededGenerator(42)
	tbl, err := g.GenerateCustomerData(100)
	require.NoError(t, err)

	assert.Equal(t, 100, tbl.NumRows())
	assert.Equal(t, []string{
		"customer_id", "name", "email", "phone", "address",
		"registration_date", "is_active", "lifetime_value",
	}, tbl.Columns())

	ids, _ := tbl.Column("customer_id")
	seen := make(map[string]bool, len(ids))
	for _, v := range ids {
		id, ok := v.(string)
		require.True(t, ok)
		_, err := uuid.Parse(id)
		require.NoError(t, err)
		assert.False(t, seen[id], "duplicate customer_id")
		seen[id] = true
	}
}

func TestGenerator_TransactionData(t *testing.T) {
	g := seededGenerator(42)
	tbl, err := g.GenerateTransactionData(2000)
	require.NoError(t, err)

	assert.Equal(t, 2000, tbl.NumRows())

	categories := map[string]bool{
		"Electronics": true, "Clothing": true, "Food": true,
		"Books": true, "Other": true,
	}
	values, _ := tbl.Column("category")
	for _, v := range values {
		assert.True(t, categories[v.(string)], v)
	}

	counts := map[string]int{}
	statuses, _ := tbl.Column("status")
	for _, v := range statuses {
		counts[v.(string)]++
	}
	// 85/10/5 split with generous slack.
	assert.Greater(t, counts["completed"], counts["pending"])
	assert.Greater(t, counts["pending"], counts["cancelled"])
	assert.InDelta(t, 0.85, float64(counts["completed"])/2000, 0.05)
}
