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
	"fmt"
)

// Table is the common currency passed between connectors, the synthetic
// generator, and callers: named columns of equal length holding
// heterogeneous values. A nil cell is the missing-value marker.
//
// Column order is preserved from insertion. A Table is not safe for
// concurrent use.
type Table struct {
	cols []string
	data map[string][]interface{}
}

// NewTable returns an empty table with no columns and no rows.
func NewTable() *Table {
	return &Table{data: make(map[string][]interface{})}
}

// AddColumn appends a named column. Every column must have the same length;
// adding a column whose length differs from the existing row count is an
// error, as is reusing a column name.
func (t *Table) AddColumn(name string, values []interface{}) error {
	if _, exists := t.data[name]; exists {
		return fmt.Errorf("table: duplicate column %q", name)
	}
	if len(t.cols) > 0 && len(values) != t.NumRows() {
		return fmt.Errorf("table: column %q has %d values, table has %d rows",
			name, len(values), t.NumRows())
	}
	t.cols = append(t.cols, name)
	t.data[name] = values
	return nil
}

// Columns returns the column names in insertion order.
func (t *Table) Columns() []string {
	return append([]string(nil), t.cols...)
}

// HasColumn reports whether the named column exists.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.data[name]
	return ok
}

// NumCols returns the number of columns.
func (t *Table) NumCols() int {
	return len(t.cols)
}

// NumRows returns the number of rows, zero for a table with no columns.
func (t *Table) NumRows() int {
	if len(t.cols) == 0 {
		return 0
	}
	return len(t.data[t.cols[0]])
}

// Column returns the values of the named column. The returned slice is the
// table's backing storage, not a copy.
func (t *Table) Column(name string) ([]interface{}, bool) {
	values, ok := t.data[name]
	return values, ok
}

// Value returns the cell at (row, column).
func (t *Table) Value(row int, column string) (interface{}, error) {
	values, ok := t.data[column]
	if !ok {
		return nil, fmt.Errorf("table: no column %q", column)
	}
	if row < 0 || row >= len(values) {
		return nil, fmt.Errorf("table: row %d out of range [0,%d)", row, len(values))
	}
	return values[row], nil
}

// SetValue overwrites the cell at (row, column).
func (t *Table) SetValue(row int, column string, value interface{}) error {
	values, ok := t.data[column]
	if !ok {
		return fmt.Errorf("table: no column %q", column)
	}
	if row < 0 || row >= len(values) {
		return fmt.Errorf("table: row %d out of range [0,%d)", row, len(values))
	}
	values[row] = value
	return nil
}

// Row returns the values of a single row keyed by column name.
func (t *Table) Row(row int) (map[string]interface{}, error) {
	if row < 0 || row >= t.NumRows() {
		return nil, fmt.Errorf("table: row %d out of range [0,%d)", row, t.NumRows())
	}
	out := make(map[string]interface{}, len(t.cols))
	for _, c := range t.cols {
		out[c] = t.data[c][row]
	}
	return out, nil
}

// AppendRow adds one row. Columns absent from values are filled with nil;
// keys that are not table columns are ignored.
func (t *Table) AppendRow(values map[string]interface{}) {
	for _, c := range t.cols {
		t.data[c] = append(t.data[c], values[c])
	}
}

// CopyRow appends a duplicate of an existing row to the end of the table.
func (t *Table) CopyRow(row int) error {
	if row < 0 || row >= t.NumRows() {
		return fmt.Errorf("table: row %d out of range [0,%d)", row, t.NumRows())
	}
	for _, c := range t.cols {
		t.data[c] = append(t.data[c], t.data[c][row])
	}
	return nil
}

// Append concatenates another table with an identical column set onto this
// one, in order.
func (t *Table) Append(other *Table) error {
	if other.NumCols() != t.NumCols() {
		return fmt.Errorf("table: column count mismatch: %d vs %d", t.NumCols(), other.NumCols())
	}
	for _, c := range t.cols {
		values, ok := other.data[c]
		if !ok {
			return fmt.Errorf("table: column %q missing from appended table", c)
		}
		t.data[c] = append(t.data[c], values...)
	}
	return nil
}

// Head returns a new table holding the first n rows (all rows if n exceeds
// the row count). The cell values are shared, not copied.
func (t *Table) Head(n int) *Table {
	if n > t.NumRows() {
		n = t.NumRows()
	}
	if n < 0 {
		n = 0
	}
	out := NewTable()
	for _, c := range t.cols {
		out.AddColumn(c, t.data[c][:n:n])
	}
	return out
}

// Select returns a new table holding only the named columns that exist in
// this table, in the requested order. Unknown names are skipped.
func (t *Table) Select(columns []string) *Table {
	out := NewTable()
	for _, c := range columns {
		if values, ok := t.data[c]; ok {
			out.AddColumn(c, values)
		}
	}
	return out
}

// Clone returns a deep copy of the table's column structure and cell slots.
// Cell values themselves are shared, which is safe for the scalar types a
// Table holds.
func (t *Table) Clone() *Table {
	out := NewTable()
	for _, c := range t.cols {
		values := make([]interface{}, len(t.data[c]))
		copy(values, t.data[c])
		out.AddColumn(c, values)
	}
	return out
}

// NumericColumns returns the names of columns whose first non-nil value is a
// numeric Go type, in column order.
func (t *Table) NumericColumns() []string {
	var out []string
	for _, c := range t.cols {
		for _, v := range t.data[c] {
			if v == nil {
				continue
			}
			if _, ok := asFloat(v); ok {
				out = append(out, c)
			}
			break
		}
	}
	return out
}

// ColumnMax returns the maximum of a numeric column as a float64. The second
// return is false when the column does not exist or holds no numeric values.
func (t *Table) ColumnMax(column string) (float64, bool) {
	values, ok := t.data[column]
	if !ok {
		return 0, false
	}
	var max float64
	found := false
	for _, v := range values {
		f, ok := asFloat(v)
		if !ok {
			continue
		}
		if !found || f > max {
			max = f
			found = true
		}
	}
	return max, found
}

// MissingCount returns the number of nil cells across the whole table.
func (t *Table) MissingCount() int {
	count := 0
	for _, c := range t.cols {
		for _, v := range t.data[c] {
			if v == nil {
				count++
			}
		}
	}
	return count
}

// asFloat widens any numeric cell value to float64.
func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
