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
	"fmt"

	"go.uber.org/zap"

	"github.com/pipeline-lab/ingest"
)

// AnomalyKind names one contamination transform.
type AnomalyKind string

const (
	// AnomalyNulls blanks random cells.
	AnomalyNulls AnomalyKind = "nulls"
	// AnomalyOutliers pushes random numeric cells to ten times the column
	// maximum.
	AnomalyOutliers AnomalyKind = "outliers"
	// AnomalyDuplicates appends copies of random rows.
	AnomalyDuplicates AnomalyKind = "duplicates"
)

// InjectAnomalies returns a copy of the table contaminated at the given
// rate. The anomaly budget is floor(rows*rate), split across the requested
// kinds by integer division; the remainder is dropped, so small tables with
// several kinds may receive nothing. Transforms are applied in a fixed
// order (nulls, outliers, duplicates), each on the output of the previous
// one. Unrecognized kinds are skipped but still count toward the split.
//
// The input table is never modified.
func (g *Generator) InjectAnomalies(tbl *ingest.Table, rate float64, kinds []AnomalyKind) (*ingest.Table, error) {
	if rate < 0 || rate > 1 {
		return nil, fmt.Errorf("synthetic: anomaly rate must be within [0,1], got %g", rate)
	}
	if len(kinds) == 0 {
		kinds = []AnomalyKind{AnomalyNulls, AnomalyOutliers, AnomalyDuplicates}
	}

	out := tbl.Clone()
	total := int(float64(tbl.NumRows()) * rate)
	count := total / len(kinds)

	g.logger.Info("injecting anomalies",
		zap.Int("total", total),
		zap.Int("per_kind", count),
		zap.Float64("rate", rate))

	if hasKind(kinds, AnomalyNulls) {
		g.injectNulls(out, count)
	}
	if hasKind(kinds, AnomalyOutliers) {
		g.injectOutliers(out, count)
	}
	if hasKind(kinds, AnomalyDuplicates) {
		if err := g.injectDuplicates(out, count); err != nil {
			return nil, err
		}
	}

	g.logger.Info("anomalies injected", zap.Int("records", out.NumRows()))
	return out, nil
}

// injectNulls blanks count random cells. Cells are picked with replacement,
// so fewer than count distinct cells may end up nil.
func (g *Generator) injectNulls(tbl *ingest.Table, count int) {
	columns := tbl.Columns()
	if len(columns) == 0 || tbl.NumRows() == 0 {
		return
	}
	for i := 0; i < count; i++ {
		row := g.rng.Intn(tbl.NumRows())
		col := columns[g.rng.Intn(len(columns))]
		tbl.SetValue(row, col, nil)
	}
}

// injectOutliers sets count random numeric cells to ten times their
// column's current maximum. The maximum is recomputed on every hit, so
// repeated hits on one column escalate. Tables without numeric columns are
// left untouched.
func (g *Generator) injectOutliers(tbl *ingest.Table, count int) {
	numeric := tbl.NumericColumns()
	if len(numeric) == 0 || tbl.NumRows() == 0 {
		return
	}
	for i := 0; i < count; i++ {
		row := g.rng.Intn(tbl.NumRows())
		col := numeric[g.rng.Intn(len(numeric))]
		max, ok := tbl.ColumnMax(col)
		if !ok {
			continue
		}
		outlier := max * 10
		if columnIsInt(tbl, col) {
			tbl.SetValue(row, col, int(outlier))
		} else {
			tbl.SetValue(row, col, outlier)
		}
	}
}

// injectDuplicates appends copies of count distinct rows, growing the table
// by exactly count. Rows are picked without replacement, so asking for more
// duplicates than the table has rows is an error.
func (g *Generator) injectDuplicates(tbl *ingest.Table, count int) error {
	if count == 0 {
		return nil
	}
	if count > tbl.NumRows() {
		return fmt.Errorf("synthetic: cannot duplicate %d of %d rows without replacement",
			count, tbl.NumRows())
	}
	for _, row := range g.rng.Perm(tbl.NumRows())[:count] {
		tbl.CopyRow(row)
	}
	return nil
}

func hasKind(kinds []AnomalyKind, kind AnomalyKind) bool {
	for _, k := range kinds {
		if k == kind {
			return true
		}
	}
	return false
}

func columnIsInt(tbl *ingest.Table, column string) bool {
	values, ok := tbl.Column(column)
	if !ok {
		return false
	}
	for _, v := range values {
		if v == nil {
			continue
		}
		switch v.(type) {
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
			return true
		default:
			return false
		}
	}
	return false
}
