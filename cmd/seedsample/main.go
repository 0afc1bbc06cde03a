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

// seedsample generates the sample datasets (customers, transactions, a
// dataset with injected anomalies), writes them as CSV under the configured
// samples directory, and with -db also bulk-loads them into PostgreSQL.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pipeline-lab/ingest"
	"github.com/pipeline-lab/ingest/config"
	"github.com/pipeline-lab/ingest/connectors"
	"github.com/pipeline-lab/ingest/logging"
	"github.com/pipeline-lab/ingest/synthetic"
)

func main() {
	loadDB := flag.Bool("db", false, "also load the generated datasets into PostgreSQL")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "[ERROR] loading configuration: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.EnsureDirs(); err != nil {
		fmt.Fprintf(os.Stderr, "[ERROR] %v\n", err)
		os.Exit(1)
	}

	logger, undo, err := logging.Setup(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[ERROR] setting up logging: %v\n", err)
		os.Exit(1)
	}
	defer undo()
	defer logger.Sync()

	gen := synthetic.NewGenerator(synthetic.WithSeed(cfg.Seed))

	customers, err := gen.GenerateCustomerData(1000)
	if err != nil {
		fatal("generating customers", err)
	}
	transactions, err := gen.GenerateTransactionData(5000)
	if err != nil {
		fatal("generating transactions", err)
	}
	anomalous, err := generateAnomalous(gen)
	if err != nil {
		fatal("generating anomalous dataset", err)
	}

	datasets := []struct {
		name string
		tbl  *ingest.Table
	}{
		{"customers", customers},
		{"transactions", transactions},
		{"data_with_anomalies", anomalous},
	}

	for _, d := range datasets {
		path := filepath.Join(cfg.Files.SamplesDir, d.name+".csv")
		if err := writeCSV(d.tbl, path); err != nil {
			fatal("writing "+path, err)
		}
		fmt.Printf("[OK] %s: %d records -> %s\n", d.name, d.tbl.NumRows(), path)
	}

	if *loadDB {
		if err := populatePostgres(cfg, customers, transactions); err != nil {
			fatal("loading postgres", err)
		}
	}
}

// generateAnomalous builds a small clean dataset and contaminates 10% of it
// with nulls, outliers and duplicate rows.
func generateAnomalous(gen *synthetic.Generator) (*ingest.Table, error) {
	schema := synthetic.Schema{
		{Name: "id", Type: synthetic.TypeInt},
		{Name: "name", Type: synthetic.TypeName},
		{Name: "email", Type: synthetic.TypeEmail},
		{Name: "amount", Type: synthetic.TypeAmount},
		{Name: "date", Type: synthetic.TypeDate},
	}
	clean, err := gen.Generate(schema, 500)
	if err != nil {
		return nil, err
	}
	return gen.InjectAnomalies(clean, 0.10, []synthetic.AnomalyKind{
		synthetic.AnomalyNulls,
		synthetic.AnomalyOutliers,
		synthetic.AnomalyDuplicates,
	})
}

func populatePostgres(cfg *config.Config, customers, transactions *ingest.Table) error {
	ctx := context.Background()
	c := connectors.NewPostgresConnector(connectors.PostgresConfig{
		Host:           cfg.Postgres.Host,
		Port:           cfg.Postgres.Port,
		Database:       cfg.Postgres.Database,
		User:           cfg.Postgres.User,
		Password:       cfg.Postgres.Password,
		SSLMode:        cfg.Postgres.SSLMode,
		Mode:           connectors.Mode(cfg.Postgres.Mode),
		ConnectTimeout: cfg.ConnectTimeout,
	})
	if !c.Connect(ctx) {
		return fmt.Errorf("could not connect to postgres")
	}
	defer c.Close()

	if err := c.EnsureTable(ctx, "sample_customers", []string{
		"customer_id TEXT",
		"name TEXT",
		"email TEXT",
		"phone TEXT",
		"address TEXT",
		"registration_date DATE",
		"is_active BOOLEAN",
		"lifetime_value NUMERIC(12,2)",
	}); err != nil {
		return err
	}
	if err := c.EnsureTable(ctx, "sample_transactions", []string{
		"transaction_id TEXT",
		"customer_id TEXT",
		"timestamp TIMESTAMPTZ",
		"amount NUMERIC(12,2)",
		"category TEXT",
		"status TEXT",
	}); err != nil {
		return err
	}

	n, err := c.LoadTable(ctx, "sample_customers", customers, 500)
	if err != nil {
		return err
	}
	fmt.Printf("[OK] sample_customers: %d records loaded\n", n)

	n, err = c.LoadTable(ctx, "sample_transactions", transactions, 500)
	if err != nil {
		return err
	}
	fmt.Printf("[OK] sample_transactions: %d records loaded\n", n)
	return nil
}

// writeCSV persists a table as delimited text. Nil cells become empty
// fields; times use RFC 3339 so round trips stay lossless.
func writeCSV(tbl *ingest.Table, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	columns := tbl.Columns()
	if err := w.Write(columns); err != nil {
		return err
	}

	for row := 0; row < tbl.NumRows(); row++ {
		record := make([]string, len(columns))
		for i, col := range columns {
			v, err := tbl.Value(row, col)
			if err != nil {
				return err
			}
			record[i] = formatCell(v)
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

func formatCell(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
			return x.Format("2006-01-02")
		}
		return x.Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", x)
	}
}

func fatal(msg string, err error) {
	fmt.Fprintf(os.Stderr, "[ERROR] %s: %v\n", msg, err)
	os.Exit(1)
}
