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

// Package ingest provides the data-ingestion layer for the pipeline
// platform: a uniform Connector contract over interchangeable data sources
// (CSV, JSON, PostgreSQL), the Table value model those sources produce, and
// the error and redaction conventions shared by all of them.
//
// Concrete connectors live in the connectors subpackage; schema-driven test
// data (with controlled anomaly injection) lives in synthetic. The cmd tree
// holds the operational entry points: connectivity probing, sample-data
// seeding, and secret generation.
//
// Everything here is synchronous and blocking. Connectors own exactly one
// connection handle each and are not safe for concurrent use; construct one
// instance per caller.
package ingest
