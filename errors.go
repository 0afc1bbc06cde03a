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

import "errors"

// Usage errors: mistakes in how the caller drives a connector, as opposed to
// connectivity or environment failures. Usage errors are always returned to
// the caller; they are never logged and swallowed. Connector implementations
// wrap these sentinels so errors.Is works through their structured errors.
var (
	// ErrNotConnected is returned by Extract when the connector has not had
	// a successful Connect, or after Close.
	ErrNotConnected = errors.New("connector is not connected")

	// ErrNoExtractTarget is returned by a database Extract that was given
	// neither a query nor a table name, or both.
	ErrNoExtractTarget = errors.New("exactly one of query or table must be provided")

	// ErrInvalidConfig marks configuration the connector cannot act on, such
	// as an unrecognized JSON layout.
	ErrInvalidConfig = errors.New("invalid connector configuration")
)
