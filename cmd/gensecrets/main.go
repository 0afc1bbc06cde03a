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

// gensecrets prints freshly generated secrets for the platform's .env file.
// Output goes to stdout only; nothing is written to disk.
package main

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
)

func main() {
	fmt.Println("=== GENERATED SECRET KEYS ===")
	fmt.Println()
	fmt.Printf("AIRFLOW_FERNET_KEY=%s\n", fernetKey())
	fmt.Printf("AIRFLOW_SECRET_KEY=%s\n", tokenURLSafe(32))
	fmt.Printf("JWT_SECRET_KEY=%s\n", tokenURLSafe(32))
	fmt.Printf("POSTGRES_PASSWORD=%s\n", tokenURLSafe(16))
	fmt.Printf("REDIS_PASSWORD=%s\n", tokenURLSafe(16))
	fmt.Printf("GRAFANA_ADMIN_PASSWORD=%s\n", tokenURLSafe(12))
}

// tokenURLSafe returns a URL-safe random token with nbytes of entropy.
func tokenURLSafe(nbytes int) string {
	return base64.RawURLEncoding.EncodeToString(randomBytes(nbytes))
}

// fernetKey returns a padded URL-safe base64 encoding of 32 random bytes,
// the format Fernet implementations expect.
func fernetKey() string {
	return base64.URLEncoding.EncodeToString(randomBytes(32))
}

func randomBytes(n int) []byte {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		fmt.Fprintf(os.Stderr, "[ERROR] reading random source: %v\n", err)
		os.Exit(1)
	}
	return buf
}
