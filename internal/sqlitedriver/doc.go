// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package sqlitedriver registers a SQLite database/sql driver under the name
// "sqlite3" and opens databases for the dealdraft stores. With CGO it uses
// go-sqlcipher. Without CGO it falls back to the pure-Go modernc.org/sqlite
// driver, which has no encryption support.
//
// Stores call Open rather than sql.Open so that every connection gets the
// same pragmas:
//
//	db, err := sqlitedriver.Open(ctx, filepath.Join(dataDir, "usage.db"))
package sqlitedriver
