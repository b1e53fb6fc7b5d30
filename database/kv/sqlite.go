// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package kv

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// sqliteStore is a Store implementation keeping all entries in a single
// SQLite table. BLOB keys are compared with memcmp, which yields the same
// order as the other backends.
type sqliteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens or creates an SQLite database file at the given path.
func OpenSQLiteStore(path string) (Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// SQLite does not support concurrent writers; a single connection also
	// keeps the iteration consistent with preceding writes.
	db.SetMaxOpenConns(1)
	const schema = `CREATE TABLE IF NOT EXISTS kv (key BLOB PRIMARY KEY, value BLOB)`
	if _, err := db.Exec(schema); err != nil {
		return nil, errors.Join(fmt.Errorf("failed to create table: %w", err), db.Close())
	}
	return &sqliteStore{db: db}, nil
}

func (s *sqliteStore) Write(batch []Entry) (err error) {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			err = errors.Join(err, tx.Rollback())
		}
	}()
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO kv (key, value) VALUES (?, ?)`)
	if err != nil {
		return err
	}
	for _, entry := range batch {
		if _, err = stmt.Exec(entry.Key, entry.Value); err != nil {
			return errors.Join(err, stmt.Close())
		}
	}
	if err = stmt.Close(); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *sqliteStore) Iterate(visit func(key, value []byte) error) error {
	rows, err := s.db.Query(`SELECT key, value FROM kv ORDER BY key`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var key, value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return err
		}
		if err := visit(key, value); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (s *sqliteStore) Close() error {
	return s.db.Close()
}
