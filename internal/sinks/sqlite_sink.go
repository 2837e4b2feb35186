// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package sinks

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"envsim/internal/sim"
)

// SQLite persists points into a single table, WAL mode for cheap appends.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (or creates) the database at path and initializes the
// schema.
func NewSQLite(path string) (*SQLite, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite sink: path is required")
	}
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite sink: open: %w", err)
	}
	db.SetMaxOpenConns(1)
	s := &SQLite{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite sink: migrate: %w", err)
	}
	return s, nil
}

func (s *SQLite) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS points (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		measurement TEXT NOT NULL,
		value       REAL NOT NULL,
		time        INTEGER NOT NULL,
		room_id     TEXT,
		sensor_id   TEXT,
		tags        TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_points_meas_time ON points(measurement, time);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLite) Write(ctx context.Context, p sim.Point) error {
	tags, err := json.Marshal(p.Tags)
	if err != nil {
		return fmt.Errorf("sqlite sink: encode tags: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO points (measurement, value, time, room_id, sensor_id, tags) VALUES (?, ?, ?, ?, ?, ?)`,
		p.Measurement, p.Value, p.Time.UnixNano(), p.Tags["room_id"], p.Tags["sensor_id"], string(tags))
	if err != nil {
		return fmt.Errorf("sqlite sink: insert: %w", err)
	}
	return nil
}

func (s *SQLite) Close() error { return s.db.Close() }

// Count reports the number of stored points for a measurement since a
// cutoff; handy for smoke checks and tests.
func (s *SQLite) Count(ctx context.Context, measurement string, since time.Time) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM points WHERE measurement = ? AND time >= ?`,
		measurement, since.UnixNano()).Scan(&n)
	return n, err
}
