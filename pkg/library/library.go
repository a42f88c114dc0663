// SOFL Core
// Copyright (c) 2026 The SOFL Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of SOFL Core.
//
// SOFL Core is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// SOFL Core is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with SOFL Core.  If not, see <http://www.gnu.org/licenses/>.

// Package library persists the games SOFL has installed.
package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jonboulle/clockwork"
	_ "github.com/mattn/go-sqlite3"
)

// SourceOnlineFix marks records created by the installer.
const SourceOnlineFix = "online-fix"

const sqliteConnParams = "?_journal_mode=WAL&_synchronous=FULL&_busy_timeout=5000"

var (
	ErrNullSQL  = errors.New("library database is not connected")
	ErrNotFound = errors.New("game not found")
)

// Record is one installed game. Executable is relative to Path when the
// game was installed by SOFL.
type Record struct {
	Added      time.Time
	LastPlayed time.Time
	GameID     string
	Name       string
	Source     string
	Path       string
	Executable string
	Hidden     bool
	Removed    bool
}

// ExecutablePath returns the executable as an absolute path.
func (r *Record) ExecutablePath() string {
	if r.Executable == "" || filepath.IsAbs(r.Executable) {
		return r.Executable
	}
	return filepath.Join(r.Path, r.Executable)
}

type Store struct {
	sql   *sql.DB
	clock clockwork.Clock
}

// Open opens or creates the library database at path and migrates it.
func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create directory for database: %w", err)
	}
	db, err := sql.Open("sqlite3", path+sqliteConnParams)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := migrateUp(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{sql: db, clock: clockwork.NewRealClock()}, nil
}

// NewStore wraps an already migrated connection. Used with sqlmock in tests.
func NewStore(db *sql.DB, clock clockwork.Clock) *Store {
	return &Store{sql: db, clock: clock}
}

// SetClock replaces the clock used for added timestamps.
func (s *Store) SetClock(clock clockwork.Clock) {
	s.clock = clock
}

func (s *Store) Close() error {
	if s.sql == nil {
		return nil
	}
	if err := s.sql.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

// NextGameID returns the next free online-fix_<n> id.
func (s *Store) NextGameID(ctx context.Context) (string, error) {
	if s.sql == nil {
		return "", ErrNullSQL
	}
	return sqlNextGameID(ctx, s.sql)
}

// Add stores rec. An empty GameID is allocated and a zero Added time is set
// to now. The stored record is returned.
func (s *Store) Add(ctx context.Context, rec Record) (Record, error) {
	if s.sql == nil {
		return Record{}, ErrNullSQL
	}
	if rec.Source == "" {
		rec.Source = SourceOnlineFix
	}
	if rec.Added.IsZero() {
		rec.Added = s.clock.Now()
	}
	if rec.GameID != "" {
		return rec, sqlInsertGame(ctx, s.sql, &rec)
	}

	tx, err := s.sql.BeginTx(ctx, nil)
	if err != nil {
		return Record{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rec.GameID, err = sqlNextGameID(ctx, tx)
	if err != nil {
		return Record{}, err
	}
	if err := sqlInsertGame(ctx, tx, &rec); err != nil {
		return Record{}, err
	}
	if err := tx.Commit(); err != nil {
		return Record{}, fmt.Errorf("failed to commit game insert: %w", err)
	}
	return rec, nil
}

func (s *Store) Get(ctx context.Context, gameID string) (Record, error) {
	if s.sql == nil {
		return Record{}, ErrNullSQL
	}
	return sqlGetGame(ctx, s.sql, gameID)
}

// List returns games ordered by name. Removed games are left out unless
// includeRemoved is set.
func (s *Store) List(ctx context.Context, includeRemoved bool) ([]Record, error) {
	if s.sql == nil {
		return nil, ErrNullSQL
	}
	return sqlListGames(ctx, s.sql, includeRemoved)
}

func (s *Store) UpdateLastPlayed(ctx context.Context, gameID string, at time.Time) error {
	if s.sql == nil {
		return ErrNullSQL
	}
	return sqlUpdateFlag(ctx, s.sql, "LastPlayed", at.Unix(), gameID)
}

// MarkRemoved hides a game from the library without deleting the row.
func (s *Store) MarkRemoved(ctx context.Context, gameID string) error {
	if s.sql == nil {
		return ErrNullSQL
	}
	return sqlUpdateFlag(ctx, s.sql, "Removed", true, gameID)
}

func (s *Store) SetHidden(ctx context.Context, gameID string, hidden bool) error {
	if s.sql == nil {
		return ErrNullSQL
	}
	return sqlUpdateFlag(ctx, s.sql, "Hidden", hidden, gameID)
}
