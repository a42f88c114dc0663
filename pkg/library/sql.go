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

package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const gameIDPrefix = SourceOnlineFix + "_"

const gameColumns = `GameID, Name, Source, Path, Executable, Added, Hidden, LastPlayed, Removed`

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

func sqlNextGameID(ctx context.Context, db querier) (string, error) {
	rows, err := db.QueryContext(ctx, `select GameID from Games where GameID like ?;`, gameIDPrefix+"%")
	if err != nil {
		return "", fmt.Errorf("failed to query game ids: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close rows")
		}
	}()

	highest := 0
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", fmt.Errorf("failed to scan game id: %w", err)
		}
		n, err := strconv.Atoi(strings.TrimPrefix(id, gameIDPrefix))
		if err != nil {
			continue
		}
		highest = max(highest, n)
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("failed to iterate game ids: %w", err)
	}
	return gameIDPrefix + strconv.Itoa(highest+1), nil
}

func sqlInsertGame(ctx context.Context, db querier, rec *Record) error {
	_, err := db.ExecContext(ctx,
		`insert into Games(`+gameColumns+`) values (?, ?, ?, ?, ?, ?, ?, ?, ?);`,
		rec.GameID,
		rec.Name,
		rec.Source,
		rec.Path,
		rec.Executable,
		rec.Added.Unix(),
		rec.Hidden,
		unixOrZero(rec.LastPlayed),
		rec.Removed,
	)
	if err != nil {
		return fmt.Errorf("failed to insert game: %w", err)
	}
	return nil
}

func sqlGetGame(ctx context.Context, db querier, gameID string) (Record, error) {
	row := db.QueryRowContext(ctx, `select `+gameColumns+` from Games where GameID = ?;`, gameID)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, gameID)
	}
	return rec, err
}

func sqlListGames(ctx context.Context, db querier, includeRemoved bool) ([]Record, error) {
	query := `select ` + gameColumns + ` from Games`
	if !includeRemoved {
		query += ` where Removed = 0`
	}
	query += ` order by Name collate nocase, GameID;`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query games: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close rows")
		}
	}()

	records := make([]Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate games: %w", err)
	}
	return records, nil
}

// sqlUpdateFlag sets a single column of one game. column is never user
// input.
func sqlUpdateFlag(ctx context.Context, db querier, column string, value any, gameID string) error {
	res, err := db.ExecContext(ctx, `update Games set `+column+` = ? where GameID = ?;`, value, gameID)
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", column, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, gameID)
	}
	return nil
}

func scanRecord(row scanner) (Record, error) {
	var rec Record
	var added, lastPlayed int64
	err := row.Scan(
		&rec.GameID,
		&rec.Name,
		&rec.Source,
		&rec.Path,
		&rec.Executable,
		&added,
		&rec.Hidden,
		&lastPlayed,
		&rec.Removed,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, sql.ErrNoRows
	}
	if err != nil {
		return Record{}, fmt.Errorf("failed to scan game: %w", err)
	}
	rec.Added = time.Unix(added, 0)
	if lastPlayed > 0 {
		rec.LastPlayed = time.Unix(lastPlayed, 0)
	}
	return rec, nil
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}
