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

package cli

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/rs/zerolog/log"
	"github.com/sofl-project/sofl-core/pkg/config"
	"github.com/sofl-project/sofl-core/pkg/installer"
	"github.com/sofl-project/sofl-core/pkg/library"
)

// listRow is one game in list output.
type listRow struct {
	GameID     string `csv:"game_id"`
	Name       string `csv:"name"`
	Source     string `csv:"source"`
	Path       string `csv:"path"`
	Executable string `csv:"executable"`
	Added      string `csv:"added"`
	LastPlayed string `csv:"last_played"`
	Hidden     bool   `csv:"hidden"`
	Removed    bool   `csv:"removed"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func toRows(records []library.Record) []*listRow {
	rows := make([]*listRow, 0, len(records))
	for i := range records {
		r := &records[i]
		rows = append(rows, &listRow{
			GameID:     r.GameID,
			Name:       r.Name,
			Source:     r.Source,
			Path:       r.Path,
			Executable: r.Executable,
			Added:      formatTime(r.Added),
			LastPlayed: formatTime(r.LastPlayed),
			Hidden:     r.Hidden,
			Removed:    r.Removed,
		})
	}
	return rows
}

func (a *App) listCommand() *Command {
	flags := newFlags("list")
	all := flags.BoolP("all", "a", false, "include removed games")
	asCSV := flags.Bool("csv", false, "print CSV instead of a table")

	return &Command{
		Name:    "list",
		Summary: "List installed games",
		Flags:   flags,
		Run: func(ctx context.Context, _ []string) error {
			records, err := a.Store.List(ctx, *all)
			if err != nil {
				return fmt.Errorf("failed to list games: %w", err)
			}
			rows := toRows(records)

			if *asCSV {
				if err := gocsv.Marshal(rows, a.Out); err != nil {
					return fmt.Errorf("failed to write csv: %w", err)
				}
				return nil
			}

			tw := tabwriter.NewWriter(a.Out, 2, 0, 3, ' ', 0)
			_, _ = fmt.Fprintln(tw, "ID\tNAME\tLAST PLAYED\tPATH")
			for _, r := range rows {
				played := r.LastPlayed
				if played == "" {
					played = "never"
				}
				_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.GameID, r.Name, played, r.Path)
			}
			if err := tw.Flush(); err != nil {
				return fmt.Errorf("failed to write table: %w", err)
			}
			return nil
		},
	}
}

func (a *App) launchCommand() *Command {
	flags := newFlags("launch")
	backend := flags.StringP("backend", "b", "", "launcher to use: direct, umu or steam-shortcut")

	return &Command{
		Name:    "launch",
		Summary: "Start an installed game by id or name",
		Usage:   "<game>",
		Flags:   flags,
		Run: func(ctx context.Context, args []string) error {
			if err := exactArgs(args, 1, "a game id or name"); err != nil {
				return err
			}
			if *backend != "" {
				a.Config.SetLaunchBackend(config.Backend(*backend))
			}
			rec, err := a.findGame(ctx, args[0])
			if err != nil {
				return err
			}
			return a.orchestrator().Launch(ctx, &rec) //nolint:wrapcheck // launch errors carry the backend
		},
	}
}

func (a *App) uninstallCommand() *Command {
	flags := newFlags("uninstall")
	keepFiles := flags.Bool("keep-files", false, "only remove the game from the library")

	return &Command{
		Name:    "uninstall",
		Summary: "Delete an installed game and remove it from the library",
		Usage:   "<game>",
		Flags:   flags,
		Run: func(ctx context.Context, args []string) error {
			if err := exactArgs(args, 1, "a game id or name"); err != nil {
				return err
			}
			rec, err := a.findGame(ctx, args[0])
			if err != nil {
				return err
			}

			if !*keepFiles {
				a.removeFiles(&rec)
			}
			if err := a.Store.MarkRemoved(ctx, rec.GameID); err != nil {
				return fmt.Errorf("failed to remove %s from the library: %w", rec.Name, err)
			}
			_, _ = fmt.Fprintf(a.Out, "Removed %s\n", rec.Name)
			return nil
		},
	}
}

// removeFiles deletes the game folder when it lies in the install root.
// Games installed elsewhere are only taken off the list.
func (a *App) removeFiles(rec *library.Record) {
	dir, err := installer.Uninstall(a.Config.InstallRoot(), rec.ExecutablePath())
	switch {
	case err == nil:
		_, _ = fmt.Fprintf(a.Out, "Deleted %s\n", dir)
	case errors.Is(err, installer.ErrNotManaged), errors.Is(err, installer.ErrEscapesRoot):
		_, _ = fmt.Fprintf(a.Err, "%s is not in the install folder, removing it from the list only\n", rec.Name)
	default:
		log.Error().Err(err).Str("game", rec.GameID).Msg("failed to delete game files")
		_, _ = fmt.Fprintf(a.Err, "Could not delete the game files: %v\n", err)
	}
}
