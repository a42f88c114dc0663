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
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/sofl-project/sofl-core/pkg/archive"
	"github.com/sofl-project/sofl-core/pkg/config"
	"github.com/sofl-project/sofl-core/pkg/installer"
	"github.com/sofl-project/sofl-core/pkg/library"
	"golang.org/x/time/rate"
)

// progressInterval limits how often install progress lines are printed.
const progressInterval = 250 * time.Millisecond

// gameName is the name used when none is given: the title in the archive
// name, else the file name without extension.
func gameName(archivePath string) string {
	base := filepath.Base(archivePath)
	if title := archive.ExtractTitle(base); title != "" {
		return title
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func (a *App) installCommand() *Command {
	flags := newFlags("install")
	name := flags.StringP("name", "n", "", "game name (default from the archive name)")
	root := flags.String("root", "", "install into this directory instead of the configured one")

	return &Command{
		Name:    "install",
		Summary: "Verify, extract and register a game archive",
		Usage:   "<archive>",
		Flags:   flags,
		Run: func(ctx context.Context, args []string) error {
			if err := exactArgs(args, 1, "one archive path"); err != nil {
				return err
			}
			if *root != "" {
				a.Config.SetInstallRoot(*root)
			}
			title := *name
			if title == "" {
				title = gameName(args[0])
			}

			res := a.runInstall(ctx, a.installer().Job(args[0], title))
			if !res.Success {
				return fmt.Errorf("install failed: %w", res.Err)
			}

			rec := library.Record{
				Name:   title,
				Source: config.OnlineFixSource,
				Path:   res.InstallPath,
			}
			if res.RelativeExecutable != nil {
				rec.Executable = *res.RelativeExecutable
			} else {
				log.Warn().Str("dir", res.InstallPath).Msg("no executable found")
				_, _ = fmt.Fprintln(a.Err, "No game executable was found, set one before launching.")
			}

			rec, err := a.Store.Add(ctx, rec)
			if err != nil {
				return fmt.Errorf("game installed to %s but could not be saved: %w", res.InstallPath, err)
			}
			_, _ = fmt.Fprintf(a.Out, "Installed %s as %s in %s\n", rec.Name, rec.GameID, rec.Path)
			return nil
		},
	}
}

// runInstall runs job on a TaskRunner and drives its callbacks from this
// goroutine until the task is done.
func (a *App) runInstall(ctx context.Context, job installer.Job) installer.Result {
	calls := make(chan func(), 64)
	runner := installer.NewTaskRunner(func(fn func()) { calls <- fn })
	defer runner.Close()

	var (
		result   installer.Result
		finished bool
		last     string
	)
	limiter := rate.NewLimiter(rate.Every(progressInterval), 1)
	_, err := runner.Start(ctx, job, installer.Callbacks{
		OnProgress: func(_ uuid.UUID, p archive.Progress) {
			line := fmt.Sprintf("%3.0f%% %s", p.Fraction*100, p.Message)
			if line == last || (p.Fraction < 1 && !limiter.Allow()) {
				return
			}
			last = line
			_, _ = fmt.Fprintln(a.Err, line)
		},
		OnDone: func(_ uuid.UUID, r installer.Result) {
			result = r
			finished = true
		},
	})
	if err != nil {
		return installer.Result{Err: err}
	}

	for !finished {
		(<-calls)()
	}
	return result
}
