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
	"io"

	"github.com/sofl-project/sofl-core/pkg/archive"
	"github.com/sofl-project/sofl-core/pkg/config"
	"github.com/sofl-project/sofl-core/pkg/helpers/command"
	"github.com/sofl-project/sofl-core/pkg/installer"
	"github.com/sofl-project/sofl-core/pkg/launch"
	"github.com/sofl-project/sofl-core/pkg/launch/compat"
	"github.com/sofl-project/sofl-core/pkg/launch/steam"
	"github.com/sofl-project/sofl-core/pkg/library"
	"github.com/sofl-project/sofl-core/pkg/sandbox"
	"github.com/spf13/pflag"
)

// App holds what every command needs. Cancel stops the root context and
// is how the app quits after a launch.
type App struct {
	Config *config.Instance
	Store  *library.Store
	Bridge *sandbox.Bridge
	Cmd    command.Executor
	Out    io.Writer
	Err    io.Writer
	Cancel context.CancelFunc
}

// Notify prints launch messages for the user.
func (a *App) Notify(message string) {
	_, _ = fmt.Fprintln(a.Err, message)
}

var (
	_ launch.Notifier = (*App)(nil)
	_ launch.Quitter  = (*App)(nil)
)

// Quit ends the running command by cancelling the root context.
func (a *App) Quit() {
	if a.Cancel != nil {
		a.Cancel()
	}
}

func (a *App) archiveOptions() []archive.Option {
	return []archive.Option{
		archive.WithExecutor(a.Cmd),
		archive.WithToolPath(a.Config.UnrarPath()),
	}
}

func (a *App) installer() *installer.Installer {
	opts := a.archiveOptions()
	return installer.NewInstaller(
		a.Config,
		archive.NewVerifier(opts...),
		archive.NewExtractor(opts...),
		a.Bridge,
	)
}

func (a *App) orchestrator() *launch.Orchestrator {
	client := steam.NewClient(a.Bridge, steam.DefaultOptions())
	builder := compat.NewBuilder(a.Bridge, a.Bridge.Fs(), client)
	backends := []launch.Backend{
		launch.NewDirectBackend(builder, a.Bridge),
		launch.NewExternalRunnerBackend(builder, a.Bridge, a.Bridge),
		launch.NewSteamShortcutBackend(builder, a.Bridge, client, a.Bridge.Fs(), a.Bridge),
	}
	return launch.NewOrchestrator(a.Config, a.Store, a, a, backends)
}

// Root builds the command tree.
func (a *App) Root() *Command {
	return &Command{
		Name:    config.AppName,
		Summary: "Install and launch Online-Fix games through Proton.",
		Subcommands: []*Command{
			a.installCommand(),
			a.verifyCommand(),
			a.titleCommand(),
			a.listCommand(),
			a.launchCommand(),
			a.uninstallCommand(),
		},
	}
}

func (a *App) findGame(ctx context.Context, query string) (library.Record, error) {
	records, err := a.Store.List(ctx, false)
	if err != nil {
		return library.Record{}, fmt.Errorf("failed to list games: %w", err)
	}
	rec, err := library.Match(records, query)
	if err != nil {
		return library.Record{}, fmt.Errorf("failed to find game: %w", err)
	}
	return rec, nil
}

func newFlags(name string) *pflag.FlagSet {
	return pflag.NewFlagSet(name, pflag.ContinueOnError)
}
