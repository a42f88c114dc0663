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

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sofl-project/sofl-core/internal/telemetry"
	"github.com/sofl-project/sofl-core/pkg/cli"
	"github.com/sofl-project/sofl-core/pkg/config"
	"github.com/sofl-project/sofl-core/pkg/helpers"
	"github.com/sofl-project/sofl-core/pkg/helpers/command"
	"github.com/sofl-project/sofl-core/pkg/library"
	"github.com/sofl-project/sofl-core/pkg/sandbox"
	"github.com/spf13/afero"
)

func main() {
	if err := run(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		if errors.Is(err, cli.ErrUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.NewConfig(helpers.ConfigDir(), config.BaseDefaults)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	var logWriters []io.Writer
	if cfg.DebugLogging() {
		logWriters = append(logWriters, zerolog.ConsoleWriter{Out: os.Stderr})
	}
	if err := helpers.InitLogging(helpers.LogDir(), cfg.DebugLogging(), logWriters...); err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}

	detector := sandbox.NewFlatpakDetector(afero.NewOsFs())
	if err := telemetry.Init(cfg.ErrorReporting(), config.AppVersion, detector.IsSandboxed()); err != nil {
		log.Warn().Err(err).Msg("error reporting not started")
	}
	defer telemetry.Close()

	defer func() {
		if r := recover(); r != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Panic: %v\n", r)
			log.Fatal().Msgf("panic: %v", r)
		}
	}()

	log.Info().
		Str("version", config.AppVersion).
		Bool("sandboxed", detector.IsSandboxed()).
		Msg("starting sofl")

	store, err := library.Open(ctx, filepath.Join(helpers.DataDir(), config.LibraryDbFile))
	if err != nil {
		return fmt.Errorf("failed to open game library: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close game library")
		}
	}()

	cmd := &command.RealExecutor{}
	app := &cli.App{
		Config: cfg,
		Store:  store,
		Bridge: sandbox.NewBridge(detector, cmd),
		Cmd:    cmd,
		Out:    os.Stdout,
		Err:    os.Stderr,
		Cancel: stop,
	}
	return app.Root().Execute(ctx, os.Stdout, os.Args[1:]) //nolint:wrapcheck // command errors are shown as is
}
