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

// Package launch starts installed games through the backend selected in
// settings. Backends are never chained: the selected one either starts the
// game or its error is reported.
package launch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/sofl-project/sofl-core/pkg/config"
	"github.com/sofl-project/sofl-core/pkg/launch/compat"
	"github.com/sofl-project/sofl-core/pkg/library"
)

// Plan is a fully resolved launch: argv, environment and working directory.
type Plan = compat.Plan

var (
	ErrUnknownBackend  = errors.New("unknown launch backend")
	ErrToolUnavailable = errors.New("umu-run not found")
)

// Runner starts processes on either side of the sandbox boundary.
type Runner interface {
	RunOnHost(ctx context.Context, argv []string, env map[string]string, workDir string) (*os.Process, error)
	RunLocal(ctx context.Context, argv []string, env map[string]string, workDir string) (*os.Process, error)
}

// Backend is one way of starting a game.
type Backend interface {
	ID() config.Backend
	Launch(ctx context.Context, rec *library.Record, s *config.Launch) error
}

type SettingsSource interface {
	LaunchSettings() config.Launch
}

type RecordStore interface {
	UpdateLastPlayed(ctx context.Context, gameID string, at time.Time) error
}

// Notifier shows short messages to the user.
type Notifier interface {
	Notify(message string)
}

// Quitter ends the host application.
type Quitter interface {
	Quit()
}

// Error is a failed launch attempt.
type Error struct {
	Err     error
	Backend config.Backend
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s launch failed: %v", e.Backend, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Message is the text shown to the user for this failure.
func (e *Error) Message() string {
	var missing *compat.ToolMissingError
	switch {
	case errors.Is(e.Err, compat.ErrInvalidExecutable):
		return "Invalid executable path"
	case errors.Is(e.Err, compat.ErrPlatformNotRunning):
		return "Steam is not running"
	case errors.As(e.Err, &missing):
		return "Proton version not found: " + missing.Version
	case errors.Is(e.Err, ErrToolUnavailable):
		return "umu-run was not found, install umu-launcher or pick another launcher"
	case errors.Is(e.Err, ErrUnknownBackend):
		return fmt.Sprintf("Unknown launcher type: %s", e.Backend)
	default:
		return fmt.Sprintf("Failed to launch game: %v", e.Err)
	}
}

type Orchestrator struct {
	settings SettingsSource
	store    RecordStore
	notifier Notifier
	quitter  Quitter
	clock    clockwork.Clock
	backends map[config.Backend]Backend
}

type OrchestratorOption func(*Orchestrator)

func WithClock(clock clockwork.Clock) OrchestratorOption {
	return func(o *Orchestrator) { o.clock = clock }
}

func NewOrchestrator(
	settings SettingsSource,
	store RecordStore,
	notifier Notifier,
	quitter Quitter,
	backends []Backend,
	opts ...OrchestratorOption,
) *Orchestrator {
	o := &Orchestrator{
		settings: settings,
		store:    store,
		notifier: notifier,
		quitter:  quitter,
		clock:    clockwork.NewRealClock(),
		backends: make(map[config.Backend]Backend, len(backends)),
	}
	for _, b := range backends {
		o.backends[b.ID()] = b
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Launch starts rec with the backend named in the current settings. On
// success the last played time is stored on rec and in the store.
func (o *Orchestrator) Launch(ctx context.Context, rec *library.Record) error {
	s := o.settings.LaunchSettings()
	log.Info().Str("game", rec.GameID).Str("backend", string(s.Backend)).Msg("launching game")

	backend, ok := o.backends[s.Backend]
	if !ok {
		return o.fail(&Error{Backend: s.Backend, Err: ErrUnknownBackend})
	}
	if err := backend.Launch(ctx, rec, &s); err != nil {
		return o.fail(&Error{Backend: s.Backend, Err: err})
	}

	now := o.clock.Now()
	rec.LastPlayed = now
	if o.store != nil {
		if err := o.store.UpdateLastPlayed(ctx, rec.GameID, now); err != nil {
			log.Warn().Err(err).Str("game", rec.GameID).Msg("failed to save last played time")
		}
	}

	o.notify(launchedMessage(rec, &s))
	if s.ExitAfterLaunch && o.quitter != nil {
		log.Info().Msg("exiting after launch")
		o.quitter.Quit()
	}
	return nil
}

func (o *Orchestrator) fail(err *Error) error {
	log.Error().Err(err.Err).Str("backend", string(err.Backend)).Msg("launch failed")
	o.notify(err.Message())
	return err
}

func (o *Orchestrator) notify(msg string) {
	if o.notifier != nil {
		o.notifier.Notify(msg)
	}
}

func launchedMessage(rec *library.Record, s *config.Launch) string {
	switch s.Backend {
	case config.BackendExternal:
		return fmt.Sprintf("%s launched with umu-run", rec.Name)
	case config.BackendSteamShortcut:
		return fmt.Sprintf("%s launched through Steam", rec.Name)
	default:
		return fmt.Sprintf("%s launched directly with Proton %s", rec.Name, s.ProtonVersion)
	}
}

// startPlan starts plan detached from ctx so cancelling the caller never
// kills the game.
func startPlan(ctx context.Context, runner Runner, plan *Plan) error {
	run := runner.RunLocal
	if plan.Sandboxed {
		run = runner.RunOnHost
	}
	proc, err := run(context.WithoutCancel(ctx), plan.Argv, plan.Env, plan.WorkDir)
	if err != nil {
		return err
	}
	log.Info().Int("pid", proc.Pid).Msg("game process started")
	return nil
}
