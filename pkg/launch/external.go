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

package launch

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/sofl-project/sofl-core/pkg/config"
	"github.com/sofl-project/sofl-core/pkg/launch/compat"
	"github.com/sofl-project/sofl-core/pkg/launch/steam"
	"github.com/sofl-project/sofl-core/pkg/library"
)

const (
	umuRun = "umu-run"

	// VendoredUmuPath is where the Flatpak build ships its own copy.
	VendoredUmuPath = "/app/bin/umu-run"
)

// ExternalRunnerBackend hands prefix and Proton management to umu-run.
type ExternalRunnerBackend struct {
	builder    *compat.Builder
	host       compat.Host
	runner     Runner
	lookPath   func(string) (string, error)
	localExist func(string) bool
}

func NewExternalRunnerBackend(builder *compat.Builder, host compat.Host, runner Runner) *ExternalRunnerBackend {
	return &ExternalRunnerBackend{
		builder:  builder,
		host:     host,
		runner:   runner,
		lookPath: exec.LookPath,
		localExist: func(path string) bool {
			info, err := os.Stat(path)
			return err == nil && !info.IsDir()
		},
	}
}

func (*ExternalRunnerBackend) ID() config.Backend {
	return config.BackendExternal
}

// findRunner returns umu-run and whether it lives on the host side of the
// sandbox.
func (b *ExternalRunnerBackend) findRunner(ctx context.Context, home string) (string, bool, error) {
	if path, err := b.lookPath(umuRun); err == nil {
		return path, false, nil
	}
	if b.localExist(VendoredUmuPath) {
		return VendoredUmuPath, false, nil
	}
	userPath := filepath.Join(home, ".local", "bin", umuRun)
	if b.host.FileExists(ctx, userPath) {
		return userPath, true, nil
	}
	return "", false, ErrToolUnavailable
}

// protonPath points umu at the installed build when there is one and
// otherwise passes the version name for umu to resolve.
func (b *ExternalRunnerBackend) protonPath(ctx context.Context, home, version string) string {
	tool := steam.ProtonPath(home, version)
	if b.host.FileExists(ctx, tool) {
		return filepath.Dir(tool)
	}
	return version
}

// Plan builds the umu-run launch for rec.
func (b *ExternalRunnerBackend) Plan(ctx context.Context, rec *library.Record, s *config.Launch) (*Plan, error) {
	exe, err := b.builder.Executable(rec)
	if err != nil {
		return nil, err //nolint:wrapcheck // sentinel errors are matched by the caller
	}
	home := b.host.HostHome(ctx)

	umu, onHost, err := b.findRunner(ctx, home)
	if err != nil {
		return nil, err
	}
	prefix, err := b.builder.EnsurePrefix(exe)
	if err != nil {
		return nil, err //nolint:wrapcheck // already describes the failed directory
	}

	sandboxed := onHost && b.host.IsSandboxed()
	env := b.builder.WineEnv(s, prefix, home, sandboxed)
	env["WINEPREFIX"] = prefix
	env["GAMEID"] = "umu-default"
	env["PROTONPATH"] = b.protonPath(ctx, home, s.ProtonVersion)
	env["STORE"] = "none"

	log.Debug().Str("umu", umu).Bool("host", onHost).Msg("using umu-run")
	return &Plan{
		Argv:      compat.WrapArgs(s.ArgsBefore, s.ArgsAfter, []string{umu, exe}),
		Env:       env,
		WorkDir:   filepath.Dir(exe),
		Sandboxed: sandboxed,
	}, nil
}

func (b *ExternalRunnerBackend) Launch(ctx context.Context, rec *library.Record, s *config.Launch) error {
	plan, err := b.Plan(ctx, rec, s)
	if err != nil {
		return err
	}
	return startPlan(ctx, b.runner, plan)
}
