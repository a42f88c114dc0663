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
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/sofl-project/sofl-core/pkg/config"
	"github.com/sofl-project/sofl-core/pkg/helpers"
	"github.com/sofl-project/sofl-core/pkg/launch/compat"
	"github.com/sofl-project/sofl-core/pkg/launch/steam"
	"github.com/sofl-project/sofl-core/pkg/library"
	"github.com/spf13/afero"
)

// ShortcutTag groups SOFL games in the Steam library.
const ShortcutTag = "SOFL"

// SteamShortcutBackend adds the game to Steam as a non-Steam shortcut that
// runs proton, then asks Steam to start it.
type SteamShortcutBackend struct {
	builder *compat.Builder
	host    compat.Host
	client  *steam.Client
	fs      afero.Fs
	runner  Runner
}

// NewSteamShortcutBackend writes shortcuts through fs, which must reach the
// host's Steam directory.
func NewSteamShortcutBackend(
	builder *compat.Builder,
	host compat.Host,
	client *steam.Client,
	fs afero.Fs,
	runner Runner,
) *SteamShortcutBackend {
	return &SteamShortcutBackend{
		builder: builder,
		host:    host,
		client:  client,
		fs:      fs,
		runner:  runner,
	}
}

func (*SteamShortcutBackend) ID() config.Backend {
	return config.BackendSteamShortcut
}

// Shortcut describes the Steam entry for rec.
func (b *SteamShortcutBackend) Shortcut(
	ctx context.Context,
	rec *library.Record,
	s *config.Launch,
) (steam.ShortcutSpec, error) {
	exe, err := b.builder.Executable(rec)
	if err != nil {
		return steam.ShortcutSpec{}, err //nolint:wrapcheck // sentinel errors are matched by the caller
	}

	home := b.host.HostHome(ctx)
	if !b.host.IsProcessRunning(ctx, compat.SteamProcess) {
		return steam.ShortcutSpec{}, compat.ErrPlatformNotRunning
	}
	tool, err := b.builder.ResolveTool(ctx, home, s.ProtonVersion)
	if err != nil {
		return steam.ShortcutSpec{}, err //nolint:wrapcheck // sentinel errors are matched by the caller
	}
	prefix, err := b.builder.EnsurePrefix(exe)
	if err != nil {
		return steam.ShortcutSpec{}, err //nolint:wrapcheck // already describes the failed directory
	}

	env := b.builder.WineEnv(s, prefix, home, true)
	// Steam sets these itself for shortcuts it launches.
	delete(env, "LD_PRELOAD")
	delete(env, "STEAM_COMPAT_CLIENT_INSTALL_PATH")

	return steam.ShortcutSpec{
		AppName:       rec.Name,
		Exe:           tool.ResolvedPath,
		StartDir:      filepath.Dir(exe),
		LaunchOptions: launchOptions(env, s, exe),
		Tags:          []string{ShortcutTag},
	}, nil
}

func (b *SteamShortcutBackend) Launch(ctx context.Context, rec *library.Record, s *config.Launch) error {
	spec, err := b.Shortcut(ctx, rec, s)
	if err != nil {
		return err
	}

	steamDir := b.client.FindSteamDir(ctx, b.host.HostHome(ctx))
	appID, err := steam.UpsertShortcut(ctx, b.fs, steamDir, spec)
	if err != nil {
		return err //nolint:wrapcheck // already describes the failed file
	}

	url := steam.ShortcutURL(appID)
	log.Info().Str("url", url).Msg("opening steam shortcut")
	_, err = b.runner.RunOnHost(context.WithoutCancel(ctx), b.client.LaunchCommand(url), nil, "")
	return err //nolint:wrapcheck // bridge errors name the command
}

// launchOptions renders the Steam launch options line:
// ENV=... before... %command% run <exe> after...
func launchOptions(env map[string]string, s *config.Launch, exe string) string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys)+8)
	for _, k := range keys {
		parts = append(parts, k+"="+shellQuote(env[k]))
	}
	parts = append(parts, quoteAll(splitSetting(s.ArgsBefore))...)
	parts = append(parts, "%command%", "run", shellQuote(exe))
	parts = append(parts, quoteAll(splitSetting(s.ArgsAfter))...)
	return strings.Join(parts, " ")
}

func splitSetting(s string) []string {
	args, err := helpers.SplitArgs(s)
	if err != nil {
		log.Warn().Err(err).Msg("ignoring launch arguments")
		return nil
	}
	return args
}

func quoteAll(args []string) []string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = shellQuote(a)
	}
	return out
}

// shellQuote single-quotes s unless it only holds characters that are safe
// unquoted.
func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	safe := true
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || strings.ContainsRune("-_./:,+=@%", r)) {
			safe = false
			break
		}
	}
	if safe {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
