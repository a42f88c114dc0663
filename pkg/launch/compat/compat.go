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

// Package compat builds the environment and command line that run a
// Windows executable through Proton.
package compat

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/sofl-project/sofl-core/pkg/config"
	"github.com/sofl-project/sofl-core/pkg/helpers"
	"github.com/sofl-project/sofl-core/pkg/launch/steam"
	"github.com/sofl-project/sofl-core/pkg/library"
	"github.com/spf13/afero"
)

const (
	// DefaultDLLOverrides forces the native DirectX and VR libraries that
	// ship with the game's fix.
	DefaultDLLOverrides = "d3d11=n;d3d10=n;d3d10core=n;dxgi=n;openvr_api_dxvk=n;d3d12=n;d3d12core=n;d3d9=n;d3d8=n;"

	// PrefixDirName is created next to the executable and holds the Wine
	// prefix.
	PrefixDirName = "OFME Prefix"

	SteamProcess = "steam"

	debugChannels = "+warn,+err,+trace"
	quietChannels = "-all"
)

var prefixUserDirs = []string{"AppData", "Saved Games", "Documents"}

var (
	ErrPlatformNotRunning       = errors.New("steam is not running")
	ErrCompatibilityToolMissing = errors.New("proton version not found")
	ErrInvalidExecutable        = errors.New("invalid executable path")
)

// ToolMissingError names the Proton build that could not be found.
type ToolMissingError struct {
	Version string
}

func (e *ToolMissingError) Error() string {
	return "proton version not found: " + e.Version
}

func (*ToolMissingError) Is(target error) bool {
	return target == ErrCompatibilityToolMissing
}

// Plan is everything needed to start one launch attempt. Argv is always
// discrete tokens.
type Plan struct {
	Env     map[string]string
	WorkDir string
	Argv    []string
	// Sandboxed means the process has to be started through the sandbox
	// bridge to reach the host.
	Sandboxed bool
}

// ToolReference is a Proton build resolved for one launch.
type ToolReference struct {
	VersionName  string
	ResolvedPath string
}

// Host answers questions about the machine the game runs on.
type Host interface {
	steam.Host
	HostHome(ctx context.Context) string
	IsProcessRunning(ctx context.Context, name string) bool
	IsSandboxed() bool
}

type Builder struct {
	host   Host
	steam  *steam.Client
	fs     afero.Fs
	getenv func(string) string
}

func NewBuilder(host Host, fs afero.Fs, steamClient *steam.Client) *Builder {
	return &Builder{
		host:   host,
		steam:  steamClient,
		fs:     fs,
		getenv: os.Getenv,
	}
}

// Executable returns the absolute executable path of rec.
func (b *Builder) Executable(rec *library.Record) (string, error) {
	exists := func(p string) bool {
		if !filepath.IsAbs(p) {
			p = filepath.Join(rec.Path, p)
		}
		ok, err := afero.Exists(b.fs, p)
		return err == nil && ok
	}
	exe := helpers.NormalizeExecutablePath(rec.Executable, exists)
	if exe == "" {
		return "", ErrInvalidExecutable
	}
	if !filepath.IsAbs(exe) {
		if rec.Path == "" {
			return "", fmt.Errorf("%w: %s is relative and the game has no path", ErrInvalidExecutable, exe)
		}
		exe = filepath.Join(rec.Path, exe)
	}
	return filepath.Clean(exe), nil
}

// ResolveTool finds the named Proton build under the host home.
func (b *Builder) ResolveTool(ctx context.Context, home, version string) (ToolReference, error) {
	path := steam.ProtonPath(home, version)
	if !b.host.FileExists(ctx, path) {
		return ToolReference{}, &ToolMissingError{Version: version}
	}
	return ToolReference{VersionName: version, ResolvedPath: path}, nil
}

// PrefixPath is the prefix directory used for exe.
func PrefixPath(exe string) string {
	return filepath.Join(filepath.Dir(exe), PrefixDirName)
}

// EnsurePrefix creates the prefix tree Proton and the game's fix expect.
// Existing directories are left alone.
func (b *Builder) EnsurePrefix(exe string) (string, error) {
	prefix := PrefixPath(exe)
	user := filepath.Join(prefix, "pfx", "drive_c", "users", "steamuser")
	for _, dir := range prefixUserDirs {
		if err := b.fs.MkdirAll(filepath.Join(user, dir), 0o755); err != nil {
			return "", fmt.Errorf("failed to create prefix directory %s: %w", dir, err)
		}
	}
	return prefix, nil
}

// WineEnv is the environment shared by every Proton based backend.
func (b *Builder) WineEnv(s *config.Launch, prefix, home string, sandboxed bool) map[string]string {
	channels := quietChannels
	if s.Debug {
		channels = debugChannels
	}
	env := map[string]string{
		"WINEDLLOVERRIDES":                 DefaultDLLOverrides + s.DLLOverrides,
		"WINEDEBUG":                        channels,
		"STEAM_COMPAT_DATA_PATH":           prefix,
		"STEAM_COMPAT_CLIENT_INSTALL_PATH": filepath.Join(home, ".steam", "steam"),
	}

	if s.SteamOverlay {
		if sandboxed {
			log.Warn().Msg("steam overlay is not available from the sandbox, skipping LD_PRELOAD")
		} else {
			steamDir := filepath.Join(home, ".local", "share", "Steam")
			parts := []string{
				b.getenv("LD_PRELOAD"),
				filepath.Join(steamDir, "ubuntu12_32", "gameoverlayrenderer.so"),
				filepath.Join(steamDir, "ubuntu12_64", "gameoverlayrenderer.so"),
			}
			if parts[0] == "" {
				parts = parts[1:]
			}
			env["LD_PRELOAD"] = strings.Join(parts, ":")
		}
	}
	return env
}

// Runtime returns the Steam Linux Runtime wrapper, or "" to launch without
// one.
func (b *Builder) Runtime(ctx context.Context, home string) string {
	run, err := b.steam.FindRuntime(ctx, home)
	if err != nil {
		log.Info().Err(err).Msg("launching without Steam runtime")
		return ""
	}
	return run
}

// WrapArgs surrounds core with the user's before and after arguments. A
// string that fails to tokenize is dropped.
func WrapArgs(before, after string, core []string) []string {
	argv := make([]string, 0, len(core)+4)
	argv = append(argv, splitOrDrop("before", before)...)
	argv = append(argv, core...)
	return append(argv, splitOrDrop("after", after)...)
}

func splitOrDrop(which, s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	args, err := helpers.SplitArgs(s)
	if err != nil {
		log.Warn().Err(err).Str("args", s).Msgf("failed to parse launch arguments %s the game, ignoring them", which)
		return nil
	}
	return args
}

// Build prepares a direct Proton launch of rec. Hard failures return before
// anything is created or spawned, apart from the prefix tree.
func (b *Builder) Build(ctx context.Context, rec *library.Record, s *config.Launch) (*Plan, error) {
	exe, err := b.Executable(rec)
	if err != nil {
		return nil, err
	}

	home := b.host.HostHome(ctx)
	if !b.host.IsProcessRunning(ctx, SteamProcess) {
		return nil, ErrPlatformNotRunning
	}

	tool, err := b.ResolveTool(ctx, home, s.ProtonVersion)
	if err != nil {
		return nil, err
	}

	prefix, err := b.EnsurePrefix(exe)
	if err != nil {
		return nil, err
	}

	sandboxed := b.host.IsSandboxed()
	env := b.WineEnv(s, prefix, home, sandboxed)

	core := make([]string, 0, 4)
	if s.SteamRuntime {
		if run := b.Runtime(ctx, home); run != "" {
			core = append(core, run)
		}
	}
	core = append(core, tool.ResolvedPath, "run", exe)

	plan := &Plan{
		Argv:      WrapArgs(s.ArgsBefore, s.ArgsAfter, core),
		Env:       env,
		WorkDir:   filepath.Dir(exe),
		Sandboxed: sandboxed,
	}
	log.Debug().
		Strs("argv", plan.Argv).
		Str("proton", tool.VersionName).
		Bool("sandboxed", sandboxed).
		Msg("built launch plan")
	return plan, nil
}
