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

// Package steam finds a Steam install on the host and reads and writes the
// parts of it needed to launch games: library folders, the Linux runtime
// and non-Steam shortcuts.
package steam

import (
	"context"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

// FlatpakSteamID is the Flatpak app ID for Steam.
const FlatpakSteamID = "com.valvesoftware.Steam"

// Host is the view of the host filesystem the client works through.
type Host interface {
	FileExists(ctx context.Context, path string) bool
	IsRegularFile(ctx context.Context, path string) bool
	ReadFile(ctx context.Context, path string) ([]byte, error)
}

type Client struct {
	host Host
	opts Options
}

//nolint:gocritic // options struct copied for immutability
func NewClient(host Host, opts Options) *Client {
	return &Client{host: host, opts: opts}
}

func (c *Client) Options() Options {
	return c.opts
}

// FindSteamDir locates the Steam installation under the host home.
func (c *Client) FindSteamDir(ctx context.Context, home string) string {
	paths := []string{
		filepath.Join(home, ".steam", "steam"),
		filepath.Join(home, ".local", "share", "Steam"),
	}
	paths = append(paths, c.opts.ExtraPaths...)
	if c.opts.CheckFlatpak {
		paths = append(paths, filepath.Join(home, ".var", "app", FlatpakSteamID, ".steam", "steam"))
	}
	paths = append(paths,
		filepath.Join(home, "snap", "steam", "common", ".steam", "steam"),
		"/usr/games/steam",
		"/opt/steam",
	)

	for _, path := range paths {
		if c.host.FileExists(ctx, path) {
			log.Debug().Msgf("found Steam installation: %s", path)
			return path
		}
	}

	log.Debug().Msgf("Steam detection failed, using fallback: %s", c.opts.FallbackPath)
	return c.opts.FallbackPath
}

// CompatToolsDir is where custom Proton builds are installed.
func CompatToolsDir(home string) string {
	return filepath.Join(home, ".local", "share", "Steam", "compatibilitytools.d")
}

// ProtonPath returns the proton script for a named tool version.
func ProtonPath(home, version string) string {
	return filepath.Join(CompatToolsDir(home), version, "proton")
}
