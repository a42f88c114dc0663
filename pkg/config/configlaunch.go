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

package config

// Backend selects how a game is started. Backends are never chained: a
// failure in the selected one is reported to the user as is.
type Backend string

const (
	BackendDirect        Backend = "direct"
	BackendExternal      Backend = "umu"
	BackendSteamShortcut Backend = "steam-shortcut"
)

type Launch struct {
	Backend         Backend `toml:"backend" validate:"oneof=direct umu steam-shortcut"`
	ProtonVersion   string  `toml:"proton_version" validate:"required,excludesall=/\\"`
	DLLOverrides    string  `toml:"dll_overrides,omitempty"`
	ArgsBefore      string  `toml:"args_before,omitempty"`
	ArgsAfter       string  `toml:"args_after,omitempty"`
	Debug           bool    `toml:"debug"`
	SteamOverlay    bool    `toml:"steam_overlay"`
	SteamRuntime    bool    `toml:"steam_runtime"`
	ExitAfterLaunch bool    `toml:"exit_after_launch"`
}

// LaunchSettings returns a copy of the current launch settings so a launch
// attempt sees one consistent view even if the config is edited meanwhile.
func (c *Instance) LaunchSettings() Launch {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Launch
}

func (c *Instance) LaunchBackend() Backend {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Launch.Backend
}

func (c *Instance) SetLaunchBackend(b Backend) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Launch.Backend = b
}

func (c *Instance) ProtonVersion() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Launch.ProtonVersion
}

func (c *Instance) SetProtonVersion(version string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Launch.ProtonVersion = version
}

func (c *Instance) ExitAfterLaunch() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Launch.ExitAfterLaunch
}
