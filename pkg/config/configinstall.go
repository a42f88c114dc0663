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

type Install struct {
	Root      string `toml:"root" validate:"required"`
	Password  string `toml:"password" validate:"required"`
	UnrarPath string `toml:"unrar_path,omitempty"`
}

// InstallRoot returns the directory archives are extracted into, with a
// leading "~" expanded.
func (c *Instance) InstallRoot() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return expandHome(c.vals.Install.Root, c.homeDir)
}

func (c *Instance) SetInstallRoot(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Install.Root = path
}

func (c *Instance) ArchivePassword() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Install.Password
}

// UnrarPath returns the user-configured unrar binary, or "" to search for one.
func (c *Instance) UnrarPath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return expandHome(c.vals.Install.UnrarPath, c.homeDir)
}
