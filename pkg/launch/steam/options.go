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

package steam

// Options configures Steam discovery and launching.
type Options struct {
	// FallbackPath is used if Steam directory detection fails.
	FallbackPath string

	// ExtraPaths are additional Steam roots to check after the standard ones.
	ExtraPaths []string

	// UseXdgOpen opens steam:// URLs with xdg-open. When false the steam
	// command is called directly.
	UseXdgOpen bool

	// CheckFlatpak also looks for a Flatpak Steam install.
	CheckFlatpak bool
}

// DefaultOptions suits a desktop Linux session.
func DefaultOptions() Options {
	return Options{
		FallbackPath: "/usr/games/steam",
		UseXdgOpen:   true,
		CheckFlatpak: true,
	}
}
