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

package installer

// ignoredExecutables are bundled helpers that are never the game itself.
// Matching is on the exact file name.
var ignoredExecutables = map[string]struct{}{
	// Unity
	"UnityHandler64.exe":      {},
	"UnityHandler.exe":        {},
	"UnityCrashHandler.exe":   {},
	"UnityCrashHandler64.exe": {},

	// launchers and installers
	"launcher.exe":       {},
	"LauncherHelper.exe": {},
	"setup.exe":          {},
	"install.exe":        {},
	"unins000.exe":       {},
	"InstallerTool.exe":  {},
	"Updater.exe":        {},
	"REDprelauncher.exe": {},

	// redistributables
	"redist.exe":                {},
	"vcredist.exe":              {},
	"vc_redist.exe":             {},
	"directx_setup.exe":         {},
	"dxsetup.exe":               {},
	"DXSETUP.exe":               {},
	"dotNetFx40_Full_setup.exe": {},
	"PhysXUpdateLauncher.exe":   {},
	"PhysXExtensions.exe":       {},

	// Steam
	"steam_api.exe":     {},
	"steam_api64.exe":   {},
	"steamclient.exe":   {},
	"steamclient64.exe": {},
	"SteamSetup.exe":    {},
	"SteamInstall.exe":  {},

	// tools
	"CrashReporter.exe": {},
	"binkw32.exe":       {},
	"binkw64.exe":       {},
	"ScummVM.exe":       {},
	"WinRAR.exe":        {},
	"7zG.exe":           {},
	"Editor.exe":        {},
	"Configurator.exe":  {},
}

func isIgnoredExecutable(name string) bool {
	_, ok := ignoredExecutables[name]
	return ok
}
