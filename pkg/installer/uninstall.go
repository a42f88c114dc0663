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

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/sofl-project/sofl-core/pkg/helpers"
)

var (
	// ErrNotManaged means the game lives outside the install root. The
	// caller should drop it from the library without touching the disk.
	ErrNotManaged = errors.New("game is not installed in the install root")
	ErrRootRemove = errors.New("refusing to remove the install root")
)

// GameRoot finds the folder to delete for a game whose executable lives
// under installRoot: the first path component below the root if that is a
// directory, else the executable's parent.
func GameRoot(installRoot, executable string) (string, error) {
	root := filepath.Clean(installRoot)
	exe := filepath.Clean(helpers.NormalizeExecutablePath(executable, exists))
	if exe == "." || !helpers.PathWithin(root, exe) {
		return "", ErrNotManaged
	}

	rel, err := filepath.Rel(root, exe)
	if err != nil {
		return "", fmt.Errorf("failed to relativize %s: %w", exe, err)
	}
	first, _, _ := strings.Cut(rel, string(filepath.Separator))
	if candidate := filepath.Join(root, first); candidate != exe {
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate, nil
		}
	}
	return filepath.Dir(exe), nil
}

// Uninstall deletes the game folder for executable and returns it. Nothing
// outside installRoot is removed, nor installRoot itself.
func Uninstall(installRoot, executable string) (string, error) {
	dir, err := GameRoot(installRoot, executable)
	if err != nil {
		return "", err
	}
	if filepath.Clean(dir) == filepath.Clean(installRoot) {
		return "", fmt.Errorf("%w: %s", ErrRootRemove, dir)
	}
	if !helpers.PathWithin(installRoot, dir) {
		return "", fmt.Errorf("%w: %s", ErrEscapesRoot, dir)
	}

	log.Info().Str("dir", dir).Msg("removing game folder")
	if err := os.RemoveAll(dir); err != nil {
		return "", fmt.Errorf("failed to remove %s: %w", dir, err)
	}
	return dir, nil
}
