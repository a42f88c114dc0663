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

package archive

import (
	"errors"
	"os"
	"os/exec"

	"github.com/rs/zerolog/log"
)

// fallbackToolPaths are checked after PATH. The first entry is where the
// Flatpak build vendors unrar.
var fallbackToolPaths = []string{
	"/app/bin/unrar",
	"/usr/bin/unrar",
	"/bin/unrar",
}

var errToolNotFound = errors.New("unrar not found")

type toolFinder struct {
	lookPath   func(string) (string, error)
	isExec     func(string) bool
	configured string
}

func newToolFinder(configured string) toolFinder {
	return toolFinder{
		configured: configured,
		lookPath:   exec.LookPath,
		isExec:     isExecutable,
	}
}

func (f toolFinder) find() (string, error) {
	if f.configured != "" {
		if f.isExec(f.configured) {
			return f.configured, nil
		}
		log.Warn().Str("path", f.configured).Msg("configured unrar path is not executable")
	}
	if p, err := f.lookPath("unrar"); err == nil {
		return p, nil
	}
	for _, p := range fallbackToolPaths {
		if f.isExec(p) {
			return p, nil
		}
	}
	return "", errToolNotFound
}

func regularFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
