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
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/cases"
)

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9_.\-]`)

var folder = cases.Fold()

// SanitizeName makes a game name comparable with folder names: every
// character outside [A-Za-z0-9_.-] becomes "_" and the result is case
// folded.
func SanitizeName(name string) string {
	return folder.String(unsafeNameChars.ReplaceAllString(name, "_"))
}

// matchKey sanitizes s and maps the separators "." and "-" to "_", so a
// folder named "Bar.Game" matches the name "Bar Game".
func matchKey(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '.' || r == '-' {
			return '_'
		}
		return r
	}, SanitizeName(s))
}

// IsExecutableName reports whether a file name looks like a Windows
// executable.
func IsExecutableName(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".exe")
}

// ResolveGameFolder picks the directory inside destDir that holds the game
// extracted from an archive. Rules are checked in order:
//  1. no subdirectories: destDir
//  2. exactly one subdirectory: that one
//  3. a subdirectory whose sanitized name contains the sanitized
//     expectedName, or is contained by it
//  4. the first subdirectory with an executable directly inside
//  5. destDir
//
// Subdirectories are visited in name order, so repeated calls on the same
// tree agree.
func ResolveGameFolder(destDir, expectedName string) string {
	entries, err := os.ReadDir(destDir)
	if err != nil {
		log.Warn().Err(err).Str("dir", destDir).Msg("error when detecting game folder")
		return destDir
	}

	dirs := make([]string, 0, len(entries))
	for _, e := range entries {
		if isDir(destDir, e) {
			dirs = append(dirs, e.Name())
		}
	}

	switch len(dirs) {
	case 0:
		return destDir
	case 1:
		return filepath.Join(destDir, dirs[0])
	}

	want := matchKey(expectedName)
	if want != "" {
		for _, d := range dirs {
			name := matchKey(d)
			if strings.Contains(name, want) || strings.Contains(want, name) {
				return filepath.Join(destDir, d)
			}
		}
	}

	for _, d := range dirs {
		if hasExecutable(filepath.Join(destDir, d)) {
			return filepath.Join(destDir, d)
		}
	}

	return destDir
}

// isDir follows symlinks so a linked game folder still counts.
func isDir(parent string, e os.DirEntry) bool {
	if e.IsDir() {
		return true
	}
	if e.Type()&os.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(filepath.Join(parent, e.Name()))
	return err == nil && info.IsDir()
}

func hasExecutable(dir string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	for _, e := range entries {
		if !e.IsDir() && IsExecutableName(e.Name()) {
			return true
		}
	}
	return false
}
