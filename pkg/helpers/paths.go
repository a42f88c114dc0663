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

package helpers

import (
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/google/shlex"
	"github.com/sofl-project/sofl-core/pkg/config"
)

// ConfigDir is where sofl.toml lives.
func ConfigDir() string {
	return filepath.Join(xdg.ConfigHome, config.AppName)
}

// DataDir holds the library database.
func DataDir() string {
	return filepath.Join(xdg.DataHome, config.AppName)
}

// LogDir holds the rotating log file.
func LogDir() string {
	return filepath.Join(xdg.StateHome, config.AppName)
}

// TempDir is the scratch directory restricted files are copied into.
func TempDir() string {
	return filepath.Join(xdg.CacheHome, config.TempDirName)
}

// PathWithin reports whether target is root itself or lies beneath it after
// both are cleaned. It does not resolve symlinks.
func PathWithin(root, target string) bool {
	root = filepath.Clean(root)
	target = filepath.Clean(target)
	if root == target {
		return true
	}
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}

// NormalizeExecutablePath turns a stored executable value into a bare path.
// Values may be quoted, or carry arguments after the path. exists is used to
// accept a literal path containing spaces before trying to tokenize it.
func NormalizeExecutablePath(value string, exists func(string) bool) string {
	s := strings.TrimSpace(value)
	if s == "" {
		return ""
	}
	if len(s) >= 2 && (s[0] == '"' && s[len(s)-1] == '"' || s[0] == '\'' && s[len(s)-1] == '\'') {
		s = s[1 : len(s)-1]
	}
	if exists != nil && exists(s) {
		return s
	}

	if tokens, err := shlex.Split(value); err == nil && len(tokens) > 0 {
		return tokens[0]
	}

	cleaned := strings.TrimSpace(strings.NewReplacer(`"`, "", "'", "").Replace(value))
	if fields := strings.Fields(cleaned); len(fields) > 0 {
		return fields[0]
	}
	return ""
}
