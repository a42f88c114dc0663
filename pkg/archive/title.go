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
	"path/filepath"
	"regexp"
	"strings"
)

// Release archives are named like "Some.Game.v1.2.3.rar".
var titlePattern = regexp.MustCompile(`(^.*?)\.v`)

// ExtractTitle guesses a game title from an archive file name by taking
// everything before the first ".v" and turning dots into spaces. It
// returns "" when the name has no version marker.
func ExtractTitle(filename string) string {
	m := titlePattern.FindStringSubmatch(filepath.Base(filename))
	if m == nil {
		return ""
	}
	return strings.ReplaceAll(m[1], ".", " ")
}
