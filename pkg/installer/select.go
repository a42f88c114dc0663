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
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"sync"

	"github.com/charlievieth/fastwalk"
	"github.com/rs/zerolog/log"
)

// minExecutableSize is the size under which an executable is assumed to be
// a stub or helper rather than the game.
const minExecutableSize = 100 * 1024

type candidate struct {
	path string
	size int64
}

// SelectExecutable picks the game's main executable under gameDir. Known
// helper executables and files under 100 KiB are passed over, root level
// files win over nested ones, and larger files win ties. When filtering
// leaves nothing, the filters are relaxed instead of giving up. It returns
// false only when gameDir holds no executables at all.
func SelectExecutable(gameDir string) (string, bool) {
	all, err := findExecutables(gameDir)
	if err != nil {
		log.Error().Err(err).Str("dir", gameDir).Msg("error when searching for executable file")
	}
	if len(all) == 0 {
		log.Warn().Str("dir", gameDir).Msg("executable files not found")
		return "", false
	}

	allowed := make([]candidate, 0, len(all))
	for _, c := range all {
		if !isIgnoredExecutable(filepath.Base(c.path)) {
			allowed = append(allowed, c)
		}
	}

	sized := make([]candidate, 0, len(allowed))
	for _, c := range allowed {
		if c.size >= minExecutableSize {
			sized = append(sized, c)
		}
	}

	pool := sized
	if len(pool) == 0 {
		pool = allowed
	}
	if len(pool) == 0 {
		log.Warn().Msg("all executable files are in the ignored list")
		return all[0].path, true
	}

	return best(pool, filepath.Clean(gameDir)).path, true
}

// best prefers files directly in root, then the largest. pool is sorted by
// path, which settles equal sizes.
func best(pool []candidate, root string) candidate {
	var top candidate
	topAtRoot := false
	for i, c := range pool {
		atRoot := filepath.Dir(c.path) == root
		switch {
		case i == 0:
		case atRoot && !topAtRoot:
		case atRoot == topAtRoot && c.size > top.size:
		default:
			continue
		}
		top, topAtRoot = c, atRoot
	}
	return top
}

// findExecutables walks gameDir and returns every executable sorted by
// path. Unreadable subtrees are skipped.
func findExecutables(gameDir string) ([]candidate, error) {
	var (
		mu    sync.Mutex
		found []candidate
	)

	conf := fastwalk.Config{Follow: false}
	err := fastwalk.Walk(&conf, gameDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			log.Debug().Err(err).Str("path", path).Msg("skipping unreadable path")
			return nil
		}
		if d.IsDir() || !IsExecutableName(d.Name()) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil //nolint:nilerr // vanished between listing and stat
		}
		mu.Lock()
		found = append(found, candidate{path: path, size: info.Size()})
		mu.Unlock()
		return nil
	})

	sort.Slice(found, func(i, j int) bool { return found[i].path < found[j].path })
	if err != nil {
		return found, fmt.Errorf("failed to walk %s: %w", gameDir, err)
	}
	return found, nil
}
