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

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/andygrunwald/vdf"
	"github.com/rs/zerolog/log"
)

// SniperAppID is the Steam app id of Steam Linux Runtime 3.0 (sniper).
const SniperAppID = "1628350"

var ErrRuntimeNotFound = errors.New("steam linux runtime not found")

// LibraryFolder is one entry of libraryfolders.vdf.
type LibraryFolder struct {
	Apps map[string]string
	Path string
}

// LibraryFoldersPath is the manifest listing every Steam library.
func LibraryFoldersPath(home string) string {
	return filepath.Join(home, ".steam", "steam", "steamapps", "libraryfolders.vdf")
}

// ParseLibraryFolders reads the text VDF library manifest. Folders come
// back in the order of their numeric ids.
func ParseLibraryFolders(data []byte) ([]LibraryFolder, error) {
	m, err := vdf.NewParser(bytes.NewReader(data)).Parse()
	if err != nil {
		return nil, fmt.Errorf("error parsing libraryfolders.vdf: %w", err)
	}
	m = normalizeVDFKeys(m)

	lfs, ok := m["libraryfolders"].(map[string]any)
	if !ok {
		return nil, errors.New("libraryfolders is not a map")
	}

	ids := make([]string, 0, len(lfs))
	for id := range lfs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	folders := make([]LibraryFolder, 0, len(ids))
	for _, id := range ids {
		ls, ok := lfs[id].(map[string]any)
		if !ok {
			log.Debug().Msgf("library %s is not a map", id)
			continue
		}
		path, ok := ls["path"].(string)
		if !ok {
			log.Debug().Msgf("library %s path is not a string", id)
			continue
		}
		folder := LibraryFolder{Path: path, Apps: map[string]string{}}
		if apps, ok := ls["apps"].(map[string]any); ok {
			for appID, size := range apps {
				s, _ := size.(string)
				folder.Apps[appID] = s
			}
		}
		folders = append(folders, folder)
	}
	return folders, nil
}

// FindSniperRuntime returns the run script of the sniper runtime from the
// first library that has it installed.
func (c *Client) FindSniperRuntime(ctx context.Context, home string) (string, error) {
	manifest := LibraryFoldersPath(home)
	data, err := c.host.ReadFile(ctx, manifest)
	if err != nil {
		return "", fmt.Errorf("could not read %s: %w", manifest, err)
	}
	folders, err := ParseLibraryFolders(data)
	if err != nil {
		return "", err
	}

	for _, f := range folders {
		if _, ok := f.Apps[SniperAppID]; !ok {
			continue
		}
		run := filepath.Join(f.Path, "steamapps", "common", "SteamLinuxRuntime_sniper", "run")
		if c.host.IsRegularFile(ctx, run) {
			return run, nil
		}
	}
	return "", ErrRuntimeNotFound
}

// LegacyRuntimePath is the scout runtime bundled with the Steam client.
func LegacyRuntimePath(home string) string {
	return filepath.Join(home, ".local", "share", "Steam", "ubuntu12_32", "steam-runtime", "run.sh")
}

// FindRuntime returns the best runtime wrapper: sniper from the libraries,
// then the bundled legacy runtime. ErrRuntimeNotFound means launch without
// one.
func (c *Client) FindRuntime(ctx context.Context, home string) (string, error) {
	run, err := c.FindSniperRuntime(ctx, home)
	if err == nil {
		return run, nil
	}
	log.Debug().Err(err).Msg("sniper runtime unavailable")

	legacy := LegacyRuntimePath(home)
	if c.host.IsRegularFile(ctx, legacy) {
		return legacy, nil
	}
	return "", ErrRuntimeNotFound
}
