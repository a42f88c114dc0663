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
	"os"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog/log"
	"github.com/sofl-project/sofl-core/internal/vdfbinary"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
)

var ErrNoSteamUsers = errors.New("no Steam user config directories found")

// ShortcutSpec describes a non-Steam game shortcut to add or update.
type ShortcutSpec struct {
	AppName       string
	Exe           string
	StartDir      string
	LaunchOptions string
	Icon          string
	Tags          []string
}

// quoted wraps a path in double quotes the way Steam stores Exe and
// StartDir.
func quoted(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s
	}
	return `"` + s + `"`
}

// AppID is the shortcut id Steam derives for spec.
func (s ShortcutSpec) AppID() uint32 {
	return vdfbinary.ShortcutAppID(quoted(s.Exe), s.AppName)
}

// ShortcutFiles lists shortcuts.vdf paths of every Steam user that has a
// config directory. Files need not exist yet.
func ShortcutFiles(fs afero.Fs, steamDir string) ([]string, error) {
	userdataDir := filepath.Join(steamDir, "userdata")
	userDirs, err := afero.ReadDir(fs, userdataDir)
	if err != nil {
		return nil, fmt.Errorf("error reading Steam userdata directory: %w", err)
	}

	var files []string
	for _, userDir := range userDirs {
		if !userDir.IsDir() {
			continue
		}
		if _, err := strconv.ParseUint(userDir.Name(), 10, 32); err != nil {
			log.Debug().Str("name", userDir.Name()).Msg("skipping non-user entry in userdata")
			continue
		}
		configDir := filepath.Join(userdataDir, userDir.Name(), "config")
		if ok, _ := afero.DirExists(fs, configDir); !ok {
			continue
		}
		files = append(files, filepath.Join(configDir, "shortcuts.vdf"))
	}
	if len(files) == 0 {
		return nil, ErrNoSteamUsers
	}
	return files, nil
}

// ReadShortcuts parses a shortcuts.vdf. A missing file has no shortcuts.
func ReadShortcuts(fs afero.Fs, path string) ([]vdfbinary.Shortcut, error) {
	data, err := afero.ReadFile(fs, path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading %s: %w", path, err)
	}
	shortcuts, err := vdfbinary.ParseShortcuts(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("error parsing %s: %w", path, err)
	}
	return shortcuts, nil
}

// UpsertShortcut adds spec to the shortcuts of every Steam user, replacing
// an existing entry with the same app id. Files that fail to parse are left
// untouched and reported. It returns the shortcut's app id.
func UpsertShortcut(ctx context.Context, fs afero.Fs, steamDir string, spec ShortcutSpec) (uint32, error) {
	files, err := ShortcutFiles(fs, steamDir)
	if err != nil {
		return 0, err
	}

	appID := spec.AppID()
	g, _ := errgroup.WithContext(ctx)
	for _, path := range files {
		g.Go(func() error {
			return upsertFile(fs, path, appID, spec)
		})
	}
	if err := g.Wait(); err != nil {
		return 0, fmt.Errorf("failed to update shortcuts: %w", err)
	}
	log.Info().Uint32("appid", appID).Int("users", len(files)).Msg("steam shortcut written")
	return appID, nil
}

func upsertFile(fs afero.Fs, path string, appID uint32, spec ShortcutSpec) error {
	shortcuts, err := ReadShortcuts(fs, path)
	if err != nil {
		return err
	}

	entry := vdfbinary.Shortcut{
		AppID:              appID,
		AppName:            spec.AppName,
		Exe:                quoted(spec.Exe),
		StartDir:           quoted(spec.StartDir),
		Icon:               spec.Icon,
		LaunchOptions:      spec.LaunchOptions,
		Tags:               spec.Tags,
		AllowDesktopConfig: true,
		AllowOverlay:       true,
	}

	replaced := false
	for i := range shortcuts {
		if shortcuts[i].AppID != appID {
			continue
		}
		// keep what Steam tracks on its own
		entry.LastPlayTime = shortcuts[i].LastPlayTime
		entry.IsHidden = shortcuts[i].IsHidden
		shortcuts[i] = entry
		replaced = true
		break
	}
	if !replaced {
		shortcuts = append(shortcuts, entry)
	}

	var buf bytes.Buffer
	if err := vdfbinary.WriteShortcuts(&buf, shortcuts); err != nil {
		return fmt.Errorf("error encoding %s: %w", path, err)
	}

	tmp := path + ".tmp"
	if err := afero.WriteFile(fs, tmp, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("error writing %s: %w", tmp, err)
	}
	if err := fs.Rename(tmp, path); err != nil {
		_ = fs.Remove(tmp)
		return fmt.Errorf("error replacing %s: %w", path, err)
	}
	return nil
}

// BuildSteamURL builds a Steam launch URL from a game ID.
func BuildSteamURL(id string) string {
	return "steam://rungameid/" + id
}

// ShortcutURL is the launch URL of a non-Steam shortcut.
func ShortcutURL(appID uint32) string {
	return BuildSteamURL(strconv.FormatUint(vdfbinary.RunGameID(appID), 10))
}

// LaunchCommand returns the argv that opens url with the configured opener.
func (c *Client) LaunchCommand(url string) []string {
	if c.opts.UseXdgOpen {
		return []string{"xdg-open", url}
	}
	return []string{"steam", url}
}
