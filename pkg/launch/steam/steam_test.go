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
	"fmt"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/sofl-project/sofl-core/internal/vdfbinary"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memHost answers host queries from an in-memory filesystem.
type memHost struct {
	fs afero.Fs
}

func (h memHost) FileExists(_ context.Context, path string) bool {
	ok, err := afero.Exists(h.fs, path)
	return err == nil && ok
}

func (h memHost) IsRegularFile(_ context.Context, path string) bool {
	info, err := h.fs.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func (h memHost) ReadFile(_ context.Context, path string) ([]byte, error) {
	data, err := afero.ReadFile(h.fs, path)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	return data, nil
}

const home = "/home/me"

func libraryVDF(libs ...string) string {
	out := "\"LibraryFolders\"\n{\n"
	for i, l := range libs {
		out += fmt.Sprintf("\t\"%d\"\n\t{\n%s\t}\n", i, l)
	}
	return out + "}\n"
}

func TestFindSteamDir(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	c := NewClient(memHost{fs: fs}, DefaultOptions())

	assert.Equal(t, "/usr/games/steam", c.FindSteamDir(context.Background(), home), "fallback")

	require.NoError(t, fs.MkdirAll(filepath.Join(home, ".var/app/com.valvesoftware.Steam/.steam/steam"), 0o755))
	assert.Equal(t, filepath.Join(home, ".var/app/com.valvesoftware.Steam/.steam/steam"),
		c.FindSteamDir(context.Background(), home))

	require.NoError(t, fs.MkdirAll(filepath.Join(home, ".local/share/Steam"), 0o755))
	assert.Equal(t, filepath.Join(home, ".local/share/Steam"), c.FindSteamDir(context.Background(), home))
}

func TestParseLibraryFolders(t *testing.T) {
	t.Parallel()

	data := libraryVDF(
		"\t\t\"path\"\t\t\"/home/me/.local/share/Steam\"\n\t\t\"apps\"\n\t\t{\n\t\t\t\"228980\"\t\t\"1000\"\n\t\t}\n",
		"\t\t\"Path\"\t\t\"/mnt/games/SteamLibrary\"\n\t\t\"Apps\"\n\t\t{\n\t\t\t\"1628350\"\t\t\"2000\"\n\t\t}\n",
	)

	folders, err := ParseLibraryFolders([]byte(data))
	require.NoError(t, err)
	require.Len(t, folders, 2)
	assert.Equal(t, "/home/me/.local/share/Steam", folders[0].Path)
	assert.Equal(t, "/mnt/games/SteamLibrary", folders[1].Path)
	assert.Equal(t, "2000", folders[1].Apps[SniperAppID])

	_, err = ParseLibraryFolders([]byte(`"other" { }`))
	require.Error(t, err)
}

func TestFindRuntime(t *testing.T) {
	t.Parallel()

	sniper := "/mnt/games/SteamLibrary/steamapps/common/SteamLinuxRuntime_sniper/run"
	manifest := libraryVDF(
		"\t\t\"path\"\t\t\"/mnt/games/SteamLibrary\"\n\t\t\"apps\"\n\t\t{\n\t\t\t\"1628350\"\t\t\"1\"\n\t\t}\n",
	)

	t.Run("sniper", func(t *testing.T) {
		t.Parallel()
		fs := afero.NewMemMapFs()
		require.NoError(t, afero.WriteFile(fs, LibraryFoldersPath(home), []byte(manifest), 0o644))
		require.NoError(t, afero.WriteFile(fs, sniper, nil, 0o755))

		got, err := NewClient(memHost{fs: fs}, DefaultOptions()).FindRuntime(context.Background(), home)
		require.NoError(t, err)
		assert.Equal(t, sniper, got)
	})

	t.Run("listed but not installed falls back to legacy", func(t *testing.T) {
		t.Parallel()
		fs := afero.NewMemMapFs()
		require.NoError(t, afero.WriteFile(fs, LibraryFoldersPath(home), []byte(manifest), 0o644))
		require.NoError(t, afero.WriteFile(fs, LegacyRuntimePath(home), nil, 0o755))

		got, err := NewClient(memHost{fs: fs}, DefaultOptions()).FindRuntime(context.Background(), home)
		require.NoError(t, err)
		assert.Equal(t, LegacyRuntimePath(home), got)
	})

	t.Run("none", func(t *testing.T) {
		t.Parallel()
		_, err := NewClient(memHost{fs: afero.NewMemMapFs()}, DefaultOptions()).
			FindRuntime(context.Background(), home)
		require.ErrorIs(t, err, ErrRuntimeNotFound)
	})
}

func TestUpsertShortcut(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	steamDir := "/home/me/.local/share/Steam"
	for _, user := range []string{"111", "222"} {
		require.NoError(t, fs.MkdirAll(filepath.Join(steamDir, "userdata", user, "config"), 0o755))
	}
	require.NoError(t, fs.MkdirAll(filepath.Join(steamDir, "userdata", "anonymous"), 0o755))

	existing := []vdfbinary.Shortcut{{
		AppID: 7, AppName: "Emulator", Exe: `"/usr/bin/emu"`, StartDir: `"/usr/bin"`,
	}}
	var buf bytes.Buffer
	require.NoError(t, vdfbinary.WriteShortcuts(&buf, existing))
	userOne := filepath.Join(steamDir, "userdata", "111", "config", "shortcuts.vdf")
	require.NoError(t, afero.WriteFile(fs, userOne, buf.Bytes(), 0o600))

	spec := ShortcutSpec{
		AppName:       "Cool Game",
		Exe:           "/proton",
		StartDir:      "/games/Cool Game",
		LaunchOptions: "run game.exe",
	}
	appID, err := UpsertShortcut(context.Background(), fs, steamDir, spec)
	require.NoError(t, err)
	assert.Equal(t, spec.AppID(), appID)

	got, err := ReadShortcuts(fs, userOne)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Emulator", got[0].AppName)
	assert.Equal(t, `"/proton"`, got[1].Exe)
	assert.Equal(t, `"/games/Cool Game"`, got[1].StartDir)

	userTwo := filepath.Join(steamDir, "userdata", "222", "config", "shortcuts.vdf")
	got, err = ReadShortcuts(fs, userTwo)
	require.NoError(t, err)
	require.Len(t, got, 1)

	// a second upsert replaces instead of duplicating
	spec.LaunchOptions = "run game.exe -dx11"
	_, err = UpsertShortcut(context.Background(), fs, steamDir, spec)
	require.NoError(t, err)
	got, err = ReadShortcuts(fs, userOne)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "run game.exe -dx11", got[1].LaunchOptions)
}

func TestUpsertShortcut_CorruptFileUntouched(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	steamDir := "/steam"
	path := filepath.Join(steamDir, "userdata", "1", "config", "shortcuts.vdf")
	require.NoError(t, afero.WriteFile(fs, path, []byte{0x00, 's', 0x00, 0x00}, 0o600))

	_, err := UpsertShortcut(context.Background(), fs, steamDir, ShortcutSpec{AppName: "x", Exe: "/x"})
	require.Error(t, err)

	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 's', 0x00, 0x00}, data)
}

func TestUpsertShortcut_NoUsers(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/steam/userdata", 0o755))

	_, err := UpsertShortcut(context.Background(), fs, "/steam", ShortcutSpec{AppName: "x", Exe: "/x"})
	require.ErrorIs(t, err, ErrNoSteamUsers)
}

func TestURLs(t *testing.T) {
	t.Parallel()

	appID := ShortcutSpec{AppName: "Cool Game", Exe: "/proton"}.AppID()
	want := "steam://rungameid/" + strconv.FormatUint(uint64(appID)<<32|0x02000000, 10)
	assert.Equal(t, want, ShortcutURL(appID))

	xdg := NewClient(memHost{fs: afero.NewMemMapFs()}, DefaultOptions())
	assert.Equal(t, []string{"xdg-open", want}, xdg.LaunchCommand(want))

	direct := NewClient(memHost{fs: afero.NewMemMapFs()}, Options{})
	assert.Equal(t, []string{"steam", want}, direct.LaunchCommand(want))

	assert.Equal(t, `"/a b"`, quoted("/a b"))
	assert.Equal(t, `"/a b"`, quoted(`"/a b"`))
}
