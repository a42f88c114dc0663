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

package launch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/sofl-project/sofl-core/pkg/config"
	"github.com/sofl-project/sofl-core/pkg/launch/compat"
	"github.com/sofl-project/sofl-core/pkg/launch/steam"
	"github.com/sofl-project/sofl-core/pkg/library"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

const (
	home    = "/home/me"
	gameDir = "/games/Cool Game"
	version = "GE-Proton9-26"
	exePath = gameDir + "/game.exe"
)

type fakeHost struct {
	fs        afero.Fs
	running   bool
	sandboxed bool
}

func (h *fakeHost) FileExists(_ context.Context, path string) bool {
	ok, err := afero.Exists(h.fs, path)
	return err == nil && ok
}

func (h *fakeHost) IsRegularFile(_ context.Context, path string) bool {
	info, err := h.fs.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func (h *fakeHost) ReadFile(_ context.Context, path string) ([]byte, error) {
	data, err := afero.ReadFile(h.fs, path)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	return data, nil
}

func (*fakeHost) HostHome(context.Context) string { return home }

func (h *fakeHost) IsProcessRunning(_ context.Context, name string) bool {
	return h.running && name == compat.SteamProcess
}

func (h *fakeHost) IsSandboxed() bool { return h.sandboxed }

type runCall struct {
	env    map[string]string
	dir    string
	argv   []string
	onHost bool
}

type fakeRunner struct {
	err   error
	calls []runCall
	mu    sync.Mutex
}

func (r *fakeRunner) record(onHost bool, argv []string, env map[string]string, dir string) (*os.Process, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, runCall{onHost: onHost, argv: argv, env: env, dir: dir})
	if r.err != nil {
		return nil, r.err
	}
	return &os.Process{Pid: 4242}, nil
}

func (r *fakeRunner) RunOnHost(_ context.Context, argv []string, env map[string]string, dir string) (*os.Process, error) {
	return r.record(true, argv, env, dir)
}

func (r *fakeRunner) RunLocal(_ context.Context, argv []string, env map[string]string, dir string) (*os.Process, error) {
	return r.record(false, argv, env, dir)
}

type fakeStore struct {
	err    error
	played map[string]time.Time
}

func (s *fakeStore) UpdateLastPlayed(_ context.Context, id string, at time.Time) error {
	if s.err != nil {
		return s.err
	}
	if s.played == nil {
		s.played = map[string]time.Time{}
	}
	s.played[id] = at
	return nil
}

type fakeNotifier struct{ messages []string }

func (n *fakeNotifier) Notify(msg string) { n.messages = append(n.messages, msg) }

type fakeQuitter struct{ quits int }

func (q *fakeQuitter) Quit() { q.quits++ }

type staticSettings config.Launch

func (s staticSettings) LaunchSettings() config.Launch { return config.Launch(s) }

var errSpawn = errors.New("exec format error")

// newEnv prepares a host with a game and the configured Proton installed.
func newEnv(t *testing.T, running, sandboxed bool) (*fakeHost, *compat.Builder) {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, exePath, []byte("MZ"), 0o644))
	require.NoError(t, afero.WriteFile(fs, steam.ProtonPath(home, version), nil, 0o755))
	host := &fakeHost{fs: fs, running: running, sandboxed: sandboxed}
	return host, compat.NewBuilder(host, fs, steam.NewClient(host, steam.DefaultOptions()))
}

func testRecord() *library.Record {
	return &library.Record{GameID: "online-fix_1", Name: "Cool Game", Path: gameDir, Executable: "game.exe"}
}
