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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sofl-project/sofl-core/pkg/config"
	"github.com/sofl-project/sofl-core/pkg/launch/compat"
	"github.com/sofl-project/sofl-core/pkg/launch/steam"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrchestrator_DirectSuccess(t *testing.T) {
	t.Parallel()

	host, builder := newEnv(t, true, false)
	runner := &fakeRunner{}
	store := &fakeStore{}
	notifier := &fakeNotifier{}
	quitter := &fakeQuitter{}
	clock := clockwork.NewFakeClockAt(time.Date(2026, 5, 1, 20, 0, 0, 0, time.UTC))

	settings := staticSettings{Backend: config.BackendDirect, ProtonVersion: version, ExitAfterLaunch: true}
	o := NewOrchestrator(settings, store, notifier, quitter,
		[]Backend{NewDirectBackend(builder, runner)}, WithClock(clock))

	rec := testRecord()
	require.NoError(t, o.Launch(context.Background(), rec))

	require.Len(t, runner.calls, 1)
	call := runner.calls[0]
	assert.False(t, call.onHost)
	assert.Equal(t, []string{steam.ProtonPath(home, version), "run", exePath}, call.argv)
	assert.Equal(t, gameDir, call.dir)
	assert.Equal(t, filepath.Join(gameDir, compat.PrefixDirName), call.env["STEAM_COMPAT_DATA_PATH"])

	assert.Equal(t, clock.Now(), rec.LastPlayed)
	assert.Equal(t, clock.Now(), store.played["online-fix_1"])
	assert.Equal(t, []string{"Cool Game launched directly with Proton GE-Proton9-26"}, notifier.messages)
	assert.Equal(t, 1, quitter.quits)
	assert.True(t, host.FileExists(context.Background(), filepath.Join(gameDir, compat.PrefixDirName)))
}

func TestOrchestrator_SandboxedGoesThroughHost(t *testing.T) {
	t.Parallel()

	_, builder := newEnv(t, true, true)
	runner := &fakeRunner{}
	o := NewOrchestrator(staticSettings{Backend: config.BackendDirect, ProtonVersion: version},
		nil, nil, nil, []Backend{NewDirectBackend(builder, runner)})

	require.NoError(t, o.Launch(context.Background(), testRecord()))
	require.Len(t, runner.calls, 1)
	assert.True(t, runner.calls[0].onHost)
}

func TestOrchestrator_HardStops(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		message string
		want    error
		running bool
		version string
	}{
		{name: "steam not running", version: version, want: compat.ErrPlatformNotRunning,
			message: "Steam is not running"},
		{name: "proton missing", running: true, version: "Proton-404", want: compat.ErrCompatibilityToolMissing,
			message: "Proton version not found: Proton-404"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, builder := newEnv(t, tt.running, false)
			runner := &fakeRunner{}
			store := &fakeStore{}
			notifier := &fakeNotifier{}
			quitter := &fakeQuitter{}
			o := NewOrchestrator(
				staticSettings{Backend: config.BackendDirect, ProtonVersion: tt.version, ExitAfterLaunch: true},
				store, notifier, quitter, []Backend{NewDirectBackend(builder, runner)})

			err := o.Launch(context.Background(), testRecord())
			require.ErrorIs(t, err, tt.want)

			var launchErr *Error
			require.ErrorAs(t, err, &launchErr)
			assert.Equal(t, config.BackendDirect, launchErr.Backend)
			assert.Equal(t, []string{tt.message}, notifier.messages)
			assert.Empty(t, runner.calls)
			assert.Empty(t, store.played)
			assert.Zero(t, quitter.quits)
		})
	}
}

func TestOrchestrator_NoAutoChaining(t *testing.T) {
	t.Parallel()

	_, builder := newEnv(t, false, false)
	runner := &fakeRunner{}
	ext := NewExternalRunnerBackend(builder, &fakeHost{}, runner)
	ext.lookPath = func(string) (string, error) { return "/usr/bin/umu-run", nil }

	o := NewOrchestrator(staticSettings{Backend: config.BackendDirect, ProtonVersion: version},
		nil, nil, nil, []Backend{NewDirectBackend(builder, runner), ext})

	require.ErrorIs(t, o.Launch(context.Background(), testRecord()), compat.ErrPlatformNotRunning)
	assert.Empty(t, runner.calls)
}

func TestOrchestrator_UnknownBackend(t *testing.T) {
	t.Parallel()

	notifier := &fakeNotifier{}
	o := NewOrchestrator(staticSettings{Backend: "lutris"}, nil, notifier, nil, nil)

	err := o.Launch(context.Background(), testRecord())
	require.ErrorIs(t, err, ErrUnknownBackend)
	assert.Equal(t, []string{"Unknown launcher type: lutris"}, notifier.messages)
}

func TestOrchestrator_SpawnFailureAndStoreFailure(t *testing.T) {
	t.Parallel()

	_, builder := newEnv(t, true, false)
	notifier := &fakeNotifier{}
	o := NewOrchestrator(staticSettings{Backend: config.BackendDirect, ProtonVersion: version},
		&fakeStore{}, notifier, nil, []Backend{NewDirectBackend(builder, &fakeRunner{err: errSpawn})})

	err := o.Launch(context.Background(), testRecord())
	require.ErrorIs(t, err, errSpawn)
	assert.Contains(t, notifier.messages[0], "Failed to launch game")

	// a store failure does not undo a started game
	o = NewOrchestrator(staticSettings{Backend: config.BackendDirect, ProtonVersion: version},
		&fakeStore{err: errors.New("locked")}, nil, nil, []Backend{NewDirectBackend(builder, &fakeRunner{})})
	require.NoError(t, o.Launch(context.Background(), testRecord()))
}

func TestOrchestrator_StartSurvivesCancel(t *testing.T) {
	t.Parallel()

	_, builder := newEnv(t, true, false)
	runner := &ctxRunner{}
	o := NewOrchestrator(staticSettings{Backend: config.BackendDirect, ProtonVersion: version},
		nil, nil, nil, []Backend{NewDirectBackend(builder, runner)})

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, o.Launch(ctx, testRecord()))
	cancel()
	require.NotNil(t, runner.ctx)
	assert.NoError(t, runner.ctx.Err())
}

type ctxRunner struct {
	fakeRunner
	ctx context.Context //nolint:containedctx // captured for inspection
}

func (r *ctxRunner) RunLocal(ctx context.Context, argv []string, env map[string]string, dir string) (*os.Process, error) {
	r.ctx = ctx
	return r.fakeRunner.RunLocal(ctx, argv, env, dir)
}
