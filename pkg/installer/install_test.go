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
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sofl-project/sofl-core/pkg/archive"
	"github.com/sofl-project/sofl-core/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeVerifier struct {
	result archive.VerificationResult
	seen   string
}

func (f *fakeVerifier) Verify(_ context.Context, path, _ string) archive.VerificationResult {
	f.seen = path
	return f.result
}

// fakeExtractor "extracts" by writing a fixed set of files.
type fakeExtractor struct {
	err     error
	hook    func()
	files   map[string]int
	running atomic.Int32
	maxSeen atomic.Int32
}

func (f *fakeExtractor) Extract(
	_ context.Context,
	_ archive.Task,
	destDir string,
	onProgress archive.ProgressFunc,
) error {
	n := f.running.Add(1)
	defer f.running.Add(-1)
	for {
		old := f.maxSeen.Load()
		if n <= old || f.maxSeen.CompareAndSwap(old, n) {
			break
		}
	}
	if f.hook != nil {
		f.hook()
	}
	if f.err != nil {
		return f.err
	}
	for path, size := range f.files {
		full := filepath.Join(destDir, filepath.FromSlash(path))
		if err := writeRaw(full, size); err != nil {
			return err
		}
	}
	if onProgress != nil {
		onProgress(archive.Progress{Fraction: 1, Message: "Extraction complete"})
	}
	return nil
}

type fakeCopier struct {
	released []string
}

func (*fakeCopier) CopyRestrictedFile(_ context.Context, path string) string {
	if !strings.HasPrefix(path, "/run/user/") {
		return path
	}
	return "/copied/" + filepath.Base(path)
}

func (f *fakeCopier) ReleaseRestrictedCopy(path string) {
	f.released = append(f.released, path)
}

func newTestConfig(t *testing.T, root string) *config.Instance {
	t.Helper()
	cfg, err := config.NewConfig(t.TempDir(), config.BaseDefaults)
	require.NoError(t, err)
	cfg.SetInstallRoot(root)
	return cfg
}

func TestInstall_Success(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	ver := &fakeVerifier{result: archive.Confirmed}
	ext := &fakeExtractor{files: map[string]int{
		"Cool Game/CoolGame.exe":             2 * mib,
		"Cool Game/UnityCrashHandler64.exe":  mib,
		"Cool Game/Engine/Binaries/Tool.exe": 3 * mib,
	}}

	var updates []archive.Progress
	copier := &fakeCopier{}
	inst := NewInstaller(newTestConfig(t, root), ver, ext, copier)
	res := inst.Install(context.Background(), "/run/user/1000/doc/abc/Cool.Game.v1.rar", "Cool Game",
		func(p archive.Progress) { updates = append(updates, p) })

	require.True(t, res.Success, res.Message())
	assert.Equal(t, "/copied/Cool.Game.v1.rar", ver.seen)
	assert.Equal(t, filepath.Join(root, "Cool Game"), res.InstallPath)
	require.NotNil(t, res.RelativeExecutable)
	assert.Equal(t, "CoolGame.exe", *res.RelativeExecutable)
	assert.Equal(t, "Searching for game executable...", updates[len(updates)-1].Message)
	assert.Equal(t, []string{"/copied/Cool.Game.v1.rar"}, copier.released)
}

func TestInstall_ReleasesRestrictedCopy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		path     string
		verify   archive.VerificationResult
		released []string
	}{
		{
			name:     "copy released after failed verification",
			path:     "/run/user/1000/doc/abc/Game.rar",
			verify:   archive.WrongPassword,
			released: []string{"/copied/Game.rar"},
		},
		{
			name:   "uncopied path left alone",
			path:   "/tmp/Game.rar",
			verify: archive.Confirmed,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			copier := &fakeCopier{}
			ext := &fakeExtractor{files: map[string]int{"Game/Game.exe": 10}}
			inst := NewInstaller(newTestConfig(t, t.TempDir()), &fakeVerifier{result: tt.verify}, ext, copier)

			inst.Install(context.Background(), tt.path, "Game", nil)
			assert.Equal(t, tt.released, copier.released)
		})
	}
}

func TestInstall_NoExecutable(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	ext := &fakeExtractor{files: map[string]int{"Game/data.pak": 10}}
	inst := NewInstaller(newTestConfig(t, root), &fakeVerifier{result: archive.Confirmed}, ext, nil)

	res := inst.Install(context.Background(), "/tmp/g.rar", "Game", nil)
	require.True(t, res.Success)
	assert.Nil(t, res.RelativeExecutable)
}

func TestInstall_VerificationFailure(t *testing.T) {
	t.Parallel()

	tests := []struct {
		want   error
		result archive.VerificationResult
	}{
		{result: archive.WrongPassword, want: archive.ErrArchiveWrongPassword},
		{result: archive.NotAnArchive, want: archive.ErrArchiveBadFormat},
		{result: archive.IOFailure, want: archive.ErrIOFailure},
	}

	for _, tt := range tests {
		t.Run(tt.result.String(), func(t *testing.T) {
			t.Parallel()

			ext := &fakeExtractor{}
			inst := NewInstaller(newTestConfig(t, t.TempDir()), &fakeVerifier{result: tt.result}, ext, nil)
			res := inst.Install(context.Background(), "/tmp/g.rar", "Game", nil)

			assert.False(t, res.Success)
			require.ErrorIs(t, res.Err, tt.want)
			assert.Contains(t, res.Message(), "/tmp/g.rar")
			assert.Zero(t, ext.maxSeen.Load(), "extraction must not start")
		})
	}
}

func TestInstall_ExtractionFailure(t *testing.T) {
	t.Parallel()

	ext := &fakeExtractor{err: &archive.Error{Kind: archive.KindIOFailure, Stage: "extract", Path: "/tmp/g.rar"}}
	inst := NewInstaller(newTestConfig(t, t.TempDir()), &fakeVerifier{result: archive.Confirmed}, ext, nil)

	res := inst.Install(context.Background(), "/tmp/g.rar", "Game", nil)
	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, archive.ErrIOFailure)
	assert.Nil(t, res.RelativeExecutable)
}

func TestInstall_SerializesSameDestination(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	ext := &fakeExtractor{
		files: map[string]int{"G/g.exe": 200 * kib},
		hook:  func() { time.Sleep(20 * time.Millisecond) },
	}
	inst := NewInstaller(newTestConfig(t, root), &fakeVerifier{result: archive.Confirmed}, ext, nil)

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := inst.Install(context.Background(), "/tmp/g.rar", "G", nil)
			assert.True(t, res.Success)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), ext.maxSeen.Load())
}

func TestInstall_CancelledBeforeStart(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ext := &fakeExtractor{}
	inst := NewInstaller(newTestConfig(t, t.TempDir()), &fakeVerifier{result: archive.Confirmed}, ext, nil)
	res := inst.Install(ctx, "/tmp/g.rar", "G", nil)

	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, context.Canceled)
}

func TestRelativeExecutable(t *testing.T) {
	t.Parallel()

	rel, err := RelativeExecutable("/games/Foo", "/games/Foo/bin/foo.exe")
	require.NoError(t, err)
	assert.Equal(t, filepath.FromSlash("bin/foo.exe"), rel)

	rel, err = RelativeExecutable("/games/Foo", "foo.exe")
	require.NoError(t, err)
	assert.Equal(t, "foo.exe", rel)

	_, err = RelativeExecutable("/games/Foo", "/games/Bar/bar.exe")
	require.ErrorIs(t, err, ErrEscapesRoot)

	_, err = RelativeExecutable("/games/Foo", "../Bar/bar.exe")
	require.ErrorIs(t, err, ErrEscapesRoot)

	_, err = RelativeExecutable("/games/Foo", "/games/Foo")
	require.ErrorIs(t, err, ErrEscapesRoot)

	assert.Equal(t, filepath.Join("/games/Foo", "bin/foo.exe"), ResolveExecutable("/games/Foo", "bin/foo.exe"))
	assert.Equal(t, "/abs/foo.exe", ResolveExecutable("/games/Foo", "/abs/foo.exe"))
}

func TestResult_Message(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "/games/Foo", Result{Success: true, InstallPath: "/games/Foo"}.Message())
	assert.Equal(t, "boom", Result{Err: errors.New("boom")}.Message())
	assert.Equal(t, "installation failed", Result{}.Message())
}
