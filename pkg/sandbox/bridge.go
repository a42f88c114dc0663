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

package sandbox

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v4/process"
	"github.com/sofl-project/sofl-core/pkg/helpers"
	"github.com/sofl-project/sofl-core/pkg/helpers/command"
	"github.com/spf13/afero"
)

const spawnTool = "flatpak-spawn"

// hostPrefix is prepended to argv to run it on the host.
var hostPrefix = []string{spawnTool, "--host"}

// cdWrapper changes to the directory given as $0 and execs the rest, so the
// directory never becomes part of the script text.
const cdWrapper = `cd "$0" && exec "$@"`

var ErrCopyFailed = errors.New("all copy strategies failed")

// Bridge runs commands and reads files on the host, going through
// flatpak-spawn when sandboxed and straight to the OS otherwise.
type Bridge struct {
	detector Detector
	cmd      command.Executor
	fs       afero.Fs
	portal   HostPathResolver
	procs    func(ctx context.Context) ([]string, error)
	homeDir  func() (string, error)
	tempDir  string
}

type BridgeOption func(*Bridge)

func WithFs(fs afero.Fs) BridgeOption {
	return func(b *Bridge) { b.fs = fs }
}

func WithPortal(p HostPathResolver) BridgeOption {
	return func(b *Bridge) { b.portal = p }
}

// WithTempDir sets where restricted files are copied to.
func WithTempDir(dir string) BridgeOption {
	return func(b *Bridge) { b.tempDir = dir }
}

// WithProcessLister replaces the native process name listing.
func WithProcessLister(fn func(ctx context.Context) ([]string, error)) BridgeOption {
	return func(b *Bridge) { b.procs = fn }
}

func WithHomeDir(fn func() (string, error)) BridgeOption {
	return func(b *Bridge) { b.homeDir = fn }
}

func NewBridge(detector Detector, cmd command.Executor, opts ...BridgeOption) *Bridge {
	b := &Bridge{
		detector: detector,
		cmd:      cmd,
		fs:       afero.NewOsFs(),
		portal:   DBusPortal{},
		procs:    processNames,
		homeDir:  os.UserHomeDir,
		tempDir:  helpers.TempDir(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Bridge) IsSandboxed() bool {
	return b.detector.IsSandboxed()
}

// Fs is the filesystem the bridge reads through on the current side.
func (b *Bridge) Fs() afero.Fs {
	return b.fs
}

// HostArgv returns argv as it must be executed to reach the host.
func (b *Bridge) HostArgv(argv ...string) []string {
	if !b.IsSandboxed() {
		return argv
	}
	return append(append([]string{}, hostPrefix...), argv...)
}

// Output runs argv on the host and returns its stdout.
func (b *Bridge) Output(ctx context.Context, argv ...string) ([]byte, error) {
	if len(argv) == 0 {
		return nil, errors.New("empty command")
	}
	full := b.HostArgv(argv...)
	out, err := b.cmd.Output(ctx, full[0], full[1:]...)
	if err != nil {
		return out, fmt.Errorf("%s failed: %w", argv[0], err)
	}
	return out, nil
}

// HostHome returns the user's home directory on the host. In the sandbox
// it is asked for through the bridge, falling back to the local one.
func (b *Bridge) HostHome(ctx context.Context) string {
	if b.IsSandboxed() {
		out, err := b.Output(ctx, "printenv", "HOME")
		if home := strings.TrimSpace(string(out)); err == nil && home != "" {
			return home
		}
		log.Error().Err(err).Msg("failed to get host home")
	}
	home, err := b.homeDir()
	if err != nil {
		log.Error().Err(err).Msg("failed to get home directory")
	}
	return home
}

// IsProcessRunning reports whether a process named name runs on the host.
func (b *Bridge) IsProcessRunning(ctx context.Context, name string) bool {
	if b.IsSandboxed() {
		out, err := b.Output(ctx, "pidof", name)
		return err == nil && strings.TrimSpace(string(out)) != ""
	}

	names, err := b.procs(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to list processes")
		return false
	}
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

// FileExists reports whether path exists on the host.
func (b *Bridge) FileExists(ctx context.Context, path string) bool {
	if b.IsSandboxed() {
		_, err := b.Output(ctx, "test", "-e", path)
		return err == nil
	}
	ok, err := afero.Exists(b.fs, path)
	return err == nil && ok
}

// IsRegularFile reports whether path is a regular file on the host.
func (b *Bridge) IsRegularFile(ctx context.Context, path string) bool {
	if b.IsSandboxed() {
		_, err := b.Output(ctx, "test", "-f", path)
		return err == nil
	}
	info, err := b.fs.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// ReadFile reads a host file.
func (b *Bridge) ReadFile(ctx context.Context, path string) ([]byte, error) {
	if b.IsSandboxed() {
		return b.Output(ctx, "cat", path)
	}
	data, err := afero.ReadFile(b.fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

// RunOnHost starts argv on the host in workDir with env added to the
// environment, and returns without waiting. In the sandbox every env entry
// becomes its own --env=KEY=VALUE token and entries with empty values are
// skipped.
func (b *Bridge) RunOnHost(
	ctx context.Context,
	argv []string,
	env map[string]string,
	workDir string,
) (*os.Process, error) {
	if len(argv) == 0 {
		return nil, errors.New("empty command")
	}

	if !b.IsSandboxed() {
		return b.RunLocal(ctx, argv, env, workDir)
	}

	full := SpawnArgv(argv, env, workDir)
	log.Info().Strs("argv", full).Msg("executing command via flatpak-spawn")
	proc, err := b.cmd.StartWithOptions(ctx, command.StartOptions{NewSession: true}, full[0], full[1:]...)
	if err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", spawnTool, err)
	}
	return proc, nil
}

// RunLocal starts argv on the current side of the sandbox boundary, in a new
// session so it outlives this process.
func (b *Bridge) RunLocal(
	ctx context.Context,
	argv []string,
	env map[string]string,
	workDir string,
) (*os.Process, error) {
	if len(argv) == 0 {
		return nil, errors.New("empty command")
	}
	log.Info().Strs("argv", argv).Str("dir", workDir).Msg("executing command")
	proc, err := b.cmd.StartWithOptions(ctx, command.StartOptions{
		Env:        env,
		Dir:        workDir,
		NewSession: true,
	}, argv[0], argv[1:]...)
	if err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", argv[0], err)
	}
	return proc, nil
}

// SpawnArgv builds the sandboxed command line for RunOnHost.
func SpawnArgv(argv []string, env map[string]string, workDir string) []string {
	keys := make([]string, 0, len(env))
	for k, v := range env {
		if strings.TrimSpace(v) != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	full := make([]string, 0, len(hostPrefix)+len(keys)+len(argv)+4)
	if workDir != "" {
		full = append(full, "sh", "-c", cdWrapper, workDir)
	}
	full = append(full, hostPrefix...)
	for _, k := range keys {
		full = append(full, "--env="+k+"="+env[k])
	}
	return append(full, argv...)
}

// CopyRestrictedFile copies a document portal file somewhere every tool
// can read it and returns the new path. Any other path, or a copy that
// fails every way, comes back unchanged.
func (b *Bridge) CopyRestrictedFile(ctx context.Context, path string) string {
	if !IsPortalPath(path) {
		return path
	}

	// One directory per document keeps same-named files from different
	// folders apart.
	dir := filepath.Join(b.tempDir, DocumentID(path))
	if err := b.fs.MkdirAll(dir, 0o750); err != nil {
		log.Error().Err(err).Msg("failed to create temp dir")
		return path
	}
	dest := filepath.Join(dir, filepath.Base(path))
	log.Info().Str("dest", dest).Msg("copying file out of the document portal")

	strategies := []struct {
		run  func(ctx context.Context, src, dest string) error
		name string
	}{
		{name: "portal mount", run: b.copyInSandbox},
		{name: "flatpak-spawn", run: b.copyViaSpawn},
		{name: "host path", run: b.copyFromHostPath},
		{name: "cp", run: b.copyWithCp},
	}
	for _, s := range strategies {
		if ctx.Err() != nil {
			break
		}
		log.Info().Str("strategy", s.name).Msg("trying to copy restricted file")
		if err := s.run(ctx, path, dest); err != nil {
			log.Error().Err(err).Str("strategy", s.name).Msg("copy error")
			continue
		}
		log.Info().Str("strategy", s.name).Msg("file successfully copied")
		return dest
	}

	log.Warn().Err(ErrCopyFailed).Msg("proceeding with original file")
	return path
}

// ReleaseRestrictedCopy removes a copy made by CopyRestrictedFile along
// with its document directory. Paths outside the temp dir are left alone.
func (b *Bridge) ReleaseRestrictedCopy(path string) {
	dir := filepath.Dir(filepath.Clean(path))
	if filepath.Clean(dir) == filepath.Clean(b.tempDir) || !helpers.PathWithin(b.tempDir, dir) {
		return
	}
	if err := b.fs.RemoveAll(dir); err != nil {
		log.Warn().Err(err).Str("path", dir).Msg("failed to remove restricted file copy")
		return
	}
	log.Debug().Str("path", dir).Msg("removed restricted file copy")
}

func (b *Bridge) copyInSandbox(_ context.Context, src, dest string) error {
	return copyFile(b.fs, src, dest)
}

func (b *Bridge) copyViaSpawn(ctx context.Context, src, dest string) error {
	if !b.IsSandboxed() {
		return errors.New("not sandboxed")
	}
	if err := b.cmd.Run(ctx, spawnTool, "--host", "cp", src, dest); err != nil {
		return fmt.Errorf("host cp failed: %w", err)
	}
	return nil
}

func (b *Bridge) copyFromHostPath(ctx context.Context, src, dest string) error {
	for _, candidate := range b.hostCandidates(ctx, src) {
		if ok, _ := afero.Exists(b.fs, candidate); !ok {
			continue
		}
		log.Debug().Str("candidate", candidate).Msg("found host path for portal file")
		return copyFile(b.fs, candidate, dest)
	}
	return errors.New("no host path candidate exists")
}

func (b *Bridge) copyWithCp(ctx context.Context, src, dest string) error {
	if err := b.cmd.Run(ctx, "cp", src, dest); err != nil {
		return fmt.Errorf("cp failed: %w", err)
	}
	return nil
}

// hostCandidates lists where a portal file may really live: the portal's
// own answer first, then common download locations.
func (b *Bridge) hostCandidates(ctx context.Context, src string) []string {
	var candidates []string
	if id := DocumentID(src); id != "" && b.portal != nil {
		paths, err := b.portal.HostPaths(ctx, []string{id})
		if err != nil {
			log.Debug().Err(err).Msg("document portal lookup failed")
		} else if p := paths[id]; p != "" {
			candidates = append(candidates, p)
		}
	}

	name := filepath.Base(src)
	if home, err := b.homeDir(); err == nil && home != "" {
		candidates = append(candidates,
			filepath.Join(home, "Downloads", name),
			filepath.Join(home, name),
		)
	}
	return candidates
}

func copyFile(fs afero.Fs, src, dest string) error {
	in, err := fs.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open source: %w", err)
	}
	defer func() { _ = in.Close() }()

	out, err := fs.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create destination: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = fs.Remove(dest)
		return fmt.Errorf("failed to copy: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to close destination: %w", err)
	}
	return nil
}

func processNames(ctx context.Context) ([]string, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list processes: %w", err)
	}
	names := make([]string, 0, len(procs))
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil {
			continue
		}
		names = append(names, name)
	}
	return names, nil
}
