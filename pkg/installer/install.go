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
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/sofl-project/sofl-core/pkg/archive"
	"github.com/sofl-project/sofl-core/pkg/config"
	"github.com/sofl-project/sofl-core/pkg/helpers"
	"github.com/sofl-project/sofl-core/pkg/helpers/syncutil"
)

var ErrEscapesRoot = errors.New("path escapes install root")

// Verifier is the password check run before extraction.
type Verifier interface {
	Verify(ctx context.Context, path, password string) archive.VerificationResult
}

// Extractor unpacks an archive into a directory.
type Extractor interface {
	Extract(ctx context.Context, task archive.Task, destDir string, onProgress archive.ProgressFunc) error
}

// RestrictedCopier makes sandbox portal files readable, returning the path
// to use in place of the original. ReleaseRestrictedCopy drops a copy once
// it is no longer needed.
type RestrictedCopier interface {
	CopyRestrictedFile(ctx context.Context, path string) string
	ReleaseRestrictedCopy(path string)
}

// Result is the outcome of one install. On success InstallPath is the game
// folder and RelativeExecutable, when set, lies inside it.
type Result struct {
	Err                error
	RelativeExecutable *string
	InstallPath        string
	Success            bool
}

// Message is InstallPath on success and the error text otherwise.
func (r Result) Message() string {
	if r.Success {
		return r.InstallPath
	}
	if r.Err == nil {
		return "installation failed"
	}
	return r.Err.Error()
}

type Installer struct {
	cfg       *config.Instance
	verifier  Verifier
	extractor Extractor
	copier    RestrictedCopier
	locks     *syncutil.KeyedMutex
}

func NewInstaller(
	cfg *config.Instance,
	verifier Verifier,
	extractor Extractor,
	copier RestrictedCopier,
) *Installer {
	return &Installer{
		cfg:       cfg,
		verifier:  verifier,
		extractor: extractor,
		copier:    copier,
		locks:     syncutil.NewKeyedMutex(),
	}
}

// Install verifies and extracts archivePath into the configured install
// root, then finds the game folder and executable inside it. Installs into
// the same destination run one at a time.
func (i *Installer) Install(
	ctx context.Context,
	archivePath string,
	gameName string,
	onProgress archive.ProgressFunc,
) Result {
	report := func(fraction float64, msg string) {
		if onProgress != nil {
			onProgress(archive.Progress{Fraction: fraction, Message: msg})
		}
	}

	destDir, err := filepath.Abs(i.cfg.InstallRoot())
	if err != nil {
		return failed(fmt.Errorf("failed to resolve install root: %w", err))
	}

	unlock := i.locks.Lock(destDir)
	defer unlock()

	if err := ctx.Err(); err != nil {
		return failed(fmt.Errorf("install cancelled: %w", err))
	}

	src := archivePath
	if i.copier != nil {
		src = i.copier.CopyRestrictedFile(ctx, archivePath)
		if src != archivePath {
			defer i.copier.ReleaseRestrictedCopy(src)
		}
	}

	password := i.cfg.ArchivePassword()
	report(0, "Checking archive...")
	if res := i.verifier.Verify(ctx, src, password); res != archive.Confirmed {
		return failed(verificationError(src, res))
	}

	log.Info().Str("archive", src).Str("dest", destDir).Msg("extracting game")
	task := archive.Task{Path: src, Password: password}
	if err := i.extractor.Extract(ctx, task, destDir, onProgress); err != nil {
		return failed(fmt.Errorf("error during game installation: %w", err))
	}

	gameDir := ResolveGameFolder(destDir, gameName)
	log.Info().Str("dir", gameDir).Msg("detected game folder")

	report(0.95, "Searching for game executable...")
	res := Result{Success: true, InstallPath: gameDir}
	if exe, ok := SelectExecutable(gameDir); ok {
		rel, err := RelativeExecutable(gameDir, exe)
		if err != nil {
			log.Warn().Err(err).Msg("ignoring executable outside game folder")
		} else {
			res.RelativeExecutable = &rel
		}
	}
	return res
}

func failed(err error) Result {
	log.Error().Err(err).Msg("install failed")
	return Result{Err: err}
}

func verificationError(path string, res archive.VerificationResult) error {
	kind := archive.KindIOFailure
	switch res {
	case archive.WrongPassword:
		kind = archive.KindWrongPassword
	case archive.NotAnArchive:
		kind = archive.KindBadFormat
	case archive.ToolUnavailable:
		kind = archive.KindToolUnavailable
	case archive.Confirmed, archive.IOFailure:
	}
	return &archive.Error{Kind: kind, Stage: "verify", Path: path}
}

// RelativeExecutable returns exe relative to root. It fails when exe is
// not inside root.
func RelativeExecutable(root, exe string) (string, error) {
	if !filepath.IsAbs(exe) {
		exe = filepath.Join(root, exe)
	}
	if !helpers.PathWithin(root, exe) {
		return "", fmt.Errorf("%w: %s", ErrEscapesRoot, exe)
	}
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(exe))
	if err != nil {
		return "", fmt.Errorf("failed to relativize %s: %w", exe, err)
	}
	if rel == "." {
		return "", fmt.Errorf("%w: %s is the root itself", ErrEscapesRoot, exe)
	}
	return rel, nil
}

// ResolveExecutable is the inverse of RelativeExecutable: a relative exe is
// joined onto root, an absolute one is returned as is.
func ResolveExecutable(root, exe string) string {
	if filepath.IsAbs(exe) || root == "" {
		return exe
	}
	return filepath.Join(root, exe)
}

// exists is used when normalizing stored executable values.
func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Job wraps Install for a TaskRunner.
func (i *Installer) Job(archivePath, gameName string) Job {
	return func(ctx context.Context, onProgress archive.ProgressFunc) Result {
		return i.Install(ctx, archivePath, gameName, onProgress)
	}
}
