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
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/rs/zerolog/log"
	"github.com/sofl-project/sofl-core/pkg/helpers"
	"github.com/sofl-project/sofl-core/pkg/helpers/command"
)

const (
	stageExtract = "extract"
	doneMessage  = "Extraction complete"
)

var percentPattern = regexp.MustCompile(`([0-9]{1,3})%`)

// Progress is one extraction progress update.
type Progress struct {
	Message  string
	Fraction float64
}

// ProgressFunc receives progress updates. It may be nil.
type ProgressFunc func(Progress)

// Extractor unpacks archives into a destination directory.
type Extractor struct {
	opts options
}

func NewExtractor(opts ...Option) *Extractor {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Extractor{opts: o}
}

type extractStrategy func(ctx context.Context, task Task, destDir string, report ProgressFunc) error

// Extract unpacks task.Path into destDir. destDir is created before any
// strategy runs and is left in place whatever the outcome. The external
// tool is tried first, then the archive library; the last strategy's error
// is returned when both fail.
func (e *Extractor) Extract(ctx context.Context, task Task, destDir string, onProgress ProgressFunc) error {
	report := func(p Progress) {
		if onProgress != nil {
			onProgress(p)
		}
	}

	if err := os.MkdirAll(destDir, 0o750); err != nil {
		return newError(KindIOFailure, stageExtract, task.Path, fmt.Errorf("failed to create %s: %w", destDir, err))
	}

	strategies := []extractStrategy{e.extractWithTool, e.extractWithLibrary}
	var lastErr error
	for i, s := range strategies {
		if i > 0 {
			report(Progress{Fraction: 0, Message: "Extracting archive (backup method)..."})
		}
		err := s(ctx, task, destDir, report)
		if err == nil {
			report(Progress{Fraction: 1.0, Message: doneMessage})
			return nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
		log.Warn().Err(err).Msg("extraction strategy failed")
	}
	return lastErr
}

func (e *Extractor) extractWithTool(ctx context.Context, task Task, destDir string, report ProgressFunc) error {
	tool, err := e.opts.finder.find()
	if err != nil {
		log.Warn().Msg("unrar not found, unable to track progress")
		return newError(KindToolUnavailable, stageExtract, task.Path, err)
	}

	last := -1
	onLine := func(line string) {
		m := percentPattern.FindStringSubmatch(line)
		if m == nil {
			return
		}
		pct, err := strconv.Atoi(m[1])
		if err != nil || pct > 100 || pct == last {
			return
		}
		last = pct
		report(Progress{
			Fraction: float64(pct) / 100,
			Message:  fmt.Sprintf("Extracting: %d%%", pct),
		})
	}

	dest := filepath.Clean(destDir) + string(filepath.Separator)
	err = e.opts.cmd.Stream(ctx, onLine, tool, "x", "-idp", "-y", "-p"+task.Password, task.Path, dest)
	switch {
	case err == nil:
		return nil
	case ctx.Err() != nil:
		return contextError(stageExtract, task.Path, ctx.Err())
	case command.IsNotFound(err):
		return newError(KindToolUnavailable, stageExtract, task.Path, err)
	}
	if code, ok := command.ExitCode(err); ok {
		log.Error().Int("exit_code", code).Msg("unrar finished with error")
	}
	return newError(KindIOFailure, stageExtract, task.Path, fmt.Errorf("unrar failed: %w", err))
}

func (e *Extractor) extractWithLibrary(ctx context.Context, task Task, destDir string, report ProgressFunc) error {
	total, err := e.countEntries(task)
	if err != nil {
		return err
	}
	if total == 0 {
		return newError(KindEmpty, stageExtract, task.Path, nil)
	}

	r, err := e.opts.open(task.Path, task.Password)
	if err != nil {
		return newError(classify(err), stageExtract, task.Path, err)
	}
	defer func() {
		if cerr := r.Close(); cerr != nil {
			log.Debug().Err(cerr).Msg("error closing archive")
		}
	}()

	processed := 0
	for {
		if ctx.Err() != nil {
			return contextError(stageExtract, task.Path, ctx.Err())
		}
		hdr, err := r.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return newError(classify(err), stageExtract, task.Path, err)
		}

		if err := writeEntry(r, hdr.Name, hdr.IsDir, hdr.Mode(), destDir); err != nil {
			return newError(classify(err), stageExtract, task.Path, err)
		}

		processed++
		fraction := float64(processed) / float64(total)
		report(Progress{
			Fraction: fraction,
			Message:  fmt.Sprintf("Extracting: %d%%", int(fraction*100)),
		})
	}
}

// countEntries walks headers only. Unread entry data is skipped by Next.
func (e *Extractor) countEntries(task Task) (int, error) {
	r, err := e.opts.open(task.Path, task.Password)
	if err != nil {
		return 0, newError(classify(err), stageExtract, task.Path, err)
	}
	defer func() {
		_ = r.Close()
	}()

	n := 0
	for {
		_, err := r.Next()
		if errors.Is(err, io.EOF) {
			return n, nil
		}
		if err != nil {
			return 0, newError(classify(err), stageExtract, task.Path, err)
		}
		n++
	}
}

var errEntryEscapes = errors.New("archive entry escapes destination")

func writeEntry(src io.Reader, name string, isDir bool, mode os.FileMode, destDir string) error {
	target := filepath.Join(destDir, filepath.FromSlash(name))
	if !helpers.PathWithin(destDir, target) {
		return fmt.Errorf("%w: %s", errEntryEscapes, name)
	}

	if isDir {
		if err := os.MkdirAll(target, 0o750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	perm := mode.Perm() | 0o600
	//nolint:gosec // target is checked to lie inside destDir
	f, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, perm)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if _, err := io.Copy(f, src); err != nil {
		_ = f.Close()
		_ = os.Remove(target)
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", name, err)
	}
	return nil
}
