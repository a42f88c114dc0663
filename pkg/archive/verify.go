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
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sofl-project/sofl-core/pkg/config"
	"github.com/sofl-project/sofl-core/pkg/helpers/command"
)

// VerificationResult is the outcome of testing an archive password.
type VerificationResult int

const (
	Confirmed VerificationResult = iota
	WrongPassword
	NotAnArchive
	ToolUnavailable
	IOFailure
)

func (r VerificationResult) String() string {
	switch r {
	case Confirmed:
		return "confirmed"
	case WrongPassword:
		return "wrong password"
	case NotAnArchive:
		return "not an archive"
	case ToolUnavailable:
		return "tool unavailable"
	case IOFailure:
		return "i/o failure"
	default:
		return "unknown"
	}
}

// Task is one install attempt's archive and the password it is expected
// to open with.
type Task struct {
	Path     string
	Password string
}

// Option configures a Verifier or Extractor.
type Option func(*options)

type options struct {
	cmd     command.Executor
	open    Opener
	finder  toolFinder
	timeout time.Duration
}

func defaultOptions() options {
	return options{
		cmd:     &command.RealExecutor{},
		open:    OpenRAR,
		finder:  newToolFinder(""),
		timeout: config.VerifyToolTimeout,
	}
}

func WithExecutor(cmd command.Executor) Option {
	return func(o *options) { o.cmd = cmd }
}

func WithOpener(open Opener) Option {
	return func(o *options) { o.open = open }
}

// WithToolPath sets a preferred unrar binary. An empty path keeps the
// default lookup.
func WithToolPath(path string) Option {
	return func(o *options) { o.finder.configured = path }
}

// WithToolLookup replaces PATH lookup and the executable check used to find
// unrar.
func WithToolLookup(lookPath func(string) (string, error), isExec func(string) bool) Option {
	return func(o *options) {
		o.finder.lookPath = lookPath
		o.finder.isExec = isExec
	}
}

func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// Verifier checks that an archive opens with an expected password.
type Verifier struct {
	opts options
}

func NewVerifier(opts ...Option) *Verifier {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Verifier{opts: o}
}

// verifyStrategy returns a result and whether it is final. A non-final
// result moves on to the next strategy.
type verifyStrategy func(ctx context.Context, path, password string) (VerificationResult, bool)

// Verify tests password against the archive at path. The external tool is
// tried first under a timeout, then the archive library.
func (v *Verifier) Verify(ctx context.Context, path, password string) VerificationResult {
	if !strings.EqualFold(filepath.Ext(path), ".rar") {
		log.Debug().Str("path", path).Msg("skipping verification of non-rar file")
		return NotAnArchive
	}

	strategies := []verifyStrategy{v.verifyWithTool, v.verifyWithLibrary}
	result := ToolUnavailable
	for _, s := range strategies {
		res, final := s(ctx, path, password)
		if final {
			return res
		}
		result = res
	}
	return result
}

func (v *Verifier) verifyWithTool(ctx context.Context, path, password string) (VerificationResult, bool) {
	tool, err := v.opts.finder.find()
	if err != nil {
		log.Debug().Msg("unrar not found, using archive library")
		return ToolUnavailable, false
	}

	tctx, cancel := context.WithTimeout(ctx, v.opts.timeout)
	defer cancel()

	err = v.opts.cmd.Run(tctx, tool, "t", "-p"+password, "-idp", path)
	switch {
	case err == nil:
		log.Info().Str("path", path).Msg("archive passed verification via unrar")
		return Confirmed, true
	case errors.Is(tctx.Err(), context.DeadlineExceeded):
		log.Warn().Dur("timeout", v.opts.timeout).Msg("unrar verification timed out")
		return ToolUnavailable, false
	case command.IsNotFound(err):
		return ToolUnavailable, false
	}
	if code, ok := command.ExitCode(err); ok {
		log.Warn().Int("exit_code", code).Str("path", path).Msg("archive failed verification via unrar")
		return WrongPassword, true
	}
	log.Error().Err(err).Msg("error during verification via unrar")
	return ToolUnavailable, false
}

func (v *Verifier) verifyWithLibrary(_ context.Context, path, password string) (VerificationResult, bool) {
	r, err := v.opts.open(path, password)
	if err != nil {
		return libraryResult(err), true
	}
	defer func() {
		if cerr := r.Close(); cerr != nil {
			log.Debug().Err(cerr).Msg("error closing archive")
		}
	}()

	for {
		hdr, err := r.Next()
		if errors.Is(err, io.EOF) {
			log.Warn().Str("path", path).Msg("archive is empty")
			return NotAnArchive, true
		}
		if err != nil {
			return libraryResult(err), true
		}
		if hdr.IsDir {
			continue
		}
		// One byte is enough to make the decoder check the key.
		if _, err := io.CopyN(io.Discard, r, 1); err != nil && !errors.Is(err, io.EOF) {
			return libraryResult(err), true
		}
		log.Info().Str("path", path).Msg("archive verified via archive library")
		return Confirmed, true
	}
}

func libraryResult(err error) VerificationResult {
	switch classify(err) {
	case KindWrongPassword:
		log.Warn().Err(err).Msg("archive is protected by a different password")
		return WrongPassword
	case KindBadFormat:
		log.Warn().Err(err).Msg("file is not a rar archive")
		return NotAnArchive
	default:
		log.Error().Err(err).Msg("error during verification via archive library")
		return IOFailure
	}
}
