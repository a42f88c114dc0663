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
)

var (
	ErrToolUnavailable      = errors.New("archive tool unavailable")
	ErrArchiveBadFormat     = errors.New("not a valid archive")
	ErrArchiveWrongPassword = errors.New("wrong archive password")
	ErrArchiveEmpty         = errors.New("archive is empty")
	ErrIOFailure            = errors.New("archive i/o failure")
	ErrTimeoutExceeded      = errors.New("archive operation timed out")
	ErrCanceled             = errors.New("archive operation canceled")
)

// Kind classifies an archive failure. Each kind matches one of the
// package's sentinel errors with errors.Is.
type Kind int

const (
	KindToolUnavailable Kind = iota + 1
	KindBadFormat
	KindWrongPassword
	KindEmpty
	KindIOFailure
	KindTimeout
	KindCanceled
)

func (k Kind) sentinel() error {
	switch k {
	case KindToolUnavailable:
		return ErrToolUnavailable
	case KindBadFormat:
		return ErrArchiveBadFormat
	case KindWrongPassword:
		return ErrArchiveWrongPassword
	case KindEmpty:
		return ErrArchiveEmpty
	case KindTimeout:
		return ErrTimeoutExceeded
	case KindCanceled:
		return ErrCanceled
	default:
		return ErrIOFailure
	}
}

func (k Kind) String() string {
	return k.sentinel().Error()
}

// Error carries the archive path and pipeline stage alongside the failure
// kind, so the message shown to the user says what broke and where.
type Error struct {
	Err   error
	Path  string
	Stage string
	Kind  Kind
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s %s: %s", e.Stage, e.Path, e.Kind)
	}
	return fmt.Sprintf("%s %s: %s: %v", e.Stage, e.Path, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	return target == e.Kind.sentinel()
}

// contextError classifies a context failure: a passed deadline is a
// timeout, anything else a cancellation.
func contextError(stage, path string, err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return newError(KindTimeout, stage, path, err)
	}
	return newError(KindCanceled, stage, path, err)
}

func newError(kind Kind, stage, path string, err error) *Error {
	return &Error{Kind: kind, Stage: stage, Path: path, Err: err}
}
