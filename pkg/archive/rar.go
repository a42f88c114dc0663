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
	"errors"
	"fmt"
	"io"

	"github.com/nwaples/rardecode/v2"
)

// EntryReader walks archive entries. Read returns the bytes of the entry
// most recently returned by Next.
type EntryReader interface {
	io.Reader
	Next() (*rardecode.FileHeader, error)
	Close() error
}

// Opener opens an archive with the given password.
type Opener func(path, password string) (EntryReader, error)

// OpenRAR is the default Opener, backed by rardecode.
func OpenRAR(path, password string) (EntryReader, error) {
	rc, err := rardecode.OpenReader(path, rardecode.Password(password))
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	return rc, nil
}

func isPasswordError(err error) bool {
	return errors.Is(err, rardecode.ErrBadPassword) ||
		errors.Is(err, rardecode.ErrArchiveEncrypted) ||
		errors.Is(err, rardecode.ErrArchivedFileEncrypted) ||
		errors.Is(err, rardecode.ErrBadFileChecksum) ||
		errors.Is(err, rardecode.ErrBadHeaderCRC)
}

func isFormatError(err error) bool {
	return errors.Is(err, rardecode.ErrNoSig) ||
		errors.Is(err, rardecode.ErrCorruptBlockHeader)
}

// classify maps a library error onto an archive error kind.
func classify(err error) Kind {
	switch {
	case isPasswordError(err):
		return KindWrongPassword
	case isFormatError(err):
		return KindBadFormat
	default:
		return KindIOFailure
	}
}
