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
	"os"
	"path/filepath"
	"testing"

	"github.com/nwaples/rardecode/v2"
	"github.com/sofl-project/sofl-core/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The testdata archives are RAR5 with stored entries Game/Game.exe and
// Game/readme.txt. encrypted.rar uses the Online-Fix password.
func fixture(name string) string {
	return filepath.Join("testdata", name)
}

func TestVerify_ArchiveLibrary(t *testing.T) {
	t.Parallel()

	zeroBytes := filepath.Join(t.TempDir(), "zero.rar")
	require.NoError(t, os.WriteFile(zeroBytes, nil, 0o600))

	tests := []struct {
		name     string
		path     string
		password string
		want     VerificationResult
	}{
		{name: "encrypted with right password", path: fixture("encrypted.rar"), password: config.OnlineFixPassword, want: Confirmed},
		{name: "encrypted with wrong password", path: fixture("encrypted.rar"), password: "hunter2", want: WrongPassword},
		{name: "encrypted with empty password", path: fixture("encrypted.rar"), password: "", want: WrongPassword},
		{name: "unencrypted", path: fixture("plain.rar"), password: config.OnlineFixPassword, want: Confirmed},
		{name: "no entries", path: fixture("empty.rar"), password: config.OnlineFixPassword, want: NotAnArchive},
		{name: "not a rar", path: fixture("garbage.rar"), password: config.OnlineFixPassword, want: NotAnArchive},
		{name: "zero bytes", path: zeroBytes, password: config.OnlineFixPassword, want: NotAnArchive},
		{name: "missing file", path: fixture("missing.rar"), password: config.OnlineFixPassword, want: IOFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := NewVerifier(noTool()).Verify(context.Background(), tt.path, tt.password)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtract_ArchiveLibrary(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"encrypted.rar", "plain.rar"} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			dest := filepath.Join(t.TempDir(), "games")
			task := Task{Path: fixture(name), Password: config.OnlineFixPassword}
			require.NoError(t, NewExtractor(noTool()).Extract(context.Background(), task, dest, nil))

			exe, err := os.ReadFile(filepath.Join(dest, "Game", "Game.exe"))
			require.NoError(t, err)
			assert.Equal(t, "MZ fixture executable\n", string(exe))
			readme, err := os.ReadFile(filepath.Join(dest, "Game", "readme.txt"))
			require.NoError(t, err)
			assert.Equal(t, "thanks for playing\n", string(readme))
		})
	}
}

func TestExtract_ArchiveLibraryFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		want     error
		name     string
		path     string
		password string
	}{
		{name: "wrong password", path: fixture("encrypted.rar"), password: "hunter2", want: ErrArchiveWrongPassword},
		{name: "not a rar", path: fixture("garbage.rar"), password: config.OnlineFixPassword, want: ErrArchiveBadFormat},
		{name: "missing file", path: fixture("missing.rar"), password: config.OnlineFixPassword, want: ErrIOFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dest := filepath.Join(t.TempDir(), "games")
			err := NewExtractor(noTool()).
				Extract(context.Background(), Task{Path: tt.path, Password: tt.password}, dest, nil)

			require.ErrorIs(t, err, tt.want)
			assert.DirExists(t, dest)
			assert.NoFileExists(t, filepath.Join(dest, "Game", "Game.exe"))
		})
	}
}

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		name string
		want Kind
	}{
		{name: "bad password", err: rardecode.ErrBadPassword, want: KindWrongPassword},
		{name: "password required", err: rardecode.ErrArchiveEncrypted, want: KindWrongPassword},
		{name: "file password required", err: rardecode.ErrArchivedFileEncrypted, want: KindWrongPassword},
		{name: "checksum mismatch", err: rardecode.ErrBadFileChecksum, want: KindWrongPassword},
		{name: "header crc mismatch", err: rardecode.ErrBadHeaderCRC, want: KindWrongPassword},
		{name: "no signature", err: fmt.Errorf("failed to open archive: %w", rardecode.ErrNoSig), want: KindBadFormat},
		{name: "corrupt block", err: rardecode.ErrCorruptBlockHeader, want: KindBadFormat},
		{name: "missing file", err: os.ErrNotExist, want: KindIOFailure},
		{name: "other", err: errors.New("disk on fire"), want: KindIOFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, classify(tt.err))
		})
	}
}
