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

package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/sofl-project/sofl-core/pkg/archive"
)

var errNotConfirmed = errors.New("archive check failed")

func (a *App) verifyCommand() *Command {
	flags := newFlags("verify")
	password := flags.StringP("password", "p", "", "archive password (default from settings)")

	return &Command{
		Name:    "verify",
		Summary: "Check that an archive opens with the password",
		Usage:   "<archive>",
		Flags:   flags,
		Run: func(ctx context.Context, args []string) error {
			if err := exactArgs(args, 1, "one archive path"); err != nil {
				return err
			}
			pw := *password
			if pw == "" {
				pw = a.Config.ArchivePassword()
			}

			src := a.Bridge.CopyRestrictedFile(ctx, args[0])
			if src != args[0] {
				defer a.Bridge.ReleaseRestrictedCopy(src)
			}
			res := archive.NewVerifier(a.archiveOptions()...).Verify(ctx, src, pw)
			_, _ = fmt.Fprintln(a.Out, res)
			if res != archive.Confirmed {
				return fmt.Errorf("%w: %s", errNotConfirmed, res)
			}
			return nil
		},
	}
}

func (a *App) titleCommand() *Command {
	return &Command{
		Name:    "title",
		Summary: "Print the game title found in archive file names",
		Usage:   "<file>...",
		Run: func(_ context.Context, args []string) error {
			for _, name := range args {
				_, _ = fmt.Fprintln(a.Out, archive.ExtractTitle(filepath.Base(name)))
			}
			return nil
		},
	}
}
