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
	"bytes"
	"io"

	"github.com/nwaples/rardecode/v2"
)

type fakeEntry struct {
	err  error
	name string
	data string
	dir  bool
}

// fakeReader serves entries from memory. An entry with err set fails Next
// when reached.
type fakeReader struct {
	cur     *bytes.Reader
	readErr error
	entries []fakeEntry
	pos     int
	closed  bool
}

func (f *fakeReader) Next() (*rardecode.FileHeader, error) {
	if f.pos >= len(f.entries) {
		return nil, io.EOF
	}
	e := f.entries[f.pos]
	f.pos++
	if e.err != nil {
		return nil, e.err
	}
	f.cur = bytes.NewReader([]byte(e.data))
	return &rardecode.FileHeader{Name: e.name, IsDir: e.dir}, nil
}

func (f *fakeReader) Read(p []byte) (int, error) {
	if f.readErr != nil {
		return 0, f.readErr
	}
	if f.cur == nil {
		return 0, io.EOF
	}
	return f.cur.Read(p)
}

func (f *fakeReader) Close() error {
	f.closed = true
	return nil
}

// fakeOpener returns a fresh reader over entries on every open.
func fakeOpener(entries []fakeEntry, openErr, readErr error) Opener {
	return func(_, _ string) (EntryReader, error) {
		if openErr != nil {
			return nil, openErr
		}
		return &fakeReader{entries: entries, readErr: readErr}, nil
	}
}

func noTool() Option {
	return WithToolLookup(
		func(string) (string, error) { return "", errToolNotFound },
		func(string) bool { return false },
	)
}

func toolAt(path string) Option {
	return WithToolLookup(
		func(string) (string, error) { return path, nil },
		func(string) bool { return false },
	)
}
