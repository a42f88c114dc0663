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

package telemetry

import (
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "empty", input: "", expected: ""},
		{name: "system path", input: "/usr/bin/unrar", expected: "/usr/bin/unrar"},
		{
			name:     "home path",
			input:    "/home/alice/Games/Online-Fix/Game/game.exe",
			expected: "/home/<user>/Games/Online-Fix/Game/game.exe",
		},
		{
			name:     "silverblue home",
			input:    "/var/home/alice/.local/share/Steam",
			expected: "/home/<user>/.local/share/Steam",
		},
		{
			name:     "document portal",
			input:    "/run/user/1000/doc/a1b2c3/Game.v1.2.rar",
			expected: "/run/user/<uid>/doc/<id>/Game.v1.2.rar",
		},
		{
			name:     "password argument",
			input:    "unrar t -ponline-fix.me -idp /tmp/x.rar",
			expected: "unrar t -p<redacted> -idp /tmp/x.rar",
		},
		{
			name:     "flag that merely starts with p",
			input:    "proton run -pretty",
			expected: "proton run -p<redacted>",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, sanitize(tt.input))
		})
	}
}

func TestSanitizeEvent(t *testing.T) {
	t.Parallel()

	event := &sentry.Event{
		ServerName: "alice-laptop",
		Message:    "extract failed for /home/alice/Downloads/Game.rar",
		Extra:      map[string]any{"cmd": "unrar x -psecret /tmp/a.rar", "n": 3},
		Exception: []sentry.Exception{{
			Value: "open /home/alice/x: permission denied",
			Stacktrace: &sentry.Stacktrace{Frames: []sentry.Frame{
				{AbsPath: "/home/alice/src/sofl-core/pkg/archive/extract.go"},
			}},
		}},
	}

	got := sanitizeEvent(event)
	assert.Empty(t, got.ServerName)
	assert.Equal(t, "extract failed for /home/<user>/Downloads/Game.rar", got.Message)
	assert.Equal(t, "unrar x -p<redacted> /tmp/a.rar", got.Extra["cmd"])
	assert.Equal(t, 3, got.Extra["n"])
	assert.Equal(t, "open /home/<user>/x: permission denied", got.Exception[0].Value)
	assert.Equal(t, "/home/<user>/src/sofl-core/pkg/archive/extract.go",
		got.Exception[0].Stacktrace.Frames[0].AbsPath)
}

func TestInitDisabled(t *testing.T) {
	t.Parallel()

	require.NoError(t, Init(false, "dev", false))
	assert.False(t, Enabled())
	Close()
}

func TestInitWithoutDSN(t *testing.T) {
	t.Setenv(DSNEnv, "")

	require.ErrorIs(t, Init(true, "dev", false), ErrNoDSN)
	assert.False(t, Enabled())
}
