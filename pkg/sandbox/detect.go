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

// Package sandbox bridges file access and process execution out of a
// Flatpak sandbox into the host.
package sandbox

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"gopkg.in/ini.v1"
)

// MarkerPath exists only inside a Flatpak sandbox.
const MarkerPath = "/.flatpak-info"

// Detector reports whether the process runs inside a sandbox.
type Detector interface {
	IsSandboxed() bool
}

// StaticDetector always gives the same answer.
type StaticDetector bool

func (d StaticDetector) IsSandboxed() bool {
	return bool(d)
}

// Info is what the sandbox marker says about the running app.
type Info struct {
	AppID      string
	Runtime    string
	InstanceID string
}

// ParseInfo reads a Flatpak info keyfile.
func ParseInfo(data []byte) (Info, error) {
	f, err := ini.Load(data)
	if err != nil {
		return Info{}, fmt.Errorf("failed to parse flatpak info: %w", err)
	}
	return Info{
		AppID:      f.Section("Application").Key("name").String(),
		Runtime:    f.Section("Application").Key("runtime").String(),
		InstanceID: f.Section("Instance").Key("instance-id").String(),
	}, nil
}

// FlatpakDetector checks for the marker file once and caches the answer.
type FlatpakDetector struct {
	fs        afero.Fs
	info      Info
	once      sync.Once
	sandboxed bool
}

func NewFlatpakDetector(fs afero.Fs) *FlatpakDetector {
	return &FlatpakDetector{fs: fs}
}

func (d *FlatpakDetector) IsSandboxed() bool {
	d.once.Do(d.detect)
	return d.sandboxed
}

// Info returns the parsed marker contents. It is empty outside a sandbox.
func (d *FlatpakDetector) Info() Info {
	d.once.Do(d.detect)
	return d.info
}

func (d *FlatpakDetector) detect() {
	data, err := afero.ReadFile(d.fs, MarkerPath)
	if err != nil {
		return
	}
	d.sandboxed = true

	info, err := ParseInfo(data)
	if err != nil {
		log.Warn().Err(err).Msg("sandbox marker found but unreadable")
		return
	}
	d.info = info
	log.Info().
		Str("app", info.AppID).
		Str("runtime", info.Runtime).
		Msg("running inside flatpak sandbox")
}
