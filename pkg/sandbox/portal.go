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

package sandbox

import (
	"bytes"
	"context"
	"fmt"
	"regexp"

	"github.com/godbus/dbus/v5"
)

const (
	documentsService   = "org.freedesktop.portal.Documents"
	documentsPath      = "/org/freedesktop/portal/documents"
	documentsInterface = "org.freedesktop.portal.Documents"
)

// portalPattern matches paths served by the document portal FUSE mount:
// /run/user/<uid>/doc/<doc id>/<file>.
var portalPattern = regexp.MustCompile(`^/run/user/\d+/doc/([^/]+)/`)

// IsPortalPath reports whether path is a document portal path.
func IsPortalPath(path string) bool {
	return portalPattern.MatchString(path)
}

// DocumentID extracts the portal document id from path, or "".
func DocumentID(path string) string {
	m := portalPattern.FindStringSubmatch(path)
	if m == nil {
		return ""
	}
	return m[1]
}

// HostPathResolver maps portal document ids to the real paths on the host.
type HostPathResolver interface {
	HostPaths(ctx context.Context, ids []string) (map[string]string, error)
}

// DBusPortal asks the Documents portal on the session bus.
type DBusPortal struct{}

func (DBusPortal) HostPaths(ctx context.Context, ids []string) (map[string]string, error) {
	conn, err := dbus.SessionBusPrivate()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}
	defer func() { _ = conn.Close() }()

	if err := conn.Auth(nil); err != nil {
		return nil, fmt.Errorf("session bus auth failed: %w", err)
	}
	if err := conn.Hello(); err != nil {
		return nil, fmt.Errorf("session bus hello failed: %w", err)
	}

	var raw map[string][]byte
	obj := conn.Object(documentsService, documentsPath)
	call := obj.CallWithContext(ctx, documentsInterface+".GetHostPaths", 0, ids)
	if call.Err != nil {
		return nil, fmt.Errorf("GetHostPaths failed: %w", call.Err)
	}
	if err := call.Store(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode host paths: %w", err)
	}

	paths := make(map[string]string, len(raw))
	for id, p := range raw {
		// byte string paths are NUL terminated
		paths[id] = string(bytes.TrimRight(p, "\x00"))
	}
	return paths, nil
}
