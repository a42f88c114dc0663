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

package launch

import (
	"context"

	"github.com/sofl-project/sofl-core/pkg/config"
	"github.com/sofl-project/sofl-core/pkg/launch/compat"
	"github.com/sofl-project/sofl-core/pkg/library"
)

// DirectBackend runs proton itself with the environment Steam would set.
type DirectBackend struct {
	builder *compat.Builder
	runner  Runner
}

func NewDirectBackend(builder *compat.Builder, runner Runner) *DirectBackend {
	return &DirectBackend{builder: builder, runner: runner}
}

func (*DirectBackend) ID() config.Backend {
	return config.BackendDirect
}

func (b *DirectBackend) Launch(ctx context.Context, rec *library.Record, s *config.Launch) error {
	plan, err := b.builder.Build(ctx, rec, s)
	if err != nil {
		return err //nolint:wrapcheck // sentinel errors are matched by the caller
	}
	return startPlan(ctx, b.runner, plan)
}
