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

package command

import (
	"os"
	"os/exec"

	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v4/process"
)

// KillTree sends SIGKILL to proc and every descendant, children first, so a
// cancelled extraction never leaves a helper process running on its own.
func KillTree(proc *os.Process) error {
	if proc == nil {
		return nil
	}
	pid := int32(proc.Pid) //nolint:gosec // PID fits in int32

	tree := processTree(pid)
	if len(tree) == 0 {
		log.Debug().Int32("pid", pid).Msg("process not found, may have already exited")
		//nolint:wrapcheck // returned as is to exec.Cmd.Cancel
		return proc.Kill()
	}

	log.Debug().Int("count", len(tree)).Int32("rootPid", pid).Msg("killing process tree")
	for _, p := range tree {
		if err := p.Kill(); err != nil {
			log.Debug().Err(err).Int32("pid", p.Pid).Msg("failed to kill process")
		}
	}
	return nil
}

// processTree returns the process and all its descendants.
// Descendants are ordered before their parents.
func processTree(pid int32) []*process.Process {
	proc, err := process.NewProcess(pid)
	if err != nil {
		return nil
	}

	descendants := descendantsOf(proc)
	result := make([]*process.Process, 0, len(descendants)+1)
	result = append(result, descendants...)
	result = append(result, proc)
	return result
}

func descendantsOf(proc *process.Process) []*process.Process {
	children, err := proc.Children()
	if err != nil || len(children) == 0 {
		return nil
	}
	out := make([]*process.Process, 0, len(children))
	for _, child := range children {
		out = append(out, descendantsOf(child)...)
		out = append(out, child)
	}
	return out
}

// killTreeOnCancel makes a context cancellation take down the whole tree
// instead of only the direct child.
func killTreeOnCancel(cmd *exec.Cmd) {
	cmd.Cancel = func() error {
		return KillTree(cmd.Process)
	}
}
