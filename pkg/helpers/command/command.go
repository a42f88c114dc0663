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

// Package command provides an abstraction over exec.Command for testability.
package command

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
)

// StartOptions configures command startup behavior.
type StartOptions struct {
	// Env is merged on top of the current process environment. Keys are
	// applied in sorted order so the resulting environment is deterministic.
	Env map[string]string
	// Dir is the working directory of the new process. Empty means inherit.
	Dir string
	// NewSession detaches the child into its own session so it survives the
	// parent exiting (Unix only).
	NewSession bool
	// Replace runs the command with exactly Env instead of merging it with the
	// current environment.
	Replace bool
}

// Executor provides an abstraction over exec.Command for testability.
// This allows commands to be mocked in tests without executing real system commands.
type Executor interface {
	// Run executes a command and waits for it to complete.
	// Returns an error if the command fails to start or exits with non-zero status.
	Run(ctx context.Context, name string, args ...string) error

	// Output runs a command and returns its standard output.
	// Returns the output bytes and an error if the command fails.
	Output(ctx context.Context, name string, args ...string) ([]byte, error)

	// Stream runs a command and calls onLine for every line of its combined
	// stdout and stderr, then waits for it to exit.
	Stream(ctx context.Context, onLine func(string), name string, args ...string) error

	// Start starts a command without waiting for it to complete (fire-and-forget).
	// Returns an error if the command fails to start.
	Start(ctx context.Context, name string, args ...string) error

	// StartWithOptions starts a command with environment, working directory
	// and session options, returning the started process.
	StartWithOptions(ctx context.Context, opts StartOptions, name string, args ...string) (*os.Process, error)
}

// RealExecutor uses actual exec.Command to execute system commands.
// This is the production implementation used in normal operation.
type RealExecutor struct{}

// Run executes a system command using exec.CommandContext.
//
//nolint:wrapcheck // Wrapping exec errors loses important context
func (*RealExecutor) Run(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	killTreeOnCancel(cmd)
	return cmd.Run()
}

// Output runs a command and returns its standard output.
//
//nolint:wrapcheck // Wrapping exec errors loses important context
func (*RealExecutor) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	killTreeOnCancel(cmd)
	return cmd.Output()
}

// Start starts a command without waiting for it to complete.
//
//nolint:wrapcheck // Wrapping exec errors loses important context
func (*RealExecutor) Start(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Start()
}

// Stream runs a command, feeding each output line to onLine. unrar uses
// backspaces and carriage returns to redraw its percentage counter, so both
// are treated as line breaks.
func (*RealExecutor) Stream(
	ctx context.Context,
	onLine func(string),
	name string,
	args ...string,
) error {
	cmd := exec.CommandContext(ctx, name, args...)
	killTreeOnCancel(cmd)
	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		_ = pw.Close()
		_ = pr.Close()
		//nolint:wrapcheck // callers need the raw exec error to detect a missing tool
		return err
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		scanner := bufio.NewScanner(pr)
		scanner.Split(scanProgressLines)
		for scanner.Scan() {
			if onLine != nil {
				onLine(scanner.Text())
			}
		}
		// drain so the child never blocks on a full pipe
		_, _ = io.Copy(io.Discard, pr)
	}()

	waitErr := cmd.Wait()
	_ = pw.Close()
	<-done
	_ = pr.Close()

	//nolint:wrapcheck // exit status is inspected by callers
	return waitErr
}

func scanProgressLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	for i, b := range data {
		if b == '\n' || b == '\r' || b == '\b' {
			return i + 1, data[:i], nil
		}
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// StartWithOptions starts a command with the given options.
func (*RealExecutor) StartWithOptions(
	ctx context.Context,
	opts StartOptions,
	name string,
	args ...string,
) (*os.Process, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = opts.Dir
	if len(opts.Env) > 0 || opts.Replace {
		cmd.Env = MergeEnv(os.Environ(), opts.Env, opts.Replace)
	}
	applySysProcAttr(cmd, opts)

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", name, err)
	}

	// reap the child in the background so it never turns into a zombie
	go func() {
		_ = cmd.Wait()
	}()

	return cmd.Process, nil
}

// MergeEnv returns base with every entry of extra applied on top, in sorted
// key order. When replace is true base is ignored.
func MergeEnv(base []string, extra map[string]string, replace bool) []string {
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]string, 0, len(base)+len(keys))
	if !replace {
		for _, kv := range base {
			key := kv
			for i := 0; i < len(kv); i++ {
				if kv[i] == '=' {
					key = kv[:i]
					break
				}
			}
			if _, overridden := extra[key]; overridden {
				continue
			}
			out = append(out, kv)
		}
	}
	for _, k := range keys {
		out = append(out, k+"="+extra[k])
	}
	return out
}

// IsNotFound reports whether err means the executable could not be found or
// started at all, as opposed to running and exiting with a failure.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
		return true
	}
	var execErr *exec.Error
	return errors.As(err, &execErr)
}

// ExitCode returns the exit status carried by err and true, or -1 and false
// when err does not describe a process exit.
func ExitCode(err error) (int, bool) {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), true
	}
	return -1, false
}
