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

// Package cli is the sofl command line: install, verify and launch games
// from a terminal.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/pflag"
)

var ErrUsage = errors.New("usage error")

// Command is one node of the command tree.
type Command struct {
	// Flags is parsed before Run. Nil means the command takes no flags.
	Flags *pflag.FlagSet

	Run    func(ctx context.Context, args []string) error
	parent *Command

	Name    string
	Summary string

	// Usage is the argument part of the usage line, e.g. "<archive>".
	Usage string

	Subcommands []*Command
}

// Execute dispatches args to the matching subcommand, parses flags and
// runs the command.
func (c *Command) Execute(ctx context.Context, w io.Writer, args []string) error {
	if len(args) > 0 && isHelpFlag(args[0]) {
		c.PrintHelp(w)
		return nil
	}

	if len(c.Subcommands) > 0 && len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		for _, sub := range c.Subcommands {
			if sub.Name == args[0] {
				sub.parent = c
				return sub.Execute(ctx, w, args[1:])
			}
		}
		return fmt.Errorf("%w: unknown command %q, run '%s --help'", ErrUsage, args[0], c.fullName())
	}

	if c.Flags != nil {
		c.Flags.SetOutput(io.Discard)
		if err := c.Flags.Parse(args); err != nil {
			if errors.Is(err, pflag.ErrHelp) {
				c.PrintHelp(w)
				return nil
			}
			return fmt.Errorf("%w: %w, run '%s --help'", ErrUsage, err, c.fullName())
		}
		args = c.Flags.Args()
	}

	if c.Run == nil {
		c.PrintHelp(w)
		return fmt.Errorf("%w: command required", ErrUsage)
	}
	return c.Run(ctx, args)
}

// PrintHelp writes usage, subcommands and flags to w.
func (c *Command) PrintHelp(w io.Writer) {
	name := c.fullName()
	if c.Summary != "" {
		_, _ = fmt.Fprintf(w, "%s\n\n", c.Summary)
	}

	switch {
	case len(c.Subcommands) > 0:
		_, _ = fmt.Fprintf(w, "Usage:\n  %s <command> [flags]\n", name)
	case c.Usage != "":
		_, _ = fmt.Fprintf(w, "Usage:\n  %s [flags] %s\n", name, c.Usage)
	default:
		_, _ = fmt.Fprintf(w, "Usage:\n  %s [flags]\n", name)
	}

	if len(c.Subcommands) > 0 {
		_, _ = fmt.Fprintf(w, "\nCommands:\n")
		tw := tabwriter.NewWriter(w, 2, 0, 3, ' ', 0)
		for _, sub := range c.Subcommands {
			_, _ = fmt.Fprintf(tw, "  %s\t%s\n", sub.Name, sub.Summary)
		}
		_ = tw.Flush()
	}

	if c.Flags != nil {
		if usage := c.Flags.FlagUsages(); usage != "" {
			_, _ = fmt.Fprintf(w, "\nFlags:\n%s", usage)
		}
	}
}

func (c *Command) fullName() string {
	if c.parent == nil {
		return c.Name
	}
	return c.parent.fullName() + " " + c.Name
}

func isHelpFlag(arg string) bool {
	return arg == "-h" || arg == "--help" || arg == "help"
}

// exactArgs fails with a usage error unless args has n entries.
func exactArgs(args []string, n int, what string) error {
	if len(args) != n {
		return fmt.Errorf("%w: expected %s", ErrUsage, what)
	}
	return nil
}
