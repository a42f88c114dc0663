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

// Package telemetry sends opt-in error reports to Sentry. Usernames,
// document portal ids and archive passwords are removed before anything
// leaves the machine.
package telemetry

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"runtime"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	sentryzerolog "github.com/getsentry/sentry-go/zerolog"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sofl-project/sofl-core/pkg/helpers"
)

const (
	flushTimeout = 2 * time.Second
	// DSNEnv overrides the DSN baked in at build time.
	DSNEnv = "SOFL_SENTRY_DSN"
)

// DSN is set at build time with -ldflags "-X ...telemetry.DSN=...".
var DSN = ""

var ErrNoDSN = errors.New("no error reporting DSN configured")

var (
	enabled      bool
	sentryWriter *sentryzerolog.Writer
	closeOnce    sync.Once

	homePathRe   = regexp.MustCompile(`(?i)(/var)?/home/[^/]+/`)
	portalPathRe = regexp.MustCompile(`/run/user/\d+/doc/[^/]+/`)
	passwordRe   = regexp.MustCompile(`(^|\s)-p[^\s]+`)
)

func dsn() string {
	if v := os.Getenv(DSNEnv); v != "" {
		return v
	}
	return DSN
}

// Init starts error reporting when reportingEnabled is set. Reports are
// tagged with the app version and whether SOFL runs in a sandbox.
func Init(reportingEnabled bool, appVersion string, sandboxed bool) error {
	if !reportingEnabled {
		log.Debug().Msg("error reporting disabled")
		return nil
	}
	target := dsn()
	if target == "" {
		return ErrNoDSN
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              target,
		Release:          "sofl-core@" + appVersion,
		AttachStacktrace: true,
		SendDefaultPII:   false,
		ServerName:       "",
		MaxBreadcrumbs:   0,
		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			return sanitizeEvent(event)
		},
	})
	if err != nil {
		return fmt.Errorf("failed to initialize sentry: %w", err)
	}

	sentry.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("os", runtime.GOOS)
		scope.SetTag("arch", runtime.GOARCH)
		scope.SetTag("sandboxed", fmt.Sprint(sandboxed))
	})

	sentryWriter, err = sentryzerolog.NewWithHub(sentry.CurrentHub(), sentryzerolog.Options{
		Levels:          []zerolog.Level{zerolog.ErrorLevel, zerolog.FatalLevel, zerolog.PanicLevel},
		FlushTimeout:    flushTimeout,
		WithBreadcrumbs: false,
	})
	if err != nil {
		return fmt.Errorf("failed to create sentry zerolog writer: %w", err)
	}

	log.Logger = log.Output(zerolog.MultiLevelWriter(
		helpers.LogWriter(),
		sentryWriter,
	)).With().Caller().Logger()

	enabled = true
	log.Info().Msg("error reporting enabled")
	return nil
}

// Close flushes pending events and shuts Sentry down. Safe to call more
// than once.
func Close() {
	if !enabled {
		return
	}
	closeOnce.Do(func() {
		_ = sentryWriter.Close()
		sentry.Flush(flushTimeout)
	})
}

func Enabled() bool {
	return enabled
}

func sanitizeEvent(event *sentry.Event) *sentry.Event {
	event.ServerName = ""

	for i := range event.Exception {
		event.Exception[i].Value = sanitize(event.Exception[i].Value)
		if event.Exception[i].Stacktrace == nil {
			continue
		}
		for j := range event.Exception[i].Stacktrace.Frames {
			frame := &event.Exception[i].Stacktrace.Frames[j]
			frame.AbsPath = sanitize(frame.AbsPath)
			frame.Filename = sanitize(frame.Filename)
		}
	}

	event.Message = sanitize(event.Message)
	for k, v := range event.Extra {
		if s, ok := v.(string); ok {
			event.Extra[k] = sanitize(s)
		}
	}
	return event
}

// sanitize strips usernames, portal document ids and -p<password> tool
// arguments from s.
func sanitize(s string) string {
	if s == "" {
		return s
	}
	s = homePathRe.ReplaceAllString(s, "/home/<user>/")
	s = portalPathRe.ReplaceAllString(s, "/run/user/<uid>/doc/<id>/")
	return passwordRe.ReplaceAllString(s, "$1-p<redacted>")
}
