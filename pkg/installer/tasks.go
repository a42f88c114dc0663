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

package installer

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/sofl-project/sofl-core/pkg/archive"
	"github.com/sofl-project/sofl-core/pkg/helpers/syncutil"
)

var ErrRunnerClosed = errors.New("task runner is closed")

// Dispatcher runs fn on the controlling loop. It must not block waiting
// for the worker that calls it.
type Dispatcher func(fn func())

// Job is the work of one task. It must return once ctx is cancelled.
type Job func(ctx context.Context, onProgress archive.ProgressFunc) Result

// Callbacks receive a task's progress and completion on the controlling
// loop. Progress stops once a newer task starts; OnDone fires exactly once
// for every task, with the cancellation error for superseded ones.
type Callbacks struct {
	OnProgress func(id uuid.UUID, p archive.Progress)
	OnDone     func(id uuid.UUID, r Result)
}

type runningTask struct {
	cancel context.CancelFunc
	done   chan struct{}
	id     uuid.UUID
}

// TaskRunner runs install jobs in the background, one current task at a
// time. Starting a task cancels the one before it and reaps it in the
// background, so external processes do not outlive the task that started
// them.
type TaskRunner struct {
	dispatch Dispatcher
	current  *runningTask
	wg       sync.WaitGroup
	mu       syncutil.Mutex
	closed   bool
}

func NewTaskRunner(dispatch Dispatcher) *TaskRunner {
	if dispatch == nil {
		dispatch = func(fn func()) { fn() }
	}
	return &TaskRunner{dispatch: dispatch}
}

// Start launches job on its own goroutine and returns its id.
func (r *TaskRunner) Start(ctx context.Context, job Job, cb Callbacks) (uuid.UUID, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return uuid.Nil, ErrRunnerClosed
	}

	tctx, cancel := context.WithCancel(ctx)
	t := &runningTask{id: uuid.New(), cancel: cancel, done: make(chan struct{})}
	prev := r.current
	r.current = t
	r.wg.Add(1)
	r.mu.Unlock()

	if prev != nil {
		r.reap(prev)
	}

	log.Debug().Stringer("task", t.id).Msg("starting install task")
	go r.run(tctx, t, job, cb)
	return t.id, nil
}

// Current returns the id of the current task, or uuid.Nil.
func (r *TaskRunner) Current() uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil {
		return uuid.Nil
	}
	return r.current.id
}

// Cancel stops the current task without starting another.
func (r *TaskRunner) Cancel() {
	r.mu.Lock()
	prev := r.current
	r.current = nil
	r.mu.Unlock()
	if prev != nil {
		r.reap(prev)
	}
}

// Close cancels the current task and waits for every task goroutine,
// including ones still being reaped.
func (r *TaskRunner) Close() {
	r.mu.Lock()
	r.closed = true
	prev := r.current
	r.current = nil
	r.mu.Unlock()

	if prev != nil {
		prev.cancel()
	}
	r.wg.Wait()
}

func (r *TaskRunner) isCurrent(t *runningTask) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current == t
}

// reap cancels t and logs once its goroutine has returned. It does not
// block the caller.
func (r *TaskRunner) reap(t *runningTask) {
	t.cancel()
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		<-t.done
		log.Debug().Stringer("task", t.id).Msg("reaped superseded install task")
	}()
}

func (r *TaskRunner) run(ctx context.Context, t *runningTask, job Job, cb Callbacks) {
	defer r.wg.Done()
	defer close(t.done)
	defer t.cancel()

	onProgress := func(p archive.Progress) {
		if cb.OnProgress == nil || !r.isCurrent(t) {
			return
		}
		r.dispatch(func() { cb.OnProgress(t.id, p) })
	}

	res := job(ctx, onProgress)
	if !res.Success && res.Err == nil && ctx.Err() != nil {
		res.Err = ctx.Err()
	}

	r.mu.Lock()
	if r.current == t {
		r.current = nil
	}
	r.mu.Unlock()

	if cb.OnDone != nil {
		r.dispatch(func() { cb.OnDone(t.id, res) })
	}
}
