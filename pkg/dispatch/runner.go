// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package dispatch

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// 🏃 Runner executes jobs and settles their futures on a completion Context
type Runner struct {
	completion Context
	async      bool

	wg sync.WaitGroup
}

// 🏗️ NewRunner creates a new runner. A synchronous runner executes jobs on
// the submitting goroutine, which keeps tests deterministic.
func NewRunner(completion Context, async bool) *Runner {
	if completion == nil {
		completion = Inline()
	}
	return &Runner{
		completion: completion,
		async:      async,
	}
}

// Completion returns the context that receives this runner's callbacks
func (r *Runner) Completion() Context {
	return r.completion
}

// Drain blocks until every job submitted so far has settled
func (r *Runner) Drain() {
	r.wg.Wait()
}

// 🚀 Submit runs job and returns a future for its result. Functions passed as
// finally run on the completion context after the future's callbacks.
func Submit[T any](ctx context.Context, r *Runner, name string, job func(context.Context) (T, error), finally ...func()) *Future[T] {
	f := newFuture[T](r.completion)
	for _, fn := range finally {
		f.onDelivered(fn)
	}

	r.wg.Add(1)
	if r.async {
		go execute(ctx, r, f, name, job)
	} else {
		execute(ctx, r, f, name, job)
	}
	return f
}

func execute[T any](ctx context.Context, r *Runner, f *Future[T], name string, job func(context.Context) (T, error)) {
	defer r.wg.Done()

	logger := zerolog.Ctx(ctx).With().Str("job", name).Logger()
	logger.Debug().Bool("async", r.async).Msg("starting job")

	var (
		value T
		err   error
	)
	func() {
		defer func() {
			if p := recover(); p != nil {
				err = errors.Errorf("job %s panicked: %v", name, p)
			}
		}()
		value, err = job(ctx)
	}()

	if err != nil {
		logger.Debug().Err(err).Msg("job failed")
	} else {
		logger.Debug().Msg("job finished")
	}
	f.settle(value, err)
}
