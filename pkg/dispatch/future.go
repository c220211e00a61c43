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
)

// 🔮 Future holds the eventual result of a job. It settles exactly once and
// delivers its value to every registered callback on its completion Context.
type Future[T any] struct {
	completion Context

	mu        sync.Mutex
	settled   bool
	value     T
	err       error
	callbacks []func(T, error)
	finally   []func()
	finished  bool

	delivered chan struct{}
}

func newFuture[T any](completion Context) *Future[T] {
	if completion == nil {
		completion = Inline()
	}
	return &Future[T]{
		completion: completion,
		delivered:  make(chan struct{}),
	}
}

// Settled returns a future that already holds value and err.
// Its callbacks run on completion.
func Settled[T any](completion Context, value T, err error) *Future[T] {
	f := newFuture[T](completion)
	f.settle(value, err)
	return f
}

// 🔗 Then registers fn to run on the completion context once the future settles.
// Callbacks registered after settlement are posted immediately.
func (f *Future[T]) Then(fn func(T, error)) *Future[T] {
	f.mu.Lock()
	if !f.settled {
		f.callbacks = append(f.callbacks, fn)
		f.mu.Unlock()
		return f
	}
	value, err := f.value, f.err
	f.mu.Unlock()

	f.completion.Post(func() { fn(value, err) })
	return f
}

// onDelivered registers fn to run after every callback registered before settlement
func (f *Future[T]) onDelivered(fn func()) {
	f.mu.Lock()
	if f.finished {
		f.mu.Unlock()
		f.completion.Post(fn)
		return
	}
	f.finally = append(f.finally, fn)
	f.mu.Unlock()
}

// ⏳ Wait blocks until the future has been delivered or ctx is done.
// Calling Wait from a callback on a Loop deadlocks that loop.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.delivered:
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Done is closed once the settled value has been delivered
func (f *Future[T]) Done() <-chan struct{} {
	return f.delivered
}

func (f *Future[T]) settle(value T, err error) bool {
	f.mu.Lock()
	if f.settled {
		f.mu.Unlock()
		return false
	}
	f.settled = true
	f.value = value
	f.err = err
	callbacks := f.callbacks
	f.callbacks = nil
	f.mu.Unlock()

	f.completion.Post(func() {
		for _, cb := range callbacks {
			cb(value, err)
		}
		f.mu.Lock()
		finally := f.finally
		f.finally = nil
		f.finished = true
		f.mu.Unlock()
		for _, fn := range finally {
			fn()
		}
		close(f.delivered)
	})
	return true
}
