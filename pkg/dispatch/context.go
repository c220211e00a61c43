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

import "sync"

// 📬 Context receives completion callbacks. Every result produced by a
// Runner is delivered through Post on the Context the runner was built with.
type Context interface {
	Post(fn func())
}

type inline struct{}

// Inline returns a Context that runs callbacks on the delivering goroutine
func Inline() Context { return inline{} }

func (inline) Post(fn func()) { fn() }

// 🔁 Loop is a Context backed by a single goroutine draining a FIFO queue.
// Callbacks posted to a Loop never run concurrently with each other.
type Loop struct {
	mu     sync.Mutex
	queue  []func()
	closed bool
	wake   chan struct{}
	done   chan struct{}
}

// 🏗️ NewLoop starts a completion loop
func NewLoop() *Loop {
	l := &Loop{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go l.run()
	return l
}

// Post enqueues fn. Once the loop is closed fn runs on the caller's goroutine.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		fn()
		return
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Close drains queued callbacks and stops the loop. It must not be called
// from a callback running on the loop.
func (l *Loop) Close() {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	<-l.done
}

func (l *Loop) run() {
	defer close(l.done)
	for {
		l.mu.Lock()
		batch := l.queue
		l.queue = nil
		closed := l.closed
		l.mu.Unlock()

		for _, fn := range batch {
			fn()
		}

		if len(batch) == 0 {
			if closed {
				return
			}
			<-l.wake
		}
	}
}
