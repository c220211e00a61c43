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

package archive

import (
	"sync"
	"time"

	"github.com/walteh/bundlekit/pkg/dispatch"
)

// upper bound reported before a job has really finished
const pendingCeiling = 0.99

// 📈 tracker turns byte counts into throttled, non-decreasing fractions
// delivered on the completion context
type tracker struct {
	completion dispatch.Context
	fn         func(float64)
	interval   time.Duration

	mu     sync.Mutex
	last   float64
	lastAt time.Time
	done   bool
}

func newTracker(completion dispatch.Context, fn func(float64), interval time.Duration) *tracker {
	return &tracker{completion: completion, fn: fn, interval: interval, last: -1}
}

func (t *tracker) bytes(done, total int64) {
	if t.fn == nil {
		return
	}

	frac := 0.0
	if total > 0 {
		frac = float64(done) / float64(total)
	}
	if frac > pendingCeiling {
		frac = pendingCeiling
	}
	if frac < 0 {
		frac = 0
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done || frac <= t.last {
		return
	}
	now := time.Now()
	if t.last >= 0 && now.Sub(t.lastAt) < t.interval {
		return
	}
	t.last = frac
	t.lastAt = now
	t.post(frac)
}

// complete reports exactly 1.0
func (t *tracker) complete() {
	if t.fn == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return
	}
	t.done = true
	t.last = 1
	t.post(1)
}

// post runs under mu so fractions reach the completion context in order
func (t *tracker) post(frac float64) {
	fn := t.fn
	t.completion.Post(func() { fn(frac) })
}
