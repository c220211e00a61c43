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

package status

import (
	"io"
	"sync"

	"github.com/pterm/pterm"
	"gitlab.com/tozd/go/errors"
)

// 📊 Bar shows a stream of progress fractions on a pterm progress bar
type Bar struct {
	mu      sync.Mutex
	bar     *pterm.ProgressbarPrinter
	current int
	stopped bool
}

// 🏭 NewBar starts a bar titled title that writes to w
func NewBar(title string, w io.Writer) (*Bar, error) {
	bar, err := pterm.DefaultProgressbar.
		WithTotal(100).
		WithTitle(title).
		WithWriter(w).
		Start()
	if err != nil {
		return nil, errors.Errorf("starting progress bar: %w", err)
	}
	return &Bar{bar: bar}, nil
}

// Update advances the bar to fraction. Fractions below the current value are ignored.
func (b *Bar) Update(fraction float64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	pct := Percent(fraction)
	if b.stopped || pct <= b.current {
		return
	}
	b.bar.Add(pct - b.current)
	b.current = pct
	if pct >= 100 {
		// the bar stops itself once it is full
		b.stopped = true
	}
}

// Current returns the last percentage shown
func (b *Bar) Current() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}

// Stop ends the bar, leaving it at the last value shown
func (b *Bar) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.stopped {
		return
	}
	b.stopped = true
	_, _ = b.bar.Stop()
}
