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
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"
)

func testContext(t *testing.T) context.Context {
	logger := zerolog.New(zerolog.NewTestWriter(t)).Level(zerolog.DebugLevel)
	return logger.WithContext(context.Background())
}

func TestSubmitSync(t *testing.T) {
	ctx := testContext(t)
	r := NewRunner(Inline(), false)

	var got int
	f := Submit(ctx, r, "answer", func(context.Context) (int, error) {
		return 42, nil
	})
	f.Then(func(v int, err error) {
		require.NoError(t, err)
		got = v
	})

	assert.Equal(t, 42, got, "sync runner should deliver before Submit returns")
	v, err := f.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestSubmitAsyncDeliversOnLoop(t *testing.T) {
	ctx := testContext(t)
	loop := NewLoop()
	defer loop.Close()

	r := NewRunner(loop, true)
	release := make(chan struct{})

	var order []string
	var mu sync.Mutex
	record := func(s string) {
		mu.Lock()
		defer mu.Unlock()
		order = append(order, s)
	}

	f := Submit(ctx, r, "slow", func(context.Context) (string, error) {
		<-release
		return "done", nil
	}, func() { record("finally") })
	f.Then(func(v string, err error) { record("first:" + v) })
	f.Then(func(v string, err error) { record("second:" + v) })
	close(release)

	v, err := f.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, "done", v)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"first:done", "second:done", "finally"}, order, "callbacks should run in order before finally")
}

func TestSubmitRecoversPanic(t *testing.T) {
	ctx := testContext(t)
	r := NewRunner(nil, false)

	f := Submit(ctx, r, "boom", func(context.Context) (int, error) {
		panic("kaboom")
	})
	_, err := f.Wait(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kaboom")
}

func TestSubmitPropagatesError(t *testing.T) {
	ctx := testContext(t)
	r := NewRunner(Inline(), true)
	sentinel := errors.Base("sentinel")

	f := Submit(ctx, r, "fails", func(context.Context) (int, error) {
		return 0, errors.Errorf("wrapped: %w", sentinel)
	})
	_, err := f.Wait(ctx)
	assert.True(t, errors.Is(err, sentinel), "error should wrap sentinel")
}

func TestFutureSettlesOnce(t *testing.T) {
	f := newFuture[int](Inline())
	var calls int32
	f.Then(func(int, error) { atomic.AddInt32(&calls, 1) })

	assert.True(t, f.settle(1, nil))
	assert.False(t, f.settle(2, nil), "second settle should be ignored")

	v, err := f.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestThenAfterSettlement(t *testing.T) {
	f := Settled(Inline(), "x", nil)
	var got string
	f.Then(func(v string, err error) { got = v })
	assert.Equal(t, "x", got)
}

func TestWaitHonorsContext(t *testing.T) {
	f := newFuture[int](Inline())
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := f.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLoopRunsSerially(t *testing.T) {
	loop := NewLoop()

	var running, maxRunning int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go loop.Post(func() {
			defer wg.Done()
			n := atomic.AddInt32(&running, 1)
			if n > atomic.LoadInt32(&maxRunning) {
				atomic.StoreInt32(&maxRunning, n)
			}
			atomic.AddInt32(&running, -1)
		})
	}
	wg.Wait()
	loop.Close()

	assert.Equal(t, int32(1), atomic.LoadInt32(&maxRunning), "loop callbacks should never overlap")

	ran := false
	loop.Post(func() { ran = true })
	assert.True(t, ran, "posting to a closed loop should run inline")
}

func TestDrain(t *testing.T) {
	ctx := testContext(t)
	r := NewRunner(Inline(), true)

	var finished int32
	for i := 0; i < 5; i++ {
		Submit(ctx, r, "tick", func(context.Context) (struct{}, error) {
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&finished, 1)
			return struct{}{}, nil
		})
	}
	r.Drain()
	assert.Equal(t, int32(5), atomic.LoadInt32(&finished))
}
