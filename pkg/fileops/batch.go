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

package fileops

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// 📊 BatchResult accounts for every item of a batch operation
type BatchResult struct {
	SuccessCount int
	Failures     []Failure
}

// Failure describes one item that did not complete
type Failure struct {
	Name    string // Item name as supplied
	Message string // Human readable reason
	Err     error  // Underlying error for errors.Is matching
}

// Total returns the number of items the result accounts for
func (r BatchResult) Total() int {
	return r.SuccessCount + len(r.Failures)
}

// OK reports whether every item succeeded
func (r BatchResult) OK() bool {
	return len(r.Failures) == 0
}

// Merge appends other's accounting to r
func (r BatchResult) Merge(other BatchResult) BatchResult {
	return BatchResult{
		SuccessCount: r.SuccessCount + other.SuccessCount,
		Failures:     append(append([]Failure(nil), r.Failures...), other.Failures...),
	}
}

// ⚡ Batch runs op for every item on at most workers goroutines and aggregates
// the outcomes in input order. A cancelled ctx fails the items not yet started.
func Batch[T any](ctx context.Context, workers int, items []T, name func(T) string, op func(context.Context, T) error) BatchResult {
	if workers < 1 {
		workers = 1
	}

	errs := make([]error, len(items))
	var g errgroup.Group
	g.SetLimit(workers)
	for i, item := range items {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			errs[i] = op(ctx, item)
			return nil
		})
	}
	_ = g.Wait()

	result := BatchResult{Failures: []Failure{}}
	for i, err := range errs {
		if err == nil {
			result.SuccessCount++
			continue
		}
		result.Failures = append(result.Failures, Failure{
			Name:    name(items[i]),
			Message: err.Error(),
			Err:     err,
		})
	}
	return result
}
