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
	"os"

	"gitlab.com/tozd/go/errors"
)

// 🔑 Token is a temporary permission grant for one external resource
type Token interface {
	Release()
}

// 🔐 Accessor grants scoped access to paths outside the managed tree.
// Every Token returned by Acquire is released by the caller.
type Accessor interface {
	Acquire(ctx context.Context, path string) (Token, error)
}

// AccessorFunc adapts a function to Accessor
type AccessorFunc func(ctx context.Context, path string) (Token, error)

func (f AccessorFunc) Acquire(ctx context.Context, path string) (Token, error) {
	return f(ctx, path)
}

type nopToken struct{}

func (nopToken) Release() {}

// statAccessor grants access to anything that can be stat'ed
type statAccessor struct{}

func (statAccessor) Acquire(_ context.Context, path string) (Token, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, errors.Errorf("stat %s: %w", path, err)
	}
	return nopToken{}, nil
}
