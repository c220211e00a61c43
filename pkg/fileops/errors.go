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

import "gitlab.com/tozd/go/errors"

var (
	ErrDestinationExists   = errors.Base("destination exists")
	ErrTargetExists        = errors.Base("target exists")
	ErrInvalidName         = errors.Base("invalid name")
	ErrSourceNotAccessible = errors.Base("source not accessible")
	ErrUnsupportedType     = errors.Base("unsupported file type")
)

// 🚫 SourceNotAccessibleError reports an import source that could not be opened
type SourceNotAccessibleError struct {
	Name string
	Err  error
}

func (e *SourceNotAccessibleError) Error() string {
	return "Source file not accessible: " + e.Name
}

func (e *SourceNotAccessibleError) Unwrap() error {
	return e.Err
}

func (e *SourceNotAccessibleError) Is(target error) bool {
	return target == ErrSourceNotAccessible
}
