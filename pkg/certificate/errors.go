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

package certificate

import "gitlab.com/tozd/go/errors"

var (
	ErrInvalidFile            = errors.Base("invalid or inaccessible file")
	ErrInvalidFileFormat      = errors.Base("invalid file format")
	ErrMissingProfileData     = errors.Base("missing provisioning profile data")
	ErrMissingCertificateData = errors.Base("missing certificate data")
	ErrInvalidPassword        = errors.Base("invalid certificate password")
	ErrMultipleProfilesFound  = errors.Base("multiple .mobileprovision files found")
	ErrNoProfileFound         = errors.Base("no .mobileprovision file found in the same directory")
	ErrImportFailed           = errors.Base("failed to import certificate")

	// ErrRequestConsumed is returned when a Request is submitted twice
	ErrRequestConsumed = errors.Base("request already consumed")

	// ErrWrongPassword is what a Parser returns when the container rejects the password
	ErrWrongPassword = errors.Base("wrong password")
)

// ❌ ImportFailedError carries the store's reason for refusing an identity
type ImportFailedError struct {
	Detail string
	Err    error
}

func (e *ImportFailedError) Error() string {
	return "failed to import certificate: " + e.Detail
}

func (e *ImportFailedError) Unwrap() error {
	return e.Err
}

func (e *ImportFailedError) Is(target error) bool {
	return target == ErrImportFailed
}
