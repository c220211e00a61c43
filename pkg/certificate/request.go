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

import (
	"path/filepath"
	"strings"
	"sync/atomic"
)

// 🚦 State is a step of the import state machine
type State int

const (
	StateIdle State = iota
	StateLocatingProfile
	StateValidatingPassword
	StateSucceeded
	StateAwaitingPassword
	StateFailed
)

// String returns a string representation of State
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLocatingProfile:
		return "locating-profile"
	case StateValidatingPassword:
		return "validating-password"
	case StateSucceeded:
		return "succeeded"
	case StateAwaitingPassword:
		return "awaiting-password"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition follows s
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateAwaitingPassword || s == StateFailed
}

// 📝 Request asks the validator to import one identity. A Request is used
// once; after a wrong password build a new one with the same paths.
type Request struct {
	PrivateKeyContainerPath  string
	AuthorizationProfilePath string // located next to the container when empty
	Password                 string
	DisplayName              string // container name without extension when empty

	consumed atomic.Bool
}

// NewRequest builds a request for keyPath
func NewRequest(keyPath, profilePath, password string) *Request {
	return &Request{
		PrivateKeyContainerPath:  keyPath,
		AuthorizationProfilePath: profilePath,
		Password:                 password,
	}
}

// Retry returns a fresh request with the same paths and a new password
func (r *Request) Retry(password string) *Request {
	next := NewRequest(r.PrivateKeyContainerPath, r.AuthorizationProfilePath, password)
	next.DisplayName = r.DisplayName
	return next
}

func (r *Request) consume() bool {
	return r.consumed.CompareAndSwap(false, true)
}

func (r *Request) displayName() string {
	if strings.TrimSpace(r.DisplayName) != "" {
		return r.DisplayName
	}
	base := filepath.Base(r.PrivateKeyContainerPath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// 🏁 Outcome is the result of running a Request through the state machine
type Outcome struct {
	State       State   // Terminal state reached
	Transitions []State // Every state visited, starting at StateIdle
	ProfilePath string  // Profile that was paired with the container
	DisplayName string
	IdentityID  string // Store id on success
	Err         error  // Reason for StateFailed and StateAwaitingPassword
}
