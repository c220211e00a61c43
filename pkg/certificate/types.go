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
	"bytes"
	"context"
	"crypto"
	"crypto/x509"
	"time"
)

// 🔑 Identity is an opened private-key container
type Identity struct {
	Certificate *x509.Certificate   // Leaf signing certificate
	PrivateKey  crypto.PrivateKey   // Key matching Certificate
	Chain       []*x509.Certificate // Additional certificates in the container
	Fingerprint string              // Hex SHA-256 of the leaf certificate
	Raw         []byte              // Container bytes as read from disk
}

// Subject returns the common name of the leaf certificate
func (i *Identity) Subject() string {
	if i == nil || i.Certificate == nil {
		return ""
	}
	return i.Certificate.Subject.CommonName
}

// 📜 Profile is a decoded authorization profile
type Profile struct {
	Name                  string
	UUID                  string
	TeamName              string
	TeamIdentifiers       []string
	AppIDName             string
	CreationDate          time.Time
	ExpirationDate        time.Time
	DeveloperCertificates [][]byte
	ProvisionedDevices    []string
	Entitlements          map[string]any
	Raw                   []byte // Profile bytes as read from disk
}

// Lists reports whether cert is one of the profile's developer certificates
func (p *Profile) Lists(cert *x509.Certificate) bool {
	if p == nil || cert == nil {
		return false
	}
	for _, der := range p.DeveloperCertificates {
		if bytes.Equal(der, cert.Raw) {
			return true
		}
	}
	return false
}

// Expired reports whether the profile is past its expiration date at now
func (p *Profile) Expired(now time.Time) bool {
	return !p.ExpirationDate.IsZero() && now.After(p.ExpirationDate)
}

// 📦 Material is a verified pair handed to a Store
type Material struct {
	Identity    *Identity
	Profile     *Profile
	DisplayName string
	Password    string
}

// 🔌 Parser opens private-key containers and authorization profiles.
// Open returns ErrWrongPassword when the password does not match.
type Parser interface {
	Open(ctx context.Context, path, password string) (*Identity, error)
	OpenProfile(ctx context.Context, path string) (*Profile, error)
}

// 💾 Store installs verified signing identities and returns their id
type Store interface {
	Install(ctx context.Context, material Material) (string, error)
}
