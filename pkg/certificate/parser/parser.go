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

// Package parser opens PKCS#12 private-key containers and CMS-signed
// authorization profiles for the certificate validator.
package parser

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"strings"
	"time"

	"github.com/digitorus/pkcs7"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
	"howett.net/plist"
	"software.sslmate.com/src/go-pkcs12"

	"github.com/walteh/bundlekit/pkg/certificate"
)

var _ certificate.Parser = (*Parser)(nil)

// 🔐 Parser is the default certificate.Parser
type Parser struct{}

// 🏭 New creates a new parser
func New() *Parser {
	return &Parser{}
}

// 🔑 Open decodes the PKCS#12 container at path with password
func (p *Parser) Open(ctx context.Context, path, password string) (*certificate.Identity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Errorf("%w: %s", certificate.ErrInvalidFile, err)
	}

	key, leaf, chain, err := pkcs12.DecodeChain(data, password)
	if err != nil {
		return nil, decodeError(err)
	}

	sum := sha256.Sum256(leaf.Raw)
	identity := &certificate.Identity{
		Certificate: leaf,
		PrivateKey:  key,
		Chain:       chain,
		Fingerprint: hex.EncodeToString(sum[:]),
		Raw:         data,
	}

	zerolog.Ctx(ctx).Debug().
		Str("path", path).
		Str("subject", identity.Subject()).
		Str("fingerprint", identity.Fingerprint).
		Msg("opened private-key container")

	return identity, nil
}

func decodeError(err error) error {
	switch {
	case errors.Is(err, pkcs12.ErrIncorrectPassword):
		return errors.WithStack(certificate.ErrWrongPassword)
	case strings.Contains(err.Error(), "certificate missing"):
		return errors.Errorf("%w: %s", certificate.ErrMissingCertificateData, err)
	default:
		return errors.Errorf("%w: %s", certificate.ErrInvalidFileFormat, err)
	}
}

// profilePlist mirrors the keys of an embedded provisioning plist
type profilePlist struct {
	Name                  string         `plist:"Name"`
	UUID                  string         `plist:"UUID"`
	TeamName              string         `plist:"TeamName"`
	TeamIdentifier        []string       `plist:"TeamIdentifier"`
	AppIDName             string         `plist:"AppIDName"`
	CreationDate          time.Time      `plist:"CreationDate"`
	ExpirationDate        time.Time      `plist:"ExpirationDate"`
	DeveloperCertificates [][]byte       `plist:"DeveloperCertificates"`
	ProvisionedDevices    []string       `plist:"ProvisionedDevices"`
	Entitlements          map[string]any `plist:"Entitlements"`
}

// 📜 OpenProfile decodes the authorization profile at path
func (p *Parser) OpenProfile(ctx context.Context, path string) (*certificate.Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Errorf("%w: %s", certificate.ErrInvalidFile, err)
	}

	content, err := profileContent(data)
	if err != nil {
		return nil, err
	}

	var raw profilePlist
	if _, err := plist.Unmarshal(content, &raw); err != nil {
		return nil, errors.Errorf("%w: decoding plist: %s", certificate.ErrMissingProfileData, err)
	}
	if len(raw.DeveloperCertificates) == 0 {
		return nil, errors.Errorf("%w: profile lists no developer certificates", certificate.ErrMissingCertificateData)
	}

	zerolog.Ctx(ctx).Debug().
		Str("path", path).
		Str("uuid", raw.UUID).
		Int("certificates", len(raw.DeveloperCertificates)).
		Msg("opened authorization profile")

	return &certificate.Profile{
		Name:                  raw.Name,
		UUID:                  raw.UUID,
		TeamName:              raw.TeamName,
		TeamIdentifiers:       raw.TeamIdentifier,
		AppIDName:             raw.AppIDName,
		CreationDate:          raw.CreationDate,
		ExpirationDate:        raw.ExpirationDate,
		DeveloperCertificates: raw.DeveloperCertificates,
		ProvisionedDevices:    raw.ProvisionedDevices,
		Entitlements:          raw.Entitlements,
		Raw:                   data,
	}, nil
}

var (
	plistStart = []byte("<?xml")
	plistEnd   = []byte("</plist>")
)

// profileContent unwraps the CMS envelope, falling back to the embedded
// XML plist when the envelope cannot be parsed
func profileContent(data []byte) ([]byte, error) {
	if p7, err := pkcs7.Parse(data); err == nil && len(p7.Content) > 0 {
		return p7.Content, nil
	}

	start := bytes.Index(data, plistStart)
	end := bytes.LastIndex(data, plistEnd)
	if start < 0 || end < start {
		return nil, errors.Errorf("%w: no signed content or embedded plist", certificate.ErrMissingProfileData)
	}
	return data[start : end+len(plistEnd)], nil
}
