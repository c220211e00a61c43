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

// Package identitystore keeps imported signing identities on disk.
//
// Each identity lives in its own directory named by a random UUID:
//
//	<root>/<id>/identity.p12
//	<root>/<id>/profile.mobileprovision
//	<root>/<id>/identity.yaml
//
// Writes are serialized across processes with a lock file at <root>/.lock.
//
// The container password is stored in plain text in identity.yaml so a
// signer can open identity.p12 later. The only protection is file mode: the
// root and identity directories are 0700 and every file is 0600. Keep the
// store on a volume only its owner can read.
package identitystore

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/natefinch/atomic"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"

	"github.com/walteh/bundlekit/pkg/certificate"
)

const (
	ContainerFile = "identity.p12"
	ProfileFile   = "profile.mobileprovision"
	MetadataFile  = "identity.yaml"
	lockFile      = ".lock"

	lockRetry = 25 * time.Millisecond
)

var (
	ErrAlreadyInstalled = errors.Base("identity already installed")
	ErrNotFound         = errors.Base("identity not found")
)

var _ certificate.Store = (*Store)(nil)

// 📇 Record is the metadata stored with an identity
type Record struct {
	ID          string    `yaml:"id"`
	DisplayName string    `yaml:"display_name"`
	Subject     string    `yaml:"subject"`
	Fingerprint string    `yaml:"fingerprint"`
	Team        string    `yaml:"team,omitempty"`
	ProfileUUID string    `yaml:"profile_uuid"`
	ProfileName string    `yaml:"profile_name"`
	ExpiresAt   time.Time `yaml:"expires_at,omitempty"`
	InstalledAt time.Time `yaml:"installed_at"`
	Password    string    `yaml:"password"`

	Dir string `yaml:"-"`
}

// ContainerPath returns the stored private-key container
func (r Record) ContainerPath() string { return filepath.Join(r.Dir, ContainerFile) }

// ProfilePath returns the stored authorization profile
func (r Record) ProfilePath() string { return filepath.Join(r.Dir, ProfileFile) }

// 💾 Store is a filesystem certificate.Store
type Store struct {
	root string
	now  func() time.Time
}

// 🏭 New creates a store rooted at root
func New(root string) *Store {
	return &Store{root: filepath.Clean(root), now: time.Now}
}

// Root returns the store directory
func (s *Store) Root() string {
	return s.root
}

// 📥 Install persists material under a fresh id
func (s *Store) Install(ctx context.Context, m certificate.Material) (string, error) {
	if m.Identity == nil || m.Profile == nil {
		return "", errors.New("identity and profile are required")
	}

	unlock, err := s.lock(ctx)
	if err != nil {
		return "", err
	}
	defer unlock()

	existing, err := s.List(ctx)
	if err != nil {
		return "", err
	}
	for _, r := range existing {
		if r.Fingerprint == m.Identity.Fingerprint && r.ProfileUUID == m.Profile.UUID {
			return "", errors.Errorf("%w: %s as %s", ErrAlreadyInstalled, r.Subject, r.ID)
		}
	}

	rec := Record{
		ID:          uuid.NewString(),
		DisplayName: m.DisplayName,
		Subject:     m.Identity.Subject(),
		Fingerprint: m.Identity.Fingerprint,
		ProfileUUID: m.Profile.UUID,
		ProfileName: m.Profile.Name,
		ExpiresAt:   m.Profile.ExpirationDate,
		InstalledAt: s.now().UTC(),
		Password:    m.Password,
	}
	if len(m.Profile.TeamIdentifiers) > 0 {
		rec.Team = m.Profile.TeamIdentifiers[0]
	}
	rec.Dir = filepath.Join(s.root, rec.ID)

	if err := s.write(rec, m); err != nil {
		_ = os.RemoveAll(rec.Dir)
		return "", err
	}

	zerolog.Ctx(ctx).Debug().Str("id", rec.ID).Str("path", rec.Dir).Msg("installed identity")
	return rec.ID, nil
}

func (s *Store) write(rec Record, m certificate.Material) error {
	if err := os.MkdirAll(rec.Dir, 0700); err != nil {
		return errors.Errorf("creating identity directory: %w", err)
	}

	meta, err := yaml.Marshal(rec)
	if err != nil {
		return errors.Errorf("encoding metadata: %w", err)
	}

	files := []struct {
		name string
		data []byte
	}{
		{ContainerFile, m.Identity.Raw},
		{ProfileFile, m.Profile.Raw},
		{MetadataFile, meta},
	}
	for _, f := range files {
		path := filepath.Join(rec.Dir, f.name)
		if err := atomic.WriteFile(path, bytes.NewReader(f.data)); err != nil {
			return errors.Errorf("writing %s: %w", f.name, err)
		}
		if err := os.Chmod(path, 0600); err != nil {
			return errors.Errorf("setting mode on %s: %w", f.name, err)
		}
	}
	return nil
}

// 📋 List returns every readable identity sorted by display name
func (s *Store) List(ctx context.Context) ([]Record, error) {
	children, err := os.ReadDir(s.root)
	if errors.Is(err, os.ErrNotExist) {
		return []Record{}, nil
	}
	if err != nil {
		return nil, errors.Errorf("reading store: %w", err)
	}

	logger := zerolog.Ctx(ctx)
	records := make([]Record, 0, len(children))
	for _, child := range children {
		if !child.IsDir() {
			continue
		}
		rec, err := s.read(child.Name())
		if err != nil {
			logger.Debug().Str("path", filepath.Join(s.root, child.Name())).Err(err).Msg("skipping unreadable identity")
			continue
		}
		records = append(records, rec)
	}

	sort.Slice(records, func(i, j int) bool {
		a, b := strings.ToLower(records[i].DisplayName), strings.ToLower(records[j].DisplayName)
		if a != b {
			return a < b
		}
		return records[i].ID < records[j].ID
	})
	return records, nil
}

// 🔍 Get returns the identity with id
func (s *Store) Get(ctx context.Context, id string) (Record, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Record{}, errors.Errorf("%w: %s", ErrNotFound, id)
	}
	rec, err := s.read(id)
	if errors.Is(err, os.ErrNotExist) {
		return Record{}, errors.Errorf("%w: %s", ErrNotFound, id)
	}
	return rec, err
}

// 🗑️ Remove deletes the identity with id
func (s *Store) Remove(ctx context.Context, id string) error {
	unlock, err := s.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	rec, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(rec.Dir); err != nil {
		return errors.Errorf("removing identity %s: %w", id, err)
	}

	zerolog.Ctx(ctx).Debug().Str("id", id).Msg("removed identity")
	return nil
}

func (s *Store) read(id string) (Record, error) {
	dir := filepath.Join(s.root, id)
	data, err := os.ReadFile(filepath.Join(dir, MetadataFile))
	if err != nil {
		return Record{}, errors.Errorf("reading metadata: %w", err)
	}

	var rec Record
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return Record{}, errors.Errorf("decoding metadata: %w", err)
	}
	if rec.ID != id {
		return Record{}, errors.Errorf("metadata id %q does not match directory %q", rec.ID, id)
	}
	rec.Dir = dir
	return rec, nil
}

// lock takes the store's exclusive file lock, waiting until ctx is done
func (s *Store) lock(ctx context.Context) (func(), error) {
	if err := os.MkdirAll(s.root, 0700); err != nil {
		return nil, errors.Errorf("creating store: %w", err)
	}

	fl := flock.New(filepath.Join(s.root, lockFile))
	ok, err := fl.TryLockContext(ctx, lockRetry)
	if err != nil {
		return nil, errors.Errorf("locking store: %w", err)
	}
	if !ok {
		return nil, errors.Errorf("locking store: %s is held", fl.Path())
	}

	return func() {
		if err := fl.Unlock(); err != nil {
			zerolog.Ctx(ctx).Debug().Err(err).Msg("unlocking store")
		}
	}, nil
}
