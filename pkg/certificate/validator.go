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
	"context"
	"path/filepath"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/bundlekit/pkg/catalog"
	"github.com/walteh/bundlekit/pkg/dispatch"
)

// 🔧 Options configures a Validator
type Options struct {
	Parser  Parser
	Store   Store
	Catalog []catalog.ListOption // Used when listing the container's directory
}

// 🔐 Validator pairs a private-key container with its authorization profile,
// checks the password and hands the verified identity to a Store
type Validator struct {
	parser   Parser
	store    Store
	listOpts []catalog.ListOption
}

// 🏗️ New creates a new validator
func New(opts Options) *Validator {
	return &Validator{
		parser:   opts.Parser,
		store:    opts.Store,
		listOpts: opts.Catalog,
	}
}

// 🔍 LocateCompanionProfile finds the single authorization profile next to keyPath
func (v *Validator) LocateCompanionProfile(ctx context.Context, keyPath string) (string, error) {
	entry, err := expect(keyPath, catalog.KindPrivateKeyContainer)
	if err != nil {
		return "", err
	}

	entries, err := catalog.List(ctx, entry.Dir(), v.listOpts...)
	if err != nil {
		return "", errors.Errorf("%w: %s", ErrInvalidFile, err)
	}

	profiles := catalog.Filter(entries, catalog.KindAuthorizationProfile)
	zerolog.Ctx(ctx).Debug().Str("path", keyPath).Int("profiles", len(profiles)).Msg("located companion profiles")

	switch len(profiles) {
	case 0:
		return "", errors.Errorf("%w: %s", ErrNoProfileFound, entry.Dir())
	case 1:
		return profiles[0].Path, nil
	default:
		return "", errors.Errorf("%w: %d in %s", ErrMultipleProfilesFound, len(profiles), entry.Dir())
	}
}

// 🔑 ValidatePassword opens the container with password and cross-checks it
// against the profile. A wrong password is reported as false with no error.
func (v *Validator) ValidatePassword(ctx context.Context, keyPath, profilePath, password string) (bool, error) {
	_, _, err := v.openPair(ctx, keyPath, profilePath, password)
	if errors.Is(err, ErrWrongPassword) {
		zerolog.Ctx(ctx).Debug().Str("path", keyPath).Msg("password rejected")
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// 📥 ImportIdentity re-opens the verified pair and installs it in the store,
// returning the store's id for the new identity
func (v *Validator) ImportIdentity(ctx context.Context, keyPath, profilePath, password, displayName string) (string, error) {
	identity, profile, err := v.openPair(ctx, keyPath, profilePath, password)
	if errors.Is(err, ErrWrongPassword) {
		return "", errors.Errorf("%w: %s", ErrInvalidPassword, filepath.Base(keyPath))
	}
	if err != nil {
		return "", err
	}

	id, err := v.store.Install(ctx, Material{
		Identity:    identity,
		Profile:     profile,
		DisplayName: displayName,
		Password:    password,
	})
	if err != nil {
		return "", &ImportFailedError{Detail: err.Error(), Err: err}
	}

	zerolog.Ctx(ctx).Debug().Str("path", keyPath).Str("id", id).Msg("identity installed")
	return id, nil
}

// 🚦 Import runs req through the state machine once
func (v *Validator) Import(ctx context.Context, req *Request) Outcome {
	out := Outcome{State: StateIdle, Transitions: []State{StateIdle}}
	if req == nil {
		return out.fail(errors.Errorf("%w: nil request", ErrInvalidFile))
	}
	if !req.consume() {
		return out.fail(errors.WithStack(ErrRequestConsumed))
	}
	out.DisplayName = req.displayName()

	logger := zerolog.Ctx(ctx).With().Str("path", req.PrivateKeyContainerPath).Logger()

	out.enter(StateLocatingProfile)
	profilePath := req.AuthorizationProfilePath
	if profilePath == "" {
		located, err := v.LocateCompanionProfile(ctx, req.PrivateKeyContainerPath)
		if err != nil {
			logger.Debug().Err(err).Msg("profile lookup failed")
			return out.fail(err)
		}
		profilePath = located
	}
	out.ProfilePath = profilePath

	out.enter(StateValidatingPassword)
	ok, err := v.ValidatePassword(ctx, req.PrivateKeyContainerPath, profilePath, req.Password)
	if err != nil {
		logger.Debug().Err(err).Msg("validation failed")
		return out.fail(err)
	}
	if !ok {
		out.enter(StateAwaitingPassword)
		out.Err = errors.Errorf("%w: %s", ErrInvalidPassword, filepath.Base(req.PrivateKeyContainerPath))
		return out
	}

	id, err := v.ImportIdentity(ctx, req.PrivateKeyContainerPath, profilePath, req.Password, out.DisplayName)
	if err != nil {
		logger.Debug().Err(err).Msg("import failed")
		return out.fail(err)
	}

	out.IdentityID = id
	out.enter(StateSucceeded)
	return out
}

// ⏳ ImportAsync runs Import on runner. The future always settles with an
// Outcome; failures are reported through Outcome.Err.
func (v *Validator) ImportAsync(ctx context.Context, runner *dispatch.Runner, req *Request) *dispatch.Future[Outcome] {
	return dispatch.Submit(ctx, runner, "certificate-import", func(ctx context.Context) (Outcome, error) {
		return v.Import(ctx, req), nil
	})
}

func (v *Validator) openPair(ctx context.Context, keyPath, profilePath, password string) (*Identity, *Profile, error) {
	if _, err := expect(keyPath, catalog.KindPrivateKeyContainer); err != nil {
		return nil, nil, err
	}
	if _, err := expect(profilePath, catalog.KindAuthorizationProfile); err != nil {
		return nil, nil, err
	}

	identity, err := v.parser.Open(ctx, keyPath, password)
	if err != nil {
		return nil, nil, classify(err, ErrInvalidFileFormat)
	}
	if identity == nil || identity.Certificate == nil {
		return nil, nil, errors.Errorf("%w: %s", ErrMissingCertificateData, filepath.Base(keyPath))
	}

	profile, err := v.parser.OpenProfile(ctx, profilePath)
	if err != nil {
		return nil, nil, classify(err, ErrMissingProfileData)
	}
	if !profile.Lists(identity.Certificate) {
		return nil, nil, errors.Errorf("%w: %s does not list %q",
			ErrMissingCertificateData, filepath.Base(profilePath), identity.Subject())
	}
	return identity, profile, nil
}

// expect stats path and checks that it has the wanted Kind
func expect(path string, want catalog.Kind) (catalog.Entry, error) {
	entry, err := catalog.NewEntry(path)
	if err != nil {
		return catalog.Entry{}, errors.Errorf("%w: %s", ErrInvalidFile, err)
	}
	if entry.Kind != want {
		return catalog.Entry{}, errors.Errorf("%w: %s is a %s, not a %s", ErrInvalidFile, entry.Name, entry.Kind, want)
	}
	return entry, nil
}

var taxonomy = []error{
	ErrWrongPassword,
	ErrInvalidFile,
	ErrInvalidFileFormat,
	ErrMissingProfileData,
	ErrMissingCertificateData,
}

// classify keeps parser errors that already carry a known kind and files
// everything else under fallback
func classify(err, fallback error) error {
	for _, known := range taxonomy {
		if errors.Is(err, known) {
			return err
		}
	}
	return errors.Errorf("%w: %s", fallback, err)
}

func (o *Outcome) enter(s State) {
	o.State = s
	o.Transitions = append(o.Transitions, s)
}

func (o Outcome) fail(err error) Outcome {
	o.enter(StateFailed)
	o.Err = err
	return o
}
