/*
Copyright 2025 The flatrun Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package ocibind implements the OCI Origin Binder (§4.6): given a registry
// URI and a tag, it recovers the canonical flatpak ref and commit checksum
// from the image manifest's annotations and provisions an ephemeral remote
// pointing at the registry.
package ocibind

import (
	"context"

	"github.com/crossplane/crossplane-runtime/pkg/errors"

	"github.com/flatrun/flatrun/internal/ref"
	"github.com/flatrun/flatrun/internal/scope"
	"github.com/flatrun/flatrun/internal/store"
)

const (
	// annotationRef and annotationCommit are the OCI image annotations
	// flatpak's own oci-registry tooling attaches to bundle images.
	annotationRef    = "org.flatpak.ref"
	annotationCommit = "org.flatpak.commit"

	errFmtOpenRegistry  = "cannot open OCI registry %q"
	errFmtFetchManifest = "cannot fetch image manifest for tag %q"
	errCreateRemote     = "cannot create origin remote"
	errRecreateRepo     = "cannot refresh repo handle"
)

// ErrNotAFlatpakImage is returned when the OCI manifest carries no
// org.flatpak.ref annotation identifying it as a flatpak bundle.
var ErrNotAFlatpakImage = errors.New("OCI image is not a flatpak image")

// Manifest is the slice of an OCI image manifest the Binder needs.
type Manifest struct {
	Annotations map[string]string
}

// Handle represents an opened registry/repository, scoped to one image.
type Handle interface {
	// ChooseImage fetches the manifest for tag (§6: choose-image).
	ChooseImage(ctx context.Context, tag string) (Manifest, error)
}

// Registry opens a connection to an OCI registry (§6: open-registry).
type Registry interface {
	OpenRegistry(ctx context.Context, uri string) (Handle, error)
}

// BoundOrigin is the result of a successful Bind: the remote that was
// created, plus the canonical ref and commit recovered from the image.
type BoundOrigin struct {
	Remote string
	Ref    string
	Commit string
}

// Binder is the OCI Origin Binder.
type Binder struct {
	registry Registry
	installer store.Installer
}

// NewBinder returns a Binder using registry to talk to OCI registries and
// installer to provision the ephemeral origin remote.
func NewBinder(registry Registry, installer store.Installer) *Binder {
	return &Binder{registry: registry, installer: installer}
}

// Bind opens uri, fetches tag's manifest, parses its flatpak annotations
// (§6: parse-commit-annotations), and provisions an origin remote with a
// stable id derived from the ref's pretty form.
func (b *Binder) Bind(ctx context.Context, s scope.Scope, uri, tag string) (BoundOrigin, error) {
	handle, err := b.registry.OpenRegistry(ctx, uri)
	if err != nil {
		return BoundOrigin{}, errors.Wrapf(err, errFmtOpenRegistry, uri)
	}

	manifest, err := handle.ChooseImage(ctx, tag)
	if err != nil {
		return BoundOrigin{}, errors.Wrapf(err, errFmtFetchManifest, tag)
	}

	rawRef := manifest.Annotations[annotationRef]
	if rawRef == "" {
		return BoundOrigin{}, ErrNotAFlatpakImage
	}
	commit := manifest.Annotations[annotationCommit]

	decomposed, err := ref.Decompose(rawRef)
	if err != nil {
		return BoundOrigin{}, err
	}

	pretty := decomposed.Pretty()
	id := "oci-" + pretty
	title := "OCI remote for " + pretty

	remoteName, err := b.installer.CreateOriginRemote(ctx, s, id, title, rawRef, uri, tag)
	if err != nil {
		return BoundOrigin{}, errors.Wrap(err, errCreateRemote)
	}

	if err := b.installer.RecreateRepo(ctx, s); err != nil {
		return BoundOrigin{}, errors.Wrap(err, errRecreateRepo)
	}

	return BoundOrigin{Remote: remoteName, Ref: rawRef, Commit: commit}, nil
}
