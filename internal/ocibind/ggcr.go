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

package ocibind

import (
	"context"

	"github.com/crossplane/crossplane-runtime/pkg/errors"
	"github.com/google/go-containerregistry/pkg/authn/k8schain"
	"github.com/google/go-containerregistry/pkg/name"
	"github.com/google/go-containerregistry/pkg/v1/remote"
)

const (
	errFmtParseRepository = "cannot parse %q as an OCI repository"
	errFmtGetDescriptor   = "cannot fetch descriptor for tag %q"
	errReadImage          = "cannot read image from descriptor"
	errReadManifest       = "cannot read image manifest"
)

// GGCRRegistry is the production Registry, backed by go-containerregistry.
// Authentication is resolved through k8schain so flatrun can pull from
// registries gated by the ambient kubelet / docker / podman credential
// stores without bespoke auth plumbing.
type GGCRRegistry struct {
	// KeychainOpts configures k8schain's fallback keychain resolution. A
	// zero value uses the default (docker config + podman + ambient
	// environment, no in-cluster service account lookup).
	KeychainOpts k8schain.Options
}

// OpenRegistry implements Registry.
func (g *GGCRRegistry) OpenRegistry(ctx context.Context, uri string) (Handle, error) {
	repo, err := name.NewRepository(uri)
	if err != nil {
		return nil, errors.Wrapf(err, errFmtParseRepository, uri)
	}

	keychain, err := k8schain.NewNoClient(ctx, g.KeychainOpts)
	if err != nil {
		return nil, errors.Wrap(err, "cannot resolve registry credentials")
	}

	return &ggcrHandle{repo: repo, opts: []remote.Option{remote.WithContext(ctx), remote.WithAuthFromKeychain(keychain)}}, nil
}

type ggcrHandle struct {
	repo name.Repository
	opts []remote.Option
}

// ChooseImage implements Handle.
func (h *ggcrHandle) ChooseImage(_ context.Context, tag string) (Manifest, error) {
	ref := h.repo.Tag(tag)

	desc, err := remote.Get(ref, h.opts...)
	if err != nil {
		return Manifest{}, errors.Wrapf(err, errFmtGetDescriptor, tag)
	}

	img, err := desc.Image()
	if err != nil {
		return Manifest{}, errors.Wrap(err, errReadImage)
	}

	m, err := img.Manifest()
	if err != nil {
		return Manifest{}, errors.Wrap(err, errReadManifest)
	}

	ann := make(map[string]string, len(m.Annotations))
	for k, v := range m.Annotations {
		ann[k] = v
	}

	return Manifest{Annotations: ann}, nil
}
