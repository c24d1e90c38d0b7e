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

// Package metadata implements the Metadata Fetcher (§4.3): given a remote
// and an app ref, it returns the runtime dependency declared in the app's
// cached metadata, or absence. A missing or unreadable declaration is never
// an error - the Executor or store will surface the real problem later if
// the dependency turns out to matter.
package metadata

import (
	"context"

	"sigs.k8s.io/yaml"

	"github.com/flatrun/flatrun/internal/ref"
	"github.com/flatrun/flatrun/internal/scope"
)

// Cache is the narrow external collaborator consumed here (§6:
// fetch_ref_cache). It returns the raw cached metadata bytes for a ref, or
// false if nothing is cached.
type Cache interface {
	FetchRefCache(ctx context.Context, s scope.Scope, remote, ref string) ([]byte, bool)
}

// Fetcher resolves the declared runtime dependency of an app ref.
type Fetcher interface {
	// FetchRuntimeRef returns the value of key "runtime" under section
	// "Application" in appRef's cached metadata, or ("", false) if appRef is
	// not an app ref, the cache has no entry, or the metadata is malformed.
	FetchRuntimeRef(ctx context.Context, s scope.Scope, remote, appRef string) (string, bool)
}

// appMetadata mirrors the small slice of a flatpak-style metadata file this
// component reads: an INI "Application" section with a "runtime" key,
// represented here as structured YAML since that's the serialization the
// rest of this codebase's cached indexes use.
type appMetadata struct {
	Application struct {
		Runtime string `json:"runtime"`
	} `json:"Application"`
}

// CacheFetcher is the default Fetcher, backed by a Cache.
type CacheFetcher struct {
	cache Cache
}

// NewCacheFetcher returns a Fetcher backed by cache.
func NewCacheFetcher(cache Cache) *CacheFetcher {
	return &CacheFetcher{cache: cache}
}

// FetchRuntimeRef implements Fetcher.
func (f *CacheFetcher) FetchRuntimeRef(ctx context.Context, s scope.Scope, remote, appRef string) (string, bool) {
	if !ref.IsApp(appRef) {
		return "", false
	}

	raw, ok := f.cache.FetchRefCache(ctx, s, remote, appRef)
	if !ok {
		return "", false
	}

	var m appMetadata
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return "", false
	}
	if m.Application.Runtime == "" {
		return "", false
	}

	return m.Application.Runtime, true
}
