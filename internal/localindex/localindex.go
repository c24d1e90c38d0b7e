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

// Package localindex is a flat-file stand-in for the data a real flatpak
// installation keeps per remote: which refs it carries, their related-ref
// tuples, and each app ref's cached metadata blob. It backs the CLI's
// default RemoteSearcher, related.Source, and metadata.Cache wiring with one
// small afero-backed store instead of three bespoke ones.
package localindex

import (
	"context"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"sigs.k8s.io/yaml"

	"github.com/crossplane/crossplane-runtime/pkg/errors"

	"github.com/flatrun/flatrun/internal/plan"
	"github.com/flatrun/flatrun/internal/related"
	"github.com/flatrun/flatrun/internal/scope"
)

const errFmtLoadRemote = "cannot load index for remote %q"

// Index is an afero-backed, per-remote summary index, one YAML file per
// remote under root.
type Index struct {
	fs   afero.Fs
	root string
}

// New returns an Index rooted at root on fs.
func New(fs afero.Fs, root string) *Index {
	return &Index{fs: fs, root: root}
}

type relatedEntry struct {
	Ref      string   `json:"ref"`
	Subpaths []string `json:"subpaths,omitempty"`
	Download bool     `json:"download"`
}

type remoteIndex struct {
	// Refs lists every ref this remote carries, for SearchRemotes.
	Refs []string `json:"refs"`
	// Related maps a ref to its related-ref tuples.
	Related map[string][]relatedEntry `json:"related,omitempty"`
	// Metadata maps an app ref to its raw cached metadata blob.
	Metadata map[string]string `json:"metadata,omitempty"`
}

func (i *Index) path(remote string) string {
	return filepath.Join(i.root, remote+".yaml")
}

func (i *Index) load(remote string) (remoteIndex, bool) {
	raw, err := afero.ReadFile(i.fs, i.path(remote))
	if err != nil {
		return remoteIndex{}, false
	}

	var idx remoteIndex
	if err := yaml.Unmarshal(raw, &idx); err != nil {
		return remoteIndex{}, false
	}
	return idx, true
}

// Put writes (or overwrites) remote's index, for tests and seeding.
func (i *Index) Put(remote string, idx remoteIndex) error {
	raw, err := yaml.Marshal(idx)
	if err != nil {
		return errors.Wrapf(err, errFmtLoadRemote, remote)
	}
	return afero.WriteFile(i.fs, i.path(remote), raw, 0o644)
}

// SearchRemotes implements transaction.RemoteSearcher: it returns every
// configured remote whose index lists ref.
func (i *Index) SearchRemotes(_ context.Context, ref string) ([]string, error) {
	entries, err := afero.ReadDir(i.fs, i.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "cannot list configured remotes")
	}

	var candidates []string
	for _, e := range entries {
		name := e.Name()
		if filepath.Ext(name) != ".yaml" {
			continue
		}
		remote := name[:len(name)-len(".yaml")]

		idx, ok := i.load(remote)
		if !ok {
			continue
		}
		for _, r := range idx.Refs {
			if r == ref {
				candidates = append(candidates, remote)
				break
			}
		}
	}
	return candidates, nil
}

// Find implements related.Source for both the local and remote roles: the
// same on-disk summary backs both, so it is the Transaction's no_pull flag
// (not this type) that decides whether a remote lookup is attempted at all.
func (i *Index) Find(_ context.Context, _ scope.Scope, remote, ref string) ([]related.Tuple, error) {
	idx, ok := i.load(remote)
	if !ok {
		return nil, errors.Wrapf(errors.New("remote not found"), errFmtLoadRemote, remote)
	}

	entries := idx.Related[ref]
	tuples := make([]related.Tuple, 0, len(entries))
	for _, e := range entries {
		var sp plan.Subpaths
		if len(e.Subpaths) > 0 {
			sp = plan.Filter(e.Subpaths...)
		} else {
			sp = plan.Wildcard()
		}
		tuples = append(tuples, related.Tuple{Ref: e.Ref, Subpaths: sp, Download: e.Download})
	}
	return tuples, nil
}

// FetchRefCache implements metadata.Cache.
func (i *Index) FetchRefCache(_ context.Context, _ scope.Scope, remote, ref string) ([]byte, bool) {
	idx, ok := i.load(remote)
	if !ok {
		return nil, false
	}
	raw, ok := idx.Metadata[ref]
	if !ok {
		return nil, false
	}
	return []byte(raw), true
}
