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

package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/crossplane/crossplane-runtime/pkg/errors"

	"github.com/flatrun/flatrun/internal/scope"
)

const (
	errFmtCannotDeploy = "cannot deploy %q"
	errFmtCannotRead   = "cannot read deploy record for %q"
)

// FSStore is a filesystem-backed reference implementation of RawProbe and
// Installer, used by tests and by flatrun when no richer content store is
// configured. It represents each deployed ref as a small directory of marker
// files under <root>/<scope-name>/deploy/<ref>/, mirroring (in spirit, not
// on-disk format) the OSTree-like deploy directories the real store manages.
type FSStore struct {
	fs   afero.Fs
	root string
}

// NewFSStore returns an FSStore rooted at root on fs.
func NewFSStore(fs afero.Fs, root string) *FSStore {
	return &FSStore{fs: fs, root: root}
}

func (s *FSStore) deployDir(sc scope.Scope, ref string) string {
	return filepath.Join(s.root, sc.Name(), "deploy", sanitize(ref))
}

func (s *FSStore) remoteMarker(sc scope.Scope, remote string) string {
	return filepath.Join(s.root, sc.Name(), "remotes", sanitize(remote)+".disabled")
}

func sanitize(s string) string {
	return strings.ReplaceAll(s, "/", "_")
}

// Deployed implements RawProbe.
func (s *FSStore) Deployed(sc scope.Scope, ref string) bool {
	ok, _ := afero.DirExists(s.fs, s.deployDir(sc, ref))
	return ok
}

// DeployData implements RawProbe.
func (s *FSStore) DeployData(sc scope.Scope, ref string) (DeployData, bool) {
	dir := s.deployDir(sc, ref)
	if ok, _ := afero.DirExists(s.fs, dir); !ok {
		return DeployData{}, false
	}

	origin, _ := afero.ReadFile(s.fs, filepath.Join(dir, "origin"))
	commit, _ := afero.ReadFile(s.fs, filepath.Join(dir, "commit"))
	return DeployData{Origin: strings.TrimSpace(string(origin)), Commit: strings.TrimSpace(string(commit))}, true
}

// RemoteDisabled implements RawProbe.
func (s *FSStore) RemoteDisabled(sc scope.Scope, remote string) bool {
	ok, _ := afero.Exists(s.fs, s.remoteMarker(sc, remote))
	return ok
}

// DisableRemote marks remote as disabled in sc, for test setup.
func (s *FSStore) DisableRemote(sc scope.Scope, remote string) error {
	if err := s.fs.MkdirAll(filepath.Dir(s.remoteMarker(sc, remote)), 0o755); err != nil {
		return err
	}
	return afero.WriteFile(s.fs, s.remoteMarker(sc, remote), []byte{}, 0o644)
}

// Install implements Installer by writing deploy marker files. It does not
// actually fetch content - pulling and checkout are delegated to NoPull/
// NoDeploy-aware collaborators outside this reference implementation's scope.
func (s *FSStore) Install(_ context.Context, sc scope.Scope, req InstallRequest) error {
	return s.writeDeploy(sc, req.Ref, req.Remote, commitOrSynthetic(req.Ref, req.Commit))
}

// Update implements Installer. If the ref is already at the requested
// commit (or, absent an explicit commit, is already deployed at all), it
// returns ErrAlreadyInstalled so the Executor can report a no-op success.
func (s *FSStore) Update(_ context.Context, sc scope.Scope, req UpdateRequest) (UpdateResult, error) {
	dd, ok := s.DeployData(sc, req.Ref)
	newCommit := commitOrSynthetic(req.Ref, req.Commit)

	if ok && (req.Commit == "" || dd.Commit == newCommit) {
		return UpdateResult{}, ErrAlreadyInstalled
	}

	if err := s.writeDeploy(sc, req.Ref, req.Remote, newCommit); err != nil {
		return UpdateResult{}, err
	}

	return UpdateResult{NewCommit: newCommit}, nil
}

func (s *FSStore) writeDeploy(sc scope.Scope, ref, remote, commit string) error {
	dir := s.deployDir(sc, ref)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, errFmtCannotDeploy, ref)
	}
	if err := afero.WriteFile(s.fs, filepath.Join(dir, "origin"), []byte(remote), 0o644); err != nil {
		return errors.Wrapf(err, errFmtCannotDeploy, ref)
	}
	if err := afero.WriteFile(s.fs, filepath.Join(dir, "commit"), []byte(commit), 0o644); err != nil {
		return errors.Wrapf(err, errFmtCannotDeploy, ref)
	}
	return nil
}

// CreateOriginRemote implements Installer by recording a remote config file
// and returning its name. Real implementations would register uri/tag with
// the content store's remote table; this reference implementation only
// needs the name to flow back to the caller.
func (s *FSStore) CreateOriginRemote(_ context.Context, sc scope.Scope, id, _, _, uri, tag string) (string, error) {
	dir := filepath.Join(s.root, sc.Name(), "remotes")
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	content := uri + "\n" + tag + "\n"
	if err := afero.WriteFile(s.fs, filepath.Join(dir, sanitize(id)+".conf"), []byte(content), 0o644); err != nil {
		return "", err
	}
	return id, nil
}

// RecreateRepo is a no-op for the filesystem reference store: there is no
// in-memory repo handle to refresh, the deploy directory is read fresh on
// every call.
func (s *FSStore) RecreateRepo(_ context.Context, _ scope.Scope) error {
	return nil
}

// commitOrSynthetic returns commit if non-empty, else a synthetic commit id
// hashed from ref and the current time, standing in for
// a real store's content-addressed commit hash.
func commitOrSynthetic(ref, commit string) string {
	if commit != "" {
		return commit
	}
	h := sha256.Sum256([]byte(ref + time.Now().String()))
	return hex.EncodeToString(h[:])
}
