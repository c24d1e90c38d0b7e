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

// Package store defines the narrow, read-only "Store Probe" contract (§4.2)
// and the mutating install/update contract (§6) that the transaction planner
// and executor consume. The real content-addressed store and OSTree-like
// deploy engine are external collaborators; this package only defines their
// shape plus a filesystem-backed reference implementation used for tests and
// local experimentation.
package store

import (
	"context"

	"github.com/crossplane/crossplane-runtime/pkg/errors"

	"github.com/flatrun/flatrun/internal/plan"
	"github.com/flatrun/flatrun/internal/scope"
)

// ErrAlreadyInstalled is returned by Installer.Update when the requested ref
// is already at the target commit: the Executor recognizes this sentinel and
// converts it into a successful "No updates." no-op (§4.8, P5).
var ErrAlreadyInstalled = errors.New("already installed")

// DeployData is the subset of a deployed ref's recorded state the planner
// and executor need.
type DeployData struct {
	Origin string
	Commit string
}

// RawProbe answers scope-local questions only, corresponding to §6's
// get_if_deployed / get_deploy_data / get_remote_disabled.
type RawProbe interface {
	Deployed(s scope.Scope, ref string) bool
	DeployData(s scope.Scope, ref string) (DeployData, bool)
	RemoteDisabled(s scope.Scope, remote string) bool
}

// Probe implements the full Store Probe component (§4.2), layering the
// cross-scope is_installed rule over a RawProbe.
type Probe struct {
	raw RawProbe
}

// NewProbe returns a Probe backed by raw.
func NewProbe(raw RawProbe) *Probe {
	return &Probe{raw: raw}
}

// IsInstalled reports whether ref is deployed in s. If s is a user scope,
// the system scope is also consulted and a hit there counts as installed:
// installing into the system scope must not take a dependency on a
// user-only runtime, but installing into the user scope may be satisfied by
// either scope.
func (p *Probe) IsInstalled(s scope.Scope, ref string) bool {
	if p.raw.Deployed(s, ref) {
		return true
	}
	if s.IsUser() {
		if sys := s.System(); sys != s {
			return p.raw.Deployed(sys, ref)
		}
	}
	return false
}

// DeployedInScope reports whether ref is deployed in s itself, with no
// cross-scope fallback. Dependency resolution uses this to distinguish "the
// runtime is already here, queue an update for it" from "the runtime is
// satisfied by the other scope, do nothing" (§4.7 step 3).
func (p *Probe) DeployedInScope(s scope.Scope, ref string) bool {
	return p.raw.Deployed(s, ref)
}

// OriginOf returns the remote a ref was deployed from, scoped to s only (no
// cross-scope fallback - origin only makes sense within the scope that
// actually holds the deploy).
func (p *Probe) OriginOf(s scope.Scope, ref string) (string, bool) {
	dd, ok := p.raw.DeployData(s, ref)
	if !ok {
		return "", false
	}
	return dd.Origin, true
}

// RemoteDisabled reports whether remote is disabled in s.
func (p *Probe) RemoteDisabled(s scope.Scope, remote string) bool {
	return p.raw.RemoteDisabled(s, remote)
}

// InstallRequest carries everything needed to pull and deploy a new ref.
type InstallRequest struct {
	Ref      string
	Remote   string
	Subpaths plan.Subpaths
	Commit   string
	NoPull   bool
	NoDeploy bool
}

// UpdateRequest carries everything needed to update an already-deployed ref.
type UpdateRequest struct {
	Ref      string
	Remote   string
	Subpaths plan.Subpaths
	Commit   string
	NoPull   bool
	NoDeploy bool
}

// UpdateResult reports the outcome of a successful, non-noop update.
type UpdateResult struct {
	// NewCommit is the full commit id of the newly deployed revision.
	NewCommit string
}

// Installer is the mutating surface the Executor dispatches to (§6: install,
// update, create_origin_remote, recreate_repo).
type Installer interface {
	Install(ctx context.Context, s scope.Scope, req InstallRequest) error
	Update(ctx context.Context, s scope.Scope, req UpdateRequest) (UpdateResult, error)
	CreateOriginRemote(ctx context.Context, s scope.Scope, id, title, ref, uri, tag string) (remoteName string, err error)
	RecreateRepo(ctx context.Context, s scope.Scope) error
}
