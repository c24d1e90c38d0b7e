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

package main

import (
	"context"
	"strings"
	"testing"

	"github.com/crossplane/crossplane-runtime/pkg/logging"

	"github.com/flatrun/flatrun/internal/related"
	"github.com/flatrun/flatrun/internal/remotechooser"
	"github.com/flatrun/flatrun/internal/scope"
	"github.com/flatrun/flatrun/internal/store"
)

const appRef = "app/org.example.App/x86_64/stable"

type fakeRaw struct {
	deployed map[string]bool
}

func (f fakeRaw) Deployed(_ scope.Scope, ref string) bool { return f.deployed[ref] }
func (f fakeRaw) DeployData(_ scope.Scope, ref string) (store.DeployData, bool) {
	return store.DeployData{}, f.deployed[ref]
}
func (fakeRaw) RemoteDisabled(_ scope.Scope, _ string) bool { return false }

type fakeInstaller struct {
	fakeRaw
}

func (fakeInstaller) Install(_ context.Context, _ scope.Scope, _ store.InstallRequest) error {
	return nil
}
func (fakeInstaller) Update(_ context.Context, _ scope.Scope, _ store.UpdateRequest) (store.UpdateResult, error) {
	return store.UpdateResult{NewCommit: "abc123"}, nil
}
func (fakeInstaller) CreateOriginRemote(_ context.Context, _ scope.Scope, id, _, _, _, _ string) (string, error) {
	return id, nil
}
func (fakeInstaller) RecreateRepo(_ context.Context, _ scope.Scope) error { return nil }

type noopSource struct{}

func (noopSource) Find(_ context.Context, _ scope.Scope, _, _ string) ([]related.Tuple, error) {
	return nil, nil
}

func newCollaborators(raw fakeRaw) *Collaborators {
	installer := fakeInstaller{fakeRaw: raw}
	probe := store.NewProbe(raw)
	log := logging.NewNopLogger()
	return &Collaborators{
		Store:   installer,
		Probe:   probe,
		Fetcher: noFetcher{},
		Related: related.NewResolver(noopSource{}, noopSource{}, log),
		Chooser: remotechooser.First{},
		Search:  noSearcher{},
		Binder:  nil,
		Log:     log,
	}
}

type noFetcher struct{}

func (noFetcher) FetchRuntimeRef(_ context.Context, _ scope.Scope, _, _ string) (string, bool) {
	return "", false
}

type noSearcher struct{}

func (noSearcher) SearchRemotes(_ context.Context, _ string) ([]string, error) { return nil, nil }

func TestInstallCmdRun(t *testing.T) {
	collab := newCollaborators(fakeRaw{})
	g := &Globals{}

	cmd := &InstallCmd{Remote: "flathub", Ref: appRef}
	if err := cmd.Run(nil, g, collab); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
}

func TestInstallCmdRunAlreadyInstalled(t *testing.T) {
	collab := newCollaborators(fakeRaw{deployed: map[string]bool{appRef: true}})
	g := &Globals{}

	cmd := &InstallCmd{Remote: "flathub", Ref: appRef}
	err := cmd.Run(nil, g, collab)
	if err == nil || !strings.Contains(err.Error(), "already installed") {
		t.Fatalf("Run() error = %v, want already-installed error", err)
	}
}

func TestUpdateCmdRunNotInstalled(t *testing.T) {
	collab := newCollaborators(fakeRaw{})
	g := &Globals{}

	cmd := &UpdateCmd{Ref: appRef}
	err := cmd.Run(nil, g, collab)
	if err == nil || !strings.Contains(err.Error(), "not installed") {
		t.Fatalf("Run() error = %v, want not-installed error", err)
	}
}

func TestGlobalsScope(t *testing.T) {
	g := &Globals{}
	if g.scope().IsUser() {
		t.Errorf("scope().IsUser() = true, want false for default Globals")
	}

	g = &Globals{User: true}
	if !g.scope().IsUser() {
		t.Errorf("scope().IsUser() = false, want true when User is set")
	}
}
