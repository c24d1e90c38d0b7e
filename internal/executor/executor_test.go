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

package executor

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/crossplane/crossplane-runtime/pkg/errors"

	"github.com/flatrun/flatrun/internal/plan"
	"github.com/flatrun/flatrun/internal/scope"
	"github.com/flatrun/flatrun/internal/store"
)

type fakeRaw struct {
	deployed map[string]bool
}

func (f fakeRaw) Deployed(_ scope.Scope, ref string) bool { return f.deployed[ref] }
func (f fakeRaw) DeployData(_ scope.Scope, ref string) (store.DeployData, bool) {
	return store.DeployData{}, f.deployed[ref]
}
func (fakeRaw) RemoteDisabled(_ scope.Scope, _ string) bool { return false }

type fakeInstaller struct {
	installErr error
	updateErr  error
	newCommit  string

	gotInstall *store.InstallRequest
	gotUpdate  *store.UpdateRequest
}

func (f *fakeInstaller) Install(_ context.Context, _ scope.Scope, req store.InstallRequest) error {
	f.gotInstall = &req
	return f.installErr
}
func (f *fakeInstaller) Update(_ context.Context, _ scope.Scope, req store.UpdateRequest) (store.UpdateResult, error) {
	f.gotUpdate = &req
	if f.updateErr != nil {
		return store.UpdateResult{}, f.updateErr
	}
	return store.UpdateResult{NewCommit: f.newCommit}, nil
}
func (*fakeInstaller) CreateOriginRemote(_ context.Context, _ scope.Scope, id, _, _, _, _ string) (string, error) {
	return id, nil
}
func (*fakeInstaller) RecreateRepo(_ context.Context, _ scope.Scope) error { return nil }

const appRef = "app/org.example.App/x86_64/stable"

func TestRunInstall(t *testing.T) {
	p := plan.New()
	_ = p.Add(&plan.Operation{Remote: "flathub", Ref: appRef, Subpaths: plan.Wildcard(), Install: true})

	out := &bytes.Buffer{}
	e := New(&fakeInstaller{}, store.NewProbe(fakeRaw{}), out, false, false)

	ok, err := e.Run(context.Background(), p, scope.NewSystem(), false)
	if !ok || err != nil {
		t.Fatalf("Run() = (%v, %v), want (true, nil)", ok, err)
	}
	if !strings.Contains(out.String(), "Installing: org.example.App/x86_64/stable from flathub") {
		t.Errorf("Run() output = %q, missing install message", out.String())
	}
}

func TestRunUpdate(t *testing.T) {
	p := plan.New()
	_ = p.Add(&plan.Operation{Remote: "flathub", Ref: appRef, Update: true})

	out := &bytes.Buffer{}
	e := New(&fakeInstaller{newCommit: "0123456789abcdef"}, store.NewProbe(fakeRaw{}), out, false, false)

	ok, err := e.Run(context.Background(), p, scope.NewSystem(), false)
	if !ok || err != nil {
		t.Fatalf("Run() = (%v, %v), want (true, nil)", ok, err)
	}
	if !strings.Contains(out.String(), "Now at 0123456789ab.") {
		t.Errorf("Run() output = %q, missing truncated commit message", out.String())
	}
}

func TestRunUpdateNoop(t *testing.T) {
	p := plan.New()
	_ = p.Add(&plan.Operation{Remote: "flathub", Ref: appRef, Update: true})

	out := &bytes.Buffer{}
	e := New(&fakeInstaller{updateErr: store.ErrAlreadyInstalled}, store.NewProbe(fakeRaw{}), out, false, false)

	ok, err := e.Run(context.Background(), p, scope.NewSystem(), false)
	if !ok || err != nil {
		t.Fatalf("Run() = (%v, %v), want (true, nil)", ok, err)
	}
	if !strings.Contains(out.String(), "No updates.") {
		t.Errorf("Run() output = %q, missing noop message", out.String())
	}
}

func TestRunIntentNarrowing(t *testing.T) {
	p := plan.New()
	_ = p.Add(&plan.Operation{Remote: "flathub", Ref: appRef, Subpaths: plan.Wildcard(), Install: true, Update: true})

	cases := map[string]struct {
		deployed bool
		want     string
	}{
		"NotInstalledNarrowsToInstall": {deployed: false, want: "Installing:"},
		"InstalledNarrowsToUpdate":     {deployed: true, want: "Updating:"},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			out := &bytes.Buffer{}
			e := New(&fakeInstaller{}, store.NewProbe(fakeRaw{deployed: map[string]bool{appRef: tc.deployed}}), out, false, false)

			if ok, err := e.Run(context.Background(), p, scope.NewSystem(), false); !ok || err != nil {
				t.Fatalf("Run() = (%v, %v), want (true, nil)", ok, err)
			}
			if !strings.Contains(out.String(), tc.want) {
				t.Errorf("Run() output = %q, want substring %q", out.String(), tc.want)
			}
		})
	}
}

func TestRunForwardsNoPullNoDeploy(t *testing.T) {
	p := plan.New()
	_ = p.Add(&plan.Operation{Remote: "flathub", Ref: appRef, Install: true})
	_ = p.Add(&plan.Operation{Remote: "flathub", Ref: "app/org.example.Other/x86_64/stable", Update: true})

	out := &bytes.Buffer{}
	inst := &fakeInstaller{}
	e := New(inst, store.NewProbe(fakeRaw{deployed: map[string]bool{"app/org.example.Other/x86_64/stable": true}}), out, true, true)

	if ok, err := e.Run(context.Background(), p, scope.NewSystem(), false); !ok || err != nil {
		t.Fatalf("Run() = (%v, %v), want (true, nil)", ok, err)
	}

	if inst.gotInstall == nil || !inst.gotInstall.NoPull || !inst.gotInstall.NoDeploy {
		t.Errorf("Install request = %+v, want NoPull and NoDeploy both forwarded as true", inst.gotInstall)
	}
	if inst.gotUpdate == nil || !inst.gotUpdate.NoPull || !inst.gotUpdate.NoDeploy {
		t.Errorf("Update request = %+v, want NoPull and NoDeploy both forwarded as true", inst.gotUpdate)
	}
}

func TestRunNonFatalFailureContinues(t *testing.T) {
	p := plan.New()
	_ = p.Add(&plan.Operation{Remote: "flathub", Ref: appRef, Install: true, NonFatal: true})

	out := &bytes.Buffer{}
	e := New(&fakeInstaller{installErr: errors.New("boom")}, store.NewProbe(fakeRaw{}), out, false, false)

	ok, err := e.Run(context.Background(), p, scope.NewSystem(), false)
	if !ok || err != nil {
		t.Fatalf("Run() = (%v, %v), want (true, nil): a non_fatal failure must not fail the transaction", ok, err)
	}
	if !strings.Contains(out.String(), "Warning: boom") {
		t.Errorf("Run() output = %q, missing warning message", out.String())
	}
}

func TestRunFatalFailureContinuesByDefault(t *testing.T) {
	p := plan.New()
	_ = p.Add(&plan.Operation{Remote: "flathub", Ref: appRef, Install: true})
	_ = p.Add(&plan.Operation{Remote: "flathub", Ref: "app/org.example.Other/x86_64/stable", Install: true})

	out := &bytes.Buffer{}
	e := New(&fakeInstaller{installErr: errors.New("boom")}, store.NewProbe(fakeRaw{}), out, false, false)

	ok, err := e.Run(context.Background(), p, scope.NewSystem(), false)
	if ok || !errors.Is(err, ErrOperationsFailed) {
		t.Fatalf("Run() = (%v, %v), want (false, ErrOperationsFailed)", ok, err)
	}
	if strings.Count(out.String(), "Error: boom") != 2 {
		t.Errorf("Run() output = %q, want both ops to have failed and continued", out.String())
	}
}

func TestRunStopOnFirstError(t *testing.T) {
	p := plan.New()
	_ = p.Add(&plan.Operation{Remote: "flathub", Ref: appRef, Install: true})
	_ = p.Add(&plan.Operation{Remote: "flathub", Ref: "app/org.example.Other/x86_64/stable", Install: true})

	out := &bytes.Buffer{}
	boom := errors.New("boom")
	e := New(&fakeInstaller{installErr: boom}, store.NewProbe(fakeRaw{}), out, false, false)

	ok, err := e.Run(context.Background(), p, scope.NewSystem(), true)
	if ok || !errors.Is(err, boom) {
		t.Fatalf("Run() = (%v, %v), want (false, boom)", ok, err)
	}
	if strings.Count(out.String(), "Error:") != 1 {
		t.Errorf("Run() output = %q, want exactly one op attempted before halting", out.String())
	}
}

func TestRunCancellation(t *testing.T) {
	p := plan.New()
	_ = p.Add(&plan.Operation{Remote: "flathub", Ref: appRef, Install: true})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := &bytes.Buffer{}
	e := New(&fakeInstaller{}, store.NewProbe(fakeRaw{}), out, false, false)

	ok, err := e.Run(ctx, p, scope.NewSystem(), false)
	if ok || !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() = (%v, %v), want (false, context.Canceled)", ok, err)
	}
	if out.Len() != 0 {
		t.Errorf("Run() output = %q, want no ops attempted after cancellation", out.String())
	}
}
