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
	"testing"

	"github.com/crossplane/crossplane-runtime/pkg/errors"
	"github.com/google/go-cmp/cmp"

	"github.com/flatrun/flatrun/internal/scope"
	"github.com/flatrun/flatrun/internal/store"
)

type fakeHandle struct {
	manifest Manifest
	err      error
}

func (h fakeHandle) ChooseImage(_ context.Context, _ string) (Manifest, error) {
	return h.manifest, h.err
}

type fakeRegistry struct {
	handle Handle
	err    error
}

func (r fakeRegistry) OpenRegistry(_ context.Context, _ string) (Handle, error) {
	return r.handle, r.err
}

type fakeInstaller struct {
	store.Installer
	gotRemoteName string
	createErr     error
	recreateErr   error
}

func (f *fakeInstaller) CreateOriginRemote(_ context.Context, _ scope.Scope, id, _, _, _, _ string) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	f.gotRemoteName = id
	return id, nil
}

func (f *fakeInstaller) RecreateRepo(_ context.Context, _ scope.Scope) error {
	return f.recreateErr
}

func TestBind(t *testing.T) {
	type want struct {
		origin BoundOrigin
		err    error
	}

	cases := map[string]struct {
		reason   string
		registry Registry
		want     want
	}{
		"Success": {
			reason: "A manifest carrying both annotations yields a bound origin.",
			registry: fakeRegistry{handle: fakeHandle{manifest: Manifest{Annotations: map[string]string{
				annotationRef:    "app/org.example.App/x86_64/stable",
				annotationCommit: "abc123",
			}}}},
			want: want{origin: BoundOrigin{
				Remote: "oci-org.example.App/x86_64/stable",
				Ref:    "app/org.example.App/x86_64/stable",
				Commit: "abc123",
			}},
			// The ref's pretty form (name/arch/branch) becomes the remote id suffix.
		},
		"NotAFlatpakImage": {
			reason:   "A manifest with no ref annotation is rejected.",
			registry: fakeRegistry{handle: fakeHandle{manifest: Manifest{}}},
			want:     want{err: ErrNotAFlatpakImage},
		},
		"OpenRegistryError": {
			reason:   "A registry that cannot be opened propagates its error.",
			registry: fakeRegistry{err: errors.New("dial error")},
			want:     want{err: errors.New("dial error")},
		},
		"MalformedRef": {
			reason: "A malformed ref annotation propagates the decompose error.",
			registry: fakeRegistry{handle: fakeHandle{manifest: Manifest{Annotations: map[string]string{
				annotationRef: "not-a-ref",
			}}}},
			want: want{err: errors.New("malformed ref")},
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			installer := &fakeInstaller{}
			b := NewBinder(tc.registry, installer)

			got, err := b.Bind(context.Background(), scope.NewSystem(), "registry.example.com/org.example.App", "latest")
			if tc.want.err != nil {
				if err == nil {
					t.Fatalf("%s\nBind(): want error, got nil", tc.reason)
				}
				return
			}
			if err != nil {
				t.Fatalf("%s\nBind(): unexpected error: %v", tc.reason, err)
			}
			if diff := cmp.Diff(tc.want.origin, got); diff != "" {
				t.Errorf("%s\nBind(): -want, +got:\n%s", tc.reason, diff)
			}
			if installer.gotRemoteName != tc.want.origin.Remote {
				t.Errorf("%s\nCreateOriginRemote() id = %q, want %q", tc.reason, installer.gotRemoteName, tc.want.origin.Remote)
			}
		})
	}
}
