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

// Package ref implements parsing and formatting helpers for flatrun's
// ref strings: kind/name/arch/branch identifiers for apps and runtimes.
package ref

import (
	"strings"

	"github.com/crossplane/crossplane-runtime/pkg/errors"
)

// Kind distinguishes an app ref from a runtime ref.
type Kind string

const (
	// KindApp identifies an installable application bundle.
	KindApp Kind = "app"
	// KindRuntime identifies a shared runtime that apps depend on.
	KindRuntime Kind = "runtime"
)

const (
	errFmtMalformed = "ref %q is malformed: expected kind/name/arch/branch"
)

// ErrMalformedRef is returned when a ref string cannot be decomposed into its
// kind/name/arch/branch parts.
var ErrMalformedRef = errors.New("malformed ref")

// Ref is a decomposed kind/name/arch/branch reference string. Refs are
// compared by exact string equality of their String() form.
type Ref struct {
	Kind   Kind
	Name   string
	Arch   string
	Branch string
}

// Decompose splits a raw ref string into its parts. It fails with
// ErrMalformedRef unless the string has exactly four '/'-separated parts.
func Decompose(raw string) (Ref, error) {
	idx := strings.IndexByte(raw, '/')
	if idx < 0 {
		return Ref{}, errors.Wrapf(ErrMalformedRef, errFmtMalformed, raw)
	}

	parts := strings.Split(raw, "/")
	if len(parts) != 4 {
		return Ref{}, errors.Wrapf(ErrMalformedRef, errFmtMalformed, raw)
	}

	return Ref{
		Kind:   Kind(parts[0]),
		Name:   parts[1],
		Arch:   parts[2],
		Branch: parts[3],
	}, nil
}

// String reconstructs the raw kind/name/arch/branch ref string.
func (r Ref) String() string {
	return string(r.Kind) + "/" + r.Pretty()
}

// Pretty returns the name/arch/branch suffix used in user-facing messages.
func (r Ref) Pretty() string {
	return r.Name + "/" + r.Arch + "/" + r.Branch
}

// IsApp reports whether r is an app ref.
func (r Ref) IsApp() bool {
	return r.Kind == KindApp
}

// IsRuntime reports whether r is a runtime ref.
func (r Ref) IsRuntime() bool {
	return r.Kind == KindRuntime
}

// Pretty returns the substring of a raw ref string after its first '/'. It
// fails with ErrMalformedRef if raw contains no '/'.
func Pretty(raw string) (string, error) {
	idx := strings.IndexByte(raw, '/')
	if idx < 0 {
		return "", errors.Wrapf(ErrMalformedRef, errFmtMalformed, raw)
	}
	return raw[idx+1:], nil
}

// IsApp reports whether raw starts with "app/".
func IsApp(raw string) bool {
	return strings.HasPrefix(raw, string(KindApp)+"/")
}

// RuntimeRef prepends "runtime/" to a name/arch/branch suffix, yielding a
// full runtime ref string.
func RuntimeRef(nameArchBranch string) string {
	return string(KindRuntime) + "/" + nameArchBranch
}
