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

// Package related implements the Related-Refs Resolver (§4.4): companion
// refs (locale packs, debug info, extensions) attached to a primary ref,
// sourced from either a local or a remote index depending on pull policy.
package related

import (
	"context"

	"github.com/crossplane/crossplane-runtime/pkg/logging"

	"github.com/flatrun/flatrun/internal/plan"
	"github.com/flatrun/flatrun/internal/scope"
)

// Tuple is one related ref candidate.
type Tuple struct {
	Ref      string
	Subpaths plan.Subpaths
	Download bool
}

// Source looks up related refs for a single (remote, ref) pair, from either
// a local or a remote index (§6: find_local_related / find_remote_related).
type Source interface {
	Find(ctx context.Context, s scope.Scope, remote, ref string) ([]Tuple, error)
}

// Resolver is the default Related-Refs Resolver, choosing between a local
// and a remote Source based on the caller's pull policy.
type Resolver struct {
	local  Source
	remote Source
	log    logging.Logger
}

// NewResolver returns a Resolver that consults local for no_pull transactions
// and remote otherwise.
func NewResolver(local, remote Source, log logging.Logger) *Resolver {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Resolver{local: local, remote: remote, log: log}
}

// FindRelated returns ref's related-ref tuples with download=false entries
// still present (the caller is responsible for skipping those, per §4.4).
// A lookup failure is never fatal: it is logged as a warning and treated as
// an empty result.
func (r *Resolver) FindRelated(ctx context.Context, s scope.Scope, remote, ref string, localOnly bool) []Tuple {
	src := r.remote
	if localOnly {
		src = r.local
	}

	tuples, err := src.Find(ctx, s, remote, ref)
	if err != nil {
		r.log.Info("cannot resolve related refs, continuing without them", "ref", ref, "remote", remote, "error", err)
		return nil
	}

	return tuples
}
