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

// Package plan implements the Operation/Plan data model: an insertion-ordered,
// deduplicated sequence of per-ref install/update actions.
package plan

import "github.com/crossplane/crossplane-runtime/pkg/errors"

// Subpaths is the tri-state subpath filter described by the transaction data
// model:
//
//   - nil                -> absent: preserve whatever the store already has.
//   - non-nil, len == 0  -> wildcard: pull every subpath.
//   - non-nil, len > 0   -> restrict to the listed subpaths.
//
// Collapsing the absent and wildcard cases loses information the Planner's
// merge rule depends on, so Subpaths is always passed around as a pointer.
type Subpaths = *[]string

// Wildcard returns a Subpaths value meaning "pull everything".
func Wildcard() Subpaths {
	s := []string{}
	return &s
}

// Filter returns a Subpaths value restricting the pull to the given paths.
func Filter(paths ...string) Subpaths {
	s := append([]string{}, paths...)
	return &s
}

// IsWildcard reports whether s is present and empty.
func IsWildcard(s Subpaths) bool {
	return s != nil && len(*s) == 0
}

// Operation is a planned action on exactly one ref.
type Operation struct {
	Remote     string
	Ref        string
	Subpaths   Subpaths
	Commit     string
	Install    bool
	Update     bool
	NonFatal   bool
}

// errNeitherIntent is returned by Validate when an Operation carries neither
// install nor update intent, violating invariant I3.
var errNeitherIntent = errors.New("operation must set install or update")

// Validate checks invariant I3: at least one of Install or Update must be true.
func (o *Operation) Validate() error {
	if !o.Install && !o.Update {
		return errNeitherIntent
	}
	return nil
}

// Plan is an ordered sequence of Operations plus a by-ref index. It
// maintains invariant I1 (each ref appears at most once) and I2 (insertion
// order is preserved for the Executor).
type Plan struct {
	ops   []*Operation
	index map[string]*Operation
}

// New returns an empty Plan.
func New() *Plan {
	return &Plan{index: map[string]*Operation{}}
}

// Len returns the number of operations currently in the plan.
func (p *Plan) Len() int {
	return len(p.ops)
}

// Contains reports whether ref already has an operation in the plan.
func (p *Plan) Contains(ref string) bool {
	_, ok := p.index[ref]
	return ok
}

// Get returns the operation for ref, if any.
func (p *Plan) Get(ref string) (*Operation, bool) {
	op, ok := p.index[ref]
	return op, ok
}

// Ordered returns the plan's operations in insertion order. The returned
// slice must not be mutated by callers.
func (p *Plan) Ordered() []*Operation {
	return p.ops
}

// Add inserts op, or merges it into an existing operation for the same ref.
//
// Merge rule (§4.7): the first-seen operation is kept in place so insertion
// order is undisturbed. If the existing operation's Subpaths is a non-empty
// filter and the new call supplies any Subpaths value (filter or wildcard),
// the new value replaces it: "all wins over some", and a wildcard from either
// call always dominates a later filtered one. An absent Subpaths on the new
// call never overwrites an existing value (I4).
func (p *Plan) Add(op *Operation) error {
	if err := op.Validate(); err != nil {
		return err
	}

	existing, ok := p.index[op.Ref]
	if !ok {
		p.ops = append(p.ops, op)
		p.index[op.Ref] = op
		return nil
	}

	if existing.Subpaths != nil && len(*existing.Subpaths) > 0 && op.Subpaths != nil {
		existing.Subpaths = op.Subpaths
	}

	return nil
}
