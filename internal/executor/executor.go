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

// Package executor implements the Executor (§4.8): it walks a finalized
// plan.Plan in insertion order, dispatching each operation to the store and
// applying the narrowing, noop, and fatality rules that turn a sequence of
// store calls into a single pass/fail transaction outcome.
package executor

import (
	"context"
	"fmt"
	"io"

	"github.com/crossplane/crossplane-runtime/pkg/errors"

	"github.com/flatrun/flatrun/internal/plan"
	"github.com/flatrun/flatrun/internal/ref"
	"github.com/flatrun/flatrun/internal/scope"
	"github.com/flatrun/flatrun/internal/store"
)

// ErrOperationsFailed is returned by Run when one or more fatal operations
// failed without stop_on_first_error set - the generic outer error §4.8/§6
// describe, as opposed to the concrete store error an individual op raised.
var ErrOperationsFailed = errors.New("One or more operations failed")

const commitPrintLen = 12

// Executor runs a plan.Plan against a store.Installer.
type Executor struct {
	installer store.Installer
	probe     *store.Probe
	out       io.Writer
	noPull    bool
	noDeploy  bool
}

// New returns an Executor dispatching to installer, consulting probe for
// E1 intent narrowing, and writing user-visible progress to out. noPull and
// noDeploy are forwarded verbatim to every store request this Executor
// issues (§3, §4.8).
func New(installer store.Installer, probe *store.Probe, out io.Writer, noPull, noDeploy bool) *Executor {
	return &Executor{installer: installer, probe: probe, out: out, noPull: noPull, noDeploy: noDeploy}
}

// Run executes p's operations in insertion order against s. It returns true
// iff every fatal operation succeeded (a noop update counts as success) and
// every non-fatal failure was merely warned about. stopOnFirstError, when
// set, halts on and returns the first fatal operation's concrete error
// instead of continuing and reporting ErrOperationsFailed.
func (e *Executor) Run(ctx context.Context, p *plan.Plan, s scope.Scope, stopOnFirstError bool) (bool, error) {
	ok := true

	for _, op := range p.Ordered() {
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		default:
		}

		err := e.runOne(ctx, s, op)
		if err == nil {
			continue
		}

		if op.NonFatal {
			fmt.Fprintf(e.out, "Warning: %v\n", err)
			continue
		}

		fmt.Fprintf(e.out, "Error: %v\n", err)
		ok = false

		if stopOnFirstError {
			return false, err
		}
	}

	if !ok {
		return false, ErrOperationsFailed
	}
	return true, nil
}

// runOne dispatches a single operation, applying E1 narrowing and the
// noop-update rule.
func (e *Executor) runOne(ctx context.Context, s scope.Scope, op *plan.Operation) error {
	install, update := op.Install, op.Update
	if install && update {
		if e.probe.IsInstalled(s, op.Ref) {
			install, update = false, true
		} else {
			install, update = true, false
		}
	}

	pretty, err := ref.Pretty(op.Ref)
	if err != nil {
		pretty = op.Ref
	}

	switch {
	case install:
		fmt.Fprintf(e.out, "Installing: %s from %s\n", pretty, op.Remote)
		return e.installer.Install(ctx, s, store.InstallRequest{
			Ref:      op.Ref,
			Remote:   op.Remote,
			Subpaths: op.Subpaths,
			Commit:   op.Commit,
			NoPull:   e.noPull,
			NoDeploy: e.noDeploy,
		})

	case update:
		fmt.Fprintf(e.out, "Updating: %s from %s\n", pretty, op.Remote)
		res, err := e.installer.Update(ctx, s, store.UpdateRequest{
			Ref:      op.Ref,
			Remote:   op.Remote,
			Subpaths: op.Subpaths,
			Commit:   op.Commit,
			NoPull:   e.noPull,
			NoDeploy: e.noDeploy,
		})
		if err != nil {
			if errors.Is(err, store.ErrAlreadyInstalled) {
				fmt.Fprintln(e.out, "No updates.")
				return nil
			}
			return err
		}

		commit := res.NewCommit
		if len(commit) > commitPrintLen {
			commit = commit[:commitPrintLen]
		}
		fmt.Fprintf(e.out, "Now at %s.\n", commit)
		return nil
	}

	// Unreachable: plan.Operation.Validate (invariant I3) guarantees at
	// least one of Install or Update is set before an op ever reaches here.
	return nil
}
