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
	"os"

	"github.com/crossplane/crossplane-runtime/pkg/logging"

	"github.com/flatrun/flatrun/internal/executor"
	"github.com/flatrun/flatrun/internal/metadata"
	"github.com/flatrun/flatrun/internal/ocibind"
	"github.com/flatrun/flatrun/internal/related"
	"github.com/flatrun/flatrun/internal/remotechooser"
	"github.com/flatrun/flatrun/internal/store"
	"github.com/flatrun/flatrun/internal/transaction"
)

// Collaborators bundles every external dependency a subcommand needs to
// build a Transaction and run it, so each command's Run method takes one
// argument instead of a long parameter list.
type Collaborators struct {
	Store   store.Installer
	Probe   *store.Probe
	Fetcher metadata.Fetcher
	Related *related.Resolver
	Chooser remotechooser.Chooser
	Search  transaction.RemoteSearcher
	Binder  *ocibind.Binder
	Log     logging.Logger
}

// newTransaction builds a Transaction scoped and configured per the shared
// Globals, wired to c's collaborators.
func (c *Collaborators) newTransaction(g *Globals) *transaction.Transaction {
	cfg := transaction.Config{
		NoPull:     g.NoPull,
		NoDeploy:   g.NoDeploy,
		AddDeps:    !g.NoDeps,
		AddRelated: !g.NoRelated,
	}
	return transaction.New(g.scope(), cfg, c.Probe, c.Fetcher, c.Related, c.Chooser, c.Search, c.Binder, c.Log)
}

// run renders the transaction's plan (optionally dumping its discovery graph
// to g.DumpDOT) and executes it, exiting non-zero on failure the way the
// Executor itself reports it (§6).
func (c *Collaborators) run(ctx context.Context, g *Globals, tx *transaction.Transaction) error {
	if g.DumpDOT != "" {
		f, err := os.Create(g.DumpDOT)
		if err != nil {
			return err
		}
		defer f.Close() //nolint:errcheck // best-effort close on a diagnostic dump

		if err := tx.DumpDOT(f); err != nil {
			return err
		}
	}

	ex := executor.New(c.Store, c.Probe, os.Stdout, g.NoPull, g.NoDeploy)
	_, err := ex.Run(ctx, tx.Plan(), g.scope(), g.StopOnFirstError)
	return err
}
