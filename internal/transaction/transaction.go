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

// Package transaction implements the Planner (§4.7): the component that
// turns a handful of user-requested install/update calls into a complete,
// ordered plan.Plan, recursively pulling in declared runtime dependencies
// and related refs along the way.
package transaction

import (
	"context"
	"io"

	"github.com/crossplane/crossplane-runtime/pkg/errors"
	"github.com/crossplane/crossplane-runtime/pkg/logging"
	"github.com/emicklei/dot"

	"github.com/flatrun/flatrun/internal/metadata"
	"github.com/flatrun/flatrun/internal/ocibind"
	"github.com/flatrun/flatrun/internal/plan"
	"github.com/flatrun/flatrun/internal/ref"
	"github.com/flatrun/flatrun/internal/related"
	"github.com/flatrun/flatrun/internal/remotechooser"
	"github.com/flatrun/flatrun/internal/scope"
	"github.com/flatrun/flatrun/internal/store"
)

const (
	errFmtAlreadyInstalled = "%s is already installed"
	errFmtNotInstalled     = "%s is not installed"
	errFmtOCIBind          = "cannot bind OCI origin"
)

// ErrAlreadyInstalled is returned by AddInstall when ref is already deployed
// in the transaction's scope and not already queued by this transaction.
var ErrAlreadyInstalled = errors.New("already installed")

// ErrNotInstalled is returned by AddUpdate when ref is neither deployed nor
// already queued by this transaction.
var ErrNotInstalled = errors.New("not installed")

// ErrRuntimeMissing is logged (never returned to a caller; see AddInstall)
// when a declared runtime dependency cannot be found on any remote.
var ErrRuntimeMissing = errors.New("runtime dependency not found on any remote")

// RemoteSearcher discovers which remotes carry a given ref (§6:
// search_remotes), feeding candidates to the Remote Chooser.
type RemoteSearcher interface {
	SearchRemotes(ctx context.Context, ref string) ([]string, error)
}

// Config carries the transaction-wide flags described in §3.
type Config struct {
	// NoPull restricts related-ref discovery to the local index instead of
	// the remote one. Runtime dependency discovery does not consult it.
	NoPull bool
	// NoDeploy plans pulls without deploying them. It is forwarded
	// verbatim to the store and does not affect planning decisions.
	NoDeploy bool
	// AddDeps recursively queues an app's declared runtime dependency.
	AddDeps bool
	// AddRelated recursively queues related refs flagged for download.
	AddRelated bool
}

// Transaction is the Planner: it accumulates a plan.Plan from a sequence of
// AddInstall / AddUpdate / AddInstallFromOCI calls, resolving dependencies
// and related refs as it goes.
type Transaction struct {
	scope    scope.Scope
	cfg      Config
	plan     *plan.Plan
	probe    *store.Probe
	meta     metadata.Fetcher
	related  *related.Resolver
	chooser  remotechooser.Chooser
	search   RemoteSearcher
	binder   *ocibind.Binder
	log      logging.Logger

	// edges records "ref pulled in ref" discovery links for DumpDOT. It is
	// purely cosmetic bookkeeping, not part of the plan's semantics.
	edges map[string][]string
}

// New returns an empty Transaction scoped to s.
func New(s scope.Scope, cfg Config, probe *store.Probe, meta metadata.Fetcher, rel *related.Resolver, chooser remotechooser.Chooser, search RemoteSearcher, binder *ocibind.Binder, log logging.Logger) *Transaction {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Transaction{
		scope:   s,
		cfg:     cfg,
		plan:    plan.New(),
		probe:   probe,
		meta:    meta,
		related: rel,
		chooser: chooser,
		search:  search,
		binder:  binder,
		log:     log,
		edges:   map[string][]string{},
	}
}

// Plan returns the transaction's accumulated plan.
func (t *Transaction) Plan() *plan.Plan {
	return t.plan
}

// Contains reports whether ref already has a queued operation.
func (t *Transaction) Contains(ref string) bool {
	return t.plan.Contains(ref)
}

// AddInstall queues an install of ref from remote. subpaths is defaulted to
// the wildcard (pull everything) when nil. Fails with ErrAlreadyInstalled if
// ref is already deployed in this transaction's scope and not already
// queued here.
func (t *Transaction) AddInstall(ctx context.Context, remote, refStr string, subpaths plan.Subpaths) error {
	if subpaths == nil {
		subpaths = plan.Wildcard()
	}

	if !t.plan.Contains(refStr) && t.probe.DeployedInScope(t.scope, refStr) {
		return errors.Wrapf(ErrAlreadyInstalled, errFmtAlreadyInstalled, refStr)
	}

	if t.cfg.AddDeps {
		t.resolveDeps(ctx, remote, refStr)
	}

	op := &plan.Operation{Remote: remote, Ref: refStr, Subpaths: subpaths, Install: true}
	if err := t.plan.Add(op); err != nil {
		return err
	}

	if t.cfg.AddRelated {
		t.resolveRelated(ctx, remote, refStr, subpaths)
	}
	return nil
}

// AddUpdate queues an update of ref to commit (empty for "latest"). Fails
// with ErrNotInstalled if ref is neither deployed nor already queued. A
// disabled origin remote is a silent no-op (§4.8).
func (t *Transaction) AddUpdate(ctx context.Context, refStr string, subpaths plan.Subpaths, commit string) error {
	remote, err := t.originOf(refStr)
	if err != nil {
		return err
	}

	if t.probe.RemoteDisabled(t.scope, remote) {
		return nil
	}

	if t.cfg.AddDeps {
		t.resolveDeps(ctx, remote, refStr)
	}

	op := &plan.Operation{Remote: remote, Ref: refStr, Subpaths: subpaths, Commit: commit, Update: true}
	if err := t.plan.Add(op); err != nil {
		return err
	}

	if t.cfg.AddRelated {
		t.resolveRelated(ctx, remote, refStr, subpaths)
	}
	return nil
}

// AddInstallFromOCI binds uri/tag to a ref and commit via the OCI Origin
// Binder (§4.6) and queues a pinned install with a freshly provisioned
// origin remote.
func (t *Transaction) AddInstallFromOCI(ctx context.Context, uri, tag string) error {
	bound, err := t.binder.Bind(ctx, t.scope, uri, tag)
	if err != nil {
		return errors.Wrap(err, errFmtOCIBind)
	}

	if t.cfg.AddDeps {
		t.resolveDeps(ctx, bound.Remote, bound.Ref)
	}

	op := &plan.Operation{Remote: bound.Remote, Ref: bound.Ref, Subpaths: plan.Wildcard(), Commit: bound.Commit, Install: true}
	if err := t.plan.Add(op); err != nil {
		return err
	}

	if t.cfg.AddRelated {
		t.resolveRelated(ctx, bound.Remote, bound.Ref, plan.Wildcard())
	}
	return nil
}

// DumpDOT renders the transaction's discovery graph - which ref pulled in
// which other ref - as Graphviz DOT. The CLI writes it when its DumpDOT
// global flag is set.
func (t *Transaction) DumpDOT(w io.Writer) error {
	g := dot.NewGraph(dot.Directed)

	nodes := map[string]dot.Node{}
	nodeFor := func(r string) dot.Node {
		if n, ok := nodes[r]; ok {
			return n
		}
		label := r
		if pretty, err := ref.Pretty(r); err == nil {
			label = pretty
		}
		n := g.Node(r).Label(label)
		nodes[r] = n
		return n
	}

	for _, op := range t.plan.Ordered() {
		nodeFor(op.Ref)
	}
	for from, tos := range t.edges {
		for _, to := range tos {
			g.Edge(nodeFor(from), nodeFor(to))
		}
	}

	_, err := io.WriteString(w, g.String())
	return err
}

// originOf resolves the remote an already-queued or already-deployed ref
// belongs to.
func (t *Transaction) originOf(refStr string) (string, error) {
	if op, ok := t.plan.Get(refStr); ok {
		return op.Remote, nil
	}
	if origin, ok := t.probe.OriginOf(t.scope, refStr); ok {
		return origin, nil
	}
	return "", errors.Wrapf(ErrNotInstalled, errFmtNotInstalled, refStr)
}

// followUp recursively resolves refStr's runtime dependency and related
// refs, per the AddDeps / AddRelated flags. Both are best-effort: a failure
// is logged and never propagated to the caller of AddInstall / AddUpdate /
// AddInstallFromOCI, since a missing dependency or related ref is surfaced
// later, at execution time, against the real store state rather than here.
func (t *Transaction) followUp(ctx context.Context, remote, refStr string, subpaths plan.Subpaths) {
	if t.cfg.AddDeps {
		t.resolveDeps(ctx, remote, refStr)
	}
	if t.cfg.AddRelated {
		t.resolveRelated(ctx, remote, refStr, subpaths)
	}
}

func (t *Transaction) resolveDeps(ctx context.Context, remote, refStr string) {
	runtimeSuffix, ok := t.meta.FetchRuntimeRef(ctx, t.scope, remote, refStr)
	if !ok {
		return
	}
	runtimeRef := ref.RuntimeRef(runtimeSuffix)

	if t.plan.Contains(runtimeRef) {
		t.edges[refStr] = append(t.edges[refStr], runtimeRef)
		return
	}

	if t.probe.DeployedInScope(t.scope, runtimeRef) {
		origin, _ := t.probe.OriginOf(t.scope, runtimeRef)
		op := &plan.Operation{Remote: origin, Ref: runtimeRef, Subpaths: plan.Wildcard(), Update: true}
		if err := t.plan.Add(op); err != nil {
			t.log.Info("cannot queue runtime dependency update, continuing without it", "ref", refStr, "runtime", runtimeRef, "error", err)
			return
		}
		t.edges[refStr] = append(t.edges[refStr], runtimeRef)
		t.followUp(ctx, origin, runtimeRef, plan.Wildcard())
		return
	}

	if t.probe.IsInstalled(t.scope, runtimeRef) {
		// Satisfied by the other scope: nothing to do.
		t.edges[refStr] = append(t.edges[refStr], runtimeRef)
		return
	}

	candidates, err := t.search.SearchRemotes(ctx, runtimeRef)
	if err != nil {
		t.log.Info("cannot search remotes for runtime dependency, continuing without it", "ref", refStr, "runtime", runtimeRef, "error", err)
		return
	}
	if len(candidates) == 0 {
		t.log.Info(ErrRuntimeMissing.Error(), "ref", refStr, "runtime", runtimeRef)
		return
	}

	chosen, ok := t.chooser.Choose(ctx, candidates)
	if !ok {
		t.log.Info("runtime dependency resolution aborted by caller, continuing without it", "ref", refStr, "runtime", runtimeRef)
		return
	}

	// Both install and update are set: whether the dependency already
	// exists by the time the Executor runs is resolved then, against the
	// real store state, not here (§4.8, E1).
	op := &plan.Operation{Remote: chosen, Ref: runtimeRef, Subpaths: plan.Wildcard(), Install: true, Update: true}
	if err := t.plan.Add(op); err != nil {
		t.log.Info("cannot queue runtime dependency, continuing without it", "ref", refStr, "runtime", runtimeRef, "error", err)
		return
	}
	t.edges[refStr] = append(t.edges[refStr], runtimeRef)

	t.followUp(ctx, chosen, runtimeRef, plan.Wildcard())
}

func (t *Transaction) resolveRelated(ctx context.Context, remote, refStr string, subpaths plan.Subpaths) {
	for _, tuple := range t.related.FindRelated(ctx, t.scope, remote, refStr, t.cfg.NoPull) {
		if !tuple.Download {
			continue
		}

		tupleSubpaths := tuple.Subpaths
		if tupleSubpaths == nil {
			tupleSubpaths = subpaths
		}

		// Related refs are always queued with both intents set and
		// non_fatal=true: non-fatality is a property of the op, not the
		// caller (§4.7).
		op := &plan.Operation{Remote: remote, Ref: tuple.Ref, Subpaths: tupleSubpaths, Install: true, Update: true, NonFatal: true}
		if err := t.plan.Add(op); err != nil {
			t.log.Info("cannot queue related ref, continuing without it", "ref", refStr, "related", tuple.Ref, "error", err)
			continue
		}
		t.edges[refStr] = append(t.edges[refStr], tuple.Ref)
	}
}
