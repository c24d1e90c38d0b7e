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

	"github.com/alecthomas/kong"

	"github.com/crossplane/crossplane-runtime/pkg/errors"

	"github.com/flatrun/flatrun/internal/plan"
)

const errFmtUpdate = "cannot update %s"

// UpdateCmd updates an already-installed ref, optionally pinning a commit.
type UpdateCmd struct {
	Ref      string   `arg:"" help:"Ref to update, e.g. app/org.example.App/x86_64/stable."`
	Commit   string   `help:"Pin the update to this commit instead of the remote's latest." optional:""`
	Subpaths []string `help:"Restrict the update to these subpaths instead of the ref's current set." optional:""`
}

// Run implements the update subcommand.
func (c *UpdateCmd) Run(k *kong.Context, g *Globals, collab *Collaborators) error {
	ctx := context.Background()

	var subpaths plan.Subpaths
	if len(c.Subpaths) > 0 {
		subpaths = plan.Filter(c.Subpaths...)
	}

	tx := collab.newTransaction(g)
	if err := tx.AddUpdate(ctx, c.Ref, subpaths, c.Commit); err != nil {
		return errors.Wrapf(err, errFmtUpdate, c.Ref)
	}

	return collab.run(ctx, g, tx)
}
